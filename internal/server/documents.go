package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/4gd-ai/genesilico-ocr/internal/async"
	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/entity"
	"github.com/4gd-ai/genesilico-ocr/internal/pipeline"
)

var (
	singleUploadTypes = map[string]bool{"pdf": true, "jpg": true, "jpeg": true, "png": true}
	multiUploadTypes  = map[string]bool{"jpg": true, "jpeg": true, "png": true}
)

// UploadDocument accepts one form file and registers it for processing.
func (s *Server) UploadDocument(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "file is required"))
	}

	doc, err := s.saveUpload(fh, singleUploadTypes, nil)
	if err != nil {
		return errorJSON(c, err)
	}
	if err := s.docs.Create(c.Request().Context(), doc); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// UploadMultiple accepts several page images and registers them as one
// document group.
func (s *Server) UploadMultiple(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "multipart form is required"))
	}
	files := form.File["files"]
	if len(files) == 0 {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "at least one file is required"))
	}

	groupID := uuid.New()
	ctx := c.Request().Context()
	docs := make([]*entity.Document, 0, len(files))
	for _, fh := range files {
		doc, err := s.saveUpload(fh, multiUploadTypes, &groupID)
		if err != nil {
			return errorJSON(c, err)
		}
		if err := s.docs.Create(ctx, doc); err != nil {
			return errorJSON(c, err)
		}
		docs = append(docs, doc)
	}

	group := &entity.DocumentGroup{
		ID:     groupID,
		Name:   c.FormValue("name"),
		Status: entity.StatusUploaded,
	}
	if group.Name == "" {
		group.Name = fmt.Sprintf("group-%s", groupID.String()[:8])
	}
	for _, doc := range docs {
		group.DocumentIDs = append(group.DocumentIDs, doc.ID)
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"group":     group,
		"documents": docs,
	})
}

// saveUpload validates the file type and writes the payload under a
// fresh UUID name in the upload directory.
func (s *Server) saveUpload(fh *multipart.FileHeader, allowed map[string]bool, groupID *uuid.UUID) (*entity.Document, error) {
	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(fh.Filename), "."))
	if !allowed[fileType] {
		return nil, common.WrapError(common.ErrUnsupportedFileType,
			fmt.Sprintf("unsupported file type %q", fileType))
	}

	dir := s.uploadDir
	if groupID != nil {
		dir = filepath.Join(dir, groupID.String())
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, common.WrapError(common.ErrInternal, err.Error())
	}

	id := uuid.New()
	dstPath := filepath.Join(dir, id.String()+"."+fileType)

	src, err := fh.Open()
	if err != nil {
		return nil, common.WrapError(common.ErrInvalidInput, err.Error())
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, common.WrapError(common.ErrInternal, err.Error())
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return nil, common.WrapError(common.ErrInternal, err.Error())
	}

	return &entity.Document{
		ID:       id,
		FileName: fh.Filename,
		FilePath: dstPath,
		FileSize: fh.Size,
		FileType: fileType,
		Status:   entity.StatusUploaded,
		GroupID:  groupID,
	}, nil
}

type processRequest struct {
	PatientID      string `json:"patient_id" query:"patient_id"`
	SaveToReports  bool   `json:"save_to_reports" query:"save_to_reports"`
	ForceReprocess bool   `json:"force_reprocess" query:"force_reprocess"`
}

func (r processRequest) options() pipeline.ProcessOptions {
	return pipeline.ProcessOptions{
		PatientID:      r.PatientID,
		SaveToReports:  r.SaveToReports,
		ForceReprocess: r.ForceReprocess,
	}
}

// ProcessDocument queues a document for background processing.
func (s *Server) ProcessDocument(c echo.Context) error {
	return s.enqueueProcess(c, false)
}

// ProcessGroup queues a document group for background processing.
func (s *Server) ProcessGroup(c echo.Context) error {
	return s.enqueueProcess(c, true)
}

func (s *Server) enqueueProcess(c echo.Context, group bool) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, err.Error()))
	}

	ctx := c.Request().Context()
	if group {
		if _, err := s.groups.GetByID(ctx, id); err != nil {
			return errorJSON(c, err)
		}
	} else {
		if _, err := s.docs.GetByID(ctx, id); err != nil {
			return errorJSON(c, err)
		}
	}

	if err := s.queue.Enqueue(ctx, async.Job{
		TargetID:    id,
		Group:       group,
		Options:     req.options(),
		SubmittedAt: time.Now(),
		TraceID:     c.Response().Header().Get(echo.HeaderXRequestID),
	}); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"id":     id,
		"status": "queued",
	})
}

func (s *Server) GetDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	doc, err := s.docs.GetByID(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// DocumentStatus reports the pipeline status plus a coarse progress
// fraction for polling clients.
func (s *Server) DocumentStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	doc, err := s.docs.GetByID(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, err)
	}
	resp := map[string]any{
		"document_id": doc.ID,
		"status":      doc.Status,
		"progress":    entity.Progress(doc.Status),
	}
	if doc.Error != nil {
		resp["error"] = *doc.Error
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) GroupStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	group, err := s.groups.GetByID(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, err)
	}
	resp := map[string]any{
		"group_id":  group.ID,
		"status":    group.Status,
		"progress":  entity.Progress(group.Status),
		"documents": len(group.DocumentIDs),
	}
	if group.Error != nil {
		resp["error"] = *group.Error
	}
	return c.JSON(http.StatusOK, resp)
}

// GetOCRResult returns the stored OCR output for a document or group.
func (s *Server) GetOCRResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	res, err := s.ocrRes.GetByDocumentID(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) ListDocuments(c echo.Context) error {
	status, limit, offset := listParams(c)
	docs, err := s.docs.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return errorJSON(c, err)
	}
	if docs == nil {
		docs = []*entity.Document{}
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) ListGroups(c echo.Context) error {
	status, limit, offset := listParams(c)
	groups, err := s.groups.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return errorJSON(c, err)
	}
	if groups == nil {
		groups = []*entity.DocumentGroup{}
	}
	return c.JSON(http.StatusOK, map[string]any{"groups": groups, "count": len(groups)})
}

func listParams(c echo.Context) (status string, limit, offset int) {
	status = c.QueryParam("status")
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	offset, _ = strconv.Atoi(c.QueryParam("skip"))
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return status, limit, offset
}

package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/entity"
)

// GetTRFRecord returns the extracted record stored against a document
// or group ID, with its completion summary.
func (s *Server) GetTRFRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	rec, err := s.trf.GetByDocumentID(c.Request().Context(), id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) ListTRFRecords(c echo.Context) error {
	status, limit, offset := listParams(c)
	recs, err := s.trf.List(c.Request().Context(), status, limit, offset)
	if err != nil {
		return errorJSON(c, err)
	}
	if recs == nil {
		recs = []*entity.TRFRecord{}
	}
	return c.JSON(http.StatusOK, map[string]any{"records": recs, "count": len(recs)})
}

type updateFieldRequest struct {
	FieldPath  string   `json:"field_path"`
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence"`
}

// UpdateTRFField sets one field value on a record and returns the
// recomputed record.
func (s *Server) UpdateTRFField(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	var req updateFieldRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, err.Error()))
	}

	rec, err := s.proc.UpdateField(c.Request().Context(), id, req.FieldPath, req.Value, req.Confidence)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// CompletionGuidance lists what is still needed to finish a record.
func (s *Server) CompletionGuidance(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	ctx := c.Request().Context()
	guidance, violations, err := s.proc.CompletionGuidance(ctx, id)
	if err != nil {
		return errorJSON(c, err)
	}
	rec, err := s.trf.GetByID(ctx, id)
	if err != nil {
		return errorJSON(c, err)
	}

	message := "The form is complete."
	if len(guidance) > 0 {
		message = fmt.Sprintf("%d required field(s) still need values to complete this form.", len(guidance))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"missing_fields":        guidance,
		"conditional_messages":  violations,
		"form_status":           rec.FormStatus,
		"completion_percentage": rec.CompletionPercentage,
		"message":               message,
	})
}

type suggestRequest struct {
	FieldPath string `json:"field_path" query:"field_path"`
}

// SuggestFieldValue asks the model to propose a value for one field
// from the record's OCR text.
func (s *Server) SuggestFieldValue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "invalid id"))
	}
	var req suggestRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, err.Error()))
	}
	if req.FieldPath == "" {
		return errorJSON(c, common.WrapError(common.ErrInvalidInput, "field_path is required"))
	}

	suggestion, err := s.proc.SuggestField(c.Request().Context(), id, req.FieldPath)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, suggestion)
}

// ExportRecords streams an XLSX completion report.
func (s *Server) ExportRecords(c echo.Context) error {
	status, limit, offset := listParams(c)
	data, err := s.exporter.ExportRecordsXLSX(c.Request().Context(), status, limit, offset)
	if err != nil {
		return errorJSON(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="trf-records.xlsx"`)
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

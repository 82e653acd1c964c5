package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/4gd-ai/genesilico-ocr/internal/async"
	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/export"
	"github.com/4gd-ai/genesilico-ocr/internal/pipeline"
	"github.com/4gd-ai/genesilico-ocr/internal/repository"
)

// Server wires the HTTP surface over the processing pipeline.
type Server struct {
	e         *echo.Echo
	logger    *slog.Logger
	uploadDir string

	proc     *pipeline.Processor
	queue    async.Queue
	docs     repository.DocumentRepository
	groups   repository.DocumentGroupRepository
	ocrRes   repository.OCRResultRepository
	trf      repository.TRFRecordRepository
	exporter *export.Service
}

type Deps struct {
	Logger    *slog.Logger
	UploadDir string

	Processor  *pipeline.Processor
	Queue      async.Queue
	Documents  repository.DocumentRepository
	Groups     repository.DocumentGroupRepository
	OCRResults repository.OCRResultRepository
	TRFRecords repository.TRFRecordRepository
	Exporter   *export.Service
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.UploadDir == "" {
		deps.UploadDir = "./uploads"
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	s := &Server{
		e:         e,
		logger:    deps.Logger,
		uploadDir: deps.UploadDir,
		proc:      deps.Processor,
		queue:     deps.Queue,
		docs:      deps.Documents,
		groups:    deps.Groups,
		ocrRes:    deps.OCRResults,
		trf:       deps.TRFRecords,
		exporter:  deps.Exporter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := s.e.Group("/api/v1")

	g.POST("/documents/upload", s.UploadDocument)
	g.POST("/documents/upload-multiple", s.UploadMultiple)
	g.GET("/documents", s.ListDocuments)
	g.GET("/documents/:id", s.GetDocument)
	g.GET("/documents/:id/status", s.DocumentStatus)
	g.GET("/documents/:id/ocr", s.GetOCRResult)
	g.GET("/documents/:id/trf", s.GetTRFRecord)
	g.POST("/documents/:id/process", s.ProcessDocument)

	g.GET("/groups", s.ListGroups)
	g.GET("/groups/:id/status", s.GroupStatus)
	g.GET("/groups/:id/ocr", s.GetOCRResult)
	g.GET("/groups/:id/trf", s.GetTRFRecord)
	g.POST("/groups/:id/process", s.ProcessGroup)

	g.GET("/trf", s.ListTRFRecords)
	g.PUT("/trf/:id/fields", s.UpdateTRFField)
	g.GET("/trf/:id/guidance", s.CompletionGuidance)
	g.POST("/trf/:id/suggest", s.SuggestFieldValue)

	g.GET("/export/records.xlsx", s.ExportRecords)
}

func (s *Server) Start(addr string) error {
	s.logger.Info("http server starting", "addr", addr)
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

// errorJSON maps domain sentinels onto HTTP statuses.
func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrUnsupportedFileType):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrAlreadyProcessed):
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/4gd-ai/genesilico-ocr/internal/async"
	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/export"
	"github.com/4gd-ai/genesilico-ocr/internal/llm"
	"github.com/4gd-ai/genesilico-ocr/internal/llm/openai"
	"github.com/4gd-ai/genesilico-ocr/internal/ocr"
	"github.com/4gd-ai/genesilico-ocr/internal/pipeline"
	"github.com/4gd-ai/genesilico-ocr/internal/repository"
	"github.com/4gd-ai/genesilico-ocr/internal/schema"
	"github.com/4gd-ai/genesilico-ocr/internal/server"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, repository.Config{
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Error("opening database", "error", err)
		os.Exit(1)
	}
	defer repository.Close(pool, logger)

	if err := repository.HealthCheck(ctx, pool, 3*time.Second, logger); err != nil {
		logger.Error("database health check failed", "error", err)
		os.Exit(1)
	}
	if err := repository.Migrate(ctx, pool, logger); err != nil {
		logger.Error("applying migrations", "error", err)
		os.Exit(1)
	}

	docs := repository.NewDocumentRepository(pool, logger)
	groups := repository.NewDocumentGroupRepository(pool, logger)
	ocrResults := repository.NewOCRResultRepository(pool, logger)
	trfRecords := repository.NewTRFRecordRepository(pool, logger)
	reports := repository.NewPatientReportRepository(pool, logger)

	textExtractor := ocr.NewExtractor(ocr.Config{
		APIKey:  cfg.OCR.GeminiAPIKey,
		BaseURL: cfg.OCR.BaseURL,
		Model:   cfg.OCR.GeminiModel,
		Timeout: cfg.OCR.Timeout,
	}, logger)

	cat := schema.DefaultCatalogue()
	var fieldExtractor llm.FieldExtractor
	var suggester llm.FieldSuggester
	if cfg.LLM.APIKey != "" {
		client := openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, cat, logger)
		fieldExtractor = client
		suggester = client
	} else {
		logger.Warn("OPENAI_API_KEY not set, using pattern extraction only")
	}

	proc := pipeline.NewProcessor(logger, textExtractor, fieldExtractor, suggester,
		docs, groups, ocrResults, trfRecords, reports)
	queue := async.NewProcessorQueue(proc, logger)

	srv := server.New(server.Deps{
		Logger:     logger,
		UploadDir:  cfg.Server.UploadDir,
		Processor:  proc,
		Queue:      queue,
		Documents:  docs,
		Groups:     groups,
		OCRResults: ocrResults,
		TRFRecords: trfRecords,
		Exporter:   export.NewService(trfRecords, logger),
	})

	go func() {
		if err := srv.Start(cfg.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	logger.Info("stopped")
}

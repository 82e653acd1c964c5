package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/ocr"
)

// runocr extracts text from one file and prints the result as JSON.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: runocr <file>")
		os.Exit(2)
	}
	path := os.Args[1]
	fileType := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	cfg := common.LoadConfig()
	if cfg.OCR.GeminiAPIKey == "" {
		logger.Error("GEMINI_API_KEY env var is required")
		os.Exit(2)
	}

	extractor := ocr.NewExtractor(ocr.Config{
		APIKey:  cfg.OCR.GeminiAPIKey,
		BaseURL: cfg.OCR.BaseURL,
		Model:   cfg.OCR.GeminiModel,
		Timeout: cfg.OCR.Timeout,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.OCR.Timeout)
	defer cancel()

	res, err := extractor.Extract(ctx, path, fileType)
	if err != nil {
		logger.Error("ocr failed", "file", path, "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(map[string]any{
		"text":            res.Text,
		"pages":           res.Pages,
		"confidence":      res.Confidence,
		"method":          res.Method,
		"processing_time": res.Duration.Round(time.Millisecond).String(),
	}, "", "  ")
	if err != nil {
		logger.Error("encoding result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

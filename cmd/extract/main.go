package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/llm"
	"github.com/4gd-ai/genesilico-ocr/internal/llm/openai"
	"github.com/4gd-ai/genesilico-ocr/internal/schema"
)

// extract reads OCR text from a file and prints the extracted TRF
// fields. Without an OpenAI key it uses pattern extraction only.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: extract <text-file>")
		os.Exit(2)
	}
	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("reading input", "file", os.Args[1], "error", err)
		os.Exit(1)
	}

	cfg := common.LoadConfig()
	cat := schema.DefaultCatalogue()

	var extractor llm.FieldExtractor
	if cfg.LLM.APIKey != "" {
		extractor = openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, cat, logger)
	} else {
		logger.Warn("OPENAI_API_KEY not set, using pattern extraction")
		extractor = llm.NewPatternExtractor(logger)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout)
	defer cancel()

	result, _, err := extractor.ExtractFields(ctx, llm.ExtractRequest{
		OCRText:    string(raw),
		DocumentID: os.Args[1],
	})
	if err != nil {
		logger.Error("extraction failed", "error", err)
		os.Exit(1)
	}

	norm := schema.NewNormalizer(cat)
	norm.Normalize(result.Fields)

	validator := schema.NewValidator(cat)
	out, err := json.MarshalIndent(map[string]any{
		"extracted_fields":        result.Fields,
		"confidence_scores":       result.ConfidenceScores,
		"missing_required_fields": validator.MissingRequired(result.Fields),
		"form_status":             validator.FormStatus(result.Fields),
		"completion_percentage":   validator.CompletionPercentage(result.Fields),
	}, "", "  ")
	if err != nil {
		logger.Error("encoding result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// Package ocr extracts text from uploaded intake documents with the Gemini
// vision API.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
)

type Config struct {
	APIKey  string
	BaseURL string        // default https://generativelanguage.googleapis.com/v1beta
	Model   string        // e.g., "gemini-2.0-flash-exp"
	Timeout time.Duration // http client timeout
}

// Page is one page of extracted text. Vision output carries no layout
// blocks, so a page is just its number and text.
type Page struct {
	Number int    `json:"page_num"`
	Text   string `json:"text"`
}

type Result struct {
	Text       string
	Pages      []Page
	Confidence float64
	Method     string // "gemini-vision"
	Duration   time.Duration
}

type Extractor struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash-exp"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// SupportedFileType reports whether Extract can handle the given type.
func SupportedFileType(fileType string) bool {
	switch strings.ToLower(fileType) {
	case "pdf", "jpg", "jpeg", "png":
		return true
	}
	return false
}

// Extract runs OCR over a document on disk. fileType selects the mime type;
// unsupported types fail with common.ErrUnsupportedFileType.
func (e *Extractor) Extract(ctx context.Context, path, fileType string) (Result, error) {
	start := time.Now()
	ft := strings.ToLower(fileType)
	e.log.Debug("ocr.extract.start", "path", path, "file_type", ft)

	if !SupportedFileType(ft) {
		e.log.Error("ocr.extract.unsupported_type", "file_type", ft)
		return Result{}, fmt.Errorf("%w: %q", common.ErrUnsupportedFileType, fileType)
	}

	text, err := e.generateText(ctx, path, mimeTypeFor(ft))
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Text:       text,
		Pages:      splitPages(text),
		Confidence: heuristicConfidence(text),
		Method:     "gemini-vision",
		Duration:   time.Since(start),
	}
	e.log.Info("ocr.extract.ok",
		"path", path,
		"file_type", ft,
		"text_len", len(res.Text),
		"pages", len(res.Pages),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// splitPages cuts the model output on form feeds, the page separator the
// prompt asks for. Single-page output stays a single page.
func splitPages(text string) []Page {
	parts := strings.Split(text, "\f")
	pages := make([]Page, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" && len(parts) > 1 {
			continue
		}
		pages = append(pages, Page{Number: len(pages) + 1, Text: p})
	}
	if len(pages) == 0 {
		pages = []Page{{Number: 1, Text: strings.TrimSpace(text)}}
	}
	return pages
}

// Combine joins per-document results into one group result: texts
// concatenated in document order, pages renumbered across the group, and
// the confidence averaged.
func Combine(results []Result) Result {
	var (
		texts    []string
		pages    []Page
		confSum  float64
		duration time.Duration
	)
	for _, r := range results {
		texts = append(texts, r.Text)
		for _, p := range r.Pages {
			pages = append(pages, Page{Number: len(pages) + 1, Text: p.Text})
		}
		confSum += r.Confidence
		duration += r.Duration
	}
	combined := Result{
		Text:     strings.Join(texts, "\n\n"),
		Pages:    pages,
		Method:   "gemini-vision",
		Duration: duration,
	}
	if len(results) > 0 {
		combined.Confidence = confSum / float64(len(results))
	}
	return combined
}

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/llm"
)

// ExtractFields implements llm.FieldExtractor using text-only
// chat/completions with a JSON response format.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.ExtractionResult, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"document_id", req.DocumentID,
		"text_len", len(req.OCRText),
		"has_patient_context", len(req.PatientContext) > 0,
	)

	envelope := llm.BuildEnvelopeSchema()
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt(c.cat)},
			{"role": "user", "content": llm.BuildUserPrompt(req) + "\n\nReturn ONLY JSON that matches the provided schema."},
			{"role": "system", "content": "JSON Schema:\n" + mustJSON(envelope)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, _, err := common.PostJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.log)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractionResult{}, nil, err
	}

	content, err := chatContent(raw)
	if err != nil {
		c.log.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.ExtractionResult{}, raw, err
	}
	rawContent := []byte(strings.TrimSpace(content))

	// Validate strictly first; sanitize the envelope and re-validate when
	// the model colored outside the lines.
	if err := llm.ValidateJSONAgainstSchema(envelope, rawContent); err != nil {
		cleaned, dropped, sErr := llm.SanitizeEnvelope(rawContent)
		if sErr != nil {
			c.log.Error("llm.extract.sanitize_failed",
				"req_id", rid, "error", sErr,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.ExtractionResult{}, rawContent, fmt.Errorf("sanitize failed: %w", sErr)
		}
		if vErr := llm.ValidateJSONAgainstSchema(envelope, cleaned); vErr != nil {
			c.log.Error("llm.extract.schema_validation_failed",
				"req_id", rid, "error", vErr, "content", string(rawContent),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return llm.ExtractionResult{}, rawContent, fmt.Errorf("schema validation failed: %w", vErr)
		}
		c.log.Warn("llm.extract.sanitize_applied",
			"req_id", rid, "dropped", dropped,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		rawContent = cleaned
	}

	out, err := llm.ParseExtraction(rawContent)
	if err != nil {
		c.log.Error("llm.extract.parse_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return out, rawContent, err
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"document_id", req.DocumentID,
		"fields", len(out.ConfidenceScores),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, rawContent, nil
}

// SuggestFieldValue implements llm.FieldSuggester with a single-field
// prompt and the fixed VALUE/CONFIDENCE/REASONING response format.
func (c *Client) SuggestFieldValue(ctx context.Context, fieldPath, ocrText string) (llm.Suggestion, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.suggest.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"field_path", fieldPath,
		"text_len", len(ocrText),
	)

	prompt := llm.BuildSuggestionPrompt(fieldPath, c.cat.Describe(fieldPath), ocrText)
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages": []map[string]any{
			{"role": "system", "content": "You are an expert at extracting specific information from medical documents."},
			{"role": "user", "content": prompt},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, _, err := common.PostJSON(ctx, c.http, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.log)
	if err != nil {
		c.log.Error("llm.suggest.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Suggestion{FieldPath: fieldPath}, err
	}

	content, err := chatContent(raw)
	if err != nil {
		c.log.Error("llm.suggest.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.Suggestion{FieldPath: fieldPath}, err
	}

	s := llm.ParseSuggestion(fieldPath, content)
	c.log.Info("llm.suggest.ok",
		"req_id", rid,
		"field_path", fieldPath,
		"found", s.Value != "",
		"confidence", s.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return s, nil
}

func chatContent(raw []byte) (string, error) {
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return cc.Choices[0].Message.Content, nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

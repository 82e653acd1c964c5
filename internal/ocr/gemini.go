package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
)

const ocrPrompt = `Extract all text from this document, including handwritten text.
Format it exactly as it appears, preserving line breaks, paragraphs, and text
structure. If there are tables, preserve the table structure. Separate pages
with a form feed character. Return ONLY the extracted text without any
additional commentary.`

// generateText sends the file inline to the generateContent endpoint and
// concatenates the text parts of the first candidate.
func (e *Extractor) generateText(ctx context.Context, path, mimeType string) (string, error) {
	data, err := readAsBase64(path)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	body := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": ocrPrompt},
					{"inline_data": map[string]any{
						"mime_type": mimeType,
						"data":      data,
					}},
				},
			},
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent",
		strings.TrimRight(e.cfg.BaseURL, "/"), e.cfg.Model)
	raw, _, err := common.PostJSON(ctx, e.http, endpoint, body, map[string]string{
		"x-goog-api-key": e.cfg.APIKey,
	}, e.log)
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("empty text in gemini response")
	}
	return text, nil
}

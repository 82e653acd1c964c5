package llm

import "context"

// ExtractionResult is the normalized shape we want from the model: a nested
// TRF fragment plus a confidence per dotted field path, both keyed the way
// the schema package addresses them.
type ExtractionResult struct {
	Fields           map[string]any     `json:"extracted_fields"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
}

type ExtractRequest struct {
	OCRText    string
	DocumentID string

	// PatientContext carries the existing patient record when the caller
	// has one, so the model reconciles against it instead of re-guessing
	// identity fields.
	PatientContext map[string]any
}

// FieldExtractor is the interface the pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (ExtractionResult, []byte /*rawJSON*/, error)
}

// Suggestion is a single-field value proposal. Value is empty when the
// model could not find the field in the text.
type Suggestion struct {
	FieldPath  string  `json:"field_path"`
	Value      string  `json:"suggested_value"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// FieldSuggester proposes a value for one schema field from OCR text.
type FieldSuggester interface {
	SuggestFieldValue(ctx context.Context, fieldPath, ocrText string) (Suggestion, error)
}

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/entity"
	"github.com/4gd-ai/genesilico-ocr/internal/llm"
	"github.com/4gd-ai/genesilico-ocr/internal/schema"
)

// UpdateField sets one field on a stored record and recomputes the
// validation summary. A nil confidence marks the field fully confident.
func (p *Processor) UpdateField(ctx context.Context, recordID uuid.UUID, fieldPath, value string, confidence *float64) (*entity.TRFRecord, error) {
	if fieldPath == "" {
		return nil, common.WrapError(common.ErrInvalidInput, "field path is required")
	}
	if err := p.validator.ValidateFieldValue(fieldPath, value); err != nil {
		return nil, common.WrapError(common.ErrValidation, err.Error())
	}

	rec, err := p.trf.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	data := map[string]any{}
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return nil, common.WrapError(common.ErrInternal, err.Error())
		}
	}
	scores := map[string]float64{}
	if len(rec.ConfidenceScores) > 0 {
		if err := json.Unmarshal(rec.ConfidenceScores, &scores); err != nil {
			return nil, common.WrapError(common.ErrInternal, err.Error())
		}
	}

	schema.Set(data, fieldPath, value)
	p.norm.Normalize(data)
	score := 1.0
	if confidence != nil {
		if *confidence < 0 || *confidence > 1 {
			return nil, common.WrapError(common.ErrInvalidInput, "confidence must be between 0 and 1")
		}
		score = *confidence
	}
	scores[fieldPath] = score

	patientID := ""
	if rec.PatientID != nil {
		patientID = *rec.PatientID
	}
	updated, err := p.buildRecord(rec.DocumentID, patientID, data, scores, p.existingPatientData(ctx, patientID))
	if err != nil {
		return nil, err
	}
	updated.ID = rec.ID
	updated.CreatedAt = rec.CreatedAt
	if err := p.trf.Update(ctx, updated); err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.field.updated", "trf_id", rec.ID, "field", fieldPath,
		"form_status", updated.FormStatus)
	return updated, nil
}

// FieldGuidance describes what is still needed to complete a record.
type FieldGuidance struct {
	FieldPath   string `json:"field_path"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// CompletionGuidance lists the missing required fields and the
// conditionally required fields currently violated, with their
// human-readable descriptions.
func (p *Processor) CompletionGuidance(ctx context.Context, recordID uuid.UUID) ([]FieldGuidance, []string, error) {
	rec, err := p.trf.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	data := map[string]any{}
	if len(rec.Data) > 0 {
		if err := json.Unmarshal(rec.Data, &data); err != nil {
			return nil, nil, common.WrapError(common.ErrInternal, err.Error())
		}
	}

	missing := p.validator.MissingRequired(data)
	guidance := make([]FieldGuidance, 0, len(missing))
	for _, path := range missing {
		guidance = append(guidance, FieldGuidance{
			FieldPath:   path,
			Description: p.cat.Describe(path),
			Required:    true,
		})
	}
	return guidance, p.validator.ConditionalViolations(data), nil
}

// SuggestField asks the model to propose a value for one field from the
// document's OCR text.
func (p *Processor) SuggestField(ctx context.Context, recordID uuid.UUID, fieldPath string) (llm.Suggestion, error) {
	if p.suggester == nil {
		return llm.Suggestion{}, common.WrapError(common.ErrInvalidInput, "no suggestion model configured")
	}
	rec, err := p.trf.GetByID(ctx, recordID)
	if err != nil {
		return llm.Suggestion{}, err
	}
	ocrRes, err := p.ocrResults.GetByDocumentID(ctx, rec.DocumentID)
	if err != nil {
		return llm.Suggestion{}, fmt.Errorf("ocr text for record %s: %w", recordID, err)
	}
	return p.suggester.SuggestFieldValue(ctx, fieldPath, ocrRes.Text)
}

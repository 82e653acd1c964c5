package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TRFRecord represents one extracted requisition form snapshot together
// with its validation summary.
type TRFRecord struct {
	ID                    uuid.UUID       `json:"id"`
	DocumentID            uuid.UUID       `json:"document_id"`
	PatientID             *string         `json:"patient_id,omitempty"`
	Data                  json.RawMessage `json:"data"`
	ConfidenceScores      json.RawMessage `json:"confidence_scores,omitempty"`
	ExtractionConfidence  float64         `json:"extraction_confidence"`
	MissingRequiredFields []string        `json:"missing_required_fields"`
	LowConfidenceFields   []string        `json:"low_confidence_fields"`
	Conflicts             []string        `json:"conflicts,omitempty"`
	FormStatus            string          `json:"form_status"`
	CompletionPercentage  float64         `json:"completion_percentage"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// PatientReport represents the per-patient report row kept up to date
// when processing runs with the save-to-reports option.
type PatientReport struct {
	ID         uuid.UUID       `json:"id"`
	PatientID  string          `json:"patient_id"`
	DocumentID uuid.UUID       `json:"document_id"`
	Data       json.RawMessage `json:"data"`
	FormStatus string          `json:"form_status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OCRResult represents the text recovered from one document or group.
type OCRResult struct {
	ID             uuid.UUID       `json:"id"`
	DocumentID     uuid.UUID       `json:"document_id"`
	Text           string          `json:"text"`
	Pages          json.RawMessage `json:"pages,omitempty"`
	Confidence     float64         `json:"confidence"`
	Method         string          `json:"method"`
	ProcessingTime float64         `json:"processing_time"`
	CreatedAt      time.Time       `json:"created_at"`
}

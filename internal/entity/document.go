package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document processing statuses, in pipeline order.
const (
	StatusUploaded             = "uploaded"
	StatusOCRProcessing        = "ocr_processing"
	StatusOCRProcessed         = "ocr_processed"
	StatusExtractionProcessing = "extraction_processing"
	StatusProcessed            = "processed"
	StatusFailed               = "failed"
)

// Document represents an uploaded requisition form file.
type Document struct {
	ID          uuid.UUID  `json:"id"`
	FileName    string     `json:"file_name"`
	FilePath    string     `json:"file_path"`
	FileSize    int64      `json:"file_size"`
	FileType    string     `json:"file_type"`
	Status      string     `json:"status"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
	OCRResultID *uuid.UUID `json:"ocr_result_id,omitempty"`
	TRFDataID   *uuid.UUID `json:"trf_data_id,omitempty"`
	Error       *string    `json:"error,omitempty"`
	UploadTime  time.Time  `json:"upload_time"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DocumentGroup represents a set of page images uploaded together and
// processed as one logical form.
type DocumentGroup struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	DocumentIDs []uuid.UUID `json:"document_ids"`
	Status      string      `json:"status"`
	OCRResultID *uuid.UUID  `json:"ocr_result_id,omitempty"`
	TRFDataID   *uuid.UUID  `json:"trf_data_id,omitempty"`
	Error       *string     `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Progress maps a status to a 0.0..1.0 completion fraction for polling
// clients.
func Progress(status string) float64 {
	switch status {
	case StatusUploaded:
		return 0.0
	case StatusOCRProcessing:
		return 0.25
	case StatusOCRProcessed:
		return 0.5
	case StatusExtractionProcessing:
		return 0.75
	case StatusProcessed:
		return 1.0
	case StatusFailed:
		return 0.0
	default:
		return 0.0
	}
}

package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/4gd-ai/genesilico-ocr/internal/pipeline"
)

// Job asks for one document or one document group to be processed.
type Job struct {
	TargetID    uuid.UUID
	Group       bool
	Options     pipeline.ProcessOptions
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

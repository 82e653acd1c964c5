package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/pipeline"
)

type ProcessorQueue struct {
	proc    *pipeline.Processor
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(proc *pipeline.Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					var err error
					if job.Group {
						_, err = q.proc.ProcessGroup(ctx, job.TargetID, job.Options)
					} else {
						_, err = q.proc.ProcessDocument(ctx, job.TargetID, job.Options)
					}
					cancel()

					switch {
					case errors.Is(err, common.ErrAlreadyProcessed):
						q.logger.Info("already processed, skipping", "worker_id", workerID, "target_id", job.TargetID)
					case err != nil:
						q.logger.Error("processing failed", "worker_id", workerID, "target_id", job.TargetID, "error", err)
					default:
						q.logger.Info("processed successfully", "worker_id", workerID, "target_id", job.TargetID)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "target_id", job.TargetID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued for processing", "target_id", job.TargetID, "group", job.Group)
	default:
		q.logger.Warn("queue full, applying backpressure", "target_id", job.TargetID)
		q.ch <- job
	}
	return nil
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/entity"
)

type OCRResultRepository interface {
	Create(ctx context.Context, res *entity.OCRResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.OCRResult, error)
	GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*entity.OCRResult, error)
}

type ocrResultRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewOCRResultRepository(pool *pgxpool.Pool, log *slog.Logger) OCRResultRepository {
	return &ocrResultRepo{pool: pool, log: log}
}

const ocrCols = `id, document_id, text, pages, confidence, method, processing_time, created_at`

func scanOCRResult(row pgx.Row) (*entity.OCRResult, error) {
	var res entity.OCRResult
	err := row.Scan(&res.ID, &res.DocumentID, &res.Text, &res.Pages, &res.Confidence,
		&res.Method, &res.ProcessingTime, &res.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return &res, err
}

func (r *ocrResultRepo) Create(ctx context.Context, res *entity.OCRResult) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.CreatedAt = time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO ocr_results (id, document_id, text, pages, confidence, method, processing_time, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		res.ID, res.DocumentID, res.Text, res.Pages, res.Confidence,
		res.Method, res.ProcessingTime, res.CreatedAt)
	if err != nil {
		r.log.Error("ocr result create failed", "document_id", res.DocumentID, "err", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	r.log.Info("ocr result stored", "ocr_result_id", res.ID, "document_id", res.DocumentID,
		"confidence", res.Confidence)
	return nil
}

func (r *ocrResultRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.OCRResult, error) {
	return scanOCRResult(r.pool.QueryRow(ctx, `SELECT `+ocrCols+` FROM ocr_results WHERE id = $1`, id))
}

func (r *ocrResultRepo) GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*entity.OCRResult, error) {
	return scanOCRResult(r.pool.QueryRow(ctx, `
		SELECT `+ocrCols+` FROM ocr_results WHERE document_id = $1
		ORDER BY created_at DESC LIMIT 1`, documentID))
}

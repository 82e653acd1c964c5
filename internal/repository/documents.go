package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/entity"
)

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error
	SetResults(ctx context.Context, id uuid.UUID, ocrResultID, trfDataID *uuid.UUID) error
	List(ctx context.Context, status string, limit, offset int) ([]*entity.Document, error)
}

type DocumentGroupRepository interface {
	Create(ctx context.Context, group *entity.DocumentGroup) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.DocumentGroup, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error
	SetResults(ctx context.Context, id uuid.UUID, ocrResultID, trfDataID *uuid.UUID) error
	List(ctx context.Context, status string, limit, offset int) ([]*entity.DocumentGroup, error)
}

type documentRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewDocumentRepository(pool *pgxpool.Pool, log *slog.Logger) DocumentRepository {
	return &documentRepo{pool: pool, log: log}
}

const docCols = `id, file_name, file_path, file_size, file_type, status,
	group_id, ocr_result_id, trf_data_id, error, upload_time, updated_at`

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var d entity.Document
	err := row.Scan(&d.ID, &d.FileName, &d.FilePath, &d.FileSize, &d.FileType, &d.Status,
		&d.GroupID, &d.OCRResultID, &d.TRFDataID, &d.Error, &d.UploadTime, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return &d, err
}

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now()
	doc.UploadTime = now
	doc.UpdatedAt = now
	_, err := r.pool.Exec(ctx, `
		INSERT INTO documents (id, file_name, file_path, file_size, file_type, status,
			group_id, upload_time, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		doc.ID, doc.FileName, doc.FilePath, doc.FileSize, doc.FileType, doc.Status,
		doc.GroupID, doc.UploadTime, doc.UpdatedAt)
	if err != nil {
		r.log.Error("document create failed", "document_id", doc.ID, "err", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	r.log.Info("document created", "document_id", doc.ID, "file_name", doc.FileName)
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return scanDocument(r.pool.QueryRow(ctx, `SELECT `+docCols+` FROM documents WHERE id = $1`, id))
}

func (r *documentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE documents SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		r.log.Error("document status update failed", "document_id", id, "err", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	r.log.Info("document status updated", "document_id", id, "status", status)
	return nil
}

func (r *documentRepo) SetResults(ctx context.Context, id uuid.UUID, ocrResultID, trfDataID *uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE documents SET
			ocr_result_id = COALESCE($2, ocr_result_id),
			trf_data_id = COALESCE($3, trf_data_id),
			updated_at = now()
		WHERE id = $1`,
		id, ocrResultID, trfDataID)
	if err != nil {
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	return nil
}

func (r *documentRepo) List(ctx context.Context, status string, limit, offset int) ([]*entity.Document, error) {
	q := `SELECT ` + docCols + ` FROM documents`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY upload_time DESC`
	q += argPair(len(args), &args, limit, offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()
	var docs []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

type documentGroupRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewDocumentGroupRepository(pool *pgxpool.Pool, log *slog.Logger) DocumentGroupRepository {
	return &documentGroupRepo{pool: pool, log: log}
}

const groupCols = `id, name, document_ids, status, ocr_result_id, trf_data_id,
	error, created_at, updated_at`

func scanGroup(row pgx.Row) (*entity.DocumentGroup, error) {
	var g entity.DocumentGroup
	var ids []byte
	err := row.Scan(&g.ID, &g.Name, &ids, &g.Status, &g.OCRResultID, &g.TRFDataID,
		&g.Error, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		if err := json.Unmarshal(ids, &g.DocumentIDs); err != nil {
			return nil, err
		}
	}
	return &g, nil
}

func (r *documentGroupRepo) Create(ctx context.Context, group *entity.DocumentGroup) error {
	if group.ID == uuid.Nil {
		group.ID = uuid.New()
	}
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now
	ids, err := json.Marshal(group.DocumentIDs)
	if err != nil {
		return common.WrapError(common.ErrInternal, err.Error())
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO document_groups (id, name, document_ids, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		group.ID, group.Name, ids, group.Status, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		r.log.Error("document group create failed", "group_id", group.ID, "err", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	r.log.Info("document group created", "group_id", group.ID, "documents", len(group.DocumentIDs))
	return nil
}

func (r *documentGroupRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.DocumentGroup, error) {
	return scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupCols+` FROM document_groups WHERE id = $1`, id))
}

func (r *documentGroupRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errMsg *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE document_groups SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, status, errMsg)
	if err != nil {
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *documentGroupRepo) SetResults(ctx context.Context, id uuid.UUID, ocrResultID, trfDataID *uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE document_groups SET
			ocr_result_id = COALESCE($2, ocr_result_id),
			trf_data_id = COALESCE($3, trf_data_id),
			updated_at = now()
		WHERE id = $1`,
		id, ocrResultID, trfDataID)
	if err != nil {
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	return nil
}

func (r *documentGroupRepo) List(ctx context.Context, status string, limit, offset int) ([]*entity.DocumentGroup, error) {
	q := `SELECT ` + groupCols + ` FROM document_groups`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	q += argPair(len(args), &args, limit, offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()
	var groups []*entity.DocumentGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

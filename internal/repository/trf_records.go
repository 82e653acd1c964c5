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

type TRFRecordRepository interface {
	Create(ctx context.Context, rec *entity.TRFRecord) error
	Update(ctx context.Context, rec *entity.TRFRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.TRFRecord, error)
	GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*entity.TRFRecord, error)
	List(ctx context.Context, formStatus string, limit, offset int) ([]*entity.TRFRecord, error)
}

type PatientReportRepository interface {
	Upsert(ctx context.Context, rep *entity.PatientReport) error
	GetByPatientID(ctx context.Context, patientID string) (*entity.PatientReport, error)
}

type trfRecordRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTRFRecordRepository(pool *pgxpool.Pool, log *slog.Logger) TRFRecordRepository {
	return &trfRecordRepo{pool: pool, log: log}
}

const trfCols = `id, document_id, patient_id, data, confidence_scores,
	extraction_confidence, missing_required_fields, low_confidence_fields,
	conflicts, form_status, completion_percentage, created_at, updated_at`

func scanTRFRecord(row pgx.Row) (*entity.TRFRecord, error) {
	var rec entity.TRFRecord
	var missing, low, conflicts []byte
	err := row.Scan(&rec.ID, &rec.DocumentID, &rec.PatientID, &rec.Data, &rec.ConfidenceScores,
		&rec.ExtractionConfidence, &missing, &low,
		&conflicts, &rec.FormStatus, &rec.CompletionPercentage, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	for _, pair := range []struct {
		raw []byte
		dst *[]string
	}{
		{missing, &rec.MissingRequiredFields},
		{low, &rec.LowConfidenceFields},
		{conflicts, &rec.Conflicts},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dst); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	return json.Marshal(values)
}

func (r *trfRecordRepo) Create(ctx context.Context, rec *entity.TRFRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	missing, err := marshalStrings(rec.MissingRequiredFields)
	if err != nil {
		return common.WrapError(common.ErrInternal, err.Error())
	}
	low, err := marshalStrings(rec.LowConfidenceFields)
	if err != nil {
		return common.WrapError(common.ErrInternal, err.Error())
	}
	conflicts, err := marshalStrings(rec.Conflicts)
	if err != nil {
		return common.WrapError(common.ErrInternal, err.Error())
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO trf_records (id, document_id, patient_id, data, confidence_scores,
			extraction_confidence, missing_required_fields, low_confidence_fields,
			conflicts, form_status, completion_percentage, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rec.ID, rec.DocumentID, rec.PatientID, rec.Data, rec.ConfidenceScores,
		rec.ExtractionConfidence, missing, low,
		conflicts, rec.FormStatus, rec.CompletionPercentage, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		r.log.Error("trf record create failed", "document_id", rec.DocumentID, "err", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	r.log.Info("trf record stored", "trf_id", rec.ID, "document_id", rec.DocumentID,
		"form_status", rec.FormStatus)
	return nil
}

func (r *trfRecordRepo) Update(ctx context.Context, rec *entity.TRFRecord) error {
	rec.UpdatedAt = time.Now()
	missing, err := marshalStrings(rec.MissingRequiredFields)
	if err != nil {
		return common.WrapError(common.ErrInternal, err.Error())
	}
	low, err := marshalStrings(rec.LowConfidenceFields)
	if err != nil {
		return common.WrapError(common.ErrInternal, err.Error())
	}
	conflicts, err := marshalStrings(rec.Conflicts)
	if err != nil {
		return common.WrapError(common.ErrInternal, err.Error())
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE trf_records SET patient_id = $2, data = $3, confidence_scores = $4,
			extraction_confidence = $5, missing_required_fields = $6,
			low_confidence_fields = $7, conflicts = $8, form_status = $9,
			completion_percentage = $10, updated_at = $11
		WHERE id = $1`,
		rec.ID, rec.PatientID, rec.Data, rec.ConfidenceScores,
		rec.ExtractionConfidence, missing,
		low, conflicts, rec.FormStatus,
		rec.CompletionPercentage, rec.UpdatedAt)
	if err != nil {
		r.log.Error("trf record update failed", "trf_id", rec.ID, "err", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *trfRecordRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.TRFRecord, error) {
	return scanTRFRecord(r.pool.QueryRow(ctx, `SELECT `+trfCols+` FROM trf_records WHERE id = $1`, id))
}

func (r *trfRecordRepo) GetByDocumentID(ctx context.Context, documentID uuid.UUID) (*entity.TRFRecord, error) {
	return scanTRFRecord(r.pool.QueryRow(ctx, `
		SELECT `+trfCols+` FROM trf_records WHERE document_id = $1
		ORDER BY updated_at DESC LIMIT 1`, documentID))
}

func (r *trfRecordRepo) List(ctx context.Context, formStatus string, limit, offset int) ([]*entity.TRFRecord, error) {
	q := `SELECT ` + trfCols + ` FROM trf_records`
	args := []any{}
	if formStatus != "" {
		q += ` WHERE form_status = $1`
		args = append(args, formStatus)
	}
	q += ` ORDER BY updated_at DESC`
	q += argPair(len(args), &args, limit, offset)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()
	var recs []*entity.TRFRecord
	for rows.Next() {
		rec, err := scanTRFRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type patientReportRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewPatientReportRepository(pool *pgxpool.Pool, log *slog.Logger) PatientReportRepository {
	return &patientReportRepo{pool: pool, log: log}
}

func (r *patientReportRepo) Upsert(ctx context.Context, rep *entity.PatientReport) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	now := time.Now()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patient_reports (id, patient_id, document_id, data, form_status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$6)
		ON CONFLICT (patient_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			data = EXCLUDED.data,
			form_status = EXCLUDED.form_status,
			updated_at = EXCLUDED.updated_at`,
		rep.ID, rep.PatientID, rep.DocumentID, rep.Data, rep.FormStatus, now)
	if err != nil {
		r.log.Error("patient report upsert failed", "patient_id", rep.PatientID, "err", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	r.log.Info("patient report saved", "patient_id", rep.PatientID, "document_id", rep.DocumentID)
	return nil
}

func (r *patientReportRepo) GetByPatientID(ctx context.Context, patientID string) (*entity.PatientReport, error) {
	var rep entity.PatientReport
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, document_id, data, form_status, created_at, updated_at
		FROM patient_reports WHERE patient_id = $1`, patientID).
		Scan(&rep.ID, &rep.PatientID, &rep.DocumentID, &rep.Data, &rep.FormStatus,
			&rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

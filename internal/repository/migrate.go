package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		file_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		file_type TEXT NOT NULL,
		status TEXT NOT NULL,
		group_id UUID,
		ocr_result_id UUID,
		trf_data_id UUID,
		error TEXT,
		upload_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_group ON documents (group_id)`,
	`CREATE TABLE IF NOT EXISTS document_groups (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		document_ids JSONB NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		ocr_result_id UUID,
		trf_data_id UUID,
		error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS ocr_results (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL,
		text TEXT NOT NULL,
		pages JSONB,
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		method TEXT NOT NULL DEFAULT '',
		processing_time DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ocr_results_document ON ocr_results (document_id)`,
	`CREATE TABLE IF NOT EXISTS trf_records (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL,
		patient_id TEXT,
		data JSONB NOT NULL DEFAULT '{}',
		confidence_scores JSONB,
		extraction_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		missing_required_fields JSONB NOT NULL DEFAULT '[]',
		low_confidence_fields JSONB NOT NULL DEFAULT '[]',
		conflicts JSONB NOT NULL DEFAULT '[]',
		form_status TEXT NOT NULL DEFAULT 'incomplete',
		completion_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trf_records_document ON trf_records (document_id)`,
	`CREATE TABLE IF NOT EXISTS patient_reports (
		id UUID PRIMARY KEY,
		patient_id TEXT NOT NULL UNIQUE,
		document_id UUID NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		form_status TEXT NOT NULL DEFAULT 'incomplete',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate applies the schema statements in order. Statements are
// idempotent so the call is safe on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	for _, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			logger.Error("migration failed", "error", err)
			return err
		}
	}
	logger.Info("database schema up to date")
	return nil
}

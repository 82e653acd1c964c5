package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/entity"
	"github.com/4gd-ai/genesilico-ocr/internal/llm"
	"github.com/4gd-ai/genesilico-ocr/internal/ocr"
	"github.com/4gd-ai/genesilico-ocr/internal/repository"
	"github.com/4gd-ai/genesilico-ocr/internal/schema"
)

// lowConfidenceThreshold splits extracted fields into high and low
// confidence buckets. A score of exactly zero means "not found" and is
// counted in neither bucket.
const lowConfidenceThreshold = 0.7

// TextExtractor is the OCR surface the pipeline depends on.
type TextExtractor interface {
	Extract(ctx context.Context, path, fileType string) (ocr.Result, error)
}

// Processor coordinates OCR, field extraction, and schema reconciliation
// for one document or one document group.
type Processor struct {
	logger    *slog.Logger
	ocr       TextExtractor
	extractor llm.FieldExtractor
	fallback  *llm.PatternExtractor
	suggester llm.FieldSuggester

	docs       repository.DocumentRepository
	groups     repository.DocumentGroupRepository
	ocrResults repository.OCRResultRepository
	trf        repository.TRFRecordRepository
	reports    repository.PatientReportRepository

	cat       *schema.Catalogue
	norm      *schema.Normalizer
	validator *schema.Validator
}

func NewProcessor(
	logger *slog.Logger,
	textExtractor TextExtractor,
	fieldExtractor llm.FieldExtractor,
	suggester llm.FieldSuggester,
	docs repository.DocumentRepository,
	groups repository.DocumentGroupRepository,
	ocrResults repository.OCRResultRepository,
	trf repository.TRFRecordRepository,
	reports repository.PatientReportRepository,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	cat := schema.DefaultCatalogue()
	return &Processor{
		logger:     logger,
		ocr:        textExtractor,
		extractor:  fieldExtractor,
		fallback:   llm.NewPatternExtractor(logger),
		suggester:  suggester,
		docs:       docs,
		groups:     groups,
		ocrResults: ocrResults,
		trf:        trf,
		reports:    reports,
		cat:        cat,
		norm:       schema.NewNormalizer(cat),
		validator:  schema.NewValidator(cat),
	}
}

// ProcessOptions controls one processing run.
type ProcessOptions struct {
	PatientID      string
	SaveToReports  bool
	ForceReprocess bool
}

// ProcessDocument runs the full OCR and extraction pipeline for one
// document. A document already in the processed state is returned as-is
// with ErrAlreadyProcessed unless ForceReprocess is set.
func (p *Processor) ProcessDocument(ctx context.Context, documentID uuid.UUID, opts ProcessOptions) (*entity.TRFRecord, error) {
	doc, err := p.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status == entity.StatusProcessed && !opts.ForceReprocess {
		rec, err := p.trf.GetByDocumentID(ctx, documentID)
		if err != nil {
			return nil, err
		}
		return rec, common.ErrAlreadyProcessed
	}

	ocrRes, err := p.runOCR(ctx, doc)
	if err != nil {
		p.failDocument(ctx, doc.ID, err)
		return nil, err
	}

	rec, err := p.runExtraction(ctx, doc.ID, documentID.String(), ocrRes.Text, opts)
	if err != nil {
		p.failDocument(ctx, doc.ID, err)
		return nil, err
	}

	if err := p.docs.SetResults(ctx, doc.ID, nil, &rec.ID); err != nil {
		return nil, err
	}
	if err := p.docs.UpdateStatus(ctx, doc.ID, entity.StatusProcessed, nil); err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.document.processed",
		"document_id", doc.ID,
		"form_status", rec.FormStatus,
		"extraction_confidence", rec.ExtractionConfidence,
	)
	return rec, nil
}

// runOCR advances the document through the OCR stages and persists the
// recovered text.
func (p *Processor) runOCR(ctx context.Context, doc *entity.Document) (ocr.Result, error) {
	if err := p.docs.UpdateStatus(ctx, doc.ID, entity.StatusOCRProcessing, nil); err != nil {
		return ocr.Result{}, err
	}

	res, err := p.ocr.Extract(ctx, doc.FilePath, doc.FileType)
	if err != nil {
		p.logger.Error("pipeline.ocr.failed", "document_id", doc.ID, "err", err)
		return ocr.Result{}, fmt.Errorf("ocr: %w", err)
	}

	stored, err := p.storeOCRResult(ctx, doc.ID, res)
	if err != nil {
		return ocr.Result{}, err
	}
	if err := p.docs.SetResults(ctx, doc.ID, &stored.ID, nil); err != nil {
		return ocr.Result{}, err
	}
	if err := p.docs.UpdateStatus(ctx, doc.ID, entity.StatusOCRProcessed, nil); err != nil {
		return ocr.Result{}, err
	}
	return res, nil
}

func (p *Processor) storeOCRResult(ctx context.Context, ownerID uuid.UUID, res ocr.Result) (*entity.OCRResult, error) {
	pages, err := json.Marshal(res.Pages)
	if err != nil {
		return nil, common.WrapError(common.ErrInternal, err.Error())
	}
	stored := &entity.OCRResult{
		DocumentID:     ownerID,
		Text:           res.Text,
		Pages:          pages,
		Confidence:     res.Confidence,
		Method:         res.Method,
		ProcessingTime: res.Duration.Seconds(),
	}
	if err := p.ocrResults.Create(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// runExtraction turns OCR text into a validated TRF record and persists
// it against ownerID (a document or group ID).
func (p *Processor) runExtraction(ctx context.Context, ownerID uuid.UUID, documentRef, ocrText string, opts ProcessOptions) (*entity.TRFRecord, error) {
	if err := p.docs.UpdateStatus(ctx, ownerID, entity.StatusExtractionProcessing, nil); err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	existing := p.existingPatientData(ctx, opts.PatientID)

	result, err := p.extractFields(ctx, llm.ExtractRequest{
		OCRText:        ocrText,
		DocumentID:     documentRef,
		PatientContext: existing,
	})
	if err != nil {
		return nil, err
	}

	// Merge into a copy of the existing patient record so fields the
	// extraction does not mention survive.
	data := map[string]any{}
	if existing != nil {
		if copied, ok := schema.DeepCopy(existing).(map[string]any); ok {
			data = copied
		}
	}
	schema.Merge(data, result.Fields)
	p.norm.Normalize(data)

	rec, err := p.buildRecord(ownerID, opts.PatientID, data, result.ConfidenceScores, existing)
	if err != nil {
		return nil, err
	}

	if prev, err := p.trf.GetByDocumentID(ctx, ownerID); err == nil {
		rec.ID = prev.ID
		rec.CreatedAt = prev.CreatedAt
		if err := p.trf.Update(ctx, rec); err != nil {
			return nil, err
		}
	} else if errors.Is(err, common.ErrNotFound) {
		if err := p.trf.Create(ctx, rec); err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}

	if opts.SaveToReports && opts.PatientID != "" {
		if err := p.saveReport(ctx, rec, opts.PatientID); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// extractFields calls the model, using pattern matching only when no
// model is configured or the model returns nothing usable. A model
// error fails the extraction outright.
func (p *Processor) extractFields(ctx context.Context, req llm.ExtractRequest) (llm.ExtractionResult, error) {
	if p.extractor != nil {
		result, _, err := p.extractor.ExtractFields(ctx, req)
		if err != nil {
			p.logger.Error("pipeline.extract.model_failed", "document_id", req.DocumentID, "err", err)
			return llm.ExtractionResult{}, common.WrapError(err, "field extraction failed")
		}
		if len(result.Fields) > 0 {
			return result, nil
		}
		p.logger.Warn("pipeline.extract.model_empty", "document_id", req.DocumentID)
	}
	result, _, err := p.fallback.ExtractFields(ctx, req)
	if err != nil {
		p.logger.Error("pipeline.extract.fallback_failed", "document_id", req.DocumentID, "err", err)
		return llm.ExtractionResult{Fields: map[string]any{}, ConfidenceScores: map[string]float64{}}, nil
	}
	return result, nil
}

// buildRecord computes the validation summary over normalized data and
// assembles the persistable record.
func (p *Processor) buildRecord(ownerID uuid.UUID, patientID string, data map[string]any, scores map[string]float64, existing map[string]any) (*entity.TRFRecord, error) {
	confidence, low := extractionStats(scores)

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, common.WrapError(common.ErrInternal, err.Error())
	}
	rawScores, err := json.Marshal(scores)
	if err != nil {
		return nil, common.WrapError(common.ErrInternal, err.Error())
	}

	missing := p.validator.MissingRequired(data)
	violations := p.validator.ConditionalViolations(data)
	conflicts := schema.DetectConflicts(data, existing)

	rec := &entity.TRFRecord{
		DocumentID:            ownerID,
		Data:                  raw,
		ConfidenceScores:      rawScores,
		ExtractionConfidence:  confidence,
		MissingRequiredFields: missing,
		LowConfidenceFields:   low,
		Conflicts:             append(conflicts, violations...),
		FormStatus:            p.validator.FormStatus(data),
		CompletionPercentage:  p.validator.CompletionPercentage(data),
	}
	if patientID != "" {
		rec.PatientID = &patientID
	}
	return rec, nil
}

func (p *Processor) saveReport(ctx context.Context, rec *entity.TRFRecord, patientID string) error {
	return p.reports.Upsert(ctx, &entity.PatientReport{
		PatientID:  patientID,
		DocumentID: rec.DocumentID,
		Data:       rec.Data,
		FormStatus: rec.FormStatus,
	})
}

// existingPatientData loads the saved report for a patient, when one
// exists, for conflict detection and model context.
func (p *Processor) existingPatientData(ctx context.Context, patientID string) map[string]any {
	if patientID == "" || p.reports == nil {
		return nil
	}
	rep, err := p.reports.GetByPatientID(ctx, patientID)
	if err != nil {
		return nil
	}
	var data map[string]any
	if err := json.Unmarshal(rep.Data, &data); err != nil {
		return nil
	}
	return data
}

func (p *Processor) failDocument(ctx context.Context, id uuid.UUID, cause error) {
	msg := cause.Error()
	if err := p.docs.UpdateStatus(ctx, id, entity.StatusFailed, &msg); err != nil {
		p.logger.Error("pipeline.document.fail_status", "document_id", id, "err", err)
	}
}

// extractionStats derives the overall extraction confidence (share of
// scored fields at or above the threshold) and the sorted list of
// low-confidence field paths.
func extractionStats(scores map[string]float64) (float64, []string) {
	if len(scores) == 0 {
		return 0, []string{}
	}
	high := 0
	low := make([]string, 0)
	for path, score := range scores {
		if score >= lowConfidenceThreshold {
			high++
		} else if score > 0 {
			low = append(low, path)
		}
	}
	sort.Strings(low)
	return float64(high) / float64(len(scores)), low
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/entity"
	"github.com/4gd-ai/genesilico-ocr/internal/ocr"
)

// ProcessGroup OCRs every page document in the group in upload order,
// combines the text, and runs a single extraction over the whole form.
// The combined OCR result and the TRF record are stored against the
// group ID.
func (p *Processor) ProcessGroup(ctx context.Context, groupID uuid.UUID, opts ProcessOptions) (*entity.TRFRecord, error) {
	group, err := p.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status == entity.StatusProcessed && !opts.ForceReprocess {
		rec, err := p.trf.GetByDocumentID(ctx, groupID)
		if err != nil {
			return nil, err
		}
		return rec, common.ErrAlreadyProcessed
	}
	if len(group.DocumentIDs) == 0 {
		return nil, common.WrapError(common.ErrInvalidInput, "document group is empty")
	}

	combined, err := p.groupOCR(ctx, group)
	if err != nil {
		p.failGroup(ctx, group, err)
		return nil, err
	}

	if err := p.groups.UpdateStatus(ctx, groupID, entity.StatusExtractionProcessing, nil); err != nil {
		return nil, err
	}
	rec, err := p.runExtraction(ctx, groupID, groupID.String(), combined.Text, opts)
	if err != nil {
		p.failGroup(ctx, group, err)
		return nil, err
	}

	if err := p.groups.SetResults(ctx, groupID, nil, &rec.ID); err != nil {
		return nil, err
	}
	if err := p.groups.UpdateStatus(ctx, groupID, entity.StatusProcessed, nil); err != nil {
		return nil, err
	}
	for _, docID := range group.DocumentIDs {
		if err := p.docs.UpdateStatus(ctx, docID, entity.StatusProcessed, nil); err != nil {
			p.logger.Warn("pipeline.group.page_status", "document_id", docID, "err", err)
		}
	}
	p.logger.Info("pipeline.group.processed",
		"group_id", groupID,
		"pages", len(group.DocumentIDs),
		"form_status", rec.FormStatus,
	)
	return rec, nil
}

// groupOCR extracts text page by page, in order, and stores the combined
// result under the group ID.
func (p *Processor) groupOCR(ctx context.Context, group *entity.DocumentGroup) (ocr.Result, error) {
	if err := p.groups.UpdateStatus(ctx, group.ID, entity.StatusOCRProcessing, nil); err != nil {
		return ocr.Result{}, err
	}

	results := make([]ocr.Result, 0, len(group.DocumentIDs))
	for _, docID := range group.DocumentIDs {
		doc, err := p.docs.GetByID(ctx, docID)
		if err != nil {
			return ocr.Result{}, fmt.Errorf("group page %s: %w", docID, err)
		}
		if err := p.docs.UpdateStatus(ctx, docID, entity.StatusOCRProcessing, nil); err != nil {
			return ocr.Result{}, err
		}
		res, err := p.ocr.Extract(ctx, doc.FilePath, doc.FileType)
		if err != nil {
			p.failDocument(ctx, docID, err)
			return ocr.Result{}, fmt.Errorf("group page %s: %w", docID, err)
		}
		if err := p.docs.UpdateStatus(ctx, docID, entity.StatusOCRProcessed, nil); err != nil {
			return ocr.Result{}, err
		}
		results = append(results, res)
	}

	combined := ocr.Combine(results)
	stored, err := p.storeOCRResult(ctx, group.ID, combined)
	if err != nil {
		return ocr.Result{}, err
	}
	if err := p.groups.SetResults(ctx, group.ID, &stored.ID, nil); err != nil {
		return ocr.Result{}, err
	}
	if err := p.groups.UpdateStatus(ctx, group.ID, entity.StatusOCRProcessed, nil); err != nil {
		return ocr.Result{}, err
	}
	return combined, nil
}

func (p *Processor) failGroup(ctx context.Context, group *entity.DocumentGroup, cause error) {
	msg := cause.Error()
	if err := p.groups.UpdateStatus(ctx, group.ID, entity.StatusFailed, &msg); err != nil {
		p.logger.Error("pipeline.group.fail_status", "group_id", group.ID, "err", err)
	}
}

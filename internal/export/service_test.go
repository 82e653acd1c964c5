package export

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/4gd-ai/genesilico-ocr/internal/entity"
)

type stubTRFRepo struct {
	recs []*entity.TRFRecord
}

func (s *stubTRFRepo) Create(context.Context, *entity.TRFRecord) error { return nil }
func (s *stubTRFRepo) Update(context.Context, *entity.TRFRecord) error { return nil }
func (s *stubTRFRepo) GetByID(context.Context, uuid.UUID) (*entity.TRFRecord, error) {
	return nil, nil
}
func (s *stubTRFRepo) GetByDocumentID(context.Context, uuid.UUID) (*entity.TRFRecord, error) {
	return nil, nil
}
func (s *stubTRFRepo) List(_ context.Context, formStatus string, _, _ int) ([]*entity.TRFRecord, error) {
	var out []*entity.TRFRecord
	for _, r := range s.recs {
		if formStatus == "" || r.FormStatus == formStatus {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestExportRecordsXLSX(t *testing.T) {
	patientID := "PT-31"
	data, err := json.Marshal(map[string]any{
		"patientID": "PT-31",
		"patientInformation": map[string]any{
			"patientName": map[string]any{"firstName": "Jane", "lastName": "Doe"},
		},
	})
	require.NoError(t, err)

	repo := &stubTRFRepo{recs: []*entity.TRFRecord{
		{
			ID:                    uuid.New(),
			DocumentID:            uuid.New(),
			PatientID:             &patientID,
			Data:                  data,
			ExtractionConfidence:  0.75,
			MissingRequiredFields: []string{"patientInformation.gender", "patientInformation.dob"},
			FormStatus:            "partial",
			CompletionPercentage:  0.43,
		},
	}}

	svc := NewService(repo, nil)
	out, err := svc.ExportRecordsXLSX(context.Background(), "", 50, 0)
	require.NoError(t, err)
	require.NotEmpty(t, out)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header := rows[0]
	assert.Equal(t, "Document ID", header[0])
	assert.Contains(t, header, "patientID")
	assert.Contains(t, header, "clinicalSummary.primaryDiagnosis")

	row := rows[1]
	assert.Equal(t, "PT-31", row[1])
	assert.Equal(t, "partial", row[2])
	assert.Equal(t, "43%", row[3])
	assert.Contains(t, row[5], "patientInformation.gender")
}

func TestExportRecordsXLSXEmpty(t *testing.T) {
	svc := NewService(&stubTRFRepo{}, nil)
	out, err := svc.ExportRecordsXLSX(context.Background(), "complete", 10, 0)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

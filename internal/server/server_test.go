package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/4gd-ai/genesilico-ocr/internal/async"
	"github.com/4gd-ai/genesilico-ocr/internal/common"
	"github.com/4gd-ai/genesilico-ocr/internal/entity"
	"github.com/4gd-ai/genesilico-ocr/internal/export"
	"github.com/4gd-ai/genesilico-ocr/internal/llm"
	"github.com/4gd-ai/genesilico-ocr/internal/ocr"
	"github.com/4gd-ai/genesilico-ocr/internal/pipeline"
)

type fakeStore struct {
	docs    map[uuid.UUID]*entity.Document
	groups  map[uuid.UUID]*entity.DocumentGroup
	ocrRes  map[uuid.UUID]*entity.OCRResult
	records map[uuid.UUID]*entity.TRFRecord
	reports map[string]*entity.PatientReport
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:    map[uuid.UUID]*entity.Document{},
		groups:  map[uuid.UUID]*entity.DocumentGroup{},
		ocrRes:  map[uuid.UUID]*entity.OCRResult{},
		records: map[uuid.UUID]*entity.TRFRecord{},
		reports: map[string]*entity.PatientReport{},
	}
}

type fakeDocs struct{ s *fakeStore }

func (r *fakeDocs) Create(_ context.Context, doc *entity.Document) error {
	r.s.docs[doc.ID] = doc
	return nil
}

func (r *fakeDocs) GetByID(_ context.Context, id uuid.UUID) (*entity.Document, error) {
	doc, ok := r.s.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return doc, nil
}

func (r *fakeDocs) UpdateStatus(_ context.Context, id uuid.UUID, status string, errMsg *string) error {
	doc, ok := r.s.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.Status = status
	doc.Error = errMsg
	return nil
}

func (r *fakeDocs) SetResults(_ context.Context, id uuid.UUID, ocrResultID, trfDataID *uuid.UUID) error {
	doc, ok := r.s.docs[id]
	if !ok {
		return common.ErrNotFound
	}
	if ocrResultID != nil {
		doc.OCRResultID = ocrResultID
	}
	if trfDataID != nil {
		doc.TRFDataID = trfDataID
	}
	return nil
}

func (r *fakeDocs) List(_ context.Context, status string, _, _ int) ([]*entity.Document, error) {
	var out []*entity.Document
	for _, d := range r.s.docs {
		if status == "" || d.Status == status {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeGroups struct{ s *fakeStore }

func (r *fakeGroups) Create(_ context.Context, g *entity.DocumentGroup) error {
	r.s.groups[g.ID] = g
	return nil
}

func (r *fakeGroups) GetByID(_ context.Context, id uuid.UUID) (*entity.DocumentGroup, error) {
	g, ok := r.s.groups[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return g, nil
}

func (r *fakeGroups) UpdateStatus(_ context.Context, id uuid.UUID, status string, errMsg *string) error {
	g, ok := r.s.groups[id]
	if !ok {
		return common.ErrNotFound
	}
	g.Status = status
	g.Error = errMsg
	return nil
}

func (r *fakeGroups) SetResults(_ context.Context, id uuid.UUID, ocrResultID, trfDataID *uuid.UUID) error {
	g, ok := r.s.groups[id]
	if !ok {
		return common.ErrNotFound
	}
	if ocrResultID != nil {
		g.OCRResultID = ocrResultID
	}
	if trfDataID != nil {
		g.TRFDataID = trfDataID
	}
	return nil
}

func (r *fakeGroups) List(_ context.Context, status string, _, _ int) ([]*entity.DocumentGroup, error) {
	var out []*entity.DocumentGroup
	for _, g := range r.s.groups {
		if status == "" || g.Status == status {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeOCRResults struct{ s *fakeStore }

func (r *fakeOCRResults) Create(_ context.Context, res *entity.OCRResult) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	r.s.ocrRes[res.ID] = res
	return nil
}

func (r *fakeOCRResults) GetByID(_ context.Context, id uuid.UUID) (*entity.OCRResult, error) {
	res, ok := r.s.ocrRes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return res, nil
}

func (r *fakeOCRResults) GetByDocumentID(_ context.Context, documentID uuid.UUID) (*entity.OCRResult, error) {
	for _, res := range r.s.ocrRes {
		if res.DocumentID == documentID {
			return res, nil
		}
	}
	return nil, common.ErrNotFound
}

type fakeTRF struct{ s *fakeStore }

func (r *fakeTRF) Create(_ context.Context, rec *entity.TRFRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	r.s.records[rec.ID] = rec
	return nil
}

func (r *fakeTRF) Update(_ context.Context, rec *entity.TRFRecord) error {
	if _, ok := r.s.records[rec.ID]; !ok {
		return common.ErrNotFound
	}
	r.s.records[rec.ID] = rec
	return nil
}

func (r *fakeTRF) GetByID(_ context.Context, id uuid.UUID) (*entity.TRFRecord, error) {
	rec, ok := r.s.records[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

func (r *fakeTRF) GetByDocumentID(_ context.Context, documentID uuid.UUID) (*entity.TRFRecord, error) {
	for _, rec := range r.s.records {
		if rec.DocumentID == documentID {
			return rec, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeTRF) List(_ context.Context, formStatus string, _, _ int) ([]*entity.TRFRecord, error) {
	var out []*entity.TRFRecord
	for _, rec := range r.s.records {
		if formStatus == "" || rec.FormStatus == formStatus {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fakeReports struct{ s *fakeStore }

func (r *fakeReports) Upsert(_ context.Context, rep *entity.PatientReport) error {
	r.s.reports[rep.PatientID] = rep
	return nil
}

func (r *fakeReports) GetByPatientID(_ context.Context, patientID string) (*entity.PatientReport, error) {
	rep, ok := r.s.reports[patientID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return rep, nil
}

type recordingQueue struct {
	jobs []async.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Shutdown(context.Context) {}

type noopOCR struct{}

func (noopOCR) Extract(_ context.Context, _, _ string) (ocr.Result, error) {
	return ocr.Result{Text: "text", Confidence: 0.9, Method: "gemini-vision"}, nil
}

type noopExtractor struct{}

func (noopExtractor) ExtractFields(context.Context, llm.ExtractRequest) (llm.ExtractionResult, []byte, error) {
	return llm.ExtractionResult{Fields: map[string]any{}, ConfidenceScores: map[string]float64{}}, nil, nil
}

func newTestServer(t *testing.T, store *fakeStore, queue async.Queue) *Server {
	t.Helper()
	docs := &fakeDocs{s: store}
	groups := &fakeGroups{s: store}
	ocrResults := &fakeOCRResults{s: store}
	trf := &fakeTRF{s: store}
	proc := pipeline.NewProcessor(slog.Default(), noopOCR{}, noopExtractor{}, nil,
		docs, groups, ocrResults, trf, &fakeReports{s: store})
	return New(Deps{
		Logger:     slog.Default(),
		UploadDir:  t.TempDir(),
		Processor:  proc,
		Queue:      queue,
		Documents:  docs,
		Groups:     groups,
		OCRResults: ocrResults,
		TRFRecords: trf,
		Exporter:   export.NewService(trf, slog.Default()),
	})
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func multipartUpload(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	body, contentType := multipartUpload(t, "file", "form.pdf", []byte("%PDF-1.4 test"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	rec := doRequest(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var doc entity.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "form.pdf", doc.FileName)
	assert.Equal(t, "pdf", doc.FileType)
	assert.Equal(t, entity.StatusUploaded, doc.Status)
	assert.Contains(t, store.docs, doc.ID)
}

func TestUploadDocumentRejectsUnsupportedType(t *testing.T) {
	s := newTestServer(t, newFakeStore(), &recordingQueue{})

	body, contentType := multipartUpload(t, "file", "notes.docx", []byte("zip"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", body)
	req.Header.Set(echo.HeaderContentType, contentType)

	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported file type")
}

func TestUploadMultipleCreatesGroup(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, name := range []string{"page1.jpg", "page2.jpg"} {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("jpeg-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload-multiple", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

	rec := doRequest(s, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, store.groups, 1)
	require.Len(t, store.docs, 2)
	for _, g := range store.groups {
		assert.Len(t, g.DocumentIDs, 2)
	}
	for _, d := range store.docs {
		require.NotNil(t, d.GroupID)
	}
}

func TestUploadMultipleRejectsPDF(t *testing.T) {
	s := newTestServer(t, newFakeStore(), &recordingQueue{})

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("files", "form.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload-multiple", body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcessDocumentQueuesJob(t *testing.T) {
	store := newFakeStore()
	queue := &recordingQueue{}
	s := newTestServer(t, store, queue)

	doc := &entity.Document{ID: uuid.New(), Status: entity.StatusUploaded, FileType: "pdf"}
	store.docs[doc.ID] = doc

	payload := strings.NewReader(`{"patient_id":"PT-9","save_to_reports":true,"force_reprocess":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+doc.ID.String()+"/process", payload)
	req.Header.Set(echo.HeaderContentType, "application/json")

	rec := doRequest(s, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, doc.ID, job.TargetID)
	assert.False(t, job.Group)
	assert.Equal(t, "PT-9", job.Options.PatientID)
	assert.True(t, job.Options.SaveToReports)
	assert.True(t, job.Options.ForceReprocess)
	assert.WithinDuration(t, time.Now(), job.SubmittedAt, time.Minute)
}

func TestProcessDocumentUnknownID(t *testing.T) {
	queue := &recordingQueue{}
	s := newTestServer(t, newFakeStore(), queue)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/"+uuid.NewString()+"/process", nil)
	rec := doRequest(s, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, queue.jobs)
}

func TestDocumentStatusProgress(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	doc := &entity.Document{ID: uuid.New(), Status: entity.StatusOCRProcessed}
	store.docs[doc.ID] = doc

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+doc.ID.String()+"/status", nil)
	rec := doRequest(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.StatusOCRProcessed, resp["status"])
	assert.InDelta(t, 0.5, resp["progress"], 1e-9)
}

func TestGetTRFRecordNotFound(t *testing.T) {
	s := newTestServer(t, newFakeStore(), &recordingQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+uuid.NewString()+"/trf", nil)
	rec := doRequest(s, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTRFField(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	data, err := json.Marshal(map[string]any{
		"patientInformation": map[string]any{"gender": "Female"},
	})
	require.NoError(t, err)
	trfRec := &entity.TRFRecord{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		Data:       data,
		FormStatus: "incomplete",
	}
	store.records[trfRec.ID] = trfRec

	payload := strings.NewReader(`{"field_path":"patientID","value":"PT-42"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/trf/"+trfRec.ID.String()+"/fields", payload)
	req.Header.Set(echo.HeaderContentType, "application/json")

	rec := doRequest(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated entity.TRFRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	var got map[string]any
	require.NoError(t, json.Unmarshal(updated.Data, &got))
	assert.Equal(t, "PT-42", got["patientID"])
	assert.NotContains(t, updated.MissingRequiredFields, "patientID")
}

func TestUpdateTRFFieldWithConfidence(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	trfRec := &entity.TRFRecord{ID: uuid.New(), DocumentID: uuid.New(), Data: []byte(`{}`)}
	store.records[trfRec.ID] = trfRec

	payload := strings.NewReader(`{"field_path":"patientID","value":"PT-42","confidence":0.4}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/trf/"+trfRec.ID.String()+"/fields", payload)
	req.Header.Set(echo.HeaderContentType, "application/json")

	rec := doRequest(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated entity.TRFRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Contains(t, updated.LowConfidenceFields, "patientID")
	var scores map[string]float64
	require.NoError(t, json.Unmarshal(updated.ConfidenceScores, &scores))
	assert.InDelta(t, 0.4, scores["patientID"], 1e-9)
}

func TestUpdateTRFFieldRejectsConfidenceOutOfRange(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	trfRec := &entity.TRFRecord{ID: uuid.New(), DocumentID: uuid.New(), Data: []byte(`{}`)}
	store.records[trfRec.ID] = trfRec

	payload := strings.NewReader(`{"field_path":"patientID","value":"PT-42","confidence":1.5}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/trf/"+trfRec.ID.String()+"/fields", payload)
	req.Header.Set(echo.HeaderContentType, "application/json")

	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTRFFieldRejectsBadValue(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	trfRec := &entity.TRFRecord{ID: uuid.New(), DocumentID: uuid.New(), Data: []byte(`{}`)}
	store.records[trfRec.ID] = trfRec

	payload := strings.NewReader(`{"field_path":"patientInformation.gender","value":"Robot"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/trf/"+trfRec.ID.String()+"/fields", payload)
	req.Header.Set(echo.HeaderContentType, "application/json")

	rec := doRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompletionGuidance(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	trfRec := &entity.TRFRecord{ID: uuid.New(), DocumentID: uuid.New(), Data: []byte(`{}`)}
	store.records[trfRec.ID] = trfRec

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trf/"+trfRec.ID.String()+"/guidance", nil)
	rec := doRequest(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		MissingFields []struct {
			FieldPath   string `json:"field_path"`
			Description string `json:"description"`
			Required    bool   `json:"required"`
		} `json:"missing_fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.MissingFields)
	assert.Equal(t, "patientID", resp.MissingFields[0].FieldPath)
	assert.Equal(t, "A unique identifier for the patient", resp.MissingFields[0].Description)
	assert.True(t, resp.MissingFields[0].Required)
}

func TestListDocumentsFiltersByStatus(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	store.docs[uuid.New()] = &entity.Document{ID: uuid.New(), Status: entity.StatusProcessed}
	failed := &entity.Document{ID: uuid.New(), Status: entity.StatusFailed}
	store.docs[failed.ID] = failed

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?status=failed", nil)
	rec := doRequest(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Documents []entity.Document `json:"documents"`
		Count     int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, entity.StatusFailed, resp.Documents[0].Status)
}

func TestExportRecords(t *testing.T) {
	store := newFakeStore()
	s := newTestServer(t, store, &recordingQueue{})

	data, err := json.Marshal(map[string]any{"patientID": "PT-7"})
	require.NoError(t, err)
	trfRec := &entity.TRFRecord{
		ID:         uuid.New(),
		DocumentID: uuid.New(),
		Data:       data,
		FormStatus: "partial",
	}
	store.records[trfRec.ID] = trfRec

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export/records.xlsx", nil)
	rec := doRequest(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "trf-records.xlsx")
	assert.NotEmpty(t, rec.Body.Bytes())
}

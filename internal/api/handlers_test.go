package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplyvault/compliance-monitor/internal/domain"
	"github.com/supplyvault/compliance-monitor/internal/ingest"
	"github.com/supplyvault/compliance-monitor/internal/pipeline"
)

type fakeExpiryRunner struct {
	summary pipeline.ExpirySummary
	err     error
	calls   int
}

func (f *fakeExpiryRunner) Run(context.Context) (pipeline.ExpirySummary, error) {
	f.calls++
	return f.summary, f.err
}

type fakeReverifyRunner struct {
	summary pipeline.ReverifySummary
	err     error
	calls   int
}

func (f *fakeReverifyRunner) Run(context.Context) (pipeline.ReverifySummary, error) {
	f.calls++
	return f.summary, f.err
}

type fakeCertReader struct {
	certs map[string]*domain.Certification
	err   error
}

func (f *fakeCertReader) GetByID(_ context.Context, id string) (*domain.Certification, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.certs[id], nil
}

type fakeIngestor struct {
	cert *domain.Certification
	err  error
	last ingest.Request
}

func (f *fakeIngestor) Ingest(_ context.Context, req ingest.Request) (*domain.Certification, error) {
	f.last = req
	return f.cert, f.err
}

type testDeps struct {
	expiry   *fakeExpiryRunner
	reverify *fakeReverifyRunner
	certs    *fakeCertReader
	ingestor *fakeIngestor
}

func setupTestServer(t *testing.T, cronSecret string) (http.Handler, *testDeps) {
	t.Helper()
	deps := &testDeps{
		expiry:   &fakeExpiryRunner{summary: pipeline.ExpirySummary{Processed: 3, AlertsCreated: 2, EmailsSent: 2}},
		reverify: &fakeReverifyRunner{summary: pipeline.ReverifySummary{Processed: 5, Reverified: 4, Revoked: 1}},
		certs:    &fakeCertReader{certs: map[string]*domain.Certification{}},
		ingestor: &fakeIngestor{},
	}
	h := NewHandlers(deps.expiry, deps.reverify, deps.certs, deps.ingestor, cronSecret)
	return SetupRoutes(h), deps
}

func TestHealthCheck(t *testing.T) {
	handler, _ := setupTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "supplyvault-compliance-monitor", body["service"])
}

func TestCronExpiryAlertsSuccess(t *testing.T) {
	handler, deps := setupTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/cron/expiry-alerts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, deps.expiry.calls)

	var body struct {
		Success   bool   `json:"success"`
		Timestamp string `json:"timestamp"`
		Results   struct {
			Processed     int `json:"processed"`
			AlertsCreated int `json:"alertsCreated"`
			EmailsSent    int `json:"emailsSent"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Timestamp)
	assert.Equal(t, 3, body.Results.Processed)
	assert.Equal(t, 2, body.Results.AlertsCreated)
}

func TestCronSecretRejectsMissingToken(t *testing.T) {
	handler, deps := setupTestServer(t, "topsecret")

	for _, auth := range []string{"", "Bearer wrong", "topsecret"} {
		req := httptest.NewRequest(http.MethodGet, "/api/cron/reverify", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "auth header %q", auth)
	}
	assert.Equal(t, 0, deps.reverify.calls, "pipeline must not run without a valid secret")
}

func TestCronSecretAcceptsBearerToken(t *testing.T) {
	handler, deps := setupTestServer(t, "topsecret")

	req := httptest.NewRequest(http.MethodGet, "/api/cron/reverify", nil)
	req.Header.Set("Authorization", "Bearer topsecret")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, deps.reverify.calls)

	var body struct {
		Success bool `json:"success"`
		Results struct {
			Reverified int `json:"reverified"`
			Revoked    int `json:"revoked"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 4, body.Results.Reverified)
	assert.Equal(t, 1, body.Results.Revoked)
}

func TestCronRunInProgressConflict(t *testing.T) {
	handler, deps := setupTestServer(t, "")
	deps.expiry.err = pipeline.ErrRunInProgress

	req := httptest.NewRequest(http.MethodGet, "/api/cron/expiry-alerts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "in progress")
}

func TestCronPipelineFailure(t *testing.T) {
	handler, deps := setupTestServer(t, "")
	deps.reverify.err = errors.New("listing certifications due for re-verification: connection refused")

	req := httptest.NewRequest(http.MethodGet, "/api/cron/reverify", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Error)
}

func TestGetCertification(t *testing.T) {
	handler, deps := setupTestServer(t, "")
	deps.certs.certs["cert-1"] = &domain.Certification{
		ID:                "cert-1",
		BrandID:           "brand-1",
		Type:              domain.CertGOTS,
		CertificateNumber: "CU-1034567",
		ExpiryDate:        time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC),
		Status:            domain.StatusValid,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/certifications/cert-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body domain.Certification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CU-1034567", body.CertificateNumber)
	assert.Equal(t, domain.CertGOTS, body.Type)
}

func TestGetCertificationNotFound(t *testing.T) {
	handler, _ := setupTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/certifications/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCertificationStoreError(t *testing.T) {
	handler, deps := setupTestServer(t, "")
	deps.certs.err = errors.New("connection reset")

	req := httptest.NewRequest(http.MethodGet, "/api/certifications/cert-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func multipartUpload(t *testing.T, fields map[string]string, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("document", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestIngestCertificate(t *testing.T) {
	handler, deps := setupTestServer(t, "")
	deps.ingestor.cert = &domain.Certification{
		ID:                 "cert-new",
		BrandID:            "brand-1",
		SupplierID:         "sup-1",
		Type:               domain.CertSA8000,
		VerificationStatus: domain.VerificationPending,
	}

	body, contentType := multipartUpload(t, map[string]string{
		"brand_id":      "brand-1",
		"supplier_id":   "sup-1",
		"document_text": "SA8000 certificate SA8000-2024-001",
	}, "certificate.pdf", []byte("%PDF-1.4 test"))

	req := httptest.NewRequest(http.MethodPost, "/api/ingest/certificate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "brand-1", deps.ingestor.last.BrandID)
	assert.Equal(t, "sup-1", deps.ingestor.last.SupplierID)
	assert.Equal(t, []byte("%PDF-1.4 test"), deps.ingestor.last.Document)
	assert.Equal(t, "SA8000 certificate SA8000-2024-001", deps.ingestor.last.DocumentText)

	var created domain.Certification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.VerificationPending, created.VerificationStatus)
}

func TestIngestCertificateMissingFields(t *testing.T) {
	handler, _ := setupTestServer(t, "")

	body, contentType := multipartUpload(t, map[string]string{"brand_id": "brand-1"}, "certificate.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/certificate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestCertificateMissingDocument(t *testing.T) {
	handler, _ := setupTestServer(t, "")

	body, contentType := multipartUpload(t, map[string]string{
		"brand_id":    "brand-1",
		"supplier_id": "sup-1",
	}, "", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/certificate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestCertificateServiceError(t *testing.T) {
	handler, deps := setupTestServer(t, "")
	deps.ingestor.err = errors.New("unknown supplier sup-1")

	body, contentType := multipartUpload(t, map[string]string{
		"brand_id":    "brand-1",
		"supplier_id": "sup-1",
	}, "certificate.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/certificate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestCertificateNotConfigured(t *testing.T) {
	deps := &testDeps{
		expiry:   &fakeExpiryRunner{},
		reverify: &fakeReverifyRunner{},
		certs:    &fakeCertReader{},
	}
	h := NewHandlers(deps.expiry, deps.reverify, deps.certs, nil, "")
	handler := SetupRoutes(h)

	body, contentType := multipartUpload(t, map[string]string{
		"brand_id":    "brand-1",
		"supplier_id": "sup-1",
	}, "certificate.pdf", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/certificate", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	handler, _ := setupTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/api/nothing-here", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

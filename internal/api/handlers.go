package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/supplyvault/compliance-monitor/internal/domain"
	"github.com/supplyvault/compliance-monitor/internal/ingest"
	"github.com/supplyvault/compliance-monitor/internal/pipeline"
	"github.com/supplyvault/compliance-monitor/internal/pkg/httputil"
)

const maxCertificateUpload = 25 << 20 // 25MB scanned PDFs

// ExpiryRunner runs the expiry alert pipeline once.
type ExpiryRunner interface {
	Run(ctx context.Context) (pipeline.ExpirySummary, error)
}

// ReverifyRunner runs the re-verification pipeline once.
type ReverifyRunner interface {
	Run(ctx context.Context) (pipeline.ReverifySummary, error)
}

// CertificationReader fetches single certification records.
type CertificationReader interface {
	GetByID(ctx context.Context, id string) (*domain.Certification, error)
}

// Ingestor accepts certificate document uploads.
type Ingestor interface {
	Ingest(ctx context.Context, req ingest.Request) (*domain.Certification, error)
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	expiry     ExpiryRunner
	reverify   ReverifyRunner
	certs      CertificationReader
	ingestor   Ingestor
	cronSecret string
	startTime  time.Time

	now func() time.Time
}

// NewHandlers creates handlers wired to the pipelines and stores.
// An empty cronSecret leaves the cron endpoints unguarded; production
// deployments always set one.
func NewHandlers(expiry ExpiryRunner, reverify ReverifyRunner, certs CertificationReader, ingestor Ingestor, cronSecret string) *Handlers {
	return &Handlers{
		expiry:     expiry,
		reverify:   reverify,
		certs:      certs,
		ingestor:   ingestor,
		cronSecret: cronSecret,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// HealthCheck returns basic server health.
//
//	GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status":    "healthy",
		"service":   "supplyvault-compliance-monitor",
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// RequireCronSecret rejects scheduler requests that do not carry the
// configured bearer secret. The check runs before any pipeline work.
func (h *Handlers) RequireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cronSecret != "" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(h.cronSecret)) != 1 {
				httputil.Unauthorized(w, "invalid cron secret")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// cronResponse is the envelope scheduler endpoints return.
type cronResponse struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
	Results   any    `json:"results,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RunExpiryAlerts triggers one expiry alert pipeline run.
//
//	GET /api/cron/expiry-alerts
func (h *Handlers) RunExpiryAlerts(w http.ResponseWriter, r *http.Request) {
	summary, err := h.expiry.Run(r.Context())
	h.writeCronResult(w, "expiry-alerts", summary, err)
}

// RunReverify triggers one re-verification pipeline run.
//
//	GET /api/cron/reverify
func (h *Handlers) RunReverify(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reverify.Run(r.Context())
	h.writeCronResult(w, "reverify", summary, err)
}

func (h *Handlers) writeCronResult(w http.ResponseWriter, name string, summary any, err error) {
	ts := h.now().UTC().Format(time.RFC3339)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrRunInProgress) {
			status = http.StatusConflict
		}
		log.Printf("[api] cron %s failed: %v", name, err)
		httputil.JSON(w, status, cronResponse{Success: false, Timestamp: ts, Error: err.Error()})
		return
	}
	httputil.OK(w, cronResponse{Success: true, Timestamp: ts, Results: summary})
}

// GetCertification returns a single certification record.
//
//	GET /api/certifications/{id}
func (h *Handlers) GetCertification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.BadRequest(w, "certification id is required")
		return
	}

	cert, err := h.certs.GetByID(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if cert == nil {
		httputil.NotFound(w, "certification not found")
		return
	}
	httputil.OK(w, cert)
}

// IngestCertificate accepts a multipart certificate upload and queues it
// as a pending certification.
//
//	POST /api/ingest/certificate
//	form fields: brand_id, supplier_id, document (file), document_text
func (h *Handlers) IngestCertificate(w http.ResponseWriter, r *http.Request) {
	if h.ingestor == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "certificate ingestion is not configured")
		return
	}
	if err := r.ParseMultipartForm(maxCertificateUpload); err != nil {
		httputil.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}

	brandID := r.FormValue("brand_id")
	supplierID := r.FormValue("supplier_id")
	if brandID == "" || supplierID == "" {
		httputil.BadRequest(w, "brand_id and supplier_id are required")
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		httputil.BadRequest(w, "document file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxCertificateUpload))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	cert, err := h.ingestor.Ingest(r.Context(), ingest.Request{
		BrandID:      brandID,
		SupplierID:   supplierID,
		Document:     data,
		ContentType:  header.Header.Get("Content-Type"),
		DocumentText: r.FormValue("document_text"),
	})
	if err != nil {
		log.Printf("[api] certificate ingest failed for brand %s: %v", brandID, err)
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.Created(w, cert)
}

// Package ingest accepts uploaded certificate documents, archives the
// raw bytes to S3, and turns the extracted fields into a pending
// certification record awaiting verification.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/supplyvault/compliance-monitor/internal/domain"
	"github.com/supplyvault/compliance-monitor/internal/extract"
)

// DocumentStore archives raw certificate documents.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// CertificationCreator persists new certification records.
type CertificationCreator interface {
	Create(ctx context.Context, c *domain.Certification) error
}

// SupplierResolver looks up the supplier an upload is attributed to.
type SupplierResolver interface {
	GetSupplier(ctx context.Context, supplierID string) (*domain.Supplier, error)
}

// S3DocumentStore stores documents in an S3 bucket.
type S3DocumentStore struct {
	client *s3.Client
	bucket string
}

// NewS3DocumentStore creates a document store backed by the given bucket.
func NewS3DocumentStore(client *s3.Client, bucket string) *S3DocumentStore {
	return &S3DocumentStore{client: client, bucket: bucket}
}

// Put uploads the document bytes under the given key.
func (s *S3DocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("putting object to S3: %w", err)
	}
	return nil
}

// Request is one certificate upload.
type Request struct {
	BrandID      string
	SupplierID   string
	Document     []byte
	ContentType  string
	DocumentText string
}

// Service runs the upload-extract-create flow.
type Service struct {
	docs                DocumentStore
	certs               CertificationCreator
	suppliers           SupplierResolver
	extractor           extract.FieldExtractor
	confidenceThreshold float64

	now func() time.Time
}

// NewService wires an ingestion service. Extractions scoring below
// confidenceThreshold are flagged for manual review.
func NewService(docs DocumentStore, certs CertificationCreator, suppliers SupplierResolver, extractor extract.FieldExtractor, confidenceThreshold float64) *Service {
	return &Service{
		docs:                docs,
		certs:               certs,
		suppliers:           suppliers,
		extractor:           extractor,
		confidenceThreshold: confidenceThreshold,
		now:                 time.Now,
	}
}

// Ingest archives the document, extracts certification fields from its
// text, and creates a PENDING certification. Extraction failures do not
// lose the upload: the record is created empty and flagged for review.
func (s *Service) Ingest(ctx context.Context, req Request) (*domain.Certification, error) {
	supplier, err := s.suppliers.GetSupplier(ctx, req.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("resolving supplier %s: %w", req.SupplierID, err)
	}
	if supplier == nil {
		return nil, fmt.Errorf("unknown supplier %s", req.SupplierID)
	}
	if supplier.BrandID != req.BrandID {
		return nil, fmt.Errorf("supplier %s does not belong to brand %s", req.SupplierID, req.BrandID)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	key := fmt.Sprintf("certificates/%s/%s.pdf", req.BrandID, uuid.New().String())
	if err := s.docs.Put(ctx, key, req.Document, contentType); err != nil {
		return nil, fmt.Errorf("storing certificate document: %w", err)
	}

	now := s.now().UTC()
	cert := &domain.Certification{
		SupplierID:         req.SupplierID,
		BrandID:            req.BrandID,
		Type:               domain.CertOther,
		VerificationStatus: domain.VerificationPending,
		VerificationMethod: domain.MethodManual,
		DocumentKey:        key,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	fields, err := s.extractor.Extract(ctx, req.DocumentText)
	if err != nil {
		log.Printf("[ingest] extraction failed for supplier %s: %v", req.SupplierID, err)
		cert.NeedsReview = true
		cert.VerificationDetails = map[string]string{"note": "automated extraction failed, fields require manual entry"}
	} else {
		cert.Type = fields.CertificationType
		cert.CertificateNumber = fields.CertificateNumber
		cert.IssuingBody = fields.IssuingBody
		cert.IssueDate = fields.IssueDate
		if fields.ExpiryDate != nil {
			cert.ExpiryDate = *fields.ExpiryDate
		}
		cert.NeedsReview = fields.Confidence < s.confidenceThreshold || fields.ExpiryDate == nil
		cert.VerificationDetails = map[string]string{
			"extraction_confidence": fmt.Sprintf("%.2f", fields.Confidence),
		}
		if fields.SupplierName != "" {
			cert.VerificationDetails["extracted_supplier_name"] = fields.SupplierName
		}
	}
	cert.Status = statusForExpiry(cert.ExpiryDate, now)

	if err := s.certs.Create(ctx, cert); err != nil {
		return nil, fmt.Errorf("creating certification: %w", err)
	}
	cert.SupplierName = supplier.Name
	return cert, nil
}

// statusForExpiry buckets an expiry date the same way the alert pipeline
// reads it: gone is EXPIRED, within 90 days is EXPIRING_SOON.
func statusForExpiry(expiry time.Time, now time.Time) domain.CertificationStatus {
	if expiry.IsZero() {
		return domain.StatusValid
	}
	if expiry.Before(now) {
		return domain.StatusExpired
	}
	if expiry.Before(now.AddDate(0, 0, 90)) {
		return domain.StatusExpiringSoon
	}
	return domain.StatusValid
}

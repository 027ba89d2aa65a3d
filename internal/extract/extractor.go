// Package extract turns raw certificate document text into structured
// certification fields. The production extractor calls Claude through AWS
// Bedrock; a deterministic static extractor backs the tests.
package extract

import (
	"context"
	"time"

	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// ExtractedFields is the structured output of one extraction pass.
// Confidence is the model's own estimate of how well the document matched;
// ingestion flags low-confidence results for manual review.
type ExtractedFields struct {
	SupplierName      string                   `json:"supplier_name"`
	CertificationType domain.CertificationType `json:"certification_type"`
	CertificateNumber string                   `json:"certificate_number"`
	IssuingBody       string                   `json:"issuing_body"`
	IssueDate         *time.Time               `json:"issue_date"`
	ExpiryDate        *time.Time               `json:"expiry_date"`
	Confidence        float64                  `json:"confidence"`
}

// FieldExtractor extracts certification fields from document text.
type FieldExtractor interface {
	Extract(ctx context.Context, documentText string) (ExtractedFields, error)
}

// StaticExtractor returns fixed fields; test and dry-run use only.
type StaticExtractor struct {
	Fields ExtractedFields
	Err    error
}

// Extract returns the configured fields.
func (s StaticExtractor) Extract(context.Context, string) (ExtractedFields, error) {
	return s.Fields, s.Err
}

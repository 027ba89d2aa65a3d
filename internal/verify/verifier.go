// Package verify implements authenticity verification for supplier
// compliance certifications. Each supported standard gets its own Verifier;
// the Router dispatches by certification type and shields callers from
// verifier failures.
package verify

import (
	"context"
	"time"

	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// Input carries the extracted certificate fields a verifier works from.
// Every field is optional; verifiers decide what they can do with what
// they were given.
type Input struct {
	CertificateNumber string
	CompanyName       string
	IssuingBody       string
	IssueDate         *time.Time
	ExpiryDate        *time.Time
}

// Verifier attempts to confirm a certification's authenticity for one or
// more standards.
//
// Implementations must not panic and must not return an error for ordinary
// "could not verify" outcomes - insufficient input, record not found, and
// failed external lookups are all expressed as a PENDING or FAILED
// VerificationResult. The error return is reserved for programming errors;
// the Router converts both errors and panics into FAILED results so callers
// never need their own recovery.
type Verifier interface {
	// Verify checks the given certificate fields against the standard's
	// reference data.
	Verify(ctx context.Context, in Input) (domain.VerificationResult, error)
	// Types enumerates the certification types this verifier handles.
	Types() []domain.CertificationType
}

// pendingResult builds a non-committal PENDING result with the given method
// and note. Used for insufficient input and unimplemented external lookups.
func pendingResult(method domain.VerificationMethod, note string) domain.VerificationResult {
	return domain.VerificationResult{
		Status:     domain.VerificationPending,
		Method:     method,
		Confidence: 0,
		Verified:   false,
		Details:    map[string]string{"note": note},
	}
}

package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// OekoTexLookup checks a certificate number against the OEKO-TEX label
// check, which only exists as a browser form today.
type OekoTexLookup interface {
	Lookup(ctx context.Context, certNumber string) (domain.VerificationResult, error)
}

// StubOekoTexLookup defers every lookup to manual review. Scraping the
// label-check form has not been built.
type StubOekoTexLookup struct{}

// Lookup always returns a PENDING result pointing at manual verification.
func (StubOekoTexLookup) Lookup(_ context.Context, certNumber string) (domain.VerificationResult, error) {
	return pendingResult(domain.MethodWebScraping,
		fmt.Sprintf("certificate %s queued for manual verification via the OEKO-TEX label check", certNumber)), nil
}

// OekoTexVerifier verifies OEKO-TEX certifications via a pluggable lookup.
type OekoTexVerifier struct {
	lookup OekoTexLookup
}

// NewOekoTexVerifier creates the OEKO-TEX verifier. A nil lookup gets the stub.
func NewOekoTexVerifier(lookup OekoTexLookup) *OekoTexVerifier {
	if lookup == nil {
		lookup = StubOekoTexLookup{}
	}
	return &OekoTexVerifier{lookup: lookup}
}

// Types implements Verifier.
func (v *OekoTexVerifier) Types() []domain.CertificationType {
	return []domain.CertificationType{domain.CertOekoTex}
}

// Verify delegates to the lookup when a certificate number is present.
func (v *OekoTexVerifier) Verify(ctx context.Context, in Input) (domain.VerificationResult, error) {
	if strings.TrimSpace(in.CertificateNumber) == "" {
		return pendingResult(domain.MethodWebScraping,
			"no certificate number supplied, cannot run OEKO-TEX label check"), nil
	}
	res, err := v.lookup.Lookup(ctx, in.CertificateNumber)
	if err != nil {
		return pendingResult(domain.MethodWebScraping,
			fmt.Sprintf("OEKO-TEX lookup failed, manual review required: %v", err)), nil
	}
	return res, nil
}

package verify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// SA8000 name-match thresholds. Similarity is normalized edit distance
// (see NameSimilarity).
const (
	sa8000NameMatchThreshold = 0.7
	sa8000ExactNameThreshold = 0.9
	sa8000MatchConfidence    = 0.85
	sa8000ExactConfidence    = 1.0
	sa8000MismatchConfidence = 0.3
	sa8000NotValidConfidence = 0.9
)

// Facility is one entry in the SAAS-certified facility list.
type Facility struct {
	CertificateNumber string
	HolderName        string
	Country           string
	ValidFrom         time.Time
	ValidUntil        time.Time
}

// FacilityDirectory looks up SA8000-certified facilities by certificate
// number. The production implementation would sit on top of the published
// SAAS certified-facility list; tests and the current deployment use the
// in-memory directory.
type FacilityDirectory interface {
	FindByCertificateNumber(ctx context.Context, certNumber string) (*Facility, error)
}

// InMemoryFacilityDirectory is a FacilityDirectory backed by a static slice.
type InMemoryFacilityDirectory struct {
	byNumber map[string]Facility
}

// NewInMemoryFacilityDirectory builds a directory from the given facilities.
// Certificate numbers are matched case-insensitively.
func NewInMemoryFacilityDirectory(facilities []Facility) *InMemoryFacilityDirectory {
	m := make(map[string]Facility, len(facilities))
	for _, f := range facilities {
		m[normalizeCertNumber(f.CertificateNumber)] = f
	}
	return &InMemoryFacilityDirectory{byNumber: m}
}

// FindByCertificateNumber returns the facility for the number, or nil when
// the number is not in the list.
func (d *InMemoryFacilityDirectory) FindByCertificateNumber(_ context.Context, certNumber string) (*Facility, error) {
	f, ok := d.byNumber[normalizeCertNumber(certNumber)]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func normalizeCertNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}

// SA8000Verifier verifies SA8000 certifications against a certified-facility
// directory, with fuzzy company-name matching on hits.
type SA8000Verifier struct {
	directory FacilityDirectory
	now       func() time.Time
}

// NewSA8000Verifier creates the SA8000 verifier on top of the given
// facility directory.
func NewSA8000Verifier(directory FacilityDirectory) *SA8000Verifier {
	return &SA8000Verifier{directory: directory, now: time.Now}
}

// Types implements Verifier.
func (v *SA8000Verifier) Types() []domain.CertificationType {
	return []domain.CertificationType{domain.CertSA8000}
}

// Verify checks the certificate number against the facility list, then the
// validity window, then (when a company name was supplied) the holder name.
func (v *SA8000Verifier) Verify(ctx context.Context, in Input) (domain.VerificationResult, error) {
	if strings.TrimSpace(in.CertificateNumber) == "" {
		return pendingResult(domain.MethodListMatching,
			"no certificate number supplied, cannot match against SA8000 facility list"), nil
	}

	facility, err := v.directory.FindByCertificateNumber(ctx, in.CertificateNumber)
	if err != nil {
		// Lookup failures are a PENDING outcome, not an error: the
		// certificate may well be fine, we just could not check it.
		return pendingResult(domain.MethodListMatching,
			fmt.Sprintf("facility list lookup failed: %v", err)), nil
	}
	if facility == nil {
		return pendingResult(domain.MethodListMatching,
			fmt.Sprintf("certificate %s not found in SA8000 facility list", in.CertificateNumber)), nil
	}

	now := v.now()
	if now.Before(facility.ValidFrom) || now.After(facility.ValidUntil) {
		// The number is real but the certificate is not currently valid.
		// High confidence in the negative.
		return domain.VerificationResult{
			Status:     domain.VerificationFailed,
			Method:     domain.MethodListMatching,
			Confidence: sa8000NotValidConfidence,
			Verified:   false,
			Details: map[string]string{
				"note":        "certificate found but outside its validity window",
				"holder":      facility.HolderName,
				"valid_from":  facility.ValidFrom.Format("2006-01-02"),
				"valid_until": facility.ValidUntil.Format("2006-01-02"),
			},
		}, nil
	}

	if strings.TrimSpace(in.CompanyName) == "" {
		// Number hit with a valid window and nothing to match the holder
		// against: treat as verified on the number alone.
		return domain.VerificationResult{
			Status:     domain.VerificationVerified,
			Method:     domain.MethodListMatching,
			Confidence: sa8000MatchConfidence,
			Verified:   true,
			Details: map[string]string{
				"matched_number": facility.CertificateNumber,
				"holder":         facility.HolderName,
			},
		}, nil
	}

	similarity := NameSimilarity(in.CompanyName, facility.HolderName)
	if similarity < sa8000NameMatchThreshold {
		return domain.VerificationResult{
			Status:     domain.VerificationFailed,
			Method:     domain.MethodListMatching,
			Confidence: sa8000MismatchConfidence,
			Verified:   false,
			Details: map[string]string{
				"note":            "certificate number found but holder name does not match",
				"supplied_name":   in.CompanyName,
				"registered_name": facility.HolderName,
				"similarity":      fmt.Sprintf("%.2f", similarity),
			},
		}, nil
	}

	confidence := sa8000MatchConfidence
	if similarity >= sa8000ExactNameThreshold {
		confidence = sa8000ExactConfidence
	}
	return domain.VerificationResult{
		Status:     domain.VerificationVerified,
		Method:     domain.MethodListMatching,
		Confidence: confidence,
		Verified:   true,
		Details: map[string]string{
			"matched_number":  facility.CertificateNumber,
			"registered_name": facility.HolderName,
			"similarity":      fmt.Sprintf("%.2f", similarity),
		},
	}, nil
}

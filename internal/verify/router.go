package verify

import (
	"context"
	"fmt"
	"log"

	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// Router dispatches verification requests to the Verifier registered for a
// certification type. The type->verifier map is built once at construction
// and never mutated afterwards.
type Router struct {
	verifiers map[domain.CertificationType]Verifier
}

// NewRouter builds a router from the given verifiers. Each verifier is
// registered for every type it declares via Types(). A later verifier
// claiming an already-registered type wins; that only happens in tests.
func NewRouter(verifiers ...Verifier) *Router {
	m := make(map[domain.CertificationType]Verifier)
	for _, v := range verifiers {
		for _, t := range v.Types() {
			m[t] = v
		}
	}
	return &Router{verifiers: m}
}

// Supports reports whether an automated verifier is registered for the type.
func (r *Router) Supports(t domain.CertificationType) bool {
	_, ok := r.verifiers[t]
	return ok
}

// Verify runs the verifier registered for certType against the input.
//
// It never returns an error and never panics:
//   - no verifier registered -> PENDING / manual / confidence 0, flagged
//     for manual review
//   - verifier returns an error or panics -> FAILED / manual / confidence 0
//     with the failure message in the details
func (r *Router) Verify(ctx context.Context, certType domain.CertificationType, in Input) (result domain.VerificationResult) {
	v, ok := r.verifiers[certType]
	if !ok {
		return domain.VerificationResult{
			Status:     domain.VerificationPending,
			Method:     domain.MethodManual,
			Confidence: 0,
			Verified:   false,
			Details: map[string]string{
				"note": fmt.Sprintf("no automated verifier available for %s, manual review required", certType),
			},
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[verify] verifier for %s panicked: %v", certType, rec)
			result = failedResult(fmt.Sprintf("verifier panic: %v", rec))
		}
	}()

	res, err := v.Verify(ctx, in)
	if err != nil {
		log.Printf("[verify] verifier for %s failed: %v", certType, err)
		return failedResult(err.Error())
	}
	res.ClampConfidence()
	return res
}

func failedResult(msg string) domain.VerificationResult {
	return domain.VerificationResult{
		Status:     domain.VerificationFailed,
		Method:     domain.MethodManual,
		Confidence: 0,
		Verified:   false,
		Details:    map[string]string{"error": msg},
	}
}

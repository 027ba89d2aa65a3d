package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/supplyvault/compliance-monitor/internal/domain"
	"github.com/supplyvault/compliance-monitor/internal/pkg/httpretry"
)

// GOTSLookup queries the Global Organic Textile Standard public certificate
// database for one certificate number.
type GOTSLookup interface {
	Lookup(ctx context.Context, certNumber string) (domain.VerificationResult, error)
}

// StubGOTSLookup is the current default: the public GOTS database has no
// stable API, so every lookup defers to manual review.
type StubGOTSLookup struct{}

// Lookup always returns a PENDING result pointing at manual verification.
func (StubGOTSLookup) Lookup(_ context.Context, certNumber string) (domain.VerificationResult, error) {
	return pendingResult(domain.MethodAPI,
		fmt.Sprintf("certificate %s queued for manual verification against the GOTS public database", certNumber)), nil
}

// HTTPGOTSLookup queries a GOTS certificate endpoint over HTTP with retries.
// Not wired as the default; swap it in via NewGOTSVerifier once an endpoint
// is available.
type HTTPGOTSLookup struct {
	baseURL string
	client  httpretry.HTTPDoer
}

// NewHTTPGOTSLookup creates an HTTP-backed GOTS lookup.
func NewHTTPGOTSLookup(baseURL string, client httpretry.HTTPDoer, maxRetries int) *HTTPGOTSLookup {
	return &HTTPGOTSLookup{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpretry.NewRetryClient(client, maxRetries),
	}
}

type gotsAPIResponse struct {
	Found      bool   `json:"found"`
	HolderName string `json:"holder_name"`
	Status     string `json:"status"`
	ValidUntil string `json:"valid_until"`
}

// Lookup queries the endpoint for the certificate number. Any transport or
// decode failure is returned as an error; the verifier converts it to a
// PENDING result.
func (l *HTTPGOTSLookup) Lookup(ctx context.Context, certNumber string) (domain.VerificationResult, error) {
	u := fmt.Sprintf("%s?number=%s", l.baseURL, url.QueryEscape(certNumber))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.VerificationResult{}, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return domain.VerificationResult{}, fmt.Errorf("gots lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.VerificationResult{}, fmt.Errorf("gots lookup: unexpected status %d", resp.StatusCode)
	}

	var body gotsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.VerificationResult{}, fmt.Errorf("gots lookup: decode: %w", err)
	}

	if !body.Found {
		return pendingResult(domain.MethodAPI,
			fmt.Sprintf("certificate %s not found in GOTS database", certNumber)), nil
	}
	if !strings.EqualFold(body.Status, "valid") {
		return domain.VerificationResult{
			Status:     domain.VerificationFailed,
			Method:     domain.MethodAPI,
			Confidence: 0.9,
			Verified:   false,
			Details: map[string]string{
				"note":        fmt.Sprintf("GOTS database reports status %q", body.Status),
				"holder":      body.HolderName,
				"valid_until": body.ValidUntil,
			},
		}, nil
	}
	return domain.VerificationResult{
		Status:     domain.VerificationVerified,
		Method:     domain.MethodAPI,
		Confidence: 0.9,
		Verified:   true,
		Details: map[string]string{
			"holder":      body.HolderName,
			"valid_until": body.ValidUntil,
		},
	}, nil
}

// GOTSVerifier verifies GOTS certifications via a pluggable lookup.
type GOTSVerifier struct {
	lookup GOTSLookup
}

// NewGOTSVerifier creates the GOTS verifier. A nil lookup gets the stub.
func NewGOTSVerifier(lookup GOTSLookup) *GOTSVerifier {
	if lookup == nil {
		lookup = StubGOTSLookup{}
	}
	return &GOTSVerifier{lookup: lookup}
}

// Types implements Verifier.
func (v *GOTSVerifier) Types() []domain.CertificationType {
	return []domain.CertificationType{domain.CertGOTS}
}

// Verify delegates to the lookup when a certificate number is present.
func (v *GOTSVerifier) Verify(ctx context.Context, in Input) (domain.VerificationResult, error) {
	if strings.TrimSpace(in.CertificateNumber) == "" {
		return pendingResult(domain.MethodAPI,
			"no certificate number supplied, cannot query GOTS database"), nil
	}
	res, err := v.lookup.Lookup(ctx, in.CertificateNumber)
	if err != nil {
		return pendingResult(domain.MethodAPI,
			fmt.Sprintf("GOTS lookup failed, manual review required: %v", err)), nil
	}
	return res, nil
}

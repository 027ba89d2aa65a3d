package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/supplyvault/compliance-monitor/internal/domain"
	"github.com/supplyvault/compliance-monitor/internal/notify"
	"github.com/supplyvault/compliance-monitor/internal/pkg/distlock"
	"github.com/supplyvault/compliance-monitor/internal/pkg/logger"
	"github.com/supplyvault/compliance-monitor/internal/verify"
)

// ReverifySummary is the aggregate result of one re-verification run.
type ReverifySummary struct {
	Processed  int      `json:"processed"`
	Reverified int      `json:"reverified"`
	Revoked    int      `json:"revoked"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors"`
}

func (s *ReverifySummary) recordError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[reverify] %s", msg)
	s.Errors = append(s.Errors, msg)
}

// ReverifyRunner re-checks VERIFIED certifications that have not been
// verified recently, in bounded batches so one invocation stays inside the
// scheduler's execution ceiling. A certification that no longer comes back
// VERIFIED is treated as revoked: flagged for review and reported to the
// owning brand.
type ReverifyRunner struct {
	certs  CertificationStore
	brands BrandDirectory
	router *verify.Router
	sender notify.Sender
	lock   distlock.DistLock

	batchSize        int
	reverifyInterval time.Duration
	dashboardBaseURL string
	now              func() time.Time
}

// NewReverifyRunner creates the re-verification pipeline. batchSize caps
// how many certifications one run touches (default 100); intervalDays is
// the re-verification age threshold (default 30).
func NewReverifyRunner(certs CertificationStore, brands BrandDirectory, router *verify.Router, sender notify.Sender, lock distlock.DistLock, batchSize, intervalDays int, dashboardBaseURL string) *ReverifyRunner {
	if batchSize <= 0 {
		batchSize = 100
	}
	if intervalDays <= 0 {
		intervalDays = 30
	}
	return &ReverifyRunner{
		certs:            certs,
		brands:           brands,
		router:           router,
		sender:           sender,
		lock:             lock,
		batchSize:        batchSize,
		reverifyInterval: time.Duration(intervalDays) * 24 * time.Hour,
		dashboardBaseURL: dashboardBaseURL,
		now:              time.Now,
	}
}

// Run executes one batch. Batch selection failing is fatal (nothing to
// report); each certification after that is processed under its own error
// capture, so one bad record never stops the batch.
func (r *ReverifyRunner) Run(ctx context.Context) (ReverifySummary, error) {
	var summary ReverifySummary

	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx)
		if err != nil {
			return summary, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			return summary, ErrRunInProgress
		}
		defer r.lock.Release(ctx)
	}

	now := r.now()
	cutoff := now.Add(-r.reverifyInterval)

	certs, err := r.certs.FindVerifiedBefore(ctx, cutoff, r.batchSize)
	if err != nil {
		return summary, fmt.Errorf("select re-verification batch: %w", err)
	}

	brandsByID, err := r.brandIndex(ctx)
	if err != nil {
		// Verification updates can still proceed; only the revocation
		// notices need brand contacts.
		summary.recordError("list brands: %v", err)
		brandsByID = map[string]domain.Brand{}
	}

	for i := range certs {
		r.processCertification(ctx, certs[i], brandsByID, now, &summary)
	}

	logger.Info("re-verification run complete",
		"batch", len(certs),
		"processed", summary.Processed,
		"reverified", summary.Reverified,
		"revoked", summary.Revoked,
		"failed", summary.Failed,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (r *ReverifyRunner) processCertification(ctx context.Context, cert domain.Certification, brandsByID map[string]domain.Brand, now time.Time, summary *ReverifySummary) {
	summary.Processed++

	result := r.router.Verify(ctx, cert.Type, verify.Input{
		CertificateNumber: cert.CertificateNumber,
		CompanyName:       cert.SupplierName,
		IssuingBody:       cert.IssuingBody,
		IssueDate:         cert.IssueDate,
		ExpiryDate:        &cert.ExpiryDate,
	})

	revoked := result.Revoked()
	if err := r.certs.UpdateVerification(ctx, cert.ID, result, revoked, now); err != nil {
		summary.Failed++
		summary.recordError("certification %s: persist re-verification: %v", cert.ID, err)
		return
	}

	if !revoked {
		summary.Reverified++
		return
	}
	summary.Revoked++

	brand, ok := brandsByID[cert.BrandID]
	if !ok {
		summary.recordError("certification %s: no brand %s for revocation notice", cert.ID, cert.BrandID)
		return
	}
	if err := r.sendRevocationNotice(ctx, brand, cert); err != nil {
		// Non-fatal: the verification update is already persisted.
		summary.recordError("certification %s: send revocation notice: %v", cert.ID, err)
	}
}

func (r *ReverifyRunner) sendRevocationNotice(ctx context.Context, brand domain.Brand, cert domain.Certification) error {
	url := ""
	if r.dashboardBaseURL != "" {
		url = fmt.Sprintf("%s/certifications/%s", r.dashboardBaseURL, cert.ID)
	}
	return r.sender.SendExpiryAlert(ctx, notify.ExpiryAlertEmail{
		To:                brand.ContactEmail,
		BrandName:         brand.CompanyName,
		SupplierName:      cert.SupplierName,
		CertificationName: certificationName(cert),
		CertificationType: cert.Type,
		ExpiryDate:        cert.ExpiryDate,
		DaysUntilExpiry:   notify.RevocationSentinel,
		CertificationURL:  url,
	})
}

func (r *ReverifyRunner) brandIndex(ctx context.Context) (map[string]domain.Brand, error) {
	brands, err := r.brands.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Brand, len(brands))
	for _, b := range brands {
		byID[b.ID] = b
	}
	return byID, nil
}

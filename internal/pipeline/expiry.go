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
)

// lookaheadWindows are the day offsets, processed in this order, at which an
// expiry alert is due. The expired-today pass runs after these.
var lookaheadWindows = []int{90, 30, 7}

// ExpirySummary is the aggregate result of one expiry pipeline run.
type ExpirySummary struct {
	Processed     int      `json:"processed"`
	AlertsCreated int      `json:"alertsCreated"`
	EmailsSent    int      `json:"emailsSent"`
	Errors        []string `json:"errors"`
}

func (s *ExpirySummary) recordError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("[expiry-alerts] %s", msg)
	s.Errors = append(s.Errors, msg)
}

// ExpiryAlertRunner walks every brand across the lookahead windows, ensures
// exactly one alert per (certification, window), emails the brand for each
// newly created alert, and flips expired-today certifications to EXPIRED.
type ExpiryAlertRunner struct {
	certs  CertificationStore
	alerts AlertStore
	brands BrandDirectory
	sender notify.Sender
	lock   distlock.DistLock

	dashboardBaseURL string
	now              func() time.Time
}

// NewExpiryAlertRunner creates the expiry alert pipeline. lock may be nil
// when overlap protection is handled elsewhere (tests).
func NewExpiryAlertRunner(certs CertificationStore, alerts AlertStore, brands BrandDirectory, sender notify.Sender, lock distlock.DistLock, dashboardBaseURL string) *ExpiryAlertRunner {
	return &ExpiryAlertRunner{
		certs:            certs,
		alerts:           alerts,
		brands:           brands,
		sender:           sender,
		lock:             lock,
		dashboardBaseURL: dashboardBaseURL,
		now:              time.Now,
	}
}

// Run executes one full pass. The only fatal outcomes are the brand listing
// failing (no partial results to report) and the run lock being held;
// everything below brand level is captured into the summary's error list.
//
// All side effects are committed as they happen. A crash mid-run leaves
// already-created alerts in place; the next run's dedup makes the retry
// safe (at-least-once, not exactly-once).
func (r *ExpiryAlertRunner) Run(ctx context.Context) (ExpirySummary, error) {
	var summary ExpirySummary

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

	// One fixed "now" for the whole run so the day buckets stay consistent
	// even if the run crosses midnight.
	now := r.now()

	brands, err := r.brands.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list brands: %w", err)
	}

	for _, brand := range brands {
		r.processBrand(ctx, brand, now, &summary)
	}

	logger.Info("expiry alert run complete",
		"brands", len(brands),
		"processed", summary.Processed,
		"alerts_created", summary.AlertsCreated,
		"emails_sent", summary.EmailsSent,
		"errors", len(summary.Errors),
	)
	return summary, nil
}

func (r *ExpiryAlertRunner) processBrand(ctx context.Context, brand domain.Brand, now time.Time, summary *ExpirySummary) {
	for _, window := range lookaheadWindows {
		certs, err := r.certs.FindExpiringInDays(ctx, brand.ID, window, now)
		if err != nil {
			summary.recordError("brand %s: query %d-day window: %v", brand.ID, window, err)
			continue
		}
		for i := range certs {
			r.processCertification(ctx, brand, certs[i], window, summary)
		}
	}

	expired, err := r.certs.FindExpiredToday(ctx, brand.ID, now)
	if err != nil {
		summary.recordError("brand %s: query expired today: %v", brand.ID, err)
		return
	}
	for i := range expired {
		r.processExpired(ctx, brand, expired[i], summary)
	}
}

// processCertification handles one certification in one lookahead window.
// An existing alert counts as processed, not created.
func (r *ExpiryAlertRunner) processCertification(ctx context.Context, brand domain.Brand, cert domain.Certification, window int, summary *ExpirySummary) {
	summary.Processed++

	alertType := domain.AlertTypeForWindow(window)
	exists, err := r.alerts.Exists(ctx, cert.ID, alertType)
	if err != nil {
		summary.recordError("certification %s: alert exists check: %v", cert.ID, err)
		return
	}
	if exists {
		return
	}

	created, err := r.alerts.Create(ctx, &domain.Alert{
		CertificationID: cert.ID,
		BrandID:         brand.ID,
		Type:            alertType,
	})
	if err != nil {
		summary.recordError("certification %s: create %s alert: %v", cert.ID, alertType, err)
		return
	}
	if !created {
		// A concurrent run won the insert; nothing more to do.
		return
	}
	summary.AlertsCreated++

	if err := r.sendAlert(ctx, brand, cert, window); err != nil {
		summary.recordError("certification %s: send %s alert email: %v", cert.ID, alertType, err)
		return
	}
	summary.EmailsSent++
}

// processExpired handles one certification whose expiry date is today. On
// top of the usual alert handling, the stored status is flipped to EXPIRED.
func (r *ExpiryAlertRunner) processExpired(ctx context.Context, brand domain.Brand, cert domain.Certification, summary *ExpirySummary) {
	r.processCertification(ctx, brand, cert, 0, summary)

	if cert.Status == domain.StatusExpired {
		return
	}
	if err := r.certs.UpdateStatus(ctx, cert.ID, domain.StatusExpired); err != nil {
		summary.recordError("certification %s: mark expired: %v", cert.ID, err)
	}
}

func (r *ExpiryAlertRunner) sendAlert(ctx context.Context, brand domain.Brand, cert domain.Certification, window int) error {
	return r.sender.SendExpiryAlert(ctx, notify.ExpiryAlertEmail{
		To:                brand.ContactEmail,
		BrandName:         brand.CompanyName,
		SupplierName:      cert.SupplierName,
		CertificationName: certificationName(cert),
		CertificationType: cert.Type,
		ExpiryDate:        cert.ExpiryDate,
		DaysUntilExpiry:   window,
		CertificationURL:  r.certificationURL(cert.ID),
	})
}

func (r *ExpiryAlertRunner) certificationURL(id string) string {
	if r.dashboardBaseURL == "" {
		return ""
	}
	return fmt.Sprintf("%s/certifications/%s", r.dashboardBaseURL, id)
}

func certificationName(c domain.Certification) string {
	if c.CertificateNumber != "" {
		return fmt.Sprintf("%s %s", c.Type, c.CertificateNumber)
	}
	return string(c.Type)
}

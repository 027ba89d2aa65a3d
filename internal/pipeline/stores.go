// Package pipeline implements the scheduler-triggered batch jobs: the
// expiry alert pipeline and the re-verification pipeline. Both run as one
// synchronous pass per invocation, collect per-item errors instead of
// aborting, and return an aggregate summary for the scheduler.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// ErrRunInProgress is returned when another invocation of the same pipeline
// holds the run lock. The caller should treat the invocation as a no-op,
// not a failure of the pipeline itself.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// CertificationStore is the certification persistence consumed by the
// pipelines. Implemented by postgres.CertificationRepo.
type CertificationStore interface {
	FindExpiringInDays(ctx context.Context, brandID string, days int, now time.Time) ([]domain.Certification, error)
	FindExpiredToday(ctx context.Context, brandID string, now time.Time) ([]domain.Certification, error)
	FindVerifiedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Certification, error)
	UpdateVerification(ctx context.Context, id string, result domain.VerificationResult, needsReview bool, verifiedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.CertificationStatus) error
}

// AlertStore is the alert persistence consumed by the expiry pipeline.
// Create must be idempotent per (certification, type): it reports false
// instead of erroring when the pair already has an alert.
type AlertStore interface {
	Exists(ctx context.Context, certificationID string, alertType domain.AlertType) (bool, error)
	Create(ctx context.Context, a *domain.Alert) (bool, error)
}

// BrandDirectory lists the tenant brands.
type BrandDirectory interface {
	List(ctx context.Context) ([]domain.Brand, error)
}

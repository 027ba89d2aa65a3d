package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// AlertRepo is the PostgreSQL-backed alert store. The schema carries a
// unique constraint on (certification_id, alert_type); the insert treats a
// conflict as "already exists", so deduplication holds even when two
// pipeline runs overlap.
type AlertRepo struct{ db *sql.DB }

// NewAlertRepo creates a Postgres-backed alert repository.
func NewAlertRepo(db *sql.DB) *AlertRepo { return &AlertRepo{db: db} }

// Exists reports whether an alert of the given type already exists for the
// certification. Fast path only; Create remains the dedup authority.
func (r *AlertRepo) Exists(ctx context.Context, certificationID string, alertType domain.AlertType) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM alerts WHERE certification_id = $1 AND alert_type = $2)`,
		certificationID, alertType,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("alert exists check: %w", err)
	}
	return exists, nil
}

// Create inserts an alert. Returns true when a row was actually inserted,
// false when the (certification, type) pair already had one.
func (r *AlertRepo) Create(ctx context.Context, a *domain.Alert) (bool, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (id, certification_id, brand_id, alert_type, sent_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (certification_id, alert_type) DO NOTHING
	`, a.ID, a.CertificationID, a.BrandID, a.Type)
	if err != nil {
		return false, fmt.Errorf("create alert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create alert: rows affected: %w", err)
	}
	return n > 0, nil
}

// Package postgres implements the store interfaces consumed by the
// verification and alerting pipelines against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// CertificationRepo is the PostgreSQL-backed certification store.
type CertificationRepo struct{ db *sql.DB }

// NewCertificationRepo creates a Postgres-backed certification repository.
func NewCertificationRepo(db *sql.DB) *CertificationRepo { return &CertificationRepo{db: db} }

const certColumns = `c.id, c.supplier_id, s.brand_id, c.cert_type, c.certificate_number,
	c.issuing_body, c.issue_date, c.expiry_date, c.status,
	c.verification_status, c.verification_method, c.verification_confidence,
	c.verification_details, c.last_verified_at, c.needs_review, c.document_key,
	s.name, c.created_at, c.updated_at`

// FindExpiringInDays returns a brand's certifications whose expiry date
// falls exactly on now+days, at day granularity. Already-EXPIRED
// certifications are excluded; they belong to the expired-today pass.
func (r *CertificationRepo) FindExpiringInDays(ctx context.Context, brandID string, days int, now time.Time) ([]domain.Certification, error) {
	dayStart := startOfDay(now).AddDate(0, 0, days)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+certColumns+`
		FROM certifications c
		JOIN suppliers s ON s.id = c.supplier_id
		WHERE s.brand_id = $1
		  AND c.expiry_date >= $2 AND c.expiry_date < $3
		  AND c.status != $4
		ORDER BY c.expiry_date, c.id
	`, brandID, dayStart, dayEnd, domain.StatusExpired)
	if err != nil {
		return nil, fmt.Errorf("find expiring in %d days: %w", days, err)
	}
	defer rows.Close()
	return scanCertifications(rows)
}

// FindExpiredToday returns a brand's certifications whose expiry date is
// within today's calendar day, regardless of status.
func (r *CertificationRepo) FindExpiredToday(ctx context.Context, brandID string, now time.Time) ([]domain.Certification, error) {
	dayStart := startOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+certColumns+`
		FROM certifications c
		JOIN suppliers s ON s.id = c.supplier_id
		WHERE s.brand_id = $1
		  AND c.expiry_date >= $2 AND c.expiry_date < $3
		ORDER BY c.expiry_date, c.id
	`, brandID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("find expired today: %w", err)
	}
	defer rows.Close()
	return scanCertifications(rows)
}

// FindVerifiedBefore returns up to limit VERIFIED certifications whose last
// verification is older than cutoff, never-verified ones included.
func (r *CertificationRepo) FindVerifiedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Certification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+certColumns+`
		FROM certifications c
		JOIN suppliers s ON s.id = c.supplier_id
		WHERE c.verification_status = $1
		  AND (c.last_verified_at IS NULL OR c.last_verified_at < $2)
		ORDER BY c.last_verified_at NULLS FIRST, c.id
		LIMIT $3
	`, domain.VerificationVerified, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("find verified before %s: %w", cutoff.Format("2006-01-02"), err)
	}
	defer rows.Close()
	return scanCertifications(rows)
}

// GetByID loads one certification.
func (r *CertificationRepo) GetByID(ctx context.Context, id string) (*domain.Certification, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+certColumns+`
		FROM certifications c
		JOIN suppliers s ON s.id = c.supplier_id
		WHERE c.id = $1
	`, id)

	c, err := scanCertification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get certification %s: %w", id, err)
	}
	return c, nil
}

// Create inserts a new certification (used by the ingestion flow).
func (r *CertificationRepo) Create(ctx context.Context, c *domain.Certification) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	details, err := json.Marshal(c.VerificationDetails)
	if err != nil {
		return fmt.Errorf("marshal verification details: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO certifications (
			id, supplier_id, cert_type, certificate_number, issuing_body,
			issue_date, expiry_date, status,
			verification_status, verification_method, verification_confidence,
			verification_details, needs_review, document_key,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
	`, c.ID, c.SupplierID, c.Type, c.CertificateNumber, c.IssuingBody,
		c.IssueDate, c.ExpiryDate, c.Status,
		c.VerificationStatus, c.VerificationMethod, c.VerificationConfidence,
		details, c.NeedsReview, c.DocumentKey)
	if err != nil {
		return fmt.Errorf("create certification: %w", err)
	}
	return nil
}

// UpdateVerification folds a verification result into the stored
// certification and stamps last_verified_at.
func (r *CertificationRepo) UpdateVerification(ctx context.Context, id string, result domain.VerificationResult, needsReview bool, verifiedAt time.Time) error {
	result.ClampConfidence()
	details, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("marshal verification details: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE certifications
		SET verification_status = $2,
		    verification_method = $3,
		    verification_confidence = $4,
		    verification_details = $5,
		    last_verified_at = $6,
		    needs_review = $7,
		    updated_at = NOW()
		WHERE id = $1
	`, id, result.Status, result.Method, result.Confidence, details, verifiedAt, needsReview)
	if err != nil {
		return fmt.Errorf("update verification for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update verification for %s: not found", id)
	}
	return nil
}

// UpdateStatus sets the expiry lifecycle status.
func (r *CertificationRepo) UpdateStatus(ctx context.Context, id string, status domain.CertificationStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE certifications SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update status for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update status for %s: not found", id)
	}
	return nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertification(row rowScanner) (*domain.Certification, error) {
	var (
		c          domain.Certification
		certNumber sql.NullString
		issuer     sql.NullString
		issueDate  sql.NullTime
		lastVer    sql.NullTime
		docKey     sql.NullString
		details    []byte
	)
	err := row.Scan(
		&c.ID, &c.SupplierID, &c.BrandID, &c.Type, &certNumber,
		&issuer, &issueDate, &c.ExpiryDate, &c.Status,
		&c.VerificationStatus, &c.VerificationMethod, &c.VerificationConfidence,
		&details, &lastVer, &c.NeedsReview, &docKey,
		&c.SupplierName, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.CertificateNumber = certNumber.String
	c.IssuingBody = issuer.String
	c.DocumentKey = docKey.String
	if issueDate.Valid {
		t := issueDate.Time
		c.IssueDate = &t
	}
	if lastVer.Valid {
		t := lastVer.Time
		c.LastVerifiedAt = &t
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &c.VerificationDetails); err != nil {
			return nil, fmt.Errorf("unmarshal verification details: %w", err)
		}
	}
	return &c, nil
}

func scanCertifications(rows *sql.Rows) ([]domain.Certification, error) {
	var out []domain.Certification
	for rows.Next() {
		c, err := scanCertification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan certification: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

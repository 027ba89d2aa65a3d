package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// BrandRepo is the PostgreSQL-backed brand directory.
type BrandRepo struct{ db *sql.DB }

// NewBrandRepo creates a Postgres-backed brand repository.
func NewBrandRepo(db *sql.DB) *BrandRepo { return &BrandRepo{db: db} }

// List returns every brand, ordered by company name.
func (r *BrandRepo) List(ctx context.Context) ([]domain.Brand, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_name, contact_email, created_at
		FROM brands
		ORDER BY company_name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	defer rows.Close()

	var out []domain.Brand
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.CompanyName, &b.ContactEmail, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan brand: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetSupplier loads one supplier (used by the ingestion flow to resolve the
// owning brand).
func (r *BrandRepo) GetSupplier(ctx context.Context, supplierID string) (*domain.Supplier, error) {
	var s domain.Supplier
	err := r.db.QueryRowContext(ctx, `
		SELECT id, brand_id, name, COALESCE(country, ''), created_at
		FROM suppliers WHERE id = $1
	`, supplierID).Scan(&s.ID, &s.BrandID, &s.Name, &s.Country, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get supplier %s: %w", supplierID, err)
	}
	return &s, nil
}

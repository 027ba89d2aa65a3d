package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/supplyvault/compliance-monitor/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func certRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "supplier_id", "brand_id", "cert_type", "certificate_number",
		"issuing_body", "issue_date", "expiry_date", "status",
		"verification_status", "verification_method", "verification_confidence",
		"verification_details", "last_verified_at", "needs_review", "document_key",
		"name", "created_at", "updated_at",
	})
}

func TestFindExpiringInDaysDayBucket(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 3, 15, 17, 45, 12, 0, time.UTC)
	wantStart := time.Date(2026, 6, 13, 0, 0, 0, 0, time.UTC) // today + 90d, midnight
	wantEnd := wantStart.AddDate(0, 0, 1)

	expiry := wantStart.Add(10 * time.Hour)
	mock.ExpectQuery(`SELECT .+ FROM certifications c\s+JOIN suppliers s`).
		WithArgs("brand-1", wantStart, wantEnd, string(domain.StatusExpired)).
		WillReturnRows(certRows().AddRow(
			"cert-1", "sup-1", "brand-1", "GOTS", "CU-1034567",
			"Control Union", nil, expiry, "VALID",
			"VERIFIED", "api", 0.9,
			[]byte(`{"holder":"Sunrise Textiles"}`), now.AddDate(0, 0, -10), false, nil,
			"Sunrise Textiles", now, now,
		))

	repo := NewCertificationRepo(db)
	certs, err := repo.FindExpiringInDays(context.Background(), "brand-1", 90, now)
	if err != nil {
		t.Fatalf("FindExpiringInDays() error: %v", err)
	}
	if len(certs) != 1 {
		t.Fatalf("got %d certifications, want 1", len(certs))
	}
	if certs[0].CertificateNumber != "CU-1034567" {
		t.Errorf("certificate number = %q, want CU-1034567", certs[0].CertificateNumber)
	}
	if certs[0].VerificationDetails["holder"] != "Sunrise Textiles" {
		t.Errorf("details not unmarshalled: %v", certs[0].VerificationDetails)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFindExpiredTodayBucket(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 3, 15, 2, 0, 0, 0, time.UTC)
	wantStart := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	wantEnd := wantStart.AddDate(0, 0, 1)

	mock.ExpectQuery(`SELECT .+ FROM certifications c\s+JOIN suppliers s`).
		WithArgs("brand-1", wantStart, wantEnd).
		WillReturnRows(certRows())

	repo := NewCertificationRepo(db)
	certs, err := repo.FindExpiredToday(context.Background(), "brand-1", now)
	if err != nil {
		t.Fatalf("FindExpiredToday() error: %v", err)
	}
	if len(certs) != 0 {
		t.Errorf("got %d certifications, want 0", len(certs))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestFindVerifiedBefore(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	cutoff := time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM certifications c`).
		WithArgs(string(domain.VerificationVerified), cutoff, 100).
		WillReturnRows(certRows())

	repo := NewCertificationRepo(db)
	_, err := repo.FindVerifiedBefore(context.Background(), cutoff, 100)
	if err != nil {
		t.Fatalf("FindVerifiedBefore() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateVerificationClampsConfidence(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	verifiedAt := time.Date(2026, 3, 15, 6, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE certifications`).
		WithArgs("cert-1", string(domain.VerificationVerified), string(domain.MethodListMatching),
			1.0, []byte(`{"matched_number":"SA8000-2024-001"}`), verifiedAt, false).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCertificationRepo(db)
	err := repo.UpdateVerification(context.Background(), "cert-1", domain.VerificationResult{
		Status:     domain.VerificationVerified,
		Method:     domain.MethodListMatching,
		Confidence: 1.3, // out of range, must be clamped before persisting
		Details:    map[string]string{"matched_number": "SA8000-2024-001"},
	}, false, verifiedAt)
	if err != nil {
		t.Fatalf("UpdateVerification() error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateStatusNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE certifications SET status`).
		WithArgs("missing", string(domain.StatusExpired)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCertificationRepo(db)
	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusExpired)
	if err == nil {
		t.Fatal("UpdateStatus() on missing row should error")
	}
}

func TestAlertCreateInserted(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO alerts`).
		WithArgs(sqlmock.AnyArg(), "cert-1", "brand-1", string(domain.AlertThirtyDay)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewAlertRepo(db)
	created, err := repo.Create(context.Background(), &domain.Alert{
		CertificationID: "cert-1",
		BrandID:         "brand-1",
		Type:            domain.AlertThirtyDay,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if !created {
		t.Error("Create() = false, want true for fresh pair")
	}
}

func TestAlertCreateConflictIsNoop(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// ON CONFLICT DO NOTHING reports zero rows affected.
	mock.ExpectExec(`INSERT INTO alerts`).
		WithArgs(sqlmock.AnyArg(), "cert-1", "brand-1", string(domain.AlertThirtyDay)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewAlertRepo(db)
	created, err := repo.Create(context.Background(), &domain.Alert{
		CertificationID: "cert-1",
		BrandID:         "brand-1",
		Type:            domain.AlertThirtyDay,
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created {
		t.Error("Create() = true on conflict, want false")
	}
}

func TestAlertExists(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("cert-1", string(domain.AlertExpired)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewAlertRepo(db)
	exists, err := repo.Exists(context.Background(), "cert-1", domain.AlertExpired)
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if !exists {
		t.Error("Exists() = false, want true")
	}
}

func TestBrandList(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, company_name, contact_email, created_at\s+FROM brands`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_name", "contact_email", "created_at"}).
			AddRow("brand-1", "Acme Apparel", "ops@brand.test", now).
			AddRow("brand-2", "Northwind Garments", "compliance@northwind.test", now))

	repo := NewBrandRepo(db)
	brands, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(brands) != 2 {
		t.Fatalf("got %d brands, want 2", len(brands))
	}
	if brands[0].ContactEmail != "ops@brand.test" {
		t.Errorf("contact email = %q, want ops@brand.test", brands[0].ContactEmail)
	}
}

package domain

import (
	"time"
)

// CertificationType enumerates the compliance standards SupplyVault tracks.
type CertificationType string

const (
	CertGOTS      CertificationType = "GOTS"
	CertOekoTex   CertificationType = "OEKO_TEX"
	CertSA8000    CertificationType = "SA8000"
	CertBSCI      CertificationType = "BSCI"
	CertISO14001  CertificationType = "ISO_14001"
	CertFairTrade CertificationType = "FAIR_TRADE"
	CertGRS       CertificationType = "GRS"
	CertOther     CertificationType = "OTHER"
)

// CertificationStatus enumerates the expiry lifecycle of a certification.
// It is derived from the expiry date by the write paths, not computed on read.
type CertificationStatus string

const (
	StatusValid        CertificationStatus = "VALID"
	StatusExpiringSoon CertificationStatus = "EXPIRING_SOON"
	StatusExpired      CertificationStatus = "EXPIRED"
)

// VerificationStatus enumerates the outcome of authenticity verification.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationFailed   VerificationStatus = "FAILED"
)

// VerificationMethod tags how a verification result was obtained.
type VerificationMethod string

const (
	MethodManual       VerificationMethod = "manual"
	MethodAPI          VerificationMethod = "api"
	MethodWebScraping  VerificationMethod = "web_scraping"
	MethodListMatching VerificationMethod = "list_matching"
)

// Certification represents a supplier's compliance credential for one
// named standard.
type Certification struct {
	ID                     string              `json:"id" db:"id"`
	SupplierID             string              `json:"supplier_id" db:"supplier_id"`
	BrandID                string              `json:"brand_id" db:"brand_id"`
	Type                   CertificationType   `json:"type" db:"cert_type"`
	CertificateNumber      string              `json:"certificate_number" db:"certificate_number"`
	IssuingBody            string              `json:"issuing_body" db:"issuing_body"`
	IssueDate              *time.Time          `json:"issue_date" db:"issue_date"`
	ExpiryDate             time.Time           `json:"expiry_date" db:"expiry_date"`
	Status                 CertificationStatus `json:"status" db:"status"`
	VerificationStatus     VerificationStatus  `json:"verification_status" db:"verification_status"`
	VerificationMethod     VerificationMethod  `json:"verification_method" db:"verification_method"`
	VerificationConfidence float64             `json:"verification_confidence" db:"verification_confidence"`
	VerificationDetails    map[string]string   `json:"verification_details" db:"verification_details"`
	LastVerifiedAt         *time.Time          `json:"last_verified_at" db:"last_verified_at"`
	NeedsReview            bool                `json:"needs_review" db:"needs_review"`
	DocumentKey            string              `json:"document_key,omitempty" db:"document_key"`
	SupplierName           string              `json:"supplier_name,omitempty" db:"-"`
	CreatedAt              time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at" db:"updated_at"`
}

// VerificationResult is the transient outcome of one verification attempt.
// It is never persisted on its own; its fields are folded into the owning
// Certification by the caller.
type VerificationResult struct {
	Status     VerificationStatus `json:"status"`
	Method     VerificationMethod `json:"method"`
	Confidence float64            `json:"confidence"`
	Verified   bool               `json:"verified"`
	Details    map[string]string  `json:"details,omitempty"`
}

// ClampConfidence forces the confidence into [0,1].
func (r *VerificationResult) ClampConfidence() {
	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}
}

// Revoked reports whether this result means the certification is no longer
// affirmatively verified (FAILED or back to PENDING).
func (r VerificationResult) Revoked() bool {
	return r.Status == VerificationFailed || r.Status == VerificationPending
}

// KnownCertificationTypes lists every type the platform accepts on ingest.
func KnownCertificationTypes() []CertificationType {
	return []CertificationType{
		CertGOTS, CertOekoTex, CertSA8000, CertBSCI,
		CertISO14001, CertFairTrade, CertGRS, CertOther,
	}
}

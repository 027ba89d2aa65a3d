// Package notify sends expiry-alert and revocation emails to brand
// contacts through AWS SES. Message bodies are rendered with Liquid
// templates so deployments can restyle them without code changes.
package notify

import (
	"context"
	"time"

	"github.com/supplyvault/compliance-monitor/internal/domain"
)

// RevocationSentinel in DaysUntilExpiry marks a message as a revocation
// notice rather than an expiry alert.
const RevocationSentinel = -1

// ExpiryAlertEmail carries the template data for one alert email.
type ExpiryAlertEmail struct {
	To                string
	BrandName         string
	SupplierName      string
	CertificationName string
	CertificationType domain.CertificationType
	ExpiryDate        time.Time
	DaysUntilExpiry   int
	CertificationURL  string
}

// IsRevocation reports whether this message is a revocation notice.
func (e ExpiryAlertEmail) IsRevocation() bool {
	return e.DaysUntilExpiry == RevocationSentinel
}

// Sender delivers alert emails. Implementations report delivery failure via
// the error return; the pipelines record those as non-fatal errors.
type Sender interface {
	SendExpiryAlert(ctx context.Context, email ExpiryAlertEmail) error
}

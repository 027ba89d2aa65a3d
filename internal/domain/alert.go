package domain

import "time"

// AlertType enumerates the expiry lookahead windows an alert can represent.
type AlertType string

const (
	AlertNinetyDay AlertType = "NINETY_DAY"
	AlertThirtyDay AlertType = "THIRTY_DAY"
	AlertSevenDay  AlertType = "SEVEN_DAY"
	AlertExpired   AlertType = "EXPIRED"
)

// AlertTypeForWindow maps a day offset to its alert type. Returns "" for an
// offset that has no window.
func AlertTypeForWindow(days int) AlertType {
	switch days {
	case 90:
		return AlertNinetyDay
	case 30:
		return AlertThirtyDay
	case 7:
		return AlertSevenDay
	case 0:
		return AlertExpired
	}
	return ""
}

// Alert records that a brand was notified about a certification crossing an
// expiry threshold. At most one alert exists per (certification, type) pair;
// the store enforces this with a unique constraint.
type Alert struct {
	ID              string    `json:"id" db:"id"`
	CertificationID string    `json:"certification_id" db:"certification_id"`
	BrandID         string    `json:"brand_id" db:"brand_id"`
	Type            AlertType `json:"alert_type" db:"alert_type"`
	SentAt          time.Time `json:"sent_at" db:"sent_at"`
}

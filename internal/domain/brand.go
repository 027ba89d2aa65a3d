package domain

import "time"

// Brand is a tenant: an apparel brand tracking its suppliers' certifications.
type Brand struct {
	ID           string    `json:"id" db:"id"`
	CompanyName  string    `json:"company_name" db:"company_name"`
	ContactEmail string    `json:"contact_email" db:"contact_email"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Supplier is a factory or vendor owned by one brand. Each supplier holds
// zero or more certifications.
type Supplier struct {
	ID        string    `json:"id" db:"id"`
	BrandID   string    `json:"brand_id" db:"brand_id"`
	Name      string    `json:"name" db:"name"`
	Country   string    `json:"country,omitempty" db:"country"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

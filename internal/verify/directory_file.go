package verify

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// facilityRecord is the on-disk shape of one SA8000 directory entry.
type facilityRecord struct {
	CertificateNumber string `json:"certificate_number"`
	HolderName        string `json:"holder_name"`
	Country           string `json:"country"`
	ValidFrom         string `json:"valid_from"`
	ValidUntil        string `json:"valid_until"`
}

// LoadFacilityDirectory reads a JSON array of SA8000 facility records from
// disk and builds an in-memory directory. Dates use YYYY-MM-DD.
func LoadFacilityDirectory(path string) (*InMemoryFacilityDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading facility directory %s: %w", path, err)
	}

	var records []facilityRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing facility directory %s: %w", path, err)
	}

	facilities := make([]Facility, 0, len(records))
	for i, rec := range records {
		if rec.CertificateNumber == "" {
			return nil, fmt.Errorf("facility directory %s: record %d has no certificate number", path, i)
		}
		f := Facility{
			CertificateNumber: rec.CertificateNumber,
			HolderName:        rec.HolderName,
			Country:           rec.Country,
		}
		if rec.ValidFrom != "" {
			f.ValidFrom, err = time.Parse("2006-01-02", rec.ValidFrom)
			if err != nil {
				return nil, fmt.Errorf("facility directory %s: record %d valid_from: %w", path, i, err)
			}
		}
		if rec.ValidUntil != "" {
			f.ValidUntil, err = time.Parse("2006-01-02", rec.ValidUntil)
			if err != nil {
				return nil, fmt.Errorf("facility directory %s: record %d valid_until: %w", path, i, err)
			}
		}
		facilities = append(facilities, f)
	}

	return NewInMemoryFacilityDirectory(facilities), nil
}

package enums

import "fmt"

// Jurisdiction selects the tax rule variant configured for a company.
type Jurisdiction string

const (
	JurisdictionDE Jurisdiction = "DE"
	JurisdictionUS Jurisdiction = "US"
	JurisdictionAU Jurisdiction = "AU"
	JurisdictionZZ Jurisdiction = "ZZ" // zero-rate fallback for unsupported regions
)

var validJurisdictions = []Jurisdiction{
	JurisdictionDE,
	JurisdictionUS,
	JurisdictionAU,
	JurisdictionZZ,
}

// String implements fmt.Stringer.
func (j Jurisdiction) String() string {
	return string(j)
}

// IsValid reports whether the value is known.
func (j Jurisdiction) IsValid() bool {
	for _, candidate := range validJurisdictions {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJurisdiction converts raw input into a Jurisdiction.
func ParseJurisdiction(value string) (Jurisdiction, error) {
	for _, candidate := range validJurisdictions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid jurisdiction %q", value)
}

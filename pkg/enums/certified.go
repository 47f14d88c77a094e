package enums

import "fmt"

// Certified describes the certification requirement carried on a booking.
// The n_ variants mean the customer asked for a non-certified translator but
// accepts the specialisation as a fallback.
type Certified string

const (
	CertifiedYes       Certified = "yes"
	CertifiedNo        Certified = "no"
	CertifiedBoth      Certified = "both"
	CertifiedNormal    Certified = "normal"
	CertifiedLaw       Certified = "law"
	CertifiedNLaw      Certified = "n_law"
	CertifiedHealth    Certified = "health"
	CertifiedNHealth   Certified = "n_health"
)

var validCertified = []Certified{
	CertifiedYes,
	CertifiedNo,
	CertifiedBoth,
	CertifiedNormal,
	CertifiedLaw,
	CertifiedNLaw,
	CertifiedHealth,
	CertifiedNHealth,
}

// IsValid reports whether the value matches the canonical certified enum.
func (c Certified) IsValid() bool {
	for _, candidate := range validCertified {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCertified converts the raw string to Certified.
func ParseCertified(value string) (Certified, error) {
	for _, candidate := range validCertified {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid certified value %q", value)
}

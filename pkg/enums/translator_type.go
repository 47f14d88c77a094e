package enums

import "fmt"

// TranslatorType describes a translator's qualification category.
type TranslatorType string

const (
	TranslatorTypeProfessional TranslatorType = "professional"
	TranslatorTypeRWS          TranslatorType = "rwstranslator"
	TranslatorTypeVolunteer    TranslatorType = "volunteer"
)

var validTranslatorTypes = []TranslatorType{
	TranslatorTypeProfessional,
	TranslatorTypeRWS,
	TranslatorTypeVolunteer,
}

// IsValid reports whether the value matches the canonical translator type enum.
func (t TranslatorType) IsValid() bool {
	for _, candidate := range validTranslatorTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTranslatorType converts the raw string to TranslatorType.
func ParseTranslatorType(value string) (TranslatorType, error) {
	for _, candidate := range validTranslatorTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid translator type %q", value)
}

// JobType returns the job category this translator category may serve.
// Unknown categories fall back to unpaid work, matching how volunteer
// accounts are provisioned.
func (t TranslatorType) JobType() JobType {
	switch t {
	case TranslatorTypeProfessional:
		return JobTypePaid
	case TranslatorTypeRWS:
		return JobTypeRWS
	default:
		return JobTypeUnpaid
	}
}

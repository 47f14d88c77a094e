package enums

import "fmt"

// JobType describes the commercial category of a booking.
type JobType string

const (
	JobTypePaid   JobType = "paid"
	JobTypeRWS    JobType = "rws"
	JobTypeUnpaid JobType = "unpaid"
)

var validJobTypes = []JobType{JobTypePaid, JobTypeRWS, JobTypeUnpaid}

// IsValid reports whether the value matches the canonical job type enum.
func (j JobType) IsValid() bool {
	for _, candidate := range validJobTypes {
		if candidate == j {
			return true
		}
	}
	return false
}

// ParseJobType converts the raw string to JobType.
func ParseJobType(value string) (JobType, error) {
	for _, candidate := range validJobTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job type %q", value)
}

// TranslatorType returns the translator qualification category that may serve
// jobs of this type.
func (j JobType) TranslatorType() TranslatorType {
	switch j {
	case JobTypePaid:
		return TranslatorTypeProfessional
	case JobTypeRWS:
		return TranslatorTypeRWS
	default:
		return TranslatorTypeVolunteer
	}
}

// JobTypeForConsumer maps a customer's consumer category to the job type
// derived at booking creation.
func JobTypeForConsumer(consumer ConsumerType) JobType {
	switch consumer {
	case ConsumerTypeRWS:
		return JobTypeRWS
	case ConsumerTypeNGO:
		return JobTypeUnpaid
	case ConsumerTypePaid:
		return JobTypePaid
	default:
		return JobTypeUnpaid
	}
}

package enums

import "fmt"

// ConsumerType describes the commercial category of a customer account.
type ConsumerType string

const (
	ConsumerTypeRWS  ConsumerType = "rwsconsumer"
	ConsumerTypeNGO  ConsumerType = "ngo"
	ConsumerTypePaid ConsumerType = "paid"
)

var validConsumerTypes = []ConsumerType{ConsumerTypeRWS, ConsumerTypeNGO, ConsumerTypePaid}

// IsValid reports whether the value matches the canonical consumer type enum.
func (c ConsumerType) IsValid() bool {
	for _, candidate := range validConsumerTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConsumerType converts the raw string to ConsumerType.
func ParseConsumerType(value string) (ConsumerType, error) {
	for _, candidate := range validConsumerTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid consumer type %q", value)
}

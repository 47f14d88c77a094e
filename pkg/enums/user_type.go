package enums

import "fmt"

// UserType describes the role of a platform account.
type UserType string

const (
	UserTypeCustomer   UserType = "customer"
	UserTypeTranslator UserType = "translator"
	UserTypeAdmin      UserType = "admin"
	UserTypeSuperadmin UserType = "superadmin"
)

var validUserTypes = []UserType{
	UserTypeCustomer,
	UserTypeTranslator,
	UserTypeAdmin,
	UserTypeSuperadmin,
}

// IsValid reports whether the value matches the canonical user type enum.
func (u UserType) IsValid() bool {
	for _, candidate := range validUserTypes {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the account carries admin privileges.
func (u UserType) IsAdmin() bool {
	return u == UserTypeAdmin || u == UserTypeSuperadmin
}

// ParseUserType converts the raw string to UserType.
func ParseUserType(value string) (UserType, error) {
	for _, candidate := range validUserTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user type %q", value)
}

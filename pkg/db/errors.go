package db

import "strings"

// IsUniqueViolation reports whether err is a Postgres unique violation.
// With a constraintName the match is narrowed to that constraint, which
// lets callers distinguish an expected dedupe conflict from any other
// duplicate key error.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}

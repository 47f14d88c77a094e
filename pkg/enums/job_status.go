package enums

import "fmt"

// JobStatus describes the allowed values for the `status` column in jobs.
type JobStatus string

const (
	JobStatusPending              JobStatus = "pending"
	JobStatusAssigned             JobStatus = "assigned"
	JobStatusStarted              JobStatus = "started"
	JobStatusCompleted            JobStatus = "completed"
	JobStatusWithdrawBefore24     JobStatus = "withdrawbefore24"
	JobStatusWithdrawAfter24      JobStatus = "withdrawafter24"
	JobStatusTimedout             JobStatus = "timedout"
	JobStatusNotCarriedOutCustomer JobStatus = "not_carried_out_customer"
)

var validJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusAssigned,
	JobStatusStarted,
	JobStatusCompleted,
	JobStatusWithdrawBefore24,
	JobStatusWithdrawAfter24,
	JobStatusTimedout,
	JobStatusNotCarriedOutCustomer,
}

// ActiveJobStatuses are the statuses shown in the "current bookings" list.
var ActiveJobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusAssigned,
	JobStatusStarted,
}

// HistoricJobStatuses are the statuses shown in the booking history list.
var HistoricJobStatuses = []JobStatus{
	JobStatusCompleted,
	JobStatusWithdrawBefore24,
	JobStatusWithdrawAfter24,
	JobStatusTimedout,
}

// IsValid reports whether the value matches the canonical job status enum.
func (s JobStatus) IsValid() bool {
	for _, candidate := range validJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseJobStatus converts the raw string to JobStatus.
func ParseJobStatus(value string) (JobStatus, error) {
	for _, candidate := range validJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid job status %q", value)
}

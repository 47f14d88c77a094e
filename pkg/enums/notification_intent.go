package enums

import "fmt"

// NotificationIntent identifies the message class carried in a push payload.
// The wire values match the notification_type field the mobile apps key on.
type NotificationIntent string

const (
	IntentSuitableJob        NotificationIntent = "suitable_job"
	IntentJobAccepted        NotificationIntent = "job_accepted"
	IntentJobCancelled       NotificationIntent = "job_cancelled"
	IntentJobExpired         NotificationIntent = "job_expired"
	IntentSessionStartRemind NotificationIntent = "session_start_remind"
)

var validNotificationIntents = []NotificationIntent{
	IntentSuitableJob,
	IntentJobAccepted,
	IntentJobCancelled,
	IntentJobExpired,
	IntentSessionStartRemind,
}

// IsValid checks whether the given intent matches the canonical enum.
func (n NotificationIntent) IsValid() bool {
	for _, candidate := range validNotificationIntents {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationIntent converts raw strings into NotificationIntent.
func ParseNotificationIntent(value string) (NotificationIntent, error) {
	for _, candidate := range validNotificationIntents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification intent %q", value)
}

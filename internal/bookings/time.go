package bookings

import (
	"fmt"
	"time"
)

// WillExpireAt computes when an unaccepted booking falls out of the pending
// pool. Bookings due soon expire at their due time; bookings further out get
// a grace window proportional to the lead time.
func WillExpireAt(due, createdAt time.Time) time.Time {
	lead := due.Sub(createdAt)
	switch {
	case lead <= 90*time.Minute:
		return due
	case lead <= 24*time.Hour:
		return createdAt.Add(90 * time.Minute)
	case lead <= 72*time.Hour:
		return createdAt.Add(16 * time.Hour)
	default:
		return due.Add(-48 * time.Hour)
	}
}

// FormatSessionTime renders an elapsed session as H:MM:SS, the format stored
// on completed jobs.
func FormatSessionTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// ParseSessionTime converts a stored H:MM:SS value into a duration.
func ParseSessionTime(value string) (time.Duration, error) {
	var hours, minutes, seconds int
	if _, err := fmt.Sscanf(value, "%d:%d:%d", &hours, &minutes, &seconds); err != nil {
		return 0, fmt.Errorf("invalid session time %q: %w", value, err)
	}
	if minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 || hours < 0 {
		return 0, fmt.Errorf("invalid session time %q", value)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second, nil
}

// FormatHoursMins renders a duration the way session summaries word it, for
// example "1 tim 30 min" or "45 min".
func FormatHoursMins(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Minutes())
	hours := total / 60
	minutes := total % 60
	if hours == 0 {
		return fmt.Sprintf("%d min", minutes)
	}
	if minutes == 0 {
		return fmt.Sprintf("%d tim", hours)
	}
	return fmt.Sprintf("%d tim %d min", hours, minutes)
}

package businesshours

import (
	"fmt"
	"time"

	"github.com/nordtolk/booking-backend/pkg/config"
)

// Clock bounds immediate push delivery to daytime hours. Pushes falling
// outside the window are deferred to the next window start.
type Clock struct {
	dayStart   int
	nightStart int
	loc        *time.Location
}

// New validates the configured window and resolves the timezone.
func New(cfg config.BusinessHoursConfig) (*Clock, error) {
	if cfg.DayStartHour < 0 || cfg.DayStartHour > 23 {
		return nil, fmt.Errorf("day start hour %d out of range", cfg.DayStartHour)
	}
	if cfg.NightStartHour < 0 || cfg.NightStartHour > 23 {
		return nil, fmt.Errorf("night start hour %d out of range", cfg.NightStartHour)
	}
	if cfg.NightStartHour <= cfg.DayStartHour {
		return nil, fmt.Errorf("night start %d must be after day start %d", cfg.NightStartHour, cfg.DayStartHour)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}
	return &Clock{
		dayStart:   cfg.DayStartHour,
		nightStart: cfg.NightStartHour,
		loc:        loc,
	}, nil
}

// IsNightTime reports whether t falls outside the delivery window.
func (c *Clock) IsNightTime(t time.Time) bool {
	hour := t.In(c.loc).Hour()
	return hour >= c.nightStart || hour < c.dayStart
}

// NextBusinessTime returns the next window start at or after t. A time
// already inside the window is returned unchanged.
func (c *Clock) NextBusinessTime(t time.Time) time.Time {
	local := t.In(c.loc)
	if !c.IsNightTime(local) {
		return t
	}
	day := local
	if local.Hour() >= c.nightStart {
		day = local.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.dayStart, 0, 0, 0, c.loc)
}

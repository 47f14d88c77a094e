package businesshours

import (
	"testing"
	"time"

	"github.com/nordtolk/booking-backend/pkg/config"
)

func newTestClock(t *testing.T) *Clock {
	t.Helper()
	clock, err := New(config.BusinessHoursConfig{
		DayStartHour:   9,
		NightStartHour: 21,
		Timezone:       "UTC",
	})
	if err != nil {
		t.Fatalf("building clock: %v", err)
	}
	return clock
}

func TestIsNightTime(t *testing.T) {
	clock := newTestClock(t)

	tests := []struct {
		hour  int
		night bool
	}{
		{hour: 0, night: true},
		{hour: 8, night: true},
		{hour: 9, night: false},
		{hour: 14, night: false},
		{hour: 20, night: false},
		{hour: 21, night: true},
		{hour: 23, night: true},
	}
	for _, tt := range tests {
		at := time.Date(2025, 3, 10, tt.hour, 30, 0, 0, time.UTC)
		if got := clock.IsNightTime(at); got != tt.night {
			t.Fatalf("hour %d: expected night=%v got %v", tt.hour, tt.night, got)
		}
	}
}

func TestNextBusinessTime(t *testing.T) {
	clock := newTestClock(t)

	daytime := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	if got := clock.NextBusinessTime(daytime); !got.Equal(daytime) {
		t.Fatalf("daytime should pass through, got %v", got)
	}

	lateEvening := time.Date(2025, 3, 10, 22, 15, 0, 0, time.UTC)
	want := time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)
	if got := clock.NextBusinessTime(lateEvening); !got.Equal(want) {
		t.Fatalf("late evening: expected %v got %v", want, got)
	}

	earlyMorning := time.Date(2025, 3, 10, 6, 45, 0, 0, time.UTC)
	want = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	if got := clock.NextBusinessTime(earlyMorning); !got.Equal(want) {
		t.Fatalf("early morning: expected %v got %v", want, got)
	}
}

func TestNewRejectsInvalidWindow(t *testing.T) {
	_, err := New(config.BusinessHoursConfig{DayStartHour: 10, NightStartHour: 9, Timezone: "UTC"})
	if err == nil {
		t.Fatal("expected invalid window error")
	}
	_, err = New(config.BusinessHoursConfig{DayStartHour: 9, NightStartHour: 21, Timezone: "Not/AZone"})
	if err == nil {
		t.Fatal("expected timezone error")
	}
}

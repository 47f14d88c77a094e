package bookings

import (
	"testing"
	"time"
)

func TestWillExpireAt(t *testing.T) {
	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		due  time.Time
		want time.Time
	}{
		{
			name: "due within 90 minutes expires at due",
			due:  created.Add(45 * time.Minute),
			want: created.Add(45 * time.Minute),
		},
		{
			name: "due within a day gets a 90 minute window",
			due:  created.Add(10 * time.Hour),
			want: created.Add(90 * time.Minute),
		},
		{
			name: "due within three days gets a 16 hour window",
			due:  created.Add(48 * time.Hour),
			want: created.Add(16 * time.Hour),
		},
		{
			name: "far out booking expires two days before due",
			due:  created.Add(7 * 24 * time.Hour),
			want: created.Add(7 * 24 * time.Hour).Add(-48 * time.Hour),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WillExpireAt(tc.due, created)
			if !got.Equal(tc.want) {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestFormatSessionTime(t *testing.T) {
	if got := FormatSessionTime(90 * time.Minute); got != "1:30:00" {
		t.Fatalf("got %q", got)
	}
	if got := FormatSessionTime(45*time.Second + 5*time.Minute); got != "0:05:45" {
		t.Fatalf("got %q", got)
	}
	if got := FormatSessionTime(-time.Minute); got != "0:00:00" {
		t.Fatalf("negative durations should clamp, got %q", got)
	}
}

func TestParseSessionTime(t *testing.T) {
	d, err := ParseSessionTime("1:30:00")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if d != 90*time.Minute {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseSessionTime("not a time"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ParseSessionTime("1:75:00"); err == nil {
		t.Fatal("expected range error")
	}
}

func TestFormatHoursMins(t *testing.T) {
	if got := FormatHoursMins(90 * time.Minute); got != "1 tim 30 min" {
		t.Fatalf("got %q", got)
	}
	if got := FormatHoursMins(2 * time.Hour); got != "2 tim" {
		t.Fatalf("got %q", got)
	}
	if got := FormatHoursMins(45 * time.Minute); got != "45 min" {
		t.Fatalf("got %q", got)
	}
}

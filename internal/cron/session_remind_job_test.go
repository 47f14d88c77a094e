package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
)

type fakeReminderMarker struct {
	seen map[string]bool
}

func (f *fakeReminderMarker) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func (f *fakeReminderMarker) CounterKey(name string) string {
	return "nt:counter:" + name
}

type fakeReminderNotifier struct {
	reminded []uuid.UUID
}

func (f *fakeReminderNotifier) SessionReminder(ctx context.Context, job *models.Job, translator *models.User) error {
	f.reminded = append(f.reminded, job.ID)
	return nil
}

func TestSessionRemindJobSendsOnce(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	repo := newFakeBookingsRepo()
	translator := &models.User{ID: uuid.New(), Email: "tolk@example.com", Type: enums.UserTypeTranslator}
	repo.users[translator.ID] = translator
	upcoming := models.Job{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		Status:       enums.JobStatusAssigned,
		Due:          now.Add(5 * time.Minute),
		DurationMins: 60,
		PhoneBooking: true,
	}
	repo.upcoming = []models.Job{upcoming}
	repo.assignment = &models.TranslatorAssignment{
		ID:               uuid.New(),
		JobID:            upcoming.ID,
		TranslatorUserID: translator.ID,
		Active:           true,
	}

	notifier := &fakeReminderNotifier{}
	marker := &fakeReminderMarker{}
	jobIface, err := NewSessionRemindJob(SessionRemindJobParams{
		Logger:   testLogger(),
		Repo:     repo,
		Notifier: notifier,
		Marker:   marker,
		LeadTime: 10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	job := jobIface.(*sessionRemindJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(notifier.reminded) != 1 || notifier.reminded[0] != upcoming.ID {
		t.Fatalf("expected one reminder, got %v", notifier.reminded)
	}

	// A second sweep inside the window must not re-send.
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(notifier.reminded) != 1 {
		t.Fatalf("expected reminder to stay deduplicated, got %d", len(notifier.reminded))
	}
}

func TestSessionRemindJobSkipsUnassigned(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	repo := newFakeBookingsRepo()
	repo.upcoming = []models.Job{{
		ID:         uuid.New(),
		CustomerID: uuid.New(),
		Status:     enums.JobStatusAssigned,
		Due:        now.Add(5 * time.Minute),
	}}

	notifier := &fakeReminderNotifier{}
	jobIface, err := NewSessionRemindJob(SessionRemindJobParams{
		Logger:   testLogger(),
		Repo:     repo,
		Notifier: notifier,
		Marker:   &fakeReminderMarker{},
	})
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	job := jobIface.(*sessionRemindJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(notifier.reminded) != 0 {
		t.Fatal("no reminder without an active assignment")
	}
}

package cron

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/booking-backend/internal/bookings"
	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
	"github.com/nordtolk/booking-backend/pkg/logger"
)

type fakeBookingsRepo struct {
	bookings.Repository

	expired    []models.Job
	upcoming   []models.Job
	jobs       map[uuid.UUID]*models.Job
	users      map[uuid.UUID]*models.User
	assignment *models.TranslatorAssignment
	updates    map[uuid.UUID]map[string]any
}

func newFakeBookingsRepo() *fakeBookingsRepo {
	return &fakeBookingsRepo{
		jobs:    make(map[uuid.UUID]*models.Job),
		users:   make(map[uuid.UUID]*models.User),
		updates: make(map[uuid.UUID]map[string]any),
	}
}

func (f *fakeBookingsRepo) WithTx(tx *gorm.DB) bookings.Repository { return f }

func (f *fakeBookingsRepo) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Job, error) {
	return f.expired, nil
}

func (f *fakeBookingsRepo) FindJobsDueBetween(ctx context.Context, from, to time.Time) ([]models.Job, error) {
	return f.upcoming, nil
}

func (f *fakeBookingsRepo) FindJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return job, nil
}

func (f *fakeBookingsRepo) UpdateJob(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates[id] = updates
	if job, ok := f.jobs[id]; ok {
		if status, ok := updates["status"].(enums.JobStatus); ok {
			job.Status = status
		}
	}
	return nil
}

func (f *fakeBookingsRepo) FindActiveAssignment(ctx context.Context, jobID uuid.UUID) (*models.TranslatorAssignment, error) {
	return f.assignment, nil
}

func (f *fakeBookingsRepo) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakeExpiryNotifier struct {
	expired []uuid.UUID
}

func (f *fakeExpiryNotifier) JobExpired(ctx context.Context, job *models.Job, customer *models.User) error {
	f.expired = append(f.expired, job.ID)
	return nil
}

type cronTxRunner struct{}

func (cronTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard})
}

func TestBookingExpiryJobTimesOutStaleBookings(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	repo := newFakeBookingsRepo()
	customer := &models.User{ID: uuid.New(), Email: "kund@example.com", Type: enums.UserTypeCustomer}
	repo.users[customer.ID] = customer
	stale := &models.Job{
		ID:           uuid.New(),
		CustomerID:   customer.ID,
		Status:       enums.JobStatusPending,
		Due:          now.Add(30 * time.Minute),
		WillExpireAt: &past,
	}
	repo.jobs[stale.ID] = stale
	repo.expired = []models.Job{*stale}

	notifier := &fakeExpiryNotifier{}
	jobIface, err := NewBookingExpiryJob(BookingExpiryJobParams{
		Logger:      testLogger(),
		DB:          cronTxRunner{},
		Repo:        repo,
		Notifier:    notifier,
		RepoFactory: func(tx *gorm.DB) bookings.Repository { return repo },
	})
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	job := jobIface.(*bookingExpiryJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if stale.Status != enums.JobStatusTimedout {
		t.Fatalf("expected timedout got %s", stale.Status)
	}
	if _, ok := repo.updates[stale.ID]["expired_at"]; !ok {
		t.Fatal("expected expired_at to be recorded")
	}
	if len(notifier.expired) != 1 || notifier.expired[0] != stale.ID {
		t.Fatalf("expected expiry notice, got %v", notifier.expired)
	}
}

func TestBookingExpiryJobSkipsMovedRows(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	repo := newFakeBookingsRepo()
	// Sweep query saw the job pending, but a translator accepted it before
	// the per-row transaction ran.
	accepted := &models.Job{
		ID:           uuid.New(),
		CustomerID:   uuid.New(),
		Status:       enums.JobStatusAssigned,
		WillExpireAt: &past,
	}
	repo.jobs[accepted.ID] = accepted
	pendingCopy := *accepted
	pendingCopy.Status = enums.JobStatusPending
	repo.expired = []models.Job{pendingCopy}

	notifier := &fakeExpiryNotifier{}
	jobIface, err := NewBookingExpiryJob(BookingExpiryJobParams{
		Logger:      testLogger(),
		DB:          cronTxRunner{},
		Repo:        repo,
		Notifier:    notifier,
		RepoFactory: func(tx *gorm.DB) bookings.Repository { return repo },
	})
	if err != nil {
		t.Fatalf("constructor failed: %v", err)
	}
	job := jobIface.(*bookingExpiryJob)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if accepted.Status != enums.JobStatusAssigned {
		t.Fatal("accepted booking must not be touched")
	}
	if len(notifier.expired) != 0 {
		t.Fatal("no expiry notice for a claimed booking")
	}
}

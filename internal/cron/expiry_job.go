package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nordtolk/booking-backend/internal/bookings"
	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/outbox"
)

const expirySweepBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type bookingsRepoFactory func(tx *gorm.DB) bookings.Repository

func defaultBookingsRepo(tx *gorm.DB) bookings.Repository {
	return bookings.NewRepository(tx)
}

type expiredCustomerNotifier interface {
	JobExpired(ctx context.Context, job *models.Job, customer *models.User) error
}

// BookingExpiryJobParams configure the pending booking sweep.
type BookingExpiryJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repo        bookings.Repository
	Notifier    expiredCustomerNotifier
	RepoFactory bookingsRepoFactory
}

// NewBookingExpiryJob builds the cron job that times out pending bookings
// nobody accepted before their expiry deadline.
func NewBookingExpiryJob(params BookingExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultBookingsRepo
	}
	return &bookingExpiryJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repo,
		notifier:    params.Notifier,
		repoFactory: repoFactory,
		now:         time.Now,
	}, nil
}

type bookingExpiryJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        bookings.Repository
	notifier    expiredCustomerNotifier
	repoFactory bookingsRepoFactory
	now         func() time.Time
}

func (j *bookingExpiryJob) Name() string { return "booking-expiry" }

func (j *bookingExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	expired, err := j.repo.FindExpiredPending(ctx, now, expirySweepBatchSize)
	if err != nil {
		return fmt.Errorf("query expired pending bookings: %w", err)
	}

	var errs []error
	count := 0
	for _, job := range expired {
		if err := j.expireJob(ctx, job, now); err != nil {
			errs = append(errs, fmt.Errorf("expire booking %s: %w", job.ID, err))
			continue
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "booking expiry sweep complete")
	return multierr.Combine(errs...)
}

func (j *bookingExpiryJob) expireJob(ctx context.Context, job models.Job, now time.Time) error {
	notify := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		current, err := repo.FindJob(ctx, job.ID)
		if err != nil {
			return err
		}
		// Another worker or an accepting translator may have moved the row
		// since the sweep query ran.
		if current.Status != enums.JobStatusPending {
			return nil
		}
		if current.WillExpireAt == nil || current.WillExpireAt.After(now) {
			return nil
		}
		if err := repo.UpdateJob(ctx, job.ID, map[string]any{
			"status":     enums.JobStatusTimedout,
			"expired_at": now,
		}); err != nil {
			return err
		}
		notify = true
		return nil
	})
	if err != nil || !notify {
		return err
	}

	customer, err := j.repo.FindUser(ctx, job.CustomerID)
	if err != nil {
		j.logg.Error(ctx, "loading customer for expiry notice failed", err)
		return nil
	}
	if err := j.notifier.JobExpired(ctx, &job, customer); err != nil {
		j.logg.Error(ctx, "expiry notice failed", err)
	}
	return nil
}

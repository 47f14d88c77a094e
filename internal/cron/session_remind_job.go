package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/nordtolk/booking-backend/internal/bookings"
	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/logger"
)

type reminderMarker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CounterKey(name string) string
}

type sessionReminderNotifier interface {
	SessionReminder(ctx context.Context, job *models.Job, translator *models.User) error
}

// SessionRemindJobParams configure the session start reminder job.
type SessionRemindJobParams struct {
	Logger   *logger.Logger
	Repo     bookings.Repository
	Notifier sessionReminderNotifier
	Marker   reminderMarker
	LeadTime time.Duration
}

// NewSessionRemindJob builds the cron job that reminds assigned translators
// shortly before their session starts. A redis marker keyed per booking keeps
// repeated sweeps from re-sending the same reminder.
func NewSessionRemindJob(params SessionRemindJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Marker == nil {
		return nil, fmt.Errorf("reminder marker required")
	}
	lead := params.LeadTime
	if lead <= 0 {
		lead = 10 * time.Minute
	}
	return &sessionRemindJob{
		logg:     params.Logger,
		repo:     params.Repo,
		notifier: params.Notifier,
		marker:   params.Marker,
		lead:     lead,
		now:      time.Now,
	}, nil
}

type sessionRemindJob struct {
	logg     *logger.Logger
	repo     bookings.Repository
	notifier sessionReminderNotifier
	marker   reminderMarker
	lead     time.Duration
	now      func() time.Time
}

func (j *sessionRemindJob) Name() string { return "session-remind" }

func (j *sessionRemindJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	jobs, err := j.repo.FindJobsDueBetween(ctx, now, now.Add(j.lead))
	if err != nil {
		return fmt.Errorf("query upcoming sessions: %w", err)
	}

	var errs []error
	count := 0
	for _, job := range jobs {
		sent, err := j.remind(ctx, job)
		if err != nil {
			errs = append(errs, fmt.Errorf("remind booking %s: %w", job.ID, err))
			continue
		}
		if sent {
			count++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "session reminder sweep complete")
	return multierr.Combine(errs...)
}

func (j *sessionRemindJob) remind(ctx context.Context, job models.Job) (bool, error) {
	key := j.marker.CounterKey("session_remind:" + job.ID.String())
	won, err := j.marker.SetNX(ctx, key, 1, 24*time.Hour)
	if err != nil {
		return false, fmt.Errorf("mark reminder: %w", err)
	}
	if !won {
		return false, nil
	}

	assignment, err := j.repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		return false, err
	}
	if assignment == nil {
		return false, nil
	}
	translator, err := j.repo.FindUser(ctx, assignment.TranslatorUserID)
	if err != nil {
		return false, err
	}
	if err := j.notifier.SessionReminder(ctx, &job, translator); err != nil {
		return false, err
	}
	return true, nil
}

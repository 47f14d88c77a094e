package bookings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/booking-backend/pkg/config"
	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
	pkgerrors "github.com/nordtolk/booking-backend/pkg/errors"
	"github.com/nordtolk/booking-backend/pkg/logger"
	"github.com/nordtolk/booking-backend/pkg/outbox"
	"github.com/nordtolk/booking-backend/pkg/outbox/payloads"
	"github.com/nordtolk/booking-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type translatorMatcher interface {
	PotentialTranslators(ctx context.Context, job *models.Job) ([]models.User, error)
	PotentialJobs(ctx context.Context, translator *models.User) ([]models.Job, error)
}

// notificationDispatcher is the notifier surface the booking flows drive.
// Dispatch happens after the transaction commits; failures are logged, never
// bubbled back to the caller.
type notificationDispatcher interface {
	SuitableJobPush(ctx context.Context, job *models.Job, translators []models.User) error
	SuitableJobSMS(ctx context.Context, job *models.Job, translators []models.User) error
	JobAccepted(ctx context.Context, job *models.Job, customer, translator *models.User) error
	JobCancelled(ctx context.Context, job *models.Job, translator *models.User) error
	SessionEnded(ctx context.Context, job *models.Job, customer, translator *models.User, sessionTime string) error
	JobUpdated(ctx context.Context, job *models.Job, customer, translator *models.User, changes []string) error
	JobCreatedMail(ctx context.Context, job *models.Job, customer *models.User) error
}

// Service defines the booking lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateBookingInput) (*models.Job, error)
	Update(ctx context.Context, input UpdateBookingInput) (*models.Job, error)
	UpdateEmail(ctx context.Context, input UpdateEmailInput) (*models.Job, error)
	Accept(ctx context.Context, jobID, translatorID uuid.UUID) (*models.Job, error)
	Cancel(ctx context.Context, input CancelInput) error
	End(ctx context.Context, jobID, actorUserID uuid.UUID) error
	NotCarriedOut(ctx context.Context, jobID, actorUserID uuid.UUID) error
	Reopen(ctx context.Context, jobID, actorUserID uuid.UUID) (uuid.UUID, error)
	ChangeStatus(ctx context.Context, input ChangeStatusInput) (*ChangeStatusResult, error)
	Reassign(ctx context.Context, input ReassignInput) error
	RecordDistance(ctx context.Context, input DistanceInput) error
	UserJobs(ctx context.Context, userID uuid.UUID) (*UserJobs, error)
	PotentialJobs(ctx context.Context, translatorID uuid.UUID) (*JobList, error)
	UserJobsHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*JobList, error)
	ResendNotifications(ctx context.Context, jobID uuid.UUID) error
	ResendSMSNotifications(ctx context.Context, jobID uuid.UUID) error
	IgnoreExpiring(ctx context.Context, jobID uuid.UUID) error
	IgnoreExpired(ctx context.Context, jobID uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	matcher  translatorMatcher
	notifier notificationDispatcher
	cfg      config.BookingConfig
	logg     *logger.Logger
	now      func() time.Time
}

// ServiceParams collects the booking service dependencies.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxPublisher
	Matcher  translatorMatcher
	Notifier notificationDispatcher
	Config   config.BookingConfig
	Logger   *logger.Logger
	Now      func() time.Time
}

// NewService builds a booking service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Matcher == nil {
		return nil, fmt.Errorf("translator matcher required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	cfg := params.Config
	if cfg.ImmediateLeadTime <= 0 {
		cfg.ImmediateLeadTime = 5 * time.Minute
	}
	if cfg.CancelCutoff <= 0 {
		cfg.CancelCutoff = 24 * time.Hour
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		matcher:  params.Matcher,
		notifier: params.Notifier,
		cfg:      cfg,
		logg:     params.Logger,
		now:      now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateBookingInput) (*models.Job, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if input.FromLanguageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from language is required")
	}
	if input.DurationMins <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
	}

	customer, err := s.repo.FindUser(ctx, input.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "customer not found")
	}
	if customer.Type != enums.UserTypeCustomer {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only customers can create bookings")
	}

	now := s.now().UTC()
	due := input.Due.UTC()
	phone := input.PhoneBooking
	if input.Immediate {
		due = now.Add(s.cfg.ImmediateLeadTime)
		phone = true
	} else if !due.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due time must be in the future")
	}
	if !phone && !input.PhysicalBooking {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking must be by phone, physical or both")
	}

	consumerType := enums.ConsumerTypeNGO
	if customer.ConsumerType != nil {
		consumerType = *customer.ConsumerType
	}

	town := customer.Town
	if input.Town != nil {
		town = input.Town
	}

	willExpireAt := WillExpireAt(due, now)
	job := &models.Job{
		CustomerID:      customer.ID,
		Status:          enums.JobStatusPending,
		JobType:         enums.JobTypeForConsumer(consumerType),
		FromLanguageID:  input.FromLanguageID,
		ToLanguageID:    input.ToLanguageID,
		Due:             due,
		DurationMins:    input.DurationMins,
		Immediate:       input.Immediate,
		PhoneBooking:    phone,
		PhysicalBooking: input.PhysicalBooking,
		Town:            town,
		Gender:          input.Gender,
		Certified:       input.Certified,
		Reference:       input.Reference,
		CreatedByAdmin:  input.CreatedByAdmin,
		WillExpireAt:    &willExpireAt,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateJob(ctx, job); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create job")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobCreated,
			AggregateType: enums.AggregateJob,
			AggregateID:   job.ID,
			Actor:         &outbox.ActorRef{UserID: customer.ID, Role: string(customer.Type)},
			Version:       1,
			Data: payloads.JobCreatedEvent{
				JobID:          job.ID,
				CustomerID:     customer.ID,
				JobType:        job.JobType,
				FromLanguageID: job.FromLanguageID,
				Due:            job.Due,
				Immediate:      job.Immediate,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(ctx, job, job.Immediate)
	return job, nil
}

// broadcast fans a pending job out to eligible translators. Immediate jobs
// additionally go out over SMS.
func (s *service) broadcast(ctx context.Context, job *models.Job, withSMS bool) {
	translators, err := s.matcher.PotentialTranslators(ctx, job)
	if err != nil {
		s.logg.Error(ctx, "matching translators for broadcast failed", err)
		return
	}
	if len(translators) == 0 {
		return
	}
	if err := s.notifier.SuitableJobPush(ctx, job, translators); err != nil {
		s.logg.Error(ctx, "suitable job push failed", err)
	}
	if withSMS {
		if err := s.notifier.SuitableJobSMS(ctx, job, translators); err != nil {
			s.logg.Error(ctx, "suitable job sms failed", err)
		}
	}
}

func (s *service) Accept(ctx context.Context, jobID, translatorID uuid.UUID) (*models.Job, error) {
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	translator, err := s.repo.FindUser(ctx, translatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "translator not found")
	}
	if translator.Type != enums.UserTypeTranslator {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only translators can accept bookings")
	}

	sessionEnd := job.Due.Add(time.Duration(job.DurationMins) * time.Minute)
	overlapping, err := s.repo.HasOverlappingAssignment(ctx, translatorID, job.Due, sessionEnd, job.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "overlap check failed")
	}
	if overlapping {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "you already have a booking at this time")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		won, err := repo.MarkAssignedIfPending(ctx, job.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign job")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is no longer available")
		}
		return repo.CreateAssignment(ctx, &models.TranslatorAssignment{
			JobID:            job.ID,
			TranslatorUserID: translatorID,
			Active:           true,
		})
	})
	if err != nil {
		return nil, err
	}
	job.Status = enums.JobStatusAssigned

	customer, err := s.repo.FindUser(ctx, job.CustomerID)
	if err == nil {
		if err := s.notifier.JobAccepted(ctx, job, customer, translator); err != nil {
			s.logg.Error(ctx, "job accepted notification failed", err)
		}
	}
	return job, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	job, err := s.repo.FindJob(ctx, input.JobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	actor, err := s.repo.FindUser(ctx, input.ActorUserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "actor not found")
	}

	switch {
	case actor.ID == job.CustomerID || actor.Type.IsAdmin():
		return s.cancelByCustomer(ctx, job, actor)
	case actor.Type == enums.UserTypeTranslator:
		return s.cancelByTranslator(ctx, job, actor)
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "you cannot cancel this booking")
	}
}

func (s *service) cancelByCustomer(ctx context.Context, job *models.Job, actor *models.User) error {
	switch job.Status {
	case enums.JobStatusPending, enums.JobStatusAssigned, enums.JobStatusStarted:
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking can no longer be cancelled")
	}

	now := s.now().UTC()
	target := enums.JobStatusWithdrawAfter24
	if job.Due.Sub(now) >= s.cfg.CancelCutoff {
		target = enums.JobStatusWithdrawBefore24
	}

	assignment, err := s.repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignment")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateJob(ctx, job.ID, map[string]any{
			"status":      target,
			"canceled_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel job")
		}
		if assignment != nil {
			if err := repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"canceled_at": now}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close assignment")
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobCanceled,
			AggregateType: enums.AggregateJob,
			AggregateID:   job.ID,
			Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Type)},
			Version:       1,
			Data: payloads.JobCanceledEvent{
				JobID:      job.ID,
				CustomerID: job.CustomerID,
				Status:     target,
				CanceledBy: actor.ID,
				CanceledAt: now,
			},
		})
	})
	if err != nil {
		return err
	}

	if assignment != nil {
		if translator, err := s.repo.FindUser(ctx, assignment.TranslatorUserID); err == nil {
			if err := s.notifier.JobCancelled(ctx, job, translator); err != nil {
				s.logg.Error(ctx, "cancellation push failed", err)
			}
		}
	}
	return nil
}

func (s *service) cancelByTranslator(ctx context.Context, job *models.Job, actor *models.User) error {
	assignment, err := s.repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignment")
	}
	if assignment == nil || assignment.TranslatorUserID != actor.ID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "you are not assigned to this booking")
	}

	now := s.now().UTC()
	if job.Due.Sub(now) <= s.cfg.CancelCutoff {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "bookings this close to the session must be cancelled by phone")
	}

	willExpireAt := WillExpireAt(job.Due, now)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"canceled_at": now}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close assignment")
		}
		if err := repo.UpdateJob(ctx, job.ID, map[string]any{
			"status":         enums.JobStatusPending,
			"will_expire_at": willExpireAt,
			"expired_at":     nil,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "release job")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobCanceled,
			AggregateType: enums.AggregateJob,
			AggregateID:   job.ID,
			Actor:         &outbox.ActorRef{UserID: actor.ID, Role: string(actor.Type)},
			Version:       1,
			Data: payloads.JobCanceledEvent{
				JobID:      job.ID,
				CustomerID: job.CustomerID,
				Status:     enums.JobStatusPending,
				CanceledBy: actor.ID,
				CanceledAt: now,
			},
		})
	})
	if err != nil {
		return err
	}

	job.Status = enums.JobStatusPending
	job.WillExpireAt = &willExpireAt
	s.broadcast(ctx, job, false)
	return nil
}

func (s *service) End(ctx context.Context, jobID, actorUserID uuid.UUID) error {
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	// Ending anything but a started session is a recognised no-op, a stale
	// end-session form must not fault or mutate the booking.
	if job.Status != enums.JobStatusStarted {
		return nil
	}
	assignment, err := s.repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignment")
	}
	if assignment == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no active translator on this booking")
	}

	now := s.now().UTC()
	sessionTime := FormatSessionTime(now.Sub(job.Due))

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateJob(ctx, job.ID, map[string]any{
			"status":           enums.JobStatusCompleted,
			"session_time":     sessionTime,
			"session_ended_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "complete job")
		}
		if err := repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"completed_at": now}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close assignment")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSessionEnded,
			AggregateType: enums.AggregateJob,
			AggregateID:   job.ID,
			Actor:         &outbox.ActorRef{UserID: actorUserID},
			Version:       1,
			Data: payloads.SessionEndedEvent{
				JobID:            job.ID,
				CustomerID:       job.CustomerID,
				TranslatorUserID: assignment.TranslatorUserID,
				SessionTime:      sessionTime,
				EndedAt:          now,
			},
		})
	})
	if err != nil {
		return err
	}

	customer, custErr := s.repo.FindUser(ctx, job.CustomerID)
	translator, trErr := s.repo.FindUser(ctx, assignment.TranslatorUserID)
	if custErr == nil && trErr == nil {
		if err := s.notifier.SessionEnded(ctx, job, customer, translator, sessionTime); err != nil {
			s.logg.Error(ctx, "session ended notification failed", err)
		}
	}
	return nil
}

func (s *service) NotCarriedOut(ctx context.Context, jobID, actorUserID uuid.UUID) error {
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	switch job.Status {
	case enums.JobStatusAssigned, enums.JobStatusStarted:
	default:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not in a reportable state")
	}
	assignment, err := s.repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignment")
	}
	if assignment == nil || assignment.TranslatorUserID != actorUserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the assigned translator can report a no-show")
	}

	now := s.now().UTC()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateJob(ctx, job.ID, map[string]any{
			"status":           enums.JobStatusNotCarriedOutCustomer,
			"session_ended_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark not carried out")
		}
		return repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"completed_at": now})
	})
}

func (s *service) Reopen(ctx context.Context, jobID, actorUserID uuid.UUID) (uuid.UUID, error) {
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	switch job.Status {
	case enums.JobStatusPending, enums.JobStatusAssigned, enums.JobStatusStarted:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is still in play")
	}

	now := s.now().UTC()
	willExpireAt := WillExpireAt(job.Due, now)
	activeID := job.ID

	if job.Status == enums.JobStatusTimedout {
		// Timed out bookings keep their history; reopening clones a fresh
		// pending row pointing back at the original.
		comment := fmt.Sprintf("This booking is a reopening of booking #%s", job.ID)
		clone := &models.Job{
			CustomerID:      job.CustomerID,
			Status:          enums.JobStatusPending,
			JobType:         job.JobType,
			FromLanguageID:  job.FromLanguageID,
			ToLanguageID:    job.ToLanguageID,
			Due:             job.Due,
			DurationMins:    job.DurationMins,
			Immediate:       job.Immediate,
			PhoneBooking:    job.PhoneBooking,
			PhysicalBooking: job.PhysicalBooking,
			Town:            job.Town,
			Gender:          job.Gender,
			Certified:       job.Certified,
			Reference:       job.Reference,
			AdminComments:   &comment,
			ReopenedFromID:  &job.ID,
			WillExpireAt:    &willExpireAt,
		}
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if _, err := repo.CreateJob(ctx, clone); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clone job")
			}
			if err := repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"canceled_at": now}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close dangling assignments")
			}
			return s.emitReopened(ctx, tx, job, clone.ID, actorUserID)
		})
		if err != nil {
			return uuid.Nil, err
		}
		activeID = clone.ID
		job = clone
	} else {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if err := repo.UpdateJob(ctx, job.ID, map[string]any{
				"status":         enums.JobStatusPending,
				"will_expire_at": willExpireAt,
				"expired_at":     nil,
				"canceled_at":    nil,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reopen job")
			}
			if err := repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"canceled_at": now}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close dangling assignments")
			}
			return s.emitReopened(ctx, tx, job, job.ID, actorUserID)
		})
		if err != nil {
			return uuid.Nil, err
		}
		job.Status = enums.JobStatusPending
	}

	s.broadcast(ctx, job, false)
	return activeID, nil
}

func (s *service) emitReopened(ctx context.Context, tx *gorm.DB, original *models.Job, reopenedID uuid.UUID, actorUserID uuid.UUID) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventJobReopened,
		AggregateType: enums.AggregateJob,
		AggregateID:   reopenedID,
		Actor:         &outbox.ActorRef{UserID: actorUserID},
		Version:       1,
		Data: payloads.JobReopenedEvent{
			OriginalJobID: original.ID,
			ReopenedJobID: reopenedID,
			CustomerID:    original.CustomerID,
		},
	})
}

func (s *service) ChangeStatus(ctx context.Context, input ChangeStatusInput) (*ChangeStatusResult, error) {
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", input.Target))
	}
	job, err := s.repo.FindJob(ctx, input.JobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}

	outcome := Transition(ChangeRequest{
		Current:       job.Status,
		Target:        input.Target,
		AdminComments: input.AdminComments,
		SessionTime:   input.SessionTime,
		TranslatorID:  input.TranslatorID,
	})
	if !outcome.Applied {
		return &ChangeStatusResult{Applied: false, Status: job.Status}, nil
	}

	// Loaded before the transaction closes it so effect dispatch still knows
	// which translator was on the booking.
	assignment, err := s.repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignment")
	}

	now := s.now().UTC()
	updates := map[string]any{"status": input.Target}
	if strings.TrimSpace(input.AdminComments) != "" {
		updates["admin_comments"] = input.AdminComments
	}

	switch input.Target {
	case enums.JobStatusPending:
		// Back into the pool the booking counts as fresh: age and expiry
		// both restart from now.
		updates["created_at"] = now
		updates["will_expire_at"] = WillExpireAt(job.Due, now)
		updates["expired_at"] = nil
	case enums.JobStatusCompleted:
		updates["session_time"] = input.SessionTime
		updates["session_ended_at"] = now
	case enums.JobStatusWithdrawBefore24, enums.JobStatusWithdrawAfter24:
		updates["canceled_at"] = now
	case enums.JobStatusTimedout:
		updates["expired_at"] = now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateJob(ctx, job.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update job status")
		}
		for _, effect := range outcome.Effects {
			switch effect {
			case EffectNotifyAssigned:
				if err := repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"canceled_at": now}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close previous assignment")
				}
				if err := repo.CreateAssignment(ctx, &models.TranslatorAssignment{
					JobID:            job.ID,
					TranslatorUserID: *input.TranslatorID,
					AssignedByUserID: &input.ActorUserID,
					Active:           true,
				}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create assignment")
				}
			case EffectNotifyCancellation, EffectNotifySessionEnded:
				if err := repo.CloseActiveAssignment(ctx, job.ID, closeUpdatesFor(effect, now)); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close assignment")
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchStatusEffects(ctx, job, assignment, input, outcome.Effects)
	return &ChangeStatusResult{Applied: true, Status: input.Target}, nil
}

func closeUpdatesFor(effect Effect, now time.Time) map[string]any {
	if effect == EffectNotifySessionEnded {
		return map[string]any{"completed_at": now}
	}
	return map[string]any{"canceled_at": now}
}

func (s *service) dispatchStatusEffects(ctx context.Context, job *models.Job, assignment *models.TranslatorAssignment, input ChangeStatusInput, effects []Effect) {
	for _, effect := range effects {
		switch effect {
		case EffectRebroadcast:
			refreshed := *job
			refreshed.Status = enums.JobStatusPending
			s.broadcast(ctx, &refreshed, false)
		case EffectNotifyAssigned:
			if input.TranslatorID == nil {
				continue
			}
			customer, custErr := s.repo.FindUser(ctx, job.CustomerID)
			translator, trErr := s.repo.FindUser(ctx, *input.TranslatorID)
			if custErr != nil || trErr != nil {
				continue
			}
			if err := s.notifier.JobAccepted(ctx, job, customer, translator); err != nil {
				s.logg.Error(ctx, "assignment notification failed", err)
			}
		case EffectNotifyCancellation:
			if assignment == nil {
				continue
			}
			if translator, err := s.repo.FindUser(ctx, assignment.TranslatorUserID); err == nil {
				if err := s.notifier.JobCancelled(ctx, job, translator); err != nil {
					s.logg.Error(ctx, "cancellation notification failed", err)
				}
			}
		case EffectNotifySessionEnded:
			if assignment == nil {
				continue
			}
			customer, custErr := s.repo.FindUser(ctx, job.CustomerID)
			translator, trErr := s.repo.FindUser(ctx, assignment.TranslatorUserID)
			if custErr != nil || trErr != nil {
				continue
			}
			if err := s.notifier.SessionEnded(ctx, job, customer, translator, input.SessionTime); err != nil {
				s.logg.Error(ctx, "session ended notification failed", err)
			}
		}
	}
}

func (s *service) Reassign(ctx context.Context, input ReassignInput) error {
	job, err := s.repo.FindJob(ctx, input.JobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	if input.NewTranslatorID == nil || *input.NewTranslatorID == uuid.Nil {
		return nil
	}

	current, err := s.repo.FindActiveAssignment(ctx, job.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load assignment")
	}
	if current != nil && current.TranslatorUserID == *input.NewTranslatorID {
		return nil
	}

	newTranslator, err := s.repo.FindUser(ctx, *input.NewTranslatorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "translator not found")
	}
	if newTranslator.Type != enums.UserTypeTranslator {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignee must be a translator")
	}

	now := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if current != nil {
			if err := repo.CloseActiveAssignment(ctx, job.ID, map[string]any{"canceled_at": now}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close previous assignment")
			}
		}
		if job.Status == enums.JobStatusPending {
			if _, err := repo.MarkAssignedIfPending(ctx, job.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "assign job")
			}
		}
		return repo.CreateAssignment(ctx, &models.TranslatorAssignment{
			JobID:            job.ID,
			TranslatorUserID: *input.NewTranslatorID,
			AssignedByUserID: &input.ActorUserID,
			Active:           true,
		})
	})
	if err != nil {
		return err
	}

	var previous *models.User
	if current != nil {
		previous, _ = s.repo.FindUser(ctx, current.TranslatorUserID)
	}
	oldEmail := ""
	if previous != nil {
		oldEmail = previous.Email
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"job_id":               job.ID.String(),
		"old_translator_email": oldEmail,
		"new_translator_email": newTranslator.Email,
	}), "booking translator reassigned")

	customer, custErr := s.repo.FindUser(ctx, job.CustomerID)
	if custErr == nil {
		if err := s.notifier.JobAccepted(ctx, job, customer, newTranslator); err != nil {
			s.logg.Error(ctx, "reassignment notification failed", err)
		}
	}
	if previous != nil {
		if err := s.notifier.JobCancelled(ctx, job, previous); err != nil {
			s.logg.Error(ctx, "previous translator notification failed", err)
		}
	}
	return nil
}

func (s *service) RecordDistance(ctx context.Context, input DistanceInput) error {
	if input.FlaggedByAdmin && (input.AdminComment == nil || strings.TrimSpace(*input.AdminComment) == "") {
		return pkgerrors.New(pkgerrors.CodeValidation, "a comment is required when flagging a booking")
	}
	if _, err := s.repo.FindJob(ctx, input.JobID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	return s.repo.UpsertDistance(ctx, &models.JobDistance{
		JobID:           input.JobID,
		DistanceKM:      input.DistanceKM,
		TravelTime:      input.TravelTime,
		SessionComments: input.SessionComments,
		FlaggedByAdmin:  input.FlaggedByAdmin,
		AdminComment:    input.AdminComment,
		ManuallyHandled: input.ManuallyHandled,
		FollowedUp:      input.FollowedUp,
	})
}

func (s *service) UserJobs(ctx context.Context, userID uuid.UUID) (*UserJobs, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}

	params := pagination.Params{Limit: pagination.MaxLimit}
	switch user.Type {
	case enums.UserTypeCustomer:
		active, err := s.repo.ListCustomerJobs(ctx, userID, enums.ActiveJobStatuses, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customer jobs")
		}
		return &UserJobs{Active: active.Jobs}, nil
	case enums.UserTypeTranslator:
		active, err := s.repo.ListTranslatorJobs(ctx, userID, enums.ActiveJobStatuses, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list translator jobs")
		}
		open, err := s.repo.ListOpenJobs(ctx, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list open jobs")
		}
		return &UserJobs{Active: active.Jobs, Open: open.Jobs}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "dashboard is only available to customers and translators")
	}
}

func (s *service) UserJobsHistory(ctx context.Context, userID uuid.UUID, params pagination.Params) (*JobList, error) {
	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	switch user.Type {
	case enums.UserTypeCustomer:
		list, err := s.repo.ListCustomerJobs(ctx, userID, enums.HistoricJobStatuses, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customer history")
		}
		return list, nil
	case enums.UserTypeTranslator:
		list, err := s.repo.ListTranslatorJobs(ctx, userID, enums.HistoricJobStatuses, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list translator history")
		}
		return list, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "history is only available to customers and translators")
	}
}

func (s *service) ResendNotifications(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	if job.Status != enums.JobStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending bookings can be re-broadcast")
	}
	translators, err := s.matcher.PotentialTranslators(ctx, job)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "match translators")
	}
	return s.notifier.SuitableJobPush(ctx, job, translators)
}

func (s *service) ResendSMSNotifications(ctx context.Context, jobID uuid.UUID) error {
	job, err := s.repo.FindJob(ctx, jobID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	if job.Status != enums.JobStatusPending {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only pending bookings can be re-broadcast")
	}
	translators, err := s.matcher.PotentialTranslators(ctx, job)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "match translators")
	}
	return s.notifier.SuitableJobSMS(ctx, job, translators)
}

// Update applies an admin edit to the booking fields, then runs the status
// and reassignment flows when the request asks for them. Field changes are
// mailed to the customer and the assigned translator.
func (s *service) Update(ctx context.Context, input UpdateBookingInput) (*models.Job, error) {
	job, err := s.repo.FindJob(ctx, input.JobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}

	now := s.now().UTC()
	updates := map[string]any{}
	changes := []string{}

	if input.Due != nil && !input.Due.UTC().Equal(job.Due) {
		due := input.Due.UTC()
		if !due.After(now) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "due time must be in the future")
		}
		updates["due"] = due
		changes = append(changes, "date")
		s.auditFieldChange(ctx, job.ID, "due", job.Due, due)
		if job.Status == enums.JobStatusPending {
			willExpireAt := WillExpireAt(due, now)
			updates["will_expire_at"] = willExpireAt
		}
	}
	if input.DurationMins != nil && *input.DurationMins != job.DurationMins {
		if *input.DurationMins <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duration must be positive")
		}
		updates["duration_mins"] = *input.DurationMins
		changes = append(changes, "duration")
		s.auditFieldChange(ctx, job.ID, "duration_mins", job.DurationMins, *input.DurationMins)
	}
	if input.FromLanguageID != nil && *input.FromLanguageID != job.FromLanguageID {
		if *input.FromLanguageID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "from language is required")
		}
		updates["from_language_id"] = *input.FromLanguageID
		changes = append(changes, "language")
		s.auditFieldChange(ctx, job.ID, "from_language_id", job.FromLanguageID, *input.FromLanguageID)
	}
	if input.Reference != nil {
		updates["reference"] = *input.Reference
	}
	if input.AdminComments != nil {
		updates["admin_comments"] = *input.AdminComments
	}

	if len(updates) > 0 {
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.repo.WithTx(tx).UpdateJob(ctx, job.ID, updates)
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update job")
		}
	}

	if input.NewTranslatorID != nil {
		err = s.Reassign(ctx, ReassignInput{
			JobID:           job.ID,
			NewTranslatorID: input.NewTranslatorID,
			ActorUserID:     input.ActorUserID,
			AdminComments:   strValue(input.AdminComments),
		})
		if err != nil {
			return nil, err
		}
	}

	if input.Target != nil {
		_, err = s.ChangeStatus(ctx, ChangeStatusInput{
			JobID:         job.ID,
			Target:        *input.Target,
			AdminComments: strValue(input.AdminComments),
			SessionTime:   input.SessionTime,
			TranslatorID:  input.NewTranslatorID,
			ActorUserID:   input.ActorUserID,
		})
		if err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.FindJob(ctx, job.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload job")
	}

	// Change notices go out only while the booking is still ahead; edits to
	// past bookings are bookkeeping and must stay silent.
	if len(changes) > 0 && updated.Due.After(s.now().UTC()) {
		customer, custErr := s.repo.FindUser(ctx, updated.CustomerID)
		var translator *models.User
		if assignment, err := s.repo.FindActiveAssignment(ctx, updated.ID); err == nil && assignment != nil {
			translator, _ = s.repo.FindUser(ctx, assignment.TranslatorUserID)
		}
		if custErr == nil {
			if err := s.notifier.JobUpdated(ctx, updated, customer, translator, changes); err != nil {
				s.logg.Error(ctx, "booking change notification failed", err)
			}
		}
	}
	return updated, nil
}

// auditFieldChange records one booking field delta in the structured log.
func (s *service) auditFieldChange(ctx context.Context, jobID uuid.UUID, field string, oldValue, newValue any) {
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"job_id": jobID.String(),
		"field":  field,
		"old":    oldValue,
		"new":    newValue,
	}), "booking field changed")
}

// UpdateEmail stores the contact block submitted after creation and sends the
// booking confirmation mail to the customer.
func (s *service) UpdateEmail(ctx context.Context, input UpdateEmailInput) (*models.Job, error) {
	job, err := s.repo.FindJob(ctx, input.JobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}

	updates := map[string]any{}
	if input.UserEmail != nil {
		email := strings.TrimSpace(*input.UserEmail)
		if email == "" || !strings.Contains(email, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
		}
		updates["user_email"] = email
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}
	if input.Instructions != nil {
		updates["instructions"] = strings.TrimSpace(*input.Instructions)
	}
	if input.Town != nil {
		updates["town"] = strings.TrimSpace(*input.Town)
	}
	if len(updates) > 0 {
		if err := s.repo.UpdateJob(ctx, job.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update job contact")
		}
	}

	updated, err := s.repo.FindJob(ctx, job.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload job")
	}
	if customer, err := s.repo.FindUser(ctx, updated.CustomerID); err == nil {
		if err := s.notifier.JobCreatedMail(ctx, updated, customer); err != nil {
			s.logg.Error(ctx, "booking confirmation mail failed", err)
		}
	}
	return updated, nil
}

// PotentialJobs lists the open bookings the translator qualifies for.
func (s *service) PotentialJobs(ctx context.Context, translatorID uuid.UUID) (*JobList, error) {
	translator, err := s.repo.FindUser(ctx, translatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	jobs, err := s.matcher.PotentialJobs(ctx, translator)
	if err != nil {
		return nil, err
	}
	list := &JobList{Jobs: make([]JobSummary, 0, len(jobs))}
	for _, job := range jobs {
		list.Jobs = append(list.Jobs, summarize(job))
	}
	return list, nil
}

// IgnoreExpiring hides the booking from the expiring-soon admin review list.
func (s *service) IgnoreExpiring(ctx context.Context, jobID uuid.UUID) error {
	if _, err := s.repo.FindJob(ctx, jobID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	return s.repo.UpdateJob(ctx, jobID, map[string]any{"ignore_expiring": true})
}

// IgnoreExpired hides the booking from the expired admin review list.
func (s *service) IgnoreExpired(ctx context.Context, jobID uuid.UUID) error {
	if _, err := s.repo.FindJob(ctx, jobID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "job not found")
	}
	return s.repo.UpdateJob(ctx, jobID, map[string]any{"ignore_expired": true})
}

func strValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

package matching

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	pkgerrors "github.com/nordtolk/booking-backend/pkg/errors"
	"github.com/nordtolk/booking-backend/pkg/enums"
)

// Service resolves which translators are eligible for a booking and which
// open bookings a translator may take.
type Service interface {
	PotentialTranslators(ctx context.Context, job *models.Job) ([]models.User, error)
	PotentialJobs(ctx context.Context, translator *models.User) ([]models.Job, error)
}

type service struct {
	repo Repository
}

// NewService builds the matching service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("matching repository required")
	}
	return &service{repo: repo}, nil
}

// PotentialTranslators returns the translators a pending booking should be
// offered to. Qualification category follows the job type, level follows the
// certification requirement, and the customer's blacklist always wins.
func (s *service) PotentialTranslators(ctx context.Context, job *models.Job) ([]models.User, error) {
	if job == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job required")
	}

	candidates, err := s.repo.FindEligibleTranslators(ctx, TranslatorQuery{
		TranslatorType: job.JobType.TranslatorType(),
		Levels:         enums.LevelsForCertified(job.Certified),
		LanguageID:     job.FromLanguageID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query translators")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	blacklisted, err := s.repo.ListBlacklistedTranslatorIDs(ctx, job.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query blacklist")
	}
	excluded := make(map[uuid.UUID]bool, len(blacklisted))
	for _, id := range blacklisted {
		excluded[id] = true
	}

	matched := make([]models.User, 0, len(candidates))
	for _, candidate := range candidates {
		if excluded[candidate.ID] {
			continue
		}
		if !genderMatches(job, candidate) {
			continue
		}
		if !earmarkAccepts(job, candidate.ID) {
			continue
		}
		if !townMatches(job, candidate) {
			continue
		}
		matched = append(matched, candidate)
	}
	return matched, nil
}

// A booking reserved for one translator is never offered to anyone else.
func earmarkAccepts(job *models.Job, candidateID uuid.UUID) bool {
	if job.EarmarkedTranslatorID == nil {
		return true
	}
	return *job.EarmarkedTranslatorID == candidateID
}

func genderMatches(job *models.Job, candidate models.User) bool {
	if job.Gender == nil {
		return true
	}
	return candidate.Gender != nil && *candidate.Gender == *job.Gender
}

// Physical-only bookings need the translator on site, so their town must
// match the booking's town. Phone bookings carry no location constraint.
func townMatches(job *models.Job, candidate models.User) bool {
	if !job.PhysicalBooking || job.PhoneBooking {
		return true
	}
	if job.Town == nil || candidate.Town == nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(*job.Town), strings.TrimSpace(*candidate.Town))
}

// PotentialJobs returns the open bookings the translator is qualified to
// accept, the mirror of PotentialTranslators. Customers who blacklisted the
// translator never see their bookings offered.
func (s *service) PotentialJobs(ctx context.Context, translator *models.User) ([]models.Job, error) {
	if translator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "translator required")
	}
	if translator.Type != enums.UserTypeTranslator {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only translators have a job pool")
	}
	if translator.TranslatorType == nil || len(translator.LanguageIDs) == 0 {
		return nil, nil
	}

	jobs, err := s.repo.FindOpenJobs(ctx, JobQuery{
		JobType:     translator.TranslatorType.JobType(),
		LanguageIDs: translator.LanguageIDs,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query open jobs")
	}
	if len(jobs) == 0 {
		return nil, nil
	}

	blacklisting, err := s.repo.ListBlacklistingCustomerIDs(ctx, translator.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "query blacklist")
	}
	excluded := make(map[uuid.UUID]bool, len(blacklisting))
	for _, id := range blacklisting {
		excluded[id] = true
	}

	matched := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		if excluded[job.CustomerID] {
			continue
		}
		if !levelAccepted(&job, *translator) {
			continue
		}
		if !genderMatches(&job, *translator) {
			continue
		}
		if !earmarkAccepts(&job, translator.ID) {
			continue
		}
		if !townMatches(&job, *translator) {
			continue
		}
		matched = append(matched, job)
	}
	return matched, nil
}

func levelAccepted(job *models.Job, candidate models.User) bool {
	if candidate.TranslatorLevel == nil {
		return false
	}
	for _, level := range enums.LevelsForCertified(job.Certified) {
		if level == *candidate.TranslatorLevel {
			return true
		}
	}
	return false
}

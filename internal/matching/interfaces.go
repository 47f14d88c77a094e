package matching

import (
	"context"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
)

// TranslatorQuery carries the database-level eligibility filters. Soft
// filters (gender, town, blacklists) are applied by the service.
type TranslatorQuery struct {
	TranslatorType enums.TranslatorType
	Levels         []enums.TranslatorLevel
	LanguageID     uuid.UUID
}

// JobQuery is the inverse direction: the database-level filters for the
// open bookings a given translator may serve.
type JobQuery struct {
	JobType     enums.JobType
	LanguageIDs []uuid.UUID
	Limit       int
}

// Repository defines the persistence operations translator matching needs.
type Repository interface {
	FindEligibleTranslators(ctx context.Context, query TranslatorQuery) ([]models.User, error)
	FindOpenJobs(ctx context.Context, query JobQuery) ([]models.Job, error)
	ListBlacklistedTranslatorIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error)
	ListBlacklistingCustomerIDs(ctx context.Context, translatorID uuid.UUID) ([]uuid.UUID, error)
}

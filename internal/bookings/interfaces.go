package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
	"github.com/nordtolk/booking-backend/pkg/pagination"
)

// Repository defines persistence operations for the booking tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateJob(ctx context.Context, job *models.Job) (*models.Job, error)
	FindJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJob(ctx context.Context, id uuid.UUID, updates map[string]any) error
	// MarkAssignedIfPending flips a pending job to assigned and reports
	// whether this call won the row.
	MarkAssignedIfPending(ctx context.Context, id uuid.UUID) (bool, error)

	CreateAssignment(ctx context.Context, assignment *models.TranslatorAssignment) error
	FindActiveAssignment(ctx context.Context, jobID uuid.UUID) (*models.TranslatorAssignment, error)
	CloseActiveAssignment(ctx context.Context, jobID uuid.UUID, updates map[string]any) error
	HasOverlappingAssignment(ctx context.Context, translatorID uuid.UUID, from, to time.Time, excludeJobID uuid.UUID) (bool, error)

	ListCustomerJobs(ctx context.Context, customerID uuid.UUID, statuses []enums.JobStatus, params pagination.Params) (*JobList, error)
	ListTranslatorJobs(ctx context.Context, translatorID uuid.UUID, statuses []enums.JobStatus, params pagination.Params) (*JobList, error)
	ListOpenJobs(ctx context.Context, params pagination.Params) (*JobList, error)

	FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Job, error)
	FindJobsDueBetween(ctx context.Context, from, to time.Time) ([]models.Job, error)

	UpsertDistance(ctx context.Context, distance *models.JobDistance) error
	FindDistance(ctx context.Context, jobID uuid.UUID) (*models.JobDistance, error)

	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

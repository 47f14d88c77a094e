package bookings

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
	"github.com/nordtolk/booking-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bookings repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateJob(ctx context.Context, job *models.Job) (*models.Job, error) {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *repository) FindJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Preload("Assignments", "active").
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) UpdateJob(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) MarkAssignedIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND status = ?", id, enums.JobStatusPending).
		Update("status", enums.JobStatusAssigned)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateAssignment(ctx context.Context, assignment *models.TranslatorAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindActiveAssignment(ctx context.Context, jobID uuid.UUID) (*models.TranslatorAssignment, error) {
	var assignment models.TranslatorAssignment
	err := r.db.WithContext(ctx).
		Where("job_id = ? AND active", jobID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) CloseActiveAssignment(ctx context.Context, jobID uuid.UUID, updates map[string]any) error {
	merged := map[string]any{"active": false}
	for k, v := range updates {
		merged[k] = v
	}
	return r.db.WithContext(ctx).
		Model(&models.TranslatorAssignment{}).
		Where("job_id = ? AND active", jobID).
		Updates(merged).Error
}

func (r *repository) HasOverlappingAssignment(ctx context.Context, translatorID uuid.UUID, from, to time.Time, excludeJobID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TranslatorAssignment{}).
		Joins("JOIN jobs ON jobs.id = translator_assignments.job_id").
		Where("translator_assignments.translator_user_id = ? AND translator_assignments.active", translatorID).
		Where("jobs.id <> ?", excludeJobID).
		Where("jobs.status IN ?", []enums.JobStatus{enums.JobStatusAssigned, enums.JobStatusStarted}).
		Where("jobs.due < ? AND (jobs.due + (jobs.duration_mins || ' minutes')::interval) > ?", to, from).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListCustomerJobs(ctx context.Context, customerID uuid.UUID, statuses []enums.JobStatus, params pagination.Params) (*JobList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("customer_id = ?", customerID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	return r.listJobs(query, params)
}

func (r *repository) ListTranslatorJobs(ctx context.Context, translatorID uuid.UUID, statuses []enums.JobStatus, params pagination.Params) (*JobList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Joins("JOIN translator_assignments ta ON ta.job_id = jobs.id").
		Where("ta.translator_user_id = ?", translatorID)
	if len(statuses) > 0 {
		query = query.Where("jobs.status IN ?", statuses)
	}
	return r.listJobs(query, params)
}

func (r *repository) ListOpenJobs(ctx context.Context, params pagination.Params) (*JobList, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Job{}).
		Where("status = ?", enums.JobStatusPending).
		Where("expired_at IS NULL")
	return r.listJobs(query, params)
}

func (r *repository) listJobs(query *gorm.DB, params pagination.Params) (*JobList, error) {
	limit := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(jobs.created_at, jobs.id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Job
	err = query.
		Order(clause.OrderByColumn{Column: clause.Column{Table: "jobs", Name: "created_at"}, Desc: true}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "jobs", Name: "id"}, Desc: true}).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &JobList{}
	pageSize := pagination.NormalizeLimit(params.Limit)
	hasMore := len(rows) > pageSize
	if hasMore {
		rows = rows[:pageSize]
	}
	for _, row := range rows {
		list.Jobs = append(list.Jobs, summarize(row))
	}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func summarize(job models.Job) JobSummary {
	return JobSummary{
		ID:           job.ID,
		Status:       job.Status,
		JobType:      job.JobType,
		Due:          job.Due,
		DurationMins: job.DurationMins,
		Immediate:    job.Immediate,
		Town:         job.Town,
		SessionTime:  job.SessionTime,
		CreatedAt:    job.CreatedAt,
	}
}

func (r *repository) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.JobStatusPending).
		Where("expired_at IS NULL").
		Where("will_expire_at IS NOT NULL AND will_expire_at <= ?", now).
		Order("will_expire_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindJobsDueBetween(ctx context.Context, from, to time.Time) ([]models.Job, error) {
	var rows []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.JobStatusAssigned).
		Where("due >= ? AND due < ?", from, to).
		Order("due ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpsertDistance(ctx context.Context, distance *models.JobDistance) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}},
			UpdateAll: true,
		}).
		Create(distance).Error
}

func (r *repository) FindDistance(ctx context.Context, jobID uuid.UUID) (*models.JobDistance, error) {
	var distance models.JobDistance
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&distance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &distance, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

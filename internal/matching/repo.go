package matching

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/booking-backend/pkg/db/models"
	"github.com/nordtolk/booking-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a matching repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindEligibleTranslators(ctx context.Context, query TranslatorQuery) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("type = ?", enums.UserTypeTranslator).
		Where("is_active").
		Where("translator_type = ?", query.TranslatorType).
		Where("translator_level IN ?", query.Levels).
		Where("? = ANY(language_ids)", query.LanguageID).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) ListBlacklistedTranslatorIDs(ctx context.Context, customerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Blacklist{}).
		Where("customer_id = ?", customerID).
		Pluck("translator_user_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) FindOpenJobs(ctx context.Context, query JobQuery) ([]models.Job, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", enums.JobStatusPending).
		Where("job_type = ?", query.JobType).
		Where("from_language_id IN ?", query.LanguageIDs).
		Order("due ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repository) ListBlacklistingCustomerIDs(ctx context.Context, translatorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Blacklist{}).
		Where("translator_user_id = ?", translatorID).
		Pluck("customer_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

package notifier

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nordtolk/booking-backend/pkg/db/models"
)

// Repository resolves the reference data notification templates need.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds the notifier's lookup repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) LanguageName(ctx context.Context, id uuid.UUID) (string, error) {
	var language models.Language
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&language).Error; err != nil {
		return "", err
	}
	return language.Name, nil
}

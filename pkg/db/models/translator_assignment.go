package models

import (
	"time"

	"github.com/google/uuid"
)

// TranslatorAssignment captures translator assignment history for a job.
// At most one row per job may be active, enforced by a partial unique index.
type TranslatorAssignment struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobID            uuid.UUID  `gorm:"column:job_id;type:uuid;not null"`
	TranslatorUserID uuid.UUID  `gorm:"column:translator_user_id;type:uuid;not null"`
	AssignedByUserID *uuid.UUID `gorm:"column:assigned_by_user_id;type:uuid"`
	Active           bool       `gorm:"column:active;not null;default:true"`
	AssignedAt       time.Time  `gorm:"column:assigned_at;autoCreateTime"`
	CanceledAt       *time.Time `gorm:"column:canceled_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
}

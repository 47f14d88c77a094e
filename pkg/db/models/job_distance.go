package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JobDistance records post-session travel reporting for a physical booking.
type JobDistance struct {
	JobID           uuid.UUID       `gorm:"column:job_id;type:uuid;primaryKey"`
	DistanceKM      decimal.Decimal `gorm:"column:distance_km;type:numeric(8,2);not null;default:0"`
	TravelTime      *string         `gorm:"column:travel_time"`
	SessionComments *string         `gorm:"column:session_comments"`
	FlaggedByAdmin  bool            `gorm:"column:flagged_by_admin;not null;default:false"`
	AdminComment    *string         `gorm:"column:admin_comment"`
	ManuallyHandled bool            `gorm:"column:manually_handled;not null;default:false"`
	FollowedUp      bool            `gorm:"column:followed_up;not null;default:false"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

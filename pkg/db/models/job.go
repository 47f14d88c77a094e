package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/enums"
)

// Job represents an interpretation booking through its whole lifecycle.
type Job struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     uuid.UUID        `gorm:"column:customer_id;type:uuid;not null"`
	Status         enums.JobStatus  `gorm:"column:status;type:job_status;not null;default:'pending'"`
	JobType        enums.JobType    `gorm:"column:job_type;type:job_type;not null"`
	FromLanguageID uuid.UUID        `gorm:"column:from_language_id;type:uuid;not null"`
	ToLanguageID   *uuid.UUID       `gorm:"column:to_language_id;type:uuid"`
	Due            time.Time        `gorm:"column:due;not null"`
	DurationMins   int              `gorm:"column:duration_mins;not null"`
	Immediate      bool             `gorm:"column:immediate;not null;default:false"`
	PhoneBooking   bool             `gorm:"column:phone_booking;not null;default:false"`
	PhysicalBooking bool            `gorm:"column:physical_booking;not null;default:false"`
	Town           *string          `gorm:"column:town"`
	Gender         *enums.Gender    `gorm:"column:gender;type:gender"`
	Certified      *enums.Certified `gorm:"column:certified;type:certified"`
	AdminComments  *string          `gorm:"column:admin_comments"`
	Reference      *string          `gorm:"column:reference"`
	UserEmail      *string          `gorm:"column:user_email"`
	Address        *string          `gorm:"column:address"`
	Instructions   *string          `gorm:"column:instructions"`
	IgnoreExpiring bool             `gorm:"column:ignore_expiring;not null;default:false"`
	IgnoreExpired  bool             `gorm:"column:ignore_expired;not null;default:false"`
	SessionTime    *string          `gorm:"column:session_time"`
	CreatedByAdmin bool             `gorm:"column:created_by_admin;not null;default:false"`
	WillExpireAt   *time.Time       `gorm:"column:will_expire_at"`
	ExpiredAt      *time.Time       `gorm:"column:expired_at"`
	CanceledAt     *time.Time       `gorm:"column:canceled_at"`
	SessionEndedAt *time.Time       `gorm:"column:session_ended_at"`
	// Set when the booking is reserved for one translator; matching must not
	// offer it to anyone else.
	EarmarkedTranslatorID *uuid.UUID `gorm:"column:earmarked_translator_id;type:uuid"`
	ReopenedFromID *uuid.UUID       `gorm:"column:reopened_from_id;type:uuid"`
	Assignments    []TranslatorAssignment `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

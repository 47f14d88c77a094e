package models

import (
	"time"

	"github.com/google/uuid"
)

// Blacklist marks a translator as excluded from a customer's bookings.
type Blacklist struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index:ux_blacklists_pair,unique"`
	TranslatorUserID uuid.UUID `gorm:"column:translator_user_id;type:uuid;not null;index:ux_blacklists_pair,unique"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/nordtolk/booking-backend/pkg/db/types"
	"github.com/nordtolk/booking-backend/pkg/enums"
)

// User represents the canonical identity entity for customers, translators
// and admins. Translator matching fields are null for non-translators.
type User struct {
	ID       uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email    string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name     string         `gorm:"column:name;not null"`
	Phone    *string        `gorm:"column:phone"`
	Type     enums.UserType `gorm:"column:type;type:user_type;not null"`
	IsActive bool           `gorm:"column:is_active;not null;default:true"`
	Town     *string        `gorm:"column:town"`
	Gender   *enums.Gender  `gorm:"column:gender;type:gender"`

	// Customer profile.
	ConsumerType *enums.ConsumerType `gorm:"column:consumer_type;type:consumer_type"`

	// Translator profile.
	TranslatorType  *enums.TranslatorType  `gorm:"column:translator_type;type:translator_type"`
	TranslatorLevel *enums.TranslatorLevel `gorm:"column:translator_level;type:translator_level"`
	LanguageIDs     dbtypes.UUIDArray      `gorm:"column:language_ids;type:uuid[];not null;default:ARRAY[]::uuid[]"`

	// Notification preferences.
	SuppressAllPush    bool `gorm:"column:suppress_all_push;not null;default:false"`
	RejectEmergency    bool `gorm:"column:reject_emergency;not null;default:false"`
	DelayNighttimePush bool `gorm:"column:delay_nighttime_push;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nordtolk/booking-backend/pkg/enums"
)

// CreateBookingInput carries the fields a customer submits for a new booking.
// Immediate bookings ignore Due and DurationMins keeps its submitted value.
type CreateBookingInput struct {
	CustomerID     uuid.UUID
	FromLanguageID uuid.UUID
	ToLanguageID   *uuid.UUID
	Due            time.Time
	DurationMins   int
	Immediate      bool
	PhoneBooking   bool
	PhysicalBooking bool
	Town           *string
	Gender         *enums.Gender
	Certified      *enums.Certified
	Reference      *string
	CreatedByAdmin bool
}

// ChangeStatusInput is the admin-facing status mutation request.
type ChangeStatusInput struct {
	JobID         uuid.UUID
	Target        enums.JobStatus
	AdminComments string
	SessionTime   string
	TranslatorID  *uuid.UUID
	ActorUserID   uuid.UUID
}

// ChangeStatusResult reports whether the mutation changed the row.
type ChangeStatusResult struct {
	Applied bool            `json:"applied"`
	Status  enums.JobStatus `json:"status"`
}

// CancelInput captures an actor-initiated withdrawal.
type CancelInput struct {
	JobID       uuid.UUID
	ActorUserID uuid.UUID
}

// ReassignInput moves a booking between translators.
type ReassignInput struct {
	JobID            uuid.UUID
	NewTranslatorID  *uuid.UUID
	ActorUserID      uuid.UUID
	AdminComments    string
}

// DistanceInput is the post-session travel report for a physical booking.
type DistanceInput struct {
	JobID           uuid.UUID
	DistanceKM      decimal.Decimal
	TravelTime      *string
	SessionComments *string
	FlaggedByAdmin  bool
	AdminComment    *string
	ManuallyHandled bool
	FollowedUp      bool
}

// JobSummary is the list row returned by job queries.
type JobSummary struct {
	ID           uuid.UUID       `json:"id"`
	Status       enums.JobStatus `json:"status"`
	JobType      enums.JobType   `json:"job_type"`
	Due          time.Time       `json:"due"`
	DurationMins int             `json:"duration_mins"`
	Immediate    bool            `json:"immediate"`
	Town         *string         `json:"town,omitempty"`
	SessionTime  *string         `json:"session_time,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// JobList wraps a page of jobs plus the next page cursor.
type JobList struct {
	Jobs       []JobSummary `json:"jobs"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// UserJobs groups the dashboard response for customers and translators.
// Translators additionally see the pool of open jobs they can accept.
type UserJobs struct {
	Active []JobSummary `json:"active"`
	Open   []JobSummary `json:"open,omitempty"`
}

// UpdateBookingInput carries the admin-side booking edit. Nil fields keep
// their stored value. Target and NewTranslatorID trigger the status and
// reassignment flows after the field update.
type UpdateBookingInput struct {
	JobID           uuid.UUID
	Due             *time.Time
	DurationMins    *int
	FromLanguageID  *uuid.UUID
	Reference       *string
	AdminComments   *string
	Target          *enums.JobStatus
	SessionTime     string
	NewTranslatorID *uuid.UUID
	ActorUserID     uuid.UUID
}

// UpdateEmailInput attaches the customer's contact details to a booking.
type UpdateEmailInput struct {
	JobID        uuid.UUID
	UserEmail    *string
	Address      *string
	Instructions *string
	Town         *string
}

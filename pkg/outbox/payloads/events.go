package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/enums"
)

// JobCreatedEvent signals a new booking entering the pending pool.
type JobCreatedEvent struct {
	JobID          uuid.UUID     `json:"job_id"`
	CustomerID     uuid.UUID     `json:"customer_id"`
	JobType        enums.JobType `json:"job_type"`
	FromLanguageID uuid.UUID     `json:"from_language_id"`
	Due            time.Time     `json:"due"`
	Immediate      bool          `json:"immediate"`
}

// JobCanceledEvent is emitted whenever a booking is withdrawn or rejected.
type JobCanceledEvent struct {
	JobID      uuid.UUID       `json:"job_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Status     enums.JobStatus `json:"status"`
	CanceledBy uuid.UUID       `json:"canceled_by"`
	CanceledAt time.Time       `json:"canceled_at"`
}

// JobReopenedEvent reports that a historic booking was put back in play.
// For timed out bookings ReopenedJobID points at the cloned row.
type JobReopenedEvent struct {
	OriginalJobID uuid.UUID `json:"original_job_id"`
	ReopenedJobID uuid.UUID `json:"reopened_job_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
}

// SessionEndedEvent carries the recorded session length when a job completes.
type SessionEndedEvent struct {
	JobID            uuid.UUID `json:"job_id"`
	CustomerID       uuid.UUID `json:"customer_id"`
	TranslatorUserID uuid.UUID `json:"translator_user_id"`
	SessionTime      string    `json:"session_time"`
	EndedAt          time.Time `json:"ended_at"`
}

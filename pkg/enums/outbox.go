package enums

import "fmt"

// OutboxAggregateType identifies the domain aggregate an outbox event
// belongs to.
type OutboxAggregateType string

const (
	AggregateJob        OutboxAggregateType = "job"
	AggregateAssignment OutboxAggregateType = "translator_assignment"
)

func (t OutboxAggregateType) IsValid() bool {
	switch t {
	case AggregateJob, AggregateAssignment:
		return true
	}
	return false
}

func (t OutboxAggregateType) String() string { return string(t) }

// OutboxEventType enumerates the domain events published through the
// transactional outbox.
type OutboxEventType string

const (
	EventJobCreated   OutboxEventType = "job_created"
	EventJobCanceled  OutboxEventType = "job_canceled"
	EventJobReopened  OutboxEventType = "job_reopened"
	EventSessionEnded OutboxEventType = "session_ended"
)

func (t OutboxEventType) IsValid() bool {
	switch t {
	case EventJobCreated, EventJobCanceled, EventJobReopened, EventSessionEnded:
		return true
	}
	return false
}

func (t OutboxEventType) String() string { return string(t) }

func ParseOutboxEventType(s string) (OutboxEventType, error) {
	t := OutboxEventType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid outbox event type %q", s)
	}
	return t, nil
}

// OutboxDLQErrorReason records why a published event was parked on the
// dead letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return true
	}
	return false
}

func (r OutboxDLQErrorReason) String() string { return string(r) }

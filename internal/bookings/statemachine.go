package bookings

import (
	"strings"

	"github.com/google/uuid"

	"github.com/nordtolk/booking-backend/pkg/enums"
)

// Effect names a side effect the caller must perform after a transition
// commits. The state machine itself never touches the outside world.
type Effect string

const (
	EffectRebroadcast        Effect = "rebroadcast"
	EffectNotifyAssigned     Effect = "notify_assigned"
	EffectNotifyCancellation Effect = "notify_cancellation"
	EffectNotifySessionEnded Effect = "notify_session_ended"
)

// ChangeRequest describes a requested status change for a job.
type ChangeRequest struct {
	Current       enums.JobStatus
	Target        enums.JobStatus
	AdminComments string
	SessionTime   string
	TranslatorID  *uuid.UUID
}

// Outcome reports whether a change applies and which effects follow it.
// Applied=false means the request was a recognised no-op: the job row must
// stay untouched and the caller reports success without side effects.
type Outcome struct {
	Applied bool
	Effects []Effect
}

var allowedTargets = map[enums.JobStatus][]enums.JobStatus{
	enums.JobStatusTimedout: {
		enums.JobStatusPending,
		enums.JobStatusAssigned,
	},
	enums.JobStatusCompleted: {
		enums.JobStatusWithdrawBefore24,
		enums.JobStatusWithdrawAfter24,
		enums.JobStatusTimedout,
	},
	enums.JobStatusStarted: {
		enums.JobStatusWithdrawBefore24,
		enums.JobStatusWithdrawAfter24,
		enums.JobStatusTimedout,
		enums.JobStatusCompleted,
	},
	enums.JobStatusPending: {
		enums.JobStatusWithdrawBefore24,
		enums.JobStatusWithdrawAfter24,
		enums.JobStatusTimedout,
		enums.JobStatusAssigned,
	},
	enums.JobStatusWithdrawAfter24: {
		enums.JobStatusTimedout,
	},
	enums.JobStatusAssigned: {
		enums.JobStatusWithdrawBefore24,
		enums.JobStatusWithdrawAfter24,
		enums.JobStatusTimedout,
	},
}

// Transition evaluates a status change request against the lifecycle rules.
// Guard failures (missing comment, missing session time, missing translator)
// and unsupported targets yield Applied=false rather than an error, so a
// stale admin form never faults a booking.
func Transition(req ChangeRequest) Outcome {
	if !req.Current.IsValid() || !req.Target.IsValid() {
		return Outcome{}
	}
	if !targetAllowed(req.Current, req.Target) {
		return Outcome{}
	}

	switch req.Current {
	case enums.JobStatusTimedout:
		return transitionFromTimedout(req)
	case enums.JobStatusCompleted:
		return transitionFromCompleted(req)
	case enums.JobStatusStarted:
		return transitionFromStarted(req)
	case enums.JobStatusPending:
		return transitionFromPending(req)
	case enums.JobStatusWithdrawAfter24:
		return transitionFromWithdrawAfter24(req)
	case enums.JobStatusAssigned:
		return transitionFromAssigned(req)
	}
	return Outcome{}
}

func targetAllowed(current, target enums.JobStatus) bool {
	for _, allowed := range allowedTargets[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

func hasComment(req ChangeRequest) bool {
	return strings.TrimSpace(req.AdminComments) != ""
}

// A timed out booking may be put back in the pending pool, which re-opens
// translator notifications, or assigned directly by an admin.
func transitionFromTimedout(req ChangeRequest) Outcome {
	switch req.Target {
	case enums.JobStatusPending:
		return Outcome{Applied: true, Effects: []Effect{EffectRebroadcast}}
	case enums.JobStatusAssigned:
		if req.TranslatorID == nil || *req.TranslatorID == uuid.Nil {
			return Outcome{}
		}
		return Outcome{Applied: true, Effects: []Effect{EffectNotifyAssigned}}
	}
	return Outcome{}
}

func transitionFromCompleted(req ChangeRequest) Outcome {
	if req.Target == enums.JobStatusTimedout && !hasComment(req) {
		return Outcome{}
	}
	return Outcome{Applied: true}
}

func transitionFromStarted(req ChangeRequest) Outcome {
	if !hasComment(req) {
		return Outcome{}
	}
	if req.Target == enums.JobStatusCompleted {
		if strings.TrimSpace(req.SessionTime) == "" {
			return Outcome{}
		}
		return Outcome{Applied: true, Effects: []Effect{EffectNotifySessionEnded}}
	}
	return Outcome{Applied: true}
}

// Only the timedout target needs an admin comment; assigning straight from
// the pending pool is guarded by the translator change alone.
func transitionFromPending(req ChangeRequest) Outcome {
	switch req.Target {
	case enums.JobStatusAssigned:
		if req.TranslatorID == nil || *req.TranslatorID == uuid.Nil {
			return Outcome{}
		}
		return Outcome{Applied: true, Effects: []Effect{EffectNotifyAssigned}}
	case enums.JobStatusTimedout:
		if !hasComment(req) {
			return Outcome{}
		}
	}
	return Outcome{Applied: true}
}

func transitionFromWithdrawAfter24(req ChangeRequest) Outcome {
	if !hasComment(req) {
		return Outcome{}
	}
	return Outcome{Applied: true}
}

// Withdraw variants need no comment; timing out an assigned booking does.
func transitionFromAssigned(req ChangeRequest) Outcome {
	if req.Target == enums.JobStatusTimedout && !hasComment(req) {
		return Outcome{}
	}
	return Outcome{Applied: true, Effects: []Effect{EffectNotifyCancellation}}
}

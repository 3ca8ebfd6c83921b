package ledger

import "time"

// CallAttempt is one row in the usage ledger: a single admitted request's
// lifecycle from reservation through optional external-call attachment to
// eventual duration finalization.
//
// Invariants:
// - Every attempt counted toward a rate-limit window was inserted
//   synchronously at admission time, never after the fact.
// - ExternalCallID stays nil until the provider assigns one; a reserved
//   attempt whose downstream creation fails is deleted, not finalized.
// - DurationSeconds stays nil until the reconciler learns the terminal
//   duration; only non-nil durations count toward daily budgets.
type CallAttempt struct {
	ID        string `json:"id" db:"id"`
	WidgetID  string `json:"widget_id" db:"widget_id"`
	AccountID string `json:"account_id" db:"account_id"`

	ExternalCallID *string `json:"external_call_id,omitempty" db:"external_call_id"`

	CallType string `json:"call_type" db:"call_type"`

	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	DurationSeconds *int       `json:"duration_seconds,omitempty" db:"duration_seconds"`
	Status          CallStatus `json:"call_status" db:"call_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type CallStatus string

const (
	CallStatusOngoing CallStatus = "ongoing"
	CallStatusEnded   CallStatus = "ended"
	CallStatusError   CallStatus = "error"
)

package audit

import "time"

// Event is an immutable, append-only internal record.
//
// Invariants:
// - Events are never updated or deleted.
// - Audit is internal-only; denial events are not exposed to widget embedders
//   beyond the reason code the admission API already returns.
// - Writes are best-effort; callers must not block call flow on audit failure.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the record.
	Type EventType `json:"type" db:"type"`

	WidgetID  string `json:"widget_id,omitempty" db:"widget_id"`
	AccountID string `json:"account_id,omitempty" db:"account_id"`

	// Reason carries the denial reason code for admission events.
	Reason string `json:"reason,omitempty" db:"reason"`

	// Origin is the requesting page origin as received, for forensics on
	// domain-authorization denials.
	Origin    string `json:"origin,omitempty" db:"origin"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAdmissionDenied EventType = "admission_denied"
	EventTypeReconcileRun    EventType = "reconcile_run"
)

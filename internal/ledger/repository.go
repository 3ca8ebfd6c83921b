package ledger

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("call attempt not found")
	ErrInvalidArgument = errors.New("ledger: invalid argument")
)

// Repository is the persistence contract for call attempts.
//
// It is append-only with controlled deletes: rows are removed only by slot
// release (downstream creation failed) and by the reconciler's orphan sweep
// and retention pruning.
//
// Consistency: callers rely on read-after-write within a session; cross-request
// races between CountSince and Insert are accepted and resolved by the
// admission reservation protocol, not by this interface.
type Repository interface {
	Insert(ctx context.Context, a CallAttempt) error
	GetByID(ctx context.Context, id string) (CallAttempt, error)

	// AttachExternalID records the provider-assigned call ID on a reserved attempt.
	AttachExternalID(ctx context.Context, id, externalCallID string) error

	// Delete removes a reserved attempt entirely (slot release).
	Delete(ctx context.Context, id string) error

	// Finalize writes the terminal duration/status once known. A nil duration
	// is valid for error finalization.
	Finalize(ctx context.Context, id string, durationSeconds *int, status CallStatus) error

	// CountSince counts attempts for a widget with started_at >= since.
	CountSince(ctx context.Context, widgetID string, since time.Time) (int, error)

	// SumCompletedDurationSince sums non-nil duration_seconds for a widget
	// with started_at >= since. In-flight calls contribute nothing.
	SumCompletedDurationSince(ctx context.Context, widgetID string, since time.Time) (int, error)

	// ListUnsynced returns up to limit attempts with an external call ID but
	// no duration, started before olderThan. Oldest first.
	ListUnsynced(ctx context.Context, olderThan time.Time, limit int) ([]CallAttempt, error)

	// DeleteOrphansBefore removes attempts that never got an external call ID
	// and started before cutoff. Returns the number of rows removed.
	DeleteOrphansBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// DeleteStartedBefore removes all attempts started before cutoff,
	// regardless of status. Returns the number of rows removed.
	DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

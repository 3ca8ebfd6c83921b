package slots

import (
	"context"
	"errors"
	"time"

	"widget-gateway/internal/ledger"
	"widget-gateway/internal/widgets"

	"github.com/google/uuid"
)

var ErrInvalidArgument = errors.New("slots: invalid argument")

// Manager drives a call attempt's lifecycle over the ledger:
// reserve (placeholder row) -> attach (provider call ID) or
// release (delete, downstream creation failed).
//
// A slot that is neither attached nor released keeps counting toward rate
// limits until the reconciler's orphan sweep removes it; that leak window is
// bounded by configuration, not by this manager.
type Manager struct {
	ledger ledger.Repository
	clock  func() time.Time
}

func NewManager(repo ledger.Repository) *Manager {
	return &Manager{ledger: repo, clock: time.Now}
}

// Reserve inserts the placeholder attempt and returns its slot ID.
//
// The insert happens before any external network call so that concurrent
// admissions see each other's reservations in the rate-limit count. Errors
// here are storage errors, never business denials.
func (m *Manager) Reserve(ctx context.Context, widgetID, accountID string, callType widgets.CallType) (string, error) {
	if widgetID == "" || accountID == "" {
		return "", ErrInvalidArgument
	}
	if !callType.Valid() {
		return "", ErrInvalidArgument
	}

	slotID := uuid.NewString()
	now := m.clock().UTC()
	err := m.ledger.Insert(ctx, ledger.CallAttempt{
		ID:        slotID,
		WidgetID:  widgetID,
		AccountID: accountID,
		CallType:  string(callType),
		StartedAt: now,
		Status:    ledger.CallStatusOngoing,
	})
	if err != nil {
		return "", err
	}
	return slotID, nil
}

// Attach records the provider-assigned call ID on a reserved slot.
// Call exactly once per successful downstream creation.
func (m *Manager) Attach(ctx context.Context, slotID, externalCallID string) error {
	if slotID == "" || externalCallID == "" {
		return ErrInvalidArgument
	}
	return m.ledger.AttachExternalID(ctx, slotID, externalCallID)
}

// Release deletes a reserved slot so a failed attempt does not count
// against future rate-limit windows.
func (m *Manager) Release(ctx context.Context, slotID string) error {
	if slotID == "" {
		return ErrInvalidArgument
	}
	return m.ledger.Delete(ctx, slotID)
}

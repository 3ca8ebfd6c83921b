package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// LogAdmissionDenied records a denied admission request.
func (s *Service) LogAdmissionDenied(ctx context.Context, widgetID, accountID, reason, origin, ip string) error {
	return s.Append(ctx, Event{
		Type:      EventTypeAdmissionDenied,
		WidgetID:  widgetID,
		AccountID: accountID,
		Reason:    reason,
		Origin:    origin,
		IPAddress: ip,
	})
}

// LogReconcileRun records one reconciler invocation and its summary.
func (s *Service) LogReconcileRun(ctx context.Context, summary string) error {
	return s.Append(ctx, Event{
		Type:     EventTypeReconcileRun,
		Message:  "reconcile run",
		Metadata: summary,
	})
}

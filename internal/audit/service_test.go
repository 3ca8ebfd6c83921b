package audit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestService_AppendFillsDefaults(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC) }

	err := svc.LogAdmissionDenied(context.Background(), "w1", "acc1", "rate_limited", "https://example.com", "203.0.113.9")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	events := repo.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.ID == "" {
		t.Fatalf("expected generated id")
	}
	if e.Type != EventTypeAdmissionDenied || e.Reason != "rate_limited" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if !e.CreatedAt.Equal(time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected clock timestamp, got %v", e.CreatedAt)
	}
}

func TestService_RejectsMissingType(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Append(context.Background(), Event{}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

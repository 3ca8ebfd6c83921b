package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu       sync.Mutex
	attempts map[string]CallAttempt
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{attempts: make(map[string]CallAttempt)}
}

func (r *MemoryRepo) Insert(ctx context.Context, a CallAttempt) error {
	if a.ID == "" || a.WidgetID == "" || a.AccountID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[a.ID] = a
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (CallAttempt, error) {
	if id == "" {
		return CallAttempt{}, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return CallAttempt{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) AttachExternalID(ctx context.Context, id, externalCallID string) error {
	if id == "" || externalCallID == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return ErrNotFound
	}
	a.ExternalCallID = &externalCallID
	r.attempts[id] = a
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attempts[id]; !ok {
		return ErrNotFound
	}
	delete(r.attempts, id)
	return nil
}

func (r *MemoryRepo) Finalize(ctx context.Context, id string, durationSeconds *int, status CallStatus) error {
	if id == "" {
		return ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		return ErrNotFound
	}
	a.DurationSeconds = durationSeconds
	a.Status = status
	r.attempts[id] = a
	return nil
}

func (r *MemoryRepo) CountSince(ctx context.Context, widgetID string, since time.Time) (int, error) {
	if widgetID == "" {
		return 0, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.attempts {
		if a.WidgetID == widgetID && !a.StartedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) SumCompletedDurationSince(ctx context.Context, widgetID string, since time.Time) (int, error) {
	if widgetID == "" {
		return 0, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sum := 0
	for _, a := range r.attempts {
		if a.WidgetID == widgetID && !a.StartedAt.Before(since) && a.DurationSeconds != nil {
			sum += *a.DurationSeconds
		}
	}
	return sum, nil
}

func (r *MemoryRepo) ListUnsynced(ctx context.Context, olderThan time.Time, limit int) ([]CallAttempt, error) {
	if limit <= 0 {
		return nil, ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CallAttempt
	for _, a := range r.attempts {
		if a.DurationSeconds == nil && a.ExternalCallID != nil && a.StartedAt.Before(olderThan) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) DeleteOrphansBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.attempts {
		if a.ExternalCallID == nil && a.StartedAt.Before(cutoff) {
			delete(r.attempts, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) DeleteStartedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, a := range r.attempts {
		if a.StartedAt.Before(cutoff) {
			delete(r.attempts, id)
			n++
		}
	}
	return n, nil
}

// All returns a copy of every stored attempt, for test assertions.
func (r *MemoryRepo) All() []CallAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CallAttempt, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, a)
	}
	return out
}

package widgets

import (
	"context"
	"sync"
)

// MemoryStore is a simple in-memory store useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu      sync.Mutex
	widgets map[string]Widget
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{widgets: make(map[string]Widget)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Widget, error) {
	if id == "" {
		return Widget{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.widgets[id]
	if !ok {
		return Widget{}, ErrNotFound
	}
	return w, nil
}

func (s *MemoryStore) Create(ctx context.Context, w Widget) error {
	if err := validate(w); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.widgets[w.ID] = w
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, w Widget) error {
	if err := validate(w); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.widgets[w.ID]; !ok {
		return ErrNotFound
	}
	s.widgets[w.ID] = w
	return nil
}

package dispute

import (
	"context"
	"sync"

	"verity/pkg/platform/sentinel"
)

// InMemoryStore implements Store with a mutex-guarded map. Disputes are
// cloned on the way in and out so callers never alias store-held state, which
// is what makes version checking meaningful in-process.
type InMemoryStore struct {
	mu       sync.RWMutex
	disputes map[string]*Dispute
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{disputes: make(map[string]*Dispute)}
}

func (s *InMemoryStore) Create(_ context.Context, d *Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.disputes[d.ID]; exists {
		return sentinel.ErrConflict
	}
	d.Version = 1
	s.disputes[d.ID] = d.Clone()
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.disputes[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return d.Clone(), nil
}

func (s *InMemoryStore) Save(_ context.Context, d *Dispute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.disputes[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != d.Version {
		return sentinel.ErrConflict
	}
	d.Version++
	s.disputes[d.ID] = d.Clone()
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*Dispute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Dispute, 0, len(s.disputes))
	for _, d := range s.disputes {
		out = append(out, d.Clone())
	}
	return out, nil
}

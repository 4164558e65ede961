package verification

import (
	"context"
	"sync"

	"verity/pkg/platform/sentinel"
)

// InMemoryStore keeps verification outcomes in a map. Single-process only;
// multi-instance deployments use the Redis store.
type InMemoryStore struct {
	mu            sync.RWMutex
	verifications map[string]Verification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{verifications: make(map[string]Verification)}
}

func (s *InMemoryStore) Save(_ context.Context, v *Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications[v.ID] = *v
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, id string) (*Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verifications[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

package audit

import (
	"context"
	"sync"
)

// InMemoryStore is a PartitionStore for tests and single-process setups.
type InMemoryStore struct {
	mu         sync.RWMutex
	partitions map[string][][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{partitions: make(map[string][][]byte)}
}

func (s *InMemoryStore) Append(_ context.Context, partition string, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions[partition] = append(s.partitions[partition], append([]byte(nil), line...))
	return nil
}

func (s *InMemoryStore) Partitions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.partitions))
	for k := range s.partitions {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *InMemoryStore) ReadLines(_ context.Context, partition string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := make([][]byte, 0, len(s.partitions[partition]))
	for _, l := range s.partitions[partition] {
		lines = append(lines, append([]byte(nil), l...))
	}
	return lines, nil
}

func (s *InMemoryStore) Replace(_ context.Context, partition string, lines [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(lines) == 0 {
		delete(s.partitions, partition)
		return nil
	}
	copied := make([][]byte, 0, len(lines))
	for _, l := range lines {
		copied = append(copied, append([]byte(nil), l...))
	}
	s.partitions[partition] = copied
	return nil
}

// Tamper rewrites the raw lines of a partition through fn. Test hook for
// simulating after-the-fact modification of stored records.
func (s *InMemoryStore) Tamper(partition string, fn func([][]byte) [][]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partitions[partition] = fn(s.partitions[partition])
}

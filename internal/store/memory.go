package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the set in process memory. It does not survive a
// restart and is meant for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	serials []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored serials.
func (s *MemoryStore) Load(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.serials))
	copy(out, s.serials)
	return out, nil
}

// Save replaces the stored serials.
func (s *MemoryStore) Save(ctx context.Context, serials []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serials = append([]string(nil), serials...)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

package queuestore

import (
	"context"
	"sync"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/syncqueue"
)

// MemoryStore keeps the queue snapshot in process memory for tests/dev.
type MemoryStore struct {
	mu      sync.Mutex
	entries []syncqueue.QueuedSubmission
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements syncqueue.Store.
func (s *MemoryStore) Load(_ context.Context) ([]syncqueue.QueuedSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]syncqueue.QueuedSubmission, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

// Save implements syncqueue.Store.
func (s *MemoryStore) Save(_ context.Context, entries []syncqueue.QueuedSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make([]syncqueue.QueuedSubmission, len(entries))
	copy(s.entries, entries)
	return nil
}

var _ syncqueue.Store = (*MemoryStore)(nil)

package historyrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/tharunkamalesh/crop-yield-platform-devops/internal/domain/advisor"
)

// MemoryRepository is an in-memory history for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []advisor.HistoryEntry
}

// NewMemoryRepository constructs a repository backed by process memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append implements advisor.HistoryRepository.
func (r *MemoryRepository) Append(_ context.Context, entry advisor.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

// ListRecent implements advisor.HistoryRepository.
func (r *MemoryRepository) ListRecent(_ context.Context, farmerID string, limit int) ([]advisor.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]advisor.HistoryEntry, 0)
	for _, e := range r.entries {
		if e.FarmerID == farmerID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ advisor.HistoryRepository = (*MemoryRepository)(nil)

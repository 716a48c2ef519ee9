package runstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/loopless/loopcheck/internal/models"
)

// MemoryStore is an in-process Store, used in tests and for evaluating runs
// loaded from files. ListRecent returns runs in insertion order.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*models.RunRecord
	order []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: map[string]*models.RunRecord{}}
}

// Put inserts or replaces a run.
func (s *MemoryStore) Put(run *models.RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.runs[run.RunID]; !exists {
		s.order = append(s.order, run.RunID)
	}
	s.runs[run.RunID] = run
}

// LoadRun implements [Store].
func (s *MemoryStore) LoadRun(_ context.Context, runID string) (*models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return run, nil
}

// ListRecent implements [Store].
func (s *MemoryStore) ListRecent(_ context.Context, limit int) ([]*models.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.order
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	runs := make([]*models.RunRecord, 0, len(ids))
	for _, id := range ids {
		runs = append(runs, s.runs[id])
	}
	return runs, nil
}

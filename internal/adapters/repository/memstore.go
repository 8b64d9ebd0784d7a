package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/perchsocial/cohort-engine/internal/domain/model"

	"github.com/perchsocial/cohort-engine/pkg/metrics"
)

// MemRunStore is the in-memory RunStore. The run recorder is the sole
// writer; the lock exists for concurrent readers (HTTP queries, readiness).
type MemRunStore struct {
	mu      sync.RWMutex
	runs    []model.MatchingRun
	byBatch map[string]int
}

// NewMemRunStore creates an empty MemRunStore.
func NewMemRunStore() *MemRunStore {
	return &MemRunStore{byBatch: make(map[string]int)}
}

// Append implements RunStore.
func (s *MemRunStore) Append(ctx context.Context, run model.MatchingRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byBatch[run.BatchID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBatch, run.BatchID)
	}
	s.byBatch[run.BatchID] = len(s.runs)
	s.runs = append(s.runs, run)
	metrics.UpdateRunsRecorded(len(s.runs))
	return nil
}

// ByBatchID implements RunStore.
func (s *MemRunStore) ByBatchID(ctx context.Context, batchID string) (model.MatchingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byBatch[batchID]
	if !ok {
		return model.MatchingRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, batchID)
	}
	return s.runs[idx], nil
}

// Latest implements RunStore.
func (s *MemRunStore) Latest(ctx context.Context) (model.MatchingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.runs) == 0 {
		return model.MatchingRun{}, ErrRunNotFound
	}
	return s.runs[len(s.runs)-1], nil
}

// Recent implements RunStore.
func (s *MemRunStore) Recent(ctx context.Context, n int) ([]model.MatchingRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.runs) {
		n = len(s.runs)
	}
	out := make([]model.MatchingRun, 0, n)
	for i := len(s.runs) - 1; i >= len(s.runs)-n; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}

// ActiveMembers implements RunStore. Only successful runs carry groups, so
// scanning recorded runs is scanning formed groups.
func (s *MemRunStore) ActiveMembers(ctx context.Context, runWeek model.Week, ttlWeeks int) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	active := make(map[string]bool)
	for i := len(s.runs) - 1; i >= 0; i-- {
		run := s.runs[i]
		if runWeek.Sub(run.Week) >= ttlWeeks {
			break // runs are appended in week order; older ones are expired too
		}
		for _, g := range run.Groups {
			if runWeek.Sub(g.Week) >= ttlWeeks {
				continue
			}
			for _, id := range g.Members {
				active[id] = true
			}
		}
	}
	return active, nil
}

// Count implements RunStore.
func (s *MemRunStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}

// MemHistoryStore is the in-memory append-only history log, pruned to a
// retention window so it stays bounded regardless of total volume.
type MemHistoryStore struct {
	mu             sync.RWMutex
	entries        []model.HistoryEntry
	retentionWeeks int
}

// HistoryOption applies a configuration option to the MemHistoryStore.
type HistoryOption func(*MemHistoryStore)

// WithRetentionWeeks bounds how long entries are retained. Retention must
// cover at least the cooldown window; zero disables pruning.
func WithRetentionWeeks(weeks int) HistoryOption {
	return func(s *MemHistoryStore) {
		if weeks > 0 {
			s.retentionWeeks = weeks
		}
	}
}

// NewMemHistoryStore creates an empty MemHistoryStore.
func NewMemHistoryStore(opts ...HistoryOption) *MemHistoryStore {
	s := &MemHistoryStore{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append implements HistoryStore.
func (s *MemHistoryStore) Append(ctx context.Context, entries []model.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entries...)
	if s.retentionWeeks > 0 {
		s.prune(entries[len(entries)-1].Week)
	}
	metrics.UpdateHistorySize(len(s.entries))
	return nil
}

// prune drops entries older than the retention window relative to the most
// recent appended week. Caller holds the write lock.
func (s *MemHistoryStore) prune(latest model.Week) {
	kept := s.entries[:0]
	for _, e := range s.entries {
		if latest.Sub(e.Week) < s.retentionWeeks {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

// EntriesSince implements HistoryStore.
func (s *MemHistoryStore) EntriesSince(ctx context.Context, week model.Week) ([]model.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.HistoryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Week >= week {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len implements HistoryStore.
func (s *MemHistoryStore) Len(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/hatchlab/hatchd/internal/domain/model"
	"github.com/hatchlab/hatchd/internal/domain/types"
)

const defaultHistoryCapacity = 10000

// MemHistoryStore is a bounded in-memory HistoryStore. It keeps the
// most recent entries in a fixed ring; per-rarity counters cover the
// full lifetime of the store, not just the retained window.
type MemHistoryStore struct {
	mu     sync.RWMutex
	ring   []types.HistoryEntry
	next   int
	filled int
	counts map[string]int64
	total  int64
}

// NewMemHistoryStore creates an in-memory history store retaining up to
// capacity entries. Non-positive capacity falls back to the default.
func NewMemHistoryStore(capacity int) *MemHistoryStore {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &MemHistoryStore{
		ring:   make([]types.HistoryEntry, capacity),
		counts: make(map[string]int64),
	}
}

// Record appends one resolved hatch, evicting the oldest retained entry
// once the ring is full.
func (s *MemHistoryStore) Record(_ context.Context, event model.HatchEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("record hatch: %w", err)
	}

	entry := types.HistoryEntry{
		HatchID:    event.HatchID,
		SubjectID:  event.SubjectID,
		EggID:      event.EggID,
		CategoryID: event.CategoryID,
		RarityID:   event.RarityID,
		At:         event.At,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ring[s.next] = entry
	s.next = (s.next + 1) % len(s.ring)
	if s.filled < len(s.ring) {
		s.filled++
	}
	s.counts[event.RarityID]++
	s.total++
	return nil
}

// Recent returns up to limit retained entries newest-first, filtered by
// subjectID when non-empty.
func (s *MemHistoryStore) Recent(_ context.Context, subjectID string, limit int) ([]types.HistoryEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.HistoryEntry, 0, min(limit, s.filled))
	for i := 0; i < s.filled && len(out) < limit; i++ {
		// Walk backwards from the most recently written slot.
		idx := (s.next - 1 - i + len(s.ring)) % len(s.ring)
		entry := s.ring[idx]
		if subjectID != "" && entry.SubjectID != subjectID {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// Counts returns a copy of the lifetime per-rarity counters.
func (s *MemHistoryStore) Counts(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int64, len(s.counts))
	for rarity, n := range s.counts {
		out[rarity] = n
	}
	return out, nil
}

// Count returns the lifetime number of recorded hatches.
func (s *MemHistoryStore) Count(_ context.Context) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hatchlab/hatchd/internal/domain/effects"
)

// MemModifierStore is the in-memory ModifierStore. Snapshots are copied
// on the way in and out so callers cannot alias stored state.
type MemModifierStore struct {
	mu        sync.RWMutex
	snapshots map[string][]effects.Record
}

// NewMemModifierStore creates an empty in-memory modifier store.
func NewMemModifierStore() *MemModifierStore {
	return &MemModifierStore{
		snapshots: make(map[string][]effects.Record),
	}
}

// Save replaces the snapshot for subjectID. An empty record set removes
// the subject entirely.
func (s *MemModifierStore) Save(_ context.Context, subjectID string, records []effects.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(records) == 0 {
		delete(s.snapshots, subjectID)
		return nil
	}

	copied := make([]effects.Record, len(records))
	copy(copied, records)
	s.snapshots[subjectID] = copied
	return nil
}

// Load returns a copy of the snapshot for subjectID.
func (s *MemModifierStore) Load(_ context.Context, subjectID string) ([]effects.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.snapshots[subjectID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, subjectID)
	}

	copied := make([]effects.Record, len(records))
	copy(copied, records)
	return copied, nil
}

// Subjects returns the sorted IDs of all stored subjects.
func (s *MemModifierStore) Subjects(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.snapshots))
	for id := range s.snapshots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Package repository defines the persistence interfaces for modifier
// snapshots and hatch history, plus their in-memory implementations.
package repository

import (
	"context"

	"github.com/hatchlab/hatchd/internal/domain/effects"
	"github.com/hatchlab/hatchd/internal/domain/model"
	"github.com/hatchlab/hatchd/internal/domain/types"
)

// ModifierStore persists modifier snapshots per subject so active
// effects survive a restart. Snapshots carry remaining durations, never
// computed aggregates.
type ModifierStore interface {
	// Save replaces the stored snapshot for subjectID. An empty record
	// set clears the subject.
	Save(ctx context.Context, subjectID string, records []effects.Record) error

	// Load returns the stored snapshot for subjectID. Returns ErrNotFound
	// if the subject has no snapshot.
	Load(ctx context.Context, subjectID string) ([]effects.Record, error)

	// Subjects returns the IDs of all subjects with a stored snapshot.
	Subjects(ctx context.Context) ([]string, error)
}

// HistoryStore records resolved hatches for querying and per-rarity
// statistics.
type HistoryStore interface {
	// Record appends one resolved hatch.
	Record(ctx context.Context, event model.HatchEvent) error

	// Recent returns up to limit entries, newest first, optionally
	// filtered by subjectID (empty matches all). Returns ErrInvalidLimit
	// when limit is not positive.
	Recent(ctx context.Context, subjectID string, limit int) ([]types.HistoryEntry, error)

	// Counts returns the number of recorded hatches per rarity ID.
	Counts(ctx context.Context) (map[string]int64, error)

	// Count returns the total number of recorded hatches.
	Count(ctx context.Context) int64
}

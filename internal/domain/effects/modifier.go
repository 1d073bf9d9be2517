// Package effects maintains per-subject stat modifiers and produces
// aggregate bonuses for gameplay formulas.
package effects

import (
	"fmt"
	"time"
)

// Permanent is the duration sentinel for modifiers that never expire.
const Permanent time.Duration = -1

// StackingPolicy governs what happens when the same source reapplies a
// modifier for the same stat.
type StackingPolicy int

const (
	// ExtendDuration keeps one modifier and pushes its expiry to the later
	// of the existing expiry and now+duration. Never shortens.
	ExtendDuration StackingPolicy = iota
	// Reset replaces the existing modifier with a fresh one.
	Reset
	// Stack adds an independent modifier entry; all entries contribute to
	// the aggregate sum.
	Stack
)

// String returns the configuration name of the policy.
func (p StackingPolicy) String() string {
	switch p {
	case ExtendDuration:
		return "extend_duration"
	case Reset:
		return "reset"
	case Stack:
		return "stack"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// ParsePolicy converts a configuration name into a StackingPolicy.
func ParsePolicy(name string) (StackingPolicy, error) {
	switch name {
	case "extend_duration":
		return ExtendDuration, nil
	case "reset":
		return Reset, nil
	case "stack":
		return Stack, nil
	default:
		return 0, fmt.Errorf("%w: unknown stacking policy %q", ErrInvalidModifier, name)
	}
}

func (p StackingPolicy) valid() bool {
	switch p {
	case ExtendDuration, Reset, Stack:
		return true
	default:
		return false
	}
}

// Handle identifies one applied modifier entry.
type Handle struct {
	ID        string
	SubjectID string
	SourceID  string
	StatKey   string
}

// Modifier is a read view of one active modifier entry. ExpiresAt is the
// zero time for permanent modifiers.
type Modifier struct {
	SubjectID string
	SourceID  string
	StatKey   string
	Value     float64
	ExpiresAt time.Time
}

// Permanent reports whether the modifier never expires.
func (m Modifier) Permanent() bool {
	return m.ExpiresAt.IsZero()
}

// Record is the persistence exchange form of a modifier: remaining
// duration instead of an absolute expiry, so saved state survives process
// restarts. Stores receive and return Records; aggregates are never
// persisted.
type Record struct {
	SourceID  string        `json:"source_id"`
	StatKey   string        `json:"stat_key"`
	Value     float64       `json:"value"`
	Remaining time.Duration `json:"remaining"`
}

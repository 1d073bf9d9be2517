package effects

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeListener is invoked after any mutation of a subject's modifier
// set. It carries no payload beyond the affected keys; consumers that
// need the new value read it back through Aggregate. The engine makes no
// assumption about the notification transport behind the callback.
type ChangeListener func(subjectID, statKey string)

// Engine holds the live modifier sets for all subjects and answers
// aggregate reads. All stat values are additive fractions (0.5 = +50%);
// the engine only sums, consumers turn sums into multipliers with
// 1 + aggregate. Writes are serialized per subject; operations on
// different subjects run in parallel.
type Engine struct {
	mu       sync.RWMutex
	subjects map[string]*subjectState

	clock    func() time.Time
	listener ChangeListener
}

type modKey struct {
	sourceID string
	statKey  string
}

type entry struct {
	handleID  string
	value     float64
	expiresAt time.Time // zero = permanent
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

type subjectState struct {
	mu   sync.Mutex
	mods map[modKey][]entry
}

// NewEngine creates an empty aggregation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		subjects: make(map[string]*subjectState),
		clock:    time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply registers a modifier contribution for subject. Re-applying the
// same (sourceID, statKey) follows the stacking policy instead of
// silently duplicating: Stack keeps every entry, Reset replaces the
// entry with the new value and expiry, and ExtendDuration replaces the
// value with the new call's value while keeping the furthest expiry of
// the old and new entries. Returns a handle identifying the entry.
func (e *Engine) Apply(subjectID, sourceID, statKey string, value float64, duration time.Duration, policy StackingPolicy) (Handle, error) {
	if subjectID == "" || sourceID == "" || statKey == "" {
		return Handle{}, fmt.Errorf("%w: subject, source and stat must be non-empty", ErrInvalidModifier)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Handle{}, fmt.Errorf("%w: value must be finite", ErrInvalidModifier)
	}
	if duration < 0 && duration != Permanent {
		return Handle{}, fmt.Errorf("%w: negative duration", ErrInvalidModifier)
	}
	if !policy.valid() {
		return Handle{}, fmt.Errorf("%w: unknown stacking policy", ErrInvalidModifier)
	}

	now := e.clock()
	var expiresAt time.Time
	if duration != Permanent {
		expiresAt = now.Add(duration)
	}

	st := e.subject(subjectID)
	st.mu.Lock()

	key := modKey{sourceID: sourceID, statKey: statKey}
	live := pruneExpired(st.mods[key], now)
	fresh := entry{handleID: uuid.NewString(), value: value, expiresAt: expiresAt}

	switch {
	case len(live) == 0:
		st.mods[key] = []entry{fresh}
	case policy == Stack:
		st.mods[key] = append(live, fresh)
	case policy == Reset:
		st.mods[key] = []entry{fresh}
	default: // ExtendDuration
		fresh.expiresAt = latestExpiry(live, expiresAt)
		st.mods[key] = []entry{fresh}
	}
	st.mu.Unlock()

	e.notify(subjectID, statKey)

	return Handle{ID: fresh.handleID, SubjectID: subjectID, SourceID: sourceID, StatKey: statKey}, nil
}

// Remove deletes every entry contributed by (sourceID, statKey) for the
// subject, stacked entries included. Returns false when nothing active
// matched; entries that already expired do not count as a removal, so
// the aggregate changes if and only if Remove reports true. Removing
// twice is not an error.
func (e *Engine) Remove(subjectID, sourceID, statKey string) bool {
	e.mu.RLock()
	st := e.subjects[subjectID]
	e.mu.RUnlock()
	if st == nil {
		return false
	}

	key := modKey{sourceID: sourceID, statKey: statKey}
	now := e.clock()

	st.mu.Lock()
	live := pruneExpired(st.mods[key], now)
	delete(st.mods, key)
	st.mu.Unlock()

	if len(live) == 0 {
		return false
	}
	e.notify(subjectID, statKey)
	return true
}

// PurgeExpired removes all modifiers for subject whose expiry is at or
// before now. Returns the number of entries removed.
func (e *Engine) PurgeExpired(subjectID string, now time.Time) int {
	e.mu.RLock()
	st := e.subjects[subjectID]
	e.mu.RUnlock()
	if st == nil {
		return 0
	}

	removed, stats := purgeSubject(st, now)
	e.dropIfEmpty(subjectID, st)
	for _, statKey := range stats {
		e.notify(subjectID, statKey)
	}
	return removed
}

// PurgeAllExpired sweeps every subject. Intended for a periodic
// orchestration loop; reads do not depend on it because expired entries
// are skipped lazily.
func (e *Engine) PurgeAllExpired(now time.Time) int {
	e.mu.RLock()
	ids := make([]string, 0, len(e.subjects))
	for id := range e.subjects {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	total := 0
	for _, id := range ids {
		total += e.PurgeExpired(id, now)
	}
	return total
}

// Aggregate sums the non-expired contributions for (subject, stat) at
// now. Returns 0 when no modifiers exist: the additive identity, not an
// error.
func (e *Engine) Aggregate(subjectID, statKey string, now time.Time) float64 {
	e.mu.RLock()
	st := e.subjects[subjectID]
	e.mu.RUnlock()
	if st == nil {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	var sum float64
	for key, entries := range st.mods {
		if key.statKey != statKey {
			continue
		}
		for _, en := range entries {
			if !en.expired(now) {
				sum += en.value
			}
		}
	}
	return sum
}

// Aggregates returns every stat's aggregate for subject at now. The
// result is consistent with repeated Aggregate calls at the same now.
func (e *Engine) Aggregates(subjectID string, now time.Time) map[string]float64 {
	out := make(map[string]float64)

	e.mu.RLock()
	st := e.subjects[subjectID]
	e.mu.RUnlock()
	if st == nil {
		return out
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	for key, entries := range st.mods {
		for _, en := range entries {
			if !en.expired(now) {
				out[key.statKey] += en.value
			}
		}
	}
	return out
}

// Modifiers returns a read view of the subject's non-expired entries,
// ordered by (sourceID, statKey) for stable listings.
func (e *Engine) Modifiers(subjectID string, now time.Time) []Modifier {
	e.mu.RLock()
	st := e.subjects[subjectID]
	e.mu.RUnlock()
	if st == nil {
		return nil
	}

	st.mu.Lock()
	var out []Modifier
	for key, entries := range st.mods {
		for _, en := range entries {
			if en.expired(now) {
				continue
			}
			out = append(out, Modifier{
				SubjectID: subjectID,
				SourceID:  key.sourceID,
				StatKey:   key.statKey,
				Value:     en.value,
				ExpiresAt: en.expiresAt,
			})
		}
	}
	st.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].StatKey < out[j].StatKey
	})
	return out
}

// Export snapshots the subject's non-expired modifiers as Records with
// remaining durations, ready to hand to a persistence store.
func (e *Engine) Export(subjectID string, now time.Time) []Record {
	mods := e.Modifiers(subjectID, now)
	if len(mods) == 0 {
		return nil
	}

	out := make([]Record, 0, len(mods))
	for _, m := range mods {
		remaining := Permanent
		if !m.Permanent() {
			remaining = m.ExpiresAt.Sub(now)
		}
		out = append(out, Record{
			SourceID:  m.SourceID,
			StatKey:   m.StatKey,
			Value:     m.Value,
			Remaining: remaining,
		})
	}
	return out
}

// Seed restores previously saved Records for a subject, typically on
// load from the persistence store. Records are applied as independent
// entries so stacked contributions survive a round trip.
func (e *Engine) Seed(subjectID string, records []Record) error {
	for _, r := range records {
		if r.Remaining != Permanent && r.Remaining <= 0 {
			continue // already expired while saved
		}
		if _, err := e.Apply(subjectID, r.SourceID, r.StatKey, r.Value, r.Remaining, Stack); err != nil {
			return fmt.Errorf("seed %s/%s: %w", subjectID, r.SourceID, err)
		}
	}
	return nil
}

// Subjects returns the IDs of subjects with any modifier state, sorted.
func (e *Engine) Subjects() []string {
	e.mu.RLock()
	ids := make([]string, 0, len(e.subjects))
	for id := range e.subjects {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// SubjectCount returns the number of subjects with any modifier state.
func (e *Engine) SubjectCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subjects)
}

func (e *Engine) subject(subjectID string) *subjectState {
	e.mu.RLock()
	st := e.subjects[subjectID]
	e.mu.RUnlock()
	if st != nil {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st = e.subjects[subjectID]; st == nil {
		st = &subjectState{mods: make(map[modKey][]entry)}
		e.subjects[subjectID] = st
	}
	return st
}

func (e *Engine) dropIfEmpty(subjectID string, st *subjectState) {
	// Lock order everywhere is engine.mu before subject.mu.
	e.mu.Lock()
	defer e.mu.Unlock()
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.mods) == 0 && e.subjects[subjectID] == st {
		delete(e.subjects, subjectID)
	}
}

func (e *Engine) notify(subjectID, statKey string) {
	if e.listener != nil {
		e.listener(subjectID, statKey)
	}
}

func pruneExpired(entries []entry, now time.Time) []entry {
	if len(entries) == 0 {
		return nil
	}
	live := entries[:0]
	for _, en := range entries {
		if !en.expired(now) {
			live = append(live, en)
		}
	}
	return live
}

// latestExpiry picks the furthest expiry among existing entries and the
// candidate. A permanent entry (zero time) always wins.
func latestExpiry(entries []entry, candidate time.Time) time.Time {
	if candidate.IsZero() {
		return candidate
	}
	latest := candidate
	for _, en := range entries {
		if en.expiresAt.IsZero() {
			return time.Time{}
		}
		if en.expiresAt.After(latest) {
			latest = en.expiresAt
		}
	}
	return latest
}

func purgeSubject(st *subjectState, now time.Time) (int, []string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	statSet := make(map[string]struct{})
	for key, entries := range st.mods {
		live := pruneExpired(entries, now)
		if n := len(entries) - len(live); n > 0 {
			removed += n
			statSet[key.statKey] = struct{}{}
		}
		if len(live) == 0 {
			delete(st.mods, key)
		} else {
			st.mods[key] = live
		}
	}

	stats := make([]string, 0, len(statSet))
	for s := range statSet {
		stats = append(stats, s)
	}
	sort.Strings(stats)
	return removed, stats
}

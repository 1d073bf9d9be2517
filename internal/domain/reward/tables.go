// Package reward implements the two-stage weighted reward draw: a
// category pick over a weighted pool, then a rarity pick with aggregate
// luck bonuses applied to base tier probabilities.
package reward

import (
	"fmt"
	"math"
	"sort"
)

// DefaultLuckStat is the aggregate stat a tier responds to when its
// configuration names none.
const DefaultLuckStat = "luckBoost"

// DefaultCommonID names the implicit fallback rarity.
const DefaultCommonID = "basic"

// Pool maps category IDs to positive draw weights. Iteration order is
// irrelevant; the resolver always walks categories sorted by ID so draws
// reproduce across runs and implementations.
type Pool map[string]float64

// Tier is one explicit rarity band layered on top of the category draw.
type Tier struct {
	// ID names the tier, e.g. "golden".
	ID string
	// Rank orders tiers by rarity; higher rank is rarer. Rarer tiers get
	// first claim on the probability mass during the draw.
	Rank int
	// BaseProb is the unmodified probability in [0, 1).
	BaseProb float64
	// StatKey names the aggregate stat whose bonus multiplies BaseProb.
	// Empty means DefaultLuckStat.
	StatKey string
}

// RarityTable is the full rarity configuration for one draw. The
// implicit common tier absorbs whatever probability the explicit tiers
// leave over.
type RarityTable struct {
	Tiers []Tier
	// CommonID names the implicit fallback tier. Empty means
	// DefaultCommonID.
	CommonID string
	// CommonFloor is the minimum probability reserved for the common
	// tier even when boosted explicit tiers would crowd it out.
	CommonFloor float64
}

func (t RarityTable) commonID() string {
	if t.CommonID == "" {
		return DefaultCommonID
	}
	return t.CommonID
}

// sortedCategories returns the pool's category IDs in the fixed walk
// order. Without this the floating-point cumulative sum, and with it the
// draw outcome, would depend on map iteration order.
func (p Pool) sortedCategories() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p Pool) totalWeight() float64 {
	var total float64
	for _, w := range p {
		total += w
	}
	return total
}

// ValidatePool eagerly checks the pool invariants: at least one
// category, every weight positive and finite.
func ValidatePool(pool Pool) error {
	return validatePool(pool)
}

// ValidateRarityTable eagerly checks a rarity table and cap set without
// performing a draw.
func ValidateRarityTable(table RarityTable, caps map[string]float64) error {
	return validateRarityTable(table, caps)
}

func validatePool(pool Pool) error {
	if len(pool) == 0 {
		return fmt.Errorf("%w: no categories", ErrEmptyPool)
	}
	for id, w := range pool {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return fmt.Errorf("%w: category %q has non-positive weight %v", ErrEmptyPool, id, w)
		}
	}
	if pool.totalWeight() <= 0 {
		return fmt.Errorf("%w: total weight is zero", ErrEmptyPool)
	}
	return nil
}

func validateRarityTable(table RarityTable, caps map[string]float64) error {
	common := table.commonID()
	if table.CommonFloor < 0 || table.CommonFloor >= 1 {
		return fmt.Errorf("%w: common floor %v outside [0, 1)", ErrInvalidRarityTable, table.CommonFloor)
	}

	seenID := make(map[string]struct{}, len(table.Tiers))
	seenRank := make(map[int]struct{}, len(table.Tiers))
	for _, tier := range table.Tiers {
		if tier.ID == "" {
			return fmt.Errorf("%w: tier with empty id", ErrInvalidRarityTable)
		}
		if tier.ID == common {
			return fmt.Errorf("%w: tier %q collides with the common tier", ErrInvalidRarityTable, tier.ID)
		}
		if _, dup := seenID[tier.ID]; dup {
			return fmt.Errorf("%w: duplicate tier %q", ErrInvalidRarityTable, tier.ID)
		}
		seenID[tier.ID] = struct{}{}
		if _, dup := seenRank[tier.Rank]; dup {
			return fmt.Errorf("%w: duplicate rank %d", ErrInvalidRarityTable, tier.Rank)
		}
		seenRank[tier.Rank] = struct{}{}
		if math.IsNaN(tier.BaseProb) || math.IsInf(tier.BaseProb, 0) || tier.BaseProb < 0 {
			return fmt.Errorf("%w: tier %q has invalid base probability %v", ErrInvalidRarityTable, tier.ID, tier.BaseProb)
		}
	}

	for id, limit := range caps {
		if math.IsNaN(limit) || math.IsInf(limit, 0) || limit <= 0 {
			return fmt.Errorf("%w: cap for %q must be positive, got %v", ErrInvalidRarityTable, id, limit)
		}
	}
	return nil
}

// tiersByRarity returns the explicit tiers rarest-first (rank
// descending, ID ascending on equal rank as a final deterministic
// tie-break, though equal ranks are rejected by validation).
func tiersByRarity(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank > out[j].Rank
		}
		return out[i].ID < out[j].ID
	})
	return out
}

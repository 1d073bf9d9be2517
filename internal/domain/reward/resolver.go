package reward

// Resolved is the outcome of one draw. Immutable once returned.
type Resolved struct {
	CategoryID string
	RarityID   string
}

// Resolve performs one two-stage draw: pick a category from the weighted
// pool, then pick a rarity tier with aggregate bonuses applied.
//
// The function is pure: its only inputs are the arguments and the
// supplied random source, so a seeded source replays a draw exactly.
// All validation happens before the first call to rng, so a failed
// resolve never consumes randomness and later draws stay reproducible.
func Resolve(pool Pool, table RarityTable, caps map[string]float64, aggregates map[string]float64, rng RandomSource) (Resolved, error) {
	if err := validatePool(pool); err != nil {
		return Resolved{}, err
	}
	if err := validateRarityTable(table, caps); err != nil {
		return Resolved{}, err
	}
	if rng == nil {
		rng = DefaultSource()
	}

	category := drawCategory(pool, rng)
	rarity := drawRarity(table, caps, aggregates, rng)

	return Resolved{CategoryID: category, RarityID: rarity}, nil
}

// drawCategory walks categories sorted by ID, accumulating weight, and
// selects the first whose cumulative weight reaches the draw point.
func drawCategory(pool Pool, rng RandomSource) string {
	ids := pool.sortedCategories()
	point := rng.Float64() * pool.totalWeight()

	var cumulative float64
	for _, id := range ids {
		cumulative += pool[id]
		if point <= cumulative {
			return id
		}
	}
	// Float residue can leave the point a hair past the final
	// cumulative sum; the last category owns that remainder.
	return ids[len(ids)-1]
}

// drawRarity computes effective tier probabilities and walks the tiers
// rarest-first so cap-clamping of common tiers cannot crowd out a rare
// result. Falls back to the implicit common tier, which makes a valid
// draw always produce a result.
func drawRarity(table RarityTable, caps map[string]float64, aggregates map[string]float64, rng RandomSource) string {
	ordered := tiersByRarity(table.Tiers)
	probs := effectiveProbabilities(ordered, caps, aggregates, table.CommonFloor)

	point := rng.Float64()
	var cumulative float64
	for i, tier := range ordered {
		cumulative += probs[i]
		if point < cumulative {
			return tier.ID
		}
	}
	return table.commonID()
}

// effectiveProbabilities applies each tier's luck bonus and cap, then
// rescales proportionally if the boosted tiers would leave the common
// tier less than its floor. Input tiers must already be in draw order.
func effectiveProbabilities(ordered []Tier, caps map[string]float64, aggregates map[string]float64, commonFloor float64) []float64 {
	probs := make([]float64, len(ordered))
	var sum float64
	for i, tier := range ordered {
		statKey := tier.StatKey
		if statKey == "" {
			statKey = DefaultLuckStat
		}
		multiplier := 1 + aggregates[statKey]
		if multiplier < 0 {
			multiplier = 0
		}

		p := tier.BaseProb * multiplier
		if limit, ok := caps[tier.ID]; ok && p > limit {
			p = limit
		} else if !ok && p > 1 {
			p = 1
		}
		probs[i] = p
		sum += p
	}

	// Explicit tiers are independent bands, not a strict partition; the
	// common tier takes the remainder. When the boosted sum would push
	// the remainder below the floor, rescale the explicit tiers to fit
	// rather than let common go negative.
	if available := 1 - commonFloor; sum > available && sum > 0 {
		scale := available / sum
		for i := range probs {
			probs[i] *= scale
		}
	}
	return probs
}

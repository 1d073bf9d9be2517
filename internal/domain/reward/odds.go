package reward

import (
	"fmt"
	"math"
)

// Odds is one rarity tier's effective probability for a given modifier
// bundle, plus display renderings of it.
type Odds struct {
	RarityID    string  `json:"rarity_id"`
	Probability float64 `json:"probability"`
	Percent     string  `json:"percent"`
	OneIn       string  `json:"one_in"`
}

// EffectiveOdds previews the rarity distribution a subject with the
// given aggregates would face, common tier included. It consumes no
// randomness and shares the exact probability math with Resolve.
func EffectiveOdds(table RarityTable, caps map[string]float64, aggregates map[string]float64) ([]Odds, error) {
	if err := validateRarityTable(table, caps); err != nil {
		return nil, err
	}

	ordered := tiersByRarity(table.Tiers)
	probs := effectiveProbabilities(ordered, caps, aggregates, table.CommonFloor)

	out := make([]Odds, 0, len(ordered)+1)
	var sum float64
	for i, tier := range ordered {
		out = append(out, oddsFor(tier.ID, probs[i]))
		sum += probs[i]
	}

	common := 1 - sum
	if common < table.CommonFloor {
		common = table.CommonFloor
	}
	out = append(out, oddsFor(table.commonID(), common))
	return out, nil
}

func oddsFor(rarityID string, p float64) Odds {
	return Odds{
		RarityID:    rarityID,
		Probability: p,
		Percent:     FormatPercent(p),
		OneIn:       FormatOneIn(p),
	}
}

// FormatOneIn renders a probability as the "1 in N" form players expect
// on hatch UIs. Zero probability renders as "never"; certainty as
// "guaranteed".
func FormatOneIn(p float64) string {
	switch {
	case p <= 0:
		return "never"
	case p >= 1:
		return "guaranteed"
	}
	n := 1 / p
	if n >= 100 {
		return fmt.Sprintf("1 in %.0f", math.Round(n))
	}
	return fmt.Sprintf("1 in %s", trimFloat(n, 1))
}

// FormatPercent renders a probability as a percentage with just enough
// precision for sub-percent rarities.
func FormatPercent(p float64) string {
	pct := p * 100
	switch {
	case pct >= 10 || pct == 0:
		return trimFloat(pct, 1) + "%"
	case pct >= 1:
		return trimFloat(pct, 2) + "%"
	default:
		return trimFloat(pct, 3) + "%"
	}
}

// trimFloat formats with up to prec decimals, dropping trailing zeros.
func trimFloat(v float64, prec int) string {
	s := fmt.Sprintf("%.*f", prec, v)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// Command simulate runs a Monte Carlo simulation of one egg's draw and
// prints observed versus expected frequencies. Useful for sanity
// checking a catalog file before shipping it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/hatchlab/hatchd/internal/domain/catalog"
	"github.com/hatchlab/hatchd/internal/domain/reward"
	"github.com/hatchlab/hatchd/pkg/logger"
)

const defaultDraws = 100000

func main() {
	var (
		catalogPath = flag.String("catalog", "catalog.yaml", "Path to the egg catalog YAML file")
		eggID       = flag.String("egg", "starter", "Egg ID to simulate")
		draws       = flag.Int("n", defaultDraws, "Number of draws to simulate")
		seed        = flag.Uint64("seed", 0, "Seed for the draw source (0 = crypto source)")
		luck        = flag.Float64("luck", 0, "Aggregate luck bonus applied to every draw (0.5 = +50%)")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := run(*catalogPath, *eggID, *draws, *seed, *luck); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(catalogPath, eggID string, draws int, seed uint64, luck float64) error {
	cat, err := catalog.Load(context.Background(), catalogPath)
	if err != nil {
		return err
	}
	egg, err := cat.Egg(eggID)
	if err != nil {
		return err
	}

	var rng reward.RandomSource
	if seed != 0 {
		rng = reward.NewSeededSource(seed)
	} else {
		rng = reward.DefaultSource()
	}

	var aggregates map[string]float64
	if luck != 0 {
		aggregates = map[string]float64{reward.DefaultLuckStat: luck}
	}

	categories := make(map[string]int)
	rarities := make(map[string]int)
	for i := 0; i < draws; i++ {
		resolved, err := reward.Resolve(egg.Pool, egg.Table, egg.Caps, aggregates, rng)
		if err != nil {
			return err
		}
		categories[resolved.CategoryID]++
		rarities[resolved.RarityID]++
	}

	fmt.Printf("egg %q, %d draws, luck %+.2f\n\n", eggID, draws, luck)

	fmt.Println("categories (observed vs expected):")
	var totalWeight float64
	for _, w := range egg.Pool {
		totalWeight += w
	}
	for _, id := range sortedKeys(categories) {
		observed := float64(categories[id]) / float64(draws)
		expected := egg.Pool[id] / totalWeight
		fmt.Printf("  %-12s %8.4f%%   %8.4f%%\n", id, observed*100, expected*100)
	}

	odds, err := reward.EffectiveOdds(egg.Table, egg.Caps, aggregates)
	if err != nil {
		return err
	}
	expectedRarity := make(map[string]float64, len(odds))
	for _, o := range odds {
		expectedRarity[o.RarityID] = o.Probability
	}

	fmt.Println("\nrarities (observed vs expected):")
	for _, id := range sortedKeys(rarities) {
		observed := float64(rarities[id]) / float64(draws)
		fmt.Printf("  %-12s %8.4f%%   %8.4f%%\n", id, observed*100, expectedRarity[id]*100)
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

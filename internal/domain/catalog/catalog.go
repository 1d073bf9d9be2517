// Package catalog loads the egg catalog: per-egg reward pools, rarity
// tables, caps, and the attributes looked up for resolved rewards.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hatchlab/hatchd/internal/domain/reward"
)

// Attributes are the display/gameplay properties of one resolved
// (category, rarity) pair.
type Attributes struct {
	Name  string  `json:"name"`
	Power float64 `json:"power"`
}

// Egg is one hatchable egg definition. Immutable after load; a reload
// swaps whole Egg values rather than mutating them.
type Egg struct {
	ID    string
	Pool  reward.Pool
	Table reward.RarityTable
	Caps  map[string]float64

	categories  map[string]categoryConfig
	rarityPower map[string]float64
}

type categoryConfig struct {
	name  string
	power float64
}

// Attributes resolves the catalog attributes for a drawn reward. Power
// is the category's base power scaled by the rarity multiplier.
func (e *Egg) Attributes(categoryID, rarityID string) (Attributes, error) {
	cat, ok := e.categories[categoryID]
	if !ok {
		return Attributes{}, fmt.Errorf("%w: %q in egg %q", ErrUnknownCategory, categoryID, e.ID)
	}

	multiplier, ok := e.rarityPower[rarityID]
	if !ok {
		multiplier = 1
	}
	return Attributes{Name: cat.name, Power: cat.power * multiplier}, nil
}

// Catalog holds the active egg set. Safe for concurrent readers; Reload
// swaps the whole set atomically.
type Catalog struct {
	mu      sync.RWMutex
	path    string
	version string
	eggs    map[string]*Egg

	onReload func(eggCount int)
}

// Load reads and validates the catalog file at path.
func Load(ctx context.Context, path string, opts ...Option) (*Catalog, error) {
	c := &Catalog{path: path}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file. On any error the previous egg set
// stays active.
func (c *Catalog) Reload(_ context.Context) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(c.path), yaml.Parser()); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCatalogLoad, c.path, err)
	}

	var raw rawCatalog
	if err := k.UnmarshalWithConf("", &raw, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCatalogLoad, c.path, err)
	}

	eggs, err := buildEggs(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.version = raw.Version
	c.eggs = eggs
	c.mu.Unlock()

	if c.onReload != nil {
		c.onReload(len(eggs))
	}
	return nil
}

// Watch re-loads the catalog whenever the underlying file changes. The
// callback receives the reload result; a failed reload keeps the
// previous catalog. Watch returns after registering and keeps watching
// until the process exits.
func (c *Catalog) Watch(ctx context.Context, onChange func(error)) error {
	provider := file.Provider(c.path)
	err := provider.Watch(func(_ interface{}, watchErr error) {
		if watchErr != nil {
			if onChange != nil {
				onChange(watchErr)
			}
			return
		}
		reloadErr := c.Reload(ctx)
		if onChange != nil {
			onChange(reloadErr)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: watch %s: %v", ErrCatalogLoad, c.path, err)
	}
	return nil
}

// Egg returns the definition for id.
func (c *Catalog) Egg(id string) (*Egg, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	egg, ok := c.eggs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEgg, id)
	}
	return egg, nil
}

// EggIDs returns the sorted IDs of all defined eggs.
func (c *Catalog) EggIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.eggs))
	for id := range c.eggs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Version returns the catalog file's version string.
func (c *Catalog) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Raw file schema.

type rawCatalog struct {
	Version string            `koanf:"version"`
	Eggs    map[string]rawEgg `koanf:"eggs"`
}

type rawEgg struct {
	Pool        map[string]float64     `koanf:"pool"`
	Rarities    []rawTier              `koanf:"rarities"`
	Common      string                 `koanf:"common"`
	CommonFloor float64                `koanf:"common_floor"`
	Categories  map[string]rawCategory `koanf:"categories"`
	RarityPower map[string]float64     `koanf:"rarity_power"`
}

type rawTier struct {
	ID          string  `koanf:"id"`
	Rank        int     `koanf:"rank"`
	Probability float64 `koanf:"probability"`
	Stat        string  `koanf:"stat"`
	// Cap limits the tier's boosted probability; 0 means uncapped.
	Cap float64 `koanf:"cap"`
}

type rawCategory struct {
	Name  string  `koanf:"name"`
	Power float64 `koanf:"power"`
}

func buildEggs(raw rawCatalog) (map[string]*Egg, error) {
	if len(raw.Eggs) == 0 {
		return nil, fmt.Errorf("%w: no eggs defined", ErrInvalidCatalog)
	}

	eggs := make(map[string]*Egg, len(raw.Eggs))
	for id, re := range raw.Eggs {
		egg, err := buildEgg(id, re)
		if err != nil {
			return nil, err
		}
		eggs[id] = egg
	}
	return eggs, nil
}

func buildEgg(id string, re rawEgg) (*Egg, error) {
	pool := make(reward.Pool, len(re.Pool))
	for category, weight := range re.Pool {
		pool[category] = weight
	}

	tiers := make([]reward.Tier, 0, len(re.Rarities))
	caps := make(map[string]float64)
	for _, rt := range re.Rarities {
		tiers = append(tiers, reward.Tier{
			ID:       rt.ID,
			Rank:     rt.Rank,
			BaseProb: rt.Probability,
			StatKey:  rt.Stat,
		})
		if rt.Cap != 0 {
			caps[rt.ID] = rt.Cap
		}
	}

	table := reward.RarityTable{
		Tiers:       tiers,
		CommonID:    re.Common,
		CommonFloor: re.CommonFloor,
	}

	if err := reward.ValidatePool(pool); err != nil {
		return nil, fmt.Errorf("%w: egg %q: %v", ErrInvalidCatalog, id, err)
	}
	if err := reward.ValidateRarityTable(table, caps); err != nil {
		return nil, fmt.Errorf("%w: egg %q: %v", ErrInvalidCatalog, id, err)
	}

	categories := make(map[string]categoryConfig, len(re.Categories))
	for category, rc := range re.Categories {
		power := rc.Power
		if power == 0 {
			power = 1
		}
		name := rc.Name
		if name == "" {
			name = category
		}
		categories[category] = categoryConfig{name: name, power: power}
	}
	for category := range pool {
		if _, ok := categories[category]; !ok {
			return nil, fmt.Errorf("%w: egg %q: pool category %q has no attributes", ErrInvalidCatalog, id, category)
		}
	}

	return &Egg{
		ID:          id,
		Pool:        pool,
		Table:       table,
		Caps:        caps,
		categories:  categories,
		rarityPower: re.RarityPower,
	}, nil
}

package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env
// vars. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if HATCHD_CONFIG is set
//  3. env (prefix HATCHD_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("HATCHD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: HATCHD_ADDR, HATCHD_QUEUE_SIZE, ...
	// Map env keys like HATCHD_QUEUE_SIZE -> queue_size, matching the
	// koanf tags on the struct.
	envProvider := env.Provider("HATCHD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "hatchd_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.CatalogPath == "":
		return nil, fmt.Errorf("%w: catalog_path must not be empty", ErrInvalidConfig)
	case cfg.MaxHistoryLimit < 1:
		return nil, fmt.Errorf("%w: max_history_limit must be positive", ErrInvalidConfig)
	case cfg.PurgeIntervalSeconds < 1:
		return nil, fmt.Errorf("%w: purge_interval_seconds must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}

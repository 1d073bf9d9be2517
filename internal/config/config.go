// Package config defines service configuration structures and loading hooks.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory outcome queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of outcome-recording workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the request deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// HistorySize bounds the retained hatch history.
	HistorySize int `koanf:"history_size"`

	// PurgeIntervalSeconds is the period of the expired-modifier sweep.
	PurgeIntervalSeconds int `koanf:"purge_interval_seconds"`

	// CatalogPath points at the egg catalog YAML file.
	CatalogPath string `koanf:"catalog_path"`

	// WatchCatalog reloads the catalog when its file changes.
	WatchCatalog bool `koanf:"watch_catalog"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		QueueSize:            100_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DedupeSize:           50_000,
		HistorySize:          10_000,
		PurgeIntervalSeconds: 30,
		CatalogPath:          "catalog.yaml",
		WatchCatalog:         false,
		MaxHistoryLimit:      100,
	}
}

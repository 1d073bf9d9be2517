// Package types contains the read shapes shared between the service and
// its HTTP surface.
package types

import "time"

// Reward is one resolved hatch, enriched with catalog attributes.
type Reward struct {
	HatchID    string  `json:"hatch_id"`
	EggID      string  `json:"egg_id"`
	CategoryID string  `json:"category_id"`
	RarityID   string  `json:"rarity_id"`
	Name       string  `json:"name"`
	Power      float64 `json:"power"`
}

// ModifierView is the listing form of one active modifier.
type ModifierView struct {
	SourceID  string  `json:"source_id"`
	StatKey   string  `json:"stat_key"`
	Value     float64 `json:"value"`
	Permanent bool    `json:"permanent"`
	// SecondsLeft is 0 for permanent modifiers.
	SecondsLeft float64 `json:"seconds_left,omitempty"`
}

// HistoryEntry is one recorded hatch outcome.
type HistoryEntry struct {
	HatchID    string    `json:"hatch_id"`
	SubjectID  string    `json:"subject_id"`
	EggID      string    `json:"egg_id"`
	CategoryID string    `json:"category_id"`
	RarityID   string    `json:"rarity_id"`
	At         time.Time `json:"at"`
}

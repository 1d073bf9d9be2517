package reward

import "errors"

// Sentinel error kinds for this package. Callers match with errors.Is.
var (
	ErrEmptyPool          = errors.New("reward pool has no drawable weight")
	ErrInvalidRarityTable = errors.New("invalid rarity table")
)

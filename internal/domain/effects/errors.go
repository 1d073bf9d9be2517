package effects

import "errors"

// Sentinel error kinds for this package. Callers match with errors.Is.
var (
	ErrInvalidModifier = errors.New("invalid modifier")
)

package catalog

import "errors"

// Sentinel error kinds for this package. Callers match with errors.Is.
var (
	ErrCatalogLoad     = errors.New("catalog load failed")
	ErrInvalidCatalog  = errors.New("invalid catalog")
	ErrUnknownEgg      = errors.New("unknown egg")
	ErrUnknownCategory = errors.New("unknown category")
)

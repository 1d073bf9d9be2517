package catalog

// Option applies a configuration option to the Catalog.
type Option func(*Catalog)

// WithReloadHook sets a callback invoked after every successful load
// with the number of eggs in the new catalog.
func WithReloadHook(hook func(eggCount int)) Option {
	return func(c *Catalog) {
		c.onReload = hook
	}
}

package effects

import "time"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the time source used when computing expiries in Apply.
// Reads and purges take an explicit now instead.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithChangeListener sets a callback invoked after each mutation.
func WithChangeListener(listener ChangeListener) Option {
	return func(e *Engine) {
		e.listener = listener
	}
}

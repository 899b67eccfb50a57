package animator

import (
	"io"
	"log"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithLogger is an option builder that sets the logger used for asset warnings such as unresolved
// clip targets. Passing nil discards log output.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the logger option to an animator
func WithLogger(logger *log.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if logger == nil {
			logger = log.New(io.Discard, "", 0)
		}
		a.logger = logger
	}
}

// WithObservers is an option builder that registers animator-level observers.
//
// Parameters:
//   - observers: the observers to register
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the observers option to an animator
func WithObservers(observers ...Observer) AnimatorBuilderOption {
	return func(a *animator) {
		for _, o := range observers {
			a.observers.add(o)
		}
	}
}

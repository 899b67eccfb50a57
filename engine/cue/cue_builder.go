package cue

import (
	"io"
	"log"
	"maps"
)

// DirectorBuilderOption is a functional option for configuring a Director via NewDirector.
type DirectorBuilderOption func(*director)

// WithLogger sets the logger used for clip lookup failures. Passing nil discards output.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - DirectorBuilderOption: option function to apply
func WithLogger(logger *log.Logger) DirectorBuilderOption {
	return func(d *director) {
		if logger == nil {
			logger = log.New(io.Discard, "", 0)
		}
		d.logger = logger
	}
}

// WithModules restricts the tengo standard library modules a script may import.
// By default every module is available.
//
// Parameters:
//   - names: the module names, e.g. "math", "text"
//
// Returns:
//   - DirectorBuilderOption: option function to apply
func WithModules(names ...string) DirectorBuilderOption {
	return func(d *director) {
		d.modules = names
	}
}

// WithState seeds the script's persistent state map. Values are converted to tengo objects by
// NewDirector, which fails on a value tengo cannot represent.
//
// Parameters:
//   - values: the initial state values
//
// Returns:
//   - DirectorBuilderOption: option function to apply
func WithState(values map[string]any) DirectorBuilderOption {
	return func(d *director) {
		if d.seed == nil {
			d.seed = make(map[string]any, len(values))
		}
		maps.Copy(d.seed, values)
	}
}

func withPath(path string) DirectorBuilderOption {
	return func(d *director) {
		d.path = path
	}
}

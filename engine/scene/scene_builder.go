package scene

import (
	"io"
	"log"

	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/engine/profiler"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithModels adds initial models to the scene. Models whose name is already taken are logged and
// skipped.
//
// Parameters:
//   - models: the models to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithModels(models ...model.Model) SceneBuilderOption {
	return func(s *scene) {
		for _, m := range models {
			if _, ok := s.byName[m.Name()]; ok {
				s.logger.Printf("[Scene] %s: duplicate model %q skipped", s.name, m.Name())
				continue
			}
			e := &entry{model: m}
			s.entries = append(s.entries, e)
			s.byName[m.Name()] = e
		}
	}
}

// WithComputeWorkers sets the number of worker goroutines models are ticked and rendered on.
// Defaults to runtime.NumCPU()-1. A value of 1 processes models sequentially on the calling
// goroutine.
//
// Parameters:
//   - n: the number of compute workers (minimum 1)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithComputeWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		if n < 1 {
			n = 1
		}
		s.computeWorkers = n
	}
}

// WithProfiler attaches a profiler that is fed after every Tick.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithProfiler(p *profiler.Profiler) SceneBuilderOption {
	return func(s *scene) {
		s.prof = p
	}
}

// WithLogger sets the logger used for director errors. Passing nil discards output.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger *log.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger == nil {
			logger = log.New(io.Discard, "", 0)
		}
		s.logger = logger
	}
}

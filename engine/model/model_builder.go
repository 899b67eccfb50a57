package model

import (
	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/go-gl/mathgl/mgl32"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithClipSource is an option builder that sets the source used by CreateTrackByName.
//
// Parameters:
//   - source: the clip source, typically a library.Library
//
// Returns:
//   - ModelBuilderOption: a function that applies the clip source option to a model
func WithClipSource(source ClipSource) ModelBuilderOption {
	return func(m *model) {
		m.clips = source
	}
}

// WithWorldTransform is an option builder that sets the world matrix the skeleton is initialized
// and rendered against.
//
// Parameters:
//   - world: the model's world matrix
//
// Returns:
//   - ModelBuilderOption: a function that applies the world transform option to a model
func WithWorldTransform(world mgl32.Mat4) ModelBuilderOption {
	return func(m *model) {
		m.world = world
	}
}

// WithAnimatorOptions is an option builder that forwards options to the model's Animator.
//
// Parameters:
//   - options: the animator options (logger, observers)
//
// Returns:
//   - ModelBuilderOption: a function that applies the animator options to a model
func WithAnimatorOptions(options ...animator.AnimatorBuilderOption) ModelBuilderOption {
	return func(m *model) {
		m.animatorOptions = append(m.animatorOptions, options...)
	}
}

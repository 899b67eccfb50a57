package animator

import (
	"github.com/tanema/gween/ease"
)

// TrackBuilderOption is a functional option for configuring a Track via Animator.CreateTrack.
type TrackBuilderOption func(*track)

// WithPriority is an option builder that sets the priority of the Track. Higher priorities are
// blended first and win contested nodes.
//
// Parameters:
//   - priority: the track priority
//
// Returns:
//   - TrackBuilderOption: a function that applies the priority option to a track
func WithPriority(priority int) TrackBuilderOption {
	return func(t *track) {
		t.priority = priority
	}
}

// WithOverrideOnFull is an option builder that makes the Track stop every other active track of the
// same priority whenever it is played at a weight of 1 or more.
//
// Parameters:
//   - override: true to enable override-on-full
//
// Returns:
//   - TrackBuilderOption: a function that applies the override option to a track
func WithOverrideOnFull(override bool) TrackBuilderOption {
	return func(t *track) {
		t.overrideOnFull = override
	}
}

// WithSpeed is an option builder that sets the playback speed multiplier of the Track.
// The multiplier scales elapsed time for position, weight ramps and blend-out countdown alike.
//
// Parameters:
//   - speed: the speed multiplier (1.0 = normal)
//
// Returns:
//   - TrackBuilderOption: a function that applies the speed option to a track
func WithSpeed(speed float32) TrackBuilderOption {
	return func(t *track) {
		t.speed = speed
	}
}

// WithTransitionEasing is an option builder that shapes the transition from the snapshot pose into
// the clip's first frame. The default is ease.Linear.
//
// Parameters:
//   - fn: the easing function, evaluated as fn(progress, 0, 1, 1)
//
// Returns:
//   - TrackBuilderOption: a function that applies the easing option to a track
func WithTransitionEasing(fn ease.TweenFunc) TrackBuilderOption {
	return func(t *track) {
		if fn != nil {
			t.easing = fn
		}
	}
}

// playParams holds the arguments of a single Play call.
type playParams struct {
	transition float32
	weight     float32
	blendIn    float32
	blendOut   float32
	looping    bool
}

// PlayOption is a functional option for a single Track.Play or Track.Loop call.
type PlayOption func(*playParams)

// WithTransition sets the interval in seconds over which the track's start pose is interpolated
// from the skeleton's current pose into the clip's first frame. Zero disables the transition.
//
// Parameters:
//   - seconds: the transition interval
//
// Returns:
//   - PlayOption: a function that applies the transition to a play call
func WithTransition(seconds float32) PlayOption {
	return func(p *playParams) {
		p.transition = seconds
	}
}

// WithWeight sets the weight the track ramps toward. The default is 1.
//
// Parameters:
//   - weight: the target weight
//
// Returns:
//   - PlayOption: a function that applies the weight to a play call
func WithWeight(weight float32) PlayOption {
	return func(p *playParams) {
		p.weight = weight
	}
}

// WithBlendIn sets the interval in seconds over which the weight ramps from its current value to
// the target weight. Zero jumps immediately.
//
// Parameters:
//   - seconds: the blend-in interval
//
// Returns:
//   - PlayOption: a function that applies the blend-in to a play call
func WithBlendIn(seconds float32) PlayOption {
	return func(p *playParams) {
		p.blendIn = seconds
	}
}

// WithBlendOut sets the interval in seconds over which a non-looping track fades to zero before the
// end of its clip. Ignored for looping playback.
//
// Parameters:
//   - seconds: the blend-out interval
//
// Returns:
//   - PlayOption: a function that applies the blend-out to a play call
func WithBlendOut(seconds float32) PlayOption {
	return func(p *playParams) {
		p.blendOut = seconds
	}
}

// WithLooping overrides the clip's default looping flag for this play call.
//
// Parameters:
//   - looping: true to loop
//
// Returns:
//   - PlayOption: a function that applies the looping flag to a play call
func WithLooping(looping bool) PlayOption {
	return func(p *playParams) {
		p.looping = looping
	}
}

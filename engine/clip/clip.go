package clip

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-pose/common"
)

var (
	// ErrFrameRate is returned when a clip is built with a non-positive frame rate.
	ErrFrameRate = errors.New("clip: frame rate must be positive")

	// ErrNoFrames is returned when a clip is built without any frames.
	ErrNoFrames = errors.New("clip: at least one frame is required")

	// ErrFrameSize is returned when a frame's transform count does not match the target count.
	ErrFrameSize = errors.New("clip: frame transform count does not match target count")
)

// Frame is one keyframe of a clip, holding one transform per target, index-aligned with the clip's targets.
type Frame []common.Transform

// clip is the implementation of the Clip interface.
type clip struct {
	name      string
	frameRate int
	looping   bool
	targets   []string
	frames    []Frame
}

// Clip defines the read-only view of an animation clip.
//
// A Clip is immutable after construction and may be shared by reference across any number of
// tracks, models and goroutines without synchronization. Validation of frame and target counts
// happens once in NewClip; playback never re-checks it.
type Clip interface {
	// Name retrieves the clip identifier.
	//
	// Returns:
	//   - string: the clip name
	Name() string

	// FrameRate retrieves the sample rate of the clip in frames per second.
	//
	// Returns:
	//   - int: the frame rate
	FrameRate() int

	// Looping reports the clip's default looping flag from its metadata.
	//
	// Returns:
	//   - bool: true if the clip loops by default
	Looping() bool

	// Targets returns a copy of the ordered target node names.
	//
	// Returns:
	//   - []string: the target node names
	Targets() []string

	// Target returns the node name of a single target slot.
	//
	// Parameters:
	//   - index: the target slot index
	//
	// Returns:
	//   - string: the node name for that slot
	Target(index int) string

	// TargetCount returns the number of target slots.
	//
	// Returns:
	//   - int: the target count
	TargetCount() int

	// FrameCount returns the number of frames.
	//
	// Returns:
	//   - int: the frame count
	FrameCount() int

	// Transform returns the keyframe transform for a target slot in a frame.
	//
	// Parameters:
	//   - frame: the frame index in [0, FrameCount)
	//   - target: the target slot index in [0, TargetCount)
	//
	// Returns:
	//   - common.Transform: the keyframe transform
	Transform(frame, target int) common.Transform

	// Duration returns the total clip length in seconds, FrameCount / FrameRate.
	//
	// Returns:
	//   - float32: the clip duration in seconds
	Duration() float32
}

var _ Clip = &clip{}

// NewClip creates a new immutable Clip and validates its keyframe data.
// Targets and frames are deep-copied so later changes to the caller's slices have no effect.
//
// Parameters:
//   - name: the clip identifier
//   - options: variadic list of ClipBuilderOption functions to configure the Clip
//
// Returns:
//   - Clip: the validated clip
//   - error: ErrFrameRate, ErrNoFrames or ErrFrameSize (wrapped) if the data is inconsistent
func NewClip(name string, options ...ClipBuilderOption) (Clip, error) {
	c := &clip{name: name}
	for _, opt := range options {
		opt(c)
	}

	if c.frameRate <= 0 {
		return nil, fmt.Errorf("%w: %q has %d", ErrFrameRate, name, c.frameRate)
	}
	if len(c.frames) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoFrames, name)
	}
	for i, f := range c.frames {
		if len(f) != len(c.targets) {
			return nil, fmt.Errorf("%w: %q frame %d has %d transforms for %d targets", ErrFrameSize, name, i, len(f), len(c.targets))
		}
	}
	return c, nil
}

func (c *clip) Name() string {
	return c.name
}

func (c *clip) FrameRate() int {
	return c.frameRate
}

func (c *clip) Looping() bool {
	return c.looping
}

func (c *clip) Targets() []string {
	out := make([]string, len(c.targets))
	copy(out, c.targets)
	return out
}

func (c *clip) Target(index int) string {
	return c.targets[index]
}

func (c *clip) TargetCount() int {
	return len(c.targets)
}

func (c *clip) FrameCount() int {
	return len(c.frames)
}

func (c *clip) Transform(frame, target int) common.Transform {
	return c.frames[frame][target]
}

func (c *clip) Duration() float32 {
	return float32(len(c.frames)) / float32(c.frameRate)
}

package clip

// ClipBuilderOption is a functional option for configuring a Clip via NewClip.
type ClipBuilderOption func(*clip)

// WithFrameRate is an option builder that sets the sample rate of the Clip.
//
// Parameters:
//   - fps: the frame rate in frames per second
//
// Returns:
//   - ClipBuilderOption: a function that applies the frame rate option to a clip
func WithFrameRate(fps int) ClipBuilderOption {
	return func(c *clip) {
		c.frameRate = fps
	}
}

// WithLooping is an option builder that sets the Clip's default looping flag.
//
// Parameters:
//   - looping: true if the clip loops by default
//
// Returns:
//   - ClipBuilderOption: a function that applies the looping option to a clip
func WithLooping(looping bool) ClipBuilderOption {
	return func(c *clip) {
		c.looping = looping
	}
}

// WithTargets is an option builder that sets the ordered target node names of the Clip.
//
// Parameters:
//   - targets: the node names, one per transform slot in each frame
//
// Returns:
//   - ClipBuilderOption: a function that applies the targets option to a clip
func WithTargets(targets ...string) ClipBuilderOption {
	return func(c *clip) {
		c.targets = make([]string, len(targets))
		copy(c.targets, targets)
	}
}

// WithFrames is an option builder that sets the ordered frames of the Clip.
// Each frame is copied so the clip owns its keyframe data.
//
// Parameters:
//   - frames: the frames, each index-aligned with the clip's targets
//
// Returns:
//   - ClipBuilderOption: a function that applies the frames option to a clip
func WithFrames(frames ...Frame) ClipBuilderOption {
	return func(c *clip) {
		c.frames = make([]Frame, len(frames))
		for i, f := range frames {
			c.frames[i] = make(Frame, len(f))
			copy(c.frames[i], f)
		}
	}
}

// AppendFrame is an option builder that appends a single frame to the Clip.
//
// Parameters:
//   - frame: the frame to append
//
// Returns:
//   - ClipBuilderOption: a function that appends the frame to a clip
func AppendFrame(frame Frame) ClipBuilderOption {
	return func(c *clip) {
		f := make(Frame, len(frame))
		copy(f, frame)
		c.frames = append(c.frames, f)
	}
}

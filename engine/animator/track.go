package animator

import (
	"math"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/tanema/gween/ease"
)

// track is the implementation of the Track interface.
type track struct {
	owner   *animator
	clip    clip.Clip
	targets []skeleton.NodeID

	priority       int
	overrideOnFull bool
	speed          float32
	easing         ease.TweenFunc

	weight, targetWeight, weightRate float32

	// while transitioning, frameFraction holds the transition progress in [0, 1)
	transitioning bool
	transition    float32
	snapshot      []common.Transform

	frameIndex    int
	frameFraction float32
	looping       bool

	blendOut          float32
	blendOutCountdown float32
	blendOutArmed     bool

	completed bool
	active    bool

	observers observerList
}

// Track defines one playing instance of a clip bound to a skeleton.
//
// A Track moves through Created → Transitioning (optional) → Steady → Blending-out (optional) and
// ends either Cancelled (its weight ramped to zero) or Completed (a non-looping clip reached its last
// frame). Both endings are reported through a single AnimationStopped notification.
//
// Tracks are created by Animator.CreateTrack and are only ever driven from the owning Animator's
// goroutine.
type Track interface {
	// Clip retrieves the clip this track plays.
	//
	// Returns:
	//   - clip.Clip: the shared, immutable clip
	Clip() clip.Clip

	// Priority retrieves the track priority.
	//
	// Returns:
	//   - int: the priority
	Priority() int

	// OverrideOnFull reports whether playing at full weight stops other tracks of the same priority.
	//
	// Returns:
	//   - bool: true if override-on-full is enabled
	OverrideOnFull() bool

	// Target returns the skeleton node resolved for a clip target slot.
	//
	// Parameters:
	//   - index: the target slot index
	//
	// Returns:
	//   - skeleton.NodeID: the node, or skeleton.NoNode if the name did not resolve
	Target(index int) skeleton.NodeID

	// Play starts or restarts playback from frame 0 and inserts the track into the active list.
	//
	// Parameters:
	//   - options: variadic list of PlayOption functions (transition, weight, blend-in, blend-out, looping)
	Play(options ...PlayOption)

	// Loop is Play with looping forced on.
	//
	// Parameters:
	//   - options: variadic list of PlayOption functions
	Loop(options ...PlayOption)

	// Stop ramps the weight to zero over blend seconds; the track is reported as cancelled on the
	// tick the weight reaches zero. Zero cancels an active track at once: it leaves the active list
	// and AnimationStopped(false) fires before Stop returns.
	//
	// Parameters:
	//   - blend: the fade-out interval in seconds
	Stop(blend float32)

	// Seek pins the playback position without touching weight or transition state.
	// The integer part selects the frame, the fractional part the interpolation toward the next one.
	//
	// Parameters:
	//   - frame: the frame position
	Seek(frame float32)

	// Tick advances weight, blend-out countdown and playback position by elapsed seconds
	// (scaled by the track speed).
	//
	// Parameters:
	//   - elapsed: the simulation time step in seconds
	//
	// Returns:
	//   - bool: true if the track was cancelled or completed during this tick
	Tick(elapsed float32) bool

	// UpdateTransforms writes the track's interpolated pose directly into every resolved target.
	// Used when the track is the only active one.
	UpdateTransforms()

	// BlendTransforms accumulates the track's interpolated pose into every resolved target using the
	// per-node blend scratch. The first track touching a node in ctx writes its pose directly; later
	// tracks blend into it with the remaining weight capacity only.
	//
	// Parameters:
	//   - ctx: the tick context of the current blend pass
	BlendTransforms(ctx TickContext)

	// Speed retrieves the playback speed multiplier.
	//
	// Returns:
	//   - float32: the speed multiplier
	Speed() float32

	// SetSpeed sets the playback speed multiplier.
	//
	// Parameters:
	//   - speed: the speed multiplier (1.0 = normal)
	SetSpeed(speed float32)

	// Weight retrieves the current weight.
	//
	// Returns:
	//   - float32: the weight
	Weight() float32

	// TargetWeight retrieves the weight the track is ramping toward.
	//
	// Returns:
	//   - float32: the target weight
	TargetWeight() float32

	// Frame retrieves the playback position.
	//
	// Returns:
	//   - int: the frame index
	//   - float32: the fractional accumulator (transition progress while transitioning)
	Frame() (int, float32)

	// Looping reports whether the current playback loops.
	//
	// Returns:
	//   - bool: true if looping
	Looping() bool

	// Transitioning reports whether the track is still interpolating from its snapshot pose.
	//
	// Returns:
	//   - bool: true while transitioning
	Transitioning() bool

	// Completed reports whether non-looping playback reached the final frame.
	//
	// Returns:
	//   - bool: true once completed
	Completed() bool

	// Active reports whether the track is in its Animator's active list.
	//
	// Returns:
	//   - bool: true if active
	Active() bool

	// AddObserver registers a track-local observer.
	//
	// Parameters:
	//   - o: the observer to add
	AddObserver(o Observer)

	// RemoveObserver unregisters a track-local observer.
	//
	// Parameters:
	//   - o: the observer to remove
	RemoveObserver(o Observer)
}

var _ Track = &track{}

func (t *track) Clip() clip.Clip {
	return t.clip
}

func (t *track) Priority() int {
	return t.priority
}

func (t *track) OverrideOnFull() bool {
	return t.overrideOnFull
}

func (t *track) Target(index int) skeleton.NodeID {
	return t.targets[index]
}

func (t *track) Play(options ...PlayOption) {
	p := playParams{weight: 1, looping: t.clip.Looping()}
	for _, opt := range options {
		opt(&p)
	}
	t.play(p)
}

func (t *track) Loop(options ...PlayOption) {
	t.Play(append(options, WithLooping(true))...)
}

// play implements Play once the options are resolved.
func (t *track) play(p playParams) {
	t.frameIndex = 0
	t.frameFraction = 0
	t.completed = false
	t.looping = p.looping

	t.transition = p.transition
	t.transitioning = p.transition > 0
	if t.transitioning {
		skel := t.owner.skel
		t.snapshot = t.snapshot[:0]
		for _, id := range t.targets {
			if id == skeleton.NoNode {
				t.snapshot = append(t.snapshot, common.IdentityTransform())
				continue
			}
			t.snapshot = append(t.snapshot, skel.LocalTransform(id))
		}
	}

	t.blendToWeight(p.weight, p.blendIn)

	t.blendOut = p.blendOut
	t.blendOutArmed = !p.looping && p.blendOut > 0
	if t.blendOutArmed {
		t.blendOutCountdown = t.clip.Duration() - p.blendOut
	}

	if t.overrideOnFull && p.weight >= 1 {
		t.owner.overrideAtPriority(t)
	}
	t.owner.insert(t)

	t.observers.started(t)
	t.owner.observers.started(t)
}

// blendToWeight sets up a linear weight ramp toward weight over interval seconds.
func (t *track) blendToWeight(weight, interval float32) {
	t.targetWeight = weight
	if interval > 0 {
		t.weightRate = (weight - t.weight) / interval
		return
	}
	t.weight = weight
	t.weightRate = 0
}

func (t *track) Stop(blend float32) {
	t.blendOutArmed = false
	t.blendToWeight(0, blend)
	if blend > 0 || !t.active || t.completed {
		return
	}
	t.cancel()
}

// cancel takes the track out of the active list and reports it stopped without completing. The
// removal comes first so an observer that plays the track again re-inserts it.
func (t *track) cancel() {
	t.owner.remove(t)
	t.observers.stopped(t, false)
	t.owner.observers.stopped(t, false)
}

func (t *track) Seek(frame float32) {
	whole := math.Floor(float64(frame))
	t.frameIndex = t.wrapFrame(int(whole))
	t.frameFraction = frame - float32(whole)
}

func (t *track) Tick(elapsed float32) bool {
	elapsed *= t.speed

	if t.weight != t.targetWeight {
		t.weight += t.weightRate * elapsed
		if (t.weightRate >= 0 && t.weight >= t.targetWeight) || (t.weightRate <= 0 && t.weight <= t.targetWeight) {
			t.weight = t.targetWeight
		}
	}
	if t.cancelled() {
		t.cancel()
		return true
	}

	if t.blendOutArmed {
		t.blendOutCountdown -= elapsed
		if t.blendOutCountdown <= 0 {
			t.blendOutArmed = false
			t.blendToWeight(0, t.blendOut)
		}
	}

	if t.advance(elapsed) {
		t.observers.stopped(t, true)
		t.owner.observers.stopped(t, true)
		return true
	}
	return false
}

// advance moves the playback position by elapsed (already speed-scaled) seconds.
//
// Parameters:
//   - elapsed: the scaled time step in seconds
//
// Returns:
//   - bool: true if non-looping playback completed on this call
func (t *track) advance(elapsed float32) bool {
	fps := float32(t.clip.FrameRate())
	if t.transitioning {
		t.frameFraction += elapsed / t.transition
		if t.frameFraction < 1 {
			return false
		}
		leftover := (t.frameFraction - 1) * t.transition
		t.transitioning = false
		t.frameIndex = 0
		t.frameFraction = leftover * fps
	} else {
		t.frameFraction += elapsed * fps
	}

	if t.frameFraction >= 1 || t.frameFraction < 0 {
		whole := math.Floor(float64(t.frameFraction))
		t.frameIndex += int(whole)
		t.frameFraction -= float32(whole)
	}

	last := t.clip.FrameCount() - 1
	if t.looping {
		t.frameIndex = t.wrapFrame(t.frameIndex)
		return false
	}
	if t.frameIndex < 0 {
		t.frameIndex = 0
	}
	if t.frameIndex >= last {
		t.frameIndex = last
		t.frameFraction = 0
		t.completed = true
		return true
	}
	return false
}

// wrapFrame maps a frame index into range: modulo the frame count when looping, clamped otherwise.
func (t *track) wrapFrame(index int) int {
	count := t.clip.FrameCount()
	if t.looping {
		return ((index % count) + count) % count
	}
	return max(0, min(index, count-1))
}

// sample computes the interpolated pose of one target slot at the current position.
func (t *track) sample(slot int) common.Transform {
	if t.transitioning {
		progress := t.easing(t.frameFraction, 0, 1, 1)
		return common.Lerp(t.snapshot[slot], t.clip.Transform(0, slot), progress)
	}
	next := t.frameIndex + 1
	if next >= t.clip.FrameCount() {
		if t.looping {
			next = 0
		} else {
			next = t.frameIndex
		}
	}
	return common.Lerp(t.clip.Transform(t.frameIndex, slot), t.clip.Transform(next, slot), t.frameFraction)
}

func (t *track) UpdateTransforms() {
	skel := t.owner.skel
	for slot, id := range t.targets {
		if id == skeleton.NoNode {
			continue
		}
		skel.SetLocalTransform(id, t.sample(slot))
	}
}

func (t *track) BlendTransforms(ctx TickContext) {
	skel := t.owner.skel
	for slot, id := range t.targets {
		if id == skeleton.NoNode {
			continue
		}
		stamp, accumulated := skel.BlendState(id)
		if stamp != ctx.Stamp {
			skel.SetLocalTransform(id, t.sample(slot))
			skel.SetBlendState(id, ctx.Stamp, t.weight)
			continue
		}
		if accumulated >= 1 {
			continue
		}
		w := min(t.weight, 1-accumulated)
		total := accumulated + w
		if w <= 0 || total <= 0 {
			continue
		}
		skel.SetLocalTransform(id, common.Lerp(skel.LocalTransform(id), t.sample(slot), w/total))
		skel.SetBlendState(id, ctx.Stamp, total)
	}
}

func (t *track) Speed() float32 {
	return t.speed
}

func (t *track) SetSpeed(speed float32) {
	t.speed = speed
}

func (t *track) Weight() float32 {
	return t.weight
}

func (t *track) TargetWeight() float32 {
	return t.targetWeight
}

func (t *track) Frame() (int, float32) {
	return t.frameIndex, t.frameFraction
}

func (t *track) Looping() bool {
	return t.looping
}

func (t *track) Transitioning() bool {
	return t.transitioning
}

func (t *track) Completed() bool {
	return t.completed
}

func (t *track) Active() bool {
	return t.active
}

func (t *track) AddObserver(o Observer) {
	t.observers.add(o)
}

func (t *track) RemoveObserver(o Observer) {
	t.observers.remove(o)
}

// cancelled reports whether the track has settled at zero weight.
func (t *track) cancelled() bool {
	return t.weight == 0 && t.targetWeight == 0
}

package animator

import (
	"log"

	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/tanema/gween/ease"
)

// animator is the implementation of the Animator interface.
type animator struct {
	skel   skeleton.Skeleton
	logger *log.Logger

	// active is kept sorted by descending priority, most recently inserted first within a priority
	active []*track

	// tickSet is reused every tick to hold the snapshot of active tracks being ticked
	tickSet  []*track
	finished []*track

	stamp     uint64
	observers observerList
}

// Animator defines the per-model track scheduler.
//
// The Animator owns the tracks created for one skeleton, keeps the active ones sorted by priority,
// and on every Tick advances them and writes the blended local transforms into the skeleton. It is
// single-threaded: Tick, CreateTrack and every Track method must be called from the same goroutine,
// and observer callbacks run synchronously on it.
type Animator interface {
	// Skeleton retrieves the skeleton this animator writes to.
	//
	// Returns:
	//   - skeleton.Skeleton: the animated skeleton
	Skeleton() skeleton.Skeleton

	// CreateTrack creates a new, inactive Track for a clip. Clip targets are resolved against the
	// skeleton by name; unresolved names are logged and skipped during playback.
	//
	// Parameters:
	//   - c: the clip to play
	//   - options: variadic list of TrackBuilderOption functions to configure the Track
	//
	// Returns:
	//   - Track: the new track
	CreateTrack(c clip.Clip, options ...TrackBuilderOption) Track

	// Tick advances every active track by elapsed seconds, recomputes the skeleton's local transforms,
	// and removes tracks that were cancelled or completed during the tick.
	//
	// Parameters:
	//   - elapsed: the simulation time step in seconds
	Tick(elapsed float32)

	// StopAnimation stops every active track.
	//
	// Parameters:
	//   - blend: the fade-out interval in seconds (0 = immediate)
	StopAnimation(blend float32)

	// StopAnimationAt stops every active track of a single priority.
	//
	// Parameters:
	//   - priority: the priority to stop
	//   - blend: the fade-out interval in seconds (0 = immediate)
	StopAnimationAt(priority int, blend float32)

	// ActiveTracks returns a copy of the active list in blend order.
	//
	// Returns:
	//   - []Track: the active tracks, highest priority first
	ActiveTracks() []Track

	// Playing reports whether any track is active.
	//
	// Returns:
	//   - bool: true if at least one track is active
	Playing() bool

	// AddObserver registers an observer notified for every track of this animator.
	//
	// Parameters:
	//   - o: the observer to add
	AddObserver(o Observer)

	// RemoveObserver unregisters an animator-level observer.
	//
	// Parameters:
	//   - o: the observer to remove
	RemoveObserver(o Observer)
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator bound to a skeleton.
//
// Parameters:
//   - skel: the skeleton whose local transforms the animator drives
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: a new Animator with no active tracks
func NewAnimator(skel skeleton.Skeleton, options ...AnimatorBuilderOption) Animator {
	a := &animator{
		skel:   skel,
		logger: log.Default(),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) Skeleton() skeleton.Skeleton {
	return a.skel
}

func (a *animator) CreateTrack(c clip.Clip, options ...TrackBuilderOption) Track {
	t := &track{
		owner:   a,
		clip:    c,
		targets: make([]skeleton.NodeID, c.TargetCount()),
		speed:   1,
		easing:  ease.Linear,
	}
	for slot := range t.targets {
		name := c.Target(slot)
		id, ok := a.skel.Find(name)
		if !ok {
			a.logger.Printf("[Animator] clip %q: target %q not found in skeleton, slot skipped", c.Name(), name)
		}
		t.targets[slot] = id
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (a *animator) Tick(elapsed float32) {
	if len(a.active) == 0 {
		return
	}

	// Observers may play or stop tracks from inside Track.Tick, so tick a snapshot and only
	// mutate the live list afterwards.
	a.tickSet = append(a.tickSet[:0], a.active...)
	a.finished = a.finished[:0]
	anyCompleted := false
	for _, t := range a.tickSet {
		// an observer may have cancelled a later track already
		if !t.active {
			continue
		}
		if t.Tick(elapsed) {
			a.finished = append(a.finished, t)
			anyCompleted = anyCompleted || t.completed
		}
	}

	// cancelled tracks left the list inside Track.Tick
	if anyCompleted {
		// apply the final frame of completed tracks before they leave the list
		a.updateTransforms()
		a.removeCompleted()
	}
	a.updateTransforms()
	clear(a.tickSet)
}

// removeCompleted removes the tracks that completed this tick. A track an observer re-played during
// the tick is no longer completed and stays active.
func (a *animator) removeCompleted() {
	for _, t := range a.finished {
		if t.active && t.completed {
			a.remove(t)
		}
	}
}

// updateTransforms writes the current pose of the active tracks into the skeleton.
// A single track writes directly; several tracks blend in priority order under a fresh stamp.
func (a *animator) updateTransforms() {
	switch len(a.active) {
	case 0:
		return
	case 1:
		a.active[0].UpdateTransforms()
	default:
		a.stamp++
		ctx := TickContext{Stamp: a.stamp}
		for _, t := range a.active {
			t.BlendTransforms(ctx)
		}
	}
}

// insert places t into the active list with an ordered scan: before the first track whose priority
// is lower than or equal to t's, so the newest track wins ties. No-op if t is already active.
func (a *animator) insert(t *track) {
	if t.active {
		return
	}
	pos := len(a.active)
	for i, other := range a.active {
		if other.priority <= t.priority {
			pos = i
			break
		}
	}
	a.active = append(a.active, nil)
	copy(a.active[pos+1:], a.active[pos:])
	a.active[pos] = t
	t.active = true
}

func (a *animator) remove(t *track) {
	for i, other := range a.active {
		if other == t {
			copy(a.active[i:], a.active[i+1:])
			a.active[len(a.active)-1] = nil
			a.active = a.active[:len(a.active)-1]
			t.active = false
			return
		}
	}
}

// overrideAtPriority stops every other active track at t's priority, each fading over its own
// blend-out interval.
func (a *animator) overrideAtPriority(t *track) {
	for _, other := range a.snapshotActive() {
		if other != t && other.priority == t.priority {
			other.Stop(other.blendOut)
		}
	}
}

func (a *animator) snapshotActive() []*track {
	out := make([]*track, len(a.active))
	copy(out, a.active)
	return out
}

func (a *animator) StopAnimation(blend float32) {
	for _, t := range a.snapshotActive() {
		t.Stop(blend)
	}
}

func (a *animator) StopAnimationAt(priority int, blend float32) {
	for _, t := range a.snapshotActive() {
		if t.priority == priority {
			t.Stop(blend)
		}
	}
}

func (a *animator) ActiveTracks() []Track {
	out := make([]Track, len(a.active))
	for i, t := range a.active {
		out[i] = t
	}
	return out
}

func (a *animator) Playing() bool {
	return len(a.active) > 0
}

func (a *animator) AddObserver(o Observer) {
	a.observers.add(o)
}

func (a *animator) RemoveObserver(o Observer) {
	a.observers.remove(o)
}

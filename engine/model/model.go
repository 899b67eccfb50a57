package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrNoClipSource is returned by CreateTrackByName when the model was built without a ClipSource.
var ErrNoClipSource = errors.New("model: no clip source configured")

// ClipSource resolves clip names to loaded clips. library.Library satisfies it.
type ClipSource interface {
	// Clip returns the clip registered under name.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - clip.Clip: the clip
	//   - error: an error if no such clip is loaded
	Clip(name string) (clip.Clip, error)
}

// model is the implementation of the Model interface.
type model struct {
	name            string
	skel            skeleton.Skeleton
	anim            animator.Animator
	clips           ClipSource
	world           mgl32.Mat4
	animatorOptions []animator.AnimatorBuilderOption
}

// Model defines an articulated model: a skeleton, the animator driving it, and an optional source
// of named clips.
//
// A Model is the unit the simulation ticks and the renderer reads. Tick advances the animator and
// rewrites the skeleton's local transforms; Render recomposes world and bone matrices from them.
// Both must be called from the same goroutine, or separated by a barrier as engine/scene does.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Skeleton retrieves the model's skeleton.
	//
	// Returns:
	//   - skeleton.Skeleton: the skeleton
	Skeleton() skeleton.Skeleton

	// Pose retrieves the read-only view of the skeleton for renderers.
	//
	// Returns:
	//   - skeleton.Pose: the pose view
	Pose() skeleton.Pose

	// Animator retrieves the model's track scheduler.
	//
	// Returns:
	//   - animator.Animator: the animator
	Animator() animator.Animator

	// CreateTrack creates a track for a clip on this model.
	//
	// Parameters:
	//   - c: the clip to play
	//   - options: variadic list of TrackBuilderOption functions
	//
	// Returns:
	//   - animator.Track: the new, inactive track
	CreateTrack(c clip.Clip, options ...animator.TrackBuilderOption) animator.Track

	// CreateTrackByName resolves a clip through the model's ClipSource and creates a track for it.
	//
	// Parameters:
	//   - name: the clip name
	//   - options: variadic list of TrackBuilderOption functions
	//
	// Returns:
	//   - animator.Track: the new, inactive track
	//   - error: ErrNoClipSource or the ClipSource's lookup error
	CreateTrackByName(name string, options ...animator.TrackBuilderOption) (animator.Track, error)

	// Tick advances all active tracks and recomputes blended local transforms.
	//
	// Parameters:
	//   - elapsed: the simulation time step in seconds
	Tick(elapsed float32)

	// Render recomposes world and bone matrices from the current local transforms.
	Render()

	// WorldTransform retrieves the matrix the skeleton's roots are attached to.
	//
	// Returns:
	//   - mgl32.Mat4: the model's world matrix
	WorldTransform() mgl32.Mat4

	// SetWorldTransform sets the matrix the skeleton's roots are attached to. It takes effect on
	// the next Render.
	//
	// Parameters:
	//   - m: the model's world matrix
	SetWorldTransform(m mgl32.Mat4)

	// StopAnimation stops every active track.
	//
	// Parameters:
	//   - blend: the fade-out interval in seconds (0 = immediate)
	StopAnimation(blend float32)

	// StopAnimationAt stops every active track of one priority.
	//
	// Parameters:
	//   - priority: the priority to stop
	//   - blend: the fade-out interval in seconds (0 = immediate)
	StopAnimationAt(priority int, blend float32)

	// AddObserver registers an observer for every track of this model.
	//
	// Parameters:
	//   - o: the observer to add
	AddObserver(o animator.Observer)

	// RemoveObserver unregisters a model-level observer.
	//
	// Parameters:
	//   - o: the observer to remove
	RemoveObserver(o animator.Observer)

	// FindIntersection tests a world-space ray against the model's mesh nodes.
	//
	// Parameters:
	//   - ray: the world-space ray
	//
	// Returns:
	//   - skeleton.Intersection: the nearest hit
	//   - bool: true if anything was hit
	FindIntersection(ray common.Ray) (skeleton.Intersection, bool)
}

var _ Model = &model{}

// NewModel creates a new Model around a skeleton and performs the skeleton's one-time Init against
// the model's world transform (identity unless WithWorldTransform is given).
//
// Parameters:
//   - name: the model identifier
//   - skel: the skeleton, owned by the model from now on
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(name string, skel skeleton.Skeleton, options ...ModelBuilderOption) Model {
	m := &model{
		name:  name,
		skel:  skel,
		world: mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(m)
	}
	m.anim = animator.NewAnimator(skel, m.animatorOptions...)
	m.skel.Init(m.world)
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Skeleton() skeleton.Skeleton {
	return m.skel
}

func (m *model) Pose() skeleton.Pose {
	return m.skel
}

func (m *model) Animator() animator.Animator {
	return m.anim
}

func (m *model) CreateTrack(c clip.Clip, options ...animator.TrackBuilderOption) animator.Track {
	return m.anim.CreateTrack(c, options...)
}

func (m *model) CreateTrackByName(name string, options ...animator.TrackBuilderOption) (animator.Track, error) {
	if m.clips == nil {
		return nil, fmt.Errorf("%w: model %q, clip %q", ErrNoClipSource, m.name, name)
	}
	c, err := m.clips.Clip(name)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", m.name, err)
	}
	return m.anim.CreateTrack(c, options...), nil
}

func (m *model) Tick(elapsed float32) {
	m.anim.Tick(elapsed)
}

func (m *model) Render() {
	m.skel.Recompute(m.world)
}

func (m *model) WorldTransform() mgl32.Mat4 {
	return m.world
}

func (m *model) SetWorldTransform(world mgl32.Mat4) {
	m.world = world
}

func (m *model) StopAnimation(blend float32) {
	m.anim.StopAnimation(blend)
}

func (m *model) StopAnimationAt(priority int, blend float32) {
	m.anim.StopAnimationAt(priority, blend)
}

func (m *model) AddObserver(o animator.Observer) {
	m.anim.AddObserver(o)
}

func (m *model) RemoveObserver(o animator.Observer) {
	m.anim.RemoveObserver(o)
}

func (m *model) FindIntersection(ray common.Ray) (skeleton.Intersection, bool) {
	return m.skel.FindIntersection(ray)
}

package scene

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
)

var (
	// ErrDuplicateModel is returned by AddModel when a model with the same name is already present.
	ErrDuplicateModel = errors.New("scene: duplicate model name")

	// ErrUnknownModel is returned when a director is attached to a model the scene does not hold.
	ErrUnknownModel = errors.New("scene: unknown model")

	// ErrClosed is returned when adding to a closed scene.
	ErrClosed = errors.New("scene: closed")
)

// Director drives a model's playback before each of its ticks, typically by playing and stopping
// tracks. engine/cue provides a scripted implementation.
type Director interface {
	// Update is called on the model's tick goroutine, immediately before the model's Tick.
	//
	// Parameters:
	//   - elapsed: the simulation time step in seconds
	//
	// Returns:
	//   - error: reported to the scene log; the model still ticks
	Update(elapsed float32) error
}

// entry is one model together with the directors attached to it.
type entry struct {
	model     model.Model
	directors []Director
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu sync.RWMutex

	name    string
	entries []*entry
	byName  map[string]*entry
	closed  bool

	elapsed float64
	logger  *log.Logger
	prof    *profiler.Profiler

	// ticks is reused every tick to hold the snapshot of entries being ticked
	ticks []*entry

	// computePool runs per-model tick and render work. Workers persist across frames, avoiding
	// per-frame goroutine spawn/teardown overhead.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

// Scene defines a set of models advanced together once per simulation frame.
//
// Tick advances every model (and its directors) and Render recomposes every model's world and bone
// matrices. Different models are processed concurrently on a worker pool, and each phase ends with
// a barrier, so no model is touched by two goroutines at once and a Render never overlaps a Tick.
// Tick, Render and the model registry methods may be called from any goroutine, but Tick and Render
// must not be called concurrently with each other.
type Scene interface {
	// Name retrieves the scene name.
	//
	// Returns:
	//   - string: the scene name
	Name() string

	// AddModel adds a model to the scene.
	//
	// Parameters:
	//   - m: the model to add
	//
	// Returns:
	//   - error: ErrDuplicateModel if the name is taken, ErrClosed after Close
	AddModel(m model.Model) error

	// RemoveModel removes a model and its directors from the scene.
	//
	// Parameters:
	//   - name: the model name
	//
	// Returns:
	//   - bool: true if a model was removed
	RemoveModel(name string) bool

	// Model retrieves a model by name.
	//
	// Parameters:
	//   - name: the model name
	//
	// Returns:
	//   - model.Model: the model, or nil
	//   - bool: true if found
	Model(name string) (model.Model, bool)

	// Models returns the scene's models in insertion order.
	//
	// Returns:
	//   - []model.Model: the models
	Models() []model.Model

	// AttachDirector attaches a director to a model. Directors run in attachment order.
	//
	// Parameters:
	//   - name: the model name
	//   - d: the director
	//
	// Returns:
	//   - error: ErrUnknownModel if the scene holds no model with that name
	AttachDirector(name string, d Director) error

	// Tick runs every model's directors and advances every model by elapsed seconds.
	//
	// Parameters:
	//   - elapsed: the simulation time step in seconds
	Tick(elapsed float32)

	// Render recomposes every model's world and bone matrices.
	Render()

	// Elapsed returns the total simulated time.
	//
	// Returns:
	//   - float64: seconds ticked since the scene was created
	Elapsed() float64

	// FindIntersection tests a world-space ray against every model and returns the nearest hit.
	//
	// Parameters:
	//   - ray: the world-space ray
	//
	// Returns:
	//   - model.Model: the model that was hit, or nil
	//   - skeleton.Intersection: the nearest hit
	//   - bool: true if anything was hit
	FindIntersection(ray common.Ray) (model.Model, skeleton.Intersection, bool)

	// Close drops every model. Further AddModel calls fail with ErrClosed.
	Close()
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates a new, empty Scene.
//
// Parameters:
//   - name: the scene name
//   - options: a variadic list of SceneBuilderOption functions
//
// Returns:
//   - Scene: the new scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		name:           name,
		byName:         make(map[string]*entry),
		logger:         log.Default(),
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the compute pool after options so WithComputeWorkers can override the default.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) AddModel(m model.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.byName[m.Name()]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateModel, m.Name())
	}
	e := &entry{model: m}
	s.entries = append(s.entries, e)
	s.byName[m.Name()] = e
	return nil
}

func (s *scene) RemoveModel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byName[name]
	if !ok {
		return false
	}
	delete(s.byName, name)
	for i, other := range s.entries {
		if other == e {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			break
		}
	}
	return true
}

func (s *scene) Model(name string) (model.Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return e.model, true
}

func (s *scene) Models() []model.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Model, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.model
	}
	return out
}

func (s *scene) AttachDirector(name string, d Director) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
	e.directors = append(e.directors, d)
	return nil
}

func (s *scene) Tick(elapsed float32) {
	start := time.Now()

	s.mu.Lock()
	s.elapsed += float64(elapsed)
	s.ticks = append(s.ticks[:0], s.entries...)
	for i, e := range s.ticks {
		// copy so AttachDirector during the tick cannot race with the worker reading the slice
		s.ticks[i] = &entry{model: e.model, directors: e.directors[:len(e.directors):len(e.directors)]}
	}
	ticks := s.ticks
	s.mu.Unlock()

	s.forEach(ticks, func(e *entry) {
		for _, d := range e.directors {
			if err := d.Update(elapsed); err != nil {
				s.logger.Printf("[Scene] %s: director on model %q: %v", s.name, e.model.Name(), err)
			}
		}
		e.model.Tick(elapsed)
	})

	if s.prof != nil {
		tracks := 0
		for _, e := range ticks {
			tracks += len(e.model.Animator().ActiveTracks())
		}
		s.prof.Tick(len(ticks), tracks, time.Since(start))
	}
}

func (s *scene) Render() {
	s.mu.RLock()
	entries := make([]*entry, len(s.entries))
	copy(entries, s.entries)
	s.mu.RUnlock()

	s.forEach(entries, func(e *entry) {
		e.model.Render()
	})
}

// forEach runs fn for every entry on the compute pool and waits for all of them.
// A WaitGroup provides the per-phase barrier since pool.Wait() blocks until workers idle-exit,
// which is unsuitable for frame-rate workloads.
func (s *scene) forEach(entries []*entry, fn func(e *entry)) {
	if len(entries) == 0 {
		return
	}
	if len(entries) == 1 || s.computeWorkers == 1 {
		for _, e := range entries {
			fn(e)
		}
		return
	}

	var wg sync.WaitGroup
	for i, e := range entries {
		wg.Add(1)
		eCap := e
		s.computePool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				fn(eCap)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func (s *scene) Elapsed() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsed
}

func (s *scene) FindIntersection(ray common.Ray) (model.Model, skeleton.Intersection, bool) {
	var (
		hitModel model.Model
		best     skeleton.Intersection
		found    bool
	)
	for _, m := range s.Models() {
		hit, ok := m.FindIntersection(ray)
		if ok && (!found || hit.Distance < best.Distance) {
			hitModel, best, found = m, hit, true
		}
	}
	return hitModel, best, found
}

func (s *scene) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.entries = nil
	s.ticks = nil
	clear(s.byName)
}

package engine

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-pose/engine/scene"
)

// engine implements the Engine interface.
type engine struct {
	mu sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	maxTicks       uint64
	ticks          uint64

	scenes map[int]scene.Scene
	logger *log.Logger
}

// Engine is the headless simulation driver.
// It advances every registered scene at a fixed tick rate: each tick runs the scenes' Tick phase
// in ascending key order, then their Render phase, then the tick callback.
//
// The simulated step is always the configured tick interval, never the measured wall time, so a
// run is reproducible regardless of scheduling jitter.
type Engine interface {
	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - hz: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(hz float64)

	// TickInterval returns the simulated step of one tick.
	//
	// Returns:
	//   - float32: the step in seconds
	TickInterval() float32

	// SetTickCallback registers the function called after each tick's render phase.
	//
	// Parameters:
	//   - callback: function receiving the step in seconds
	SetTickCallback(callback func(deltaTime float32))

	// AddScene registers a scene at the given key. Scenes are processed in ascending key order.
	//
	// Parameters:
	//   - key: the ordering key
	//   - s: the Scene to register
	AddScene(key int, s scene.Scene)

	// RemoveScene removes the scene at the given key.
	//
	// Parameters:
	//   - key: the key of the scene to remove
	RemoveScene(key int)

	// Scene retrieves the scene registered at the given key.
	// Returns nil if no scene exists at that key.
	//
	// Parameters:
	//   - key: the key of the scene to retrieve
	//
	// Returns:
	//   - scene.Scene: the scene at the key, or nil if not found
	Scene(key int) scene.Scene

	// Scenes returns a copy of all registered scenes keyed by ordering key.
	//
	// Returns:
	//   - map[int]scene.Scene: a copy of the scenes map
	Scenes() map[int]scene.Scene

	// Step runs one tick synchronously with the given step, without waiting for the ticker.
	//
	// Parameters:
	//   - deltaTime: the simulated step in seconds
	Step(deltaTime float32)

	// Ticks returns the number of ticks run so far.
	//
	// Returns:
	//   - uint64: the tick count
	Ticks() uint64

	// Run ticks at the configured rate until Quit is called or the tick limit is reached.
	// It blocks the calling goroutine.
	Run()

	// Quit signals Run to return.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (tick rate, scenes, tick limit)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[int]scene.Scene),
		engineTickRate:  time.Second / 60,
		logger:          log.Default(),
	}

	for _, opt := range options {
		opt(e)
	}
	return e
}

func (e *engine) Run() {
	e.mu.Lock()
	e.running = true
	rate := e.engineTickRate
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			e.Step(float32(rate.Seconds()))
			if e.maxTicks > 0 && e.Ticks() >= e.maxTicks {
				e.logger.Printf("[Engine] tick limit %d reached", e.maxTicks)
				e.signalQuit()
				return
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			rate = newRate
		}
	}
}

// Quit signals Run to return.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal the loop to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
	})
}

func (e *engine) Step(deltaTime float32) {
	e.mu.Lock()
	keys := make([]int, 0, len(e.scenes))
	for k := range e.scenes {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	ordered := make([]scene.Scene, len(keys))
	for i, k := range keys {
		ordered[i] = e.scenes[k]
	}
	callback := e.tickCallback
	e.mu.Unlock()

	for _, s := range ordered {
		s.Tick(deltaTime)
	}
	for _, s := range ordered {
		s.Render()
	}

	e.mu.Lock()
	e.ticks++
	e.mu.Unlock()

	if callback != nil {
		callback(deltaTime)
	}
}

func (e *engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticks
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(hz float64) {
	newRate := tickInterval(hz)

	e.mu.Lock()
	e.engineTickRate = newRate
	running := e.running
	e.mu.Unlock()

	if !running {
		return
	}
	// Non-blocking send - if channel is full, replace the pending value
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

func (e *engine) TickInterval() float32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float32(e.engineTickRate.Seconds())
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	e.tickCallback = callback
	e.mu.Unlock()
}

func (e *engine) AddScene(key int, s scene.Scene) {
	e.mu.Lock()
	e.scenes[key] = s
	e.mu.Unlock()
}

func (e *engine) RemoveScene(key int) {
	e.mu.Lock()
	delete(e.scenes, key)
	e.mu.Unlock()
}

func (e *engine) Scene(key int) scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenes[key]
}

func (e *engine) Scenes() map[int]scene.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[int]scene.Scene, len(e.scenes))
	for k, s := range e.scenes {
		out[k] = s
	}
	return out
}

func tickInterval(hz float64) time.Duration {
	if hz <= 0 {
		hz = 60
	}
	return time.Duration(float64(time.Second) / hz)
}

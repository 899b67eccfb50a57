package cue

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// trackKey identifies a track a director created. Playing the same clip with the same creation
// options reuses the track so restarts blend from its current weight instead of stacking.
type trackKey struct {
	clip     string
	priority int
	override bool
}

// director is the implementation of the Director interface.
type director struct {
	model    model.Model
	path     string
	compiled *tengo.Compiled
	anim     *tengo.ImmutableMap
	state    *tengo.Map
	tracks   map[trackKey]animator.Track
	logger   *log.Logger
	modules  []string
	seed     map[string]any

	time  float64
	ticks int
}

// Director defines a scripted driver for one model's playback.
//
// A Director compiles a tengo script once and runs it before every tick of its model. The script
// sees these globals:
//
//	time     total seconds since the director started, including this tick
//	elapsed  the seconds of this tick
//	first    true on the first update only
//	state    a map that persists between updates
//	anim     playback functions:
//	           play(clip, opts)            play a clip, returns false if it is not found
//	           loop(clip, opts)            play a clip looping
//	           stop(blend)                 stop every track
//	           stop_priority(prio, blend)  stop every track of one priority
//	           playing(clip)               true if any, or the named clip's, track is active
//	           weight(clip)                the current weight of the named clip's active track
//
// opts is an optional map with any of priority, override, speed, transition, weight, blend_in,
// blend_out and looping.
type Director interface {
	// Update advances the director's clock and runs the script once.
	//
	// Parameters:
	//   - elapsed: the simulation time step in seconds
	//
	// Returns:
	//   - error: a script runtime error
	Update(elapsed float32) error

	// Model retrieves the model the director drives.
	//
	// Returns:
	//   - model.Model: the driven model
	Model() model.Model

	// Time returns the director's clock.
	//
	// Returns:
	//   - float64: total seconds passed to Update
	Time() float64

	// State returns a copy of the script's persistent state map converted to Go values.
	//
	// Returns:
	//   - map[string]any: the state values
	State() map[string]any
}

var _ Director = &director{}

// NewDirector compiles a cue script for a model.
//
// Parameters:
//   - m: the model to drive
//   - src: the tengo source
//   - options: a variadic list of DirectorBuilderOption functions
//
// Returns:
//   - Director: the compiled director
//   - error: error if a state value cannot be converted or the script does not compile
func NewDirector(m model.Model, src []byte, options ...DirectorBuilderOption) (Director, error) {
	d := &director{
		model:   m,
		state:   &tengo.Map{Value: map[string]tengo.Object{}},
		tracks:  make(map[trackKey]animator.Track),
		logger:  log.Default(),
		modules: stdlib.AllModuleNames(),
	}
	for _, opt := range options {
		opt(d)
	}
	for k, v := range d.seed {
		obj, err := tengo.FromInterface(v)
		if err != nil {
			return nil, fmt.Errorf("cue %s: state %q: %w", d.name(), k, err)
		}
		d.state.Value[k] = obj
	}
	d.anim = d.buildAnim()

	script := tengo.NewScript(src)
	globals := []struct {
		name  string
		value any
	}{
		{"time", 0.0},
		{"elapsed", 0.0},
		{"first", true},
		{"state", d.state},
		{"anim", d.anim},
	}
	for _, g := range globals {
		if err := script.Add(g.name, g.value); err != nil {
			return nil, fmt.Errorf("cue %s: global %s: %w", d.name(), g.name, err)
		}
	}
	script.SetImports(stdlib.GetModuleMap(d.modules...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("cue %s: %w", d.name(), err)
	}
	d.compiled = compiled
	return d, nil
}

// LoadDirector reads a cue script file and compiles it for a model.
//
// Parameters:
//   - m: the model to drive
//   - path: the script file path
//   - options: a variadic list of DirectorBuilderOption functions
//
// Returns:
//   - Director: the compiled director
//   - error: error if the file cannot be read or the script does not compile
func LoadDirector(m model.Model, path string, options ...DirectorBuilderOption) (Director, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cue script %s: %w", path, err)
	}
	return NewDirector(m, src, append([]DirectorBuilderOption{withPath(path)}, options...)...)
}

func (d *director) Update(elapsed float32) error {
	d.time += float64(elapsed)
	d.ticks++

	if err := d.compiled.Set("time", d.time); err != nil {
		return err
	}
	if err := d.compiled.Set("elapsed", float64(elapsed)); err != nil {
		return err
	}
	if err := d.compiled.Set("first", d.ticks == 1); err != nil {
		return err
	}
	if err := d.compiled.Set("state", d.state); err != nil {
		return err
	}
	if err := d.compiled.Set("anim", d.anim); err != nil {
		return err
	}
	if err := d.compiled.Run(); err != nil {
		return fmt.Errorf("cue %s: %w", d.name(), err)
	}
	return nil
}

func (d *director) Model() model.Model {
	return d.model
}

func (d *director) Time() float64 {
	return d.time
}

func (d *director) State() map[string]any {
	out := make(map[string]any, len(d.state.Value))
	for k, v := range d.state.Value {
		out[k] = objectToAny(v)
	}
	return out
}

// name labels log lines and errors with the script path, or the model name for inline scripts.
func (d *director) name() string {
	if d.path != "" {
		return d.path
	}
	return "model " + d.model.Name()
}

// track returns the director's track for a clip and creation options, creating it on first use.
func (d *director) track(name string, priority int, override bool) (animator.Track, error) {
	key := trackKey{clip: name, priority: priority, override: override}
	if t, ok := d.tracks[key]; ok {
		return t, nil
	}
	t, err := d.model.CreateTrackByName(name, animator.WithPriority(priority), animator.WithOverrideOnFull(override))
	if err != nil {
		return nil, err
	}
	d.tracks[key] = t
	return t, nil
}

func (d *director) buildAnim() *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	play := func(forceLoop bool) tengo.CallableFunc {
		return func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) < 1 || len(args) > 2 {
				return nil, tengo.ErrWrongNumArguments
			}
			name, ok := tengo.ToString(args[0])
			if !ok || strings.TrimSpace(name) == "" {
				return nil, tengo.ErrInvalidArgumentType{Name: "clip", Expected: "string", Found: args[0].TypeName()}
			}
			var opts map[string]any
			if len(args) == 2 {
				opts, ok = objectToAny(args[1]).(map[string]any)
				if !ok {
					return nil, tengo.ErrInvalidArgumentType{Name: "opts", Expected: "map", Found: args[1].TypeName()}
				}
			}

			t, err := d.track(name, optInt(opts, "priority", 0), optBool(opts, "override", false))
			if err != nil {
				d.logger.Printf("[Cue] %s: %v", d.name(), err)
				return tengo.FalseValue, nil
			}
			if speed, ok := opts["speed"]; ok {
				t.SetSpeed(float32(toFloat(speed)))
			}

			playOpts := []animator.PlayOption{
				animator.WithTransition(optFloat(opts, "transition", 0)),
				animator.WithWeight(optFloat(opts, "weight", 1)),
				animator.WithBlendIn(optFloat(opts, "blend_in", 0)),
				animator.WithBlendOut(optFloat(opts, "blend_out", 0)),
			}
			if looping, ok := opts["looping"].(bool); ok {
				playOpts = append(playOpts, animator.WithLooping(looping))
			}
			if forceLoop {
				t.Loop(playOpts...)
			} else {
				t.Play(playOpts...)
			}
			return tengo.TrueValue, nil
		}
	}

	values["play"] = &tengo.UserFunction{Name: "play", Value: play(false)}
	values["loop"] = &tengo.UserFunction{Name: "loop", Value: play(true)}

	values["stop"] = &tengo.UserFunction{Name: "stop", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) > 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		var blend float64
		if len(args) == 1 {
			blend, _ = tengo.ToFloat64(args[0])
		}
		d.model.StopAnimation(float32(blend))
		return tengo.UndefinedValue, nil
	}}

	values["stop_priority"] = &tengo.UserFunction{Name: "stop_priority", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		priority, ok := tengo.ToInt(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "priority", Expected: "int", Found: args[0].TypeName()}
		}
		var blend float64
		if len(args) == 2 {
			blend, _ = tengo.ToFloat64(args[1])
		}
		d.model.StopAnimationAt(priority, float32(blend))
		return tengo.UndefinedValue, nil
	}}

	values["playing"] = &tengo.UserFunction{Name: "playing", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) == 0 {
			return boolObject(d.model.Animator().Playing()), nil
		}
		name, _ := tengo.ToString(args[0])
		for _, t := range d.model.Animator().ActiveTracks() {
			if t.Clip().Name() == name {
				return tengo.TrueValue, nil
			}
		}
		return tengo.FalseValue, nil
	}}

	values["weight"] = &tengo.UserFunction{Name: "weight", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 1 {
			return nil, tengo.ErrWrongNumArguments
		}
		name, _ := tengo.ToString(args[0])
		for _, t := range d.model.Animator().ActiveTracks() {
			if t.Clip().Name() == name {
				return &tengo.Float{Value: float64(t.Weight())}, nil
			}
		}
		return &tengo.Float{Value: 0}, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func boolObject(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func optFloat(opts map[string]any, key string, fallback float32) float32 {
	v, ok := opts[key]
	if !ok {
		return fallback
	}
	return float32(toFloat(v))
}

func optInt(opts map[string]any, key string, fallback int) int {
	v, ok := opts[key]
	if !ok {
		return fallback
	}
	return int(toFloat(v))
}

func optBool(opts map[string]any, key string, fallback bool) bool {
	if v, ok := opts[key].(bool); ok {
		return v
	}
	return fallback
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

func objectToAny(obj tengo.Object) any {
	if obj == nil {
		return nil
	}

	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Int:
		return int(v.Value)
	case *tengo.Float:
		return v.Value
	case *tengo.Bool:
		return !v.IsFalsy()
	case *tengo.Array:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.Map:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.ImmutableMap:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.Undefined:
		return nil
	default:
		return v.String()
	}
}

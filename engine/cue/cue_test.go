package cue

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/d5/tengo/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clipMap map[string]clip.Clip

func (m clipMap) Clip(name string) (clip.Clip, error) {
	c, ok := m[name]
	if !ok {
		return nil, errors.New("no clip named " + name)
	}
	return c, nil
}

func at(x, y float32) common.Transform {
	t := common.IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, 0}
	return t
}

func newHero(t *testing.T) model.Model {
	t.Helper()
	s, err := skeleton.NewSkeleton(skeleton.WithNodes(
		skeleton.NodeSpec{Name: "pelvis", Bone: true, Local: at(0, 1)},
	))
	require.NoError(t, err)

	clips := clipMap{}
	for _, name := range []string{"slide", "wave"} {
		c, err := clip.NewClip(name,
			clip.WithFrameRate(10),
			clip.WithTargets("pelvis"),
			clip.WithFrames(clip.Frame{at(0, 1)}, clip.Frame{at(1, 1)}, clip.Frame{at(2, 1)}),
		)
		require.NoError(t, err)
		clips[name] = c
	}
	return model.NewModel("hero", s, model.WithClipSource(clips))
}

func mustObject(t *testing.T, v any) tengo.Object {
	t.Helper()
	obj, err := tengo.FromInterface(v)
	require.NoError(t, err)
	return obj
}

func TestDirectorGlobals(t *testing.T) {
	src := `
if is_undefined(state.updates) {
	state.updates = 0
}
state.updates = state.updates + 1
state.first = first
state.time = time
state.elapsed = elapsed
`
	d, err := NewDirector(newHero(t), []byte(src), WithLogger(nil), WithState(map[string]any{"seed": 7}))
	require.NoError(t, err)

	require.NoError(t, d.Update(0.5))
	state := d.State()
	assert.Equal(t, 1, state["updates"])
	assert.Equal(t, true, state["first"])
	assert.Equal(t, 7, state["seed"])

	require.NoError(t, d.Update(0.25))
	state = d.State()
	assert.Equal(t, 2, state["updates"])
	assert.Equal(t, false, state["first"])
	assert.InDelta(t, 0.75, state["time"], 1e-9)
	assert.InDelta(t, 0.25, state["elapsed"], 1e-9)
	assert.InDelta(t, 0.75, d.Time(), 1e-9)
}

func TestDirectorPlaysClips(t *testing.T) {
	m := newHero(t)
	src := `
state.slide = anim.loop("slide", {priority: 2, speed: 2})
state.playing = anim.playing("slide")
state.any = anim.playing()
state.weight = anim.weight("slide")
state.wave_weight = anim.weight("wave")
`
	d, err := NewDirector(m, []byte(src), WithLogger(nil))
	require.NoError(t, err)
	assert.Same(t, m, d.Model())

	require.NoError(t, d.Update(0.1))
	state := d.State()
	assert.Equal(t, true, state["slide"])
	assert.Equal(t, true, state["playing"])
	assert.Equal(t, true, state["any"])
	assert.InDelta(t, 1.0, state["weight"], 1e-9)
	assert.InDelta(t, 0.0, state["wave_weight"], 1e-9)

	active := m.Animator().ActiveTracks()
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].Priority())
	assert.Equal(t, float32(2), active[0].Speed())
	assert.True(t, active[0].Looping())

	require.NoError(t, d.Update(0.1))
	assert.Len(t, m.Animator().ActiveTracks(), 1, "replaying the same clip reuses its track")
}

func TestDirectorStops(t *testing.T) {
	m := newHero(t)
	src := `
if first {
	anim.loop("slide")
	anim.loop("wave", {priority: 1})
} else if state.stop == "priority" {
	anim.stop_priority(1)
} else if state.stop == "all" {
	anim.stop()
}
`
	d, err := NewDirector(m, []byte(src), WithLogger(nil))
	require.NoError(t, err)

	require.NoError(t, d.Update(0.1))
	m.Tick(0.1)
	assert.Len(t, m.Animator().ActiveTracks(), 2)

	d.(*director).state.Value["stop"] = mustObject(t, "priority")
	require.NoError(t, d.Update(0.1))
	m.Tick(0.1)
	active := m.Animator().ActiveTracks()
	require.Len(t, active, 1)
	assert.Equal(t, "slide", active[0].Clip().Name())

	d.(*director).state.Value["stop"] = mustObject(t, "all")
	require.NoError(t, d.Update(0.1))
	m.Tick(0.1)
	assert.False(t, m.Animator().Playing())
}

func TestDirectorMissingClip(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewDirector(newHero(t), []byte(`state.ok = anim.play("ghost")`), WithLogger(log.New(&buf, "", 0)))
	require.NoError(t, err)

	require.NoError(t, d.Update(0.1))
	assert.Equal(t, false, d.State()["ok"])
	assert.Contains(t, buf.String(), "[Cue] model hero")
	assert.Contains(t, buf.String(), "ghost")
}

func TestDirectorErrors(t *testing.T) {
	m := newHero(t)

	_, err := NewDirector(m, []byte(`anim.play(`), WithLogger(nil))
	assert.ErrorContains(t, err, "cue model hero")

	_, err = NewDirector(m, []byte(`text := import("text")`), WithLogger(nil), WithModules("math"))
	assert.Error(t, err)

	_, err = NewDirector(m, []byte(`state.n = 1`), WithLogger(nil), WithState(map[string]any{"ch": make(chan int)}))
	assert.ErrorContains(t, err, `state "ch"`)

	d, err := NewDirector(m, []byte(`anim.play()`), WithLogger(nil))
	require.NoError(t, err)
	assert.ErrorContains(t, d.Update(0.1), "cue model hero")

	d, err = NewDirector(m, []byte(`anim.loop("slide", 5)`), WithLogger(nil))
	require.NoError(t, err)
	assert.Error(t, d.Update(0.1))
	assert.False(t, m.Animator().Playing())
}

func TestLoadDirector(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idle.tengo")
	require.NoError(t, os.WriteFile(path, []byte(`math := import("math")
state.floor = math.floor(time)`), 0o644))

	d, err := LoadDirector(newHero(t), path, WithLogger(nil))
	require.NoError(t, err)
	require.NoError(t, d.Update(1.5))
	assert.InDelta(t, 1.0, d.State()["floor"], 1e-9)

	_, err = LoadDirector(newHero(t), filepath.Join(dir, "missing.tengo"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte(`anim.play()`), 0o644))
	d, err = LoadDirector(newHero(t), path, WithLogger(nil))
	require.NoError(t, err)
	assert.ErrorContains(t, d.Update(0.1), path)
}

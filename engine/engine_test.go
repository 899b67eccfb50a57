package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-pose/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingScene logs its Tick and Render calls into a shared slice.
type recordingScene struct {
	scene.Scene
	name   string
	events *[]string
}

func (s *recordingScene) Tick(elapsed float32) {
	*s.events = append(*s.events, fmt.Sprintf("tick %s %.2f", s.name, elapsed))
}

func (s *recordingScene) Render() {
	*s.events = append(*s.events, "render "+s.name)
}

func TestStepOrder(t *testing.T) {
	var events []string
	e := NewEngine(
		WithLogger(nil),
		WithScene(2, &recordingScene{name: "ui", events: &events}),
		WithScene(-1, &recordingScene{name: "world", events: &events}),
		WithTickCallback(func(dt float32) {
			events = append(events, fmt.Sprintf("callback %.2f", dt))
		}),
	)

	e.Step(0.5)

	assert.Equal(t, []string{
		"tick world 0.50",
		"tick ui 0.50",
		"render world",
		"render ui",
		"callback 0.50",
	}, events)
	assert.Equal(t, uint64(1), e.Ticks())
}

func TestSceneRegistry(t *testing.T) {
	var events []string
	a := &recordingScene{name: "a", events: &events}
	e := NewEngine(WithLogger(nil))

	assert.Nil(t, e.Scene(1))
	e.AddScene(1, a)
	assert.Same(t, a, e.Scene(1))

	scenes := e.Scenes()
	require.Len(t, scenes, 1)
	delete(scenes, 1)
	assert.NotNil(t, e.Scene(1), "Scenes returns a copy")

	e.RemoveScene(1)
	assert.Nil(t, e.Scene(1))
	e.Step(0.1)
	assert.Empty(t, events)
}

func TestTickRate(t *testing.T) {
	e := NewEngine(WithLogger(nil))
	assert.InDelta(t, 1.0/60, e.TickInterval(), 1e-6)

	e.SetTickRate(50)
	assert.InDelta(t, 0.02, e.TickInterval(), 1e-6)

	e.SetTickRate(-3)
	assert.InDelta(t, 1.0/60, e.TickInterval(), 1e-6)

	assert.InDelta(t, 0.01, NewEngine(WithTickRate(100)).TickInterval(), 1e-6)
}

func TestRunStopsAtTickLimit(t *testing.T) {
	var events []string
	var steps []float32
	e := NewEngine(
		WithLogger(nil),
		WithTickRate(1000),
		WithMaxTicks(5),
		WithScene(0, &recordingScene{name: "s", events: &events}),
	)
	e.SetTickCallback(func(dt float32) {
		steps = append(steps, dt)
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop at the tick limit")
	}

	assert.Equal(t, uint64(5), e.Ticks())
	require.Len(t, steps, 5)
	for _, dt := range steps {
		assert.Equal(t, e.TickInterval(), dt, "every tick steps by the fixed interval")
	}
	assert.Len(t, events, 10)
}

func TestQuit(t *testing.T) {
	e := NewEngine(WithLogger(nil), WithTickRate(1000))

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	require.Eventually(t, func() bool { return e.Ticks() > 0 }, 5*time.Second, time.Millisecond)
	e.SetTickRate(500)
	e.Quit()
	e.Quit()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
}

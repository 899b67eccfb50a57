package profiler

import (
	"bytes"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestProfiler(buf *bytes.Buffer) (*Profiler, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithInterval(time.Second), WithLogger(log.New(buf, "", 0)))
	p.now = clock.now
	p.lastTime = clock.now()
	return p, clock
}

func TestProfilerReportsPerInterval(t *testing.T) {
	var buf bytes.Buffer
	p, clock := newTestProfiler(&buf)

	for _, tracks := range []int{2, 5, 3} {
		clock.advance(250 * time.Millisecond)
		assert.False(t, p.Tick(4, tracks, 2*time.Millisecond))
	}
	assert.Zero(t, p.Last())
	assert.Empty(t, buf.String())

	clock.advance(250 * time.Millisecond)
	assert.True(t, p.Tick(4, 1, 6*time.Millisecond))

	stats := p.Last()
	assert.InDelta(t, 4.0, stats.TicksPerSecond, 1e-9)
	assert.Equal(t, 4, stats.Models)
	assert.Equal(t, 1, stats.ActiveTracks)
	assert.Equal(t, 5, stats.PeakTracks)
	assert.Equal(t, 3*time.Millisecond, stats.MeanTickTime)
	assert.Contains(t, buf.String(), "[Profiler] TPS: 4.00 | Models: 4 | Tracks: 1 (peak 5)")
}

func TestProfilerResetsAfterReport(t *testing.T) {
	var buf bytes.Buffer
	p, clock := newTestProfiler(&buf)

	clock.advance(time.Second)
	assert.True(t, p.Tick(1, 9, time.Millisecond))

	clock.advance(500 * time.Millisecond)
	assert.False(t, p.Tick(1, 2, time.Millisecond))
	clock.advance(500 * time.Millisecond)
	assert.True(t, p.Tick(1, 2, time.Millisecond))

	stats := p.Last()
	assert.InDelta(t, 2.0, stats.TicksPerSecond, 1e-9)
	assert.Equal(t, 2, stats.PeakTracks, "the peak of the previous interval is not carried over")
}

func TestWithLoggerNilDiscards(t *testing.T) {
	p := NewProfiler(WithLogger(nil), WithInterval(0))
	assert.NotPanics(t, func() {
		assert.True(t, p.Tick(0, 0, 0))
	})
}

package profiler

import (
	"io"
	"log"
	"runtime"
	"time"
)

// Stats is one reporting interval of tick statistics.
type Stats struct {
	// TicksPerSecond is the simulation tick rate over the interval.
	TicksPerSecond float64

	// Models is the model count at the last tick of the interval.
	Models int

	// ActiveTracks is the active track count, summed over models, at the last tick of the interval.
	ActiveTracks int

	// PeakTracks is the highest active track count seen during the interval.
	PeakTracks int

	// MeanTickTime is the average wall time spent inside a tick.
	MeanTickTime time.Duration

	// HeapMB is the live heap in MiB.
	HeapMB float64

	// AllocRateMB is the allocation rate in MiB per second.
	AllocRateMB float64

	// GC is the total garbage collection count.
	GC uint32
}

// Profiler tracks tick rate, track counts and memory statistics of a scene.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	tickCount      int
	tickTime       time.Duration
	peakTracks     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastTotalAlloc uint64
	logger         *log.Logger
	last           Stats
	now            func() time.Time
}

// ProfilerBuilderOption is a functional option for configuring a Profiler via NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are reported. Defaults to 1 second.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.updateInterval = d
	}
}

// WithLogger sets the logger statistics are written to. Passing nil discards output.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogger(logger *log.Logger) ProfilerBuilderOption {
	return func(p *Profiler) {
		if logger == nil {
			logger = log.New(io.Discard, "", 0)
		}
		p.logger = logger
	}
}

// NewProfiler creates a new Profiler.
//
// Parameters:
//   - options: a variadic list of ProfilerBuilderOption functions
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		logger:         log.Default(),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per scene tick.
// Logs statistics when the update interval has elapsed.
//
// Parameters:
//   - models: the number of models ticked
//   - activeTracks: the number of active tracks after the tick, summed over models
//   - spent: the wall time the tick took
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(models, activeTracks int, spent time.Duration) bool {
	p.tickCount++
	p.tickTime += spent
	p.peakTracks = max(p.peakTracks, activeTracks)

	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc

	p.last = Stats{
		TicksPerSecond: float64(p.tickCount) / elapsed.Seconds(),
		Models:         models,
		ActiveTracks:   activeTracks,
		PeakTracks:     p.peakTracks,
		MeanTickTime:   p.tickTime / time.Duration(p.tickCount),
		HeapMB:         float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:    float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		GC:             p.memStats.NumGC,
	}
	p.logger.Printf("[Profiler] TPS: %.2f | Models: %d | Tracks: %d (peak %d) | Tick: %s | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d",
		p.last.TicksPerSecond, p.last.Models, p.last.ActiveTracks, p.last.PeakTracks, p.last.MeanTickTime,
		p.last.HeapMB, p.last.AllocRateMB, p.last.GC)

	p.tickCount = 0
	p.tickTime = 0
	p.peakTracks = 0
	p.lastTime = currentTime
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the statistics of the most recent completed interval.
//
// Returns:
//   - Stats: the last reported statistics, zero before the first report
func (p *Profiler) Last() Stats {
	return p.last
}

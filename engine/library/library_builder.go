package library

import (
	"io"
	"log"
	"time"

	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
)

// LibraryBuilderOption is a functional option for configuring a Library via NewLibrary.
type LibraryBuilderOption func(*library)

// WithDefaultFrameRate is an option builder that sets the frame rate assumed for clip files that
// do not declare one. Non-positive values keep DefaultFrameRate.
//
// Parameters:
//   - fps: frames per second
//
// Returns:
//   - LibraryBuilderOption: a function that applies the frame rate option to a library
func WithDefaultFrameRate(fps int) LibraryBuilderOption {
	return func(l *library) {
		if fps > 0 {
			l.defaultFrameRate = fps
		}
	}
}

// WithLoadWorkers is an option builder that caps the number of goroutines LoadDir decodes with.
//
// Parameters:
//   - n: the worker count (minimum 1)
//
// Returns:
//   - LibraryBuilderOption: a function that applies the worker option to a library
func WithLoadWorkers(n int) LibraryBuilderOption {
	return func(l *library) {
		l.workers = max(n, 1)
	}
}

// WithLogger is an option builder that sets the logger used for hot reload reports.
// Passing nil discards log output.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - LibraryBuilderOption: a function that applies the logger option to a library
func WithLogger(logger *log.Logger) LibraryBuilderOption {
	return func(l *library) {
		if logger == nil {
			logger = log.New(io.Discard, "", 0)
		}
		l.logger = logger
	}
}

// WithReloadDebounce is an option builder that sets how long a watched file must stay quiet
// before it is reloaded.
//
// Parameters:
//   - d: the quiet interval
//
// Returns:
//   - LibraryBuilderOption: a function that applies the debounce option to a library
func WithReloadDebounce(d time.Duration) LibraryBuilderOption {
	return func(l *library) {
		l.debounce = d
	}
}

// WithReloadHook is an option builder that registers a callback run after every successful hot
// reload. The callback runs on the watcher's goroutine.
//
// Parameters:
//   - fn: the callback, receiving the clip name and the new clip
//
// Returns:
//   - LibraryBuilderOption: a function that applies the reload hook option to a library
func WithReloadHook(fn func(name string, c clip.Clip)) LibraryBuilderOption {
	return func(l *library) {
		l.onReload = fn
	}
}

// WithClip is an option builder that pre-populates the cache with a clip.
//
// Parameters:
//   - c: the clip to cache
//
// Returns:
//   - LibraryBuilderOption: a function that applies the clip option to a library
func WithClip(c clip.Clip) LibraryBuilderOption {
	return func(l *library) {
		l.clips[c.Name()] = c
	}
}

package library

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watcher reloads clip files when they change on disk.
type watcher struct {
	lib     *library
	fs      *fsnotify.Watcher
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func (l *library) Watch(dirs ...string) error {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	if l.watch == nil {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create file watcher: %w", err)
		}
		l.watch = &watcher{
			lib:     l,
			fs:      fw,
			closeCh: make(chan struct{}),
			done:    make(chan struct{}),
			pending: make(map[string]*time.Timer),
		}
		go l.watch.run()
	}

	for _, dir := range dirs {
		if err := l.watch.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		l.logger.Printf("[Library] watching %s", dir)
	}
	return nil
}

func (l *library) Close() error {
	l.watchMu.Lock()
	w := l.watch
	l.watch = nil
	l.watchMu.Unlock()

	if w == nil {
		return nil
	}
	return w.close()
}

func (w *watcher) close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.fs.Close()
		<-w.done

		w.mu.Lock()
		for path, t := range w.pending {
			t.Stop()
			delete(w.pending, path)
		}
		w.mu.Unlock()
	})
	return err
}

func (w *watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !isClipFile(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.cancel(event.Name)
				w.lib.forget(event.Name)
				w.lib.logger.Printf("[Library] %s removed", event.Name)
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.schedule(event.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.lib.logger.Printf("[Library] watch error: %v", err)
		case <-w.closeCh:
			return
		}
	}
}

// schedule (re)arms the reload timer of path so a burst of writes reloads once, after it settles.
func (w *watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.lib.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.lib.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case <-w.closeCh:
			return
		default:
		}
		w.reload(path)
	})
}

func (w *watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *watcher) reload(path string) {
	c, err := w.lib.Reload(path)
	if err != nil {
		w.lib.logger.Printf("[Library] reload %s: %v", path, err)
		return
	}
	w.lib.logger.Printf("[Library] reloaded clip %q from %s", c.Name(), path)
	if w.lib.onReload != nil {
		w.lib.onReload(c.Name(), c)
	}
}

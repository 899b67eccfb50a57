package library

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"gopkg.in/yaml.v3"
)

var (
	// ErrClipNotFound is returned when a clip name is not in the library.
	ErrClipNotFound = errors.New("library: clip not found")

	// ErrUnsupportedFormat is returned for files whose extension has no decoder.
	ErrUnsupportedFormat = errors.New("library: unsupported file format")

	// ErrMalformed is returned for files that decode but do not describe a valid clip or skeleton.
	ErrMalformed = errors.New("library: malformed file")
)

// library is the implementation of the Library interface.
type library struct {
	mu sync.RWMutex

	clips map[string]clip.Clip

	// paths maps a loaded file to the clip name it produced, so reloads and removals can find it
	paths map[string]string

	defaultFrameRate int
	workers          int
	loadPool         worker.DynamicWorkerPool
	debounce         time.Duration
	logger           *log.Logger
	onReload         func(name string, c clip.Clip)

	watchMu sync.Mutex
	watch   *watcher
}

// Library defines the clip cache shared by every model of a process.
//
// Clips are immutable, so a Library hands the same clip value to any number of tracks and
// goroutines. Replacing a clip (Put, or a hot reload from Watch) only affects tracks created
// afterwards; tracks already playing keep the clip they were created with.
type Library interface {
	// Load decodes a clip file and caches the clip under its name. The format is chosen by
	// extension: .yaml/.yml or .json. A path loaded before is served from the cache.
	//
	// Parameters:
	//   - path: the clip file path
	//
	// Returns:
	//   - clip.Clip: the loaded clip
	//   - error: error if the file cannot be read, decoded or validated
	Load(path string) (clip.Clip, error)

	// Reload decodes a clip file even if it was loaded before and replaces the cached clip.
	//
	// Parameters:
	//   - path: the clip file path
	//
	// Returns:
	//   - clip.Clip: the freshly loaded clip
	//   - error: error if the file cannot be read, decoded or validated
	Reload(path string) (clip.Clip, error)

	// LoadDir loads every clip file directly inside dir in parallel. Files that fail are reported
	// together in the returned error; the clips that loaded are still cached and returned.
	//
	// Parameters:
	//   - dir: the directory to scan (not recursive)
	//
	// Returns:
	//   - []clip.Clip: the loaded clips, in file name order
	//   - error: the joined errors of the files that failed, or nil
	LoadDir(dir string) ([]clip.Clip, error)

	// LoadSkeleton decodes a YAML skeleton file, or the node tree of a glTF file, into a new
	// Skeleton. Skeletons are not cached since every model owns its own.
	//
	// Parameters:
	//   - path: the skeleton file path
	//
	// Returns:
	//   - skeleton.Skeleton: the new skeleton
	//   - error: error if the file cannot be read, decoded or validated
	LoadSkeleton(path string) (skeleton.Skeleton, error)

	// LoadGLTF imports a .gltf or .glb file. Its node tree becomes a new Skeleton (skin joints are
	// bones, mesh nodes carry bounding spheres) and each animation becomes a clip resampled at the
	// library's default frame rate, cached under the animation name.
	//
	// Parameters:
	//   - path: the glTF file path
	//
	// Returns:
	//   - skeleton.Skeleton: the new skeleton
	//   - []clip.Clip: the imported clips, in document order
	//   - error: error if the file cannot be read, decoded or validated
	LoadGLTF(path string) (skeleton.Skeleton, []clip.Clip, error)

	// Clip retrieves a cached clip by name.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - clip.Clip: the clip
	//   - error: ErrClipNotFound if no clip has that name
	Clip(name string) (clip.Clip, error)

	// Put caches a clip built in code, replacing any clip with the same name.
	//
	// Parameters:
	//   - c: the clip to cache
	Put(c clip.Clip)

	// Remove drops a clip from the cache.
	//
	// Parameters:
	//   - name: the clip name
	//
	// Returns:
	//   - bool: true if a clip was removed
	Remove(name string) bool

	// Names returns the names of every cached clip, sorted.
	//
	// Returns:
	//   - []string: the clip names
	Names() []string

	// Watch starts hot reloading clip files in the given directories. Created or written files are
	// reloaded; removed or renamed files drop their clip. May be called again to add directories.
	//
	// Parameters:
	//   - dirs: the directories to watch
	//
	// Returns:
	//   - error: error if the file system watcher cannot be created or a directory cannot be added
	Watch(dirs ...string) error

	// Close stops watching. The cache stays usable.
	//
	// Returns:
	//   - error: error from closing the file system watcher
	Close() error
}

var _ Library = &library{}

// NewLibrary creates a new, empty Library.
//
// Parameters:
//   - options: a variadic list of LibraryBuilderOption functions to configure the Library
//
// Returns:
//   - Library: a new instance of Library configured with the provided options
func NewLibrary(options ...LibraryBuilderOption) Library {
	l := &library{
		clips:            make(map[string]clip.Clip),
		paths:            make(map[string]string),
		defaultFrameRate: DefaultFrameRate,
		workers:          max(runtime.NumCPU()-1, 1),
		debounce:         100 * time.Millisecond,
		logger:           log.Default(),
	}
	for _, option := range options {
		option(l)
	}

	// Created after options so WithLoadWorkers can size it; LoadDir calls share it.
	l.loadPool = worker.NewDynamicWorkerPool(l.workers, 256, time.Second)
	return l
}

func (l *library) Load(path string) (clip.Clip, error) {
	l.mu.RLock()
	if name, ok := l.paths[path]; ok {
		if cached, ok := l.clips[name]; ok {
			l.mu.RUnlock()
			return cached, nil
		}
	}
	l.mu.RUnlock()

	return l.Reload(path)
}

func (l *library) Reload(path string) (clip.Clip, error) {
	decoder, err := decoderFor(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	c, err := doc.build(clipNameFromPath(path), l.defaultFrameRate)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	if previous, ok := l.paths[path]; ok && previous != c.Name() {
		delete(l.clips, previous)
	}
	l.clips[c.Name()] = c
	l.paths[path] = c.Name()
	l.mu.Unlock()

	return c, nil
}

func (l *library) LoadDir(dir string) ([]clip.Clip, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !isClipFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]clip.Clip, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, path := range files {
		wg.Add(1)
		id, p := i, path
		l.loadPool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				results[id], errs[id] = l.Load(p)
				return nil, nil
			},
		})
	}
	wg.Wait()

	loaded := make([]clip.Clip, 0, len(files))
	for _, c := range results {
		if c != nil {
			loaded = append(loaded, c)
		}
	}
	return loaded, errors.Join(errs...)
}

func (l *library) LoadSkeleton(path string) (skeleton.Skeleton, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
	case ".gltf", ".glb":
		scene, err := l.importGLTF(path)
		if err != nil {
			return nil, err
		}
		return buildGLTFSkeleton(path, scene)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc skeletonDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w: %v", path, ErrMalformed, err)
	}

	skel, err := doc.build()
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return skel, nil
}

func (l *library) LoadGLTF(path string) (skeleton.Skeleton, []clip.Clip, error) {
	scene, err := l.importGLTF(path)
	if err != nil {
		return nil, nil, err
	}
	skel, err := buildGLTFSkeleton(path, scene)
	if err != nil {
		return nil, nil, err
	}

	l.mu.Lock()
	for _, c := range scene.clips {
		l.clips[c.Name()] = c
	}
	l.mu.Unlock()
	l.logger.Printf("[Library] imported %s: %d nodes, %d clips", path, skel.NodeCount(), len(scene.clips))
	return skel, scene.clips, nil
}

func (l *library) importGLTF(path string) (*gltfScene, error) {
	f, err := parseGLTFFile(path)
	if err != nil {
		return nil, err
	}
	scene, err := importGLTF(f, l.defaultFrameRate)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return scene, nil
}

func buildGLTFSkeleton(path string, scene *gltfScene) (skeleton.Skeleton, error) {
	skel, err := skeleton.NewSkeleton(skeleton.WithNodes(scene.specs...))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return skel, nil
}

func (l *library) Clip(name string) (clip.Clip, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.clips[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrClipNotFound, name)
	}
	return c, nil
}

func (l *library) Put(c clip.Clip) {
	l.mu.Lock()
	l.clips[c.Name()] = c
	l.mu.Unlock()
}

func (l *library) Remove(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.clips[name]; !ok {
		return false
	}
	delete(l.clips, name)
	for path, n := range l.paths {
		if n == name {
			delete(l.paths, path)
		}
	}
	return true
}

func (l *library) Names() []string {
	l.mu.RLock()
	names := make([]string, 0, len(l.clips))
	for name := range l.clips {
		names = append(names, name)
	}
	l.mu.RUnlock()
	slices.Sort(names)
	return names
}

// forget drops the clip a file produced, if any.
func (l *library) forget(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name, ok := l.paths[path]
	if !ok {
		return
	}
	delete(l.paths, path)
	delete(l.clips, name)
}

// clipNameFromPath names a clip after its file when the file does not name it.
func clipNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

package library

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const walkYAML = `
name: walk
frame_rate: 10
looping: true
targets: [hip, knee]
frames:
  - - {t: [1, 2, 3], r: [0, 0, 0, 1], s: [2, 2, 2]}
    - {}
  - - {t: [4, 5, 6]}
    - {r: [0, 1, 0, 0]}
`

const waveJSON = `{
  "name": "wave",
  "frame_rate": 4,
  "targets": ["elbow"],
  "frames": [
    [{"t": [0, 1, 0]}],
    [{"t": [0, 2, 0], "r": [0, 0, 1, 0], "s": [1, 3, 1]}]
  ]
}`

const armYAML = `
nodes:
  - name: elbow
    parent: shoulder
    bone: true
    t: [0, 1, 0]
  - name: shoulder
    bone: true
    t: [0, 2, 0]
  - name: hand
    parent: elbow
    t: [0, 0.5, 0]
    mesh:
      center: [0, 0.1, 0]
      radius: 0.25
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLClip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "walk.yaml", walkYAML)
	lib := NewLibrary(WithLogger(nil))

	c, err := lib.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "walk", c.Name())
	assert.Equal(t, 10, c.FrameRate())
	assert.True(t, c.Looping())
	assert.Equal(t, []string{"hip", "knee"}, c.Targets())
	require.Equal(t, 2, c.FrameCount())

	want := common.NewTransform([3]float32{1, 2, 3}, [4]float32{0, 0, 0, 1}, [3]float32{2, 2, 2})
	assert.Equal(t, want, c.Transform(0, 0))
	assert.Equal(t, common.IdentityTransform(), c.Transform(0, 1), "empty entries are identity")

	partial := common.IdentityTransform()
	partial.Translation = mgl32.Vec3{4, 5, 6}
	assert.Equal(t, partial, c.Transform(1, 0))
	assert.Equal(t, mgl32.Quat{W: 0, V: mgl32.Vec3{0, 1, 0}}, c.Transform(1, 1).Rotation)

	cached, err := lib.Load(path)
	require.NoError(t, err)
	assert.Same(t, c, cached)

	byName, err := lib.Clip("walk")
	require.NoError(t, err)
	assert.Same(t, c, byName)
}

func TestLoadJSONClip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "wave.json", waveJSON)
	lib := NewLibrary(WithLogger(nil))

	c, err := lib.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "wave", c.Name())
	assert.Equal(t, 4, c.FrameRate())
	assert.False(t, c.Looping())
	assert.Equal(t, []string{"elbow"}, c.Targets())
	require.Equal(t, 2, c.FrameCount())

	first := common.IdentityTransform()
	first.Translation = mgl32.Vec3{0, 1, 0}
	assert.Equal(t, first, c.Transform(0, 0))

	want := common.NewTransform([3]float32{0, 2, 0}, [4]float32{0, 0, 1, 0}, [3]float32{1, 3, 1})
	assert.Equal(t, want, c.Transform(1, 0))
	assert.InDelta(t, 0.5, c.Duration(), 1e-6)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "idle.yml", "targets: [root]\nframes:\n  - - {}\n")

	c, err := NewLibrary(WithLogger(nil)).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "idle", c.Name(), "the file name names an unnamed clip")
	assert.Equal(t, DefaultFrameRate, c.FrameRate())

	c, err = NewLibrary(WithLogger(nil), WithDefaultFrameRate(24)).Reload(path)
	require.NoError(t, err)
	assert.Equal(t, 24, c.FrameRate())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	lib := NewLibrary(WithLogger(nil))

	tests := []struct {
		name    string
		file    string
		content string
		wantErr error
	}{
		{name: "unsupported extension", file: "walk.txt", content: "x", wantErr: ErrUnsupportedFormat},
		{name: "bad yaml", file: "bad.yaml", content: "frames: [unclosed", wantErr: ErrMalformed},
		{name: "bad json", file: "bad.json", content: `{"frames": [[{"t": [0, "x", 0]}]]}`, wantErr: ErrMalformed},
		{name: "short translation", file: "short.yaml", content: "targets: [a]\nframes:\n  - - {t: [1, 2]}\n", wantErr: ErrMalformed},
		{name: "frame size mismatch", file: "size.json", content: `{"targets": ["a", "b"], "frames": [[{}]]}`, wantErr: clip.ErrFrameSize},
		{name: "no frames", file: "empty.yaml", content: "targets: [a]\n", wantErr: clip.ErrNoFrames},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			c, err := lib.Load(path)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := lib.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = lib.Clip("nothing")
	assert.ErrorIs(t, err, ErrClipNotFound)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "walk.yaml", walkYAML)
	writeFile(t, dir, "wave.json", waveJSON)
	writeFile(t, dir, "broken.yaml", "frames: [unclosed")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o755))

	lib := NewLibrary(WithLogger(nil), WithLoadWorkers(2))
	loaded, err := lib.LoadDir(dir)

	assert.ErrorIs(t, err, ErrMalformed)
	assert.Len(t, loaded, 2)
	assert.Equal(t, []string{"walk", "wave"}, lib.Names())

	_, err = lib.LoadDir(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}

func TestLoadDirReusesLoadPool(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "walk.yaml", walkYAML)
	writeFile(t, first, "wave.json", waveJSON)
	for _, name := range []string{"idle", "rest", "crouch"} {
		writeFile(t, second, name+".yml", "targets: [root]\nframes:\n  - - {}\n")
	}

	lib := NewLibrary(WithLogger(nil), WithLoadWorkers(1))
	pool := lib.(*library).loadPool
	require.NotNil(t, pool)

	loaded, err := lib.LoadDir(first)
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	loaded, err = lib.LoadDir(second)
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
	assert.Equal(t, []string{"crouch", "idle", "rest", "walk", "wave"}, lib.Names())
	assert.Equal(t, pool, lib.(*library).loadPool, "every directory load runs on the library's pool")
}

func TestPutAndRemove(t *testing.T) {
	c, err := clip.NewClip("pose", clip.WithFrameRate(1), clip.WithTargets("a"), clip.WithFrames(clip.Frame{common.IdentityTransform()}))
	require.NoError(t, err)

	lib := NewLibrary(WithLogger(nil), WithClip(c))
	assert.Equal(t, []string{"pose"}, lib.Names())

	got, err := lib.Clip("pose")
	require.NoError(t, err)
	assert.Same(t, c, got)

	assert.True(t, lib.Remove("pose"))
	assert.False(t, lib.Remove("pose"))
	assert.Empty(t, lib.Names())

	lib.Put(c)
	assert.Equal(t, []string{"pose"}, lib.Names())
}

func TestReloadRenamedClip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "walk.yaml", walkYAML)
	lib := NewLibrary(WithLogger(nil))

	_, err := lib.Load(path)
	require.NoError(t, err)

	writeFile(t, dir, "walk.yaml", "name: stroll\ntargets: [hip]\nframes:\n  - - {}\n")
	c, err := lib.Reload(path)
	require.NoError(t, err)
	assert.Equal(t, "stroll", c.Name())
	assert.Equal(t, []string{"stroll"}, lib.Names(), "the old name is dropped")
}

func TestLoadSkeleton(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "arm.yaml", armYAML)
	lib := NewLibrary(WithLogger(nil))

	s, err := lib.LoadSkeleton(path)
	require.NoError(t, err)
	require.Equal(t, 3, s.NodeCount())

	shoulder, _ := s.Find("shoulder")
	elbow, _ := s.Find("elbow")
	hand, _ := s.Find("hand")
	assert.Equal(t, skeleton.NodeID(0), shoulder)
	assert.Equal(t, shoulder, s.Parent(elbow))
	assert.Equal(t, []skeleton.NodeID{shoulder, elbow}, s.Bones())
	assert.Equal(t, skeleton.KindMesh, s.Kind(hand))
	assert.Equal(t, "hand", s.Mesh(hand).Name)
	assert.Equal(t, float32(0.25), s.Mesh(hand).Bounds.Radius)

	s.Init(mgl32.Ident4())
	pos := s.WorldTransform(hand).Col(3).Vec3()
	assert.True(t, pos.ApproxEqualThreshold(mgl32.Vec3{0, 3.5, 0}, 1e-5), "got %v", pos)

	_, err = lib.LoadSkeleton(writeFile(t, dir, "arm.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = lib.LoadSkeleton(writeFile(t, dir, "orphan.yaml", "nodes:\n  - {name: a, parent: ghost}\n"))
	assert.ErrorIs(t, err, skeleton.ErrUnknownParent)
}

func TestWatchReloadsChangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "walk.yaml", walkYAML)

	var reloads atomic.Int32
	lib := NewLibrary(
		WithLogger(nil),
		WithReloadDebounce(20*time.Millisecond),
		WithReloadHook(func(string, clip.Clip) { reloads.Add(1) }),
	)
	t.Cleanup(func() { _ = lib.Close() })

	_, err := lib.Load(path)
	require.NoError(t, err)
	require.NoError(t, lib.Watch(dir))

	// write elsewhere and rename in so the watcher never sees a half-written file
	staging := t.TempDir()
	tmp := writeFile(t, staging, "walk.yaml", "name: walk\nframe_rate: 5\ntargets: [hip]\nframes:\n  - - {}\n  - - {}\n  - - {}\n")
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		c, err := lib.Clip("walk")
		return err == nil && c.FrameCount() == 3
	}, 5*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, reloads.Load(), int32(1))

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		_, err := lib.Clip("walk")
		return err != nil
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, lib.Close())
	require.NoError(t, lib.Close())
}

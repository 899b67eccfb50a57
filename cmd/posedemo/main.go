package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Carmen-Shannon/oxy-pose/engine"
	"github.com/Carmen-Shannon/oxy-pose/engine/animator"
	"github.com/Carmen-Shannon/oxy-pose/engine/camera"
	"github.com/Carmen-Shannon/oxy-pose/engine/cue"
	"github.com/Carmen-Shannon/oxy-pose/engine/library"
	"github.com/Carmen-Shannon/oxy-pose/engine/model"
	"github.com/Carmen-Shannon/oxy-pose/engine/profiler"
	"github.com/Carmen-Shannon/oxy-pose/engine/scene"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/profile"
)

var (
	profilerHandler interface {
		Stop()
	}

	clipDir      string
	skeletonPath string
	gltfPath     string
	pickAt       string
	cuePath      string
	playList     string
	modelCount   int
	tickCount    uint64
	tickRate     float64
	realtime     bool
	printEvery   int
	watch        bool
	stats        bool
	profileMod   string
	profileDelay time.Duration

	logger = log.New(os.Stderr, "", log.LstdFlags)
)

func init() {
	flag.StringVar(&clipDir, "clips", "", "directory of .yaml/.json clip files (empty: built-in demo clips)")
	flag.StringVar(&skeletonPath, "skeleton", "", "skeleton .yaml file (empty: built-in demo arm)")
	flag.StringVar(&gltfPath, "gltf", "", "glTF 2.0 (.gltf/.glb) file providing the skeleton and extra clips")
	flag.StringVar(&pickAt, "pick", "", "after the run, pick the model under the pixel \"x,y\" of a 640x480 view")
	flag.StringVar(&cuePath, "cue", "", "tengo cue script driving every model")
	flag.StringVar(&playList, "play", "swing,wave:1", "comma separated clip[:priority] list played on start when no cue script is given")
	flag.IntVar(&modelCount, "models", 1, "number of model instances in the scene")
	flag.Uint64Var(&tickCount, "ticks", 120, "number of ticks to simulate, 0 runs until interrupted")
	flag.Float64Var(&tickRate, "hz", 60, "simulation ticks per second")
	flag.BoolVar(&realtime, "realtime", false, "pace ticks with the wall clock instead of running them back to back")
	flag.IntVar(&printEvery, "print", 30, "print the first model's pose every n ticks, 0 disables")
	flag.BoolVar(&watch, "watch", false, "hot reload clip files in -clips")
	flag.BoolVar(&stats, "stats", false, "log tick statistics every second")
	flag.StringVar(&profileMod, "profile.mode", "", "enable profiling mode, one of [cpu, mem, mutex, block, all]")
	flag.DurationVar(&profileDelay, "profile.delay", -1, "delay of starting profile, after simulation start. -1 means no delay")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		logger.Printf("posedemo: %v", err)
		profileStop()
		os.Exit(1)
	}
	profileStop()
}

func run() error {
	lib := library.NewLibrary(library.WithLogger(logger))
	defer lib.Close()

	if clipDir == "" {
		for _, c := range demoClips() {
			lib.Put(c)
		}
	} else {
		loaded, err := lib.LoadDir(clipDir)
		if err != nil {
			return err
		}
		logger.Printf("[Library] loaded %d clips from %s", len(loaded), clipDir)
		if watch {
			if err := lib.Watch(clipDir); err != nil {
				return err
			}
		}
	}

	if gltfPath != "" {
		_, clips, err := lib.LoadGLTF(gltfPath)
		if err != nil {
			return err
		}
		logger.Printf("[Library] imported %d clips from %s", len(clips), gltfPath)
		skeletonPath = gltfPath
	}

	sceneOptions := []scene.SceneBuilderOption{scene.WithLogger(logger)}
	if stats {
		sceneOptions = append(sceneOptions, scene.WithProfiler(profiler.NewProfiler(profiler.WithLogger(logger))))
	}
	sc := scene.NewScene("posedemo", sceneOptions...)
	defer sc.Close()

	for i := range max(modelCount, 1) {
		skel, err := newSkeleton()
		if err != nil {
			return err
		}
		m := model.NewModel(fmt.Sprintf("model-%d", i), skel,
			model.WithClipSource(lib),
			model.WithWorldTransform(mgl32.Translate3D(float32(i)*2, 0, 0)),
			model.WithAnimatorOptions(animator.WithLogger(logger)),
		)
		if err := sc.AddModel(m); err != nil {
			return err
		}
		if i == 0 {
			m.AddObserver(&animator.ObserverFuncs{
				OnStarted: func(t animator.Track) {
					logger.Printf("[Demo] %s started %q (priority %d)", m.Name(), t.Clip().Name(), t.Priority())
				},
				OnStopped: func(t animator.Track, completed bool) {
					logger.Printf("[Demo] %s stopped %q (completed %t)", m.Name(), t.Clip().Name(), completed)
				},
			})
		}

		if cuePath != "" {
			d, err := cue.LoadDirector(m, cuePath, cue.WithLogger(logger))
			if err != nil {
				return err
			}
			if err := sc.AttachDirector(m.Name(), d); err != nil {
				return err
			}
			continue
		}
		if err := startPlayList(m, playList); err != nil {
			return err
		}
	}

	first, _ := sc.Model("model-0")
	var ticks uint64
	eng := engine.NewEngine(
		engine.WithTickRate(tickRate),
		engine.WithScene(0, sc),
		engine.WithMaxTicks(tickCount),
		engine.WithLogger(logger),
		engine.WithTickCallback(func(float32) {
			ticks++
			if printEvery > 0 && ticks%uint64(printEvery) == 0 {
				printPose(os.Stdout, ticks, first.Pose())
			}
		}),
	)

	if profileMod != "" {
		profileStart(profileMod, profileDelay)
	}

	if !realtime && tickCount > 0 {
		dt := eng.TickInterval()
		for range tickCount {
			eng.Step(dt)
		}
		return pick(sc)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		eng.Quit()
	}()
	eng.Run()
	return pick(sc)
}

// pick casts a ray through the -pick pixel of a 640x480 view framing the model row.
func pick(sc scene.Scene) error {
	if pickAt == "" {
		return nil
	}
	xs, ys, ok := strings.Cut(pickAt, ",")
	if !ok {
		return fmt.Errorf("pick %q: want x,y", pickAt)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 32)
	if err != nil {
		return fmt.Errorf("pick %q: %w", pickAt, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 32)
	if err != nil {
		return fmt.Errorf("pick %q: %w", pickAt, err)
	}

	const width, height = 640, 480
	centerX := float32(max(modelCount, 1)-1)
	cam := camera.NewCamera(
		camera.WithAspect(float32(width)/height),
		camera.WithPosition(mgl32.Vec3{centerX, 1, 6 + centerX}),
		camera.WithTarget(mgl32.Vec3{centerX, 1, 0}),
	)

	m, hit, ok := sc.FindIntersection(cam.ScreenRay(float32(x), float32(y), width, height))
	if !ok {
		fmt.Fprintf(os.Stdout, "pick %s: nothing\n", pickAt)
		return nil
	}
	fmt.Fprintf(os.Stdout, "pick %s: %s node %q at distance %.3f\n",
		pickAt, m.Name(), m.Skeleton().Name(hit.Node), hit.Distance)
	return nil
}

func newSkeleton() (skeleton.Skeleton, error) {
	if skeletonPath == "" {
		return demoSkeleton()
	}
	return library.NewLibrary(library.WithLogger(nil)).LoadSkeleton(skeletonPath)
}

// startPlayList plays every clip[:priority] entry of list on m.
func startPlayList(m model.Model, list string) error {
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		name, prio, _ := strings.Cut(item, ":")
		priority := 0
		if prio != "" {
			p, err := strconv.Atoi(prio)
			if err != nil {
				return fmt.Errorf("play list entry %q: %w", item, err)
			}
			priority = p
		}
		t, err := m.CreateTrackByName(name, animator.WithPriority(priority))
		if err != nil {
			return err
		}
		t.Play(animator.WithTransition(0.25), animator.WithBlendOut(0.25))
	}
	return nil
}

func profileStart(mode string, delay time.Duration) {
	do := func() {
		logger.Print("start profile")
		switch mode {
		case "cpu":
			profilerHandler = profile.Start(profile.CPUProfile, profile.NoShutdownHook, profile.ProfilePath("./prof"))
		case "mem":
			profilerHandler = profile.Start(profile.MemProfile, profile.NoShutdownHook, profile.ProfilePath("./prof"))
		case "mutex":
			profilerHandler = profile.Start(profile.MutexProfile, profile.NoShutdownHook, profile.ProfilePath("./prof"))
		case "block":
			profilerHandler = profile.Start(profile.BlockProfile, profile.NoShutdownHook, profile.ProfilePath("./prof"))
		case "all":
			profilerHandler = profile.Start(func(p *profile.Profile) {
				profile.CPUProfile(p)
				profile.MutexProfile(p)
				profile.BlockProfile(p)
				profile.NoShutdownHook(p)
			}, profile.ProfilePath("./prof"))
		default:
			logger.Print("wrong profile type")
		}
	}

	if delay != -1 {
		time.AfterFunc(delay, do)
	} else {
		do()
	}
}

func profileStop() {
	if profilerHandler != nil {
		logger.Print("stop profile")
		profilerHandler.Stop()
	}
}

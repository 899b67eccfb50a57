package main

import (
	"fmt"
	"io"
	"math"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// demoSkeleton builds a three bone arm hanging off a root, with a hand mesh for picking.
func demoSkeleton() (skeleton.Skeleton, error) {
	return skeleton.NewSkeleton(skeleton.WithNodes(
		skeleton.NodeSpec{Name: "root", Local: common.IdentityTransform()},
		skeleton.NodeSpec{Name: "shoulder", Parent: "root", Bone: true, Local: translated(0, 1.5, 0)},
		skeleton.NodeSpec{Name: "elbow", Parent: "shoulder", Bone: true, Local: translated(0, 1, 0)},
		skeleton.NodeSpec{Name: "wrist", Parent: "elbow", Bone: true, Local: translated(0, 1, 0)},
		skeleton.NodeSpec{
			Name:   "hand",
			Parent: "wrist",
			Local:  translated(0, 0.25, 0),
			Mesh:   &skeleton.Mesh{Name: "hand", Bounds: common.Sphere{Radius: 0.25}},
		},
	))
}

// demoClips generates a looping full-arm swing and a one-shot forearm wave.
func demoClips() []clip.Clip {
	const frames = 24

	swing := make([]clip.Frame, frames)
	for i := range swing {
		angle := float32(math.Sin(2*math.Pi*float64(i)/frames)) * mgl32.DegToRad(45)
		swing[i] = clip.Frame{
			rotated(0, 1.5, 0, mgl32.QuatRotate(angle, mgl32.Vec3{0, 0, 1})),
			translated(0, 1, 0),
		}
	}

	wave := make([]clip.Frame, frames/2)
	for i := range wave {
		angle := float32(math.Sin(4*math.Pi*float64(i)/float64(len(wave)))) * mgl32.DegToRad(60)
		wave[i] = clip.Frame{
			rotated(0, 1, 0, mgl32.QuatRotate(angle, mgl32.Vec3{1, 0, 0})),
			translated(0, 1, 0),
		}
	}

	out := make([]clip.Clip, 0, 2)
	if c, err := clip.NewClip("swing",
		clip.WithFrameRate(12), clip.WithLooping(true),
		clip.WithTargets("shoulder", "elbow"), clip.WithFrames(swing...)); err == nil {
		out = append(out, c)
	}
	if c, err := clip.NewClip("wave",
		clip.WithFrameRate(12),
		clip.WithTargets("elbow", "wrist"), clip.WithFrames(wave...)); err == nil {
		out = append(out, c)
	}
	return out
}

func translated(x, y, z float32) common.Transform {
	t := common.IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

func rotated(x, y, z float32, q mgl32.Quat) common.Transform {
	t := translated(x, y, z)
	t.Rotation = q
	return t
}

// printPose writes the world position of every node of a pose.
func printPose(w io.Writer, tick uint64, pose skeleton.Pose) {
	fmt.Fprintf(w, "tick %d\n", tick)
	for id := skeleton.NodeID(0); int(id) < pose.NodeCount(); id++ {
		p := pose.WorldTransform(id).Col(3)
		fmt.Fprintf(w, "  %-10s (%7.3f, %7.3f, %7.3f)\n", pose.Name(id), p.X(), p.Y(), p.Z())
	}
}

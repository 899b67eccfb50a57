package library

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultFrameRate is used for clip files that omit frame_rate, unless overridden with WithDefaultFrameRate.
const DefaultFrameRate = 30

// transformDoc is one keyframe transform as written in clip and skeleton files.
// Omitted fields fall back to the identity component.
type transformDoc struct {
	T []float32 `yaml:"t"`
	R []float32 `yaml:"r"`
	S []float32 `yaml:"s"`
}

// clipDoc is the decoded form of a clip file, shared by the YAML and JSON decoders.
type clipDoc struct {
	Name      string           `yaml:"name"`
	FrameRate int              `yaml:"frame_rate"`
	Looping   bool             `yaml:"looping"`
	Targets   []string         `yaml:"targets"`
	Frames    [][]transformDoc `yaml:"frames"`
}

// meshDoc is the optional mesh payload of a skeleton node.
type meshDoc struct {
	Name   string    `yaml:"name"`
	Center []float32 `yaml:"center"`
	Radius float32   `yaml:"radius"`
}

// nodeDoc is one node of a skeleton file.
type nodeDoc struct {
	Name         string `yaml:"name"`
	Parent       string `yaml:"parent"`
	Bone         bool   `yaml:"bone"`
	transformDoc `yaml:",inline"`
	Mesh         *meshDoc `yaml:"mesh"`
}

// skeletonDoc is the decoded form of a skeleton file.
type skeletonDoc struct {
	Nodes []nodeDoc `yaml:"nodes"`
}

func (d transformDoc) transform() (common.Transform, error) {
	out := common.IdentityTransform()
	switch len(d.T) {
	case 0:
	case 3:
		out.Translation = mgl32.Vec3{d.T[0], d.T[1], d.T[2]}
	default:
		return out, fmt.Errorf("%w: translation needs 3 components, got %d", ErrMalformed, len(d.T))
	}
	switch len(d.R) {
	case 0:
	case 4:
		out.Rotation = mgl32.Quat{W: d.R[3], V: mgl32.Vec3{d.R[0], d.R[1], d.R[2]}}
	default:
		return out, fmt.Errorf("%w: rotation needs 4 components (x, y, z, w), got %d", ErrMalformed, len(d.R))
	}
	switch len(d.S) {
	case 0:
	case 3:
		out.Scale = mgl32.Vec3{d.S[0], d.S[1], d.S[2]}
	default:
		return out, fmt.Errorf("%w: scale needs 3 components, got %d", ErrMalformed, len(d.S))
	}
	return out, nil
}

// build converts a decoded clip document into an immutable clip.
func (d clipDoc) build(fallbackName string, defaultFrameRate int) (clip.Clip, error) {
	frames := make([]clip.Frame, len(d.Frames))
	for i, docFrame := range d.Frames {
		frame := make(clip.Frame, len(docFrame))
		for j, td := range docFrame {
			t, err := td.transform()
			if err != nil {
				return nil, fmt.Errorf("frame %d, target %d: %w", i, j, err)
			}
			frame[j] = t
		}
		frames[i] = frame
	}
	return clip.NewClip(
		common.Coalesce(d.Name, fallbackName),
		clip.WithFrameRate(common.Coalesce(d.FrameRate, defaultFrameRate)),
		clip.WithLooping(d.Looping),
		clip.WithTargets(d.Targets...),
		clip.WithFrames(frames...),
	)
}

// build converts a decoded skeleton document into node specs for skeleton.NewSkeleton.
func (d skeletonDoc) build() (skeleton.Skeleton, error) {
	specs := make([]skeleton.NodeSpec, len(d.Nodes))
	for i, n := range d.Nodes {
		local, err := n.transform()
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}
		spec := skeleton.NodeSpec{Name: n.Name, Parent: n.Parent, Bone: n.Bone, Local: local}
		if n.Mesh != nil {
			var center mgl32.Vec3
			switch len(n.Mesh.Center) {
			case 0:
			case 3:
				center = mgl32.Vec3{n.Mesh.Center[0], n.Mesh.Center[1], n.Mesh.Center[2]}
			default:
				return nil, fmt.Errorf("%w: node %q: mesh center needs 3 components", ErrMalformed, n.Name)
			}
			spec.Mesh = &skeleton.Mesh{
				Name:   common.Coalesce(n.Mesh.Name, n.Name),
				Bounds: common.Sphere{Center: center, Radius: n.Mesh.Radius},
			}
		}
		specs[i] = spec
	}
	return skeleton.NewSkeleton(skeleton.WithNodes(specs...))
}

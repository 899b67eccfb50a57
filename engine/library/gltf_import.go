package library

import (
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/Carmen-Shannon/oxy-pose/engine/clip"
	"github.com/Carmen-Shannon/oxy-pose/engine/skeleton"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfScene is the result of importing one glTF file.
type gltfScene struct {
	specs []skeleton.NodeSpec
	clips []clip.Clip
}

// gltfChannel is one sampled property of one node.
type gltfChannel struct {
	path   string
	interp string
	times  []float32
	values []float32 // flat, 3 or 4 floats per key
	width  int
}

// importGLTF converts a parsed file into skeleton node specs and clips sampled at fps.
// Every node of the document becomes a skeleton node; skin joints are bones, nodes with a mesh
// carry a bounding sphere taken from the POSITION bounds of their primitives.
func importGLTF(f *gltfFile, fps int) (*gltfScene, error) {
	names := f.nodeNames()
	parents, err := f.nodeParents()
	if err != nil {
		return nil, err
	}

	bones := make(map[int]bool)
	for _, skin := range f.doc.Skins {
		for _, j := range skin.Joints {
			if j < 0 || j >= len(f.doc.Nodes) {
				return nil, fmt.Errorf("%w: skin %q joint %d out of range", ErrMalformed, skin.Name, j)
			}
			bones[j] = true
		}
	}

	rest := make([]common.Transform, len(f.doc.Nodes))
	specs := make([]skeleton.NodeSpec, len(f.doc.Nodes))
	for i, node := range f.doc.Nodes {
		rest[i] = gltfNodeTransform(node)
		specs[i] = skeleton.NodeSpec{Name: names[i], Bone: bones[i], Local: rest[i]}
		if parents[i] >= 0 {
			specs[i].Parent = names[parents[i]]
		}
		if node.Mesh != nil {
			mesh, err := f.meshBounds(*node.Mesh, names[i])
			if err != nil {
				return nil, fmt.Errorf("node %q: %w", names[i], err)
			}
			specs[i].Mesh = mesh
		}
	}

	clips := make([]clip.Clip, 0, len(f.doc.Animations))
	for i := range f.doc.Animations {
		c, err := f.animationClip(i, names, rest, fps)
		if err != nil {
			return nil, err
		}
		if c != nil {
			clips = append(clips, c)
		}
	}
	return &gltfScene{specs: specs, clips: clips}, nil
}

// nodeNames names unnamed nodes node_<index> and suffixes repeated names with _<index>, since
// skeleton nodes and clip targets are matched by name.
func (f *gltfFile) nodeNames() []string {
	names := make([]string, len(f.doc.Nodes))
	seen := make(map[string]bool, len(f.doc.Nodes))
	for i, node := range f.doc.Nodes {
		name := common.Coalesce(node.Name, fmt.Sprintf("node_%d", i))
		if seen[name] {
			name = fmt.Sprintf("%s_%d", name, i)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func (f *gltfFile) nodeParents() ([]int, error) {
	parents := make([]int, len(f.doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, node := range f.doc.Nodes {
		for _, c := range node.Children {
			if c < 0 || c >= len(parents) {
				return nil, fmt.Errorf("%w: node %d child %d out of range", ErrMalformed, i, c)
			}
			if parents[c] >= 0 {
				return nil, fmt.Errorf("%w: node %d has two parents", ErrMalformed, c)
			}
			parents[c] = i
		}
	}
	return parents, nil
}

func gltfNodeTransform(node gltfNode) common.Transform {
	if node.Matrix != nil {
		return common.DecomposeMatrix(mgl32.Mat4(*node.Matrix))
	}
	t := common.IdentityTransform()
	if node.Translation != nil {
		t.Translation = mgl32.Vec3(*node.Translation)
	}
	if node.Rotation != nil {
		r := *node.Rotation
		t.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if node.Scale != nil {
		t.Scale = mgl32.Vec3(*node.Scale)
	}
	return t
}

// meshBounds encloses the POSITION min/max boxes of every primitive in one sphere.
func (f *gltfFile) meshBounds(index int, nodeName string) (*skeleton.Mesh, error) {
	if index < 0 || index >= len(f.doc.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d out of range", ErrMalformed, index)
	}
	mesh := f.doc.Meshes[index]

	var lo, hi mgl32.Vec3
	found := false
	for _, prim := range mesh.Primitives {
		ai, ok := prim.Attributes["POSITION"]
		if !ok || ai < 0 || ai >= len(f.doc.Accessors) {
			continue
		}
		acc := f.doc.Accessors[ai]
		if len(acc.Min) != 3 || len(acc.Max) != 3 {
			continue
		}
		pmin, pmax := mgl32.Vec3{acc.Min[0], acc.Min[1], acc.Min[2]}, mgl32.Vec3{acc.Max[0], acc.Max[1], acc.Max[2]}
		if !found {
			lo, hi, found = pmin, pmax, true
			continue
		}
		for c := range 3 {
			lo[c] = min(lo[c], pmin[c])
			hi[c] = max(hi[c], pmax[c])
		}
	}

	out := &skeleton.Mesh{Name: common.Coalesce(mesh.Name, nodeName)}
	if found {
		out.Bounds = common.Sphere{Center: lo.Add(hi).Mul(0.5), Radius: hi.Sub(lo).Len() / 2}
	}
	return out, nil
}

// animationClip resamples one glTF animation at fps. Targets are the animated nodes in node order;
// properties a channel does not animate keep the node's rest value. Animations that only animate
// morph weights yield nil.
func (f *gltfFile) animationClip(index int, names []string, rest []common.Transform, fps int) (clip.Clip, error) {
	anim := f.doc.Animations[index]
	name := common.Coalesce(anim.Name, fmt.Sprintf("animation_%d", index))

	byNode := make(map[int][]gltfChannel)
	var end float32
	for ci, ch := range anim.Channels {
		width := 0
		switch ch.Target.Path {
		case gltfPathTranslation, gltfPathScale:
			width = 3
		case gltfPathRotation:
			width = 4
		default:
			continue
		}
		if ch.Target.Node == nil {
			continue
		}
		node := *ch.Target.Node
		if node < 0 || node >= len(names) {
			return nil, fmt.Errorf("%w: animation %q channel %d targets node %d", ErrMalformed, name, ci, node)
		}
		if ch.Sampler < 0 || ch.Sampler >= len(anim.Samplers) {
			return nil, fmt.Errorf("%w: animation %q channel %d sampler %d", ErrMalformed, name, ci, ch.Sampler)
		}

		sampled, err := f.readChannel(anim.Samplers[ch.Sampler], ch.Target.Path, width)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: %w", name, ci, err)
		}
		if n := len(sampled.times); n > 0 {
			end = max(end, sampled.times[n-1])
		}
		byNode[node] = append(byNode[node], sampled)
	}
	if len(byNode) == 0 {
		return nil, nil
	}

	nodes := make([]int, 0, len(byNode))
	for n := range byNode {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)

	targets := make([]string, len(nodes))
	for i, n := range nodes {
		targets[i] = names[n]
	}

	count := int(math.Round(float64(end)*float64(fps))) + 1
	frames := make([]clip.Frame, count)
	for fi := range frames {
		at := float32(fi) / float32(fps)
		frame := make(clip.Frame, len(nodes))
		for ti, n := range nodes {
			t := rest[n]
			for _, ch := range byNode[n] {
				ch.apply(&t, at)
			}
			frame[ti] = t
		}
		frames[fi] = frame
	}

	return clip.NewClip(name,
		clip.WithFrameRate(fps),
		clip.WithTargets(targets...),
		clip.WithFrames(frames...),
	)
}

func (f *gltfFile) readChannel(s gltfAnimSampler, path string, width int) (gltfChannel, error) {
	times, err := f.readFloats(s.Input, gltfTypeScalar)
	if err != nil {
		return gltfChannel{}, err
	}
	accessorType := gltfTypeVec3
	if width == 4 {
		accessorType = gltfTypeVec4
	}
	values, err := f.readFloats(s.Output, accessorType)
	if err != nil {
		return gltfChannel{}, err
	}

	if s.Interpolation == gltfInterpolationCubicSpline {
		// keys are stored as in-tangent, value, out-tangent; keep the values only
		keys := len(values) / (3 * width)
		flat := make([]float32, 0, keys*width)
		for k := range keys {
			flat = append(flat, values[(3*k+1)*width:(3*k+2)*width]...)
		}
		values = flat
	}
	if len(values)/width < len(times) {
		return gltfChannel{}, fmt.Errorf("%w: %d keys but %d values", ErrMalformed, len(times), len(values)/width)
	}
	if len(times) == 0 {
		return gltfChannel{}, fmt.Errorf("%w: sampler has no keys", ErrMalformed)
	}
	return gltfChannel{path: path, interp: s.Interpolation, times: times, values: values, width: width}, nil
}

// apply writes the channel's value at time at into t. Cubic spline channels are sampled linearly
// between their key values.
func (c gltfChannel) apply(t *common.Transform, at float32) {
	last := len(c.times) - 1
	k := sort.Search(len(c.times), func(i int) bool { return c.times[i] > at })

	var a, b common.Transform
	var u float32
	switch {
	case k == 0:
		c.set(&a, t, 0)
		*t = a
		return
	case k > last:
		c.set(&a, t, last)
		*t = a
		return
	case c.interp == gltfInterpolationStep:
		c.set(&a, t, k-1)
		*t = a
		return
	}
	c.set(&a, t, k-1)
	c.set(&b, t, k)
	if span := c.times[k] - c.times[k-1]; span > 0 {
		u = (at - c.times[k-1]) / span
	}
	mixed := common.Lerp(a, b, u)
	switch c.path {
	case gltfPathTranslation:
		t.Translation = mixed.Translation
	case gltfPathScale:
		t.Scale = mixed.Scale
	case gltfPathRotation:
		t.Rotation = mixed.Rotation
	}
}

// set copies base into dst and overwrites the channel's property with key k.
func (c gltfChannel) set(dst, base *common.Transform, k int) {
	*dst = *base
	v := c.values[k*c.width : (k+1)*c.width]
	switch c.path {
	case gltfPathTranslation:
		dst.Translation = mgl32.Vec3{v[0], v[1], v[2]}
	case gltfPathScale:
		dst.Scale = mgl32.Vec3{v[0], v[1], v[2]}
	case gltfPathRotation:
		dst.Rotation = mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}.Normalize()
	}
}

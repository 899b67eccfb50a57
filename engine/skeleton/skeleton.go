package skeleton

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrEmptyName is returned when a node spec has no name.
	ErrEmptyName = errors.New("skeleton: node name is empty")

	// ErrDuplicateNode is returned when two node specs share a name.
	ErrDuplicateNode = errors.New("skeleton: duplicate node name")

	// ErrUnknownParent is returned when a node spec names a parent that does not exist.
	ErrUnknownParent = errors.New("skeleton: unknown parent")

	// ErrCycle is returned when the parent links do not form a tree.
	ErrCycle = errors.New("skeleton: parent links contain a cycle")
)

// skeleton is the implementation of the Skeleton interface.
type skeleton struct {
	nodes       []node
	roots       []NodeID
	bones       []NodeID
	nameToIndex map[string]NodeID
}

// Pose is the read-only view of a skeleton handed to renderers once per frame.
// It exposes the derived world and bone matrices but no mutation.
type Pose interface {
	// NodeCount returns the number of nodes in the skeleton.
	//
	// Returns:
	//   - int: the node count
	NodeCount() int

	// Find resolves a node name to its NodeID.
	//
	// Parameters:
	//   - name: the node name
	//
	// Returns:
	//   - NodeID: the node, or NoNode if absent
	//   - bool: true if the node exists
	Find(name string) (NodeID, bool)

	// Name returns the node's name.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - string: the node name
	Name(id NodeID) string

	// WorldTransform returns the node's world matrix as of the last Init or Recompute.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - mgl32.Mat4: the world matrix
	WorldTransform(id NodeID) mgl32.Mat4

	// BoneTransform returns the node's skinning matrix, world * inverse reference pose.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - mgl32.Mat4: the bone matrix (identity for non-bone nodes)
	//   - bool: true if the node is a bone
	BoneTransform(id NodeID) (mgl32.Mat4, bool)

	// Bones returns the bone nodes in arena order.
	//
	// Returns:
	//   - []NodeID: the bone node IDs
	Bones() []NodeID

	// BoneTransforms appends the bone matrices of every bone, in Bones order, to dst.
	//
	// Parameters:
	//   - dst: the slice to append to (may be nil)
	//
	// Returns:
	//   - []mgl32.Mat4: dst with the bone matrices appended
	BoneTransforms(dst []mgl32.Mat4) []mgl32.Mat4
}

// Skeleton defines the node hierarchy of an articulated model.
//
// Nodes are stored in an arena ordered so that every parent precedes its children; the tree is
// owned outright by the Skeleton and traversed only parent to child. Each node carries a local
// transform written by the animator, derived world and bone matrices written by Init/Recompute,
// and a blend scratch pair (stamp, weight) that is meaningful only while its stamp matches the
// tick currently being blended.
type Skeleton interface {
	Pose

	// Init performs the one-time composition of world matrices from the reference local transforms.
	// Bone nodes capture the inverse of their initial world matrix as the reference pose.
	//
	// Parameters:
	//   - parentWorld: the world matrix the root nodes are attached to
	Init(parentWorld mgl32.Mat4)

	// Recompute recomposes world matrices top-down from the current local transforms and refreshes
	// bone matrices. Mesh nodes with a SurfaceUpdater are notified afterwards.
	//
	// Parameters:
	//   - parentWorld: the world matrix the root nodes are attached to
	Recompute(parentWorld mgl32.Mat4)

	// FindIntersection tests a ray against the bounding spheres of mesh nodes using the world matrices
	// from the last Recompute, returning the nearest hit.
	//
	// Parameters:
	//   - ray: the world-space ray
	//
	// Returns:
	//   - Intersection: the nearest hit
	//   - bool: true if any mesh node was hit
	FindIntersection(ray common.Ray) (Intersection, bool)

	// IsBone reports whether the node is a skinning bone.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - bool: true if the node is a bone
	IsBone(id NodeID) bool

	// Kind returns the variant tag of the node.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - NodeKind: KindPlain or KindMesh
	Kind(id NodeID) NodeKind

	// Mesh returns the mesh payload of a KindMesh node, or nil.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - *Mesh: the mesh payload or nil
	Mesh(id NodeID) *Mesh

	// Parent returns the node's parent, or NoNode for a root.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - NodeID: the parent node
	Parent(id NodeID) NodeID

	// Children returns a copy of the node's ordered children.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - []NodeID: the child node IDs
	Children(id NodeID) []NodeID

	// Roots returns a copy of the root nodes in declaration order.
	//
	// Returns:
	//   - []NodeID: the root node IDs
	Roots() []NodeID

	// LocalTransform returns the node's current local transform.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - common.Transform: the local transform
	LocalTransform(id NodeID) common.Transform

	// SetLocalTransform overwrites the node's local transform.
	//
	// Parameters:
	//   - id: the node to update
	//   - t: the new local transform
	SetLocalTransform(id NodeID, t common.Transform)

	// BlendState returns the node's blend scratch.
	//
	// Parameters:
	//   - id: the node to query
	//
	// Returns:
	//   - uint64: the stamp of the tick that last touched the node
	//   - float32: the weight accumulated during that tick
	BlendState(id NodeID) (uint64, float32)

	// SetBlendState overwrites the node's blend scratch.
	//
	// Parameters:
	//   - id: the node to update
	//   - stamp: the stamp of the current tick
	//   - weight: the accumulated weight
	SetBlendState(id NodeID, stamp uint64, weight float32)
}

var _ Skeleton = &skeleton{}

// NewSkeleton creates a new Skeleton from node specs. Specs are validated and topologically
// sorted so that parents precede children. World and bone matrices start at identity until Init.
//
// Parameters:
//   - options: variadic list of SkeletonBuilderOption functions to configure the Skeleton
//
// Returns:
//   - Skeleton: the new skeleton
//   - error: ErrEmptyName, ErrDuplicateNode, ErrUnknownParent or ErrCycle (wrapped) on invalid specs
func NewSkeleton(options ...SkeletonBuilderOption) (Skeleton, error) {
	b := &skeletonBuild{}
	for _, opt := range options {
		opt(b)
	}

	byName := make(map[string]int, len(b.specs))
	for i, spec := range b.specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: spec %d", ErrEmptyName, i)
		}
		if _, dup := byName[spec.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, spec.Name)
		}
		byName[spec.Name] = i
	}
	for _, spec := range b.specs {
		if spec.Parent == "" {
			continue
		}
		if _, ok := byName[spec.Parent]; !ok {
			return nil, fmt.Errorf("%w: %q (parent of %q)", ErrUnknownParent, spec.Parent, spec.Name)
		}
	}

	order, err := topologicalOrder(b.specs, byName)
	if err != nil {
		return nil, err
	}

	s := &skeleton{
		nodes:       make([]node, len(order)),
		nameToIndex: make(map[string]NodeID, len(order)),
	}
	for newIdx, specIdx := range order {
		s.nameToIndex[b.specs[specIdx].Name] = NodeID(newIdx)
	}
	for newIdx, specIdx := range order {
		spec := b.specs[specIdx]
		id := NodeID(newIdx)
		n := node{
			name:         spec.Name,
			bone:         spec.Bone,
			kind:         KindPlain,
			parent:       NoNode,
			local:        spec.Local,
			world:        mgl32.Ident4(),
			boneMatrix:   mgl32.Ident4(),
			invReference: mgl32.Ident4(),
		}
		if spec.Mesh != nil {
			n.kind = KindMesh
			n.mesh = spec.Mesh
		}
		if spec.Parent != "" {
			p := s.nameToIndex[spec.Parent]
			n.parent = p
			s.nodes[p].children = append(s.nodes[p].children, id)
		} else {
			s.roots = append(s.roots, id)
		}
		if spec.Bone {
			s.bones = append(s.bones, id)
		}
		s.nodes[newIdx] = n
	}
	return s, nil
}

// topologicalOrder returns spec indices ordered breadth-first from the roots so that every parent
// comes before its children. Roots and siblings keep their spec order.
//
// Parameters:
//   - specs: the validated node specs
//   - byName: node name to spec index
//
// Returns:
//   - []int: spec indices in arena order
//   - error: ErrCycle if some specs are unreachable from any root
func topologicalOrder(specs []NodeSpec, byName map[string]int) ([]int, error) {
	children := make(map[int][]int)
	queue := make([]int, 0, len(specs))
	for i, spec := range specs {
		if spec.Parent == "" {
			queue = append(queue, i)
			continue
		}
		p := byName[spec.Parent]
		children[p] = append(children[p], i)
	}

	sorted := make([]int, 0, len(specs))
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		sorted = append(sorted, idx)
		queue = append(queue, children[idx]...)
	}

	if len(sorted) < len(specs) {
		visited := make(map[int]bool, len(sorted))
		for _, idx := range sorted {
			visited[idx] = true
		}
		for i, spec := range specs {
			if !visited[i] {
				return nil, fmt.Errorf("%w: %q", ErrCycle, spec.Name)
			}
		}
	}
	return sorted, nil
}

func (s *skeleton) Init(parentWorld mgl32.Mat4) {
	s.compose(parentWorld)
	for i := range s.nodes {
		n := &s.nodes[i]
		if !n.bone {
			continue
		}
		n.invReference = n.world.Inv()
		n.boneMatrix = n.world.Mul4(n.invReference)
	}
}

func (s *skeleton) Recompute(parentWorld mgl32.Mat4) {
	s.compose(parentWorld)
	for i := range s.nodes {
		n := &s.nodes[i]
		if n.bone {
			n.boneMatrix = n.world.Mul4(n.invReference)
		}
		if n.kind == KindMesh && n.mesh.Surface != nil {
			n.mesh.Surface.UpdateSurface(n.world)
		}
	}
}

// compose recomputes every world matrix in a single arena pass. Parents precede children in the
// arena, so a parent's world matrix is always fresh when its children read it.
func (s *skeleton) compose(parentWorld mgl32.Mat4) {
	for i := range s.nodes {
		n := &s.nodes[i]
		base := parentWorld
		if n.parent != NoNode {
			base = s.nodes[n.parent].world
		}
		n.world = base.Mul4(n.local.Matrix())
	}
}

func (s *skeleton) FindIntersection(ray common.Ray) (Intersection, bool) {
	var best Intersection
	found := false
	for _, r := range s.roots {
		if hit, ok := s.intersectNode(r, ray); ok && (!found || hit.Distance < best.Distance) {
			best, found = hit, true
		}
	}
	return best, found
}

// intersectNode tests a node's own geometry and then recurses into its children.
func (s *skeleton) intersectNode(id NodeID, ray common.Ray) (Intersection, bool) {
	n := &s.nodes[id]
	var best Intersection
	found := false
	if n.kind == KindMesh {
		sphere := common.TransformSphere(n.world, n.mesh.Bounds)
		if d, ok := ray.IntersectSphere(sphere); ok {
			best = Intersection{Node: id, Distance: d, Point: ray.At(d)}
			found = true
		}
	}
	for _, c := range n.children {
		if hit, ok := s.intersectNode(c, ray); ok && (!found || hit.Distance < best.Distance) {
			best, found = hit, true
		}
	}
	return best, found
}

func (s *skeleton) NodeCount() int {
	return len(s.nodes)
}

func (s *skeleton) Find(name string) (NodeID, bool) {
	id, ok := s.nameToIndex[name]
	if !ok {
		return NoNode, false
	}
	return id, true
}

func (s *skeleton) Name(id NodeID) string {
	return s.nodes[id].name
}

func (s *skeleton) IsBone(id NodeID) bool {
	return s.nodes[id].bone
}

func (s *skeleton) Kind(id NodeID) NodeKind {
	return s.nodes[id].kind
}

func (s *skeleton) Mesh(id NodeID) *Mesh {
	return s.nodes[id].mesh
}

func (s *skeleton) Parent(id NodeID) NodeID {
	return s.nodes[id].parent
}

func (s *skeleton) Children(id NodeID) []NodeID {
	out := make([]NodeID, len(s.nodes[id].children))
	copy(out, s.nodes[id].children)
	return out
}

func (s *skeleton) Roots() []NodeID {
	out := make([]NodeID, len(s.roots))
	copy(out, s.roots)
	return out
}

func (s *skeleton) LocalTransform(id NodeID) common.Transform {
	return s.nodes[id].local
}

func (s *skeleton) SetLocalTransform(id NodeID, t common.Transform) {
	s.nodes[id].local = t
}

func (s *skeleton) WorldTransform(id NodeID) mgl32.Mat4 {
	return s.nodes[id].world
}

func (s *skeleton) BoneTransform(id NodeID) (mgl32.Mat4, bool) {
	n := &s.nodes[id]
	if !n.bone {
		return mgl32.Ident4(), false
	}
	return n.boneMatrix, true
}

func (s *skeleton) Bones() []NodeID {
	out := make([]NodeID, len(s.bones))
	copy(out, s.bones)
	return out
}

func (s *skeleton) BoneTransforms(dst []mgl32.Mat4) []mgl32.Mat4 {
	for _, id := range s.bones {
		dst = append(dst, s.nodes[id].boneMatrix)
	}
	return dst
}

func (s *skeleton) BlendState(id NodeID) (uint64, float32) {
	n := &s.nodes[id]
	return n.stamp, n.weight
}

func (s *skeleton) SetBlendState(id NodeID, stamp uint64, weight float32) {
	n := &s.nodes[id]
	n.stamp = stamp
	n.weight = weight
}

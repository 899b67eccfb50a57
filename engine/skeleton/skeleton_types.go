package skeleton

import (
	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/go-gl/mathgl/mgl32"
)

// NodeID identifies a node within a Skeleton. It is the node's index in the skeleton's arena,
// and parents always have a lower NodeID than their children.
type NodeID int

// NoNode is the NodeID used for unresolved lookups and for the parent of root nodes.
const NoNode NodeID = -1

// NodeKind tags the variant of a skeleton node.
type NodeKind int

const (
	// KindPlain is a node carrying only a transform.
	KindPlain NodeKind = iota

	// KindMesh is a node carrying a Mesh payload in addition to its transform.
	KindMesh
)

// String returns a readable name for the node kind.
func (k NodeKind) String() string {
	switch k {
	case KindMesh:
		return "mesh"
	default:
		return "plain"
	}
}

// SurfaceUpdater receives a mesh node's fresh world matrix once per render frame.
type SurfaceUpdater interface {
	// UpdateSurface is called from Recompute after the node's world matrix is recomposed.
	//
	// Parameters:
	//   - world: the node's world matrix for this frame
	UpdateSurface(world mgl32.Mat4)
}

// Mesh is the payload of a KindMesh node.
type Mesh struct {
	// Name is the mesh identifier.
	Name string

	// Bounds is the node-local bounding sphere used by FindIntersection.
	Bounds common.Sphere

	// Surface is an optional per-frame surface hook.
	Surface SurfaceUpdater
}

// NodeSpec describes a node to be created by NewSkeleton.
type NodeSpec struct {
	// Name is the unique node name used for clip target resolution.
	Name string

	// Parent is the name of the parent node, or empty for a root node.
	Parent string

	// Bone marks the node as a skinning influence that carries a bone transform.
	Bone bool

	// Local is the node's initial (reference pose) local transform.
	Local common.Transform

	// Mesh, when non-nil, makes the node a KindMesh node.
	Mesh *Mesh
}

// Intersection is the result of a successful FindIntersection.
type Intersection struct {
	// Node is the node whose geometry was hit.
	Node NodeID

	// Distance is the distance along the ray to the hit.
	Distance float32

	// Point is the world-space hit point.
	Point mgl32.Vec3
}

// node is one arena slot of a skeleton.
type node struct {
	name     string
	bone     bool
	kind     NodeKind
	mesh     *Mesh
	parent   NodeID
	children []NodeID

	local        common.Transform
	world        mgl32.Mat4
	boneMatrix   mgl32.Mat4
	invReference mgl32.Mat4

	// blend scratch, valid only when stamp matches the current tick
	stamp  uint64
	weight float32
}

package skeleton

import (
	"github.com/Carmen-Shannon/oxy-pose/common"
)

// SkeletonBuilderOption is a functional option for configuring a Skeleton via NewSkeleton.
type SkeletonBuilderOption func(*skeletonBuild)

// skeletonBuild collects node specs before they are validated and sorted into the arena.
type skeletonBuild struct {
	specs []NodeSpec
}

// WithNodes is an option builder that adds node specs to the Skeleton.
// Specs may appear in any order; children keep their relative order under each parent.
//
// Parameters:
//   - specs: the node specs to add
//
// Returns:
//   - SkeletonBuilderOption: a function that applies the nodes option to a skeleton
func WithNodes(specs ...NodeSpec) SkeletonBuilderOption {
	return func(b *skeletonBuild) {
		b.specs = append(b.specs, specs...)
	}
}

// WithNode is an option builder that adds a single node spec to the Skeleton.
//
// Parameters:
//   - name: the unique node name
//   - parent: the parent node name, or empty for a root
//   - bone: true if the node is a skinning bone
//   - local: the node's reference local transform
//
// Returns:
//   - SkeletonBuilderOption: a function that applies the node option to a skeleton
func WithNode(name, parent string, bone bool, local common.Transform) SkeletonBuilderOption {
	return WithNodes(NodeSpec{Name: name, Parent: parent, Bone: bone, Local: local})
}

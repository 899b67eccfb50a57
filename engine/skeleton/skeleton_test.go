package skeleton

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(x, y, z float32) common.Transform {
	t := common.IdentityTransform()
	t.Translation = mgl32.Vec3{x, y, z}
	return t
}

type surfaceRecorder struct {
	calls int
	last  mgl32.Mat4
}

func (r *surfaceRecorder) UpdateSurface(world mgl32.Mat4) {
	r.calls++
	r.last = world
}

func newArm(t *testing.T, surface SurfaceUpdater) Skeleton {
	t.Helper()
	// declared child-first to exercise the topological sort
	s, err := NewSkeleton(WithNodes(
		NodeSpec{Name: "hand", Parent: "forearm", Local: at(0, 1, 0), Mesh: &Mesh{Name: "hand", Bounds: common.Sphere{Radius: 0.5}, Surface: surface}},
		NodeSpec{Name: "forearm", Parent: "upper", Bone: true, Local: at(0, 2, 0)},
		NodeSpec{Name: "upper", Parent: "root", Bone: true, Local: at(0, 1, 0)},
		NodeSpec{Name: "root", Local: common.IdentityTransform()},
		NodeSpec{Name: "tail", Parent: "root", Local: at(0, -1, 0)},
	))
	require.NoError(t, err)
	return s
}

func TestNewSkeletonOrdersParentsFirst(t *testing.T) {
	s := newArm(t, nil)

	require.Equal(t, 5, s.NodeCount())
	for id := NodeID(0); int(id) < s.NodeCount(); id++ {
		if p := s.Parent(id); p != NoNode {
			assert.Less(t, int(p), int(id), "parent of %s must precede it", s.Name(id))
		}
	}

	root, ok := s.Find("root")
	require.True(t, ok)
	assert.Equal(t, []NodeID{root}, s.Roots())

	upper, _ := s.Find("upper")
	tail, _ := s.Find("tail")
	assert.Equal(t, []NodeID{upper, tail}, s.Children(root), "siblings keep declaration order")

	hand, _ := s.Find("hand")
	assert.Equal(t, KindMesh, s.Kind(hand))
	assert.Equal(t, KindPlain, s.Kind(root))
	assert.Equal(t, "hand", s.Mesh(hand).Name)
	assert.Nil(t, s.Mesh(root))
	assert.Equal(t, "mesh", KindMesh.String())

	forearm, _ := s.Find("forearm")
	assert.Equal(t, []NodeID{upper, forearm}, s.Bones())
	assert.True(t, s.IsBone(upper))
	assert.False(t, s.IsBone(hand))

	_, ok = s.Find("missing")
	assert.False(t, ok)
}

func TestNewSkeletonErrors(t *testing.T) {
	tests := []struct {
		name    string
		specs   []NodeSpec
		wantErr error
	}{
		{
			name:    "empty name",
			specs:   []NodeSpec{{Name: ""}},
			wantErr: ErrEmptyName,
		},
		{
			name:    "duplicate",
			specs:   []NodeSpec{{Name: "a"}, {Name: "a"}},
			wantErr: ErrDuplicateNode,
		},
		{
			name:    "unknown parent",
			specs:   []NodeSpec{{Name: "a", Parent: "ghost"}},
			wantErr: ErrUnknownParent,
		},
		{
			name:    "cycle",
			specs:   []NodeSpec{{Name: "root"}, {Name: "a", Parent: "b"}, {Name: "b", Parent: "a"}},
			wantErr: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSkeleton(WithNodes(tt.specs...))
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInitCapturesReferencePose(t *testing.T) {
	s := newArm(t, nil)
	s.Init(mgl32.Translate3D(10, 0, 0))

	hand, _ := s.Find("hand")
	pos := s.WorldTransform(hand).Col(3).Vec3()
	assert.True(t, pos.ApproxEqualThreshold(mgl32.Vec3{10, 4, 0}, 1e-5), "got %v", pos)

	for _, id := range s.Bones() {
		m, ok := s.BoneTransform(id)
		require.True(t, ok)
		assert.True(t, m.ApproxEqualThreshold(mgl32.Ident4(), 1e-5), "bone %s at rest must be identity", s.Name(id))
	}

	m, ok := s.BoneTransform(hand)
	assert.False(t, ok)
	assert.Equal(t, mgl32.Ident4(), m)
	assert.Len(t, s.BoneTransforms(nil), 2)
}

func TestRecomputeFollowsLocalTransforms(t *testing.T) {
	rec := &surfaceRecorder{}
	s := newArm(t, rec)
	s.Init(mgl32.Ident4())

	upper, _ := s.Find("upper")
	moved := s.LocalTransform(upper)
	moved.Translation = mgl32.Vec3{3, 1, 0}
	s.SetLocalTransform(upper, moved)
	s.Recompute(mgl32.Ident4())

	forearm, _ := s.Find("forearm")
	pos := s.WorldTransform(forearm).Col(3).Vec3()
	assert.True(t, pos.ApproxEqualThreshold(mgl32.Vec3{3, 3, 0}, 1e-5), "got %v", pos)

	// the bone matrix carries the rest pose to the current pose: a +3 x offset
	m, _ := s.BoneTransform(forearm)
	p := m.Mul4x1(mgl32.Vec4{0, 3, 0, 1}).Vec3()
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{3, 3, 0}, 1e-5), "got %v", p)

	hand, _ := s.Find("hand")
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, s.WorldTransform(hand), rec.last)
}

func TestFindIntersection(t *testing.T) {
	s := newArm(t, nil)
	s.Init(mgl32.Ident4())

	hit, ok := s.FindIntersection(common.NewRay(mgl32.Vec3{0, 4, -10}, mgl32.Vec3{0, 0, 1}))
	require.True(t, ok)
	hand, _ := s.Find("hand")
	assert.Equal(t, hand, hit.Node)
	assert.InDelta(t, 9.5, hit.Distance, 1e-4)
	assert.True(t, hit.Point.ApproxEqualThreshold(mgl32.Vec3{0, 4, -0.5}, 1e-4))

	_, ok = s.FindIntersection(common.NewRay(mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 0, 1}))
	assert.False(t, ok, "nodes without geometry are never hit")
}

func TestBlendState(t *testing.T) {
	s := newArm(t, nil)
	stamp, w := s.BlendState(0)
	assert.Zero(t, stamp)
	assert.Zero(t, w)

	s.SetBlendState(0, 7, 0.25)
	stamp, w = s.BlendState(0)
	assert.Equal(t, uint64(7), stamp)
	assert.Equal(t, float32(0.25), w)
}

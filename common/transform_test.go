package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLerpEndpoints(t *testing.T) {
	a := NewTransform([3]float32{1, 2, 3}, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1})
	b := NewTransform([3]float32{5, 6, 7}, [4]float32{0, 0, 1, 0}, [3]float32{2, 2, 2})

	assert.Equal(t, a, Lerp(a, b, 0))
	assert.Equal(t, a, Lerp(a, b, -0.5))
	assert.Equal(t, b, Lerp(a, b, 1))
	assert.Equal(t, b, Lerp(a, b, 1.5))
}

func TestLerpMidpoint(t *testing.T) {
	a := IdentityTransform()
	b := IdentityTransform()
	b.Translation = mgl32.Vec3{2, 4, 6}
	b.Scale = mgl32.Vec3{3, 3, 3}
	b.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})

	mid := Lerp(a, b, 0.5)

	assert.True(t, mid.Translation.ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, 1e-5))
	assert.True(t, mid.Scale.ApproxEqualThreshold(mgl32.Vec3{2, 2, 2}, 1e-5))
	want := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	assert.True(t, mid.Rotation.ApproxEqualThreshold(want, 1e-5), "got %v want %v", mid.Rotation, want)
}

func TestLerpTakesShortestPath(t *testing.T) {
	a := IdentityTransform()
	b := IdentityTransform()
	// -q describes the same 90 degree turn; interpolation must not go the long way round.
	b.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0}).Scale(-1)

	mid := Lerp(a, b, 0.5)

	want := IdentityTransform()
	want.Rotation = mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	assert.True(t, mid.ApproxEqual(want, 1e-5), "got %v", mid.Rotation)
}

func TestMatrixComposesTRS(t *testing.T) {
	tr := IdentityTransform()
	tr.Translation = mgl32.Vec3{1, 0, 0}
	tr.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	tr.Scale = mgl32.Vec3{2, 2, 2}

	// scale first, then rotate +x onto +y, then translate
	p := tr.Matrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1}).Vec3()
	assert.True(t, p.ApproxEqualThreshold(mgl32.Vec3{1, 2, 0}, 1e-5), "got %v", p)

	require.True(t, IdentityTransform().Matrix().ApproxEqual(mgl32.Ident4()))
}

func TestApproxEqualTreatsNegatedQuaternionAsEqual(t *testing.T) {
	a := IdentityTransform()
	a.Rotation = mgl32.QuatRotate(1, mgl32.Vec3{1, 0, 0})
	b := a
	b.Rotation = a.Rotation.Scale(-1)

	assert.True(t, a.ApproxEqual(b, 1e-6))

	b.Translation = mgl32.Vec3{0, 0, 1}
	assert.False(t, a.ApproxEqual(b, 1e-6))
}

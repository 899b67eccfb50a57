package camera

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-pose/common"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCenterRayLooksDownForward(t *testing.T) {
	c := NewCamera()

	ray := c.NDCRay(0, 0)
	assert.True(t, ray.Direction.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-3), "got %v", ray.Direction)
	assert.InDelta(t, 5-c.Near(), ray.Origin.Z(), 1e-2)
	assert.InDelta(t, 0, ray.Origin.X(), 1e-2)

	same := c.ScreenRay(320, 240, 640, 480)
	assert.True(t, same.Direction.ApproxEqualThreshold(ray.Direction, 1e-3))
}

func TestScreenRayCorners(t *testing.T) {
	c := NewCamera(WithAspect(2))

	topLeft := c.ScreenRay(0, 0, 200, 100)
	assert.Less(t, topLeft.Direction.X(), float32(0))
	assert.Greater(t, topLeft.Direction.Y(), float32(0))

	bottomRight := c.ScreenRay(200, 100, 200, 100)
	assert.Greater(t, bottomRight.Direction.X(), float32(0))
	assert.Less(t, bottomRight.Direction.Y(), float32(0))

	// wider aspect spreads horizontally more than vertically
	assert.Greater(t, -topLeft.Direction.X(), topLeft.Direction.Y())
}

func TestSettersRecomputeMatrices(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 0, 5}))
	before := c.ViewProjectionMatrix()

	c.SetPosition(mgl32.Vec3{10, 0, 0})
	assert.False(t, before.ApproxEqual(c.ViewProjectionMatrix()))

	ray := c.NDCRay(0, 0)
	assert.True(t, ray.Direction.ApproxEqualThreshold(mgl32.Vec3{-1, 0, 0}, 1e-3), "got %v", ray.Direction)

	c.SetClip(1, 50)
	assert.Equal(t, float32(1), c.Near())
	assert.Equal(t, float32(50), c.Far())
	assert.InDelta(t, 9, c.NDCRay(0, 0).Origin.X(), 1e-2)
}

func TestPickSphere(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{0, 2, 10}), WithTarget(mgl32.Vec3{0, 2, 0}))
	target := common.Sphere{Center: mgl32.Vec3{0, 2, 0}, Radius: 1}

	d, ok := c.ScreenRay(50, 50, 100, 100).IntersectSphere(target)
	require.True(t, ok)
	assert.InDelta(t, 9-c.Near(), d, 1e-2)

	_, ok = c.ScreenRay(0, 0, 100, 100).IntersectSphere(target)
	assert.False(t, ok)
}

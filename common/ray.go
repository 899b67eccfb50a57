package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray represents a half-line used for picking: Origin + t*Direction for t >= 0.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// Sphere represents a bounding sphere.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// NewRay creates a Ray with a normalized direction.
//
// Parameters:
//   - origin: the ray origin
//   - direction: the ray direction (need not be unit length)
//
// Returns:
//   - Ray: the ray with a unit-length direction
func NewRay(origin, direction mgl32.Vec3) Ray {
	if direction.Len() > 0 {
		direction = direction.Normalize()
	}
	return Ray{Origin: origin, Direction: direction}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// IntersectSphere tests the ray against a sphere using the geometric method.
// A ray starting inside the sphere hits at distance 0.
//
// Parameters:
//   - s: the sphere to test against
//
// Returns:
//   - float32: the distance along the ray to the nearest hit
//   - bool: true if the ray hits the sphere
func (r Ray) IntersectSphere(s Sphere) (float32, bool) {
	oc := s.Center.Sub(r.Origin)
	r2 := s.Radius * s.Radius
	if oc.Dot(oc) <= r2 {
		return 0, true
	}
	tca := oc.Dot(r.Direction)
	if tca < 0 {
		return 0, false
	}
	d2 := oc.Dot(oc) - tca*tca
	if d2 > r2 {
		return 0, false
	}
	thc := float32(math.Sqrt(float64(r2 - d2)))
	return tca - thc, true
}

// TransformSphere maps a local-space sphere through a world matrix. The radius is scaled by the
// largest axis scale of the matrix so the result stays conservative under non-uniform scale.
//
// Parameters:
//   - m: the local-to-world matrix
//   - s: the local-space sphere
//
// Returns:
//   - Sphere: the world-space sphere
func TransformSphere(m mgl32.Mat4, s Sphere) Sphere {
	c := m.Mul4x1(s.Center.Vec4(1)).Vec3()
	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	return Sphere{Center: c, Radius: s.Radius * max(sx, sy, sz)}
}

// Package common contains the math types shared by the skeleton, clip and animator packages. They are plain structs rather
// than interface-wrapped types so that they can be copied by value through the blend pass without allocation.
package common

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform represents a decomposed local transform used for keyframes and per-node poses.
type Transform struct {
	// Translation is the position offset relative to the parent.
	Translation mgl32.Vec3

	// Rotation is the orientation as a unit quaternion.
	Rotation mgl32.Quat

	// Scale is the scale factor along each axis.
	Scale mgl32.Vec3
}

// IdentityTransform returns a Transform with no translation, no rotation and unit scale.
//
// Returns:
//   - Transform: the identity transform
func IdentityTransform() Transform {
	return Transform{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// NewTransform builds a Transform from raw translation, rotation (x, y, z, w) and scale arrays,
// the layout used by clip files.
//
// Parameters:
//   - t: the translation as [3]float32
//   - r: the rotation quaternion as [4]float32 (x, y, z, w)
//   - s: the scale as [3]float32
//
// Returns:
//   - Transform: the assembled transform
func NewTransform(t [3]float32, r [4]float32, s [3]float32) Transform {
	return Transform{
		Translation: mgl32.Vec3(t),
		Rotation:    mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}},
		Scale:       mgl32.Vec3(s),
	}
}

// Matrix composes the transform into a 4x4 matrix in T * R * S order.
//
// Returns:
//   - mgl32.Mat4: the composed matrix
func (t Transform) Matrix() mgl32.Mat4 {
	m := mgl32.Translate3D(t.Translation.X(), t.Translation.Y(), t.Translation.Z())
	m = m.Mul4(t.Rotation.Normalize().Mat4())
	return m.Mul4(mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()))
}

// ApproxEqual reports whether two transforms match within the given per-component tolerance.
// Rotations q and -q are treated as equal.
//
// Parameters:
//   - other: the transform to compare against
//   - eps: the absolute tolerance per component
//
// Returns:
//   - bool: true if the transforms are equal within eps
func (t Transform) ApproxEqual(other Transform, eps float32) bool {
	if !t.Translation.ApproxEqualThreshold(other.Translation, eps) {
		return false
	}
	if !t.Scale.ApproxEqualThreshold(other.Scale, eps) {
		return false
	}
	if t.Rotation.ApproxEqualThreshold(other.Rotation, eps) {
		return true
	}
	return t.Rotation.Scale(-1).ApproxEqualThreshold(other.Rotation, eps)
}

// Lerp interpolates between two transforms. Translation and scale are interpolated linearly and
// rotation takes the shortest spherical path. The endpoints are returned exactly for t <= 0 and t >= 1.
//
// Parameters:
//   - a: the transform at t = 0
//   - b: the transform at t = 1
//   - t: the interpolation parameter
//
// Returns:
//   - Transform: the interpolated transform
func Lerp(a, b Transform, t float32) Transform {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	to := b.Rotation
	if a.Rotation.Dot(to) < 0 {
		to = to.Scale(-1)
	}
	return Transform{
		Translation: a.Translation.Add(b.Translation.Sub(a.Translation).Mul(t)),
		Rotation:    mgl32.QuatSlerp(a.Rotation, to, t),
		Scale:       a.Scale.Add(b.Scale.Sub(a.Scale).Mul(t)),
	}
}

// DecomposeMatrix splits an affine matrix without shear into a Transform.
// Scale is taken from the column lengths; a column shorter than 1e-4 is treated as unit length when
// extracting the rotation.
//
// Parameters:
//   - m: the matrix to decompose
//
// Returns:
//   - Transform: the translation, rotation and scale of m
func DecomposeMatrix(m mgl32.Mat4) Transform {
	x, y, z := m.Col(0).Vec3(), m.Col(1).Vec3(), m.Col(2).Vec3()
	scale := mgl32.Vec3{x.Len(), y.Len(), z.Len()}

	div := func(v mgl32.Vec3, l float32) mgl32.Vec3 {
		if l < 1e-4 {
			return v
		}
		return v.Mul(1 / l)
	}
	x, y, z = div(x, scale[0]), div(y, scale[1]), div(z, scale[2])
	rot := mgl32.Mat3FromCols(x, y, z)

	return Transform{
		Translation: m.Col(3).Vec3(),
		Rotation:    mgl32.Mat4ToQuat(rot.Mat4()).Normalize(),
		Scale:       scale,
	}
}

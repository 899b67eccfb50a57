package common

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestRayIntersectSphere(t *testing.T) {
	tests := []struct {
		name     string
		ray      Ray
		sphere   Sphere
		wantHit  bool
		wantDist float32
	}{
		{
			name:     "head on",
			ray:      NewRay(mgl32.Vec3{0, 0, -10}, mgl32.Vec3{0, 0, 5}),
			sphere:   Sphere{Radius: 1},
			wantHit:  true,
			wantDist: 9,
		},
		{
			name:   "miss to the side",
			ray:    NewRay(mgl32.Vec3{3, 0, -10}, mgl32.Vec3{0, 0, 1}),
			sphere: Sphere{Radius: 1},
		},
		{
			name:   "sphere behind origin",
			ray:    NewRay(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 1}),
			sphere: Sphere{Radius: 1},
		},
		{
			name:     "origin inside",
			ray:      NewRay(mgl32.Vec3{0, 0.5, 0}, mgl32.Vec3{1, 0, 0}),
			sphere:   Sphere{Radius: 1},
			wantHit:  true,
			wantDist: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, hit := tt.ray.IntersectSphere(tt.sphere)
			assert.Equal(t, tt.wantHit, hit)
			if tt.wantHit {
				assert.InDelta(t, tt.wantDist, dist, 1e-5)
			}
		})
	}
}

func TestTransformSphere(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(1, 4, 2))
	s := TransformSphere(m, Sphere{Center: mgl32.Vec3{0, 1, 0}, Radius: 0.5})

	assert.True(t, s.Center.ApproxEqualThreshold(mgl32.Vec3{1, 6, 3}, 1e-5), "got %v", s.Center)
	assert.InDelta(t, 2, s.Radius, 1e-5)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 30, Coalesce(0, 30, 60))
	assert.Equal(t, "walk", Coalesce("", "walk"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

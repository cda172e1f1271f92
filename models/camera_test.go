package models

import (
	"testing"

	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/geometry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestCameraImplementsCamera(t *testing.T) {
	var _ culling.Camera = NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, 0, 0, 0, 0)
}

func TestNewCamera(t *testing.T) {
	c := NewCamera(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 10}, 0, 0, 0, 0)

	require.Equal(t, float32(DefaultCameraFOV), c.fov)
	require.Equal(t, float32(DefaultCameraAspect), c.aspect)
	require.Equal(t, float32(DefaultCameraNear), c.near)
	require.Equal(t, float32(DefaultCameraFar), c.far)
	require.Equal(t, mgl32.Vec3{0, 0, 1}, c.Forward())
}

func TestCameraLookAt(t *testing.T) {
	t.Run("forward is normalized", func(t *testing.T) {
		c := NewCamera(mgl32.Vec3{}, mgl32.Vec3{1, 0, 0}, 60, 1, 0.1, 100)
		c.LookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 0, 0})
		require.True(t, geometry.VectorEqualWithEpsilon(mgl32.Vec3{1, 0, 0}, c.Forward(), 0.0001))
	})

	t.Run("target on the position", func(t *testing.T) {
		c := NewCamera(mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1}, 60, 1, 0.1, 100)
		require.Equal(t, mgl32.Vec3{0, 0, 1}, c.Forward())
		require.Equal(t, mgl32.Vec3{1, 1, 2}, c.Target())
	})
}

func TestCameraOrbit(t *testing.T) {
	c := NewCamera(mgl32.Vec3{}, mgl32.Vec3{0, 0, 1}, 60, 1, 0.1, 100)

	c.Orbit(mgl32.Vec3{0, 0, 0}, 10, 2, 0)
	require.True(t, geometry.VectorEqualWithEpsilon(mgl32.Vec3{0, 2, -10}, c.Position(), 0.0001))
	require.Equal(t, mgl32.Vec3{0, 0, 0}, c.Target())
	require.Greater(t, c.Forward().Z(), float32(0))
}

func TestCameraFrustumPlanes(t *testing.T) {
	c := NewCamera(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 0, 10}, 60, 1, 0.1, 100)
	frustum := c.FrustumPlanes()

	tests := []struct {
		name     string
		center   mgl32.Vec3
		expected bool
	}{
		{
			name:     "in front",
			center:   mgl32.Vec3{0, 0, 10},
			expected: true,
		},
		{
			name:     "behind",
			center:   mgl32.Vec3{0, 0, -10},
			expected: false,
		},
		{
			name:     "too far on the side",
			center:   mgl32.Vec3{50, 0, 10},
			expected: false,
		},
		{
			name:     "beyond the far plane",
			center:   mgl32.Vec3{0, 0, 200},
			expected: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := geometry.NewAABB(test.center, mgl32.Vec3{1, 1, 1})
			require.Equal(t, test.expected, frustum.TestAABB(b))
		})
	}
}

func TestCameraLookingStraightDown(t *testing.T) {
	c := NewCamera(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 0, 0}, 60, 1, 0.1, 100)
	frustum := c.FrustumPlanes()

	require.True(t, frustum.TestAABB(geometry.NewAABB(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1})))
	require.False(t, frustum.TestAABB(geometry.NewAABB(mgl32.Vec3{0, 20, 0}, mgl32.Vec3{1, 1, 1})))
}

package physics

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/geometry"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

var forward = mgl32.Vec3{0, 0, 1}

func box(center mgl32.Vec3, size mgl32.Vec3) geometry.AABB {
	return geometry.NewAABB(center, size)
}

func TestNewWorldResolution(t *testing.T) {
	require.Equal(t, uint32(DefaultGridResolution), NewWorld(0).DebugInfo().Resolution)

	// The resolution is the size of a cell in meters.
	w := NewWorld(2)
	_, err := w.AddCollider(Collider{Bounds: box(mgl32.Vec3{1, 0, 1}, mgl32.Vec3{4, 1, 4})})
	require.NoError(t, err)

	info := w.DebugInfo()
	require.Equal(t, uint32(2), info.Resolution)
	require.Equal(t, mgl32.Vec3{-2, 0, -2}, info.MinPoint)
	require.Equal(t, mgl32.Vec3{4, 0, 4}, info.MaxPoint)
	require.Equal(t, uint32(3), info.ColCount)
	require.Equal(t, uint32(3), info.RowCount)
}

func TestWorldAddCollider(t *testing.T) {
	w := NewWorld(0)

	a, err := w.AddCollider(Collider{OwnerID: 7, Bounds: box(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{1, 1, 1})})
	require.NoError(t, err)
	b, err := w.AddCollider(Collider{Bounds: box(mgl32.Vec3{0, 0, 9}, mgl32.Vec3{1, 1, 1})})
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.Equal(t, 2, w.ColliderCount())

	c, ok := w.Collider(a)
	require.True(t, ok)
	require.Equal(t, a, c.ID)
	require.Equal(t, uint32(7), c.OwnerID)

	_, err = w.AddCollider(Collider{Layer: culling.MaxLayers})
	require.Error(t, err)
	require.Equal(t, ErrTypeInvalidLayer, errors.Type(err))
}

func TestWorldRemoveCollider(t *testing.T) {
	w := NewWorld(1)

	id, err := w.AddCollider(Collider{Bounds: box(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{4, 4, 1})})
	require.NoError(t, err)
	require.Len(t, w.Raycast(mgl32.Vec3{}, forward, 10, culling.AllLayers, culling.TriggerIgnore, 4), 1)

	require.True(t, w.RemoveCollider(id))
	require.False(t, w.RemoveCollider(id))
	require.Zero(t, w.ColliderCount())
	require.Empty(t, w.Raycast(mgl32.Vec3{}, forward, 10, culling.AllLayers, culling.TriggerIgnore, 4))
}

func TestWorldMoveCollider(t *testing.T) {
	w := NewWorld(1)

	id, err := w.AddCollider(Collider{Bounds: box(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{1, 1, 1})})
	require.NoError(t, err)

	err = w.MoveCollider(id, mgl32.Vec3{20, 0, 20})
	require.NoError(t, err)
	require.Empty(t, w.Raycast(mgl32.Vec3{}, forward, 10, culling.AllLayers, culling.TriggerIgnore, 4))

	hits := w.Raycast(mgl32.Vec3{20, 0, 0}, forward, 30, culling.AllLayers, culling.TriggerIgnore, 4)
	require.Len(t, hits, 1)
	require.InDelta(t, 19.5, hits[0].Distance, 0.0001)

	err = w.MoveCollider(42, mgl32.Vec3{})
	require.Error(t, err)
	require.Equal(t, ErrTypeColliderNotFound, errors.Type(err))
}

func TestWorldColliderTooLarge(t *testing.T) {
	w := NewWorld(1)

	id, err := w.AddCollider(Collider{Bounds: box(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{1, 1, 1})})
	require.NoError(t, err)

	_, err = w.AddCollider(Collider{Bounds: box(mgl32.Vec3{1e30, 0, 1e30}, mgl32.Vec3{1, 1, 1})})
	require.Error(t, err)
	require.Equal(t, ErrTypeGridTooLarge, errors.Type(err))
	require.Equal(t, 1, w.ColliderCount())

	err = w.MoveCollider(id, mgl32.Vec3{1e30, 0, 1e30})
	require.Error(t, err)
	require.Equal(t, ErrTypeGridTooLarge, errors.Type(err))

	c, ok := w.Collider(id)
	require.True(t, ok)
	require.Equal(t, box(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{1, 1, 1}), c.Bounds)
	require.Len(t, w.Raycast(mgl32.Vec3{}, forward, 10, culling.AllLayers, culling.TriggerIgnore, 4), 1)
}

func TestWorldRaycast(t *testing.T) {
	w := NewWorld(2)

	far, _ := w.AddCollider(Collider{OwnerID: 2, Bounds: box(mgl32.Vec3{0, 0, 8}, mgl32.Vec3{1, 1, 1})})
	near, _ := w.AddCollider(Collider{OwnerID: 1, Bounds: box(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{4, 4, 1}), Layer: 3})
	trigger, _ := w.AddCollider(Collider{Bounds: box(mgl32.Vec3{0, 0, 2}, mgl32.Vec3{1, 1, 1}), IsTrigger: true})
	w.AddCollider(Collider{Bounds: box(mgl32.Vec3{10, 0, 5}, mgl32.Vec3{1, 1, 1})})

	t.Run("hits are sorted nearest first", func(t *testing.T) {
		hits := w.Raycast(mgl32.Vec3{}, forward, 20, culling.AllLayers, culling.TriggerIgnore, 0)
		require.Equal(t, []culling.Hit{
			{OwnerID: 1, ColliderID: near, Distance: 4.5},
			{OwnerID: 2, ColliderID: far, Distance: 7.5},
		}, hits)
	})

	t.Run("hits are capped", func(t *testing.T) {
		hits := w.Raycast(mgl32.Vec3{}, forward, 20, culling.AllLayers, culling.TriggerIgnore, 1)
		require.Len(t, hits, 1)
		require.Equal(t, near, hits[0].ColliderID)
	})

	t.Run("mask filters layers", func(t *testing.T) {
		hits := w.Raycast(mgl32.Vec3{}, forward, 20, culling.LayerMaskOf(0), culling.TriggerIgnore, 0)
		require.Len(t, hits, 1)
		require.Equal(t, far, hits[0].ColliderID)

		require.Empty(t, w.Raycast(mgl32.Vec3{}, forward, 20, 0, culling.TriggerIgnore, 0))
	})

	t.Run("triggers can be hit", func(t *testing.T) {
		hits := w.Raycast(mgl32.Vec3{}, forward, 20, culling.AllLayers, culling.TriggerCollide, 0)
		require.Len(t, hits, 3)
		require.Equal(t, trigger, hits[0].ColliderID)
	})

	t.Run("hits beyond max distance are ignored", func(t *testing.T) {
		require.Empty(t, w.Raycast(mgl32.Vec3{}, forward, 4, culling.AllLayers, culling.TriggerIgnore, 0))
	})

	t.Run("direction is normalized", func(t *testing.T) {
		hits := w.Raycast(mgl32.Vec3{}, mgl32.Vec3{0, 0, 10}, 5, culling.AllLayers, culling.TriggerIgnore, 0)
		require.Len(t, hits, 1)
		require.InDelta(t, 4.5, hits[0].Distance, 0.0001)
	})

	t.Run("origin inside a collider", func(t *testing.T) {
		hits := w.Raycast(mgl32.Vec3{0, 0, 5}, forward, 20, culling.AllLayers, culling.TriggerIgnore, 0)
		require.Len(t, hits, 1)
		require.Equal(t, far, hits[0].ColliderID)
	})

	t.Run("zero direction", func(t *testing.T) {
		require.Empty(t, w.Raycast(mgl32.Vec3{}, mgl32.Vec3{}, 20, culling.AllLayers, culling.TriggerIgnore, 0))
	})
}

func TestWorldImplementsPhysicsQuery(t *testing.T) {
	var _ culling.PhysicsQuery = NewWorld(1)
}

package spawn

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/geometry"
	"github.com/aukilabs/sightline/models"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) Handler {
	scene := models.NewScene("test", time.Second, nil)
	t.Cleanup(scene.Close)

	scheduler := culling.NewScheduler(nil, scene.Physics(), culling.DefaultConfig())
	scheduler.SetCamera(scene.Camera())

	return Handler{
		Scene:       scene,
		Scheduler:   scheduler,
		RequestChan: make(chan Request, 4),
	}
}

func TestHandlerSpawn(t *testing.T) {
	t.Run("renderer is registered hidden", func(t *testing.T) {
		h := newTestHandler(t)

		r, err := h.Spawn(models.RendererDescription{
			Name:   "crate",
			Center: mgl32.Vec3{0, 0, 5},
			Size:   mgl32.Vec3{1, 1, 1},
		})
		require.NoError(t, err)
		require.False(t, r.Enabled())

		o, ok := h.Scheduler.Set().Get(r.ID())
		require.True(t, ok)
		require.Equal(t, culling.RenderStateHidden, o.State())

		_, ran := h.Scheduler.Pass()
		require.True(t, ran)
		require.Equal(t, culling.RenderStateVisible, o.State())
		require.True(t, r.Enabled())
	})

	t.Run("always rendered renderer is left untouched", func(t *testing.T) {
		h := newTestHandler(t)

		r, err := h.Spawn(models.RendererDescription{
			Name:         "lamp",
			Size:         mgl32.Vec3{1, 1, 1},
			AlwaysRender: true,
		})
		require.NoError(t, err)
		require.True(t, r.Enabled())

		o, ok := h.Scheduler.Set().Get(r.ID())
		require.True(t, ok)
		require.True(t, o.Exempt())
	})

	t.Run("invalid renderer", func(t *testing.T) {
		h := newTestHandler(t)

		_, err := h.Spawn(models.RendererDescription{
			Name: "crate",
			Size: mgl32.Vec3{-1, 1, 1},
		})
		require.Error(t, err)
		require.Equal(t, models.ErrTypeSceneInvalid, errors.Type(err))
		require.Zero(t, h.Scheduler.Set().Len())
	})

	t.Run("renderer already registered", func(t *testing.T) {
		h := newTestHandler(t)

		// The scene gives id 1 to the next renderer.
		h.Scheduler.Register(models.NewRenderer(1, "ghost", geometry.AABB{}))

		_, err := h.Spawn(models.RendererDescription{Name: "crate"})
		require.Error(t, err)
		require.Equal(t, ErrTypeNotRegistered, errors.Type(err))
		require.Zero(t, h.Scene.RendererCount())
	})
}

func TestHandlerHandleRequests(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	h := newTestHandler(t)
	h.HandleRequests(ctx)

	t.Run("submit", func(t *testing.T) {
		r, err := h.Submit(ctx, models.RendererDescription{
			Name:   "crate",
			Center: mgl32.Vec3{0, 0, 5},
			Size:   mgl32.Vec3{1, 1, 1},
		})
		require.NoError(t, err)
		require.Equal(t, "crate", r.Name)

		_, ok := h.Scheduler.Set().Get(r.ID())
		require.True(t, ok)
	})

	t.Run("submit error", func(t *testing.T) {
		_, err := h.Submit(ctx, models.RendererDescription{
			Size: mgl32.Vec3{1, -1, 1},
		})
		require.Error(t, err)
	})

	t.Run("request without result", func(t *testing.T) {
		count := h.Scheduler.Set().Len()
		h.RequestChan <- Request{
			Renderer: models.RendererDescription{Name: "barrel"},
		}

		require.Eventually(t, func() bool {
			return h.Scheduler.Set().Len() == count+1
		}, time.Second, time.Millisecond*5)
	})
}

func TestHandlerSubmitCanceled(t *testing.T) {
	h := newTestHandler(t)
	h.RequestChan = make(chan Request)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Submit(ctx, models.RendererDescription{Name: "crate"})
	require.Error(t, err)
	require.Equal(t, ErrTypeCanceled, errors.Type(err))
}

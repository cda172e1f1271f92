package spawn

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/models"
)

const (
	ErrTypeNotRegistered = "renderer_not_registered"
	ErrTypeCanceled      = "spawn_canceled"
)

// Request asks for a renderer to be created at runtime.
type Request struct {
	Renderer models.RendererDescription

	// Receives the outcome of the request when not nil. It must be buffered.
	Result chan Result

	createdAt time.Time
}

type Result struct {
	Renderer *models.Renderer
	Err      error
}

// Handler creates the requested renderers in the scene and registers them to
// the culling scheduler. Requests are processed one at a time, in order.
type Handler struct {
	Scene       *models.Scene
	Scheduler   *culling.Scheduler
	RequestChan chan Request // buffered
}

// HandleRequests starts processing requests in a goroutine until ctx is done.
func (h Handler) HandleRequests(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case req := <-h.RequestChan:
				r, err := h.Spawn(req.Renderer)
				instrumentSpawn(req.createdAt, err)

				if err != nil {
					logs.Warn(errors.New("spawning renderer failed").
						WithTag("name", req.Renderer.Name).
						Wrap(err))
				}

				if req.Result != nil {
					req.Result <- Result{
						Renderer: r,
						Err:      err,
					}
				}
			}
		}
	}()
}

// Submit queues the creation of a renderer and waits for its outcome.
func (h Handler) Submit(ctx context.Context, desc models.RendererDescription) (*models.Renderer, error) {
	res := make(chan Result, 1)

	select {
	case <-ctx.Done():
		return nil, errors.New("queuing spawn request canceled").
			WithType(ErrTypeCanceled).
			Wrap(ctx.Err())

	case h.RequestChan <- Request{
		Renderer:  desc,
		Result:    res,
		createdAt: time.Now(),
	}:
	}

	select {
	case <-ctx.Done():
		return nil, errors.New("waiting for spawn result canceled").
			WithType(ErrTypeCanceled).
			Wrap(ctx.Err())

	case r := <-res:
		return r.Renderer, r.Err
	}
}

// Spawn creates a renderer in the scene and registers it to the scheduler. It
// is hidden until the next culling pass unless it always renders.
func (h Handler) Spawn(desc models.RendererDescription) (*models.Renderer, error) {
	r, err := h.Scene.AddRenderer(desc)
	if err != nil {
		return nil, err
	}

	if !h.Scheduler.Register(r) {
		h.Scene.DestroyRenderer(r.ID())

		return nil, errors.New("registering renderer failed").
			WithType(ErrTypeNotRegistered).
			WithTag("renderer_id", r.ID())
	}

	logs.WithTag("scene_id", h.Scene.SceneUUID).
		WithTag("renderer_id", r.ID()).
		WithTag("name", r.Name).
		Debug("renderer spawned")
	return r, nil
}

package http

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/models"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
)

const (
	renderersPath = "/renderers"

	maxRequestBodySize = 1 << 20
)

// RendererSpawner creates renderers at runtime.
type RendererSpawner interface {
	Submit(ctx context.Context, desc models.RendererDescription) (*models.Renderer, error)
}

// HandleVisibility returns the scene renderers with their current render
// state.
func HandleVisibility(scene *models.Scene, scheduler *culling.Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			MethodNotAllowed(w, http.MethodGet)
			return
		}

		WriteJSON(w, http.StatusOK, scene.Snapshot(scheduler.Set(), scheduler.Tick()))
	}
}

// HandleSpawnRenderer creates the renderer described in the request body.
func HandleSpawnRenderer(spawner RendererSpawner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			MethodNotAllowed(w, http.MethodPost)
			return
		}

		b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
		if err != nil {
			InternalServerError(w, errors.New("reading body failed").Wrap(err))
			return
		}

		var desc models.RendererDescription
		if err := json.Unmarshal(b, &desc); err != nil {
			BadRequest(w, errors.New("invalid renderer description").
				WithType(ErrTypeBadRequest).
				Wrap(err))
			return
		}

		renderer, err := spawner.Submit(r.Context(), desc)
		switch {
		case errors.IsType(err, models.ErrTypeSceneInvalid):
			BadRequest(w, err)
			return

		case err != nil:
			InternalServerError(w, errors.New("spawning renderer failed").Wrap(err))
			return
		}

		logs.WithTag("renderer_id", renderer.ID()).
			WithTag("name", renderer.Name).
			Info("renderer created")

		WriteJSON(w, http.StatusCreated, renderer.Info())
	}
}

// MoveRendererRequest is the body of a renderer move request.
type MoveRendererRequest struct {
	Center mgl32.Vec3 `json:"center"`
}

// HandleRenderer serves the renderer identified by the id path value. DELETE
// destroys it and PATCH moves it.
func HandleRenderer(scene *models.Scene) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			handleDestroyRenderer(scene, w, r)

		case http.MethodPatch:
			handleMoveRenderer(scene, w, r)

		default:
			MethodNotAllowed(w, http.MethodDelete, http.MethodPatch)
		}
	}
}

func handleDestroyRenderer(scene *models.Scene, w http.ResponseWriter, r *http.Request) {
	id, ok := rendererID(w, r)
	if !ok {
		return
	}

	if err := scene.DestroyRenderer(id); err != nil {
		writeRendererError(w, err)
		return
	}

	logs.WithTag("renderer_id", id).Info("renderer destroyed")
	w.WriteHeader(http.StatusNoContent)
}

func handleMoveRenderer(scene *models.Scene, w http.ResponseWriter, r *http.Request) {
	id, ok := rendererID(w, r)
	if !ok {
		return
	}

	b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		InternalServerError(w, errors.New("reading body failed").Wrap(err))
		return
	}

	var req MoveRendererRequest
	if err := json.Unmarshal(b, &req); err != nil {
		BadRequest(w, errors.New("invalid move request").
			WithType(ErrTypeBadRequest).
			Wrap(err))
		return
	}

	if err := scene.MoveRenderer(id, req.Center); err != nil {
		writeRendererError(w, err)
		return
	}

	renderer, ok := scene.RendererByID(id)
	if !ok {
		NotFound(w, errors.New("renderer not found").
			WithType(models.ErrTypeRendererNotFound).
			WithTag("renderer_id", id))
		return
	}

	logs.WithTag("renderer_id", id).
		WithTag("center", req.Center).
		Debug("renderer moved")

	WriteJSON(w, http.StatusOK, renderer.Info())
}

func rendererID(w http.ResponseWriter, r *http.Request) (uint32, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		BadRequest(w, errors.New("invalid renderer id").
			WithType(ErrTypeBadRequest).
			WithTag("id", r.PathValue("id")))
		return 0, false
	}
	return uint32(id), true
}

func writeRendererError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsType(err, models.ErrTypeRendererNotFound):
		NotFound(w, err)

	case errors.IsType(err, models.ErrTypeSceneInvalid):
		BadRequest(w, err)

	default:
		InternalServerError(w, err)
	}
}

// RegisterVisibilityRoutes registers the visibility and renderer routes on
// mux.
func RegisterVisibilityRoutes(mux *http.ServeMux, scene *models.Scene, scheduler *culling.Scheduler, spawner RendererSpawner) {
	mux.Handle("/visibility", HandleWithCORS(HandleVisibility(scene, scheduler)))
	mux.Handle(renderersPath, HandleWithCORS(HandleSpawnRenderer(spawner)))
	mux.Handle(renderersPath+"/{id}", HandleWithCORS(HandleRenderer(scene)))
}

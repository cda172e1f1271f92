package models

import (
	"sort"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/geometry"
	"github.com/aukilabs/sightline/physics"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	ErrTypeRendererNotFound = "renderer_not_found"
)

// Scene represents a scene that contains renderers, the physics world they
// are colliding in and the camera looking at them.
type Scene struct {
	SceneUUID string
	Name      string

	rendererIDs   SequentialIDGenerator
	rendererMutex sync.RWMutex
	renderers     map[uint32]*Renderer

	physics *physics.World
	camera  *Camera

	startFrameOnce  sync.Once
	closeFrameChan  chan struct{}
	frameTicker     *time.Ticker
	frameHandlerIDs SequentialIDGenerator
	frameHandlers   map[uint32]func(time.Duration)
	frameMutex      sync.RWMutex

	closeOnce sync.Once
}

// NewScene creates an empty scene dispatching frames every frameDuration. A
// nil world is replaced by an empty one.
func NewScene(name string, frameDuration time.Duration, world *physics.World) *Scene {
	if world == nil {
		world = physics.NewWorld(physics.DefaultGridResolution)
	}

	return &Scene{
		SceneUUID:      uuid.New().String(),
		Name:           name,
		renderers:      make(map[uint32]*Renderer),
		physics:        world,
		camera:         NewCamera(worldOrigin, worldForward, 0, 0, 0, 0),
		closeFrameChan: make(chan struct{}, 1),
		frameTicker:    time.NewTicker(frameDuration),
		frameHandlers:  make(map[uint32]func(time.Duration)),
	}
}

// NewSceneFromDescription creates a scene and populates it with the content
// of desc.
func NewSceneFromDescription(desc SceneDescription, frameDuration time.Duration, world *physics.World) (*Scene, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	s := NewScene(desc.Name, frameDuration, world)
	s.camera = NewCamera(
		desc.Camera.Position,
		desc.Camera.Target,
		desc.Camera.FOV,
		desc.Camera.Aspect,
		desc.Camera.Near,
		desc.Camera.Far,
	)

	for _, o := range desc.Occluders {
		if _, err := s.AddOccluder(o); err != nil {
			s.Close()
			return nil, err
		}
	}

	for _, r := range desc.Renderers {
		if _, err := s.AddRenderer(r); err != nil {
			s.Close()
			return nil, err
		}
	}

	logs.WithTag("scene_id", s.SceneUUID).
		WithTag("name", s.Name).
		WithTag("renderers", len(desc.Renderers)).
		WithTag("occluders", len(desc.Occluders)).
		Info("scene loaded")
	return s, nil
}

func (s *Scene) Close() {
	s.closeOnce.Do(func() {
		s.frameTicker.Stop()
		s.closeFrameChan <- struct{}{}
	})
}

func (s *Scene) Camera() *Camera {
	return s.camera
}

func (s *Scene) Physics() *physics.World {
	return s.physics
}

// AddRenderer creates a renderer and its collider when the description has
// one. Renderer ids are never reused. Renderers that do not always render are
// created disabled until they are classified.
func (s *Scene) AddRenderer(desc RendererDescription) (*Renderer, error) {
	if err := validateBox(desc.Center, desc.Size); err != nil {
		return nil, errors.New("invalid renderer").
			WithType(ErrTypeSceneInvalid).
			WithTag("name", desc.Name).
			Wrap(err)
	}

	bounds := geometry.NewAABB(desc.Center, desc.Size)
	r := NewRenderer(s.rendererIDs.New(), desc.Name, bounds)
	r.AlwaysRender = desc.AlwaysRender
	r.enabled = desc.AlwaysRender

	if desc.Collider != nil {
		colliderID, err := s.physics.AddCollider(physics.Collider{
			OwnerID:   r.ID(),
			Bounds:    bounds,
			Layer:     desc.Collider.Layer,
			IsTrigger: desc.Collider.IsTrigger,
		})
		if err != nil {
			return nil, errors.New("adding renderer collider failed").
				WithType(ErrTypeSceneInvalid).
				WithTag("name", desc.Name).
				Wrap(err)
		}
		r.ColliderID = colliderID
	}

	s.rendererMutex.Lock()
	s.renderers[r.ID()] = r
	count := len(s.renderers)
	s.rendererMutex.Unlock()

	instrumentRendererCount(count)
	instrumentAddRenderer()
	return r, nil
}

// AddOccluder adds a static collider that blocks the line of sight without
// being rendered.
func (s *Scene) AddOccluder(desc ColliderDescription) (uint32, error) {
	if err := validateBox(desc.Center, desc.Size); err != nil {
		return 0, errors.New("invalid occluder").
			WithType(ErrTypeSceneInvalid).
			Wrap(err)
	}

	id, err := s.physics.AddCollider(physics.Collider{
		Bounds:    geometry.NewAABB(desc.Center, desc.Size),
		Layer:     desc.Layer,
		IsTrigger: desc.IsTrigger,
	})
	if err != nil {
		return 0, errors.New("adding occluder failed").
			WithType(ErrTypeSceneInvalid).
			Wrap(err)
	}
	return id, nil
}

// DestroyRenderer destroys a renderer and removes its collider. The renderer
// stays referenced by anything that tracked it but is no longer valid.
func (s *Scene) DestroyRenderer(id uint32) error {
	s.rendererMutex.Lock()
	r, ok := s.renderers[id]
	if ok {
		delete(s.renderers, id)
	}
	count := len(s.renderers)
	s.rendererMutex.Unlock()

	if !ok {
		return errors.New("renderer not found").
			WithType(ErrTypeRendererNotFound).
			WithTag("renderer_id", id)
	}

	r.Destroy()
	if r.ColliderID != 0 {
		s.physics.RemoveCollider(r.ColliderID)
	}

	instrumentRendererCount(count)
	instrumentDestroyRenderer()
	return nil
}

// MoveRenderer centers a renderer and its collider on center. The culling
// scheduler classifies it at its new position on the next pass.
func (s *Scene) MoveRenderer(id uint32, center mgl32.Vec3) error {
	if err := validatePosition(center); err != nil {
		return errors.New("invalid renderer position").
			WithType(ErrTypeSceneInvalid).
			WithTag("renderer_id", id).
			Wrap(err)
	}

	r, ok := s.RendererByID(id)
	if !ok {
		return errors.New("renderer not found").
			WithType(ErrTypeRendererNotFound).
			WithTag("renderer_id", id)
	}

	if r.ColliderID != 0 {
		if err := s.physics.MoveCollider(r.ColliderID, center); err != nil {
			errType := ErrTypeSceneInvalid
			if errors.IsType(err, physics.ErrTypeColliderNotFound) {
				errType = ErrTypeRendererNotFound
			}

			return errors.New("moving renderer collider failed").
				WithType(errType).
				WithTag("renderer_id", id).
				Wrap(err)
		}
	}

	r.SetBounds(r.WorldBounds().Translate(center))

	instrumentMoveRenderer()
	return nil
}

func (s *Scene) RendererByID(id uint32) (*Renderer, bool) {
	s.rendererMutex.RLock()
	defer s.rendererMutex.RUnlock()

	r, ok := s.renderers[id]
	return r, ok
}

// Renderers returns the renderers of the scene sorted by id.
func (s *Scene) Renderers() []*Renderer {
	s.rendererMutex.RLock()
	renderers := make([]*Renderer, 0, len(s.renderers))
	for _, r := range s.renderers {
		renderers = append(renderers, r)
	}
	s.rendererMutex.RUnlock()

	sort.Slice(renderers, func(i, j int) bool {
		return renderers[i].ID() < renderers[j].ID()
	})
	return renderers
}

// Drawables returns the renderers of the scene sorted by id.
func (s *Scene) Drawables() []culling.Drawable {
	renderers := s.Renderers()

	drawables := make([]culling.Drawable, len(renderers))
	for i, r := range renderers {
		drawables[i] = r
	}
	return drawables
}

func (s *Scene) RendererCount() int {
	s.rendererMutex.RLock()
	defer s.rendererMutex.RUnlock()

	return len(s.renderers)
}

// HandleFrame registers a function called on every frame with the time
// elapsed since the previous frame.
func (s *Scene) HandleFrame(h func(dt time.Duration)) (cancel func()) {
	s.frameMutex.Lock()
	defer s.frameMutex.Unlock()

	id := s.frameHandlerIDs.New()
	s.frameHandlers[id] = h

	return func() {
		s.frameMutex.Lock()
		defer s.frameMutex.Unlock()

		delete(s.frameHandlers, id)
	}
}

// StartDispatchFrames calls the frame handlers until the scene is closed. It
// blocks.
func (s *Scene) StartDispatchFrames() {
	s.startFrameOnce.Do(func() {
		last := time.Now()

		for {
			select {
			case <-s.closeFrameChan:
				return

			case now := <-s.frameTicker.C:
				dt := now.Sub(last)
				last = now

				s.frameMutex.RLock()
				for _, h := range s.frameHandlers {
					h(dt)
				}
				s.frameMutex.RUnlock()
			}
		}
	})
}

// SceneSnapshot is a point in time view of a scene and of the visibility of
// its renderers.
type SceneSnapshot struct {
	SceneUUID string         `json:"scene_id"`
	Name      string         `json:"name"`
	Tick      uint64         `json:"tick"`
	Camera    CameraInfo     `json:"camera"`
	Counts    map[string]int `json:"counts"`
	Renderers []RendererInfo `json:"renderers"`
}

// Snapshot returns the scene renderers with the render state set tracks for
// them. Renderers unknown to set are reported as unclassified.
func (s *Scene) Snapshot(set *culling.VisibilitySet, tick uint64) SceneSnapshot {
	renderers := s.Renderers()

	snapshot := SceneSnapshot{
		SceneUUID: s.SceneUUID,
		Name:      s.Name,
		Tick:      tick,
		Camera:    s.camera.Info(),
		Counts:    make(map[string]int),
		Renderers: make([]RendererInfo, len(renderers)),
	}

	for i, r := range renderers {
		info := r.Info()
		if set != nil {
			if o, ok := set.Get(r.ID()); ok {
				info.State = o.State()
			}
		}

		snapshot.Renderers[i] = info
		snapshot.Counts[info.State.String()]++
	}
	return snapshot
}

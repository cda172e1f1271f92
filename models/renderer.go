package models

import (
	"sync"

	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/geometry"
)

// Renderer is a drawable object of a scene. It implements culling.Drawable.
type Renderer struct {
	Name         string
	AlwaysRender bool

	// The id of the collider attached to the renderer in the scene physics
	// world. Zero when the renderer has no collider.
	ColliderID uint32

	id uint32

	mutex      sync.RWMutex
	bounds     geometry.AABB
	enabled    bool
	shadowMode culling.ShadowMode
	destroyed  bool
}

// NewRenderer creates an enabled renderer that casts shadows.
func NewRenderer(id uint32, name string, bounds geometry.AABB) *Renderer {
	return &Renderer{
		Name:       name,
		id:         id,
		bounds:     bounds,
		enabled:    true,
		shadowMode: culling.ShadowModeOn,
	}
}

func (r *Renderer) ID() uint32 {
	return r.id
}

func (r *Renderer) WorldBounds() geometry.AABB {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.bounds
}

func (r *Renderer) SetBounds(v geometry.AABB) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.bounds = v
}

func (r *Renderer) SetEnabled(v bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.enabled = v
}

func (r *Renderer) Enabled() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.enabled
}

func (r *Renderer) SetShadowMode(v culling.ShadowMode) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.shadowMode = v
}

func (r *Renderer) ShadowMode() culling.ShadowMode {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.shadowMode
}

func (r *Renderer) IsExempt() bool {
	return r.AlwaysRender
}

// IsValid reports whether the renderer exists and has not been destroyed.
func (r *Renderer) IsValid() bool {
	if r == nil {
		return false
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return !r.destroyed
}

// Destroy marks the renderer as destroyed. A destroyed renderer is no longer
// valid.
func (r *Renderer) Destroy() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.destroyed = true
}

// RendererInfo is a point in time description of a renderer.
type RendererInfo struct {
	ID           uint32              `json:"id"`
	Name         string              `json:"name"`
	Bounds       BoundsInfo          `json:"bounds"`
	AlwaysRender bool                `json:"always_render"`
	Enabled      bool                `json:"enabled"`
	ShadowMode   culling.ShadowMode  `json:"shadow_mode"`
	State        culling.RenderState `json:"state"`
}

type BoundsInfo struct {
	Center [3]float32 `json:"center"`
	Size   [3]float32 `json:"size"`
}

func (r *Renderer) Info() RendererInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return RendererInfo{
		ID:   r.id,
		Name: r.Name,
		Bounds: BoundsInfo{
			Center: r.bounds.Center(),
			Size:   r.bounds.Size(),
		},
		AlwaysRender: r.AlwaysRender,
		Enabled:      r.enabled,
		ShadowMode:   r.shadowMode,
	}
}

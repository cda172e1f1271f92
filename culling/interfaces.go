package culling

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sightline/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is the view the visibility pass is computed from.
type Camera interface {
	// Returns the clip planes of the current projection and view.
	FrustumPlanes() geometry.Frustum

	// Returns the world position.
	Position() mgl32.Vec3

	// Returns the unit view direction.
	Forward() mgl32.Vec3
}

// Drawable is a renderer owned by the host engine. The culling package keeps
// non-owning references to drawables and only flips their render flags.
type Drawable interface {
	// Returns a stable, non-zero identifier. Two drawables with the same ID
	// are the same object.
	ID() uint32

	// Returns the current world space bounds.
	WorldBounds() geometry.AABB

	// Enables or disables rendering.
	SetEnabled(bool)

	// Sets how the drawable contributes to shadow maps.
	SetShadowMode(ShadowMode)

	// Reports whether the drawable is tagged to always render.
	IsExempt() bool

	// Reports whether the underlying engine object still exists.
	IsValid() bool
}

// PhysicsQuery casts rays against the host physics scene.
type PhysicsQuery interface {
	// Casts a ray from origin along a unit direction up to maxDistance and
	// returns at most maxResults hits on the layers selected by mask.
	Raycast(origin mgl32.Vec3, direction mgl32.Vec3, maxDistance float32, mask LayerMask, triggers TriggerInteraction, maxResults int) []Hit
}

// Hit is a single raycast intersection.
type Hit struct {
	// The ID of the drawable owning the collider. Zero for static geometry
	// that has no drawable.
	OwnerID    uint32
	ColliderID uint32
	Distance   float32
}

// LayerMask is a bitset of physics layers.
type LayerMask uint32

const AllLayers LayerMask = ^LayerMask(0)

const MaxLayers = 32

// LayerMaskOf returns the mask selecting the given layers. Layers outside
// [0, MaxLayers) are ignored.
func LayerMaskOf(layers ...int) LayerMask {
	var m LayerMask
	for _, l := range layers {
		if l < 0 || l >= MaxLayers {
			continue
		}
		m |= 1 << uint(l)
	}
	return m
}

func (m LayerMask) Has(layer int) bool {
	if layer < 0 || layer >= MaxLayers {
		return false
	}
	return m&(1<<uint(layer)) != 0
}

type TriggerInteraction int

const (
	TriggerIgnore TriggerInteraction = iota
	TriggerCollide
)

type ShadowMode int

const (
	ShadowModeOff ShadowMode = iota
	ShadowModeOn
	ShadowModeShadowsOnly
)

func (m ShadowMode) String() string {
	switch m {
	case ShadowModeOff:
		return "off"
	case ShadowModeOn:
		return "on"
	case ShadowModeShadowsOnly:
		return "shadows_only"
	default:
		return "unknown"
	}
}

func (m ShadowMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *ShadowMode) UnmarshalText(b []byte) error {
	for v := ShadowModeOff; v <= ShadowModeShadowsOnly; v++ {
		if v.String() == string(b) {
			*m = v
			return nil
		}
	}

	return errors.New("unknown shadow mode").
		WithTag("value", string(b))
}

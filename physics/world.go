package physics

import (
	"sort"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultGridResolution = 4

	ErrTypeColliderNotFound = "collider_not_found"
	ErrTypeInvalidLayer     = "invalid_layer"
)

// Collider is a box shaped physics volume.
type Collider struct {
	ID uint32

	// The drawable the collider belongs to. Zero for static geometry.
	OwnerID uint32

	Bounds    geometry.AABB
	Layer     int
	IsTrigger bool
}

// World is a collection of colliders that can be raycasted. It is safe for
// concurrent use.
type World struct {
	mutex     sync.RWMutex
	nextID    uint32
	grid      *RegularGrid
	colliders map[uint32]*Collider
}

// NewWorld creates a world partitioned with cells of resolution meters.
func NewWorld(resolution uint) *World {
	if resolution == 0 {
		resolution = DefaultGridResolution
	}

	return &World{
		grid:      NewRegularGrid(1, 1, resolution),
		colliders: make(map[uint32]*Collider),
	}
}

// AddCollider adds a copy of c and returns its assigned id.
func (w *World) AddCollider(c Collider) (uint32, error) {
	if c.Layer < 0 || c.Layer >= culling.MaxLayers {
		return 0, errors.New("collider layer is out of range").
			WithType(ErrTypeInvalidLayer).
			WithTag("layer", c.Layer)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	collider := &c
	if err := w.grid.Insert(collider); err != nil {
		return 0, errors.New("inserting collider failed").Wrap(err)
	}

	w.nextID++
	c.ID = w.nextID
	w.colliders[c.ID] = collider

	instrumentColliderCount(len(w.colliders))
	return c.ID, nil
}

func (w *World) RemoveCollider(id uint32) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	c, ok := w.colliders[id]
	if !ok {
		return false
	}

	w.grid.Remove(c, c.Bounds)
	delete(w.colliders, id)

	instrumentColliderCount(len(w.colliders))
	return true
}

// MoveCollider moves the collider so that its bounds are centered on center.
// The collider stays in place when the grid cannot grow to fit the new bounds.
func (w *World) MoveCollider(id uint32, center mgl32.Vec3) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	c, ok := w.colliders[id]
	if !ok {
		return errors.New("collider not found").
			WithType(ErrTypeColliderNotFound).
			WithTag("collider_id", id)
	}

	bounds := c.Bounds.Translate(center)
	if err := w.grid.ExpandToFit(bounds); err != nil {
		return errors.New("moving collider failed").
			WithTag("collider_id", id).
			Wrap(err)
	}

	w.grid.Remove(c, c.Bounds)
	c.Bounds = bounds
	return w.grid.Insert(c)
}

func (w *World) Collider(id uint32) (Collider, bool) {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	c, ok := w.colliders[id]
	if !ok {
		return Collider{}, false
	}
	return *c, true
}

func (w *World) ColliderCount() int {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return len(w.colliders)
}

func (w *World) DebugInfo() GridDebugInfo {
	w.mutex.RLock()
	defer w.mutex.RUnlock()

	return w.grid.DebugInfo()
}

// Raycast returns the colliders crossed by the ray segment, nearest first.
// Colliders containing the origin are not hit. A maxResults lower than 1 does
// not limit the hits.
func (w *World) Raycast(origin mgl32.Vec3, direction mgl32.Vec3, maxDistance float32, mask culling.LayerMask, triggers culling.TriggerInteraction, maxResults int) []culling.Hit {
	ray := geometry.NewRay(origin, direction)
	if ray.Direction.Len() == 0 || maxDistance <= 0 {
		return nil
	}

	w.mutex.RLock()
	candidates := w.grid.Region(ray.Bounds(maxDistance))

	var hits []culling.Hit
	for _, c := range candidates {
		if !mask.Has(c.Layer) {
			continue
		}
		if c.IsTrigger && triggers == culling.TriggerIgnore {
			continue
		}

		hit, t := geometry.IntersectAABB(ray, c.Bounds)
		if !hit || t > maxDistance {
			continue
		}

		hits = append(hits, culling.Hit{
			OwnerID:    c.OwnerID,
			ColliderID: c.ID,
			Distance:   t,
		})
	}
	w.mutex.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].ColliderID < hits[j].ColliderID
		}
		return hits[i].Distance < hits[j].Distance
	})

	if maxResults > 0 && len(hits) > maxResults {
		hits = hits[:maxResults]
	}

	instrumentRaycast(len(candidates), len(hits))
	return hits
}

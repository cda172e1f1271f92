package culling

import (
	"sort"
	"sync"

	"github.com/aukilabs/sightline/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeDrawable struct {
	id     uint32
	exempt bool

	mutex      sync.Mutex
	bounds     geometry.AABB
	enabled    bool
	shadowMode ShadowMode
	destroyed  bool
	writes     int
}

func newFakeDrawable(id uint32, center mgl32.Vec3) *fakeDrawable {
	return &fakeDrawable{
		id:      id,
		bounds:  geometry.NewAABB(center, mgl32.Vec3{1, 1, 1}),
		enabled: true,
	}
}

func (d *fakeDrawable) ID() uint32 {
	return d.id
}

func (d *fakeDrawable) WorldBounds() geometry.AABB {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.bounds
}

func (d *fakeDrawable) SetEnabled(v bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.enabled = v
	d.writes++
}

func (d *fakeDrawable) SetShadowMode(m ShadowMode) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.shadowMode = m
	d.writes++
}

func (d *fakeDrawable) IsExempt() bool {
	return d.exempt
}

func (d *fakeDrawable) IsValid() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return !d.destroyed
}

func (d *fakeDrawable) Enabled() bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.enabled
}

func (d *fakeDrawable) ShadowMode() ShadowMode {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.shadowMode
}

func (d *fakeDrawable) Writes() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.writes
}

func (d *fakeDrawable) Destroy() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.destroyed = true
}

// fakeCamera looks from position toward target with a 60 degrees perspective.
type fakeCamera struct {
	position mgl32.Vec3
	target   mgl32.Vec3
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{
		position: mgl32.Vec3{0, 0, 0},
		target:   mgl32.Vec3{0, 0, 1},
	}
}

func (c *fakeCamera) FrustumPlanes() geometry.Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.1, 1000)
	view := mgl32.LookAtV(c.position, c.target, mgl32.Vec3{0, 1, 0})
	return geometry.FrustumFromMatrix(proj.Mul4(view))
}

func (c *fakeCamera) Position() mgl32.Vec3 {
	return c.position
}

func (c *fakeCamera) Forward() mgl32.Vec3 {
	return c.target.Sub(c.position).Normalize()
}

type fakeCollider struct {
	id      uint32
	ownerID uint32
	bounds  geometry.AABB
	layer   int
	trigger bool
}

type fakeRaycast struct {
	mask       LayerMask
	triggers   TriggerInteraction
	maxResults int
	distance   float32
}

// fakePhysics intersects rays with boxes. When scripted is set, it is returned
// as is instead.
type fakePhysics struct {
	mutex     sync.Mutex
	colliders []fakeCollider
	scripted  []Hit
	calls     []fakeRaycast
}

func (p *fakePhysics) Raycast(origin mgl32.Vec3, direction mgl32.Vec3, maxDistance float32, mask LayerMask, triggers TriggerInteraction, maxResults int) []Hit {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.calls = append(p.calls, fakeRaycast{
		mask:       mask,
		triggers:   triggers,
		maxResults: maxResults,
		distance:   maxDistance,
	})

	if p.scripted != nil {
		return p.scripted
	}

	ray := geometry.NewRay(origin, direction)
	var hits []Hit
	for _, c := range p.colliders {
		if !mask.Has(c.layer) || (c.trigger && triggers == TriggerIgnore) {
			continue
		}
		if hit, t := geometry.IntersectAABB(ray, c.bounds); hit && t <= maxDistance {
			hits = append(hits, Hit{OwnerID: c.ownerID, ColliderID: c.id, Distance: t})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > maxResults {
		hits = hits[:maxResults]
	}
	return hits
}

func (p *fakePhysics) Calls() []fakeRaycast {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return append([]fakeRaycast(nil), p.calls...)
}

package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

func Swap(a *float32, b *float32) {
	*a, *b = *b, *a
}

func EqualWithEpsilon(a float32, b float32, epsilon float64) bool {
	return math.Abs((float64)(a-b)) <= epsilon
}

func VectorEqualWithEpsilon(a mgl32.Vec3, b mgl32.Vec3, epsilon float64) bool {
	return EqualWithEpsilon(a[0], b[0], epsilon) &&
		EqualWithEpsilon(a[1], b[1], epsilon) &&
		EqualWithEpsilon(a[2], b[2], epsilon)
}

// AABB is a world space axis aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABB returns the box centered on center with the given full size.
func NewAABB(center mgl32.Vec3, size mgl32.Vec3) AABB {
	half := size.Mul(0.5)
	return AABB{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extents returns the half size of the box.
func (b AABB) Extents() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b AABB) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

func (b AABB) Overlaps(o AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Min[i] > o.Max[i] || b.Max[i] < o.Min[i] {
			return false
		}
	}
	return true
}

// Translate returns a copy of the box moved so that its center is at center.
func (b AABB) Translate(center mgl32.Vec3) AABB {
	return NewAABB(center, b.Size())
}

// Ray is a half line with a unit direction.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// NewRay returns a ray with a normalized direction. A zero direction stays
// zero.
func NewRay(origin mgl32.Vec3, direction mgl32.Vec3) Ray {
	if l := direction.Len(); l != 0 {
		direction = direction.Mul(1 / l)
	}
	return Ray{
		Origin:    origin,
		Direction: direction,
	}
}

func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Bounds returns the box enclosing the ray segment [0, length].
func (r Ray) Bounds(length float32) AABB {
	end := r.At(length)
	var b AABB
	for i := 0; i < 3; i++ {
		b.Min[i] = float32(math.Min(float64(r.Origin[i]), float64(end[i])))
		b.Max[i] = float32(math.Max(float64(r.Origin[i]), float64(end[i])))
	}
	return b
}

// IntersectAABB returns whether the ray enters the box and the distance along
// the ray where it does. Rays starting inside the box do not hit it.
func IntersectAABB(r Ray, b AABB) (bool, float32) {
	if b.Contains(r.Origin) {
		return false, -1
	}

	tMin := float32(math.Inf(-1))
	tMax := float32(math.Inf(1))

	for i := 0; i < 3; i++ {
		o := r.Origin[i]
		d := r.Direction[i]

		if d == 0 {
			if o < b.Min[i] || o > b.Max[i] {
				return false, -1
			}
			continue
		}

		t1 := (b.Min[i] - o) / d
		t2 := (b.Max[i] - o) / d
		if t1 > t2 {
			Swap(&t1, &t2)
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return false, -1
		}
	}

	if tMax < 0 || tMin < 0 {
		return false, -1
	}
	return true, tMin
}

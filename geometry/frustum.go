package geometry

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is the set of points p where Normal.Dot(p) + D == 0.
type Plane struct {
	Normal mgl32.Vec3
	D      float32
}

// DistanceToPoint returns the signed distance to p. Positive is on the normal
// side.
func (p Plane) DistanceToPoint(point mgl32.Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

func (p Plane) normalized() Plane {
	l := p.Normal.Len()
	if l == 0 {
		return p
	}
	return Plane{
		Normal: p.Normal.Mul(1 / l),
		D:      p.D / l,
	}
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// Frustum holds six planes with normals pointing inside.
type Frustum struct {
	Planes [6]Plane
}

// FrustumFromMatrix extracts the clip planes of a projection*view matrix
// (Gribb/Hartmann).
func FrustumFromMatrix(clip mgl32.Mat4) Frustum {
	// mgl32 matrices are column major: row i is clip[i], clip[4+i], clip[8+i], clip[12+i].
	row := func(i int) (mgl32.Vec3, float32) {
		return mgl32.Vec3{clip[i], clip[4+i], clip[8+i]}, clip[12+i]
	}

	r0, d0 := row(0)
	r1, d1 := row(1)
	r2, d2 := row(2)
	r3, d3 := row(3)

	var f Frustum
	f.Planes[FrustumLeft] = Plane{Normal: r3.Add(r0), D: d3 + d0}.normalized()
	f.Planes[FrustumRight] = Plane{Normal: r3.Sub(r0), D: d3 - d0}.normalized()
	f.Planes[FrustumBottom] = Plane{Normal: r3.Add(r1), D: d3 + d1}.normalized()
	f.Planes[FrustumTop] = Plane{Normal: r3.Sub(r1), D: d3 - d1}.normalized()
	f.Planes[FrustumNear] = Plane{Normal: r3.Add(r2), D: d3 + d2}.normalized()
	f.Planes[FrustumFar] = Plane{Normal: r3.Sub(r2), D: d3 - d2}.normalized()
	return f
}

// TestAABB reports whether the box is at least partially inside. A box is
// rejected only when it lies entirely behind one of the planes.
func (f Frustum) TestAABB(b AABB) bool {
	for _, p := range f.Planes {
		// positive vertex: the corner furthest along the plane normal.
		v := b.Max
		if p.Normal[0] < 0 {
			v[0] = b.Min[0]
		}
		if p.Normal[1] < 0 {
			v[1] = b.Min[1]
		}
		if p.Normal[2] < 0 {
			v[2] = b.Min[2]
		}

		if p.DistanceToPoint(v) < 0 {
			return false
		}
	}
	return true
}

func (f Frustum) ContainsPoint(point mgl32.Vec3) bool {
	for _, p := range f.Planes {
		if p.DistanceToPoint(point) < 0 {
			return false
		}
	}
	return true
}

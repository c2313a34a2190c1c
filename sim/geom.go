package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

/*

geometry shared by the partition, contact generation and render culling.

*/

// Plane is a signed half-space. Distance is positive on the side the
// normal points to.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

// planeThrough makes the plane with unit normal n passing through point.
func planeThrough(n, point mgl64.Vec3) Plane {
	return Plane{Normal: n, D: -n.Dot(point)}
}

// Distance is the signed distance from the plane to p.
func (pl Plane) Distance(p mgl64.Vec3) float64 {
	return pl.Normal.Dot(p) + pl.D
}

// Box is an axis aligned volume described by its center and half widths.
type Box struct {
	Center    mgl64.Vec3
	HalfWidth mgl64.Vec3
}

// axis unit vectors, indexed 0=X, 1=Y, 2=Z.
var axes = [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// bisector is the plane cutting the box in half along axis. The front
// side is toward +axis.
func (b Box) bisector(axis int) Plane {
	return planeThrough(axes[axis], b.Center)
}

// Split halves the box along axis, returning the +axis (front) and the
// -axis (back) halves.
func (b Box) Split(axis int) (front, back Box) {
	half := b.HalfWidth
	half[axis] *= 0.5
	offset := mgl64.Vec3{}
	offset[axis] = half[axis]
	front = Box{Center: b.Center.Add(offset), HalfWidth: half}
	back = Box{Center: b.Center.Sub(offset), HalfWidth: half}
	return
}

// Planes returns the six walls of the box with normals pointing inward,
// so a point inside the box has positive distance to all of them.
func (b Box) Planes() [6]Plane {
	var ps [6]Plane
	for a := 0; a < 3; a++ {
		lo := b.Center
		lo[a] -= b.HalfWidth[a]
		hi := b.Center
		hi[a] += b.HalfWidth[a]
		ps[2*a] = planeThrough(axes[a], lo)
		ps[2*a+1] = planeThrough(axes[a].Mul(-1), hi)
	}
	return ps
}

// Corners returns the 8 corners. Bit 0 of the index selects +X,
// bit 1 +Y and bit 2 +Z.
func (b Box) Corners() [8]mgl64.Vec3 {
	var cs [8]mgl64.Vec3
	for i := range cs {
		for a := 0; a < 3; a++ {
			sign := -1.0
			if i>>uint(a)&1 == 1 {
				sign = 1
			}
			cs[i][a] = b.Center[a] + sign*b.HalfWidth[a]
		}
	}
	return cs
}

// Contains reports whether p lies inside or on the box.
func (b Box) Contains(p mgl64.Vec3) bool {
	for a := 0; a < 3; a++ {
		if math.Abs(p[a]-b.Center[a]) > b.HalfWidth[a] {
			return false
		}
	}
	return true
}

// ProjectOnto is the component of v along the unit vector n.
func ProjectOnto(v, n mgl64.Vec3) mgl64.Vec3 {
	return n.Mul(v.Dot(n))
}

// ProjectAlong removes the component of v along the unit vector n,
// leaving the motion that slides along a surface with normal n.
func ProjectAlong(v, n mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(ProjectOnto(v, n))
}

// DirectionFromTo is the unit vector pointing from a to b. Coincident
// points give +Y so that a contact normal is always usable.
func DirectionFromTo(a, b mgl64.Vec3) mgl64.Vec3 {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 {
		return mgl64.Vec3{0, 1, 0}
	}
	return d.Mul(1 / l)
}

// Frustum is a view volume made of six inward facing planes.
type Frustum struct {
	Planes [6]Plane
}

// NewFrustum extracts the clip planes of a view-projection matrix
// (Gribb/Hartmann).
func NewFrustum(vp mgl64.Mat4) Frustum {
	r0, r1, r2, r3 := vp.Row(0), vp.Row(1), vp.Row(2), vp.Row(3)
	raw := [6]mgl64.Vec4{
		r3.Add(r0), r3.Sub(r0), // left, right
		r3.Add(r1), r3.Sub(r1), // bottom, top
		r3.Add(r2), r3.Sub(r2), // near, far
	}
	var f Frustum
	for i, p := range raw {
		n := p.Vec3()
		l := n.Len()
		if l == 0 {
			continue
		}
		f.Planes[i] = Plane{Normal: n.Mul(1 / l), D: p[3] / l}
	}
	return f
}

// IntersectsSphere reports whether any part of the sphere may be inside
// the frustum. Conservative near the frustum's edges.
func (f *Frustum) IntersectsSphere(center mgl64.Vec3, radius float64) bool {
	for _, p := range f.Planes {
		if p.Distance(center) < -radius {
			return false
		}
	}
	return true
}

// CameraFrame is the camera's position and orientation.
type CameraFrame struct {
	Origin mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3
}

// View is the world-to-camera matrix.
func (c *CameraFrame) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Origin, c.Target, c.Up)
}

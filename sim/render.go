package sim

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Renderer draws what the world hands it. The world only reads Frustum
// and Camera.
type Renderer interface {
	Frustum() *Frustum
	Camera() *CameraFrame
	RenderSphere(s RenderSphere, m SphereModel)
	EndRenderSpheres()
	RenderBox(b Box)
	RenderConnection(a, b mgl64.Vec3)
}

// RenderSphere is a sphere as it should appear on screen.
type RenderSphere struct {
	Ref    SphereRef
	Center mgl64.Vec3
	Radius float64
}

type visibleSphere struct {
	RenderSphere
	distSq float64
}

// Render hands every sphere to r, positioned dt seconds ahead of the
// simulation, followed by the room. With RenderByDistance set, spheres
// outside the frustum are dropped and the rest go near to far.
func (w *World) Render(r Renderer, dt float64) {
	n := w.spheres.Len()
	if !w.cfg.RenderByDistance {
		for i := 0; i < n; i++ {
			ref := SphereRef(i)
			r.RenderSphere(w.extrapolate(ref, dt), w.spheres.Model(ref))
		}
	} else {
		frustum := r.Frustum()
		eye := r.Camera().Origin
		visible := make([]visibleSphere, 0, n)
		for i := 0; i < n; i++ {
			rs := w.extrapolate(SphereRef(i), dt)
			if !frustum.IntersectsSphere(rs.Center, rs.Radius) {
				continue
			}
			d := rs.Center.Sub(eye)
			visible = append(visible, visibleSphere{RenderSphere: rs, distSq: d.Dot(d)})
		}
		sort.SliceStable(visible, func(i, j int) bool {
			return visible[i].distSq < visible[j].distSq
		})
		for _, v := range visible {
			r.RenderSphere(v.RenderSphere, w.spheres.Model(v.Ref))
		}
	}
	r.EndRenderSpheres()
	r.RenderBox(w.cfg.Room)
}

func (w *World) extrapolate(ref SphereRef, dt float64) RenderSphere {
	s := w.spheres.Get(ref)
	p := w.particles.Get(s.Particle)
	return RenderSphere{
		Ref:    ref,
		Center: p.Position.Add(p.Velocity.Mul(dt)),
		Radius: s.Radius,
	}
}

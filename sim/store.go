package sim

import (
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// ParticleRef indexes a Particle in a ParticleStore. Particles are never
// removed, so a ref stays valid for the lifetime of its World.
type ParticleRef int32

// WorldParticle is the immovable sentinel every wall contact pushes against.
const WorldParticle ParticleRef = 0

// Particle is rigid point state. InverseMass 0 means immovable.
type Particle struct {
	Position    mgl64.Vec3 // m
	Velocity    mgl64.Vec3 // m/s
	InverseMass float64    // 1/kg
}

func (p Particle) String() string {
	return fmt.Sprintf("p: [%.2f, %.2f, %.2f]\nv: [%.2f, %.2f, %.2f]\nw: %.4f\n",
		p.Position[0], p.Position[1], p.Position[2],
		p.Velocity[0], p.Velocity[1], p.Velocity[2],
		p.InverseMass)
}

// ParticleStore is an append-only table of particles.
type ParticleStore struct {
	particles []Particle
}

// Allocate appends a particle and returns its ref.
func (s *ParticleStore) Allocate(position, velocity mgl64.Vec3, inverseMass float64) ParticleRef {
	s.particles = append(s.particles, Particle{
		Position:    position,
		Velocity:    velocity,
		InverseMass: inverseMass,
	})
	return ParticleRef(len(s.particles) - 1)
}

// Get returns the particle for ref. The pointer is invalidated by the
// next Allocate.
func (s *ParticleStore) Get(ref ParticleRef) *Particle {
	return &s.particles[ref]
}

// Len is the number of particles, sentinel included.
func (s *ParticleStore) Len() int { return len(s.particles) }

// SphereRef indexes a sphere in a SphereStore.
type SphereRef int32

// SphereData is the collision shape of a sphere.
type SphereData struct {
	Particle ParticleRef
	Radius   float64 // m
}

// SphereModel carries render attributes. The simulation stores them and
// hands them back to the renderer; it never reads them.
type SphereModel struct {
	Color     color.RGBA
	Shininess float64
}

// SphereStore is an append-only table of spheres, parallel to their
// render models.
type SphereStore struct {
	spheres []SphereData
	models  []SphereModel
}

// Allocate appends a sphere and returns its ref.
func (s *SphereStore) Allocate(particle ParticleRef, radius float64, model SphereModel) SphereRef {
	s.spheres = append(s.spheres, SphereData{Particle: particle, Radius: radius})
	s.models = append(s.models, model)
	return SphereRef(len(s.spheres) - 1)
}

// Get returns the sphere for ref. The pointer is invalidated by the next
// Allocate.
func (s *SphereStore) Get(ref SphereRef) *SphereData {
	return &s.spheres[ref]
}

// Model returns the render attributes stored with ref.
func (s *SphereStore) Model(ref SphereRef) SphereModel {
	return s.models[ref]
}

// Len is the number of spheres.
func (s *SphereStore) Len() int { return len(s.spheres) }

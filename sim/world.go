// Package sim simulates dynamic spheres bouncing around inside a fixed
// rectangular room.
//
// A step generates wall and sphere-sphere contacts, resolves them with a
// sequential impulse solver and then integrates under constant gravity.
// Everything runs on the caller's goroutine; a host that renders while
// simulating must synchronize access itself.
package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// Config holds the fixed parameters of a World.
type Config struct {
	// Room is the volume spheres are confined to.
	Room Box
	// Gravity acceleration (m/s²).
	Gravity mgl64.Vec3
	// SolveIterations is the number of solver passes per step.
	SolveIterations int
	// CameraRadius is the size of the camera when tested against walls.
	CameraRadius float64
	// RenderByDistance enables frustum culling and near-to-far ordering
	// in Render.
	RenderByDistance bool
}

// DefaultConfig is a 20m cube with earth gravity.
func DefaultConfig() Config {
	return Config{
		Room:             Box{HalfWidth: mgl64.Vec3{10, 10, 10}},
		Gravity:          mgl64.Vec3{0, -9.81, 0},
		SolveIterations:  4,
		CameraRadius:     0.5,
		RenderByDistance: true,
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.SolveIterations < 0 {
		return errors.Errorf("solve iterations must not be negative, got %d", c.SolveIterations)
	}
	for a := 0; a < 3; a++ {
		if !(c.Room.HalfWidth[a] > 0) {
			return errors.Errorf("room half width must be positive on every axis, got %v", c.Room.HalfWidth)
		}
	}
	if c.CameraRadius < 0 {
		return errors.Errorf("camera radius must not be negative, got %v", c.CameraRadius)
	}
	return nil
}

// SphereInitialState describes a sphere to spawn.
type SphereInitialState struct {
	Position    mgl64.Vec3
	Velocity    mgl64.Vec3
	Radius      float64
	InverseMass float64
}

// StepStats describes the last Simulate call.
type StepStats struct {
	WallContacts   int
	PairContacts   int
	PartitionNodes int
	PartitionDepth int
}

// Contacts is the total number of contacts solved.
func (s StepStats) Contacts() int { return s.WallContacts + s.PairContacts }

// World owns every particle and sphere and steps them.
type World struct {
	cfg         Config
	initialized bool
	walls       [6]Plane
	particles   ParticleStore
	spheres     SphereStore
	gen         *contactGenerator
	stats       StepStats
}

// NewUninitialized returns a World that must be set up with Init.
func NewUninitialized(cfg Config) *World {
	return &World{cfg: cfg}
}

// New creates and initializes a World.
func New(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid world config")
	}
	w := &World{cfg: cfg}
	if !w.Init() {
		return nil, errors.New("world init failed")
	}
	return w, nil
}

// Init builds the room walls and the world sentinel particle. It returns
// false if the config is invalid or the world is already initialized.
func (w *World) Init() bool {
	if w.initialized || w.cfg.Validate() != nil {
		return false
	}
	w.walls = w.cfg.Room.Planes()
	w.gen = newContactGenerator()
	w.particles.Allocate(mgl64.Vec3{}, mgl64.Vec3{}, 0)
	w.initialized = true
	return true
}

// Simulate advances the world by dt seconds. It panics if the world was
// never initialized.
func (w *World) Simulate(dt float64) {
	w.mustBeInitialized("Simulate")
	contacts := w.generateContacts()
	solveContacts(contacts, &w.particles, dt, w.cfg.SolveIterations)
	integrate(&w.particles, w.cfg.Gravity, dt)
}

func (w *World) mustBeInitialized(op string) {
	if !w.initialized {
		panic("sim: " + op + " called on a World before Init")
	}
}

func (w *World) generateContacts() []Contact {
	w.stats = StepStats{}
	return w.gen.generate(&w.particles, &w.spheres, w.cfg.Room, &w.walls, &w.stats)
}

// SpawnSphere adds a sphere and returns its handle. It panics if the world
// was never initialized, since particle 0 belongs to the sentinel.
func (w *World) SpawnSphere(state SphereInitialState, model SphereModel) SphereRef {
	w.mustBeInitialized("SpawnSphere")
	p := w.particles.Allocate(state.Position, state.Velocity, state.InverseMass)
	return w.spheres.Allocate(p, state.Radius, model)
}

// NumSpheres is the number of spheres spawned so far.
func (w *World) NumSpheres() int { return w.spheres.Len() }

// Room is the box spheres are confined to.
func (w *World) Room() Box { return w.cfg.Room }

// Config returns the parameters the world was created with.
func (w *World) Config() Config { return w.cfg }

// Sphere returns the shape of s.
func (w *World) Sphere(s SphereRef) SphereData { return *w.spheres.Get(s) }

// Particle returns the state of the particle behind s.
func (w *World) Particle(s SphereRef) Particle {
	return *w.particles.Get(w.spheres.Get(s).Particle)
}

// Model returns the render attributes of s.
func (w *World) Model(s SphereRef) SphereModel { return w.spheres.Model(s) }

// Sentinel returns the immovable world particle.
func (w *World) Sentinel() Particle { return *w.particles.Get(WorldParticle) }

// LastStep describes the contacts found by the last Simulate.
func (w *World) LastStep() StepStats { return w.stats }

// CanMoveCamera checks a camera at position moving by step against the
// walls. If the move would push the camera into a wall, step is reduced
// to its sliding motion along that wall. Motion away from a wall is left
// alone. It does not change the world.
func (w *World) CanMoveCamera(position mgl64.Vec3, step *mgl64.Vec3) bool {
	next := position.Add(*step)
	best := -1
	bestDist := w.cfg.CameraRadius
	for i := range w.walls {
		if step.Dot(w.walls[i].Normal) >= 0 {
			continue // normals point into the room
		}
		if d := w.walls[i].Distance(next); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		*step = ProjectAlong(*step, w.walls[best].Normal)
	}
	return true
}

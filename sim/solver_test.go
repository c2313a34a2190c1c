package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSolveContacts_ImpulsesNeverNegative(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	w := newTestWorld(t, DefaultConfig())
	for i := 0; i < 200; i++ {
		pos := mgl64.Vec3{rnd.Float64()*19 - 9.5, rnd.Float64()*19 - 9.5, rnd.Float64()*19 - 9.5}
		vel := mgl64.Vec3{rnd.NormFloat64(), rnd.NormFloat64(), rnd.NormFloat64()}
		w.SpawnSphere(SphereInitialState{Position: pos, Velocity: vel, Radius: 0.5 + rnd.Float64(), InverseMass: 1 + rnd.Float64()}, SphereModel{})
	}

	contacts := w.generateContacts()
	if len(contacts) == 0 {
		t.Fatal("expected some contacts")
	}
	solveContacts(contacts, &w.particles, 1.0/60, 8)
	for i, c := range contacts {
		if c.AccumulatedImpulse < 0 {
			t.Errorf("contact %d: AccumulatedImpulse = %v, want >= 0", i, c.AccumulatedImpulse)
		}
	}
}

func TestSolveContact_SeparatingBodiesAreLeftAlone(t *testing.T) {
	var ps ParticleStore
	ps.Allocate(mgl64.Vec3{}, mgl64.Vec3{}, 0)
	x := ps.Allocate(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 2, 0}, 1)

	// touching, moving away from the floor
	contacts := []Contact{{Normal: mgl64.Vec3{0, 1, 0}, PenetrationDistance: 0, X: x, Y: WorldParticle}}
	solveContacts(contacts, &ps, 0.01, 4)

	if v := ps.Get(x).Velocity; !vec3AlmostEqual(v, mgl64.Vec3{0, 2, 0}, 1e-12) {
		t.Errorf("Velocity = %v, want unchanged [0 2 0]", v)
	}
	if contacts[0].AccumulatedImpulse != 0 {
		t.Errorf("AccumulatedImpulse = %v, want 0", contacts[0].AccumulatedImpulse)
	}
}

func TestSolveContact_PushesOutOfPenetration(t *testing.T) {
	var ps ParticleStore
	ps.Allocate(mgl64.Vec3{}, mgl64.Vec3{}, 0)
	x := ps.Allocate(mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{0, -3, 0}, 2)

	const dt = 0.1
	contacts := []Contact{{Normal: mgl64.Vec3{0, 1, 0}, PenetrationDistance: -0.5, X: x, Y: WorldParticle}}
	solveContacts(contacts, &ps, dt, 1)

	// approach removed, plus penetration/dt of separation
	want := mgl64.Vec3{0, 0.5 / dt, 0}
	if v := ps.Get(x).Velocity; !vec3AlmostEqual(v, want, 1e-9) {
		t.Errorf("Velocity = %v, want %v", v, want)
	}
	if !almostEqual(contacts[0].AccumulatedImpulse, (3+0.5/dt)/2, 1e-9) {
		t.Errorf("AccumulatedImpulse = %v, want %v", contacts[0].AccumulatedImpulse, (3+0.5/dt)/2)
	}
	if ps.Get(WorldParticle).Velocity != (mgl64.Vec3{}) {
		t.Errorf("world particle moved: %v", ps.Get(WorldParticle).Velocity)
	}
}

func TestSolveContact_ImmovablePairIsSkipped(t *testing.T) {
	var ps ParticleStore
	ps.Allocate(mgl64.Vec3{}, mgl64.Vec3{}, 0)
	x := ps.Allocate(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 0)

	contacts := []Contact{{Normal: mgl64.Vec3{1, 0, 0}, PenetrationDistance: -1, X: x, Y: WorldParticle}}
	solveContacts(contacts, &ps, 0.01, 3)

	c := contacts[0]
	if math.IsNaN(c.AccumulatedImpulse) || c.AccumulatedImpulse != 0 {
		t.Errorf("AccumulatedImpulse = %v, want 0", c.AccumulatedImpulse)
	}
	if v := ps.Get(x).Velocity; v != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("Velocity = %v, want unchanged", v)
	}
}

func TestSolveContacts_ZeroIterationsDoesNothing(t *testing.T) {
	var ps ParticleStore
	ps.Allocate(mgl64.Vec3{}, mgl64.Vec3{}, 0)
	x := ps.Allocate(mgl64.Vec3{}, mgl64.Vec3{0, -1, 0}, 1)

	contacts := []Contact{{Normal: mgl64.Vec3{0, 1, 0}, PenetrationDistance: -0.2, AccumulatedImpulse: 5, X: x, Y: WorldParticle}}
	solveContacts(contacts, &ps, 0.01, 0)

	if v := ps.Get(x).Velocity; v != (mgl64.Vec3{0, -1, 0}) {
		t.Errorf("Velocity = %v, want unchanged", v)
	}
	if contacts[0].AccumulatedImpulse != 0 {
		t.Errorf("AccumulatedImpulse = %v, want reset to 0", contacts[0].AccumulatedImpulse)
	}
}

// Two equal spheres approaching head on must never keep approaching once
// they touch.
func TestSolveContacts_HeadOn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	w := newTestWorld(t, cfg)
	a := w.SpawnSphere(SphereInitialState{Position: mgl64.Vec3{-1.5, 0, 0}, Velocity: mgl64.Vec3{1, 0, 0}, Radius: 1, InverseMass: 1}, SphereModel{})
	b := w.SpawnSphere(SphereInitialState{Position: mgl64.Vec3{1.5, 0, 0}, Velocity: mgl64.Vec3{-1, 0, 0}, Radius: 1, InverseMass: 1}, SphereModel{})

	const dt = 0.01
	touched := false
	for step := 0; step < 2000; step++ {
		contacts := w.generateContacts()
		solveContacts(contacts, &w.particles, dt, w.cfg.SolveIterations)
		for _, c := range contacts {
			if c.Y == WorldParticle {
				continue
			}
			touched = true
			x, y := w.particles.Get(c.X), w.particles.Get(c.Y)
			separating := x.Velocity.Sub(y.Velocity).Dot(c.Normal)
			if separating < -1e-9 {
				t.Fatalf("step %d: relative normal velocity = %v, want >= 0", step, separating)
			}
		}
		integrate(&w.particles, w.cfg.Gravity, dt)

		d := w.Particle(b).Position.Sub(w.Particle(a).Position).Len()
		if d < 2-2*dt-1e-9 {
			t.Fatalf("step %d: distance = %v, overlap is growing", step, d)
		}
	}
	if !touched {
		t.Fatal("spheres never touched")
	}
}

func TestIntegrate_FreeFall(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Room = Box{HalfWidth: mgl64.Vec3{100, 100, 100}}
	w := newTestWorld(t, cfg)
	s := spawn(w, mgl64.Vec3{0, 0, 0}, 1)

	const dt = 0.01
	const n = 100
	wantY := 0.0
	for k := 0; k < n; k++ {
		wantY += -9.81 * float64(k) * dt * dt // velocity before this step's gravity
		w.Simulate(dt)
	}

	p := w.Particle(s)
	if !almostEqual(p.Velocity[1], -9.81*n*dt, 1e-9) {
		t.Errorf("Velocity.y = %v, want %v", p.Velocity[1], -9.81*n*dt)
	}
	if !almostEqual(p.Position[1], wantY, 1e-9) {
		t.Errorf("Position.y = %v, want %v", p.Position[1], wantY)
	}
	if p.Velocity[0] != 0 || p.Velocity[2] != 0 || p.Position[0] != 0 || p.Position[2] != 0 {
		t.Errorf("sideways drift: p = %v, v = %v", p.Position, p.Velocity)
	}
}

func TestIntegrate_ImmovableIgnoresGravity(t *testing.T) {
	var ps ParticleStore
	r := ps.Allocate(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{1, 0, 0}, 0)
	integrate(&ps, mgl64.Vec3{0, -9.81, 0}, 0.5)

	p := ps.Get(r)
	if p.Velocity != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("Velocity = %v, want [1 0 0]", p.Velocity)
	}
	if !vec3AlmostEqual(p.Position, mgl64.Vec3{1.5, 2, 3}, 1e-12) {
		t.Errorf("Position = %v, want [1.5 2 3]", p.Position)
	}
}

package main

import (
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/quillaja/sphereroom/sim"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"", color.RGBA{255, 255, 255, 255}, false},
		{"#ff8800", color.RGBA{255, 136, 0, 255}, false},
		{"#000000", color.RGBA{0, 0, 0, 255}, false},
		{"ff8800", color.RGBA{}, true},
		{"#ff88", color.RGBA{}, true},
		{"#gg0000", color.RGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseColor(%q) error = %v, wantErr %t", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseColor(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

const testScenario = `
name: corner drop
room: [4, 3, 5]
gravity: [0, -1, 0]
iterations: 8
dt: 0.01
seconds: 2
random:
  count: 7
  radius: 0.3
spheres:
  - position: [0, 1, 0]
    radius: 1
    mass: .inf
    color: "#ff8800"
    shininess: 20
  - position: [1, 2, 1]
    velocity: [0, 0, 1]
    radius: 0.5
    mass: 4
`

func writeScenario(t *testing.T, text string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(name, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return name
}

func TestLoadScenario(t *testing.T) {
	sc, err := loadScenario(writeScenario(t, testScenario))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "corner drop" || sc.Iterations != 8 || sc.Dt != 0.01 || sc.Seconds != 2 {
		t.Errorf("scalars not loaded: %+v", sc)
	}
	if sc.Room != [3]float64{4, 3, 5} {
		t.Errorf("room = %v", sc.Room)
	}
	// unset fields keep their defaults
	if sc.CameraRadius != sim.DefaultConfig().CameraRadius {
		t.Errorf("camera radius = %v, want default", sc.CameraRadius)
	}
	if sc.Random.Count != 7 || sc.Random.Radius != 0.3 {
		t.Errorf("random = %+v", sc.Random)
	}
	if len(sc.Spheres) != 2 {
		t.Fatalf("got %d spheres, want 2", len(sc.Spheres))
	}

	wall := sc.Spheres[0].state()
	if wall.InverseMass != 0 {
		t.Errorf("infinite mass gave inverse mass %v", wall.InverseMass)
	}
	m := sc.Spheres[0].model()
	if m.Color != (color.RGBA{255, 136, 0, 255}) || m.Shininess != 20 {
		t.Errorf("model = %+v", m)
	}
	ball := sc.Spheres[1].state()
	if ball.InverseMass != 0.25 || ball.Velocity != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("state = %+v", ball)
	}

	cfg := sc.worldConfig()
	if cfg.Room.HalfWidth != (mgl64.Vec3{4, 3, 5}) || cfg.SolveIterations != 8 || cfg.Gravity != (mgl64.Vec3{0, -1, 0}) {
		t.Errorf("world config = %+v", cfg)
	}
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"bad yaml", "room: [1, 2"},
		{"zero dt", "dt: 0"},
		{"negative seconds", "seconds: -1"},
		{"negative count", "random: {count: -2}"},
		{"flat room", "room: [1, 0, 1]"},
		{"zero radius", "spheres: [{position: [0, 0, 0], radius: 0}]"},
		{"negative mass", "spheres: [{radius: 1, mass: -1}]"},
		{"bad color", "spheres: [{radius: 1, color: red}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadScenario(writeScenario(t, tt.text)); err == nil {
				t.Errorf("loaded %q without error", tt.text)
			}
		})
	}

	if _, err := loadScenario(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("loaded a missing file")
	}
}

func TestSphereSpec_DefaultMass(t *testing.T) {
	s := sphereSpec{Radius: 1}
	if got := s.state().InverseMass; got != 1 {
		t.Errorf("zero mass gave inverse mass %v, want 1", got)
	}
}

func TestMakespheres(t *testing.T) {
	sc := defaultScenario()
	sc.Room = [3]float64{3, 2, 3}
	w, err := sim.New(sc.worldConfig())
	if err != nil {
		t.Fatal(err)
	}
	spec := randomSpec{Count: 150, Radius: 0.3, RadiusStdDev: 0.2, Speed: 1}
	makespheres(w, rand.New(rand.NewSource(3)), spec)

	if w.NumSpheres() != spec.Count {
		t.Fatalf("spawned %d spheres, want %d", w.NumSpheres(), spec.Count)
	}
	room := w.Room()
	for i := 0; i < w.NumSpheres(); i++ {
		s := w.Sphere(sim.SphereRef(i))
		p := w.Particle(sim.SphereRef(i))
		if s.Radius < 0.05 {
			t.Errorf("sphere %d radius %v below minimum", i, s.Radius)
		}
		for a := 0; a < 3; a++ {
			lo := room.Center[a] - room.HalfWidth[a]
			hi := room.Center[a] + room.HalfWidth[a]
			if s.Radius <= room.HalfWidth[a] && (p.Position[a]-s.Radius < lo-1e-9 || p.Position[a]+s.Radius > hi+1e-9) {
				t.Errorf("sphere %d at %v r %v pokes out of the room", i, p.Position, s.Radius)
			}
		}
		want := 1 / (1000 * volume(s.Radius))
		if d := p.InverseMass - want; d > 1e-12 || d < -1e-12 {
			t.Errorf("sphere %d inverse mass %v, want %v", i, p.InverseMass, want)
		}
	}
}

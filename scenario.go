package main

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/quillaja/sphereroom/sim"
	"gopkg.in/yaml.v3"
)

/*

scenario files describe the room and the spheres to start with.

	name: corner drop
	room: [10, 6, 10]        # half widths
	gravity: [0, -9.81, 0]
	iterations: 4
	dt: 0.0166
	seconds: 20
	random:
	  count: 300
	  radius: 0.4
	  radius_stddev: 0.1
	  speed: 2
	spheres:
	  - position: [0, 5, 0]
	    velocity: [0, 0, 0]
	    radius: 1
	    mass: .inf           # immovable
	    color: "#ff8800"

*/

type scenario struct {
	Name         string       `yaml:"name"`
	Room         [3]float64   `yaml:"room"`
	Gravity      [3]float64   `yaml:"gravity"`
	Iterations   int          `yaml:"iterations"`
	Dt           float64      `yaml:"dt"`
	Seconds      float64      `yaml:"seconds"`
	CameraRadius float64      `yaml:"camera_radius"`
	Random       randomSpec   `yaml:"random"`
	Spheres      []sphereSpec `yaml:"spheres"`
}

// randomSpec asks for count spheres with normally distributed radii,
// uniformly placed in the room.
type randomSpec struct {
	Count        int     `yaml:"count"`
	Radius       float64 `yaml:"radius"`
	RadiusStdDev float64 `yaml:"radius_stddev"`
	Speed        float64 `yaml:"speed"`
	Density      float64 `yaml:"density"` // kg/m³, default 1000
}

type sphereSpec struct {
	Position  [3]float64 `yaml:"position"`
	Velocity  [3]float64 `yaml:"velocity"`
	Radius    float64    `yaml:"radius"`
	Mass      float64    `yaml:"mass"` // kg, 0 means 1, +inf is immovable
	Color     string     `yaml:"color"`
	Shininess float64    `yaml:"shininess"`
}

func defaultScenario() *scenario {
	cfg := sim.DefaultConfig()
	return &scenario{
		Name:         "default",
		Room:         cfg.Room.HalfWidth,
		Gravity:      cfg.Gravity,
		Iterations:   cfg.SolveIterations,
		Dt:           1.0 / 60,
		Seconds:      10,
		CameraRadius: cfg.CameraRadius,
		Random:       randomSpec{Count: 200, Radius: 0.4, RadiusStdDev: 0.1, Speed: 2},
	}
}

// loadScenario reads filename on top of the defaults.
func loadScenario(filename string) (*scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	sc := defaultScenario()
	if err := yaml.Unmarshal(data, sc); err != nil {
		return nil, errors.Wrapf(err, "parse scenario %s", filename)
	}
	if err := sc.validate(); err != nil {
		return nil, errors.Wrapf(err, "scenario %s", filename)
	}
	return sc, nil
}

func (sc *scenario) validate() error {
	if !(sc.Dt > 0) {
		return errors.Errorf("dt must be positive, got %v", sc.Dt)
	}
	if sc.Seconds < 0 {
		return errors.Errorf("seconds must not be negative, got %v", sc.Seconds)
	}
	if sc.Random.Count < 0 {
		return errors.Errorf("random count must not be negative, got %d", sc.Random.Count)
	}
	for i, s := range sc.Spheres {
		if !(s.Radius > 0) {
			return errors.Errorf("sphere %d: radius must be positive, got %v", i, s.Radius)
		}
		if s.Mass < 0 {
			return errors.Errorf("sphere %d: mass must not be negative, got %v", i, s.Mass)
		}
		if _, err := parseColor(s.Color); err != nil {
			return errors.Wrapf(err, "sphere %d", i)
		}
	}
	return sc.worldConfig().Validate()
}

func (sc *scenario) worldConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Room = sim.Box{HalfWidth: sc.Room}
	cfg.Gravity = sc.Gravity
	cfg.SolveIterations = sc.Iterations
	cfg.CameraRadius = sc.CameraRadius
	return cfg
}

func (s sphereSpec) state() sim.SphereInitialState {
	mass := s.Mass
	if mass == 0 {
		mass = 1
	}
	return sim.SphereInitialState{
		Position:    s.Position,
		Velocity:    s.Velocity,
		Radius:      s.Radius,
		InverseMass: inverse(mass),
	}
}

func (s sphereSpec) model() sim.SphereModel {
	c, _ := parseColor(s.Color)
	return sim.SphereModel{Color: c, Shininess: s.Shininess}
}

// inverse mass; infinite mass is immovable.
func inverse(mass float64) float64 {
	if math.IsInf(mass, 1) {
		return 0
	}
	return 1 / mass
}

// parseColor reads "#rrggbb". An empty string is white.
func parseColor(hex string) (color.RGBA, error) {
	if hex == "" {
		return color.RGBA{255, 255, 255, 255}, nil
	}
	var r, g, b uint8
	if len(hex) == 7 && hex[0] == '#' {
		if n, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err == nil && n == 3 {
			return color.RGBA{r, g, b, 255}, nil
		}
	}
	return color.RGBA{}, errors.Errorf("bad color %q, want #rrggbb", hex)
}

// palette for random spheres
var palette = []color.RGBA{
	{230, 57, 70, 255},
	{241, 250, 238, 255},
	{168, 218, 220, 255},
	{69, 123, 157, 255},
	{255, 183, 3, 255},
	{131, 56, 236, 255},
}

// makespheres spawns sc.Random.Count spheres at random places in the room.
// density gives the mass from the volume.
func makespheres(w *sim.World, rnd *rand.Rand, spec randomSpec) {
	density := spec.Density
	if density == 0 {
		density = 1000
	}
	room := w.Room()
	for i := 0; i < spec.Count; i++ {
		r := math.Max(0.05, rnd.NormFloat64()*spec.RadiusStdDev+spec.Radius)

		var pos mgl64.Vec3
		for a := 0; a < 3; a++ {
			free := math.Max(0, room.HalfWidth[a]-r)
			pos[a] = room.Center[a] + (rnd.Float64()*2-1)*free
		}
		vel := mgl64.Vec3{rnd.NormFloat64(), rnd.NormFloat64(), rnd.NormFloat64()}.Mul(spec.Speed)

		w.SpawnSphere(
			sim.SphereInitialState{
				Position:    pos,
				Velocity:    vel,
				Radius:      r,
				InverseMass: inverse(density * volume(r)),
			},
			sim.SphereModel{
				Color:     palette[rnd.Intn(len(palette))],
				Shininess: float64(rnd.Intn(64)),
			})
	}
}

// sphere volume from radius
func volume(radius float64) float64 {
	return 4.0 / 3.0 * math.Pi * (radius * radius * radius)
}

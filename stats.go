package main

import (
	"fmt"
	"io"

	"github.com/quillaja/sphereroom/sim"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type stat3 struct {
	mean, stddev, min, max float64
}

func (s stat3) String() string {
	return fmt.Sprintf("mean %.3f, stddev %.3f, min %.3f, max %.3f", s.mean, s.stddev, s.min, s.max)
}

// describe summarizes xs. A single sample has no spread.
func describe(xs []float64) stat3 {
	if len(xs) == 0 {
		return stat3{}
	}
	s := stat3{min: floats.Min(xs), max: floats.Max(xs)}
	s.mean, s.stddev = stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		s.stddev = 0
	}
	return s
}

type summary struct {
	spheres         int
	speed, height   stat3
	kineticEnergy   float64 // J, movable spheres only
	potentialEnergy float64 // J above the floor, movable spheres only
	last            sim.StepStats
}

// summarize describes the world's spheres. Heights are measured from the
// floor of the room.
func summarize(w *sim.World) summary {
	n := w.NumSpheres()
	speeds := make([]float64, 0, n)
	heights := make([]float64, 0, n)
	floor := w.Room().Center[1] - w.Room().HalfWidth[1]
	g := -w.Config().Gravity[1]

	var ke, pe float64
	for i := 0; i < n; i++ {
		p := w.Particle(sim.SphereRef(i))
		v := p.Velocity.Len()
		h := p.Position[1] - floor
		speeds = append(speeds, v)
		heights = append(heights, h)
		if p.InverseMass != 0 {
			m := 1 / p.InverseMass
			ke += 0.5 * m * v * v
			pe += m * g * h
		}
	}
	return summary{
		spheres:         n,
		speed:           describe(speeds),
		height:          describe(heights),
		kineticEnergy:   ke,
		potentialEnergy: pe,
		last:            w.LastStep(),
	}
}

func (s summary) print(out io.Writer) {
	fmt.Fprintf(out, "spheres: %d\nspeed (m/s): %s\nheight (m): %s\nkinetic energy: %.1f J\npotential energy: %.1f J\n",
		s.spheres, s.speed, s.height, s.kineticEnergy, s.potentialEnergy)
	fmt.Fprintf(out, "last step: %d wall contacts, %d pair contacts, %d partition nodes, depth %d\n",
		s.last.WallContacts, s.last.PairContacts, s.last.PartitionNodes, s.last.PartitionDepth)
}

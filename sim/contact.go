package sim

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/go-gl/mathgl/mgl64"
)

// Contact is a non-penetration constraint between particles X and Y.
// Normal points from Y toward X. A negative PenetrationDistance means the
// bodies overlap.
type Contact struct {
	Normal              mgl64.Vec3
	PenetrationDistance float64
	Restitution         float64 // carried, not used by the solver
	AccumulatedImpulse  float64
	X, Y                ParticleRef
}

// contactGenerator owns the per-step scratch used to find contacts.
type contactGenerator struct {
	tree     *partition
	bounds   []bound
	collided *bitset.BitSet // by particle index, cleared after each probe
	touched  []uint
	contacts []Contact
}

func newContactGenerator() *contactGenerator {
	return &contactGenerator{
		tree:     newPartition(),
		collided: bitset.New(0),
	}
}

// generate returns the wall and sphere-sphere contacts for the current
// state. The returned slice is reused by the next call.
func (g *contactGenerator) generate(particles *ParticleStore, spheres *SphereStore, room Box, walls *[6]Plane, stats *StepStats) []Contact {
	g.contacts = g.contacts[:0]
	n := spheres.Len()

	g.bounds = g.bounds[:0]
	for i := 0; i < n; i++ {
		s := spheres.Get(SphereRef(i))
		g.bounds = append(g.bounds, bound{
			center: particles.Get(s.Particle).Position,
			radius: s.Radius,
		})
	}

	// 1) walls: only the most violated one per sphere. corners are
	// resolved over several steps.
	for i := 0; i < n; i++ {
		b := g.bounds[i]
		best := -1
		bestDist := math.Inf(1)
		for w := range walls {
			d := walls[w].Distance(b.center)
			if d < b.radius && d < bestDist {
				best, bestDist = w, d
			}
		}
		if best < 0 {
			continue
		}
		g.contacts = append(g.contacts, Contact{
			Normal:              walls[best].Normal,
			PenetrationDistance: bestDist - b.radius,
			X:                   spheres.Get(SphereRef(i)).Particle,
			Y:                   WorldParticle,
		})
	}
	stats.WallContacts = len(g.contacts)

	// 2) broad phase
	g.tree.build(room, g.bounds)
	stats.PartitionNodes = len(g.tree.nodes)
	stats.PartitionDepth = g.tree.depth()

	// 3) narrow phase. a pair can be proposed by every leaf both spheres
	// share; only the first proposal while probing sphere i counts.
	if g.collided.Len() < uint(particles.Len()) {
		g.collided = bitset.New(uint(particles.Len()))
	}
	for i := 0; i < n; i++ {
		si := spheres.Get(SphereRef(i))
		bi := g.bounds[i]
		g.tree.forEachCandidate(SphereRef(i), bi.center, bi.radius, func(j SphereRef) {
			sj := spheres.Get(j)
			pj := uint(sj.Particle)
			if g.collided.Test(pj) {
				return
			}
			bj := g.bounds[j]
			distSq := bj.center.Sub(bi.center).Dot(bj.center.Sub(bi.center))
			rsum := bi.radius + bj.radius
			if distSq >= rsum*rsum {
				return
			}
			g.collided.Set(pj)
			g.touched = append(g.touched, pj)
			g.contacts = append(g.contacts, Contact{
				Normal:              DirectionFromTo(bj.center, bi.center),
				PenetrationDistance: math.Sqrt(distSq) - rsum,
				X:                   si.Particle,
				Y:                   sj.Particle,
			})
		})
		for _, t := range g.touched {
			g.collided.Clear(t)
		}
		g.touched = g.touched[:0]
	}
	stats.PairContacts = len(g.contacts) - stats.WallContacts

	// 4) the tree never outlives the call
	g.tree.reset()
	return g.contacts
}

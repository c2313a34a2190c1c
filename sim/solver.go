package sim

import "github.com/go-gl/mathgl/mgl64"

// solveContacts runs a sequential impulse solve over contacts. Impulses
// start from zero every call; penetration is fed back as a velocity bias
// of PenetrationDistance/dt.
func solveContacts(contacts []Contact, particles *ParticleStore, dt float64, iterations int) {
	for i := range contacts {
		contacts[i].AccumulatedImpulse = 0
	}
	for iter := 0; iter < iterations; iter++ {
		for i := range contacts {
			solveContact(&contacts[i], particles, dt)
		}
	}
}

func solveContact(c *Contact, particles *ParticleStore, dt float64) {
	x := particles.Get(c.X)
	y := particles.Get(c.Y)
	w := x.InverseMass + y.InverseMass
	if w == 0 {
		return // two immovable bodies
	}

	relativeNormalVelocity := y.Velocity.Sub(x.Velocity).Dot(c.Normal)
	desiredRemoval := relativeNormalVelocity - c.PenetrationDistance/dt
	delta := desiredRemoval / w

	// contacts only ever push
	accumulated := c.AccumulatedImpulse + delta
	if accumulated < 0 {
		accumulated = 0
	}
	change := accumulated - c.AccumulatedImpulse
	c.AccumulatedImpulse = accumulated

	impulse := c.Normal.Mul(change)
	x.Velocity = x.Velocity.Add(impulse.Mul(x.InverseMass))
	y.Velocity = y.Velocity.Sub(impulse.Mul(y.InverseMass))
}

// integrate advances positions with the velocity from the start of the
// step, then applies gravity to every movable particle.
func integrate(particles *ParticleStore, gravity mgl64.Vec3, dt float64) {
	dv := gravity.Mul(dt)
	for i := range particles.particles {
		p := &particles.particles[i]
		p.Position = p.Position.Add(p.Velocity.Mul(dt))
		if p.InverseMass != 0 {
			p.Velocity = p.Velocity.Add(dv)
		}
	}
}

package main

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/pkg/errors"
)

// clicker plays a short tone when a burst of new sphere-sphere contacts
// shows up, pitched by how big the burst is.
type clicker struct {
	rate     beep.SampleRate
	last     time.Time
	previous int
}

const clickGap = 80 * time.Millisecond

func newClicker() (*clicker, error) {
	rate := beep.SampleRate(44100)
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return nil, errors.Wrap(err, "init speaker")
	}
	return &clicker{rate: rate}, nil
}

// contacts feeds the pair contact count of the latest step.
func (c *clicker) contacts(n int) {
	burst := n - c.previous
	c.previous = n
	if burst <= 0 || time.Since(c.last) < clickGap {
		return
	}
	c.last = time.Now()

	// 220Hz for a single new contact, an octave up per doubling
	freq := math.Min(220*float64(burst), 3520)
	tone, err := generators.SineTone(c.rate, freq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(c.rate.N(30*time.Millisecond), tone))
}

func (c *clicker) close() { speaker.Close() }

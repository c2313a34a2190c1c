// simulates a room full of spheres falling and bouncing off each other.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/quillaja/sphereroom/sim"
)

func main() {
	scenarioFile := flag.String("scenario", "", "yaml scenario to load")
	numspheres := flag.Int("n", -1, "number of random spheres (default from scenario)")
	seconds := flag.Float64("s", -1, "seconds to simulate (default from scenario)")
	dtFlag := flag.Float64("dt", 0, "simulation step in seconds (default from scenario)")
	iterations := flag.Int("iter", -1, "solver iterations per step (default from scenario)")
	stepsPerFrame := flag.Int("spf", 1, "simulation steps per rendered frame")
	seed := flag.Int64("seed", 1, "random seed")

	imgDir := flag.String("img", "", "write png frames to this directory")
	dbFile := flag.String("db", "", "record sphere positions to this new sqlite file")
	chunkDir := flag.String("chunks", "", "write compressed frame chunks to this directory")
	norender := flag.Bool("norender", false, "do not render image frames")
	byDistance := flag.Bool("bydistance", true, "cull spheres outside the view and draw near to far")
	tui := flag.Bool("tui", false, "show the simulation live in the terminal")
	sound := flag.Bool("sound", false, "click on collisions (with -tui)")
	flag.Parse()

	sc := defaultScenario()
	if *scenarioFile != "" {
		var err error
		if sc, err = loadScenario(*scenarioFile); err != nil {
			fatal(err)
		}
	}
	if *numspheres >= 0 {
		sc.Random.Count = *numspheres
	}
	if *seconds >= 0 {
		sc.Seconds = *seconds
	}
	if *dtFlag > 0 {
		sc.Dt = *dtFlag
	}
	if *iterations >= 0 {
		sc.Iterations = *iterations
	}
	if *stepsPerFrame < 1 {
		*stepsPerFrame = 1
	}
	if err := sc.validate(); err != nil {
		fatal(err)
	}

	cfg := sc.worldConfig()
	cfg.RenderByDistance = *byDistance
	world, err := sim.New(cfg)
	if err != nil {
		fatal(err)
	}
	for _, s := range sc.Spheres {
		world.SpawnSphere(s.state(), s.model())
	}
	makespheres(world, rand.New(rand.NewSource(*seed)), sc.Random)

	frameDt := sc.Dt * float64(*stepsPerFrame)
	frames := int(sc.Seconds / frameDt) // total number of rendered frames

	if *tui {
		runLive(world, sc.Dt, *sound)
		summarize(world).print(os.Stdout)
		return
	}

	// setup output workers, one channel per kind of output. images get what
	// the camera sees, the trajectory logs get every sphere.
	var views, tracks []chan *frameJob
	wg := sync.WaitGroup{}
	if *imgDir != "" && !*norender {
		if err := os.MkdirAll(*imgDir, 0755); err != nil {
			fatal(err)
		}
		ch := make(chan *frameJob, 32)
		const workers = 2
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go frameToImages(*imgDir, &wg, ch)
		}
		views = append(views, ch)
	}
	var db *sql.DB
	if *dbFile != "" {
		if db, err = opendb(*dbFile); err != nil {
			fatal(err)
		}
		ch := make(chan *frameJob, 32)
		wg.Add(1)
		go frameToSqlite(db, &wg, ch)
		tracks = append(tracks, ch)
	}
	if *chunkDir != "" {
		if err := os.MkdirAll(*chunkDir, 0755); err != nil {
			fatal(err)
		}
		ch := make(chan *frameJob, 32)
		wg.Add(1)
		go frameToChunks(newChunkStore(*chunkDir, frames, 48), &wg, ch)
		tracks = append(tracks, ch)
	}

	// print parameters
	fmt.Printf("scenario: %s\nrender: %t\nspheres: %d\nstep: %.4f sec\niterations: %d\nframes: %d\nsimulation time: %.1f sec\n",
		sc.Name,
		len(views) > 0,
		world.NumSpheres(),
		sc.Dt,
		sc.Iterations,
		frames,
		float64(frames)*frameDt)

	cam := newOrbitCamera(world.Room())
	rec := newRecordingRenderer(width / height)
	start := time.Now()

	for frame := 0; frame <= frames; frame++ {
		cam.advance(world, frameDt)
		if len(views) > 0 {
			rec.begin(frame, cam.frame())
			world.Render(rec, 0)
			job := rec.finish()
			for _, ch := range views {
				ch <- job
			}
		}
		if len(tracks) > 0 {
			job := worldFrame(world, frame)
			for _, ch := range tracks {
				ch <- job
			}
		}

		for i := 0; i < *stepsPerFrame; i++ {
			world.Simulate(sc.Dt)
		}

		// progress
		avgTimePerFrame := time.Since(start).Microseconds() / int64(frame+1)
		estTimeLeft := time.Duration(avgTimePerFrame*int64(frames-frame)) * time.Microsecond
		fmt.Printf("%.1f%%, %d contacts, %dµs/frame, %s remaining, %s elapsed                    \r",
			100*float64(frame)/math.Max(1, float64(frames)),
			world.LastStep().Contacts(),
			avgTimePerFrame,
			estTimeLeft.Truncate(time.Second),
			time.Since(start).Truncate(time.Second),
		)
	}
	for _, ch := range append(views, tracks...) {
		close(ch)
	}
	wg.Wait()

	if db != nil {
		if err := createIndices(db); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		db.Close()
	}
	fmt.Printf("\nDone. Took %s\n", time.Since(start).Truncate(time.Millisecond))
	summarize(world).print(os.Stdout)
}

// runLive steps the world in real time and draws it in the terminal until
// the user quits. Frames are drawn dt-remainder ahead of the last step.
func runLive(world *sim.World, dt float64, sound bool) {
	view, err := newTUIRenderer()
	if err != nil {
		fatal(err)
	}
	defer view.close()

	var click *clicker
	if sound {
		if click, err = newClicker(); err != nil {
			click = nil // play on without sound
		} else {
			defer click.close()
		}
	}

	quit := view.quit()
	cam := newOrbitCamera(world.Room())
	ticker := time.NewTicker(time.Second / 30)
	defer ticker.Stop()

	last := time.Now()
	acc := 0.0
	for {
		select {
		case <-quit:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			acc += math.Min(elapsed, 0.25) // don't spiral after a stall
			for acc >= dt {
				world.Simulate(dt)
				acc -= dt
				if click != nil {
					click.contacts(world.LastStep().PairContacts)
				}
			}
			cam.advance(world, elapsed)

			view.begin(cam.frame())
			world.Render(view, acc)
			s := world.LastStep()
			view.present(fmt.Sprintf(" %d spheres  %d contacts  partition depth %d  (q to quit) ",
				world.NumSpheres(), s.Contacts(), s.PartitionDepth))
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

/*

camera

*/

const orbitSpeed = 0.2 // rad/s

// orbitCamera circles the room's center, slightly wider than the room so it
// slides along the walls for part of each lap.
type orbitCamera struct {
	pos    mgl64.Vec3
	angle  float64
	radius float64
	height float64
	target mgl64.Vec3
}

func newOrbitCamera(room sim.Box) *orbitCamera {
	c := &orbitCamera{
		radius: 1.1 * math.Max(room.HalfWidth[0], room.HalfWidth[2]),
		height: 0.5 * room.HalfWidth[1],
		target: room.Center,
	}
	c.pos = c.target.Add(mgl64.Vec3{0.5 * room.HalfWidth[0], c.height, 0})
	return c
}

// where the camera would like to be.
func (c *orbitCamera) want() mgl64.Vec3 {
	s, co := math.Sincos(c.angle)
	return c.target.Add(mgl64.Vec3{c.radius * co, c.height, c.radius * s})
}

// advance moves the camera dt seconds along its orbit, letting the world
// keep it out of the walls.
func (c *orbitCamera) advance(w *sim.World, dt float64) {
	c.angle += orbitSpeed * dt
	step := c.want().Sub(c.pos)
	w.CanMoveCamera(c.pos, &step)
	c.pos = c.pos.Add(step)
}

func (c *orbitCamera) frame() sim.CameraFrame {
	return sim.CameraFrame{Origin: c.pos, Target: c.target, Up: mgl64.Vec3{0, 1, 0}}
}

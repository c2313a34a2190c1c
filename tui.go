package main

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/quillaja/sphereroom/sim"
)

/*

live terminal view. implements sim.Renderer straight onto a tcell screen,
with a per-cell depth buffer so the draw order doesn't matter.

*/

// terminal cells are about twice as tall as they are wide.
const cellAspect = 2.0

type tuiRenderer struct {
	screen  tcell.Screen
	camera  sim.CameraFrame
	frustum sim.Frustum
	vp      mgl64.Mat4
	focal   float64
	depth   []float64
	w, h    int
}

func newTUIRenderer() (*tuiRenderer, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, errors.Wrap(err, "new screen")
	}
	if err := screen.Init(); err != nil {
		return nil, errors.Wrap(err, "init screen")
	}
	screen.HideCursor()
	return &tuiRenderer{screen: screen}, nil
}

func (r *tuiRenderer) close() { r.screen.Fini() }

// quit returns a channel closed when the user presses Esc, Ctrl-C or q.
func (r *tuiRenderer) quit() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			switch ev := r.screen.PollEvent().(type) {
			case nil:
				return // screen finalized
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return
				}
			case *tcell.EventResize:
				r.screen.Sync()
			}
		}
	}()
	return done
}

// begin clears the screen for a frame seen from cam.
func (r *tuiRenderer) begin(cam sim.CameraFrame) {
	r.w, r.h = r.screen.Size()
	if r.h < 1 {
		r.h = 1
	}
	proj := projection(float64(r.w) / (cellAspect * float64(r.h)))
	r.camera = cam
	r.vp = proj.Mul4(cam.View())
	r.frustum = sim.NewFrustum(r.vp)
	r.focal = proj.At(1, 1)

	if cap(r.depth) < r.w*r.h {
		r.depth = make([]float64, r.w*r.h)
	}
	r.depth = r.depth[:r.w*r.h]
	for i := range r.depth {
		r.depth[i] = math.Inf(1)
	}
	r.screen.Clear()
}

// present draws a status line and shows the frame.
func (r *tuiRenderer) present(status string) {
	x := 0
	for _, c := range status {
		if x >= r.w {
			break
		}
		r.screen.SetContent(x, 0, c, nil, tcell.StyleDefault.Reverse(true))
		x++
	}
	r.screen.Show()
}

func (r *tuiRenderer) Frustum() *sim.Frustum    { return &r.frustum }
func (r *tuiRenderer) Camera() *sim.CameraFrame { return &r.camera }

// project returns the cell of p and its view depth, ok is false behind
// the camera.
func (r *tuiRenderer) project(p mgl64.Vec3) (x, y int, depth float64, ok bool) {
	t := r.vp.Mul4x1(p.Vec4(1))
	if t[3] <= near {
		return 0, 0, 0, false
	}
	x, y = mgl64.GLToScreenCoords(t[0]/t[3], t[1]/t[3], r.w, r.h)
	return x, y, t[3], true
}

// plot sets a cell if nothing nearer was drawn there.
func (r *tuiRenderer) plot(x, y int, depth float64, c rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= r.w || y >= r.h {
		return
	}
	i := y*r.w + x
	if depth >= r.depth[i] {
		return
	}
	r.depth[i] = depth
	r.screen.SetContent(x, y, c, nil, style)
}

func (r *tuiRenderer) RenderSphere(s sim.RenderSphere, m sim.SphereModel) {
	x, y, depth, ok := r.project(s.Center)
	if !ok {
		return
	}
	style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(m.Color.R), int32(m.Color.G), int32(m.Color.B)))
	rows := s.Radius * r.focal * float64(r.h) / 2 / depth
	if rows < 0.5 {
		r.plot(x, y, depth, '•', style)
		return
	}
	cols := rows * cellAspect
	ir, ic := int(math.Ceil(rows)), int(math.Ceil(cols))
	for dy := -ir; dy <= ir; dy++ {
		for dx := -ic; dx <= ic; dx++ {
			u, v := float64(dx)/cols, float64(dy)/rows
			if u*u+v*v > 1 {
				continue
			}
			// nearer toward the middle of the disc
			r.plot(x+dx, y+dy, depth-s.Radius*math.Sqrt(1-u*u-v*v), '█', style)
		}
	}
}

func (r *tuiRenderer) EndRenderSpheres() {}

func (r *tuiRenderer) RenderBox(b sim.Box) {
	corners := b.Corners()
	for _, e := range boxEdges() {
		r.RenderConnection(corners[e[0]], corners[e[1]])
	}
}

// RenderConnection samples the segment and marks the cells it crosses.
func (r *tuiRenderer) RenderConnection(a, b mgl64.Vec3) {
	const samples = 128
	style := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for i := 0; i <= samples; i++ {
		p := a.Add(b.Sub(a).Mul(float64(i) / samples))
		if x, y, depth, ok := r.project(p); ok {
			r.plot(x, y, depth, '·', style)
		}
	}
}

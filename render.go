package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/quillaja/sphereroom/sim"
)

/*

image output section

the world draws into a recordingRenderer on the simulation goroutine. the
recorded frame is then handed to the output workers, so nothing the workers
touch is shared with the simulation.

*/

const (
	width  = 1920.0
	height = 1080.0
	fovY   = 60.0 // degrees
	near   = 0.1
	far    = 200.0
)

func projection(aspect float64) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(fovY), aspect, near, far)
}

type frameJob struct {
	Frame   int
	Camera  sim.CameraFrame
	Room    sim.Box
	Spheres []frameSphere
	Lines   [][2]mgl64.Vec3
}

type frameSphere struct {
	ID        int32
	X, Y, Z   float64
	Radius    float64
	Color     color.RGBA
	Shininess float64
}

func (s frameSphere) center() mgl64.Vec3 { return mgl64.Vec3{s.X, s.Y, s.Z} }

// recordingRenderer implements sim.Renderer by collecting a frameJob.
type recordingRenderer struct {
	proj    mgl64.Mat4
	camera  sim.CameraFrame
	frustum sim.Frustum
	job     *frameJob
}

func newRecordingRenderer(aspect float64) *recordingRenderer {
	return &recordingRenderer{proj: projection(aspect)}
}

// begin starts recording frame as seen from cam.
func (r *recordingRenderer) begin(frame int, cam sim.CameraFrame) {
	r.camera = cam
	r.frustum = sim.NewFrustum(r.proj.Mul4(cam.View()))
	r.job = &frameJob{Frame: frame, Camera: cam}
}

// finish returns the recorded frame. the renderer must begin again before
// it is reused.
func (r *recordingRenderer) finish() *frameJob {
	job := r.job
	r.job = nil
	return job
}

func (r *recordingRenderer) Frustum() *sim.Frustum    { return &r.frustum }
func (r *recordingRenderer) Camera() *sim.CameraFrame { return &r.camera }

func (r *recordingRenderer) RenderSphere(s sim.RenderSphere, m sim.SphereModel) {
	r.job.Spheres = append(r.job.Spheres, frameSphere{
		ID:        int32(s.Ref),
		X:         s.Center[0],
		Y:         s.Center[1],
		Z:         s.Center[2],
		Radius:    s.Radius,
		Color:     m.Color,
		Shininess: m.Shininess,
	})
}

func (r *recordingRenderer) EndRenderSpheres() {}

func (r *recordingRenderer) RenderBox(b sim.Box) { r.job.Room = b }

func (r *recordingRenderer) RenderConnection(a, b mgl64.Vec3) {
	r.job.Lines = append(r.job.Lines, [2]mgl64.Vec3{a, b})
}

// worldFrame records every sphere of w in storage order, whatever a
// camera could see. The trajectory outputs are fed from this.
func worldFrame(w *sim.World, frame int) *frameJob {
	job := &frameJob{Frame: frame, Room: w.Room()}
	job.Spheres = make([]frameSphere, w.NumSpheres())
	for i := range job.Spheres {
		ref := sim.SphereRef(i)
		p := w.Particle(ref)
		m := w.Model(ref)
		job.Spheres[i] = frameSphere{
			ID:        int32(i),
			X:         p.Position[0],
			Y:         p.Position[1],
			Z:         p.Position[2],
			Radius:    w.Sphere(ref).Radius,
			Color:     m.Color,
			Shininess: m.Shininess,
		}
	}
	return job
}

// boxEdges are the 12 corner index pairs differing in exactly one axis.
func boxEdges() (edges [][2]int) {
	for i := 0; i < 8; i++ {
		for bit := 0; bit < 3; bit++ {
			if j := i | 1<<uint(bit); j != i {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return
}

// frameToImages rasterizes each frame to dir/<frame>.png.
func frameToImages(dir string, wg *sync.WaitGroup, ch chan *frameJob) {
	defer wg.Done()
	proj := projection(width / height)
	edges := boxEdges()

	for job := range ch {
		vp := proj.Mul4(job.Camera.View())
		film := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(film, film.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

		corners := job.Room.Corners()
		for _, e := range edges {
			plotline3d(film, gray, vp, corners[e[0]], corners[e[1]])
		}
		for _, l := range job.Lines {
			plotline3d(film, darkgray, vp, l[0], l[1])
		}

		// painter's algorithm: far to near, whatever order the world used
		spheres := append([]frameSphere(nil), job.Spheres...)
		eye := job.Camera.Origin
		sort.Slice(spheres, func(i, j int) bool {
			di := spheres[i].center().Sub(eye)
			dj := spheres[j].center().Sub(eye)
			return di.Dot(di) > dj.Dot(dj)
		})
		for _, s := range spheres {
			plotsphere(film, vp, proj.At(1, 1), s)
		}

		file, err := os.Create(filepath.Join(dir, fmt.Sprintf("%010d.png", job.Frame)))
		if err != nil {
			panic(err)
		}
		if err := png.Encode(file, film); err != nil {
			file.Close()
			panic(err)
		}
		file.Close()
	}
}

var (
	gray     = color.RGBA{128, 128, 128, 255}
	darkgray = color.RGBA{64, 64, 64, 255}
)

// scale a color's brightness by f, clamped to [0,255].
func shade(c color.RGBA, f float64) color.RGBA {
	ch := func(v uint8) uint8 {
		return uint8(math.Max(0, math.Min(255, float64(v)*f)))
	}
	return color.RGBA{ch(c.R), ch(c.G), ch(c.B), c.A}
}

// plotsphere draws a sphere as a filled disc with an outline and a
// highlight whose strength follows the sphere's shininess.
// focal is the projection's y scale (cot(fovy/2)).
func plotsphere(img draw.Image, vp mgl64.Mat4, focal float64, s frameSphere) {
	t := vp.Mul4x1(s.center().Vec4(1))
	w := t[3] // distance along the view axis
	if w <= near {
		return // behind the camera
	}
	t = t.Mul(1 / w)
	x, y := mgl64.GLToScreenCoords(t.X(), t.Y(), img.Bounds().Dx(), img.Bounds().Dy())
	r := int(s.Radius * focal * float64(img.Bounds().Dy()) / 2 / w)
	if r < 1 {
		img.Set(x, y, s.Color)
		return
	}

	plotcirclefilled(img, s.Color, x, y, r)
	plotcircle(img, shade(s.Color, 0.5), x, y, r)
	if s.Shininess > 0 && r >= 4 {
		glint := math.Min(1, s.Shininess/32)
		plotcirclefilled(img, shade(s.Color, 1+glint), x-r/3, y-r/3, r/4)
	}
}

// plotline draws a simple line on img from (x0,y0) to (x1,y1).
//
// Bresenham's line algorithm,
// https://en.wikipedia.org/wiki/Bresenham%27s_line_algorithm.
func plotline(img draw.Image, c color.Color, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// abs cuz no integer abs function in the Go standard library.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// plotcirclefilled draws a filled circle at (x0,y0) of radius r.
func plotcirclefilled(img draw.Image, c color.Color, x0, y0, r int) {
	rsqr := float64(r * r)
	for y := r; y >= 0; y-- {
		xright := int(math.Sqrt(rsqr - float64(y*y)))
		for x := -xright; x <= xright; x++ {
			img.Set(x0+x, y0+y, c)
			img.Set(x0+x, y0-y, c)
		}
	}
}

// plotcircle draws an unfilled circle at (x0,y0) of radius r.
func plotcircle(img draw.Image, c color.Color, x0, y0, r int) {
	x := r
	for y := 0; y <= x; y++ {
		img.Set(x0+x, y0+y, c)
		img.Set(x0+x, y0-y, c)
		img.Set(x0-x, y0+y, c)
		img.Set(x0-x, y0-y, c)

		img.Set(x0+y, y0+x, c)
		img.Set(x0+y, y0-x, c)
		img.Set(x0-y, y0+x, c)
		img.Set(x0-y, y0-x, c)
		d := 2*(x*x+y*y-r*r+2*y+1) + 1 - 2*x
		if d > 0 {
			x--
		}
	}
}

// plotline3d draws a line from p1 to p2, clipping the part behind the
// camera.
func plotline3d(img draw.Image, c color.Color, vp mgl64.Mat4, p1, p2 mgl64.Vec3) {
	t1 := vp.Mul4x1(p1.Vec4(1))
	t2 := vp.Mul4x1(p2.Vec4(1))

	switch {
	case t1[3] <= near && t2[3] <= near:
		return
	case t1[3] < near:
		clipw(&t1, t2)
	case t2[3] < near:
		clipw(&t2, t1)
	}

	t1 = t1.Mul(1 / t1[3]) // t in NDC space
	t2 = t2.Mul(1 / t2[3])

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	x1, y1 := mgl64.GLToScreenCoords(t1.X(), t1.Y(), w, h)
	x2, y2 := mgl64.GLToScreenCoords(t2.X(), t2.Y(), w, h)

	// keep runaway endpoints from turning into very long loops
	const slack = 4
	if !clipToRect(&x1, &y1, &x2, &y2, -slack*w, -slack*h, (slack+1)*w, (slack+1)*h) {
		return
	}
	plotline(img, c, x1, y1, x2, y2)
}

// clipw moves low along the line to high until it sits on the w=near plane.
func clipw(low *mgl64.Vec4, high mgl64.Vec4) {
	t := (near - low[3]) / (high[3] - low[3])
	for i := 0; i < 3; i++ {
		low[i] += t * (high[i] - low[i])
	}
	low[3] = near
}

// clipToRect clips a segment to a rectangle (Liang-Barsky). It returns
// false when nothing is left.
func clipToRect(x1, y1, x2, y2 *int, minx, miny, maxx, maxy int) bool {
	fx1, fy1 := float64(*x1), float64(*y1)
	dx, dy := float64(*x2-*x1), float64(*y2-*y1)
	t0, t1 := 0.0, 1.0
	edges := [4][2]float64{
		{-dx, fx1 - float64(minx)},
		{dx, float64(maxx) - fx1},
		{-dy, fy1 - float64(miny)},
		{dy, float64(maxy) - fy1},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return false
			}
			continue
		}
		r := q / p
		if p < 0 {
			t0 = math.Max(t0, r)
		} else {
			t1 = math.Min(t1, r)
		}
	}
	if t0 > t1 {
		return false
	}
	*x1, *y1, *x2, *y2 = int(fx1+t0*dx), int(fy1+t0*dy), int(fx1+t1*dx), int(fy1+t1*dy)
	return true
}

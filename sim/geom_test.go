package sim

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func vec3AlmostEqual(a, b mgl64.Vec3, eps float64) bool {
	return almostEqual(a[0], b[0], eps) && almostEqual(a[1], b[1], eps) && almostEqual(a[2], b[2], eps)
}

func TestBox_PlanesPointInward(t *testing.T) {
	box := Box{Center: mgl64.Vec3{1, 2, 3}, HalfWidth: mgl64.Vec3{4, 5, 6}}
	planes := box.Planes()

	for i, p := range planes {
		if d := p.Distance(box.Center); !(d > 0) {
			t.Errorf("plane %d: center distance = %v, want > 0", i, d)
		}
		if !almostEqual(p.Normal.Len(), 1, 1e-12) {
			t.Errorf("plane %d: normal %v is not unit length", i, p.Normal)
		}
	}

	// every corner lies on exactly three walls
	for i, c := range box.Corners() {
		on := 0
		for _, p := range planes {
			if almostEqual(p.Distance(c), 0, 1e-12) {
				on++
			}
		}
		if on != 3 {
			t.Errorf("corner %d %v lies on %d walls, want 3", i, c, on)
		}
	}
}

func TestBox_Split(t *testing.T) {
	box := Box{HalfWidth: mgl64.Vec3{8, 4, 2}}
	tests := []struct {
		axis       int
		wantFront  mgl64.Vec3
		wantBack   mgl64.Vec3
		wantHalfWd mgl64.Vec3
	}{
		{0, mgl64.Vec3{4, 0, 0}, mgl64.Vec3{-4, 0, 0}, mgl64.Vec3{4, 4, 2}},
		{1, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, -2, 0}, mgl64.Vec3{8, 2, 2}},
		{2, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{8, 4, 1}},
	}
	for _, tt := range tests {
		front, back := box.Split(tt.axis)
		if !vec3AlmostEqual(front.Center, tt.wantFront, 1e-12) || !vec3AlmostEqual(back.Center, tt.wantBack, 1e-12) {
			t.Errorf("axis %d: centers = %v, %v, want %v, %v", tt.axis, front.Center, back.Center, tt.wantFront, tt.wantBack)
		}
		if !vec3AlmostEqual(front.HalfWidth, tt.wantHalfWd, 1e-12) || !vec3AlmostEqual(back.HalfWidth, tt.wantHalfWd, 1e-12) {
			t.Errorf("axis %d: half widths = %v, %v, want %v", tt.axis, front.HalfWidth, back.HalfWidth, tt.wantHalfWd)
		}
		// the bisector separates the halves
		pl := box.bisector(tt.axis)
		if pl.Distance(front.Center) <= 0 || pl.Distance(back.Center) >= 0 {
			t.Errorf("axis %d: bisector does not separate front and back", tt.axis)
		}
	}
}

func TestProjectAlong(t *testing.T) {
	n := mgl64.Vec3{0, 1, 0}
	v := mgl64.Vec3{3, -2, 1}

	along := ProjectAlong(v, n)
	if !vec3AlmostEqual(along, mgl64.Vec3{3, 0, 1}, 1e-12) {
		t.Errorf("ProjectAlong() = %v, want [3 0 1]", along)
	}
	onto := ProjectOnto(v, n)
	if !vec3AlmostEqual(onto.Add(along), v, 1e-12) {
		t.Errorf("ProjectOnto() + ProjectAlong() = %v, want %v", onto.Add(along), v)
	}
}

func TestDirectionFromTo(t *testing.T) {
	d := DirectionFromTo(mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 4})
	if !vec3AlmostEqual(d, mgl64.Vec3{0, 0, 1}, 1e-12) {
		t.Errorf("DirectionFromTo() = %v, want [0 0 1]", d)
	}

	// coincident points still give a unit vector
	d = DirectionFromTo(mgl64.Vec3{2, 2, 2}, mgl64.Vec3{2, 2, 2})
	if !almostEqual(d.Len(), 1, 1e-12) {
		t.Errorf("DirectionFromTo() of coincident points = %v, want unit vector", d)
	}
}

func TestFrustum_IntersectsSphere(t *testing.T) {
	cam := CameraFrame{Origin: mgl64.Vec3{0, 0, 10}, Up: mgl64.Vec3{0, 1, 0}}
	proj := mgl64.Perspective(mgl64.DegToRad(60), 1, 0.1, 100)
	f := NewFrustum(proj.Mul4(cam.View()))

	tests := []struct {
		name   string
		center mgl64.Vec3
		radius float64
		want   bool
	}{
		{"in front", mgl64.Vec3{0, 0, 0}, 1, true},
		{"behind camera", mgl64.Vec3{0, 0, 20}, 1, false},
		{"far to the side", mgl64.Vec3{100, 0, 0}, 1, false},
		{"beyond far plane", mgl64.Vec3{0, 0, -200}, 1, false},
		{"straddling the edge", mgl64.Vec3{6.2, 0, 0}, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IntersectsSphere(tt.center, tt.radius); got != tt.want {
				t.Errorf("IntersectsSphere(%v, %v) = %v, want %v", tt.center, tt.radius, got, tt.want)
			}
		})
	}
}

package glmarkaux

import (
	"image/color"
	"testing"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/colornames"
)

func TestColorGradient(t *testing.T) {
	grad := ColorGradient(colornames.Red, colornames.Blue)
	if grad(-1) != colornames.Red || grad(2) != colornames.Blue {
		t.Error("gradient endpoints should return the input colors")
	}
	mid := color.RGBAModel.Convert(grad(0.5)).(color.RGBA)
	// Red to blue goes through magenta on the short hue path.
	if mid.G != 0 || mid.R < 200 || mid.B < 200 {
		t.Errorf("unexpected midpoint %v", mid)
	}
}

func TestPalette(t *testing.T) {
	pal := Palette(3, colornames.Black, colornames.White)
	if len(pal) != 3 {
		t.Fatalf("want 3 colors, got %d", len(pal))
	}
	for i, c := range pal {
		if len(c) != 4 || c[3] != 1 {
			t.Errorf("color %d: unexpected value %v", i, c)
		}
	}
	if pal[0][0] != 0 || pal[2][0] != 1 {
		t.Errorf("palette endpoints %v %v", pal[0], pal[2])
	}
}

func TestHSVRoundTrip(t *testing.T) {
	const tol = 2
	for _, c := range []color.RGBA{colornames.Orange, colornames.Teal, colornames.Purple, colornames.Gray} {
		h, s, v := colorToHSV(c)
		got := rgbToC(hsvToRGB(h, s, v))
		want := uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
		for shift := 0; shift <= 16; shift += 8 {
			d := int(got>>shift&0xff) - int(want>>shift&0xff)
			if d > tol || d < -tol {
				t.Errorf("%v: round trip got %06x", c, got)
				break
			}
		}
	}
}

func TestOrbitPose(t *testing.T) {
	const tol = 1e-5
	o := newOrbit(5)
	pose := o.pose()
	if pose.Position != (ms3.Vec{Z: 5}) {
		t.Errorf("default camera should sit on +Z, got %v", pose.Position)
	}
	if pose.Rotation != ms3.QuatIdent() {
		t.Errorf("default camera should not be rotated, got %v", pose.Rotation)
	}
	o.rotate(-math.Pi/2/0.005, 0)
	pose = o.pose()
	if math.Abs(pose.Position.X-5) > tol || math.Abs(pose.Position.Z) > tol {
		t.Errorf("quarter yaw should move camera to +X, got %v", pose.Position)
	}
	if forward := pose.Rotation.Rotate(ms3.Vec{Z: 1}); math.Abs(forward.X-1) > tol {
		t.Errorf("camera rotation should turn +Z into +X, got %v", forward)
	}
	o.rotate(0, -1e6)
	if o.pitch != maxPitch {
		t.Errorf("pitch not clamped: %v", o.pitch)
	}
	o.zoom(1e6)
	if o.dist != o.minDist {
		t.Errorf("zoom not clamped: %v", o.dist)
	}
}

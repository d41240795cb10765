// Package glmarkaux provides an interactive window for viewing and picking
// glmark shapes, plus color helpers for building shape inputs.
package glmarkaux

import (
	"context"
	"image/color"
	"log/slog"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glmark/glbuild"
	"github.com/soypat/glmark/glrender"
)

// UIConfig configures a [Viewer] window.
type UIConfig struct {
	Width, Height int
	Title         string
	// View selects the projection shapes are compiled for. [glbuild.View3D]
	// enables orbit camera controls: drag to rotate and scroll to zoom.
	View glbuild.ViewKind
	// Background is the window clear color. Black if nil.
	Background color.Color
	// Distance is the initial orbit camera distance to the origin for 3D views.
	Distance float32
	// OnPick is called with the result of a left click picking query.
	OnPick func(pick glrender.Pick, hit bool)
	// Context, if not nil, ends the main loop when done.
	Context context.Context
	Logger  *slog.Logger
}

// Drawable is a renderable shape with uploaded data.
type Drawable interface {
	Render() error
}

type layer[R any] struct {
	shape *glrender.Shape[R]
	data  *glrender.BufferSet
}

func (l layer[R]) Render() error { return l.shape.Render(l.data) }

// NewLayer pairs a shape with its uploaded data for drawing in a [Viewer].
func NewLayer[R any](shape *glrender.Shape[R], data *glrender.BufferSet) Drawable {
	return layer[R]{shape: shape, data: data}
}

// orbit is a camera rotating around the origin.
type orbit struct {
	yaw, pitch float32
	dist       float32
	minDist    float32
	maxDist    float32
}

const maxPitch = math.Pi/2 - 0.01

func newOrbit(dist float32) orbit {
	if dist <= 0 {
		dist = 10
	}
	return orbit{dist: dist, minDist: dist * 1e-5, maxDist: dist * 10}
}

func (o *orbit) rotate(dx, dy float32) {
	const sensitivity = 0.005
	o.yaw -= dx * sensitivity
	o.pitch = min(max(o.pitch-dy*sensitivity, -maxPitch), maxPitch)
}

func (o *orbit) zoom(yoff float32) {
	o.dist -= yoff * (o.dist*.1 + .01)
	o.dist = min(max(o.dist, o.minDist), o.maxDist)
}

// pose returns the camera pose looking at the origin from dist along the rotated +Z axis.
func (o *orbit) pose() glrender.Pose {
	q := ms3.Rotation(o.yaw, ms3.Vec{Y: 1}).Mul(ms3.Rotation(o.pitch, ms3.Vec{X: 1}))
	return glrender.Pose{
		Position: q.Rotate(ms3.Vec{Z: o.dist}),
		Rotation: q,
	}
}

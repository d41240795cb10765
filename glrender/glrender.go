// Package glrender compiles shapes into GPU programs, uploads their data into
// vertex buffers and draws them, optionally into an off-screen picking framebuffer.
//
// All calls are synchronous and must be made from the goroutine owning the
// graphics context backing the [Backend].
package glrender

import (
	"errors"
	"strconv"
)

// ProgramID, BufferID and FramebufferID are opaque backend handles. Zero is never a valid handle.
type (
	ProgramID     uint32
	BufferID      uint32
	FramebufferID uint32
)

// Backend is the graphics context capability surface used by glrender.
// Uniform calls apply to the program last passed to UseProgram.
type Backend interface {
	// CompileProgram compiles and links a vertex and fragment shader pair.
	// Failures should be returned as a *[CompileError].
	CompileProgram(vertex, fragment string) (ProgramID, error)
	DeleteProgram(ProgramID)
	UseProgram(ProgramID)
	// UniformLocation and AttribLocation return false if name is not an active
	// uniform or attribute of the program.
	UniformLocation(p ProgramID, name string) (loc int32, ok bool)
	AttribLocation(p ProgramID, name string) (loc uint32, ok bool)

	// Uniformf writes 1 to 4 float components to a float, vec2, vec3 or vec4 uniform.
	Uniformf(loc int32, v ...float32)
	// Uniformi writes 1 to 4 int components.
	Uniformi(loc int32, v ...int32)
	// Uniformfv writes an array of len(v)/arity float vectors of arity components.
	Uniformfv(loc int32, arity int, v []float32)
	Uniformiv(loc int32, v []int32)
	// UniformMatrix4fv writes len(v)/16 column-major 4x4 matrices.
	UniformMatrix4fv(loc int32, v []float32)

	// CreateBuffer uploads data into a new vertex buffer.
	CreateBuffer(data []float32) (BufferID, error)
	DeleteBuffer(BufferID)
	// EnableAttrib enables the attribute at loc sourcing size float components
	// per vertex from buf.
	EnableAttrib(loc uint32, buf BufferID, size int)
	DisableAttrib(loc uint32)
	// DrawTriangles draws a triangle list with vertices 0..count-1.
	DrawTriangles(count int)

	// CreateFramebuffer creates an RGBA8 color framebuffer of the given size.
	CreateFramebuffer(width, height int) (FramebufferID, error)
	DeleteFramebuffer(FramebufferID)
	// BindFramebuffer binds fb as draw and read target. Zero binds the default framebuffer.
	BindFramebuffer(fb FramebufferID)
	Viewport(x, y, width, height int)
	Clear(r, g, b, a float32)
	SetBlend(enabled bool)
	// ReadPixel reads the RGBA8 pixel at (x, y) of the bound framebuffer with
	// the origin at the bottom left corner.
	ReadPixel(x, y int) ([4]byte, error)
}

// Stage identifies the compilation step that failed.
type Stage uint8

const (
	StageVertex Stage = iota
	StageFragment
	StageLink
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageLink:
		return "link"
	}
	return "Stage(" + strconv.Itoa(int(s)) + ")"
}

// CompileError is returned when the backend rejects generated shader source.
type CompileError struct {
	Stage Stage
	// Log is the backend's diagnostic text.
	Log string
	// Source is the rejected source, empty for link errors.
	Source string
}

func (ce *CompileError) Error() string {
	return ce.Stage.String() + " shader compilation failed: " + ce.Log
}

var (
	errNilBackend  = errors.New("nil backend")
	errNoPicking   = errors.New("picking disabled")
	errPickOngoing = errors.New("picking pass already in progress")
	errNotPicking  = errors.New("no picking pass in progress")
)

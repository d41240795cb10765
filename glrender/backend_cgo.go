//go:build !tinygo && cgo

package glrender

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// InitHeadless starts a 1x1 sized GLFW window with a current OpenGL context so
// that shapes can be rendered off-screen. It returns a termination function
// that should be called when the user is done rendering.
func InitHeadless() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "glmark",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// GLBackend implements [Backend] over the OpenGL context current on the calling thread.
type GLBackend struct {
	vao uint32
	// Color texture backing each framebuffer.
	textures map[FramebufferID]uint32
}

var _ Backend = (*GLBackend)(nil) // Interface implementation compile-time check.

// NewGLBackend returns a backend for the current OpenGL context.
// gl.Init must have been called, i.e: by [InitHeadless].
func NewGLBackend() (*GLBackend, error) {
	b := &GLBackend{textures: make(map[FramebufferID]uint32)}
	gl.GenVertexArrays(1, &b.vao)
	if b.vao == 0 {
		return nil, glErrOrMessage("creating vertex array object")
	}
	gl.BindVertexArray(b.vao)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	return b, glgl.Err()
}

func (b *GLBackend) CompileProgram(vertex, fragment string) (ProgramID, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertex, StageVertex)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(gl.FRAGMENT_SHADER, fragment, StageFragment)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fs)
	prog := gl.CreateProgram()
	if prog == 0 {
		return 0, glErrOrMessage("creating program")
	}
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)
	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, &CompileError{Stage: StageLink, Log: strings.TrimRight(log, "\x00")}
	}
	return ProgramID(prog), nil
}

func compileShader(kind uint32, source string, stage Stage) (uint32, error) {
	shader := gl.CreateShader(kind)
	if shader == 0 {
		return 0, glErrOrMessage("creating " + stage.String() + " shader")
	}
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, &CompileError{Stage: stage, Log: strings.TrimRight(log, "\x00"), Source: source}
	}
	return shader, nil
}

func (b *GLBackend) DeleteProgram(p ProgramID) { gl.DeleteProgram(uint32(p)) }
func (b *GLBackend) UseProgram(p ProgramID)    { gl.UseProgram(uint32(p)) }

func (b *GLBackend) UniformLocation(p ProgramID, name string) (int32, bool) {
	loc := gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
	return loc, loc >= 0
}

func (b *GLBackend) AttribLocation(p ProgramID, name string) (uint32, bool) {
	loc := gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00"))
	return uint32(loc), loc >= 0
}

func (b *GLBackend) Uniformf(loc int32, v ...float32) {
	switch len(v) {
	case 1:
		gl.Uniform1f(loc, v[0])
	case 2:
		gl.Uniform2f(loc, v[0], v[1])
	case 3:
		gl.Uniform3f(loc, v[0], v[1], v[2])
	case 4:
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	}
}

func (b *GLBackend) Uniformi(loc int32, v ...int32) {
	switch len(v) {
	case 1:
		gl.Uniform1i(loc, v[0])
	case 2:
		gl.Uniform2i(loc, v[0], v[1])
	case 3:
		gl.Uniform3i(loc, v[0], v[1], v[2])
	case 4:
		gl.Uniform4i(loc, v[0], v[1], v[2], v[3])
	}
}

func (b *GLBackend) Uniformfv(loc int32, arity int, v []float32) {
	if len(v) == 0 {
		return
	}
	count := int32(len(v) / arity)
	switch arity {
	case 1:
		gl.Uniform1fv(loc, count, &v[0])
	case 2:
		gl.Uniform2fv(loc, count, &v[0])
	case 3:
		gl.Uniform3fv(loc, count, &v[0])
	case 4:
		gl.Uniform4fv(loc, count, &v[0])
	}
}

func (b *GLBackend) Uniformiv(loc int32, v []int32) {
	if len(v) > 0 {
		gl.Uniform1iv(loc, int32(len(v)), &v[0])
	}
}

func (b *GLBackend) UniformMatrix4fv(loc int32, v []float32) {
	if len(v) >= 16 {
		gl.UniformMatrix4fv(loc, int32(len(v)/16), false, &v[0])
	}
}

func (b *GLBackend) CreateBuffer(data []float32) (BufferID, error) {
	if len(data) == 0 {
		return 0, errors.New("empty buffer data")
	}
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	if vbo == 0 {
		return 0, glErrOrMessage("zero buffer id set by GL")
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(data), gl.Ptr(data), gl.STATIC_DRAW)
	if err := glgl.Err(); err != nil {
		gl.DeleteBuffers(1, &vbo)
		return 0, fmt.Errorf("uploading %d floats: %w", len(data), err)
	}
	return BufferID(vbo), nil
}

func (b *GLBackend) DeleteBuffer(buf BufferID) {
	id := uint32(buf)
	gl.DeleteBuffers(1, &id)
}

func (b *GLBackend) EnableAttrib(loc uint32, buf BufferID, size int) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.EnableVertexAttribArray(loc)
	gl.VertexAttribPointer(loc, int32(size), gl.FLOAT, false, 0, gl.PtrOffset(0))
}

func (b *GLBackend) DisableAttrib(loc uint32) { gl.DisableVertexAttribArray(loc) }

func (b *GLBackend) DrawTriangles(count int) { gl.DrawArrays(gl.TRIANGLES, 0, int32(count)) }

func (b *GLBackend) CreateFramebuffer(width, height int) (FramebufferID, error) {
	var fbo, tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		gl.DeleteTextures(1, &tex)
		return 0, glErrOrMessage(fmt.Sprintf("incomplete framebuffer status 0x%x", status))
	}
	b.textures[FramebufferID(fbo)] = tex
	return FramebufferID(fbo), nil
}

func (b *GLBackend) DeleteFramebuffer(fb FramebufferID) {
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
	if tex, ok := b.textures[fb]; ok {
		gl.DeleteTextures(1, &tex)
		delete(b.textures, fb)
	}
}

func (b *GLBackend) BindFramebuffer(fb FramebufferID) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

func (b *GLBackend) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (b *GLBackend) Clear(r, g, bl, a float32) {
	gl.ClearColor(r, g, bl, a)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (b *GLBackend) SetBlend(enabled bool) {
	if enabled {
		gl.Enable(gl.BLEND)
	} else {
		gl.Disable(gl.BLEND)
	}
}

func (b *GLBackend) ReadPixel(x, y int) (px [4]byte, err error) {
	gl.ReadPixels(int32(x), int32(y), 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&px[0]))
	return px, glgl.Err()
}

// Delete releases the vertex array object and remaining framebuffer textures.
func (b *GLBackend) Delete() {
	for fb, tex := range b.textures {
		gl.DeleteTextures(1, &tex)
		delete(b.textures, fb)
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}

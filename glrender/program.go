package glrender

import (
	"fmt"

	"github.com/soypat/glmark"
)

type uniformLocation struct {
	loc     int32
	present bool
}

type attribLocation struct {
	loc     uint32
	present bool
}

// Program is a compiled shader program with lazily populated location caches.
// Names missing from the linked program are cached as absent and writes to
// them are skipped.
type Program struct {
	backend  Backend
	id       ProgramID
	uniforms map[string]uniformLocation
	attribs  map[string]attribLocation
}

// NewProgram compiles a program from source. Compilation failures are
// returned as *[CompileError].
func NewProgram(b Backend, vertex, fragment string) (*Program, error) {
	if b == nil {
		return nil, errNilBackend
	}
	id, err := b.CompileProgram(vertex, fragment)
	if err != nil {
		return nil, err
	} else if id == 0 {
		return nil, fmt.Errorf("backend returned zero program id")
	}
	return &Program{
		backend:  b,
		id:       id,
		uniforms: make(map[string]uniformLocation),
		attribs:  make(map[string]attribLocation),
	}, nil
}

// ID returns the backend program handle.
func (p *Program) ID() ProgramID { return p.id }

// Use binds the program as current.
func (p *Program) Use() { p.backend.UseProgram(p.id) }

// Delete releases the program. It is safe to call on a nil Program.
func (p *Program) Delete() {
	if p == nil || p.id == 0 {
		return
	}
	p.backend.DeleteProgram(p.id)
	p.id = 0
}

// UniformLocation returns the cached location of the named uniform.
func (p *Program) UniformLocation(name string) (int32, bool) {
	l, cached := p.uniforms[name]
	if !cached {
		l.loc, l.present = p.backend.UniformLocation(p.id, name)
		p.uniforms[name] = l
	}
	return l.loc, l.present
}

// AttribLocation returns the cached location of the named attribute.
func (p *Program) AttribLocation(name string) (uint32, bool) {
	l, cached := p.attribs[name]
	if !cached {
		l.loc, l.present = p.backend.AttribLocation(p.id, name)
		p.attribs[name] = l
	}
	return l.loc, l.present
}

// SetUniform writes value to the named uniform of the program, which must be in use.
// value holds d.Components() values; matrices are column-major. Array uniforms
// also write their <name>_length companion. There is no type coercion: a value
// whose length does not match d is an error.
func (p *Program) SetUniform(name string, d glmark.TypeDecl, value []float64) error {
	if !d.Type.IsValid() {
		return fmt.Errorf("uniform %q: %w: %s", name, glmark.ErrUnknownType, d)
	} else if len(value) != d.Components() {
		return fmt.Errorf("uniform %q: %w: %s wants %d components, got %d", name, glmark.ErrBadConstant, d, d.Components(), len(value))
	}
	if d.IsArray() {
		if loc, ok := p.UniformLocation(name + "_length"); ok {
			p.backend.Uniformi(loc, int32(d.Length))
		}
	}
	loc, ok := p.UniformLocation(name)
	if !ok {
		return nil
	}
	arity := d.Type.Arity()
	switch {
	case d.Type == glmark.Matrix4:
		p.backend.UniformMatrix4fv(loc, float32s(value))
	case d.Type.Primitive() == glmark.PrimitiveInt:
		if arity != 1 {
			return fmt.Errorf("uniform %q: unsupported integer arity %d", name, arity)
		}
		ints := make([]int32, len(value))
		for i, v := range value {
			ints[i] = int32(v)
		}
		if d.IsArray() {
			p.backend.Uniformiv(loc, ints)
		} else {
			p.backend.Uniformi(loc, ints...)
		}
	case arity >= 1 && arity <= 4:
		if d.IsArray() {
			p.backend.Uniformfv(loc, arity, float32s(value))
		} else {
			p.backend.Uniformf(loc, float32s(value)...)
		}
	default:
		return fmt.Errorf("uniform %q: unsupported type %s", name, d)
	}
	return nil
}

func float32s(v []float64) []float32 {
	f := make([]float32, len(v))
	for i := range v {
		f[i] = float32(v[i])
	}
	return f
}

// Package glbuild generates GLSL vertex and fragment shader source from a
// [glmark.Spec] for a given view projection and render mode.
package glbuild

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/glmark"
	"github.com/soypat/glmark/glbuild/glsllib"
)

// Identifiers introduced into programs compiled in [ModePick].
const (
	// PickAttribute is the per-vertex RGBA encoded record index.
	PickAttribute = "glm_pick_index"
	// PickAlphaUniform is the alpha channel written for the current draw, i.e: the shape's pick slot.
	PickAlphaUniform = "glm_pick_index_alpha"
	// PickVarying carries the pick color to the fragment stage.
	PickVarying = "out_pick_index"
)

// fragColorOut is the fragment output variable used by [DialectCore410].
const fragColorOut = "glm_frag_color"

// ViewKind selects the view projection compiled into a program.
type ViewKind uint8

const (
	// View2D is a planar affine projection.
	View2D ViewKind = iota
	// View3D is a perspective projection with a quaternion camera pose.
	View3D
	// ViewExternal uses externally supplied projection and view matrices, i.e: head mounted displays.
	ViewExternal
	viewEnd
)

func (vk ViewKind) String() string {
	switch vk {
	case View2D:
		return "2D"
	case View3D:
		return "3D"
	case ViewExternal:
		return "external"
	}
	return "ViewKind(" + strconv.Itoa(int(vk)) + ")"
}

// Mode selects between color rendering and object picking programs.
type Mode uint8

const (
	ModeNormal Mode = iota
	ModePick
	modeEnd
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModePick:
		return "pick"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// Dialect selects the GLSL flavor of generated source.
type Dialect uint8

const (
	// DialectES100 is GLSL ES 1.00 as accepted by WebGL and GLES2 contexts.
	DialectES100 Dialect = iota
	// DialectCore410 is desktop GLSL 4.10 core profile.
	DialectCore410
	dialectEnd
)

func (d Dialect) header() string {
	if d == DialectCore410 {
		return "#version 410 core\nprecision highp float;\n"
	}
	return "precision highp float;\n"
}

func (d Dialect) attribute() string {
	if d == DialectCore410 {
		return "in "
	}
	return "attribute "
}

func (d Dialect) varying(fragment bool) string {
	switch {
	case d != DialectCore410:
		return "varying "
	case fragment:
		return "in "
	}
	return "out "
}

func (d Dialect) fragColor() string {
	if d == DialectCore410 {
		return fragColorOut
	}
	return "gl_FragColor"
}

// Config parametrizes shader generation.
type Config struct {
	View    ViewKind
	Mode    Mode
	Dialect Dialect
	// IsUniform reports whether the vertex input is bound once per draw. If nil
	// array, Matrix4, int and bool inputs are uniforms and all other inputs are attributes.
	IsUniform func(name string) bool
}

func (cfg Config) validate() error {
	if cfg.View >= viewEnd {
		return fmt.Errorf("invalid view kind %s", cfg.View)
	} else if cfg.Mode >= modeEnd {
		return fmt.Errorf("invalid mode %s", cfg.Mode)
	} else if cfg.Dialect >= dialectEnd {
		return fmt.Errorf("invalid dialect %d", cfg.Dialect)
	}
	return nil
}

func (cfg Config) isUniform(name string, d glmark.TypeDecl) bool {
	if cfg.IsUniform != nil {
		return cfg.IsUniform(name)
	}
	return RequiresUniform(d)
}

// RequiresUniform reports whether values of type d cannot be supplied as vertex attributes.
func RequiresUniform(d glmark.TypeDecl) bool {
	return d.IsArray() || d.Type == glmark.Matrix4 || d.Type.Primitive() == glmark.PrimitiveInt
}

// Source is a generated vertex and fragment shader pair.
type Source struct {
	Vertex   string
	Fragment string
}

// Generate validates s and generates its shader source pair.
func Generate(s *glmark.Spec, cfg Config) (Source, error) {
	p, err := NewProgrammer(cfg)
	if err != nil {
		return Source{}, err
	}
	if err := s.Validate(); err != nil {
		return Source{}, err
	}
	vertex, err := p.appendVertex(nil, s)
	if err != nil {
		return Source{}, err
	}
	fragment, err := p.appendFragment(nil, s)
	if err != nil {
		return Source{}, err
	}
	return Source{Vertex: string(vertex), Fragment: string(fragment)}, nil
}

// Programmer implements shader generation for a fixed [Config].
type Programmer struct {
	cfg     Config
	proj    Projection
	scratch []byte
}

// NewProgrammer returns a Programmer generating programs for cfg.
func NewProgrammer(cfg Config) (*Programmer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	proj, err := cfg.View.Projection()
	if err != nil {
		return nil, err
	}
	return &Programmer{cfg: cfg, proj: proj}, nil
}

// Config returns the configuration the Programmer was created with.
func (p *Programmer) Config() Config { return p.cfg }

// WriteVertex validates s and writes its vertex shader to w.
func (p *Programmer) WriteVertex(w io.Writer, s *glmark.Spec) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	var err error
	p.scratch, err = p.appendVertex(p.scratch[:0], s)
	if err != nil {
		return 0, err
	}
	return w.Write(p.scratch)
}

// WriteFragment validates s and writes its fragment shader to w.
func (p *Programmer) WriteFragment(w io.Writer, s *glmark.Spec) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	var err error
	p.scratch, err = p.appendFragment(p.scratch[:0], s)
	if err != nil {
		return 0, err
	}
	return w.Write(p.scratch)
}

func (p *Programmer) appendVertex(dst []byte, s *glmark.Spec) ([]byte, error) {
	d := p.cfg.Dialect
	pick := p.cfg.Mode == ModePick
	varyings, err := varyingNames(s)
	if err != nil {
		return dst, err
	}
	w := &shaderWriter{
		scope:    glmark.VertexScope(s),
		dialect:  d,
		rename:   varyings,
		pick:     pick,
		project:  p.proj.Helper.Name,
		position: varyings[glmark.OutputPosition],
		posType:  s.Output[glmark.OutputPosition].Type,
	}
	w.decl = append(w.decl, d.header()...)

	refs, _ := s.ReferencedInputs()
	var attrs []string
	for _, name := range glmark.SortedNames(s.Input) {
		if !refs[name] {
			continue
		}
		decl := s.Input[name]
		if p.cfg.isUniform(name, decl) {
			w.decl = appendUniform(w.decl, name, decl)
		} else if RequiresUniform(decl) {
			return dst, fmt.Errorf("%w: %q of type %s must be bound as uniform", glmark.ErrUnsupportedInput, name, decl)
		} else {
			attrs = append(attrs, name)
		}
	}
	for _, u := range p.proj.Uniforms {
		w.decl = appendUniform(w.decl, u.Name, u.Decl)
	}
	if pick {
		w.decl = appendUniform(w.decl, PickAlphaUniform, glmark.Decl(glmark.Float))
	}
	for _, name := range attrs {
		w.decl = appendQualified(w.decl, d.attribute(), name, s.Input[name])
	}
	if pick {
		w.decl = appendQualified(w.decl, d.attribute(), PickAttribute, glmark.Decl(glmark.Vector4))
	}
	w.decl = appendVaryings(w.decl, d.varying(false), s, varyings, pick)
	w.addHelper(p.proj.Helper)

	w.line("void main() {")
	w.indent++
	for _, name := range glmark.SortedNames(s.Variables) {
		w.declare(name, s.Variables[name])
	}
	if err := w.statements(s.Statements); err != nil {
		return dst, err
	}
	w.indent--
	w.line("}")
	return w.appendTo(dst), nil
}

func (p *Programmer) appendFragment(dst []byte, s *glmark.Spec) ([]byte, error) {
	d := p.cfg.Dialect
	varyings, err := varyingNames(s)
	if err != nil {
		return dst, err
	}
	w := &shaderWriter{dialect: d, rename: varyings, fragment: true, fragOut: d.fragColor()}
	w.decl = append(w.decl, d.header()...)

	if p.cfg.Mode == ModePick {
		w.decl = appendQualified(w.decl, d.varying(true), PickVarying, glmark.Decl(glmark.Vector4))
		w.decl = appendFragOut(w.decl, d)
		w.line("void main() {")
		w.indent++
		w.line(w.fragOut, " = ", PickVarying, ";")
		w.indent--
		w.line("}")
		return w.appendTo(dst), nil
	}

	if s.Fragment != nil {
		w.scope = glmark.FragmentScope(s)
		_, refs := s.ReferencedInputs()
		for _, name := range glmark.SortedNames(s.Fragment.Input) {
			_, isVarying := s.Output[name]
			if isVarying || !refs[name] {
				continue
			}
			decl := s.Fragment.Input[name]
			if vdecl, ok := s.Input[name]; ok && vdecl != decl {
				return dst, fmt.Errorf("%w: fragment uniform %q is %s but vertex input is %s", glmark.ErrUnsupportedInput, name, decl, vdecl)
			} else if ok && !p.cfg.isUniform(name, vdecl) {
				return dst, fmt.Errorf("%w: fragment uniform %q shares its name with vertex attribute", glmark.ErrUnsupportedInput, name)
			}
			w.decl = appendUniform(w.decl, name, decl)
		}
	}
	w.decl = appendVaryings(w.decl, d.varying(true), s, varyings, false)
	w.decl = appendFragOut(w.decl, d)

	w.line("void main() {")
	w.indent++
	if s.Fragment != nil {
		for _, name := range glmark.SortedNames(s.Fragment.Variables) {
			w.declare(name, s.Fragment.Variables[name])
		}
		if err := w.statements(s.Fragment.Statements); err != nil {
			return dst, err
		}
	} else if err := w.defaultFragment(s, p.cfg.View); err != nil {
		return dst, err
	}
	w.indent--
	w.line("}")
	return w.appendTo(dst), nil
}

// defaultFragment writes the interpolated color, opaque black if there is no
// color output. Non-planar views with a normal output are shaded.
func (w *shaderWriter) defaultFragment(s *glmark.Spec, view ViewKind) error {
	color := "vec4(0.0, 0.0, 0.0, 1.0)"
	if c, ok := s.Output[glmark.OutputColor]; ok {
		name := w.rename[glmark.OutputColor]
		switch {
		case c.IsArray():
			return fmt.Errorf("%w: array color output", glmark.ErrBadStatement)
		case c.Type == glmark.Vector3:
			color = "vec4(" + name + ", 1.0)"
		case c.Type == glmark.Vector4 || c.Type == glmark.Color:
			color = name
		default:
			return fmt.Errorf("%w: color output of type %s", glmark.ErrBadStatement, c)
		}
	}
	w.line(w.fragOut, " = ", color, ";")
	n, ok := s.Output[glmark.OutputNormal]
	if !ok || view == View2D {
		return nil
	} else if n != glmark.Decl(glmark.Vector3) {
		return fmt.Errorf("%w: normal output must be Vector3, got %s", glmark.ErrBadStatement, n)
	}
	shade := glsllib.Shade()
	w.addHelper(shade)
	w.line(w.fragOut, " = ", shade.Name, "(", w.fragOut, ", ", w.rename[glmark.OutputNormal], ");")
	return nil
}

// varyingNames maps every output to the name of the varying carrying it,
// out_<name> suffixed with a number on collision with another identifier.
func varyingNames(s *glmark.Spec) (map[string]string, error) {
	used := make(map[string]bool)
	mark := func(m map[string]glmark.TypeDecl) {
		for name, d := range m {
			used[name] = true
			if d.IsArray() {
				used[name+"_length"] = true
			}
		}
	}
	mark(s.Input)
	mark(s.Output)
	mark(s.Variables)
	appendLoopVars(used, s.Statements)
	if s.Fragment != nil {
		mark(s.Fragment.Input)
		mark(s.Fragment.Variables)
		appendLoopVars(used, s.Fragment.Statements)
	}
	if used[PickVarying] {
		return nil, fmt.Errorf("%w: %q is reserved", glmark.ErrBadName, PickVarying)
	}
	used[PickVarying] = true
	names := make(map[string]string, len(s.Output))
	for _, name := range glmark.SortedNames(s.Output) {
		if d := s.Output[name]; d.Type.Primitive() != glmark.PrimitiveFloat {
			return nil, fmt.Errorf("%w: output %q of type %s cannot be interpolated", glmark.ErrUnsupportedInput, name, d)
		}
		varying := "out_" + name
		for i := 1; used[varying]; i++ {
			varying = "out_" + name + "_" + strconv.Itoa(i)
		}
		used[varying] = true
		names[name] = varying
	}
	return names, nil
}

func appendLoopVars(used map[string]bool, stmts []glmark.Statement) {
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case glmark.ForLoop:
			used[st.Var] = true
			appendLoopVars(used, st.Body)
		case glmark.Condition:
			appendLoopVars(used, st.True)
			appendLoopVars(used, st.False)
		}
	}
}

func appendUniform(dst []byte, name string, d glmark.TypeDecl) []byte {
	dst = appendQualified(dst, "uniform ", name, d)
	if d.IsArray() {
		dst = appendQualified(dst, "uniform ", name+"_length", glmark.Decl(glmark.Int))
	}
	return dst
}

func appendQualified(dst []byte, qualifier, name string, d glmark.TypeDecl) []byte {
	dst = append(dst, qualifier...)
	dst = glmark.AppendDecl(dst, name, d)
	return append(dst, ";\n"...)
}

func appendVaryings(dst []byte, qualifier string, s *glmark.Spec, varyings map[string]string, pick bool) []byte {
	for _, name := range glmark.SortedNames(s.Output) {
		dst = appendQualified(dst, qualifier, varyings[name], s.Output[name])
	}
	if pick {
		dst = appendQualified(dst, qualifier, PickVarying, glmark.Decl(glmark.Vector4))
	}
	return dst
}

func appendFragOut(dst []byte, d Dialect) []byte {
	if d != DialectCore410 {
		return dst
	}
	return appendQualified(dst, "out ", fragColorOut, glmark.Decl(glmark.Vector4))
}

var errNoColor = errors.New("fragment emit without color")

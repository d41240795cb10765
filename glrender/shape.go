package glrender

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/soypat/glmark"
	"github.com/soypat/glmark/glbuild"
)

// Shape is a compiled [glmark.Spec] bound to data records of type R.
type Shape[R any] struct {
	platform *Platform
	spec     *glmark.Spec
	view     glbuild.ViewKind
	index    string
	count    int
	bindings map[string]glmark.Binding[R]
	// Vertex inputs and fragment uniforms.
	inputs map[string]glmark.TypeDecl
	// Attribute inputs referenced by the vertex stage, sorted by name.
	attribs []string
	normal  *Program
	pick    *Program
}

// BufferSet holds the vertex buffers uploaded for one set of records.
type BufferSet struct {
	// VertexCount is records*replication.
	VertexCount int
	Buffers     map[string]BufferID
	// Lengths holds the float count of each buffer in Buffers.
	Lengths map[string]int
	backend Backend
}

// Delete releases all buffers in the set.
func (bs *BufferSet) Delete() {
	if bs == nil || bs.backend == nil {
		return
	}
	for _, name := range glmark.SortedNames(bs.Buffers) {
		bs.backend.DeleteBuffer(bs.Buffers[name])
	}
	clear(bs.Buffers)
	clear(bs.Lengths)
	bs.VertexCount = 0
}

// NewShape compiles the flattened spec f for the current view of p. Every input
// of f.Spec except f.IndexVariable must be bound. No shape is returned on failure.
func NewShape[R any](p *Platform, f glmark.Flattened, bindings map[string]glmark.Binding[R]) (*Shape[R], error) {
	if p == nil {
		return nil, errors.New("nil platform")
	} else if f.Spec == nil {
		return nil, errors.New("nil spec")
	} else if f.Count < 1 {
		return nil, fmt.Errorf("replication count %d must be positive", f.Count)
	}
	s := f.Spec
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if f.IndexVariable != "" {
		d, ok := s.Input[f.IndexVariable]
		if !ok {
			return nil, fmt.Errorf("%w: index variable %q", glmark.ErrUndeclared, f.IndexVariable)
		} else if d != glmark.Decl(glmark.Float) {
			return nil, fmt.Errorf("%w: index variable %q must be float, got %s", glmark.ErrUnsupportedInput, f.IndexVariable, d)
		}
	}
	inputs, fragUniforms := boundInputs(s)
	var errs []error
	for _, name := range glmark.SortedNames(inputs) {
		vd, vertex := s.Input[name]
		if vertex && fragUniforms[name] && vd != inputs[name] {
			errs = append(errs, fmt.Errorf("%w: %q declared as %s in vertex stage and %s in fragment stage", glmark.ErrUnsupportedInput, name, vd, inputs[name]))
			continue
		}
		if name == f.IndexVariable {
			if fragUniforms[name] {
				errs = append(errs, fmt.Errorf("%w: index variable %q cannot be a fragment input", glmark.ErrUnsupportedInput, name))
			}
			continue
		}
		b, ok := bindings[name]
		if !ok || b == nil {
			errs = append(errs, fmt.Errorf("%w: %q", glmark.ErrMissingBinding, name))
		} else if b.Type() != inputs[name] {
			errs = append(errs, fmt.Errorf("%w: binding of %q has type %s, want %s", glmark.ErrUnsupportedInput, name, b.Type(), inputs[name]))
		} else if !b.IsUniform() && (!vertex || fragUniforms[name] || glbuild.RequiresUniform(b.Type())) {
			errs = append(errs, fmt.Errorf("%w: %q of type %s must be bound as uniform", glmark.ErrUnsupportedInput, name, b.Type()))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	shape := &Shape[R]{
		platform: p,
		spec:     s,
		view:     p.view.Kind(),
		index:    f.IndexVariable,
		count:    f.Count,
		bindings: bindings,
		inputs:   inputs,
	}
	refs, _ := s.ReferencedInputs()
	for _, name := range glmark.SortedNames(s.Input) {
		if refs[name] && name != f.IndexVariable && !bindings[name].IsUniform() {
			shape.attribs = append(shape.attribs, name)
		}
	}
	cfg := glbuild.Config{
		View:      shape.view,
		Dialect:   p.dialect,
		IsUniform: shape.isUniform,
	}
	var err error
	shape.normal, err = shape.compile(cfg)
	if err != nil {
		return nil, err
	}
	if p.picking {
		cfg.Mode = glbuild.ModePick
		shape.pick, err = shape.compile(cfg)
		if err != nil {
			shape.normal.Delete()
			return nil, err
		}
	}
	for _, name := range glmark.SortedNames(inputs) {
		b := bindings[name]
		if name == f.IndexVariable || !b.IsUniform() {
			continue
		}
		err = shape.UpdateUniform(name, b.UniformValue())
		if err != nil {
			shape.Delete()
			return nil, err
		}
	}
	return shape, nil
}

// boundInputs returns the vertex inputs of s merged with the fragment inputs that are
// not interpolated vertex outputs, i.e: fragment uniforms. Fragment uniforms are also
// returned as a set since a name shared with a vertex input must be uniform in both stages.
func boundInputs(s *glmark.Spec) (inputs map[string]glmark.TypeDecl, fragUniforms map[string]bool) {
	inputs = make(map[string]glmark.TypeDecl, len(s.Input))
	fragUniforms = make(map[string]bool)
	for name, d := range s.Input {
		inputs[name] = d
	}
	if s.Fragment != nil {
		for name, d := range s.Fragment.Input {
			if _, varying := s.Output[name]; !varying {
				inputs[name] = d
				fragUniforms[name] = true
			}
		}
	}
	return inputs, fragUniforms
}

func (s *Shape[R]) isUniform(name string) bool {
	if name == s.index {
		return false
	}
	b := s.bindings[name]
	return b != nil && b.IsUniform()
}

func (s *Shape[R]) compile(cfg glbuild.Config) (*Program, error) {
	src, err := glbuild.Generate(s.spec, cfg)
	if err != nil {
		return nil, err
	}
	prog, err := NewProgram(s.platform.b, src.Vertex, src.Fragment)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			s.platform.log.Error("shape compilation failed", slog.String("mode", cfg.Mode.String()), slog.String("stage", ce.Stage.String()))
		}
		return nil, fmt.Errorf("%s program: %w", cfg.Mode, err)
	}
	s.platform.log.Debug("shape compiled",
		slog.String("mode", cfg.Mode.String()),
		slog.String("view", cfg.View.String()),
		slog.Int("vertex_bytes", len(src.Vertex)),
		slog.Int("fragment_bytes", len(src.Fragment)),
	)
	return prog, nil
}

// Programs returns the normal and pick programs. pick is nil when picking is disabled.
func (s *Shape[R]) Programs() (normal, pick *Program) { return s.normal, s.pick }

// UpdateUniform writes value to the uniform input name in all programs of the shape.
func (s *Shape[R]) UpdateUniform(name string, value []float64) error {
	d, ok := s.inputs[name]
	if !ok {
		return fmt.Errorf("%w: uniform %q", glmark.ErrUndeclared, name)
	} else if !s.isUniform(name) {
		return fmt.Errorf("%w: %q is not bound as uniform", glmark.ErrUnsupportedInput, name)
	}
	for _, prog := range [2]*Program{s.normal, s.pick} {
		if prog == nil {
			continue
		}
		prog.Use()
		if err := prog.SetUniform(name, d, value); err != nil {
			return err
		}
	}
	return nil
}

// UploadData builds vertex buffers for records. Each record is replicated into
// the shape's replication count of vertices.
func (s *Shape[R]) UploadData(records []R) (*BufferSet, error) {
	b := s.platform.b
	n := len(records)
	if s.pick != nil && n > MaxPickRecords {
		s.platform.log.Warn("too many records for picking", slog.Int("records", n), slog.Int("max", MaxPickRecords))
		return nil, fmt.Errorf("%d records exceed picking limit of %d", n, MaxPickRecords)
	}
	bs := &BufferSet{
		VertexCount: n * s.count,
		Buffers:     make(map[string]BufferID),
		Lengths:     make(map[string]int),
		backend:     b,
	}
	if bs.VertexCount == 0 {
		return bs, nil
	}
	add := func(name string, data []float32) error {
		buf, err := b.CreateBuffer(data)
		if err != nil {
			return fmt.Errorf("buffer %q: %w", name, err)
		}
		bs.Buffers[name] = buf
		bs.Lengths[name] = len(data)
		return nil
	}
	for _, name := range s.attribs {
		binding := s.bindings[name]
		data := make([]float32, binding.Type().Components()*bs.VertexCount)
		err := binding.FillBuffer(records, s.count, data)
		if err == nil {
			err = add(name, data)
		}
		if err != nil {
			bs.Delete()
			return nil, fmt.Errorf("input %q: %w", name, err)
		}
	}
	if s.index != "" {
		data := make([]float32, bs.VertexCount)
		for i := range data {
			data[i] = float32(i % s.count)
		}
		if err := add(s.index, data); err != nil {
			bs.Delete()
			return nil, err
		}
	}
	if s.pick != nil {
		data := make([]float32, 0, 4*bs.VertexCount)
		for i := 0; i < bs.VertexCount; i++ {
			c := EncodePick(uint32(i/s.count), 0)
			data = append(data, c[:]...)
		}
		if err := add(glbuild.PickAttribute, data); err != nil {
			bs.Delete()
			return nil, err
		}
	}
	return bs, nil
}

// Render draws bs with the program matching the platform's render mode.
// During a picking pass the shape is assigned a pick slot, but only once the
// view kind is known to match and there is something to draw.
func (s *Shape[R]) Render(bs *BufferSet) error {
	if bs == nil || bs.VertexCount == 0 {
		return nil
	}
	if kind := s.platform.view.Kind(); kind != s.view {
		return fmt.Errorf("platform view %s does not match shape compiled for %s view", kind, s.view)
	}
	if s.platform.mode != glbuild.ModePick {
		return s.renderBase(s.normal, bs, 0)
	}
	if s.pick == nil {
		return errNoPicking
	}
	slot, err := s.platform.AssignPickIndex(s)
	if err != nil {
		return err
	}
	return s.renderBase(s.pick, bs, slot)
}

func (s *Shape[R]) renderBase(prog *Program, bs *BufferSet, slot int) error {
	b := s.platform.b
	prog.Use()
	var enabled [32]uint32
	locs := enabled[:0]
	enable := func(name string, size int) error {
		loc, ok := prog.AttribLocation(name)
		if !ok {
			return nil
		}
		buf, ok := bs.Buffers[name]
		if !ok {
			return fmt.Errorf("%w: no buffer for attribute %q", glmark.ErrMissingBinding, name)
		}
		b.EnableAttrib(loc, buf, size)
		locs = append(locs, loc)
		return nil
	}
	var err error
	for _, name := range s.attribs {
		if err = enable(name, s.spec.Input[name].Components()); err != nil {
			break
		}
	}
	if err == nil && s.index != "" {
		err = enable(s.index, 1)
	}
	if err == nil && prog == s.pick {
		err = enable(glbuild.PickAttribute, 4)
	}
	if err == nil {
		for _, u := range s.platform.viewUniforms() {
			if err = prog.SetUniform(u.name, u.decl, u.value); err != nil {
				break
			}
		}
	}
	if err == nil && prog == s.pick {
		err = prog.SetUniform(glbuild.PickAlphaUniform, glmark.Decl(glmark.Float), []float64{float64(slot) / 255})
	}
	if err == nil {
		b.DrawTriangles(bs.VertexCount)
	}
	for _, loc := range locs {
		b.DisableAttrib(loc)
	}
	return err
}

// Delete releases the shape's programs.
func (s *Shape[R]) Delete() {
	s.normal.Delete()
	s.pick.Delete()
	s.normal, s.pick = nil, nil
}

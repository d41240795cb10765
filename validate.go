package glmark

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soypat/glmark/glbuild/glsllib"
)

// NameKind classifies what an identifier resolves to inside a [Scope].
type NameKind uint8

const (
	NameUndeclared NameKind = iota
	NameInput
	NameOutput
	NameVariable
	NameLoopIndex
)

// Scope resolves identifiers of one shader stage. Innermost loop indices take
// precedence, followed by variables, inputs and finally outputs.
type Scope struct {
	Input     map[string]TypeDecl
	Output    map[string]TypeDecl
	Variables map[string]TypeDecl
	loops     []string
}

// VertexScope returns the scope of the vertex stage of s.
func VertexScope(s *Spec) *Scope {
	return &Scope{Input: s.Input, Output: s.Output, Variables: s.Variables}
}

// FragmentScope returns the scope of the custom fragment stage of s. It panics if s has none.
func FragmentScope(s *Spec) *Scope {
	if s.Fragment == nil {
		panic("glmark: spec has no fragment stage")
	}
	return &Scope{Input: s.Fragment.Input, Variables: s.Fragment.Variables}
}

// PushLoop declares a loop index visible until the matching PopLoop.
func (sc *Scope) PushLoop(name string) { sc.loops = append(sc.loops, name) }

// PopLoop removes the innermost loop index.
func (sc *Scope) PopLoop() { sc.loops = sc.loops[:len(sc.loops)-1] }

// Resolve returns what name refers to and its declared type. Loop indices are Int.
func (sc *Scope) Resolve(name string) (NameKind, TypeDecl) {
	for i := len(sc.loops) - 1; i >= 0; i-- {
		if sc.loops[i] == name {
			return NameLoopIndex, Decl(Int)
		}
	}
	if d, ok := sc.Variables[name]; ok {
		return NameVariable, d
	}
	if d, ok := sc.Input[name]; ok {
		return NameInput, d
	}
	if d, ok := sc.Output[name]; ok {
		return NameOutput, d
	}
	return NameUndeclared, TypeDecl{}
}

// Validate checks that s is well formed. All problems found are
// returned joined in a single error.
func (s *Spec) Validate() error {
	v := validator{}
	v.validate(s)
	return errors.Join(v.errs...)
}

type validator struct {
	errs []error
}

func (v *validator) errorf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) validate(s *Spec) {
	if s == nil {
		v.errorf("%w: nil spec", ErrBadStatement)
		return
	}
	pos, ok := s.Output[OutputPosition]
	if !ok {
		v.errorf("%w: output %q not declared", ErrMissingPosition, OutputPosition)
	} else if pos.IsArray() || (pos.Type != Vector2 && pos.Type != Vector3 && pos.Type != Vector4) {
		v.errorf("%w: output %q must be Vector2, Vector3 or Vector4, got %s", ErrBadStatement, OutputPosition, pos)
	}
	v.decls("input", s.Input)
	v.decls("output", s.Output)
	v.decls("variable", s.Variables)
	for _, name := range SortedNames(s.Variables) {
		if _, ok := s.Input[name]; ok {
			v.errorf("%w: variable %q shadows input", ErrBadName, name)
		}
	}
	for _, name := range SortedNames(s.Output) {
		_, isInput := s.Input[name]
		_, isVariable := s.Variables[name]
		if isInput || isVariable {
			v.errorf("%w: output %q shadows input or variable", ErrBadName, name)
		}
	}
	v.lengthCompanions(s.Input, s.Output, s.Variables)
	sc := VertexScope(s)
	v.statements(sc, s.Statements, false)
	if s.Fragment != nil {
		f := s.Fragment
		v.decls("fragment input", f.Input)
		v.decls("fragment variable", f.Variables)
		for name, d := range f.Input {
			if out, isVarying := s.Output[name]; isVarying && out != d {
				v.errorf("%w: fragment input %q is %s but vertex output is %s", ErrBadStatement, name, d, out)
			}
		}
		v.statements(FragmentScope(s), f.Statements, true)
	}
}

func (v *validator) decls(what string, m map[string]TypeDecl) {
	for _, name := range SortedNames(m) {
		if err := ValidateName(name); err != nil {
			v.errorf("%s: %w", what, err)
		}
		if err := m[name].validate(); err != nil {
			v.errorf("%s %q: %w", what, name, err)
		}
	}
}

// lengthCompanions checks the implicit <name>_length uniform of array inputs
// does not collide with a declared name.
func (v *validator) lengthCompanions(inputs map[string]TypeDecl, others ...map[string]TypeDecl) {
	for _, name := range SortedNames(inputs) {
		if !inputs[name].IsArray() {
			continue
		}
		companion := name + "_length"
		_, collides := inputs[companion]
		for _, m := range others {
			_, ok := m[companion]
			collides = collides || ok
		}
		if collides {
			v.errorf("%w: %q collides with length of array input %q", ErrBadName, companion, name)
		}
	}
}

func (v *validator) statements(sc *Scope, stmts []Statement, fragment bool) {
	for _, stmt := range stmts {
		v.statement(sc, stmt, fragment)
	}
}

func (v *validator) statement(sc *Scope, stmt Statement, fragment bool) {
	switch st := stmt.(type) {
	case Assign:
		kind, _ := sc.Resolve(st.Target)
		switch kind {
		case NameVariable, NameOutput:
		case NameUndeclared:
			v.errorf("%w: assignment target %q", ErrUndeclared, st.Target)
		default:
			v.errorf("%w: cannot assign to %q", ErrBadStatement, st.Target)
		}
		v.expression(sc, st.Expr)
	case Condition:
		if len(st.True) == 0 && len(st.False) == 0 {
			v.errorf("%w", ErrDegenerateCondition)
		}
		v.expression(sc, st.Cond)
		v.statements(sc, st.True, fragment)
		v.statements(sc, st.False, fragment)
	case ForLoop:
		if err := ValidateName(st.Var); err != nil {
			v.errorf("loop index: %w", err)
		} else if kind, _ := sc.Resolve(st.Var); kind != NameUndeclared {
			v.errorf("%w: loop index %q shadows declared name", ErrBadName, st.Var)
		}
		if st.Min > st.Max {
			v.errorf("%w: loop %q range %d..%d is descending", ErrBadStatement, st.Var, st.Min, st.Max)
		}
		sc.PushLoop(st.Var)
		v.statements(sc, st.Body, fragment)
		sc.PopLoop()
	case Emit:
		for _, name := range SortedNames(st.Attributes) {
			if fragment {
				if name != OutputColor {
					v.errorf("%w: fragment emit of %q, only %q allowed", ErrBadStatement, name, OutputColor)
				}
			} else if _, ok := sc.Output[name]; !ok {
				v.errorf("%w: emit of undeclared output %q", ErrUndeclared, name)
			}
			v.expression(sc, st.Attributes[name])
		}
	case nil:
		v.errorf("%w: nil statement", ErrBadStatement)
	default:
		v.errorf("%w: unknown statement %T", ErrBadStatement, stmt)
	}
}

func (v *validator) expression(sc *Scope, expr Expression) {
	switch e := expr.(type) {
	case Constant:
		if _, err := AppendConstant(nil, e.Type, e.Value); err != nil {
			v.errs = append(v.errs, err)
		}
	case Variable:
		if kind, _ := sc.Resolve(e.Name); kind == NameUndeclared {
			v.errorf("%w: %q", ErrUndeclared, e.Name)
		}
	case Field:
		if !isSwizzle(e.Name) {
			v.errorf("%w: field %q", ErrBadName, e.Name)
		}
		v.expression(sc, e.Base)
	case Function:
		if !glsllib.Known(e.Name) {
			v.errorf("%w: %q", ErrUnknownFunction, e.Name)
		}
		for _, arg := range e.Args {
			v.expression(sc, arg)
		}
	case nil:
		v.errorf("%w: nil expression", ErrBadStatement)
	default:
		v.errorf("%w: unknown expression %T", ErrBadStatement, expr)
	}
}

// ValidateName checks name is a usable identifier in generated shaders.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrBadName)
	} else if strings.HasPrefix(name, "gl_") || strings.HasPrefix(name, ReservedPrefix) {
		return fmt.Errorf("%w: %q uses reserved prefix", ErrBadName, name)
	}
	for i, c := range name {
		letter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		digit := c >= '0' && c <= '9'
		if !letter && !(digit && i > 0) {
			return fmt.Errorf("%w: %q", ErrBadName, name)
		}
	}
	return nil
}

func isSwizzle(s string) bool {
	if len(s) == 0 || len(s) > 4 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("xyzwrgbastpq", c) {
			return false
		}
	}
	return true
}

// ReferencedInputs returns the inputs read by the vertex statements and, if
// present, the inputs read by the custom fragment statements.
func (s *Spec) ReferencedInputs() (vertex, fragment map[string]bool) {
	vertex = make(map[string]bool)
	collectStatements(VertexScope(s), s.Statements, vertex)
	if s.Fragment != nil {
		fragment = make(map[string]bool)
		collectStatements(FragmentScope(s), s.Fragment.Statements, fragment)
	}
	return vertex, fragment
}

func collectStatements(sc *Scope, stmts []Statement, dst map[string]bool) {
	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case Assign:
			collectExpression(sc, st.Expr, dst)
		case Condition:
			collectExpression(sc, st.Cond, dst)
			collectStatements(sc, st.True, dst)
			collectStatements(sc, st.False, dst)
		case ForLoop:
			sc.PushLoop(st.Var)
			collectStatements(sc, st.Body, dst)
			sc.PopLoop()
		case Emit:
			for _, e := range st.Attributes {
				collectExpression(sc, e, dst)
			}
		}
	}
}

func collectExpression(sc *Scope, expr Expression, dst map[string]bool) {
	switch e := expr.(type) {
	case Variable:
		if kind, _ := sc.Resolve(e.Name); kind == NameInput {
			dst[e.Name] = true
		}
	case Field:
		collectExpression(sc, e.Base, dst)
	case Function:
		for _, arg := range e.Args {
			collectExpression(sc, arg, dst)
		}
	}
}

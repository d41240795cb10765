package glbuild

import (
	"fmt"
	"strconv"

	"github.com/soypat/glmark"
	"github.com/soypat/glmark/glbuild/glsllib"
)

// shaderWriter lowers statements of one shader stage. Declarations, helper
// functions and the body are accumulated separately and joined in that order
// so helpers are defined before main regardless of when they are discovered.
type shaderWriter struct {
	decl    []byte
	body    []byte
	helpers []glsllib.Function
	indent  int
	scope   *glmark.Scope
	dialect Dialect
	// rename maps outputs (vertex) or varying inputs (fragment) to varying names.
	rename map[string]string

	fragment bool
	fragOut  string

	pick     bool
	project  string
	position string
	posType  glmark.Type
}

func (w *shaderWriter) addHelper(fn glsllib.Function) {
	w.helpers = glsllib.AppendWithDeps(w.helpers, fn)
}

func (w *shaderWriter) line(parts ...string) {
	for i := 0; i < w.indent; i++ {
		w.body = append(w.body, '\t')
	}
	for _, part := range parts {
		w.body = append(w.body, part...)
	}
	w.body = append(w.body, '\n')
}

func (w *shaderWriter) declare(name string, d glmark.TypeDecl) {
	for i := 0; i < w.indent; i++ {
		w.body = append(w.body, '\t')
	}
	w.body = glmark.AppendDecl(w.body, name, d)
	w.body = append(w.body, ";\n"...)
}

func (w *shaderWriter) appendTo(dst []byte) []byte {
	dst = append(dst, w.decl...)
	for _, fn := range w.helpers {
		dst = append(dst, fn.Source...)
		dst = append(dst, '\n')
	}
	return append(dst, w.body...)
}

func (w *shaderWriter) name(name string) (string, error) {
	kind, _ := w.scope.Resolve(name)
	switch kind {
	case glmark.NameUndeclared:
		return "", fmt.Errorf("%w: %q", glmark.ErrUndeclared, name)
	case glmark.NameOutput, glmark.NameInput:
		if varying, ok := w.rename[name]; ok {
			return varying, nil
		}
	}
	return name, nil
}

func (w *shaderWriter) expr(expr glmark.Expression) (string, error) {
	switch e := expr.(type) {
	case glmark.Constant:
		if e.Type.IsArray() && w.dialect == DialectES100 {
			// GLSL ES 1.00 has no array constructors.
			return "", fmt.Errorf("%w: array constant %s requires DialectCore410", glmark.ErrBadConstant, e.Type)
		}
		b, err := glmark.AppendConstant(nil, e.Type, e.Value)
		return string(b), err
	case glmark.Variable:
		return w.name(e.Name)
	case glmark.Field:
		base, err := w.expr(e.Base)
		if err != nil {
			return "", err
		}
		return base + "." + e.Name, nil
	case glmark.Function:
		args := make([]string, len(e.Args))
		for i, arg := range e.Args {
			a, err := w.expr(arg)
			if err != nil {
				return "", err
			}
			args[i] = a
		}
		call, err := glsllib.Resolve(e.Name, args)
		if err != nil {
			return "", err
		}
		for _, fn := range call.Helpers {
			w.addHelper(fn)
		}
		return call.Expr, nil
	}
	return "", fmt.Errorf("%w: unknown expression %T", glmark.ErrBadStatement, expr)
}

func (w *shaderWriter) statements(stmts []glmark.Statement) error {
	for _, stmt := range stmts {
		if err := w.statement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (w *shaderWriter) block(stmts []glmark.Statement) error {
	w.indent++
	err := w.statements(stmts)
	w.indent--
	return err
}

func (w *shaderWriter) statement(stmt glmark.Statement) error {
	switch st := stmt.(type) {
	case glmark.Assign:
		target, err := w.name(st.Target)
		if err != nil {
			return err
		}
		value, err := w.expr(st.Expr)
		if err != nil {
			return err
		}
		w.line(target, " = ", value, ";")

	case glmark.Condition:
		cond, err := w.expr(st.Cond)
		if err != nil {
			return err
		}
		switch {
		case len(st.True) > 0:
			w.line("if (", cond, ") {")
			if err := w.block(st.True); err != nil {
				return err
			}
			if len(st.False) > 0 {
				w.line("} else {")
				if err := w.block(st.False); err != nil {
					return err
				}
			}
		case len(st.False) > 0:
			w.line("if (!(", cond, ")) {")
			if err := w.block(st.False); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: if (%s)", glmark.ErrDegenerateCondition, cond)
		}
		w.line("}")

	case glmark.ForLoop:
		if st.Min > st.Max {
			return fmt.Errorf("%w: loop %q range %d..%d is descending", glmark.ErrBadStatement, st.Var, st.Min, st.Max)
		}
		w.line("for (int ", st.Var, " = ", strconv.Itoa(st.Min), "; ", st.Var, " <= ", strconv.Itoa(st.Max), "; ", st.Var, "++) {")
		w.scope.PushLoop(st.Var)
		err := w.block(st.Body)
		w.scope.PopLoop()
		if err != nil {
			return err
		}
		w.line("}")

	case glmark.Emit:
		return w.emit(st)

	default:
		return fmt.Errorf("%w: unknown statement %T", glmark.ErrBadStatement, stmt)
	}
	return nil
}

func (w *shaderWriter) emit(st glmark.Emit) error {
	if w.fragment {
		color, ok := st.Attributes[glmark.OutputColor]
		if !ok {
			return fmt.Errorf("%w: %w", glmark.ErrBadStatement, errNoColor)
		}
		value, err := w.expr(color)
		if err != nil {
			return err
		}
		w.line(w.fragOut, " = ", value, ";")
		return nil
	}
	for _, name := range glmark.SortedNames(st.Attributes) {
		target, ok := w.rename[name]
		if !ok {
			return fmt.Errorf("%w: emit of undeclared output %q", glmark.ErrUndeclared, name)
		}
		value, err := w.expr(st.Attributes[name])
		if err != nil {
			return err
		}
		w.line(target, " = ", value, ";")
	}
	if w.pick {
		w.line(PickVarying, " = vec4(", PickAttribute, ".xyz, ", PickAlphaUniform, ");")
	}
	var point string
	switch w.posType {
	case glmark.Vector2:
		point = "vec3(" + w.position + ", 0.0)"
	case glmark.Vector3:
		point = w.position
	case glmark.Vector4:
		point = w.position + ".xyz"
	default:
		return fmt.Errorf("%w: position of type %s", glmark.ErrMissingPosition, w.posType)
	}
	w.line("gl_Position = ", w.project, "(", point, ");")
	return nil
}

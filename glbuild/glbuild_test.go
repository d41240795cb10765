package glbuild_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/soypat/glmark"
	"github.com/soypat/glmark/glbuild"
)

// scatterSpec emits one vertex per record at (x, y).
func scatterSpec() *glmark.Spec {
	return &glmark.Spec{
		Input: map[string]glmark.TypeDecl{
			"x": glmark.Decl(glmark.Float),
			"y": glmark.Decl(glmark.Float),
		},
		Output: map[string]glmark.TypeDecl{
			glmark.OutputPosition: glmark.Decl(glmark.Vector2),
		},
		Statements: []glmark.Statement{
			glmark.Emit{Attributes: map[string]glmark.Expression{
				glmark.OutputPosition: glmark.Call("Vector2", glmark.Var("x"), glmark.Var("y")),
			}},
		},
	}
}

func TestScatterVertex(t *testing.T) {
	src, err := glbuild.Generate(scatterSpec(), glbuild.Config{View: glbuild.View2D})
	if err != nil {
		t.Fatal(err)
	}
	v := src.Vertex
	for _, want := range []string{
		"attribute float x;",
		"attribute float y;",
		"uniform vec4 glm_view_params;",
		"varying vec2 out_position;",
		"out_position = vec2(x, y);",
		"gl_Position = glm_project(vec3(out_position, 0.0));",
	} {
		if c := strings.Count(v, want); c != 1 {
			t.Errorf("want one %q, got %d in\n%s", want, c, v)
		}
	}
	if c := strings.Count(v, "gl_Position ="); c != 1 {
		t.Errorf("want one position write, got %d", c)
	}
	if strings.Contains(v, "glm_pick_index") {
		t.Error("pick attribute declared in normal mode")
	}
	// Declaration order: precision, uniforms, attributes, varyings, helpers, main.
	order := []string{"precision highp float;", "uniform ", "attribute ", "varying ", "vec4 glm_project(vec3 p)", "void main()"}
	last := -1
	for _, tok := range order {
		idx := strings.Index(v, tok)
		if idx < 0 {
			t.Fatalf("missing %q", tok)
		} else if idx < last {
			t.Errorf("%q out of order in\n%s", tok, v)
		}
		last = idx
	}
	if !strings.Contains(src.Fragment, "gl_FragColor = vec4(0.0, 0.0, 0.0, 1.0);") {
		t.Errorf("expected opaque black default fragment, got\n%s", src.Fragment)
	}
}

func TestPickFragmentIgnoresColor(t *testing.T) {
	spec := scatterSpec()
	spec.Output[glmark.OutputColor] = glmark.Decl(glmark.Color)
	spec.Input["c"] = glmark.Decl(glmark.Color)
	spec.Statements = []glmark.Statement{
		glmark.Emit{Attributes: map[string]glmark.Expression{
			glmark.OutputPosition: glmark.Call("Vector2", glmark.Var("x"), glmark.Var("y")),
			glmark.OutputColor:    glmark.Var("c"),
		}},
	}
	src, err := glbuild.Generate(spec, glbuild.Config{View: glbuild.View2D, Mode: glbuild.ModePick})
	if err != nil {
		t.Fatal(err)
	}
	f := src.Fragment
	if c := strings.Count(f, "gl_FragColor"); c != 1 {
		t.Errorf("want single fragment write, got %d in\n%s", c, f)
	}
	if !strings.Contains(f, "gl_FragColor = out_pick_index;") {
		t.Errorf("fragment does not pass pick varying:\n%s", f)
	}
	if strings.Contains(f, "out_color") {
		t.Errorf("pick fragment references color:\n%s", f)
	}
	v := src.Vertex
	for _, want := range []string{
		"attribute vec4 glm_pick_index;",
		"uniform float glm_pick_index_alpha;",
		"varying vec4 out_pick_index;",
		"out_pick_index = vec4(glm_pick_index.xyz, glm_pick_index_alpha);",
	} {
		if c := strings.Count(v, want); c != 1 {
			t.Errorf("want one %q, got %d in\n%s", want, c, v)
		}
	}
	if strings.Index(v, "out_pick_index = ") > strings.Index(v, "gl_Position = ") {
		t.Error("pick varying must be written before position")
	}
}

func TestOnlyReferencedInputsDeclared(t *testing.T) {
	spec := scatterSpec()
	spec.Input["unused"] = glmark.Decl(glmark.Vector3)
	spec.Input["scale"] = glmark.Decl(glmark.Float)
	spec.Input["weights"] = glmark.ArrayDecl(glmark.Float, 4)
	spec.Variables = map[string]glmark.TypeDecl{"px": glmark.Decl(glmark.Float)}
	spec.Statements = append([]glmark.Statement{
		glmark.Assign{Target: "px", Expr: glmark.Call("*", glmark.Var("x"), glmark.Var("scale"))},
		glmark.Assign{Target: "px", Expr: glmark.Call("+", glmark.Var("px"), glmark.Call("index", glmark.Var("weights"), glmark.IntConst(1)))},
	}, spec.Statements...)
	uniforms := map[string]bool{"scale": true, "weights": true}
	src, err := glbuild.Generate(spec, glbuild.Config{
		View:      glbuild.View2D,
		IsUniform: func(name string) bool { return uniforms[name] },
	})
	if err != nil {
		t.Fatal(err)
	}
	v := src.Vertex
	if strings.Contains(v, "unused") {
		t.Errorf("unreferenced input declared:\n%s", v)
	}
	for _, want := range []string{
		"uniform float scale;",
		"uniform float weights[4];",
		"uniform int weights_length;",
		"attribute float x;",
		"\tfloat px;\n",
		"px = (x * scale);",
		"px = (px + weights[1]);",
	} {
		if c := strings.Count(v, want); c != 1 {
			t.Errorf("want one %q, got %d in\n%s", want, c, v)
		}
	}
	if strings.Index(v, "uniform int weights_length;") > strings.Index(v, "uniform vec4 glm_view_params;") {
		t.Error("input uniforms must precede view uniforms")
	}
}

func TestConditionForms(t *testing.T) {
	assignX := []glmark.Statement{glmark.Assign{Target: "t", Expr: glmark.FloatConst(1)}}
	assignY := []glmark.Statement{glmark.Assign{Target: "t", Expr: glmark.FloatConst(2)}}
	tests := []struct {
		cond      glmark.Condition
		want      []string
		forbidden []string
	}{
		{
			cond: glmark.Condition{Cond: glmark.Var("flag"), True: assignX, False: assignY},
			want: []string{"if (flag) {", "} else {", "t = 1.00000;", "t = 2.00000;"},
		},
		{
			cond:      glmark.Condition{Cond: glmark.Var("flag"), True: assignX},
			want:      []string{"if (flag) {", "t = 1.00000;"},
			forbidden: []string{"else"},
		},
		{
			cond:      glmark.Condition{Cond: glmark.Var("flag"), False: assignY},
			want:      []string{"if (!(flag)) {", "t = 2.00000;"},
			forbidden: []string{"else"},
		},
	}
	for _, test := range tests {
		spec := scatterSpec()
		spec.Input["flag"] = glmark.Decl(glmark.Bool)
		spec.Variables = map[string]glmark.TypeDecl{"t": glmark.Decl(glmark.Float)}
		spec.Statements = append([]glmark.Statement{test.cond}, spec.Statements...)
		src, err := glbuild.Generate(spec, glbuild.Config{})
		if err != nil {
			t.Fatal(err)
		}
		for _, want := range test.want {
			if !strings.Contains(src.Vertex, want) {
				t.Errorf("missing %q in\n%s", want, src.Vertex)
			}
		}
		for _, bad := range test.forbidden {
			if strings.Contains(src.Vertex, bad) {
				t.Errorf("unexpected %q in\n%s", bad, src.Vertex)
			}
		}
		if !strings.Contains(src.Vertex, "uniform bool flag;") {
			t.Errorf("bool input should default to uniform:\n%s", src.Vertex)
		}
	}

	spec := scatterSpec()
	spec.Input["flag"] = glmark.Decl(glmark.Bool)
	spec.Statements = append([]glmark.Statement{glmark.Condition{Cond: glmark.Var("flag")}}, spec.Statements...)
	_, err := glbuild.Generate(spec, glbuild.Config{})
	if !errors.Is(err, glmark.ErrDegenerateCondition) {
		t.Errorf("want degenerate condition error, got %v", err)
	}
}

func TestForLoopAndHelperDedup(t *testing.T) {
	spec := &glmark.Spec{
		Input: map[string]glmark.TypeDecl{
			"center": glmark.Decl(glmark.Vector3),
			"q":      glmark.Decl(glmark.Quaternion),
			"hcl":    glmark.Decl(glmark.Vector4),
		},
		Output: map[string]glmark.TypeDecl{
			glmark.OutputPosition: glmark.Decl(glmark.Vector3),
			glmark.OutputColor:    glmark.Decl(glmark.Color),
		},
		Variables: map[string]glmark.TypeDecl{"p": glmark.Decl(glmark.Vector3)},
		Statements: []glmark.Statement{
			glmark.Assign{Target: "p", Expr: glmark.Var("center")},
			glmark.ForLoop{Var: "i", Min: 0, Max: 2, Body: []glmark.Statement{
				glmark.Assign{Target: "p", Expr: glmark.Call("quat_rotate", glmark.Var("q"), glmark.Var("p"))},
				glmark.Assign{Target: "color", Expr: glmark.Call("hcl2rgb", glmark.Var("hcl"))},
			}},
			glmark.Emit{Attributes: map[string]glmark.Expression{
				glmark.OutputPosition: glmark.Call("quat_rotate", glmark.Var("q"), glmark.Var("p")),
				glmark.OutputColor:    glmark.Call("lab2rgb", glmark.Var("hcl")),
			}},
		},
	}
	src, err := glbuild.Generate(spec, glbuild.Config{View: glbuild.View3D})
	if err != nil {
		t.Fatal(err)
	}
	v := src.Vertex
	for _, decl := range []string{
		"vec3 glm_quat_rotate(vec4 q, vec3 v)",
		"vec4 glm_lab2rgb(vec4 lab)",
		"vec4 glm_hcl2rgb(vec4 hcl)",
		"vec4 glm_project(vec3 p)",
	} {
		if c := strings.Count(v, decl); c != 1 {
			t.Errorf("want one definition of %q, got %d", decl, c)
		}
	}
	if strings.Index(v, "vec4 glm_lab2rgb(") > strings.Index(v, "vec4 glm_hcl2rgb(") {
		t.Error("helper dependency must be defined first")
	}
	if strings.Index(v, "vec3 glm_quat_rotate(") > strings.Index(v, "void main()") {
		t.Error("helpers must be defined before main")
	}
	for _, want := range []string{
		"for (int i = 0; i <= 2; i++) {",
		"\t\tp = glm_quat_rotate(q, p);\n",
		"out_color = glm_hcl2rgb(hcl);",
		"uniform vec3 glm_view_position;",
		"uniform vec4 glm_view_rotation;",
		"gl_Position = glm_project(out_position);",
	} {
		if !strings.Contains(v, want) {
			t.Errorf("missing %q in\n%s", want, v)
		}
	}
}

func TestDialectCore410(t *testing.T) {
	spec := scatterSpec()
	spec.Output[glmark.OutputNormal] = glmark.Decl(glmark.Vector3)
	src, err := glbuild.Generate(spec, glbuild.Config{View: glbuild.ViewExternal, Dialect: glbuild.DialectCore410})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(src.Vertex, "#version 410 core\n") || !strings.HasPrefix(src.Fragment, "#version 410 core\n") {
		t.Error("missing version directive")
	}
	for _, want := range []string{"in float x;", "out vec2 out_position;", "uniform mat4 glm_projection_matrix;", "uniform mat4 glm_view_matrix;"} {
		if !strings.Contains(src.Vertex, want) {
			t.Errorf("missing %q in\n%s", want, src.Vertex)
		}
	}
	for _, want := range []string{"in vec3 out_normal;", "out vec4 glm_frag_color;", "glm_frag_color = glm_shade(glm_frag_color, out_normal);"} {
		if !strings.Contains(src.Fragment, want) {
			t.Errorf("missing %q in\n%s", want, src.Fragment)
		}
	}
	if strings.Contains(src.Vertex, "attribute") || strings.Contains(src.Fragment, "gl_FragColor") {
		t.Error("ES 1.00 keywords in core profile source")
	}
}

func TestCustomFragment(t *testing.T) {
	spec := scatterSpec()
	spec.Output["value"] = glmark.Decl(glmark.Float)
	spec.Statements = append([]glmark.Statement{glmark.Assign{Target: "value", Expr: glmark.Var("x")}}, spec.Statements...)
	spec.Fragment = &glmark.FragmentSpec{
		Input: map[string]glmark.TypeDecl{
			"value": glmark.Decl(glmark.Float),
			"tint":  glmark.Decl(glmark.Color),
			"idle":  glmark.Decl(glmark.Float),
		},
		Statements: []glmark.Statement{
			glmark.Emit{Attributes: map[string]glmark.Expression{
				glmark.OutputColor: glmark.Call("*", glmark.Var("tint"), glmark.Var("value")),
			}},
		},
	}
	src, err := glbuild.Generate(spec, glbuild.Config{})
	if err != nil {
		t.Fatal(err)
	}
	f := src.Fragment
	for _, want := range []string{"uniform vec4 tint;", "varying float out_value;", "gl_FragColor = (tint * out_value);"} {
		if c := strings.Count(f, want); c != 1 {
			t.Errorf("want one %q, got %d in\n%s", want, c, f)
		}
	}
	if strings.Contains(f, "idle") {
		t.Errorf("unreferenced fragment uniform declared:\n%s", f)
	}
	if !strings.Contains(src.Vertex, "out_value = x;") {
		t.Errorf("output assignment not lowered to varying:\n%s", src.Vertex)
	}
}

func TestVaryingNameCollision(t *testing.T) {
	spec := scatterSpec()
	spec.Input["out_position"] = glmark.Decl(glmark.Float)
	spec.Statements = append([]glmark.Statement{glmark.Assign{Target: "position", Expr: glmark.Call("Vector2", glmark.Var("out_position"))}}, spec.Statements...)
	src, err := glbuild.Generate(spec, glbuild.Config{})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"attribute float out_position;", "varying vec2 out_position_1;", "out_position_1 = vec2(out_position);"} {
		if !strings.Contains(src.Vertex, want) {
			t.Errorf("missing %q in\n%s", want, src.Vertex)
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *glmark.Spec)
		want   error
	}{
		{"missing position", func(s *glmark.Spec) { delete(s.Output, glmark.OutputPosition) }, glmark.ErrMissingPosition},
		{"unknown function", func(s *glmark.Spec) {
			s.Statements = []glmark.Statement{glmark.Emit{Attributes: map[string]glmark.Expression{
				glmark.OutputPosition: glmark.Call("frobnicate", glmark.Var("x")),
			}}}
		}, glmark.ErrUnknownFunction},
		{"undeclared", func(s *glmark.Spec) {
			s.Statements = []glmark.Statement{glmark.Emit{Attributes: map[string]glmark.Expression{
				glmark.OutputPosition: glmark.Call("Vector2", glmark.Var("z")),
			}}}
		}, glmark.ErrUndeclared},
		{"unknown type", func(s *glmark.Spec) { s.Input["bad"] = glmark.TypeDecl{} }, glmark.ErrUnknownType},
		{"matrix attribute", func(s *glmark.Spec) {
			s.Input["m"] = glmark.Decl(glmark.Matrix4)
			s.Statements = append([]glmark.Statement{glmark.Assign{Target: "position", Expr: glmark.Field{Base: glmark.Call("*", glmark.Var("m"), glmark.Call("Vector4", glmark.Var("x"))), Name: "xy"}}}, s.Statements...)
		}, glmark.ErrUnsupportedInput},
		{"fragment uniform shares attribute", func(s *glmark.Spec) {
			s.Fragment = &glmark.FragmentSpec{
				Input: map[string]glmark.TypeDecl{"x": glmark.Decl(glmark.Float)},
				Statements: []glmark.Statement{glmark.Emit{Attributes: map[string]glmark.Expression{
					glmark.OutputColor: glmark.Call("Color", glmark.Var("x"), glmark.Var("x"), glmark.Var("x"), glmark.FloatConst(1)),
				}}},
			}
		}, glmark.ErrUnsupportedInput},
		{"array constant in ES 1.00", func(s *glmark.Spec) {
			s.Variables = map[string]glmark.TypeDecl{"k": glmark.ArrayDecl(glmark.Float, 2)}
			s.Statements = append([]glmark.Statement{glmark.Assign{Target: "k", Expr: glmark.Constant{Type: glmark.ArrayDecl(glmark.Float, 2), Value: []float64{1, 2}}}}, s.Statements...)
		}, glmark.ErrBadConstant},
	}
	for _, test := range tests {
		spec := scatterSpec()
		test.modify(spec)
		cfg := glbuild.Config{IsUniform: func(string) bool { return false }}
		_, err := glbuild.Generate(spec, cfg)
		if !errors.Is(err, test.want) {
			t.Errorf("%s: want %v, got %v", test.name, test.want, err)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	spec := scatterSpec()
	for i := 0; i < 4; i++ {
		spec.Input[string(rune('a'+i))] = glmark.Decl(glmark.Float)
	}
	first, err := glbuild.Generate(spec, glbuild.Config{View: glbuild.View3D, Mode: glbuild.ModePick})
	if err != nil {
		t.Fatal(err)
	}
	p, err := glbuild.NewProgrammer(glbuild.Config{View: glbuild.View3D, Mode: glbuild.ModePick})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		var buf bytes.Buffer
		n, err := p.WriteVertex(&buf, spec)
		if err != nil {
			t.Fatal(err)
		} else if n != buf.Len() {
			t.Fatal("written length mismatch")
		}
		if buf.String() != first.Vertex {
			t.Fatalf("nondeterministic output:\n%s\n\n%s", buf.String(), first.Vertex)
		}
	}
}

func TestArrayConstantCore410(t *testing.T) {
	spec := scatterSpec()
	spec.Variables = map[string]glmark.TypeDecl{"k": glmark.ArrayDecl(glmark.Float, 2)}
	spec.Statements = append([]glmark.Statement{glmark.Assign{Target: "k", Expr: glmark.Constant{Type: glmark.ArrayDecl(glmark.Float, 2), Value: []float64{1, 2}}}}, spec.Statements...)
	src, err := glbuild.Generate(spec, glbuild.Config{Dialect: glbuild.DialectCore410})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(src.Vertex, "k = float[2](1.00000, 2.00000);") {
		t.Errorf("missing array constructor in\n%s", src.Vertex)
	}
}

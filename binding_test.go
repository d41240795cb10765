package glmark_test

import (
	"testing"

	"github.com/soypat/glmark"
)

type point struct {
	X, Y float32
}

func TestAttributeFillBuffer(t *testing.T) {
	records := []point{{0, 0}, {10, 20}, {-1, 3}}
	xy := glmark.AttributeBinding[point]{
		Decl: glmark.Decl(glmark.Vector2),
		Value: func(dst []float32, p point) []float32 {
			return append(dst, p.X, p.Y)
		},
	}
	const rep = 3
	dst := make([]float32, xy.Type().Components()*len(records)*rep)
	if err := xy.FillBuffer(records, rep, dst); err != nil {
		t.Fatal(err)
	}
	for i, p := range records {
		for j := 0; j < rep; j++ {
			off := (i*rep + j) * 2
			if dst[off] != p.X || dst[off+1] != p.Y {
				t.Fatalf("record %d vertex %d: got (%v,%v)", i, j, dst[off], dst[off+1])
			}
		}
	}
	if err := xy.FillBuffer(records, rep, dst[1:]); err == nil {
		t.Error("expected error on wrongly sized buffer")
	}
	if err := xy.FillBuffer(records, 0, dst[:0]); err == nil {
		t.Error("expected error on zero replication")
	}
	short := glmark.AttributeBinding[point]{
		Decl:  glmark.Decl(glmark.Vector2),
		Value: func(dst []float32, p point) []float32 { return append(dst, p.X) },
	}
	if err := short.FillBuffer(records, 1, make([]float32, 6)); err == nil {
		t.Error("expected error on component count mismatch")
	}
}

func TestFloatAttribute(t *testing.T) {
	x := glmark.FloatAttribute(func(p point) float32 { return p.X })
	if x.IsUniform() || x.Type() != glmark.Decl(glmark.Float) {
		t.Fatal("unexpected float attribute binding")
	}
	dst := make([]float32, 2)
	if err := x.FillBuffer([]point{{X: 4}, {X: 5}}, 1, dst); err != nil {
		t.Fatal(err)
	} else if dst[0] != 4 || dst[1] != 5 {
		t.Errorf("got %v", dst)
	}
}

func TestUniformBinding(t *testing.T) {
	u := glmark.UniformBinding[point]{Decl: glmark.Decl(glmark.Float), Value: []float64{2}}
	if !u.IsUniform() || u.UniformValue()[0] != 2 {
		t.Fatal("unexpected uniform binding")
	}
	if err := u.FillBuffer(nil, 1, nil); err == nil {
		t.Error("uniform binding should not fill buffers")
	}
}

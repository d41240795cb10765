package glmark

import (
	"errors"
	"fmt"
)

// Binding supplies the value of one [Spec] input, either once per draw (uniform)
// or once per vertex through a buffer filled from data records of type R.
type Binding[R any] interface {
	// IsUniform reports whether the input is constant for an entire draw call.
	IsUniform() bool
	// Type returns the declared type of the bound value.
	Type() TypeDecl
	// UniformValue returns the uniform value. Only called when IsUniform is true.
	UniformValue() []float64
	// FillBuffer writes Type().Components() values per vertex for every record
	// replicated replication times into dst, which is exactly sized.
	FillBuffer(records []R, replication int, dst []float32) error
}

var errUniformFill = errors.New("uniform binding does not fill buffers")

// UniformBinding binds a constant value to an input.
type UniformBinding[R any] struct {
	Decl  TypeDecl
	Value []float64
}

var _ Binding[struct{}] = UniformBinding[struct{}]{} // Interface implementation compile-time check.

func (ub UniformBinding[R]) IsUniform() bool { return true }
func (ub UniformBinding[R]) Type() TypeDecl { return ub.Decl }
func (ub UniformBinding[R]) UniformValue() []float64 { return ub.Value }
func (ub UniformBinding[R]) FillBuffer([]R, int, []float32) error { return errUniformFill }

// AttributeBinding binds a per-record value to an input. Every vertex produced
// from one record receives the same value.
type AttributeBinding[R any] struct {
	Decl TypeDecl
	// Value appends the components of r's value to dst and returns the result.
	Value func(dst []float32, r R) []float32
}

var _ Binding[struct{}] = AttributeBinding[struct{}]{} // Interface implementation compile-time check.

func (ab AttributeBinding[R]) IsUniform() bool { return false }
func (ab AttributeBinding[R]) Type() TypeDecl { return ab.Decl }
func (ab AttributeBinding[R]) UniformValue() []float64 { return nil }

// FillBuffer implements [Binding] by replicating each record's value.
func (ab AttributeBinding[R]) FillBuffer(records []R, replication int, dst []float32) error {
	arity := ab.Decl.Components()
	if ab.Value == nil {
		return errors.New("nil AttributeBinding.Value")
	} else if replication < 1 {
		return fmt.Errorf("replication factor %d must be positive", replication)
	} else if len(dst) != arity*len(records)*replication {
		return fmt.Errorf("buffer length %d, want %d", len(dst), arity*len(records)*replication)
	}
	var scratch []float32
	off := 0
	for i := range records {
		scratch = ab.Value(scratch[:0], records[i])
		if len(scratch) != arity {
			return fmt.Errorf("record %d produced %d components, want %d", i, len(scratch), arity)
		}
		for j := 0; j < replication; j++ {
			off += copy(dst[off:], scratch)
		}
	}
	return nil
}

// FloatAttribute is shorthand for a float [AttributeBinding] read by fn.
func FloatAttribute[R any](fn func(r R) float32) AttributeBinding[R] {
	return AttributeBinding[R]{
		Decl: Decl(Float),
		Value: func(dst []float32, r R) []float32 {
			return append(dst, fn(r))
		},
	}
}

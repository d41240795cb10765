package glmark

import (
	"errors"
	"maps"
	"slices"

	"github.com/soypat/glmark/glbuild/glsllib"
)

// Reserved output names with special meaning to the code generator.
const (
	OutputPosition = "position"
	OutputColor    = "color"
	OutputNormal   = "normal"
)

// ReservedPrefix prefixes all identifiers introduced by glmark into generated shaders.
const ReservedPrefix = "glm_"

var (
	ErrUnknownType         = errors.New("unknown type")
	ErrUnknownFunction     = glsllib.ErrUnknownFunction
	ErrUndeclared          = errors.New("undeclared identifier")
	ErrMissingPosition     = errors.New("missing position output")
	ErrBadStatement        = errors.New("invalid statement")
	ErrBadConstant         = errors.New("invalid constant")
	ErrDegenerateCondition = errors.New("condition with empty branches")
	ErrMissingBinding      = errors.New("attribute is not specified")
	ErrUnsupportedInput    = errors.New("unsupported input")
	ErrBadName             = errors.New("invalid identifier")
)

// Spec is a shape specification: the unit compiled into a vertex and fragment shader pair.
type Spec struct {
	// Input holds per-vertex or per-draw values. Whether an input is a uniform or
	// an attribute is decided by its [Binding].
	Input map[string]TypeDecl
	// Output holds values produced by the vertex stage. Must contain "position".
	Output map[string]TypeDecl
	// Variables are local temporaries declared at the top of the vertex stage body.
	Variables map[string]TypeDecl
	// Statements make up the vertex stage body.
	Statements []Statement
	// Fragment optionally replaces the default fragment stage.
	Fragment *FragmentSpec
}

// FragmentSpec describes a custom fragment stage. Inputs named after a vertex
// output read the interpolated value; all other inputs are uniforms.
// The fragment color is written with an Emit statement holding a "color" attribute.
type FragmentSpec struct {
	Input      map[string]TypeDecl
	Variables  map[string]TypeDecl
	Statements []Statement
}

// Flattened is a [Spec] after the emission flattening step expanded each logical
// emission into Count concrete vertices. IndexVariable, if not empty, names the
// input holding the replicated vertex index in 0..Count-1.
type Flattened struct {
	Spec          *Spec
	IndexVariable string
	Count         int
}

// SortedNames returns the keys of m in ascending order.
func SortedNames[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// PositionType returns the type of the position output and whether it exists.
func (s *Spec) PositionType() (Type, bool) {
	d, ok := s.Output[OutputPosition]
	return d.Type, ok
}

// Statement is one of [Assign], [Condition], [ForLoop] or [Emit].
type Statement interface {
	isStatement()
}

// Assign stores the value of Expr into Target.
type Assign struct {
	Target string
	Expr   Expression
}

// Condition executes True when Cond holds and False otherwise. One branch may be empty.
type Condition struct {
	Cond  Expression
	True  []Statement
	False []Statement
}

// ForLoop executes Body for Var in Min..Max, both inclusive, ascending.
type ForLoop struct {
	Var  string
	Min  int
	Max  int
	Body []Statement
}

// Emit writes one vertex (or the fragment color) with the given output values.
type Emit struct {
	Attributes map[string]Expression
}

func (Assign) isStatement()    {}
func (Condition) isStatement() {}
func (ForLoop) isStatement()   {}
func (Emit) isStatement()      {}

// Expression is one of [Constant], [Variable], [Field] or [Function].
type Expression interface {
	isExpression()
}

// Constant is a literal value. Booleans are encoded as zero/nonzero.
type Constant struct {
	Type  TypeDecl
	Value []float64
}

// Variable references an input, output, variable or loop index by name.
type Variable struct {
	Name string
}

// Field accesses a vector component or swizzle of Base, i.e: "xy".
type Field struct {
	Base Expression
	Name string
}

// Function applies an intrinsic function or operator to Args.
type Function struct {
	Name string
	Args []Expression
}

func (Constant) isExpression() {}
func (Variable) isExpression() {}
func (Field) isExpression()    {}
func (Function) isExpression() {}

// FloatConst returns a float constant expression.
func FloatConst(v float64) Constant { return Constant{Type: Decl(Float), Value: []float64{v}} }

// IntConst returns an int constant expression.
func IntConst(v int) Constant { return Constant{Type: Decl(Int), Value: []float64{float64(v)}} }

// BoolConst returns a bool constant expression.
func BoolConst(v bool) Constant {
	var f float64
	if v {
		f = 1
	}
	return Constant{Type: Decl(Bool), Value: []float64{f}}
}

// Var returns a variable reference expression.
func Var(name string) Variable { return Variable{Name: name} }

// Call returns a function application expression.
func Call(name string, args ...Expression) Function { return Function{Name: name, Args: args} }

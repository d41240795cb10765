package glmark

import (
	"fmt"
	"image/color"
	"strconv"
)

// Type is an abstract value type of the shape IR.
type Type uint8

const (
	typeUndefined Type = iota
	Float
	Int
	Bool
	Vector2
	Vector3
	Vector4
	Color
	Quaternion
	Matrix4
	typeEnd
)

// Primitive is the scalar component kind backing a [Type].
type Primitive uint8

const (
	PrimitiveFloat Primitive = iota
	PrimitiveInt
)

var typeInfo = [typeEnd]struct {
	name  string
	glsl  string
	arity int
	prim  Primitive
}{
	Float:      {"float", "float", 1, PrimitiveFloat},
	Int:        {"int", "int", 1, PrimitiveInt},
	Bool:       {"bool", "bool", 1, PrimitiveInt},
	Vector2:    {"Vector2", "vec2", 2, PrimitiveFloat},
	Vector3:    {"Vector3", "vec3", 3, PrimitiveFloat},
	Vector4:    {"Vector4", "vec4", 4, PrimitiveFloat},
	Color:      {"Color", "vec4", 4, PrimitiveFloat},
	Quaternion: {"Quaternion", "vec4", 4, PrimitiveFloat},
	Matrix4:    {"Matrix4", "mat4", 16, PrimitiveFloat},
}

// ParseType returns the Type with the IR name s, i.e: "Vector3".
func ParseType(s string) (Type, error) {
	for t := Float; t < typeEnd; t++ {
		if typeInfo[t].name == s {
			return t, nil
		}
	}
	return typeUndefined, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// IsValid reports whether t is a defined type.
func (t Type) IsValid() bool { return t > typeUndefined && t < typeEnd }

func (t Type) String() string {
	if !t.IsValid() {
		return "Type(" + strconv.Itoa(int(t)) + ")"
	}
	return typeInfo[t].name
}

// GLSLName returns the shader primitive type name of t. It panics for an undefined type.
func (t Type) GLSLName() string {
	if !t.IsValid() {
		panic("glmark: unmapped type " + t.String())
	}
	return typeInfo[t].glsl
}

// Arity returns the number of primitive components in a value of type t.
func (t Type) Arity() int {
	if !t.IsValid() {
		return 0
	}
	return typeInfo[t].arity
}

// Primitive returns the scalar kind of t's components. Booleans are int-backed.
func (t Type) Primitive() Primitive {
	if !t.IsValid() {
		return PrimitiveFloat
	}
	return typeInfo[t].prim
}

// IsVector reports whether t is a float vector type of 2 to 4 components.
func (t Type) IsVector() bool {
	switch t {
	case Vector2, Vector3, Vector4, Color, Quaternion:
		return true
	}
	return false
}

// TypeDecl declares the type of an input, output or variable.
// A positive Length declares an array of Length elements.
type TypeDecl struct {
	Type   Type
	Length int
}

// Decl is shorthand for a non-array TypeDecl.
func Decl(t Type) TypeDecl { return TypeDecl{Type: t} }

// ArrayDecl is shorthand for an array TypeDecl.
func ArrayDecl(t Type, length int) TypeDecl { return TypeDecl{Type: t, Length: length} }

// IsArray reports whether the declaration is an array.
func (d TypeDecl) IsArray() bool { return d.Length > 0 }

// Elements returns the number of elements, 1 for non-arrays.
func (d TypeDecl) Elements() int {
	if d.Length > 0 {
		return d.Length
	}
	return 1
}

// Components returns the total number of primitive components held by the declaration.
func (d TypeDecl) Components() int { return d.Type.Arity() * d.Elements() }

func (d TypeDecl) String() string {
	if d.IsArray() {
		return d.Type.String() + "[" + strconv.Itoa(d.Length) + "]"
	}
	return d.Type.String()
}

func (d TypeDecl) validate() error {
	if !d.Type.IsValid() {
		return fmt.Errorf("%w: %s", ErrUnknownType, d.Type)
	} else if d.Length < 0 {
		return fmt.Errorf("%w: negative array length %d", ErrUnknownType, d.Length)
	}
	return nil
}

// AppendDecl appends the GLSL declaration of name with type d, without trailing semicolon:
//
//	vec2 name
//	float name[8]
func AppendDecl(dst []byte, name string, d TypeDecl) []byte {
	dst = append(dst, d.Type.GLSLName()...)
	dst = append(dst, ' ')
	dst = append(dst, name...)
	if d.IsArray() {
		dst = append(dst, '[')
		dst = strconv.AppendInt(dst, int64(d.Length), 10)
		dst = append(dst, ']')
	}
	return dst
}

const constantDigits = 5

// AppendConstant appends the GLSL literal for value of type d. Floating point
// components are written with a fixed 5 decimal digits so output does not drift.
// Array constants are written as array constructors, which GLSL ES 1.00 lacks.
func AppendConstant(dst []byte, d TypeDecl, value []float64) ([]byte, error) {
	if err := d.validate(); err != nil {
		return dst, err
	}
	want := d.Components()
	if len(value) != want {
		return dst, fmt.Errorf("%w: %s wants %d components, got %d", ErrBadConstant, d, want, len(value))
	}
	if !d.IsArray() {
		return appendScalarOrVec(dst, d.Type, value), nil
	}
	dst = append(dst, d.Type.GLSLName()...)
	dst = append(dst, '[')
	dst = strconv.AppendInt(dst, int64(d.Length), 10)
	dst = append(dst, "]("...)
	arity := d.Type.Arity()
	for i := 0; i < d.Length; i++ {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = appendScalarOrVec(dst, d.Type, value[i*arity:(i+1)*arity])
	}
	dst = append(dst, ')')
	return dst, nil
}

func appendScalarOrVec(dst []byte, t Type, v []float64) []byte {
	switch t {
	case Float:
		return appendFixed(dst, v[0])
	case Int:
		return strconv.AppendInt(dst, int64(v[0]), 10)
	case Bool:
		return strconv.AppendBool(dst, v[0] != 0)
	}
	dst = append(dst, t.GLSLName()...)
	dst = append(dst, '(')
	for i, c := range v {
		if i > 0 {
			dst = append(dst, ", "...)
		}
		dst = appendFixed(dst, c)
	}
	return append(dst, ')')
}

func appendFixed(dst []byte, v float64) []byte {
	start := len(dst)
	dst = strconv.AppendFloat(dst, v, 'f', constantDigits, 64)
	if string(dst[start:]) == "-0.00000" {
		// Avoid emitting negative zero which differs textually from zero.
		dst = append(dst[:start], "0.00000"...)
	}
	return dst
}

// ColorValue returns the normalized, non-premultiplied RGBA components of c
// for use as a [Color] constant or uniform value.
func ColorValue(c color.Color) []float64 {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return []float64{
		float64(n.R) / 255,
		float64(n.G) / 255,
		float64(n.B) / 255,
		float64(n.A) / 255,
	}
}

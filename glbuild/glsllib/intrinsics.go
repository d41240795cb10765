package glsllib

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFunction is returned by [Resolve] for names not in the intrinsic table.
var ErrUnknownFunction = errors.New("unknown function")

// Call is a resolved intrinsic application.
type Call struct {
	// Expr is the GLSL expression text.
	Expr string
	// Helpers must be defined in the program for Expr to compile.
	Helpers []Function
}

type intrinsic struct {
	minArgs, maxArgs int
	lower            func(args []string) string
	helper           func() Function
}

func binop(op string) intrinsic {
	return intrinsic{minArgs: 2, maxArgs: 2, lower: func(a []string) string {
		return "(" + a[0] + " " + op + " " + a[1] + ")"
	}}
}

func unop(op string) intrinsic {
	return intrinsic{minArgs: 1, maxArgs: 1, lower: func(a []string) string {
		return "(" + op + a[0] + ")"
	}}
}

func callN(glslName string, n int) intrinsic {
	return callRange(glslName, n, n)
}

func callRange(glslName string, minArgs, maxArgs int) intrinsic {
	return intrinsic{minArgs: minArgs, maxArgs: maxArgs, lower: func(a []string) string {
		return glslName + "(" + strings.Join(a, ", ") + ")"
	}}
}

func helperCall(fn func() Function, n int) intrinsic {
	it := callN(fn().Name, n)
	it.helper = fn
	return it
}

var intrinsics = map[string]intrinsic{
	"+":  binop("+"),
	"*":  binop("*"),
	"/":  binop("/"),
	"%":  callN("mod", 2),
	"<":  binop("<"),
	"<=": binop("<="),
	">":  binop(">"),
	">=": binop(">="),
	"==": binop("=="),
	"!=": binop("!="),
	"&&": binop("&&"),
	"||": binop("||"),
	"!":  unop("!"),
	"-": {minArgs: 1, maxArgs: 2, lower: func(a []string) string {
		if len(a) == 1 {
			return "(-" + a[0] + ")"
		}
		return "(" + a[0] + " - " + a[1] + ")"
	}},

	"abs":        callN("abs", 1),
	"sqrt":       callN("sqrt", 1),
	"exp":        callN("exp", 1),
	"log":        callN("log", 1),
	"sin":        callN("sin", 1),
	"cos":        callN("cos", 1),
	"tan":        callN("tan", 1),
	"asin":       callN("asin", 1),
	"acos":       callN("acos", 1),
	"atan":       callN("atan", 1),
	"atan2":      callN("atan", 2),
	"pow":        callN("pow", 2),
	"floor":      callN("floor", 1),
	"ceil":       callN("ceil", 1),
	"fract":      callN("fract", 1),
	"sign":       callN("sign", 1),
	"min":        callN("min", 2),
	"max":        callN("max", 2),
	"clamp":      callN("clamp", 3),
	"mix":        callN("mix", 3),
	"step":       callN("step", 2),
	"smoothstep": callN("smoothstep", 3),
	"dot":        callN("dot", 2),
	"cross":      callN("cross", 2),
	"length":     callN("length", 1),
	"distance":   callN("distance", 2),
	"normalize":  callN("normalize", 1),

	"float":      callN("float", 1),
	"int":        callN("int", 1),
	"bool":       callN("bool", 1),
	"Vector2":    callRange("vec2", 1, 2),
	"Vector3":    callRange("vec3", 1, 3),
	"Vector4":    callRange("vec4", 1, 4),
	"Color":      callRange("vec4", 1, 4),
	"Quaternion": callRange("vec4", 1, 4),

	"index": {minArgs: 2, maxArgs: 2, lower: func(a []string) string {
		return a[0] + "[" + a[1] + "]"
	}},

	"quat_conj": {minArgs: 1, maxArgs: 1, lower: func(a []string) string {
		return "(vec4(-1.0, -1.0, -1.0, 1.0) * " + a[0] + ")"
	}},
	"quat_mul":    helperCall(QuatMul, 2),
	"quat_rotate": helperCall(QuatRotate, 2),
	"lab2rgb":     helperCall(Lab2RGB, 1),
	"hcl2rgb":     helperCall(HCL2RGB, 1),
}

// Resolve lowers the intrinsic name applied to already lowered argument
// expressions. Unknown names and wrong argument counts return an error naming the function.
func Resolve(name string, args []string) (Call, error) {
	it, ok := intrinsics[name]
	if !ok {
		return Call{}, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	if len(args) < it.minArgs || len(args) > it.maxArgs {
		if it.minArgs == it.maxArgs {
			return Call{}, fmt.Errorf("function %q takes %d arguments, got %d", name, it.minArgs, len(args))
		}
		return Call{}, fmt.Errorf("function %q takes %d to %d arguments, got %d", name, it.minArgs, it.maxArgs, len(args))
	}
	call := Call{Expr: it.lower(args)}
	if it.helper != nil {
		call.Helpers = AppendWithDeps(nil, it.helper())
	}
	return call, nil
}

// Known reports whether name is an intrinsic.
func Known(name string) bool {
	_, ok := intrinsics[name]
	return ok
}

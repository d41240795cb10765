// Package glsllib holds the intrinsic function table used when lowering shape
// expressions and the GLSL helper functions some intrinsics and view projections
// depend on.
package glsllib

import (
	"bytes"
	_ "embed"
	"errors"
)

// Function is a GLSL helper function definition that must appear once in a
// program before its first use.
type Function struct {
	// Name is the GLSL function name. It is the identity used to deduplicate helpers.
	Name string
	// Source is the complete function definition.
	Source string
	// Deps are helpers called by Source, which must be defined before it.
	Deps []Function
}

// MakeFunction parses the name of the GLSL function defined in src.
func MakeFunction(src []byte, deps ...Function) (Function, error) {
	src = bytes.TrimSpace(src)
	fnNameEnd := bytes.IndexByte(src, '(')
	fnNameStart := bytes.IndexByte(src, ' ')
	if fnNameEnd < 0 || fnNameStart < 0 || fnNameStart > fnNameEnd {
		return Function{}, errors.New("unable to parse function name")
	}
	name := bytes.TrimSpace(src[fnNameStart:fnNameEnd])
	if len(name) == 0 {
		return Function{}, errors.New("empty function name")
	}
	return Function{Name: string(name), Source: string(src), Deps: deps}, nil
}

func mustFunction(src []byte, deps ...Function) Function {
	fn, err := MakeFunction(src, deps...)
	if err != nil {
		panic(err)
	}
	return fn
}

// AppendWithDeps appends fn and its dependencies to dst in definition order
// unless already present by name in dst.
func AppendWithDeps(dst []Function, fn Function) []Function {
	for _, dep := range fn.Deps {
		dst = AppendWithDeps(dst, dep)
	}
	for i := range dst {
		if dst[i].Name == fn.Name {
			return dst
		}
	}
	return append(dst, fn)
}

//go:embed project2D.glsl
var project2DSrc []byte

// Project2D projects with an affine planar transform packed in glm_view_params (scale xy, offset zw):
//
//	vec4 glm_project(vec3 p)
func Project2D() Function { return mustFunction(project2DSrc) }

//go:embed project3D.glsl
var project3DSrc []byte

// Project3D rotates p into the camera frame given by glm_view_position and the
// quaternion glm_view_rotation and applies the perspective coefficients in glm_view_params:
//
//	vec4 glm_project(vec3 p)
func Project3D() Function { return mustFunction(project3DSrc) }

//go:embed projectExternal.glsl
var projectExternalSrc []byte

// ProjectExternal is like [Project3D] but finishes with glm_projection_matrix * glm_view_matrix:
//
//	vec4 glm_project(vec3 p)
func ProjectExternal() Function { return mustFunction(projectExternalSrc) }

//go:embed quatmul.glsl
var quatMulSrc []byte

// QuatMul is the Hamilton product of quaternions stored as (x,y,z,w):
//
//	vec4 glm_quat_mul(vec4 a, vec4 b)
func QuatMul() Function { return mustFunction(quatMulSrc) }

//go:embed quatrotate.glsl
var quatRotateSrc []byte

// QuatRotate rotates v by unit quaternion q:
//
//	vec3 glm_quat_rotate(vec4 q, vec3 v)
func QuatRotate() Function { return mustFunction(quatRotateSrc) }

//go:embed lab2rgb.glsl
var lab2rgbSrc []byte

// Lab2RGB converts CIE L*a*b* (D65) plus alpha to sRGB.
//
//	vec4 glm_lab2rgb(vec4 lab)
func Lab2RGB() Function { return mustFunction(lab2rgbSrc) }

//go:embed hcl2rgb.glsl
var hcl2rgbSrc []byte

// HCL2RGB converts hue (degrees), chroma, luminance plus alpha to sRGB. Depends on [Lab2RGB].
//
//	vec4 glm_hcl2rgb(vec4 hcl)
func HCL2RGB() Function { return mustFunction(hcl2rgbSrc, Lab2RGB()) }

//go:embed shade.glsl
var shadeSrc []byte

// Shade applies fixed directional lighting to color.
//
//	vec4 glm_shade(vec4 color, vec3 normal)
func Shade() Function { return mustFunction(shadeSrc) }

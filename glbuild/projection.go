package glbuild

import (
	"fmt"

	"github.com/soypat/glmark"
	"github.com/soypat/glmark/glbuild/glsllib"
)

// View projection uniform names.
const (
	// ViewParamsUniform packs (scaleX, scaleY, offsetX, offsetY) for [View2D] and
	// the perspective coefficients (sx, sy, c, d) for [View3D].
	ViewParamsUniform = "glm_view_params"
	// ViewPositionUniform is the camera position.
	ViewPositionUniform = "glm_view_position"
	// ViewRotationUniform is the camera orientation quaternion stored as (x,y,z,w).
	ViewRotationUniform = "glm_view_rotation"
	// ProjectionMatrixUniform and ViewMatrixUniform are supplied externally for [ViewExternal].
	ProjectionMatrixUniform = "glm_projection_matrix"
	ViewMatrixUniform       = "glm_view_matrix"
)

// Uniform is a named uniform declaration.
type Uniform struct {
	Name string
	Decl glmark.TypeDecl
}

// Projection is what a view projection contributes to a vertex stage: its
// uniforms and a helper defining vec4 glm_project(vec3 p) used by emit statements.
type Projection struct {
	Uniforms []Uniform
	Helper   glsllib.Function
}

// Projection returns the view projection strategy of vk.
func (vk ViewKind) Projection() (Projection, error) {
	params := Uniform{Name: ViewParamsUniform, Decl: glmark.Decl(glmark.Vector4)}
	position := Uniform{Name: ViewPositionUniform, Decl: glmark.Decl(glmark.Vector3)}
	rotation := Uniform{Name: ViewRotationUniform, Decl: glmark.Decl(glmark.Vector4)}
	switch vk {
	case View2D:
		return Projection{
			Uniforms: []Uniform{params},
			Helper:   glsllib.Project2D(),
		}, nil
	case View3D:
		return Projection{
			Uniforms: []Uniform{params, position, rotation},
			Helper:   glsllib.Project3D(),
		}, nil
	case ViewExternal:
		return Projection{
			Uniforms: []Uniform{
				{Name: ProjectionMatrixUniform, Decl: glmark.Decl(glmark.Matrix4)},
				{Name: ViewMatrixUniform, Decl: glmark.Decl(glmark.Matrix4)},
				position,
				rotation,
			},
			Helper: glsllib.ProjectExternal(),
		}, nil
	}
	return Projection{}, fmt.Errorf("invalid view kind %s", vk)
}

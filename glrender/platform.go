package glrender

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glmark"
	"github.com/soypat/glmark/glbuild"
)

// Default perspective clip planes used when a [View3D] leaves them unset.
const (
	DefaultNear = 0.1
	DefaultFar  = 1000
)

// View is a view projection. It is one of [View2D], [View3D] or [ViewExternal].
type View interface {
	Kind() glbuild.ViewKind
	appendUniforms(dst []viewUniform) []viewUniform
}

type viewUniform struct {
	name  string
	decl  glmark.TypeDecl
	value []float64
}

// View2D maps data coordinates to pixels of a Width x Height surface with the
// origin at the top left corner and y pointing down.
type View2D struct {
	Width, Height float32
}

// View3D is a perspective projection. FovY is the vertical field of view in radians.
type View3D struct {
	FovY, Aspect float32
	Near, Far    float32
}

// ViewExternal uses externally supplied projection and view matrices.
type ViewExternal struct {
	Projection, View ms3.Mat4
}

func (View2D) Kind() glbuild.ViewKind       { return glbuild.View2D }
func (View3D) Kind() glbuild.ViewKind       { return glbuild.View3D }
func (ViewExternal) Kind() glbuild.ViewKind { return glbuild.ViewExternal }

// Params returns (scaleX, scaleY, offsetX, offsetY).
func (v View2D) Params() [4]float32 {
	return [4]float32{2 / v.Width, -2 / v.Height, -1, 1}
}

// Params returns the perspective coefficients (sx, sy, c, d).
func (v View3D) Params() [4]float32 {
	near, far := v.Near, v.Far
	if near == 0 {
		near = DefaultNear
	}
	if far == 0 {
		far = DefaultFar
	}
	f := 1 / math.Tan(v.FovY/2)
	return [4]float32{f / v.Aspect, f, (near + far) / (near - far), 2 * near * far / (near - far)}
}

func (v View2D) appendUniforms(dst []viewUniform) []viewUniform {
	p := v.Params()
	return append(dst, viewUniform{glbuild.ViewParamsUniform, glmark.Decl(glmark.Vector4), f64s(p[:])})
}

func (v View3D) appendUniforms(dst []viewUniform) []viewUniform {
	p := v.Params()
	return append(dst, viewUniform{glbuild.ViewParamsUniform, glmark.Decl(glmark.Vector4), f64s(p[:])})
}

func (v ViewExternal) appendUniforms(dst []viewUniform) []viewUniform {
	proj := columnMajor(v.Projection)
	view := columnMajor(v.View)
	return append(dst,
		viewUniform{glbuild.ProjectionMatrixUniform, glmark.Decl(glmark.Matrix4), proj},
		viewUniform{glbuild.ViewMatrixUniform, glmark.Decl(glmark.Matrix4), view},
	)
}

// columnMajor returns the elements of m in GLSL column-major order.
func columnMajor(m ms3.Mat4) []float64 {
	arr := m.Array()
	out := make([]float64, 16)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			out[i*4+j] = float64(arr[j*4+i])
		}
	}
	return out
}

// Pose is the camera pose of 3D and external views.
type Pose struct {
	Position ms3.Vec
	// Rotation is uploaded as (I,J,K,W). The zero value is treated as the identity rotation.
	Rotation ms3.Quat
}

func (p Pose) appendUniforms(dst []viewUniform) []viewUniform {
	q := p.Rotation
	if q == (ms3.Quat{}) {
		q = ms3.QuatIdent()
	}
	return append(dst,
		viewUniform{glbuild.ViewPositionUniform, glmark.Decl(glmark.Vector3), []float64{float64(p.Position.X), float64(p.Position.Y), float64(p.Position.Z)}},
		viewUniform{glbuild.ViewRotationUniform, glmark.Decl(glmark.Vector4), []float64{float64(q.I), float64(q.J), float64(q.K), float64(q.W)}},
	)
}

// Config configures a [Platform].
type Config struct {
	Backend Backend
	// View is the initial view. If nil a 500x500 [View2D] is used.
	View View
	Pose Pose
	// Dialect of programs compiled for shapes on the platform.
	Dialect glbuild.Dialect
	// DisablePicking skips compilation of pick programs and pick buffers.
	DisablePicking bool
	// Logger receives debug and warning messages. If nil logging is discarded.
	Logger *slog.Logger
}

// Platform owns the state shared by all shapes rendered on one graphics
// context: the current view and pose, the render mode and the picking pass.
type Platform struct {
	b       Backend
	view    View
	pose    Pose
	dialect glbuild.Dialect
	picking bool
	log     *slog.Logger

	mode glbuild.Mode
	// Pick framebuffer and its size.
	fb        FramebufferID
	fbW, fbH  int
	fbValid   bool
	pickSlots map[any]uint8
	pickIDs   []any
	uniforms  []viewUniform
}

// NewPlatform returns a Platform drawing through cfg.Backend.
func NewPlatform(cfg Config) (*Platform, error) {
	if cfg.Backend == nil {
		return nil, errNilBackend
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	view := cfg.View
	if view == nil {
		view = View2D{Width: 500, Height: 500}
	}
	p := &Platform{
		b:         cfg.Backend,
		dialect:   cfg.Dialect,
		picking:   !cfg.DisablePicking,
		log:       log,
		pickSlots: make(map[any]uint8),
	}
	if err := p.SetView(view); err != nil {
		return nil, err
	}
	p.SetPose(cfg.Pose)
	return p, nil
}

// SetView sets the view used by subsequent renders.
func (p *Platform) SetView(v View) error {
	if v == nil {
		return errors.New("nil view")
	}
	switch v := v.(type) {
	case View2D:
		if v.Width <= 0 || v.Height <= 0 {
			return fmt.Errorf("invalid 2D view size %gx%g", v.Width, v.Height)
		}
	case View3D:
		if v.FovY <= 0 || v.Aspect <= 0 {
			return fmt.Errorf("invalid 3D view fov=%g aspect=%g", v.FovY, v.Aspect)
		}
	}
	p.view = v
	return nil
}

// View returns the current view.
func (p *Platform) View() View { return p.view }

// SetPose sets the camera pose used by 3D and external views.
func (p *Platform) SetPose(pose Pose) { p.pose = pose }

// Pose returns the current camera pose.
func (p *Platform) Pose() Pose { return p.pose }

// RenderMode returns [glbuild.ModePick] during a picking pass and [glbuild.ModeNormal] otherwise.
func (p *Platform) RenderMode() glbuild.Mode { return p.mode }

// PickingEnabled reports whether shapes on the platform compile pick programs.
func (p *Platform) PickingEnabled() bool { return p.picking }

// Dialect returns the GLSL dialect shapes are compiled to.
func (p *Platform) Dialect() glbuild.Dialect { return p.dialect }

// Logger returns the platform's logger.
func (p *Platform) Logger() *slog.Logger { return p.log }

// viewUniforms returns the uniforms of the current view and pose.
func (p *Platform) viewUniforms() []viewUniform {
	p.uniforms = p.view.appendUniforms(p.uniforms[:0])
	if p.view.Kind() != glbuild.View2D {
		p.uniforms = p.pose.appendUniforms(p.uniforms)
	}
	return p.uniforms
}

// BeginPicking starts a picking pass rendering into a width x height off-screen
// framebuffer cleared to the background color. Shapes rendered until
// [Platform.EndPicking] write their pick colors instead of their colors.
func (p *Platform) BeginPicking(width, height int) error {
	if !p.picking {
		return errNoPicking
	} else if p.mode == glbuild.ModePick {
		return errPickOngoing
	}
	fb, err := p.pickFramebuffer(width, height)
	if err != nil {
		return err
	}
	p.b.BindFramebuffer(fb)
	p.b.Viewport(0, 0, width, height)
	p.b.Clear(1, 1, 1, 1)
	p.b.SetBlend(false)
	clear(p.pickSlots)
	p.pickIDs = p.pickIDs[:0]
	p.mode = glbuild.ModePick
	p.fbValid = false
	return nil
}

// AssignPickIndex returns the pick slot of id for the ongoing picking pass,
// interning it on first use.
func (p *Platform) AssignPickIndex(id any) (int, error) {
	if p.mode != glbuild.ModePick {
		return 0, errNotPicking
	}
	if slot, ok := p.pickSlots[id]; ok {
		return int(slot), nil
	}
	if len(p.pickIDs) >= MaxPickShapes {
		p.log.Warn("pick slots exhausted", slog.Int("max", MaxPickShapes))
		return 0, fmt.Errorf("more than %d shapes drawn in one picking pass", MaxPickShapes)
	}
	slot := uint8(len(p.pickIDs))
	p.pickSlots[id] = slot
	p.pickIDs = append(p.pickIDs, id)
	return int(slot), nil
}

// EndPicking ends the picking pass and restores the default framebuffer.
func (p *Platform) EndPicking() error {
	if p.mode != glbuild.ModePick {
		return errNotPicking
	}
	p.b.BindFramebuffer(0)
	p.b.SetBlend(true)
	p.mode = glbuild.ModeNormal
	p.fbValid = true
	return nil
}

// PickingPixel reads the pick framebuffer at window coordinates (x, y), origin
// at the top left corner. hit is false for the background, for coordinates
// outside the last picking pass and when no completed pass exists.
func (p *Platform) PickingPixel(x, y int) (pick Pick, hit bool, err error) {
	if !p.fbValid || p.mode == glbuild.ModePick || x < 0 || y < 0 || x >= p.fbW || y >= p.fbH {
		return Pick{}, false, nil
	}
	p.b.BindFramebuffer(p.fb)
	px, err := p.b.ReadPixel(x, p.fbH-1-y)
	p.b.BindFramebuffer(0)
	if err != nil {
		return Pick{}, false, err
	}
	index, slot, ok := DecodePick(px)
	if !ok || int(slot) >= len(p.pickIDs) {
		return Pick{}, false, nil
	}
	return Pick{Shape: p.pickIDs[slot], Index: index}, true, nil
}

// pickFramebuffer returns the pick framebuffer, reallocating it only when the size changes.
func (p *Platform) pickFramebuffer(width, height int) (FramebufferID, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("invalid picking framebuffer size %dx%d", width, height)
	}
	if p.fb != 0 && p.fbW == width && p.fbH == height {
		return p.fb, nil
	}
	if p.fb != 0 {
		p.b.DeleteFramebuffer(p.fb)
		p.fb = 0
	}
	fb, err := p.b.CreateFramebuffer(width, height)
	if err != nil {
		return 0, fmt.Errorf("creating picking framebuffer: %w", err)
	}
	p.log.Debug("pick framebuffer allocated", slog.Int("width", width), slog.Int("height", height))
	p.fb, p.fbW, p.fbH = fb, width, height
	return fb, nil
}

// Close releases the pick framebuffer.
func (p *Platform) Close() {
	if p.fb != 0 {
		p.b.DeleteFramebuffer(p.fb)
	}
	p.fb, p.fbW, p.fbH = 0, 0, 0
	p.fbValid = false
}

func f64s(v []float32) []float64 {
	f := make([]float64, len(v))
	for i := range v {
		f[i] = float64(v[i])
	}
	return f
}

//go:build !tinygo && cgo

package glmarkaux

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glmark/glbuild"
	"github.com/soypat/glmark/glrender"
)

// Viewer is a GLFW window drawing shapes on a [glrender.Platform].
// All methods must be called from the goroutine that created the Viewer.
type Viewer struct {
	cfg      UIConfig
	window   *glfw.Window
	term     func()
	backend  *glrender.GLBackend
	platform *glrender.Platform
	layers   []Drawable
	log      *slog.Logger
	cam      orbit
}

// NewViewer opens a window with a current OpenGL context and a platform
// ready for compiling shapes with [glrender.NewShape].
func NewViewer(cfg UIConfig) (*Viewer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Title == "" {
		cfg.Title = "glmark"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runtime.LockOSThread()
	window, term, err := startGLFW(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	backend, err := glrender.NewGLBackend()
	if err != nil {
		term()
		runtime.UnlockOSThread()
		return nil, err
	}
	v := &Viewer{
		cfg:     cfg,
		window:  window,
		term:    term,
		backend: backend,
		log:     log,
		cam:     newOrbit(cfg.Distance),
	}
	var view glrender.View
	switch cfg.View {
	case glbuild.View2D:
		view = glrender.View2D{Width: float32(cfg.Width), Height: float32(cfg.Height)}
	case glbuild.View3D:
		view = glrender.View3D{FovY: 1, Aspect: float32(cfg.Width) / float32(cfg.Height)}
	default:
		v.Close()
		return nil, fmt.Errorf("viewer does not support %s view", cfg.View)
	}
	v.platform, err = glrender.NewPlatform(glrender.Config{
		Backend: backend,
		View:    view,
		Pose:    v.cam.pose(),
		Dialect: glbuild.DialectCore410,
		Logger:  log,
	})
	if err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}

// Platform returns the platform shapes drawn by the viewer must be compiled on.
func (v *Viewer) Platform() *glrender.Platform { return v.platform }

// Add appends drawables to the scene. They are drawn in insertion order.
func (v *Viewer) Add(d ...Drawable) { v.layers = append(v.layers, d...) }

// Run runs the main loop until the window is closed or the configured context is done.
func (v *Viewer) Run() error {
	window := v.window
	var (
		lastX, lastY float64
		pressed      bool
		dragged      bool
		refresh      = true
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if pressed && v.cfg.View == glbuild.View3D {
			v.cam.rotate(float32(xpos-lastX), float32(ypos-lastY))
			dragged = true
			refresh = true
		}
		lastX, lastY = xpos, ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		if v.cfg.View == glbuild.View3D {
			v.cam.zoom(float32(yoff))
			refresh = true
		}
	})
	var pickErr error
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			pressed, dragged = true, false
		case glfw.Release:
			pressed = false
			if !dragged {
				pickErr = v.pick(int(lastX), int(lastY))
			}
		}
	})

	ctx := v.cfg.Context
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if pickErr != nil {
			return pickErr
		}
		if refresh {
			refresh = false
			if err := v.draw(); err != nil {
				return err
			}
			window.SwapBuffers()
		}
		time.Sleep(time.Second / 60)
		glfw.PollEvents()
	}
	return nil
}

func (v *Viewer) draw() error {
	width, height := v.window.GetFramebufferSize()
	if width == 0 || height == 0 {
		return nil
	}
	if err := v.updateView(); err != nil {
		return err
	}
	var r, g, b, a float32 = 0, 0, 0, 1
	if v.cfg.Background != nil {
		c := color.NRGBAModel.Convert(v.cfg.Background).(color.NRGBA)
		r, g, b, a = float32(c.R)/255, float32(c.G)/255, float32(c.B)/255, float32(c.A)/255
	}
	v.backend.BindFramebuffer(0)
	v.backend.Viewport(0, 0, width, height)
	v.backend.Clear(r, g, b, a)
	for _, d := range v.layers {
		if err := d.Render(); err != nil {
			return err
		}
	}
	return nil
}

// updateView matches the platform view to the window size and camera.
func (v *Viewer) updateView() error {
	width, height := v.window.GetSize()
	if v.cfg.View == glbuild.View3D {
		v.platform.SetPose(v.cam.pose())
		return v.platform.SetView(glrender.View3D{FovY: 1, Aspect: float32(width) / float32(height)})
	}
	return v.platform.SetView(glrender.View2D{Width: float32(width), Height: float32(height)})
}

// pick runs a picking pass and queries the pixel under window coordinates (x, y).
func (v *Viewer) pick(x, y int) error {
	width, height := v.window.GetSize()
	if width == 0 || height == 0 {
		return nil
	}
	if err := v.updateView(); err != nil {
		return err
	}
	if err := v.platform.BeginPicking(width, height); err != nil {
		return err
	}
	var renderErr error
	for _, d := range v.layers {
		if renderErr = d.Render(); renderErr != nil {
			break
		}
	}
	if err := errors.Join(renderErr, v.platform.EndPicking()); err != nil {
		return err
	}
	fbw, fbh := v.window.GetFramebufferSize()
	v.backend.Viewport(0, 0, fbw, fbh)
	pick, hit, err := v.platform.PickingPixel(x, y)
	if err != nil {
		return err
	}
	if hit {
		v.log.Info("pick", slog.Uint64("index", uint64(pick.Index)), slog.Int("x", x), slog.Int("y", y))
	} else {
		v.log.Debug("pick miss", slog.Int("x", x), slog.Int("y", y))
	}
	if v.cfg.OnPick != nil {
		v.cfg.OnPick(pick, hit)
	}
	return nil
}

// Close releases the platform, backend and window.
func (v *Viewer) Close() {
	if v.platform != nil {
		v.platform.Close()
	}
	if v.backend != nil {
		v.backend.Delete()
	}
	if v.term != nil {
		v.term()
		v.term = nil
		runtime.UnlockOSThread()
	}
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}

//go:build tinygo || !cgo

package glmarkaux

import (
	"errors"

	"github.com/soypat/glmark/glrender"
)

var errNoCGO = errors.New("require cgo for UI rendering")

// Viewer requires CGo.
type Viewer struct{}

// NewViewer requires CGo.
func NewViewer(cfg UIConfig) (*Viewer, error) { return nil, errNoCGO }

func (v *Viewer) Platform() *glrender.Platform { return nil }
func (v *Viewer) Add(d ...Drawable)            {}
func (v *Viewer) Run() error                   { return errNoCGO }
func (v *Viewer) Close()                       {}

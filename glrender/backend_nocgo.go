//go:build tinygo || !cgo

package glrender

import "errors"

var errNoCGO = errors.New("OpenGL rendering requires CGo and is not supported on TinyGo")

// InitHeadless requires CGo.
func InitHeadless() (terminate func(), err error) {
	return nil, errNoCGO
}

// GLBackend requires CGo. Use a custom [Backend] implementation instead.
type GLBackend struct{}

// NewGLBackend requires CGo.
func NewGLBackend() (*GLBackend, error) {
	return nil, errNoCGO
}

//go:build !windows

package magnifier

import (
	"errors"
	"time"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/window"
)

var errUnsupported = errors.New("magnifier host is only available on Windows")

type stubHost struct{}

// NewHostOS returns a host that cannot create windows on this platform.
func NewHostOS() HostOS { return stubHost{} }

func (stubHost) EnableDPIAwareness() {}
func (stubHost) CreateHost() (window.Handle, window.Handle, error) {
	return 0, 0, errUnsupported
}
func (stubHost) Show() error                         { return errUnsupported }
func (stubHost) ApplyWindowed(geometry.Rect) error   { return errUnsupported }
func (stubHost) ApplyFullscreen(geometry.Rect) error { return errUnsupported }
func (stubHost) FullscreenRect() geometry.Rect       { return geometry.Rect{} }
func (stubHost) ClientRect() (geometry.Rect, error)  { return geometry.Rect{}, errUnsupported }
func (stubHost) FrameRect() (geometry.Rect, error)   { return geometry.Rect{}, errUnsupported }
func (stubHost) FrameInsets() (int, int)             { return 0, 0 }
func (stubHost) ResizeControl(geometry.Rect) error   { return errUnsupported }
func (stubHost) RaiseTopmost() error                 { return errUnsupported }
func (stubHost) StartTimer(time.Duration) error      { return errUnsupported }
func (stubHost) Invalidate() error                   { return errUnsupported }
func (stubHost) ValidatePaint()                      {}
func (stubHost) Release()                            {}

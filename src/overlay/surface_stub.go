//go:build !windows

package overlay

import (
	"errors"
	"time"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/window"
)

var errUnsupported = errors.New("highlight overlay is only available on Windows")

type stubSurface struct{}

// NewSurface returns a surface that cannot create windows on this platform.
func NewSurface() Surface { return stubSurface{} }

func (stubSurface) Create() (window.Handle, error)                   { return 0, errUnsupported }
func (stubSurface) Place(geometry.Rect) error                        { return errUnsupported }
func (stubSurface) Update() error                                    { return errUnsupported }
func (stubSurface) StartTimer(time.Duration) error                   { return errUnsupported }
func (stubSurface) Invalidate() error                                { return errUnsupported }
func (stubSurface) ToLogical(r geometry.Rect) (geometry.Rect, error) { return r, errUnsupported }
func (stubSurface) ToClient(r geometry.Rect) geometry.Rect           { return r }
func (stubSurface) Paint([]Outline)                                  {}
func (stubSurface) RaiseTopmost() error                              { return errUnsupported }
func (stubSurface) Release()                                         {}

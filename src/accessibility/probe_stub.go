//go:build !windows

package accessibility

import "screen-magnifier/src/geometry"

type stubProbe struct{}

func NewProbe() Probe { return stubProbe{} }

func (stubProbe) Focus() (Object, error) { return Object{}, ErrUnsupported }

func (stubProbe) Pointer() (Object, geometry.Point, error) {
	return Object{}, geometry.Point{}, ErrUnsupported
}

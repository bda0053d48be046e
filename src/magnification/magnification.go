// Package magnification drives the OS magnification engine: zoom transforms,
// color effects and the source rectangle of a windowed magnifier control.
package magnification

import (
	"errors"
	"fmt"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/window"
)

var (
	ErrUnsupported  = errors.New("magnification engine unavailable")
	ErrInitialize   = errors.New("magnification engine failed to initialize")
	ErrInvalidLevel = errors.New("zoom level must be at least 1")
)

// ColorEffect is a 5x5 color transform in MAGCOLOREFFECT layout.
type ColorEffect [5][5]float32

// Engine is the process-wide magnification API. Only one user may hold it
// initialized at a time.
type Engine interface {
	Initialize() error
	Uninitialize() error
	SetFullscreenTransform(level float32, xOffset, yOffset int) error
	SetFullscreenColorEffect(effect *ColorEffect) error
	SetWindowSource(control window.Handle, source geometry.Rect) error
	SetWindowTransform(control window.Handle, level float32) error
	SetColorEffect(control window.Handle, effect *ColorEffect) error
}

type Filter int

const (
	FilterNone Filter = iota
	FilterInvert
	FilterGrayscale
	FilterInvertedGrayscale
	FilterSepia

	filterCount = 5
)

var filterNames = [filterCount]string{"Default", "Inverted", "Grayscale", "Inverted Grayscale", "Sepia"}

func (f Filter) String() string {
	if f < 0 || f >= filterCount {
		return fmt.Sprintf("Filter(%d)", int(f))
	}
	return filterNames[f]
}

// Normalize maps any index onto the filter cycle.
func (f Filter) Normalize() Filter {
	n := f % filterCount
	if n < 0 {
		n += filterCount
	}
	return n
}

var effects = [filterCount]ColorEffect{
	FilterNone: {
		{1, 0, 0, 0, 0},
		{0, 1, 0, 0, 0},
		{0, 0, 1, 0, 0},
		{0, 0, 0, 1, 0},
		{0, 0, 0, 0, 1},
	},
	FilterInvert: {
		{-1, 0, 0, 0, 0},
		{0, -1, 0, 0, 0},
		{0, 0, -1, 0, 0},
		{0, 0, 0, 1, 0},
		{1, 1, 1, 0, 1},
	},
	FilterGrayscale: {
		{0.3, 0.3, 0.3, 0, 0},
		{0.6, 0.6, 0.6, 0, 0},
		{0.1, 0.1, 0.1, 0, 0},
		{0, 0, 0, 1, 0},
		{0, 0, 0, 0, 1},
	},
	FilterInvertedGrayscale: {
		{-0.3, -0.3, -0.3, 0, 0},
		{-0.6, -0.6, -0.6, 0, 0},
		{-0.1, -0.1, -0.1, 0, 0},
		{0, 0, 0, 1, 0},
		{1, 1, 1, 0, 1},
	},
	FilterSepia: {
		{0.393, 0.349, 0.272, 0, 0},
		{0.769, 0.686, 0.534, 0, 0},
		{0.189, 0.168, 0.131, 0, 0},
		{0, 0, 0, 1, 0},
		{0, 0, 0, 0, 1},
	},
}

// Effect returns the color matrix for f.
func (f Filter) Effect() ColorEffect { return effects[f.Normalize()] }

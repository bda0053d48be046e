// Package display enumerates the connected monitors.
package display

import (
	"screen-magnifier/src/geometry"

	"github.com/kbinani/screenshot"
)

// Source reports the bounding rectangles of all active displays in
// virtual-screen coordinates.
type Source interface {
	Displays() []geometry.Rect
}

// Screens is the Source backed by the OS display enumeration.
type Screens struct{}

func (Screens) Displays() []geometry.Rect {
	n := screenshot.NumActiveDisplays()
	out := make([]geometry.Rect, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, geometry.FromImage(screenshot.GetDisplayBounds(i)))
	}
	return out
}

// Primary returns the display anchored at the virtual-screen origin, falling
// back to the first display reported.
func Primary(src Source) (geometry.Rect, bool) {
	displays := src.Displays()
	if len(displays) == 0 {
		return geometry.Rect{}, false
	}
	for _, d := range displays {
		if d.Left == 0 && d.Top == 0 {
			return d, true
		}
	}
	return displays[0], true
}

// VirtualScreen is the union of all displays.
func VirtualScreen(src Source) geometry.Rect {
	w, h, p := geometry.TotalBounds(src.Displays())
	return geometry.Rect{Left: p.X, Top: p.Y, Width: w, Height: h}
}

// Static is a fixed display list.
type Static []geometry.Rect

func (s Static) Displays() []geometry.Rect { return append([]geometry.Rect(nil), s...) }

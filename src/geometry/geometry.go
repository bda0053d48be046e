// Package geometry holds the screen-space rectangle math shared by the
// overlay and the magnification host.
package geometry

import (
	"errors"
	"fmt"
	"image"
)

// ErrDegenerate is returned when an adjustment would leave a rectangle with
// zero or negative width or height.
var ErrDegenerate = errors.New("degenerate rectangle")

type Point struct {
	X int
	Y int
}

// Rect is an axis-aligned rectangle in left/top/width/height form.
type Rect struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

func (r Rect) Right() int  { return r.Left + r.Width }
func (r Rect) Bottom() int { return r.Top + r.Height }

// Empty reports whether the rectangle covers no pixels.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

func (r Rect) Center() Point {
	return Point{X: r.Left + r.Width/2, Y: r.Top + r.Height/2}
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.Left, r.Top, r.Width, r.Height)
}

// Translate shifts the rectangle by dx, dy.
func (r Rect) Translate(dx, dy int) Rect {
	r.Left += dx
	r.Top += dy
	return r
}

// Intersect returns the overlap of r and o, or the zero Rect when they do
// not overlap.
func (r Rect) Intersect(o Rect) Rect {
	left := max(r.Left, o.Left)
	top := max(r.Top, o.Top)
	right := min(r.Right(), o.Right())
	bottom := min(r.Bottom(), o.Bottom())
	if right <= left || bottom <= top {
		return Rect{}
	}
	return Rect{Left: left, Top: top, Width: right - left, Height: bottom - top}
}

// ExpandOrShrink grows the rectangle by margin on every side, or shrinks it
// for a negative margin. The receiver is returned unchanged together with
// ErrDegenerate when the result would have no area.
func (r Rect) ExpandOrShrink(margin int) (Rect, error) {
	out := Rect{
		Left:   r.Left - margin,
		Top:    r.Top - margin,
		Width:  r.Width + 2*margin,
		Height: r.Height + 2*margin,
	}
	if out.Empty() {
		return r, ErrDegenerate
	}
	return out, nil
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right() && p.Y >= r.Top && p.Y < r.Bottom()
}

// FromImage converts an image.Rectangle (as reported by display APIs).
func FromImage(b image.Rectangle) Rect {
	return Rect{Left: b.Min.X, Top: b.Min.Y, Width: b.Dx(), Height: b.Dy()}
}

func (r Rect) ToImage() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right(), r.Bottom())
}

// TotalBounds returns the width and height of the box enclosing all displays
// together with its top-left corner in virtual-screen coordinates.
// No displays yields zero values.
func TotalBounds(displays []Rect) (width, height int, minPos Point) {
	if len(displays) == 0 {
		return 0, 0, Point{}
	}
	left, top := displays[0].Left, displays[0].Top
	right, bottom := displays[0].Right(), displays[0].Bottom()
	for _, d := range displays[1:] {
		left = min(left, d.Left)
		top = min(top, d.Top)
		right = max(right, d.Right())
		bottom = max(bottom, d.Bottom())
	}
	return right - left, bottom - top, Point{X: left, Y: top}
}

// OverlayBounds is the union of all displays with one pixel removed from the
// bottom edge. A window covering the exact full screen makes Windows suppress
// desktop shortcut hotkeys.
func OverlayBounds(displays []Rect) Rect {
	w, h, p := TotalBounds(displays)
	if w == 0 || h == 0 {
		return Rect{}
	}
	return Rect{Left: p.X, Top: p.Y, Width: w, Height: max(h-1, 0)}
}

// ClampTo fits r inside bounds. The second result is false when nothing of r
// remains inside bounds.
func ClampTo(r, bounds Rect) (Rect, bool) {
	if r.Empty() || bounds.Empty() {
		return Rect{}, false
	}
	if r.Width > bounds.Width {
		r.Width = bounds.Width
	}
	if r.Height > bounds.Height {
		r.Height = bounds.Height
	}
	if r.Left < bounds.Left {
		r.Left = bounds.Left
	}
	if r.Top < bounds.Top {
		r.Top = bounds.Top
	}
	if r.Right() > bounds.Right() {
		r.Left = bounds.Right() - r.Width
	}
	if r.Bottom() > bounds.Bottom() {
		r.Top = bounds.Bottom() - r.Height
	}
	return r, true
}

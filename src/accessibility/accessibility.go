// Package accessibility turns the focused window, the window under the
// pointer and the text caret into on-screen rectangles, and polls them for
// changes.
package accessibility

import (
	"errors"
	"fmt"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
	"screen-magnifier/src/provider"
)

var (
	ErrUnsupported       = errors.New("accessibility probing not supported on this platform")
	ErrUnsupportedObject = errors.New("unsupported object")
	ErrNotInDocument     = errors.New("object is not in a browse-mode document")
)

// browseDocumentClasses are window classes that host web documents.
var browseDocumentClasses = map[string]bool{
	"Chrome_RenderWidgetHostHWND": true,
	"MozillaWindowClass":          true,
	"Internet Explorer_Server":    true,
}

// Object is a snapshot of one on-screen element.
type Object struct {
	Window uintptr
	Class  string
	Bounds geometry.Rect
	// Caret is the text caret in screen coordinates, if the element shows one.
	Caret *geometry.Rect
}

func (o Object) InBrowseDocument() bool { return browseDocumentClasses[o.Class] }

// Probe reads the current desktop state.
type Probe interface {
	Focus() (Object, error)
	// Pointer returns the element under the mouse and the mouse position.
	Pointer() (Object, geometry.Point, error)
}

// Resolver implements provider.Resolver on top of a Probe. Objects handed
// in by callers must be Object values; nil means "ask the probe".
type Resolver struct {
	probe Probe
}

func NewResolver(p Probe) *Resolver { return &Resolver{probe: p} }

func (r *Resolver) object(c highlight.Context, obj any) (Object, error) {
	switch o := obj.(type) {
	case Object:
		return o, nil
	case *Object:
		if o == nil {
			break
		}
		return *o, nil
	case nil:
	default:
		return Object{}, fmt.Errorf("%w: %T", ErrUnsupportedObject, obj)
	}
	if c == highlight.Navigator {
		o, _, err := r.probe.Pointer()
		return o, err
	}
	return r.probe.Focus()
}

func (r *Resolver) ContextRect(c highlight.Context, obj any) (geometry.Rect, error) {
	o, err := r.object(c, obj)
	if err != nil {
		return geometry.Rect{}, err
	}
	switch c {
	case highlight.Focus, highlight.Navigator:
		if o.Bounds.Empty() {
			return geometry.Rect{}, provider.ErrNoRect
		}
		return o.Bounds, nil
	case highlight.BrowseMode:
		if !o.InBrowseDocument() {
			return geometry.Rect{}, ErrNotInDocument
		}
		if o.Caret == nil {
			return geometry.Rect{}, provider.ErrNoRect
		}
		caret := *o.Caret
		// a caret is often reported zero pixels wide
		if caret.Width <= 0 {
			caret.Width = 1
		}
		return caret, nil
	}
	return geometry.Rect{}, fmt.Errorf("%w: context %s", ErrUnsupportedObject, c)
}

func (r *Resolver) InBrowseDocument(obj any) bool {
	switch o := obj.(type) {
	case Object:
		return o.InBrowseDocument()
	case *Object:
		return o != nil && o.InBrowseDocument()
	case nil:
		f, err := r.probe.Focus()
		return err == nil && f.InBrowseDocument()
	}
	return false
}

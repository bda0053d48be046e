// Package overlay draws highlight outlines in a click-through, topmost window
// spanning every display.
package overlay

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"screen-magnifier/src/display"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
	"screen-magnifier/src/logutil"
	"screen-magnifier/src/window"
)

// ErrWindowCreation wraps any OS failure while building the overlay window.
var ErrWindowCreation = errors.New("overlay window creation failed")

const (
	msgPaint         = 0x000F
	msgDisplayChange = 0x007E
	msgTimer         = 0x0113
	// msgUpdateGeometry recomputes the window bounds on the window thread.
	msgUpdateGeometry = window.MsgUser + 2

	DefaultRefreshInterval    = 100 * time.Millisecond
	DefaultDisplayChangeDelay = 100 * time.Millisecond
)

// Owner supplies what the overlay draws. Both methods are called on the
// overlay thread once per paint.
type Owner interface {
	EnabledContexts() []highlight.Context
	ContextRects() map[highlight.Context]geometry.Rect
}

// Outline is one rectangle to stroke, in client coordinates.
type Outline struct {
	Rect  geometry.Rect
	Style highlight.Style
}

// Surface is the native overlay window. Invalidate may be called from any
// thread; every other method runs on the overlay thread.
type Surface interface {
	Create() (window.Handle, error)
	// Place hides the window, moves it topmost to bounds and shows it again
	// without activating it.
	Place(bounds geometry.Rect) error
	Update() error
	StartTimer(interval time.Duration) error
	Invalidate() error
	ToLogical(r geometry.Rect) (geometry.Rect, error)
	ToClient(r geometry.Rect) geometry.Rect
	// Paint validates the window and strokes the outlines.
	Paint(outlines []Outline)
	RaiseTopmost() error
	// Release frees the timer and drawing resources.
	Release()
}

type Options struct {
	Displays           display.Source
	RefreshInterval    time.Duration
	DisplayChangeDelay time.Duration
}

// Overlay is the highlight window. owner is a non-owning reference: when it
// returns nil the overlay shuts itself down.
type Overlay struct {
	win      *window.Window
	native   window.Native
	surface  Surface
	owner    func() Owner
	displays display.Source
	refresh  time.Duration
	delay    time.Duration

	mu     sync.Mutex
	bounds geometry.Rect
}

func New(native window.Native, surface Surface, owner func() Owner, opts Options) *Overlay {
	if opts.Displays == nil {
		opts.Displays = display.Screens{}
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.DisplayChangeDelay <= 0 {
		opts.DisplayChangeDelay = DefaultDisplayChangeDelay
	}
	o := &Overlay{
		native:   native,
		surface:  surface,
		owner:    owner,
		displays: opts.Displays,
		refresh:  opts.RefreshInterval,
		delay:    opts.DisplayChangeDelay,
	}
	o.win = window.New(native, window.Options{
		Name:      "highlight overlay",
		Create:    o.create,
		OnDestroy: surface.Release,
	})
	o.win.Handle(msgPaint, func(_, _ uintptr) uintptr { o.paint(); return 0 })
	o.win.Handle(msgTimer, func(_, _ uintptr) uintptr { _ = o.RequestRepaint(); return 0 })
	o.win.Handle(msgDisplayChange, func(_, _ uintptr) uintptr { o.onDisplayChange(); return 0 })
	o.win.Handle(msgUpdateGeometry, func(_, _ uintptr) uintptr {
		if err := o.updateGeometry(); err != nil {
			log.Printf("OVERLAY: display geometry update failed: %v", err)
		}
		return 0
	})
	return o
}

// Start creates the window on its own thread and waits up to timeout.
func (o *Overlay) Start(timeout time.Duration) error {
	return o.win.Run(timeout)
}

func (o *Overlay) create() (window.Handle, error) {
	h, err := o.surface.Create()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrWindowCreation, err)
	}
	fail := func(step string, err error) (window.Handle, error) {
		_ = o.native.DestroyWindow(h)
		o.surface.Release()
		return 0, fmt.Errorf("%w: %s: %v", ErrWindowCreation, step, err)
	}
	if err := o.updateGeometry(); err != nil {
		return fail("position", err)
	}
	if err := o.surface.Update(); err != nil {
		return fail("update", err)
	}
	if err := o.surface.StartTimer(o.refresh); err != nil {
		return fail("timer", err)
	}
	log.Printf("OVERLAY: created at %v, refresh every %v", o.Bounds(), o.refresh)
	return h, nil
}

// Bounds returns the screen rectangle the overlay covers.
func (o *Overlay) Bounds() geometry.Rect {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.bounds
}

// UpdateDisplayGeometry asks the overlay to re-fit itself to the displays.
func (o *Overlay) UpdateDisplayGeometry() error {
	return o.win.Invoke(msgUpdateGeometry)
}

func (o *Overlay) updateGeometry() error {
	bounds := geometry.OverlayBounds(o.displays.Displays())
	logutil.Debugf("OVERLAY: updating location for displays: %v", bounds)
	if bounds.Empty() {
		return fmt.Errorf("no displays reported")
	}
	o.mu.Lock()
	o.bounds = bounds
	o.mu.Unlock()
	return o.surface.Place(bounds)
}

// onDisplayChange waits for the display topology to settle before reading it.
func (o *Overlay) onDisplayChange() {
	time.AfterFunc(o.delay, func() {
		if err := o.UpdateDisplayGeometry(); err != nil {
			logutil.Debugf("OVERLAY: deferred geometry update dropped: %v", err)
		}
	})
}

// RequestRepaint invalidates the whole window. Requests made before the next
// paint collapse into one.
func (o *Overlay) RequestRepaint() error {
	if o.win.NativeHandle() == 0 {
		return window.ErrNotStarted
	}
	return o.surface.Invalidate()
}

func (o *Overlay) paint() {
	owner := o.owner()
	if owner == nil {
		log.Printf("OVERLAY: owner is gone, closing")
		_ = o.win.Close()
		return
	}
	o.surface.Paint(o.outlines(owner))
	if err := o.surface.RaiseTopmost(); err != nil {
		logutil.Debugf("OVERLAY: topmost re-assert failed: %v", err)
	}
}

// outlines turns the owner's rectangles into client-space outlines.
func (o *Overlay) outlines(owner Owner) []Outline {
	items := highlight.Plan(owner.EnabledContexts(), owner.ContextRects())
	if len(items) == 0 {
		return nil
	}
	bounds := o.Bounds()
	out := make([]Outline, 0, len(items))
	for _, it := range items {
		if ol, ok := o.outline(it, bounds); ok {
			out = append(out, ol)
		}
	}
	return out
}

// outline clips it to bounds, converts it to client coordinates and applies
// the style margin. A margin that would collapse the rectangle is skipped.
func (o *Overlay) outline(it highlight.Item, bounds geometry.Rect) (Outline, bool) {
	r := it.Rect.Intersect(bounds)
	if r.Empty() {
		return Outline{}, false
	}
	if logical, err := o.surface.ToLogical(r); err == nil {
		r = logical
	} else {
		logutil.Debugf("OVERLAY: logical conversion of %v failed: %v", r, err)
	}
	r = o.surface.ToClient(r)
	if adjusted, err := r.ExpandOrShrink(it.Style.Margin); err == nil {
		r = adjusted
	}
	return Outline{Rect: r, Style: it.Style}, true
}

// Alive reports whether the overlay window exists.
func (o *Overlay) Alive() bool { return o.win.IsAlive() }

// Done is closed when the overlay window has been destroyed.
func (o *Overlay) Done() <-chan struct{} { return o.win.Stopped() }

// Terminate stops the overlay thread and waits for it. Safe on an overlay
// that never finished starting.
func (o *Overlay) Terminate() error {
	return o.win.Terminate()
}

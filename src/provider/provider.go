// Package provider is the highlighter: it keeps one rectangle per enabled
// context, fed by focus, review and browse-mode notifications, and shows
// them through the highlight overlay.
package provider

import (
	"errors"
	"log"
	"sync"
	"time"
	"weak"

	"screen-magnifier/src/config"
	"screen-magnifier/src/display"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
	"screen-magnifier/src/logutil"
	"screen-magnifier/src/magnification"
	"screen-magnifier/src/overlay"
	"screen-magnifier/src/window"
)

// ErrNoRect reports that an object has no on-screen rectangle right now.
var ErrNoRect = errors.New("no rectangle available")

const DefaultInitTimeout = 200 * time.Millisecond

// Resolver maps an accessibility object to screen coordinates. Errors are
// treated as "no rectangle for this context".
type Resolver interface {
	ContextRect(c highlight.Context, obj any) (geometry.Rect, error)
	// InBrowseDocument reports whether obj sits inside a browse-mode document.
	InBrowseDocument(obj any) bool
}

type Options struct {
	Native window.Native
	// Surface builds the native overlay window for each start.
	Surface            func() overlay.Surface
	Displays           display.Source
	RefreshInterval    time.Duration
	InitTimeout        time.Duration
	DisplayChangeDelay time.Duration
	// Zoom, when set, is panned to every updated rectangle.
	Zoom *magnification.Controller
	// TrackCursor, when set and true, also pans Zoom to the mouse pointer.
	TrackCursor func() bool
}

type Provider struct {
	settings func() config.Highlight
	resolver Resolver
	opts     Options
	rects    *highlight.RectMap

	mu      sync.Mutex
	overlay *overlay.Overlay
}

func New(settings func() config.Highlight, resolver Resolver, opts Options) *Provider {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}
	return &Provider{
		settings: settings,
		resolver: resolver,
		opts:     opts,
		rects:    highlight.NewRectMap(),
	}
}

// Start creates the overlay window and waits for it to come up.
func (p *Provider) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.overlay != nil && p.overlay.Alive() {
		return window.ErrAlreadyRunning
	}

	ref := weak.Make(p)
	owner := func() overlay.Owner {
		if pp := ref.Value(); pp != nil {
			return pp
		}
		return nil
	}
	ov := overlay.New(p.opts.Native, p.opts.Surface(), owner, overlay.Options{
		Displays:           p.opts.Displays,
		RefreshInterval:    p.opts.RefreshInterval,
		DisplayChangeDelay: p.opts.DisplayChangeDelay,
	})
	if err := ov.Start(p.opts.InitTimeout); err != nil {
		if terr := ov.Terminate(); terr != nil {
			log.Printf("PROVIDER: cleanup after failed start: %v", terr)
		}
		return err
	}
	p.overlay = ov
	log.Printf("PROVIDER: highlighter started")
	return nil
}

// Terminate stops the overlay and forgets every rectangle.
func (p *Provider) Terminate() error {
	p.mu.Lock()
	ov := p.overlay
	p.overlay = nil
	p.mu.Unlock()

	var err error
	if ov != nil {
		err = ov.Terminate()
	}
	p.rects.Clear()
	log.Printf("PROVIDER: highlighter terminated")
	return err
}

// Overlay returns the running overlay, or nil.
func (p *Provider) Overlay() *overlay.Overlay {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlay
}

func (p *Provider) IsProviderEnabled() bool {
	ov := p.Overlay()
	return ov != nil && ov.Alive()
}

// EnabledContexts lists the supported contexts switched on in settings.
func (p *Provider) EnabledContexts() []highlight.Context {
	h := p.settings()
	var out []highlight.Context
	for _, c := range highlight.Supported {
		if h.Context(c) {
			out = append(out, c)
		}
	}
	return out
}

func (p *Provider) ContextRects() map[highlight.Context]geometry.Rect {
	return p.rects.Snapshot()
}

func (p *Provider) contextEnabled(c highlight.Context) bool {
	return p.settings().Context(c)
}

// UpdateContextRect stores rect for c, resolving it from obj when rect is
// nil. Disabled contexts are ignored.
func (p *Provider) UpdateContextRect(c highlight.Context, rect *geometry.Rect, obj any) {
	if !p.contextEnabled(c) {
		logutil.Debugf("PROVIDER: %s not enabled, update ignored", c)
		return
	}
	if rect == nil {
		r, err := p.resolver.ContextRect(c, obj)
		if err != nil {
			logutil.Debugf("PROVIDER: no rect for %s: %v", c, err)
		} else {
			rect = &r
		}
	}
	p.rects.Set(c, rect)
	if rect != nil && p.opts.Zoom != nil {
		if err := p.opts.Zoom.PanTo(*rect); err != nil {
			logutil.Debugf("PROVIDER: pan to %s failed: %v", rect, err)
		}
	}
}

// HandleFocusChange updates the focus rectangle. The browse-mode rectangle
// is dropped when focus leaves a browse-mode document and refreshed
// otherwise.
func (p *Provider) HandleFocusChange(obj any) {
	p.UpdateContextRect(highlight.Focus, nil, obj)
	if !p.resolver.InBrowseDocument(obj) {
		p.rects.Delete(highlight.BrowseMode)
		return
	}
	p.HandleBrowseModeMove(nil)
}

func (p *Provider) HandleReviewMove(obj any) {
	p.UpdateContextRect(highlight.Navigator, nil, obj)
}

func (p *Provider) HandleBrowseModeMove(obj any) {
	p.UpdateContextRect(highlight.BrowseMode, nil, obj)
}

// HandlePointerMove centers the zoom on pt while cursor tracking is on.
func (p *Provider) HandlePointerMove(pt geometry.Point) {
	if p.opts.Zoom == nil || p.opts.TrackCursor == nil || !p.opts.TrackCursor() {
		return
	}
	if err := p.opts.Zoom.TrackCursor(pt); err != nil {
		logutil.Debugf("PROVIDER: track cursor to %v failed: %v", pt, err)
	}
}

// Refresh asks the overlay to repaint now.
func (p *Provider) Refresh() error {
	ov := p.Overlay()
	if ov == nil {
		return nil
	}
	return ov.RequestRepaint()
}

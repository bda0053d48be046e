package provider

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-magnifier/src/config"
	"screen-magnifier/src/display"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
	"screen-magnifier/src/magnification"
	"screen-magnifier/src/magnification/magnificationtest"
	"screen-magnifier/src/overlay"
	"screen-magnifier/src/window"
	"screen-magnifier/src/window/windowtest"
)

const msgPaint = 0x000F

type fakeSurface struct {
	native *windowtest.Native
	handle window.Handle

	mu       sync.Mutex
	painted  [][]overlay.Outline
	released int
}

func (s *fakeSurface) Create() (window.Handle, error) {
	s.handle = s.native.NewWindow()
	return s.handle, nil
}
func (s *fakeSurface) Place(geometry.Rect) error      { return nil }
func (s *fakeSurface) Update() error                  { return nil }
func (s *fakeSurface) StartTimer(time.Duration) error { return nil }
func (s *fakeSurface) Invalidate() error {
	return s.native.PostMessage(s.handle, msgPaint, 0, 0)
}
func (s *fakeSurface) ToLogical(r geometry.Rect) (geometry.Rect, error) { return r, nil }
func (s *fakeSurface) ToClient(r geometry.Rect) geometry.Rect           { return r }
func (s *fakeSurface) RaiseTopmost() error                              { return nil }
func (s *fakeSurface) Paint(outlines []overlay.Outline) {
	s.mu.Lock()
	s.painted = append(s.painted, outlines)
	s.mu.Unlock()
}
func (s *fakeSurface) Release() {
	s.mu.Lock()
	s.released++
	s.mu.Unlock()
}

func (s *fakeSurface) paints() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.painted)
}

type fakeResolver struct {
	mu      sync.Mutex
	rects   map[highlight.Context]geometry.Rect
	err     error
	browse  bool
	queried []highlight.Context
}

func (r *fakeResolver) ContextRect(c highlight.Context, _ any) (geometry.Rect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queried = append(r.queried, c)
	if r.err != nil {
		return geometry.Rect{}, r.err
	}
	rect, ok := r.rects[c]
	if !ok {
		return geometry.Rect{}, ErrNoRect
	}
	return rect, nil
}

func (r *fakeResolver) InBrowseDocument(any) bool { return r.browse }

var oneScreen = display.Static{{Width: 1920, Height: 1080}}

func allEnabled() config.Highlight {
	return config.Highlight{Focus: true, Navigator: true, BrowseMode: true}
}

func newProvider(h config.Highlight, resolver Resolver) (*Provider, *fakeSurface) {
	native := windowtest.New()
	surface := &fakeSurface{native: native}
	p := New(func() config.Highlight { return h }, resolver, Options{
		Native:   native,
		Surface:  func() overlay.Surface { return surface },
		Displays: oneScreen,
	})
	return p, surface
}

func TestEnabledContextsFollowSettings(t *testing.T) {
	p, _ := newProvider(config.Highlight{Focus: true, BrowseMode: true}, &fakeResolver{})
	assert.Equal(t, []highlight.Context{highlight.Focus, highlight.BrowseMode}, p.EnabledContexts())
}

func TestUpdateIgnoredForDisabledContext(t *testing.T) {
	resolver := &fakeResolver{rects: map[highlight.Context]geometry.Rect{
		highlight.Navigator: {Left: 1, Top: 1, Width: 10, Height: 10},
	}}
	p, _ := newProvider(config.Highlight{Focus: true}, resolver)

	p.HandleReviewMove(nil)
	p.UpdateContextRect(highlight.Navigator, &geometry.Rect{Width: 5, Height: 5}, nil)

	assert.Empty(t, p.ContextRects())
	assert.Empty(t, resolver.queried, "disabled context must not be resolved")
}

func TestUpdateWritesDirectRect(t *testing.T) {
	resolver := &fakeResolver{}
	p, _ := newProvider(allEnabled(), resolver)

	r := geometry.Rect{Left: 10, Top: 20, Width: 30, Height: 40}
	p.UpdateContextRect(highlight.Focus, &r, nil)

	got, ok := p.rects.Get(highlight.Focus)
	require.True(t, ok)
	assert.Equal(t, r, got)
	assert.Empty(t, resolver.queried)
}

func TestResolutionErrorClearsContext(t *testing.T) {
	resolver := &fakeResolver{rects: map[highlight.Context]geometry.Rect{
		highlight.Focus: {Left: 1, Top: 1, Width: 10, Height: 10},
	}}
	p, _ := newProvider(allEnabled(), resolver)

	p.HandleFocusChange(nil)
	_, ok := p.rects.Get(highlight.Focus)
	require.True(t, ok)

	resolver.err = errors.New("object died")
	assert.NotPanics(t, func() { p.HandleFocusChange(nil) })
	_, ok = p.rects.Get(highlight.Focus)
	assert.False(t, ok)
}

func TestFocusOutsideBrowseDocumentDropsBrowseRect(t *testing.T) {
	resolver := &fakeResolver{rects: map[highlight.Context]geometry.Rect{
		highlight.Focus:      {Left: 1, Top: 1, Width: 10, Height: 10},
		highlight.BrowseMode: {Left: 5, Top: 5, Width: 2, Height: 12},
	}}
	p, _ := newProvider(allEnabled(), resolver)

	p.HandleBrowseModeMove(nil)
	require.Contains(t, p.ContextRects(), highlight.BrowseMode)

	p.HandleFocusChange(nil)
	assert.NotContains(t, p.ContextRects(), highlight.BrowseMode)
	assert.Contains(t, p.ContextRects(), highlight.Focus)
}

func TestFocusInsideBrowseDocumentRefreshesBrowseRect(t *testing.T) {
	resolver := &fakeResolver{browse: true, rects: map[highlight.Context]geometry.Rect{
		highlight.Focus:      {Left: 1, Top: 1, Width: 10, Height: 10},
		highlight.BrowseMode: {Left: 5, Top: 5, Width: 2, Height: 12},
	}}
	p, _ := newProvider(allEnabled(), resolver)

	p.HandleFocusChange(nil)
	assert.Equal(t, []highlight.Context{highlight.Focus, highlight.BrowseMode}, resolver.queried)
	assert.Len(t, p.ContextRects(), 2)
}

func TestUpdatePansZoom(t *testing.T) {
	engine := &magnificationtest.Engine{}
	zoom := magnification.NewController(engine, geometry.Rect{Width: 1920, Height: 1080})
	require.NoError(t, zoom.Start())
	require.NoError(t, zoom.SetZoomLevel(2, geometry.Point{}))

	p, _ := newProvider(allEnabled(), &fakeResolver{})
	p.opts.Zoom = zoom

	p.UpdateContextRect(highlight.Focus, &geometry.Rect{Left: 950, Top: 575, Width: 100, Height: 50}, nil)

	last, ok := engine.LastFullscreen()
	require.True(t, ok)
	assert.Equal(t, magnificationtest.Transform{Level: 2, XOffset: 520, YOffset: 330}, last)
}

func TestPointerMovePansZoomWhenTracking(t *testing.T) {
	engine := &magnificationtest.Engine{}
	zoom := magnification.NewController(engine, geometry.Rect{Width: 1920, Height: 1080})
	require.NoError(t, zoom.Start())
	require.NoError(t, zoom.SetZoomLevel(2, geometry.Point{}))

	tracking := false
	p, _ := newProvider(allEnabled(), &fakeResolver{})
	p.opts.Zoom = zoom
	p.opts.TrackCursor = func() bool { return tracking }

	p.HandlePointerMove(geometry.Point{X: 1000, Y: 600})
	assert.Equal(t, geometry.Point{}, zoom.Center(), "not tracking")

	tracking = true
	p.HandlePointerMove(geometry.Point{X: 1000, Y: 600})
	assert.Equal(t, geometry.Point{X: 1000, Y: 600}, zoom.Center())
	last, ok := engine.LastFullscreen()
	require.True(t, ok)
	assert.Equal(t, magnificationtest.Transform{Level: 2, XOffset: 520, YOffset: 330}, last)
}

func TestPointerMoveWithAttachedControlMovesView(t *testing.T) {
	zoom := magnification.NewController(&magnificationtest.Engine{}, geometry.Rect{Width: 1920, Height: 1080})
	require.NoError(t, zoom.Start())
	require.NoError(t, zoom.Attach(0x40))
	require.NoError(t, zoom.SetZoomLevel(2, geometry.Point{}))

	p, _ := newProvider(allEnabled(), &fakeResolver{})
	p.opts.Zoom = zoom
	p.opts.TrackCursor = func() bool { return true }

	p.HandlePointerMove(geometry.Point{X: 1000, Y: 600})
	assert.Equal(t, geometry.Rect{Left: 520, Top: 330, Width: 960, Height: 540},
		zoom.View(geometry.Rect{Width: 1920, Height: 1080}))
}

func TestStartRefreshTerminate(t *testing.T) {
	p, surface := newProvider(allEnabled(), &fakeResolver{})
	assert.False(t, p.IsProviderEnabled())

	require.NoError(t, p.Start())
	assert.True(t, p.IsProviderEnabled())
	assert.ErrorIs(t, p.Start(), window.ErrAlreadyRunning)

	p.UpdateContextRect(highlight.Focus, &geometry.Rect{Left: 10, Top: 10, Width: 10, Height: 10}, nil)
	require.NoError(t, p.Refresh())
	require.Eventually(t, func() bool { return surface.paints() > 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Terminate())
	assert.False(t, p.IsProviderEnabled())
	assert.Empty(t, p.ContextRects())
	assert.NoError(t, p.Refresh(), "refresh after terminate is a no-op")
}

func TestTerminateWithoutStart(t *testing.T) {
	p, _ := newProvider(allEnabled(), &fakeResolver{})
	assert.NoError(t, p.Terminate())
}

func startDetached(t *testing.T) (*overlay.Overlay, *fakeSurface) {
	t.Helper()
	p, surface := newProvider(allEnabled(), &fakeResolver{})
	require.NoError(t, p.Start())
	return p.Overlay(), surface
}

func TestOverlayShutsDownWhenProviderIsCollected(t *testing.T) {
	ov, surface := startDetached(t)
	require.NotNil(t, ov)

	require.Eventually(t, func() bool {
		runtime.GC()
		_ = ov.RequestRepaint()
		return !ov.Alive()
	}, 2*time.Second, 10*time.Millisecond)

	<-ov.Done()
	surface.mu.Lock()
	defer surface.mu.Unlock()
	assert.Equal(t, 1, surface.released)
}

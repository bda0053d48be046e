package eventloop

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"screen-magnifier/src/config"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
	"screen-magnifier/src/magnification"
	"screen-magnifier/src/magnification/magnificationtest"
	"screen-magnifier/src/singleinstance"
	"screen-magnifier/src/toggle"
)

type fakeMagnifier struct {
	ctrl       *magnification.Controller
	alive      bool
	fullscreen bool
	source     geometry.Rect
}

func newFakeMagnifier(t *testing.T) *fakeMagnifier {
	t.Helper()
	ctrl := magnification.NewController(&magnificationtest.Engine{}, geometry.Rect{Width: 1920, Height: 1080})
	require.NoError(t, ctrl.Start())
	return &fakeMagnifier{ctrl: ctrl, alive: true, source: geometry.Rect{Left: 10, Top: 20, Width: 400, Height: 300}}
}

func (m *fakeMagnifier) IncreaseZoom() error                         { return m.ctrl.IncreaseZoom() }
func (m *fakeMagnifier) DecreaseZoom() error                         { return m.ctrl.DecreaseZoom() }
func (m *fakeMagnifier) SetColorFilter(f magnification.Filter) error { return m.ctrl.SetColorFilter(f) }
func (m *fakeMagnifier) CycleColorFilter() (magnification.Filter, error) {
	return m.ctrl.CycleColorFilter()
}
func (m *fakeMagnifier) SetFullscreenMode(on bool) error       { m.fullscreen = on; return nil }
func (m *fakeMagnifier) Fullscreen() bool                      { return m.fullscreen }
func (m *fakeMagnifier) SourceRect() geometry.Rect             { return m.source }
func (m *fakeMagnifier) IsAlive() bool                         { return m.alive }
func (m *fakeMagnifier) Controller() *magnification.Controller { return m.ctrl }

type fakeHighlighter struct {
	state toggle.State
	flags config.Highlight
	err   error
}

func (h *fakeHighlighter) SetAll(on bool) (toggle.State, error) {
	if h.err != nil {
		return toggle.Unchecked, h.err
	}
	h.flags.SetAll(on)
	h.state = toggle.StateOf(h.flags)
	return h.state, nil
}
func (h *fakeHighlighter) SetContext(c highlight.Context, on bool) (toggle.State, error) {
	if h.err != nil {
		return h.state, h.err
	}
	h.flags.SetContext(c, on)
	h.state = toggle.StateOf(h.flags)
	return h.state, nil
}
func (h *fakeHighlighter) ContextEnabled(c highlight.Context) bool { return h.flags.Context(c) }
func (h *fakeHighlighter) Toggle() (toggle.State, error)           { return h.SetAll(h.state != toggle.Checked) }
func (h *fakeHighlighter) State() toggle.State                     { return h.state }

type fakeProvider struct{ refreshes int }

func (p *fakeProvider) Refresh() error          { p.refreshes++; return nil }
func (p *fakeProvider) IsProviderEnabled() bool { return true }

type fixture struct {
	loop   *Loop
	mag    *fakeMagnifier
	hl     *fakeHighlighter
	prov   *fakeProvider
	store  *config.Store
	copied []geometry.Rect
	seen   []Status
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := config.OpenStore(filepath.Join(t.TempDir(), "settings.toml"))
	require.NoError(t, err)
	f := &fixture{mag: newFakeMagnifier(t), hl: &fakeHighlighter{}, prov: &fakeProvider{}, store: store}
	f.loop = New(Deps{
		Magnifier:   f.mag,
		Highlighter: f.hl,
		Provider:    f.prov,
		Store:       store,
		Copy:        func(r geometry.Rect) error { f.copied = append(f.copied, r); return nil },
		OnChange:    func(s Status) { f.seen = append(f.seen, s) },
	})
	return f
}

func req(cmd, arg string) singleinstance.Request {
	return singleinstance.Request{Command: cmd, Arg: arg}
}

func TestZoomPersistsLevel(t *testing.T) {
	f := newFixture(t)

	body, err := f.loop.Handle(req(singleinstance.CmdZoomIn, ""))
	require.NoError(t, err)
	assert.Equal(t, "Magnification Level 1", body)
	assert.Equal(t, 2, f.store.Get().Magnifier.ZoomLevel)

	for range 3 {
		_, err = f.loop.Handle(req(singleinstance.CmdZoomOut, ""))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.mag.ctrl.Level(), "zoom floors at 1")
	assert.Equal(t, 1, f.store.Get().Magnifier.ZoomLevel)
	assert.Len(t, f.seen, 4)
}

func TestFilterCommands(t *testing.T) {
	f := newFixture(t)

	body, err := f.loop.Handle(req(singleinstance.CmdFilter, "NEXT"))
	require.NoError(t, err)
	assert.Equal(t, "Inverted", body)

	body, err = f.loop.Handle(req(singleinstance.CmdFilter, "4"))
	require.NoError(t, err)
	assert.Equal(t, "Sepia", body)
	assert.Equal(t, 4, f.store.Get().Magnifier.ColorFilter)

	_, err = f.loop.Handle(req(singleinstance.CmdFilter, "x"))
	assert.ErrorIs(t, err, singleinstance.ErrBadArgument)
}

func TestFullscreenToggle(t *testing.T) {
	f := newFixture(t)

	body, err := f.loop.Handle(req(singleinstance.CmdFullscreen, "TOGGLE"))
	require.NoError(t, err)
	assert.Equal(t, "fullscreen on", body)
	assert.True(t, f.store.Get().Magnifier.Fullscreen)

	body, err = f.loop.Handle(req(singleinstance.CmdFullscreen, "OFF"))
	require.NoError(t, err)
	assert.Equal(t, "fullscreen off", body)
}

func TestHighlightCommands(t *testing.T) {
	f := newFixture(t)

	body, err := f.loop.Handle(req(singleinstance.CmdHighlight, "TOGGLE"))
	require.NoError(t, err)
	assert.Equal(t, "highlight checked", body)

	body, err = f.loop.Handle(req(singleinstance.CmdHighlight, "OFF"))
	require.NoError(t, err)
	assert.Equal(t, "highlight unchecked", body)

	f.hl.err = errors.New("overlay thread did not start")
	_, err = f.loop.Handle(req(singleinstance.CmdHighlight, "ON"))
	assert.ErrorIs(t, err, f.hl.err)
}

func TestHighlightContextCommands(t *testing.T) {
	f := newFixture(t)

	body, err := f.loop.Handle(req(singleinstance.CmdHighlight, "FOCUS ON"))
	require.NoError(t, err)
	assert.Equal(t, "highlight focus on, undetermined", body)

	body, err = f.loop.Handle(req(singleinstance.CmdHighlight, "NAVIGATOR TOGGLE"))
	require.NoError(t, err)
	assert.Equal(t, "highlight navigator on, undetermined", body)

	body, err = f.loop.Handle(req(singleinstance.CmdHighlight, "BROWSE ON"))
	require.NoError(t, err)
	assert.Equal(t, "highlight browseMode on, checked", body)

	body, err = f.loop.Handle(req(singleinstance.CmdHighlight, "FOCUS TOGGLE"))
	require.NoError(t, err)
	assert.Equal(t, "highlight focus off, undetermined", body)
	assert.False(t, f.hl.flags.Focus)
	assert.True(t, f.hl.flags.Navigator)

	_, err = f.loop.Handle(req(singleinstance.CmdHighlight, "CARET ON"))
	assert.ErrorIs(t, err, singleinstance.ErrBadArgument)
}

func TestTrackCursorPersists(t *testing.T) {
	f := newFixture(t)

	body, err := f.loop.Handle(req(singleinstance.CmdTrackCursor, "TOGGLE"))
	require.NoError(t, err)
	assert.Equal(t, "track cursor on", body)
	assert.True(t, f.store.Get().Magnifier.TrackCursor)
	assert.True(t, f.loop.Status().Magnifier.TrackCursor)

	body, err = f.loop.Handle(req(singleinstance.CmdTrackCursor, "OFF"))
	require.NoError(t, err)
	assert.Equal(t, "track cursor off", body)
	assert.False(t, f.store.Get().Magnifier.TrackCursor)

	f.mag.alive = false
	_, err = f.loop.Handle(req(singleinstance.CmdTrackCursor, "ON"))
	assert.NoError(t, err, "tracking is a setting, not a window command")
}

func TestCopySourceAndRefresh(t *testing.T) {
	f := newFixture(t)

	body, err := f.loop.Handle(req(singleinstance.CmdCopySource, ""))
	require.NoError(t, err)
	assert.Equal(t, "10,20,400,300", body)
	assert.Equal(t, []geometry.Rect{f.mag.source}, f.copied)

	_, err = f.loop.Handle(req(singleinstance.CmdRefresh, ""))
	require.NoError(t, err)
	assert.Equal(t, 1, f.prov.refreshes)
}

func TestMagnifierCommandsNeedRunningWindow(t *testing.T) {
	f := newFixture(t)
	f.mag.alive = false
	_, err := f.loop.Handle(req(singleinstance.CmdZoomIn, ""))
	assert.ErrorIs(t, err, ErrMagnifierStopped)

	_, err = f.loop.Handle(req(singleinstance.CmdStatus, ""))
	assert.NoError(t, err, "status works without the window")
}

func TestStatusYAML(t *testing.T) {
	f := newFixture(t)
	_, err := f.loop.Handle(req(singleinstance.CmdZoomIn, ""))
	require.NoError(t, err)

	body, err := f.loop.Handle(req(singleinstance.CmdStatus, ""))
	require.NoError(t, err)

	var got Status
	require.NoError(t, yaml.Unmarshal([]byte(body), &got))
	assert.True(t, got.Magnifier.Running)
	assert.Equal(t, 2, got.Magnifier.ZoomLevel)
	assert.Equal(t, "Default", got.Magnifier.Filter)
	assert.Equal(t, f.mag.source, got.Magnifier.Source)
	assert.Equal(t, "unchecked", got.Highlighter.State)
	assert.Contains(t, body, "zoom_level: 2")
}

type fakeConn struct {
	req    singleinstance.Request
	ok     chan string
	fail   chan string
	closed atomic.Bool
}

func (c *fakeConn) Request() singleinstance.Request  { return c.req }
func (c *fakeConn) RespondSuccess(body string) error { c.ok <- body; return nil }
func (c *fakeConn) RespondError(msg string) error    { c.fail <- msg; return nil }
func (c *fakeConn) Close() error                     { c.closed.Store(true); return nil }

type fakeServer struct{ conns chan singleinstance.Conn }

func (s *fakeServer) Start(context.Context) error { return nil }
func (s *fakeServer) Port() int                   { return 49560 }
func (s *fakeServer) Close() error                { return nil }
func (s *fakeServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case c := <-s.conns:
		return c, nil
	}
}

func TestRunServesConnectionsAndQuits(t *testing.T) {
	f := newFixture(t)
	srv := &fakeServer{conns: make(chan singleinstance.Conn)}
	f.loop.d.Server = srv

	done := make(chan error, 1)
	go func() { done <- f.loop.Run(context.Background()) }()

	conn := &fakeConn{req: req(singleinstance.CmdZoomIn, ""), ok: make(chan string, 1), fail: make(chan string, 1)}
	srv.conns <- conn
	select {
	case body := <-conn.ok:
		assert.Equal(t, "Magnification Level 1", body)
	case msg := <-conn.fail:
		t.Fatalf("unexpected error response %q", msg)
	case <-time.After(time.Second):
		t.Fatal("no response")
	}

	f.loop.Submit(req(singleinstance.CmdQuit, ""))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
	assert.Equal(t, 49560, f.loop.Status().Port)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.loop.Run(ctx), context.Canceled)
}

// backlogServer hands out a fixed set of connections as fast as they are
// taken and records which were accepted.
type backlogServer struct {
	fakeServer
	mu    sync.Mutex
	taken []*fakeConn
}

func (s *backlogServer) Next(ctx context.Context) (singleinstance.Conn, error) {
	c, err := s.fakeServer.Next(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.taken = append(s.taken, c.(*fakeConn))
	s.mu.Unlock()
	return c, nil
}

func TestRunClosesUnhandledConnectionsOnExit(t *testing.T) {
	f := newFixture(t)
	srv := &backlogServer{fakeServer: fakeServer{conns: make(chan singleinstance.Conn, 16)}}
	newConn := func(cmd string) *fakeConn {
		return &fakeConn{req: req(cmd, ""), ok: make(chan string, 1), fail: make(chan string, 1)}
	}
	srv.conns <- newConn(singleinstance.CmdQuit)
	for i := 0; i < 12; i++ {
		srv.conns <- newConn(singleinstance.CmdStatus)
	}
	f.loop.d.Server = srv

	done := make(chan error, 1)
	go func() { done <- f.loop.Run(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.NotEmpty(t, srv.taken)
	for i, c := range srv.taken {
		assert.True(t, c.closed.Load(), "accepted connection %d left open", i)
	}
}

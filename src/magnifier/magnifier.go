// Package magnifier hosts the magnification control in its own window and
// keeps the control's source rectangle in step with the window or the
// screen.
package magnifier

import (
	"fmt"
	"log"
	"sync"
	"time"

	"screen-magnifier/src/display"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/logutil"
	"screen-magnifier/src/magnification"
	"screen-magnifier/src/window"
)

const (
	msgMove  = 0x0003
	msgSize  = 0x0005
	msgPaint = 0x000F
	msgTimer = 0x0113
	// msgDisplayChange is WM_DISPLAYCHANGE.
	msgDisplayChange = 0x007E

	DefaultRefreshInterval = 100 * time.Millisecond
)

// DefaultWindow is the windowed-mode frame placement used when none is
// configured.
var DefaultWindow = geometry.Rect{Left: 0, Top: 0, Width: 400, Height: 400}

// HostOS is the native side of the host window. Every method runs on the
// host thread.
type HostOS interface {
	EnableDPIAwareness()
	// CreateHost creates the host window and the magnifier control filling
	// its client area.
	CreateHost() (host, control window.Handle, err error)
	Show() error
	ApplyWindowed(r geometry.Rect) error
	ApplyFullscreen(r geometry.Rect) error
	FullscreenRect() geometry.Rect
	ClientRect() (geometry.Rect, error)
	FrameRect() (geometry.Rect, error)
	// FrameInsets is the offset from the frame origin to the content origin.
	FrameInsets() (dx, dy int)
	ResizeControl(r geometry.Rect) error
	RaiseTopmost() error
	StartTimer(interval time.Duration) error
	Invalidate() error
	// ValidatePaint marks the host as painted.
	ValidatePaint()
	Release()
}

type Options struct {
	// Window is the frame placement in windowed mode.
	Window     geometry.Rect
	Fullscreen bool
	// Screen bounds every source rectangle.
	Screen geometry.Rect
	// Displays, when set, recomputes Screen after a display change.
	Displays        display.Source
	RefreshInterval time.Duration
}

// Host is the magnification host window.
type Host struct {
	win     *window.Window
	os      HostOS
	ctrl    *magnification.Controller
	refresh time.Duration

	mu         sync.Mutex
	frame      geometry.Rect
	position   geometry.Point
	width      int
	height     int
	fullscreen bool
	displays   display.Source
	fullRect   geometry.Rect
	screen     geometry.Rect
	control    window.Handle
}

func NewHost(native window.Native, hostOS HostOS, ctrl *magnification.Controller, opts Options) *Host {
	if opts.Window.Empty() {
		opts.Window = DefaultWindow
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	h := &Host{
		os:         hostOS,
		ctrl:       ctrl,
		refresh:    opts.RefreshInterval,
		frame:      opts.Window,
		position:   geometry.Point{X: opts.Window.Left, Y: opts.Window.Top},
		width:      opts.Window.Width,
		height:     opts.Window.Height,
		fullscreen: opts.Fullscreen,
		screen:     opts.Screen,
		displays:   opts.Displays,
	}
	h.win = window.New(native, window.Options{
		Name:       "magnifier host",
		Create:     h.createWindow,
		Init:       h.initWindow,
		OnDestroy:  h.onDestroy,
		AfterClose: h.afterClose,
	})
	h.win.Handle(msgSize, func(_, _ uintptr) uintptr { h.onResize(); return 0 })
	h.win.Handle(msgMove, func(_, _ uintptr) uintptr { h.onMove(); return 0 })
	h.win.Handle(msgPaint, func(_, _ uintptr) uintptr { h.onPaint(); return 0 })
	h.win.Handle(msgDisplayChange, func(_, _ uintptr) uintptr { h.onDisplayChange(); return 0 })
	h.win.Handle(msgTimer, func(_, _ uintptr) uintptr {
		if err := h.os.Invalidate(); err != nil {
			logutil.Debugf("MAGNIFIER: invalidate failed: %v", err)
		}
		return 0
	})
	return h
}

// Start runs the host window on its own thread, waiting up to timeout for
// it to come up.
func (h *Host) Start(timeout time.Duration) error {
	if h.win.IsAlive() {
		return window.ErrAlreadyRunning
	}
	return h.win.Run(timeout)
}

func (h *Host) createWindow() (window.Handle, error) {
	h.os.EnableDPIAwareness()
	if err := h.ctrl.Start(); err != nil {
		return 0, err
	}
	host, control, err := h.os.CreateHost()
	if err != nil {
		_ = h.ctrl.Stop()
		return 0, fmt.Errorf("create magnifier window: %w", err)
	}
	h.mu.Lock()
	h.control = control
	h.fullRect = h.os.FullscreenRect()
	h.mu.Unlock()
	return host, nil
}

// initWindow places and shows the registered host window. Placement sends
// WM_SIZE and WM_MOVE synchronously; the explicit calls afterwards cover a
// placement that changed nothing.
func (h *Host) initWindow() error {
	if err := h.ctrl.Attach(h.Control()); err != nil {
		log.Printf("MAGNIFIER: attach control failed: %v", err)
	}
	if err := h.applyMode(); err != nil {
		log.Printf("MAGNIFIER: initial placement failed: %v", err)
	}
	if err := h.os.Show(); err != nil {
		log.Printf("MAGNIFIER: show failed: %v", err)
	}
	h.onResize()
	h.onMove()
	if err := h.os.StartTimer(h.refresh); err != nil {
		log.Printf("MAGNIFIER: refresh timer failed: %v", err)
	}
	log.Printf("MAGNIFIER: host window up, fullscreen=%v source=%v", h.Fullscreen(), h.SourceRect())
	return nil
}

// Fullscreen reports the current mode.
func (h *Host) Fullscreen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fullscreen
}

// Placement is the windowed-mode frame rectangle, the value to persist and
// pass back as Options.Window.
func (h *Host) Placement() geometry.Rect {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Rect is the windowed-mode content rectangle.
func (h *Host) Rect() geometry.Rect {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rectLocked()
}

func (h *Host) rectLocked() geometry.Rect {
	return geometry.Rect{Left: h.position.X, Top: h.position.Y, Width: h.width, Height: h.height}
}

// SourceRect is the screen region currently sampled. In fullscreen mode it
// is the zoomed view around the controller's pan centre.
func (h *Host) SourceRect() geometry.Rect {
	h.mu.Lock()
	fullscreen, full, rect := h.fullscreen, h.fullRect, h.rectLocked()
	h.mu.Unlock()
	if fullscreen {
		return h.ctrl.View(full)
	}
	return rect
}

// SetFullscreenMode switches between a bordered window at Rect and a
// borderless, click-through window covering the screen. The change runs on
// the host thread; other callers block until it is applied.
func (h *Host) SetFullscreenMode(enabled bool) error {
	if !h.win.IsAlive() {
		h.mu.Lock()
		h.fullscreen = enabled
		h.mu.Unlock()
		return nil
	}
	res, err := h.win.Execute(func() any {
		h.mu.Lock()
		h.fullscreen = enabled
		h.mu.Unlock()
		return h.applyMode()
	})
	if err != nil {
		return err
	}
	if err, ok := res.(error); ok {
		return err
	}
	return nil
}

func (h *Host) applyMode() error {
	h.mu.Lock()
	fullscreen := h.fullscreen
	if fullscreen {
		h.fullRect = h.os.FullscreenRect()
	}
	full, frame := h.fullRect, h.frame
	h.mu.Unlock()
	if fullscreen {
		return h.os.ApplyFullscreen(full)
	}
	return h.os.ApplyWindowed(frame)
}

func (h *Host) onResize() {
	client, err := h.os.ClientRect()
	if err != nil {
		logutil.Debugf("MAGNIFIER: client rect: %v", err)
		return
	}
	h.mu.Lock()
	fullscreen := h.fullscreen
	if !fullscreen {
		h.width, h.height = client.Width, client.Height
	}
	h.mu.Unlock()
	if !fullscreen {
		h.trackFrame()
	}
	if err := h.os.ResizeControl(client); err != nil {
		logutil.Debugf("MAGNIFIER: resize control: %v", err)
	}
}

func (h *Host) onMove() {
	if h.Fullscreen() {
		return
	}
	h.trackFrame()
}

// trackFrame records the frame rectangle and derives the content origin
// from it.
func (h *Host) trackFrame() {
	frame, err := h.os.FrameRect()
	if err != nil {
		logutil.Debugf("MAGNIFIER: frame rect: %v", err)
		return
	}
	dx, dy := h.os.FrameInsets()
	h.mu.Lock()
	h.frame = frame
	h.position = geometry.Point{X: frame.Left + dx, Y: frame.Top + dy}
	h.mu.Unlock()
}

// onDisplayChange rereads the screen geometry and re-places a fullscreen
// host.
func (h *Host) onDisplayChange() {
	full := h.os.FullscreenRect()
	h.mu.Lock()
	h.fullRect = full
	if h.displays != nil {
		h.screen = display.VirtualScreen(h.displays)
	}
	fullscreen := h.fullscreen
	h.mu.Unlock()
	h.ctrl.SetScreen(full)
	if fullscreen {
		if err := h.applyMode(); err != nil {
			log.Printf("MAGNIFIER: re-placing after display change failed: %v", err)
		}
	}
}

func (h *Host) onPaint() {
	defer h.os.ValidatePaint()
	if !h.win.IsAlive() {
		return
	}
	source := h.SourceRect()
	h.mu.Lock()
	screen := h.screen
	h.mu.Unlock()
	if !screen.Empty() {
		clamped, ok := geometry.ClampTo(source, screen)
		if !ok {
			logutil.Debugf("MAGNIFIER: source %v outside screen %v", source, screen)
			return
		}
		source = clamped
	}
	if source.Empty() {
		return
	}
	if err := h.ctrl.SetSource(source); err != nil {
		logutil.Debugf("MAGNIFIER: set source %v: %v", source, err)
	}
	if err := h.os.RaiseTopmost(); err != nil {
		logutil.Debugf("MAGNIFIER: topmost re-assert failed: %v", err)
	}
}

func (h *Host) onDestroy() {
	h.mu.Lock()
	h.control = 0
	h.mu.Unlock()
	h.ctrl.Detach()
	h.os.Release()
}

// afterClose runs once the message loop has exited; paint messages can no
// longer reach the engine.
func (h *Host) afterClose() {
	if err := h.ctrl.Stop(); err != nil {
		log.Printf("MAGNIFIER: engine dispose failed: %v", err)
	}
}

// Control returns the magnifier control handle, or 0 once destroyed.
func (h *Host) Control() window.Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.control
}

func (h *Host) Controller() *magnification.Controller { return h.ctrl }

func (h *Host) IsAlive() bool { return h.win.IsAlive() }

// Close destroys the host window; the engine is released after the loop
// exits.
func (h *Host) Close() error { return h.win.Close() }

// Stopped is closed once the host window is destroyed.
func (h *Host) Stopped() <-chan struct{} { return h.win.Stopped() }

// Wait blocks until the host thread has exited.
func (h *Host) Wait() { h.win.Wait() }

func (h *Host) Terminate() error { return h.win.Terminate() }

func (h *Host) SetZoomLevel(level int, center geometry.Point) error {
	return h.ctrl.SetZoomLevel(level, center)
}

func (h *Host) IncreaseZoom() error { return h.ctrl.IncreaseZoom() }

func (h *Host) DecreaseZoom() error { return h.ctrl.DecreaseZoom() }

func (h *Host) SetColorFilter(f magnification.Filter) error { return h.ctrl.SetColorFilter(f) }

func (h *Host) CycleColorFilter() (magnification.Filter, error) { return h.ctrl.CycleColorFilter() }

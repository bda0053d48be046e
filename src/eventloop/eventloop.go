// Package eventloop is the resident's single coordinator: hotkeys, the tray
// menu and control-CLI connections all become commands handled here one at
// a time.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"gopkg.in/yaml.v3"

	"screen-magnifier/src/config"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
	"screen-magnifier/src/hotkey"
	"screen-magnifier/src/magnification"
	"screen-magnifier/src/singleinstance"
	"screen-magnifier/src/toggle"
)

var ErrMagnifierStopped = errors.New("magnifier window is not running")

// Magnifier is the magnification host window.
type Magnifier interface {
	IncreaseZoom() error
	DecreaseZoom() error
	SetColorFilter(f magnification.Filter) error
	CycleColorFilter() (magnification.Filter, error)
	SetFullscreenMode(enabled bool) error
	Fullscreen() bool
	SourceRect() geometry.Rect
	IsAlive() bool
	Controller() *magnification.Controller
}

// Highlighter is the enable-state controller of the highlight overlay.
type Highlighter interface {
	SetAll(on bool) (toggle.State, error)
	SetContext(c highlight.Context, on bool) (toggle.State, error)
	ContextEnabled(c highlight.Context) bool
	Toggle() (toggle.State, error)
	State() toggle.State
}

type Provider interface {
	Refresh() error
	IsProviderEnabled() bool
}

type Deps struct {
	Magnifier   Magnifier
	Highlighter Highlighter
	Provider    Provider
	// Store persists zoom, filter and fullscreen changes and holds the
	// cursor tracking flag. Optional.
	Store  *config.Store
	Server singleinstance.Server
	// Copy puts the source rectangle on the clipboard.
	Copy func(geometry.Rect) error
	// OnChange is told about every state change, for the tray.
	OnChange func(Status)
}

// Status is the resident state reported to STATUS.
type Status struct {
	Magnifier struct {
		Running     bool          `yaml:"running" json:"running"`
		Fullscreen  bool          `yaml:"fullscreen" json:"fullscreen"`
		ZoomLevel   int           `yaml:"zoom_level" json:"zoom_level"`
		Label       string        `yaml:"label" json:"label"`
		Filter      string        `yaml:"filter" json:"filter"`
		Source      geometry.Rect `yaml:"source" json:"source"`
		TrackCursor bool          `yaml:"track_cursor" json:"track_cursor"`
	} `yaml:"magnifier" json:"magnifier"`
	Highlighter struct {
		Running bool   `yaml:"running" json:"running"`
		State   string `yaml:"state" json:"state"`
	} `yaml:"highlighter" json:"highlighter"`
	Port int `yaml:"port,omitempty" json:"port,omitempty"`
}

// Loop is the single-goroutine coordinator.
type Loop struct {
	d        Deps
	requests chan singleinstance.Request
	quit     chan struct{}
	port     int
}

func New(d Deps) *Loop {
	return &Loop{
		d:        d,
		requests: make(chan singleinstance.Request, 8),
		quit:     make(chan struct{}),
	}
}

// Submit queues a command from a hotkey or the tray. Commands arriving
// while the queue is full are dropped.
func (l *Loop) Submit(req singleinstance.Request) {
	select {
	case l.requests <- req:
	default:
		log.Printf("EVENTLOOP: queue full, dropping %s", req)
	}
}

// StartHotkeys registers the global hotkeys.
func (l *Loop) StartHotkeys(hk config.Hotkeys) (func(), error) {
	var bindings []hotkey.Binding
	add := func(name, combo string, req singleinstance.Request) {
		if combo == "" {
			return
		}
		bindings = append(bindings, hotkey.Binding{Name: name, Combo: combo, Action: func() { l.Submit(req) }})
	}
	add("zoom-in", hk.ZoomIn, singleinstance.Request{Command: singleinstance.CmdZoomIn})
	add("zoom-out", hk.ZoomOut, singleinstance.Request{Command: singleinstance.CmdZoomOut})
	add("color-filter", hk.ColorFilter, singleinstance.Request{Command: singleinstance.CmdFilter, Arg: "NEXT"})
	add("fullscreen", hk.Fullscreen, singleinstance.Request{Command: singleinstance.CmdFullscreen, Arg: "TOGGLE"})
	add("highlight", hk.Highlight, singleinstance.Request{Command: singleinstance.CmdHighlight, Arg: "TOGGLE"})
	return hotkey.Listen(bindings)
}

// Run serves control connections and queued commands until ctx is done or
// QUIT is handled.
func (l *Loop) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reqCh := make(chan singleinstance.Conn, 4)
	if l.d.Server != nil {
		if err := l.d.Server.Start(ctx); err != nil {
			return err
		}
		defer l.d.Server.Close()
		if p := l.d.Server.Port(); p > 0 {
			l.port = p
			log.Printf("Resident listening on 127.0.0.1:%d", p)
		}
		go func() {
			defer close(reqCh)
			for {
				conn, err := l.d.Server.Next(ctx)
				if err != nil {
					return
				}
				select {
				case reqCh <- conn:
				case <-ctx.Done():
					conn.Close()
					return
				}
			}
		}()
		// connections accepted but never handled are closed on the way out
		defer func() {
			cancel()
			for conn := range reqCh {
				conn.Close()
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.quit:
			return nil
		case req := <-l.requests:
			if _, err := l.Handle(req); err != nil {
				log.Printf("EVENTLOOP: %s failed: %v", req, err)
			}
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(conn)
		}
	}
}

func (l *Loop) handleConn(conn singleinstance.Conn) {
	defer conn.Close()
	body, err := l.Handle(conn.Request())
	if err != nil {
		_ = conn.RespondError(err.Error())
		return
	}
	_ = conn.RespondSuccess(body)
}

// Handle runs one command and returns the text reported back to the caller.
func (l *Loop) Handle(req singleinstance.Request) (string, error) {
	switch req.Command {
	case singleinstance.CmdQuit:
		select {
		case <-l.quit:
		default:
			close(l.quit)
		}
		return "bye", nil
	case singleinstance.CmdStatus:
		return l.statusYAML()
	case singleinstance.CmdRefresh:
		return "refreshed", l.d.Provider.Refresh()
	case singleinstance.CmdHighlight:
		return l.highlight(req.Arg)
	case singleinstance.CmdTrackCursor:
		return l.trackCursor(req.Arg)
	}

	m := l.d.Magnifier
	if m == nil || !m.IsAlive() {
		return "", ErrMagnifierStopped
	}
	ctrl := m.Controller()

	var body string
	var err error
	switch req.Command {
	case singleinstance.CmdZoomIn:
		err = m.IncreaseZoom()
		body = ctrl.LevelLabel()
	case singleinstance.CmdZoomOut:
		err = m.DecreaseZoom()
		body = ctrl.LevelLabel()
	case singleinstance.CmdFilter:
		err = l.filter(req.Arg)
		body = ctrl.FilterLabel()
	case singleinstance.CmdFullscreen:
		on := req.Arg == "ON" || (req.Arg == "TOGGLE" && !m.Fullscreen())
		err = m.SetFullscreenMode(on)
		body = "fullscreen " + onOff(m.Fullscreen())
	case singleinstance.CmdCopySource:
		src := m.SourceRect()
		if l.d.Copy == nil {
			return "", errors.New("clipboard not configured")
		}
		if err := l.d.Copy(src); err != nil {
			return "", err
		}
		return fmt.Sprintf("%d,%d,%d,%d", src.Left, src.Top, src.Width, src.Height), nil
	default:
		return "", fmt.Errorf("%w: %s", singleinstance.ErrUnknownCommand, req.Command)
	}
	if err != nil {
		return "", err
	}
	l.persist()
	l.changed()
	return body, nil
}

func (l *Loop) filter(arg string) error {
	m := l.d.Magnifier
	if arg == "" || arg == "NEXT" {
		_, err := m.CycleColorFilter()
		return err
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("%w: %s", singleinstance.ErrBadArgument, arg)
	}
	return m.SetColorFilter(magnification.Filter(n))
}

// highlight switches every context, or the one named before the mode.
func (l *Loop) highlight(arg string) (string, error) {
	ha, err := singleinstance.ParseHighlightArg(arg)
	if err != nil {
		return "", err
	}
	hl := l.d.Highlighter
	var s toggle.State
	switch {
	case ha.All && ha.Mode == "TOGGLE":
		s, err = hl.Toggle()
	case ha.All:
		s, err = hl.SetAll(ha.Mode == "ON")
	default:
		on := ha.Mode == "ON" || (ha.Mode == "TOGGLE" && !hl.ContextEnabled(ha.Context))
		s, err = hl.SetContext(ha.Context, on)
	}
	l.changed()
	if err != nil {
		return "", err
	}
	if !ha.All {
		return fmt.Sprintf("highlight %s %s, %s", ha.Context, onOff(hl.ContextEnabled(ha.Context)), s), nil
	}
	return "highlight " + s.String(), nil
}

func (l *Loop) trackCursor(arg string) (string, error) {
	if l.d.Store == nil {
		return "", errors.New("settings store not configured")
	}
	var on bool
	err := l.d.Store.Update(func(s *config.Settings) {
		on = arg == "ON" || (arg == "TOGGLE" && !s.Magnifier.TrackCursor)
		s.Magnifier.TrackCursor = on
	})
	if err != nil {
		return "", err
	}
	l.changed()
	return "track cursor " + onOff(on), nil
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func (l *Loop) persist() {
	if l.d.Store == nil || l.d.Magnifier == nil {
		return
	}
	ctrl := l.d.Magnifier.Controller()
	fullscreen := l.d.Magnifier.Fullscreen()
	err := l.d.Store.Update(func(s *config.Settings) {
		s.Magnifier.ZoomLevel = ctrl.Level()
		s.Magnifier.ColorFilter = int(ctrl.Filter())
		s.Magnifier.Fullscreen = fullscreen
	})
	if err != nil {
		log.Printf("EVENTLOOP: failed to save settings: %v", err)
	}
}

func (l *Loop) changed() {
	if l.d.OnChange != nil {
		l.d.OnChange(l.Status())
	}
}

// Status snapshots the resident state.
func (l *Loop) Status() Status {
	var s Status
	s.Port = l.port
	if m := l.d.Magnifier; m != nil {
		ctrl := m.Controller()
		s.Magnifier.Running = m.IsAlive()
		s.Magnifier.Fullscreen = m.Fullscreen()
		s.Magnifier.ZoomLevel = ctrl.Level()
		s.Magnifier.Label = ctrl.LevelLabel()
		s.Magnifier.Filter = ctrl.FilterLabel()
		s.Magnifier.Source = m.SourceRect()
	}
	if l.d.Store != nil {
		s.Magnifier.TrackCursor = l.d.Store.Get().Magnifier.TrackCursor
	}
	if l.d.Provider != nil {
		s.Highlighter.Running = l.d.Provider.IsProviderEnabled()
	}
	if l.d.Highlighter != nil {
		s.Highlighter.State = l.d.Highlighter.State().String()
	}
	return s
}

func (l *Loop) statusYAML() (string, error) {
	out, err := yaml.Marshal(l.Status())
	if err != nil {
		return "", fmt.Errorf("encode status: %w", err)
	}
	return string(out), nil
}

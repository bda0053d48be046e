// Package tray shows the notification-area menu. Every item is turned into
// the same command the control CLI would send.
package tray

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"screen-magnifier/src/config"
	"screen-magnifier/src/singleinstance"
)

type Config struct {
	Title   string
	Tooltip string
	Hotkeys config.Hotkeys
	// Submit receives the command for a clicked item.
	Submit func(singleinstance.Request)
	OnExit func()
}

type Tray struct {
	cfg Config

	mu         sync.Mutex
	ready      bool
	fullscreen *systray.MenuItem
	highlight  *systray.MenuItem
	filter     *systray.MenuItem
}

var (
	aboutMu    sync.Mutex
	aboutExtra string
)

func New(cfg Config) (*Tray, error) {
	if cfg.Submit == nil {
		return nil, fmt.Errorf("tray: Submit callback is required")
	}
	if cfg.Title == "" {
		cfg.Title = "Screen Magnifier"
	}
	return &Tray{cfg: cfg}, nil
}

// Run blocks until the tray is destroyed.
func (t *Tray) Run() { systray.Run(t.onReady, t.onExit) }

func (t *Tray) Destroy() { systray.Quit() }

func (t *Tray) onReady() {
	systray.SetIcon(Icon())
	systray.SetTitle(t.cfg.Title)
	systray.SetTooltip(t.cfg.Tooltip)

	hk := t.cfg.Hotkeys
	zoomIn := systray.AddMenuItem(withHotkey("Zoom in", hk.ZoomIn), "Increase magnification")
	zoomOut := systray.AddMenuItem(withHotkey("Zoom out", hk.ZoomOut), "Decrease magnification")
	filter := systray.AddMenuItem(withHotkey("Next color filter", hk.ColorFilter), "Cycle the color filter")
	fullscreen := systray.AddMenuItemCheckbox(withHotkey("Fullscreen", hk.Fullscreen), "Magnify the whole screen", false)
	highlight := systray.AddMenuItemCheckbox(withHotkey("Highlight focus", hk.Highlight), "Outline focus, navigator and browse cursor", false)
	systray.AddSeparator()
	copySource := systray.AddMenuItem("Copy source rectangle", "Copy the magnified rectangle to the clipboard")
	about := systray.AddMenuItem("About", "About Screen Magnifier")
	quit := systray.AddMenuItem("Quit", "Quit the magnifier")

	t.mu.Lock()
	t.ready = true
	t.fullscreen = fullscreen
	t.highlight = highlight
	t.filter = filter
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-zoomIn.ClickedCh:
				t.submit(singleinstance.CmdZoomIn, "")
			case <-zoomOut.ClickedCh:
				t.submit(singleinstance.CmdZoomOut, "")
			case <-filter.ClickedCh:
				t.submit(singleinstance.CmdFilter, "NEXT")
			case <-fullscreen.ClickedCh:
				t.submit(singleinstance.CmdFullscreen, onOff(!fullscreen.Checked()))
			case <-highlight.ClickedCh:
				t.submit(singleinstance.CmdHighlight, "TOGGLE")
			case <-copySource.ClickedCh:
				t.submit(singleinstance.CmdCopySource, "")
			case <-about.ClickedCh:
				showMessage("About "+t.cfg.Title, aboutText(t.cfg))
			case <-quit.ClickedCh:
				t.submit(singleinstance.CmdQuit, "")
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	if t.cfg.OnExit != nil {
		t.cfg.OnExit()
	}
}

func (t *Tray) submit(cmd, arg string) {
	req := singleinstance.Request{Command: cmd, Arg: arg}
	log.Printf("TRAY: %s", req)
	t.cfg.Submit(req)
}

// SetState mirrors the resident state into the menu checkboxes.
func (t *Tray) SetState(fullscreen, highlight bool, filter string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}
	setChecked(t.fullscreen, fullscreen)
	setChecked(t.highlight, highlight)
	if filter != "" {
		t.filter.SetTooltip("Current filter: " + filter)
	}
}

func setChecked(item *systray.MenuItem, on bool) {
	if on {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func UpdateTooltip(s string) { systray.SetTooltip(s) }

// SetAboutExtra appends a line to the About text.
func SetAboutExtra(s string) {
	aboutMu.Lock()
	aboutExtra = s
	aboutMu.Unlock()
}

func aboutText(cfg Config) string {
	var b strings.Builder
	b.WriteString(cfg.Title + "\n\n")
	hk := cfg.Hotkeys
	for _, line := range [][2]string{
		{"Zoom in", hk.ZoomIn},
		{"Zoom out", hk.ZoomOut},
		{"Color filter", hk.ColorFilter},
		{"Fullscreen", hk.Fullscreen},
		{"Highlight", hk.Highlight},
	} {
		if line[1] != "" {
			fmt.Fprintf(&b, "%s: %s\n", line[0], line[1])
		}
	}
	aboutMu.Lock()
	if aboutExtra != "" {
		b.WriteString("\n" + aboutExtra)
	}
	aboutMu.Unlock()
	return b.String()
}

func withHotkey(label, combo string) string {
	if combo == "" {
		return label
	}
	return label + "\t" + combo
}

func onOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

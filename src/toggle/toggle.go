// Package toggle keeps the highlighter's running state consistent with the
// per-context settings flags.
package toggle

import (
	"fmt"
	"log"
	"sync"

	"screen-magnifier/src/config"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
)

// State is the tri-state "enable all" value.
type State int

const (
	Unchecked State = iota
	Undetermined
	Checked
)

func (s State) String() string {
	switch s {
	case Checked:
		return "checked"
	case Undetermined:
		return "undetermined"
	default:
		return "unchecked"
	}
}

// StateOf is Checked when every flag is set, Undetermined when some are.
func StateOf(h config.Highlight) State {
	switch {
	case h.All():
		return Checked
	case h.Any():
		return Undetermined
	default:
		return Unchecked
	}
}

type Provider interface {
	Start() error
	Terminate() error
	IsProviderEnabled() bool
	Refresh() error
}

// Zoom is the fullscreen magnification brought up with the highlighter.
type Zoom interface {
	Start() error
	SetZoomLevel(level int, center geometry.Point) error
}

type Controller struct {
	store    *config.Store
	provider Provider
	zoom     Zoom

	mu sync.Mutex
}

func New(store *config.Store, provider Provider, zoom Zoom) *Controller {
	return &Controller{store: store, provider: provider, zoom: zoom}
}

// Load corrects flags left set while the highlighter is disabled in
// config, then brings the running state in line with the flags.
func (c *Controller) Load() (State, error) {
	s := c.store.Get().Highlighter
	if !s.Enabled && s.Any() {
		log.Printf("TOGGLE: highlighter disabled in config while some contexts are enabled, correcting")
		if err := c.store.Update(func(st *config.Settings) { st.Highlighter.SetAll(false) }); err != nil {
			return c.State(), err
		}
	}
	return c.Sync()
}

func (c *Controller) State() State { return StateOf(c.store.Highlight()) }

func (c *Controller) ContextEnabled(ctx highlight.Context) bool {
	return c.store.Highlight().Context(ctx)
}

// Sync starts the provider when any context is enabled and stops it when
// none is. A failed start clears every flag.
func (c *Controller) Sync() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncLocked()
}

func (c *Controller) syncLocked() (State, error) {
	wanted := c.store.Highlight().Any()
	if err := c.ensure(wanted); err != nil {
		if wanted {
			c.onEnableFailure()
		}
		return c.State(), err
	}
	return c.State(), nil
}

// SetAll sets every context flag, as the "enable all" box does.
func (c *Controller) SetAll(on bool) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Update(func(st *config.Settings) { st.Highlighter.SetAll(on) }); err != nil {
		return c.State(), err
	}
	if err := c.ensure(on); err != nil {
		if on {
			c.onEnableFailure()
		}
		return c.State(), err
	}
	c.refresh()
	return c.State(), nil
}

// SetContext flips one context flag.
func (c *Controller) SetContext(ctx highlight.Context, on bool) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Update(func(st *config.Settings) { st.Highlighter.SetContext(ctx, on) }); err != nil {
		return c.State(), err
	}
	s, err := c.syncLocked()
	if err == nil {
		c.refresh()
	}
	return s, err
}

// Toggle switches everything off when fully on, and everything on otherwise.
func (c *Controller) Toggle() (State, error) {
	return c.SetAll(c.State() != Checked)
}

func (c *Controller) ensure(shouldBeEnabled bool) error {
	running := c.provider.IsProviderEnabled()
	switch {
	case shouldBeEnabled && !running:
		if c.zoom != nil {
			if err := c.zoom.Start(); err != nil {
				log.Printf("TOGGLE: magnification unavailable: %v", err)
			} else if err := c.zoom.SetZoomLevel(c.store.Get().Magnifier.ZoomLevel, geometry.Point{}); err != nil {
				log.Printf("TOGGLE: initial zoom failed: %v", err)
			}
		}
		if err := c.provider.Start(); err != nil {
			return fmt.Errorf("start highlighter: %w", err)
		}
		return c.setEnabled(true)
	case !shouldBeEnabled && running:
		if err := c.provider.Terminate(); err != nil {
			return fmt.Errorf("terminate highlighter: %w", err)
		}
		return c.setEnabled(false)
	}
	return nil
}

func (c *Controller) setEnabled(on bool) error {
	return c.store.Update(func(st *config.Settings) { st.Highlighter.Enabled = on })
}

func (c *Controller) onEnableFailure() {
	log.Printf("TOGGLE: highlighter failed to start, clearing context flags")
	err := c.store.Update(func(st *config.Settings) {
		st.Highlighter.SetAll(false)
		st.Highlighter.Enabled = false
	})
	if err != nil {
		log.Printf("TOGGLE: failed to persist reset: %v", err)
	}
}

func (c *Controller) refresh() {
	if !c.provider.IsProviderEnabled() {
		return
	}
	if err := c.provider.Refresh(); err != nil {
		log.Printf("TOGGLE: refresh failed: %v", err)
	}
}

// Package magnificationtest records magnification engine calls.
package magnificationtest

import (
	"sync"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/magnification"
	"screen-magnifier/src/window"
)

type Transform struct {
	Level   float32
	XOffset int
	YOffset int
}

// Engine is an in-memory magnification.Engine.
type Engine struct {
	mu sync.Mutex

	InitErr     error
	Initialized bool
	InitCalls   int
	Uninits     int

	Fullscreen       []Transform
	FullscreenEffect *magnification.ColorEffect
	Sources          []geometry.Rect
	WindowLevels     []float32
	WindowEffect     *magnification.ColorEffect
	Controls         []window.Handle
}

func (e *Engine) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.InitCalls++
	if e.InitErr != nil {
		return e.InitErr
	}
	e.Initialized = true
	return nil
}

func (e *Engine) Uninitialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Uninits++
	e.Initialized = false
	return nil
}

func (e *Engine) SetFullscreenTransform(level float32, x, y int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Fullscreen = append(e.Fullscreen, Transform{Level: level, XOffset: x, YOffset: y})
	return nil
}

func (e *Engine) SetFullscreenColorEffect(effect *magnification.ColorEffect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := *effect
	e.FullscreenEffect = &c
	return nil
}

func (e *Engine) SetWindowSource(control window.Handle, source geometry.Rect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Controls = append(e.Controls, control)
	e.Sources = append(e.Sources, source)
	return nil
}

func (e *Engine) SetWindowTransform(control window.Handle, level float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.WindowLevels = append(e.WindowLevels, level)
	return nil
}

func (e *Engine) SetColorEffect(control window.Handle, effect *magnification.ColorEffect) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := *effect
	e.WindowEffect = &c
	return nil
}

// LastFullscreen returns the most recent fullscreen transform.
func (e *Engine) LastFullscreen() (Transform, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Fullscreen) == 0 {
		return Transform{}, false
	}
	return e.Fullscreen[len(e.Fullscreen)-1], true
}

// LastSource returns the most recent windowed source rectangle.
func (e *Engine) LastSource() (geometry.Rect, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Sources) == 0 {
		return geometry.Rect{}, false
	}
	return e.Sources[len(e.Sources)-1], true
}

// Status copies the counters under the lock.
func (e *Engine) Status() (initialized bool, inits, uninits int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Initialized, e.InitCalls, e.Uninits
}

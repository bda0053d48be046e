package magnification

import (
	"fmt"
	"log"
	"sync"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/window"
)

// Controller owns the zoom level and color filter of one magnifier. It
// targets the fullscreen transform until a windowed control is attached.
type Controller struct {
	mu      sync.Mutex
	engine  Engine
	screen  geometry.Rect
	level   int
	filter  Filter
	center  geometry.Point
	control window.Handle
	running bool
}

// NewController returns a controller at level 1 with no color filter.
// screen bounds the fullscreen pan offsets.
func NewController(engine Engine, screen geometry.Rect) *Controller {
	return &Controller{engine: engine, screen: screen, level: 1, center: screen.Center()}
}

// Start initializes the engine.
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if err := c.engine.Initialize(); err != nil {
		return err
	}
	c.running = true
	return nil
}

// Stop resets the fullscreen transform and releases the engine.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	if c.control == 0 {
		none := FilterNone.Effect()
		_ = c.engine.SetFullscreenColorEffect(&none)
		_ = c.engine.SetFullscreenTransform(1, 0, 0)
	}
	c.control = 0
	return c.engine.Uninitialize()
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Attach routes zoom and filter changes to a windowed magnifier control.
func (c *Controller) Attach(control window.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.control = control
	if err := c.applyLocked(); err != nil {
		return err
	}
	return c.applyFilterLocked()
}

// Detach returns to fullscreen magnification.
func (c *Controller) Detach() {
	c.mu.Lock()
	c.control = 0
	c.mu.Unlock()
}

func (c *Controller) SetScreen(screen geometry.Rect) {
	c.mu.Lock()
	c.screen = screen
	c.mu.Unlock()
}

func (c *Controller) Level() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

func (c *Controller) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// SetZoomLevel sets the magnification factor and centers the view on center.
func (c *Controller) SetZoomLevel(level int, center geometry.Point) error {
	if level < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level = level
	c.center = center
	return c.applyLocked()
}

func (c *Controller) IncreaseZoom() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.level++
	return c.applyLocked()
}

// DecreaseZoom lowers the level by one, never below 1.
func (c *Controller) DecreaseZoom() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.level > 1 {
		c.level--
	}
	return c.applyLocked()
}

// SetColorFilter applies f, wrapping indexes outside the filter cycle.
func (c *Controller) SetColorFilter(f Filter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f.Normalize()
	return c.applyFilterLocked()
}

// CycleColorFilter advances to the next filter and returns it.
func (c *Controller) CycleColorFilter() (Filter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = (c.filter + 1).Normalize()
	return c.filter, c.applyFilterLocked()
}

// PanTo centers the view on r.
func (c *Controller) PanTo(r geometry.Rect) error {
	return c.TrackCursor(r.Center())
}

// TrackCursor centers the view on p. Without a control the fullscreen
// transform moves now; with one attached, the host picks the centre up
// through View on its next paint.
func (c *Controller) TrackCursor(p geometry.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.center = p
	if c.control != 0 {
		return nil
	}
	return c.applyLocked()
}

// SetSource points the attached control at source. It is a no-op in
// fullscreen mode.
func (c *Controller) SetSource(source geometry.Rect) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.control == 0 {
		return nil
	}
	return c.engine.SetWindowSource(c.control, source)
}

// Center is the point the view is centred on.
func (c *Controller) Center() geometry.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center
}

// View is the part of area shown at the current level, centred on the pan
// centre and kept inside area.
func (c *Controller) View(area geometry.Rect) geometry.Rect {
	c.mu.Lock()
	level, center := c.level, c.center
	c.mu.Unlock()
	if level <= 1 || area.Empty() {
		return area
	}
	x, y := Offsets(area, level, center)
	return geometry.Rect{Left: x, Top: y, Width: area.Width / level, Height: area.Height / level}
}

// LevelLabel is the announcement text for the current level. Level 1 is
// unmagnified and reads as level 0.
func (c *Controller) LevelLabel() string {
	return fmt.Sprintf("Magnification Level %d", c.Level()-1)
}

func (c *Controller) FilterLabel() string { return c.Filter().String() }

// Offsets returns the fullscreen transform offsets that center the view on
// p at the given level, kept inside the screen.
func Offsets(screen geometry.Rect, level int, p geometry.Point) (int, int) {
	if level <= 1 || screen.Empty() {
		return screen.Left, screen.Top
	}
	viewW := screen.Width / level
	viewH := screen.Height / level
	x := p.X - viewW/2
	y := p.Y - viewH/2
	x = min(max(x, screen.Left), screen.Right()-viewW)
	y = min(max(y, screen.Top), screen.Bottom()-viewH)
	return x, y
}

func (c *Controller) applyLocked() error {
	if !c.running {
		return nil
	}
	if c.control != 0 {
		return c.engine.SetWindowTransform(c.control, float32(c.level))
	}
	x, y := Offsets(c.screen, c.level, c.center)
	if err := c.engine.SetFullscreenTransform(float32(c.level), x, y); err != nil {
		log.Printf("MAGNIFIER: fullscreen transform level=%d failed: %v", c.level, err)
		return err
	}
	return nil
}

func (c *Controller) applyFilterLocked() error {
	if !c.running {
		return nil
	}
	effect := c.filter.Effect()
	if c.control != 0 {
		return c.engine.SetColorEffect(c.control, &effect)
	}
	return c.engine.SetFullscreenColorEffect(&effect)
}

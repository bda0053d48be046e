// Package highlight describes what the overlay draws: the highlight contexts,
// their outline styles and the per-context rectangle store.
package highlight

import (
	"fmt"
	"strings"
	"sync"

	"screen-magnifier/src/geometry"
)

type Context int

const (
	Focus Context = iota
	Navigator
	BrowseMode
	// FocusNavigator is synthesized at paint time when the focus and
	// navigator rectangles are identical.
	FocusNavigator
)

// Supported lists the contexts a user can enable, in paint order.
var Supported = []Context{Focus, Navigator, BrowseMode}

func (c Context) String() string {
	switch c {
	case Focus:
		return "focus"
	case Navigator:
		return "navigator"
	case BrowseMode:
		return "browseMode"
	case FocusNavigator:
		return "focusNavigator"
	default:
		return fmt.Sprintf("context(%d)", int(c))
	}
}

// ParseContext accepts the names produced by String, case-insensitively.
func ParseContext(s string) (Context, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "focus":
		return Focus, nil
	case "navigator", "nav":
		return Navigator, nil
	case "browsemode", "browse":
		return BrowseMode, nil
	case "focusnavigator":
		return FocusNavigator, nil
	}
	return 0, fmt.Errorf("unknown highlight context %q", s)
}

type RGB struct {
	R, G, B uint8
}

// ARGB packs the color as an opaque GDI+ ARGB value.
func (c RGB) ARGB() uint32 {
	return 0xFF<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// DashStyle values match GDI+ DashStyle.
type DashStyle int

const (
	Solid DashStyle = iota
	Dash
	Dot
	DashDot
	DashDotDot
)

type Style struct {
	Color  RGB
	Width  int
	Dash   DashStyle
	Margin int
}

var (
	Blue   = RGB{0x03, 0x36, 0xFF}
	Pink   = RGB{0xFF, 0x02, 0x66}
	Yellow = RGB{0xFF, 0xDE, 0x03}
)

var (
	DashBlue    = Style{Color: Blue, Width: 5, Dash: Dash, Margin: 5}
	SolidPink   = Style{Color: Pink, Width: 5, Dash: Solid, Margin: 5}
	SolidBlue   = Style{Color: Blue, Width: 5, Dash: Solid, Margin: 5}
	SolidYellow = Style{Color: Yellow, Width: 2, Dash: Solid, Margin: 2}
)

var defaultStyles = map[Context]Style{
	Focus:          DashBlue,
	Navigator:      SolidPink,
	FocusNavigator: SolidBlue,
	BrowseMode:     SolidYellow,
}

func StyleFor(c Context) Style { return defaultStyles[c] }

// RectMap holds the latest known rectangle per context. Writers are
// notification handlers on arbitrary goroutines; the overlay reads a
// snapshot once per paint.
type RectMap struct {
	mu    sync.RWMutex
	rects map[Context]geometry.Rect
}

func NewRectMap() *RectMap {
	return &RectMap{rects: make(map[Context]geometry.Rect)}
}

// Set stores r for c. A nil r records that no rectangle is known.
func (m *RectMap) Set(c Context, r *geometry.Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r == nil {
		delete(m.rects, c)
		return
	}
	m.rects[c] = *r
}

func (m *RectMap) Get(c Context) (geometry.Rect, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rects[c]
	return r, ok
}

func (m *RectMap) Delete(c Context) {
	m.mu.Lock()
	delete(m.rects, c)
	m.mu.Unlock()
}

func (m *RectMap) Clear() {
	m.mu.Lock()
	clear(m.rects)
	m.mu.Unlock()
}

// Snapshot copies the current rectangles.
func (m *RectMap) Snapshot() map[Context]geometry.Rect {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[Context]geometry.Rect, len(m.rects))
	for c, r := range m.rects {
		out[c] = r
	}
	return out
}

// Item is one outline to draw.
type Item struct {
	Context Context
	Rect    geometry.Rect
	Style   Style
}

// Plan selects the outlines to draw for the enabled contexts, in enabled
// order. When the navigator rectangle equals the focus rectangle exactly the
// two are replaced by a single FocusNavigator outline; rectangles that merely
// overlap are drawn separately.
func Plan(enabled []Context, rects map[Context]geometry.Rect) []Item {
	items := make([]Item, 0, len(enabled))
	indexOf := func(c Context) int {
		for i := range items {
			if items[i].Context == c {
				return i
			}
		}
		return -1
	}
	remove := func(c Context) {
		if i := indexOf(c); i >= 0 {
			items = append(items[:i], items[i+1:]...)
		}
	}
	for _, c := range enabled {
		r, ok := rects[c]
		if !ok {
			continue
		}
		if c == Navigator {
			if i := indexOf(Focus); i >= 0 && items[i].Rect == r {
				remove(Focus)
				remove(Navigator)
				c = FocusNavigator
			}
		}
		remove(c)
		items = append(items, Item{Context: c, Rect: r, Style: StyleFor(c)})
	}
	return items
}

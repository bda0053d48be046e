package hotkey

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

var (
	ErrUnknownKey = errors.New("unknown key")
	ErrNoBindings = errors.New("no hotkey bindings")
)

// Binding ties a key combination such as "Ctrl+Alt+Up" to an action.
type Binding struct {
	Name   string
	Combo  string
	Action func()
}

type combo struct {
	binding Binding
	// groups holds one set of alternative rawcodes per key in the combination
	groups [][]uint16
}

func (c *combo) contains(raw uint16) bool {
	for _, g := range c.groups {
		for _, r := range g {
			if r == raw {
				return true
			}
		}
	}
	return false
}

// Matcher tracks pressed keys and reports which bindings fire.
type Matcher struct {
	mu      sync.Mutex
	pressed map[uint16]bool
	combos  []*combo
}

func NewMatcher(bindings []Binding) (*Matcher, error) {
	if len(bindings) == 0 {
		return nil, ErrNoBindings
	}
	m := &Matcher{pressed: make(map[uint16]bool)}
	for _, b := range bindings {
		c := &combo{binding: b}
		for _, name := range parseHotkey(b.Combo) {
			raw := keyNameToRawcodes(name)
			if len(raw) == 0 {
				return nil, fmt.Errorf("%w %q in %s hotkey %q", ErrUnknownKey, name, b.Name, b.Combo)
			}
			c.groups = append(c.groups, raw)
		}
		m.combos = append(m.combos, c)
	}
	return m, nil
}

func (m *Matcher) groupDown(g []uint16) bool {
	for _, r := range g {
		if m.pressed[r] {
			return true
		}
	}
	return false
}

// KeyDown records raw as pressed and returns the bindings it completes.
// The completing key is released again so a held combination fires once
// per key press.
func (m *Matcher) KeyDown(raw uint16) []Binding {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pressed[raw] = true

	var fired []Binding
	for _, c := range m.combos {
		if !c.contains(raw) {
			continue
		}
		all := true
		for _, g := range c.groups {
			if !m.groupDown(g) {
				all = false
				break
			}
		}
		if all {
			fired = append(fired, c.binding)
		}
	}
	if len(fired) > 0 {
		delete(m.pressed, raw)
	}
	return fired
}

func (m *Matcher) KeyUp(raw uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pressed, raw)
}

// Listen starts the global keyboard hook and runs each binding's action
// when its combination is pressed. The returned stop function ends the hook.
func Listen(bindings []Binding) (func(), error) {
	m, err := NewMatcher(bindings)
	if err != nil {
		return nil, err
	}
	for _, b := range bindings {
		log.Printf("Hotkey %s configured for: %s", b.Name, b.Combo)
	}

	evChan := gohook.Start()
	if evChan == nil {
		return nil, errors.New("gohook.Start() returned nil channel")
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("PANIC in hotkey goroutine: %v", r)
			}
		}()
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				for _, b := range m.KeyDown(ev.Rawcode) {
					log.Printf("HOTKEY: %s (%s)", b.Name, b.Combo)
					if b.Action != nil {
						b.Action()
					}
				}
			case gohook.KeyUp:
				m.KeyUp(ev.Rawcode)
			}
		}
		log.Printf("Event channel closed")
	}()

	return gohook.End, nil
}

// parseHotkey converts a hotkey string like "Ctrl+Alt+q" to normalized key names
func parseHotkey(hotkeyConfig string) []string {
	parts := strings.Split(strings.ToLower(hotkeyConfig), "+")
	var keys []string

	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "control":
			keys = append(keys, "ctrl")
		case "win", "cmd", "super":
			keys = append(keys, "cmd")
		default:
			keys = append(keys, part)
		}
	}

	return keys
}

var namedKeys = map[string][]uint16{
	// modifiers match either side
	"ctrl":  {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":   {164, 165}, // VK_LMENU, VK_RMENU
	"shift": {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":   {91, 92},   // VK_LWIN, VK_RWIN

	"space":     {32},
	"enter":     {13},
	"return":    {13},
	"esc":       {27},
	"escape":    {27},
	"tab":       {9},
	"backspace": {8},
	"delete":    {46},
	"del":       {46},
	"insert":    {45},
	"ins":       {45},
	"home":      {36},
	"end":       {35},
	"pageup":    {33},
	"pgup":      {33},
	"pagedown":  {34},
	"pgdn":      {34},

	"left":  {37},
	"up":    {38},
	"right": {39},
	"down":  {40},

	// main row and numpad
	"plus":  {187, 107},
	"minus": {189, 109},
}

// keyNameToRawcodes maps a key name to its Windows virtual key codes.
func keyNameToRawcodes(keyName string) []uint16 {
	keyName = strings.ToLower(strings.TrimSpace(keyName))

	if raw, ok := namedKeys[keyName]; ok {
		return raw
	}
	if len(keyName) == 1 {
		switch ch := keyName[0]; {
		case ch >= 'a' && ch <= 'z':
			return []uint16{uint16('A' + ch - 'a')}
		case ch >= '0' && ch <= '9':
			return []uint16{uint16(ch)}
		}
	}
	if strings.HasPrefix(keyName, "f") {
		if n, err := strconv.Atoi(keyName[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)} // VK_F1 = 112
		}
	}

	log.Printf("WARNING: Unknown key name '%s', cannot map to rawcode", keyName)
	return nil
}

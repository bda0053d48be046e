package window

import (
	"sync"
	"weak"
)

// registry maps native handles to their windows without keeping them alive.
var registry sync.Map // Handle -> weak.Pointer[Window]

func register(h Handle, w *Window) {
	registry.Store(h, weak.Make(w))
}

func unregister(h Handle) {
	registry.Delete(h)
}

// Lookup returns the live window for h.
func Lookup(h Handle) (*Window, bool) {
	v, ok := registry.Load(h)
	if !ok {
		return nil, false
	}
	w := v.(weak.Pointer[Window]).Value()
	if w == nil {
		registry.Delete(h)
		return nil, false
	}
	return w, true
}

// Dispatch routes a message received by a window procedure to the handler
// registered on the owning Window. The second result is false when the
// message should fall through to the default window procedure.
func Dispatch(h Handle, msg uint32, wParam, lParam uintptr) (uintptr, bool) {
	w, ok := Lookup(h)
	if !ok {
		return 0, false
	}
	handler, ok := w.handlers[msg]
	if !ok {
		return 0, false
	}
	return handler(wParam, lParam), true
}

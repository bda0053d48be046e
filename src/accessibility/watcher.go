package accessibility

import (
	"context"
	"time"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/logutil"
)

const DefaultPollInterval = 50 * time.Millisecond

// Sink receives change notifications. provider.Provider satisfies it.
type Sink interface {
	HandleFocusChange(obj any)
	HandleReviewMove(obj any)
	HandleBrowseModeMove(obj any)
}

// PointerSink is an optional Sink extension told the raw pointer position
// whenever it moves.
type PointerSink interface {
	HandlePointerMove(p geometry.Point)
}

// Watcher polls a Probe and reports focus, pointer and caret movement.
type Watcher struct {
	probe    Probe
	interval time.Duration

	seen      bool
	focus     uintptr
	focusRect geometry.Rect
	caret     *geometry.Rect
	pointer   geometry.Point
}

func NewWatcher(p Probe, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{probe: p, interval: interval}
}

// Run polls until ctx is done.
func (w *Watcher) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(sink)
		}
	}
}

func (w *Watcher) poll(sink Sink) {
	if f, err := w.probe.Focus(); err != nil {
		logutil.Debugf("ACCESSIBILITY: focus probe failed: %v", err)
	} else {
		switch {
		case !w.seen || f.Window != w.focus || f.Bounds != w.focusRect:
			sink.HandleFocusChange(f)
		case f.InBrowseDocument() && !sameRect(f.Caret, w.caret):
			sink.HandleBrowseModeMove(f)
		}
		w.focus, w.focusRect, w.caret = f.Window, f.Bounds, f.Caret
	}

	if o, pt, err := w.probe.Pointer(); err != nil {
		logutil.Debugf("ACCESSIBILITY: pointer probe failed: %v", err)
	} else if !w.seen || pt != w.pointer {
		w.pointer = pt
		sink.HandleReviewMove(o)
		if ps, ok := sink.(PointerSink); ok {
			ps.HandlePointerMove(pt)
		}
	}
	w.seen = true
}

func sameRect(a, b *geometry.Rect) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

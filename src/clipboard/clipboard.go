package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"

	"screen-magnifier/src/geometry"
)

var ErrUnavailable = errors.New("clipboard unavailable")

var (
	writeMu  sync.Mutex
	initOnce sync.Once
	initErr  error
)

// Init prepares the system clipboard. Later calls return the first result.
func Init() error {
	initOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			initErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	})
	return initErr
}

// Write stores text on the clipboard, initializing it on first use.
func Write(text string) error {
	if err := Init(); err != nil {
		return err
	}
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// FormatRect renders r as "left,top,width,height".
func FormatRect(r geometry.Rect) string {
	return fmt.Sprintf("%d,%d,%d,%d", r.Left, r.Top, r.Width, r.Height)
}

// WriteRect copies r to the clipboard in FormatRect form.
func WriteRect(r geometry.Rect) error {
	return Write(FormatRect(r))
}

package clipboard

import (
	"errors"
	"testing"

	"screen-magnifier/src/geometry"
)

func TestWrite(t *testing.T) {
	// needs a desktop session, so only check it does not panic
	err := Write("test text")
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("unexpected error type: %v", err)
		}
		t.Logf("Failed to write to clipboard: %v", err)
	}
}

func TestFormatRect(t *testing.T) {
	got := FormatRect(geometry.Rect{Left: -10, Top: 20, Width: 400, Height: 300})
	if got != "-10,20,400,300" {
		t.Errorf("FormatRect = %q", got)
	}
}

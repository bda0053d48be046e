//go:build !windows

package magnification

// ControlClass is the window class of the magnifier control.
const ControlClass = "Magnifier"

// NewEngine reports ErrUnsupported off Windows.
func NewEngine() (Engine, error) { return nil, ErrUnsupported }

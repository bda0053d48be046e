//go:build windows

package magnification

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/window"
)

var (
	magnificationDLL              = windows.NewLazySystemDLL("magnification.dll")
	procMagInitialize             = magnificationDLL.NewProc("MagInitialize")
	procMagUninitialize           = magnificationDLL.NewProc("MagUninitialize")
	procMagSetWindowSource        = magnificationDLL.NewProc("MagSetWindowSource")
	procMagSetWindowTransform     = magnificationDLL.NewProc("MagSetWindowTransform")
	procMagSetColorEffect         = magnificationDLL.NewProc("MagSetColorEffect")
	procMagSetFullscreenTransform = magnificationDLL.NewProc("MagSetFullscreenTransform")
	procMagSetFullscreenEffect    = magnificationDLL.NewProc("MagSetFullscreenColorEffect")
)

// ControlClass is the window class of the magnifier control.
const ControlClass = "Magnifier"

type magTransform struct {
	v [3][3]float32
}

type rect struct {
	left, top, right, bottom int32
}

type winEngine struct{}

// NewEngine returns the magnification.dll binding.
func NewEngine() (Engine, error) {
	if err := magnificationDLL.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return winEngine{}, nil
}

func call(p *windows.LazyProc, args ...uintptr) error {
	r, _, err := p.Call(args...)
	if r == 0 {
		return fmt.Errorf("%s: %w", p.Name, err)
	}
	return nil
}

func (winEngine) Initialize() error {
	if err := call(procMagInitialize); err != nil {
		return fmt.Errorf("%w: %v", ErrInitialize, err)
	}
	return nil
}

func (winEngine) Uninitialize() error { return call(procMagUninitialize) }

func (winEngine) SetFullscreenTransform(level float32, xOffset, yOffset int) error {
	return call(procMagSetFullscreenTransform,
		uintptr(math.Float32bits(level)), uintptr(int32(xOffset)), uintptr(int32(yOffset)))
}

func (winEngine) SetFullscreenColorEffect(effect *ColorEffect) error {
	return call(procMagSetFullscreenEffect, uintptr(unsafe.Pointer(effect)))
}

// SetWindowSource passes the RECT by value, which each calling convention
// lays out differently.
func (winEngine) SetWindowSource(control window.Handle, source geometry.Rect) error {
	r := rect{int32(source.Left), int32(source.Top), int32(source.Right()), int32(source.Bottom())}
	switch runtime.GOARCH {
	case "386":
		return call(procMagSetWindowSource, uintptr(control),
			uintptr(r.left), uintptr(r.top), uintptr(r.right), uintptr(r.bottom))
	case "arm64":
		return call(procMagSetWindowSource, uintptr(control),
			uintptr(uint32(r.left))|uintptr(uint32(r.top))<<32,
			uintptr(uint32(r.right))|uintptr(uint32(r.bottom))<<32)
	default:
		return call(procMagSetWindowSource, uintptr(control), uintptr(unsafe.Pointer(&r)))
	}
}

func (winEngine) SetWindowTransform(control window.Handle, level float32) error {
	t := magTransform{v: [3][3]float32{{level, 0, 0}, {0, level, 0}, {0, 0, 1}}}
	return call(procMagSetWindowTransform, uintptr(control), uintptr(unsafe.Pointer(&t)))
}

func (winEngine) SetColorEffect(control window.Handle, effect *ColorEffect) error {
	return call(procMagSetColorEffect, uintptr(control), uintptr(unsafe.Pointer(effect)))
}

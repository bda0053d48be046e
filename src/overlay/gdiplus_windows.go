//go:build windows

package overlay

import (
	"fmt"
	"math"
	"sync"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
)

var (
	gdiplus                  = windows.NewLazySystemDLL("gdiplus.dll")
	procGdiplusStartup       = gdiplus.NewProc("GdiplusStartup")
	procGdiplusShutdown      = gdiplus.NewProc("GdiplusShutdown")
	procGdipCreateFromHDC    = gdiplus.NewProc("GdipCreateFromHDC")
	procGdipDeleteGraphics   = gdiplus.NewProc("GdipDeleteGraphics")
	procGdipSetSmoothingMode = gdiplus.NewProc("GdipSetSmoothingMode")
	procGdipCreatePen1       = gdiplus.NewProc("GdipCreatePen1")
	procGdipDeletePen        = gdiplus.NewProc("GdipDeletePen")
	procGdipSetPenDashStyle  = gdiplus.NewProc("GdipSetPenDashStyle")
	procGdipDrawRectangleI   = gdiplus.NewProc("GdipDrawRectangleI")
)

const (
	gdipOk                 = 0
	smoothingModeAntiAlias = 4
	unitPixel              = 2
)

type gdiplusStartupInput struct {
	GdiplusVersion           uint32
	DebugEventCallback       uintptr
	SuppressBackgroundThread int32
	SuppressExternalCodecs   int32
}

var (
	gdipMu    sync.Mutex
	gdipRefs  int
	gdipToken uintptr
)

// startGDIPlus initializes GDI+ for the process. Calls are reference counted.
func startGDIPlus() error {
	gdipMu.Lock()
	defer gdipMu.Unlock()
	if gdipRefs > 0 {
		gdipRefs++
		return nil
	}
	input := gdiplusStartupInput{GdiplusVersion: 1}
	status, _, _ := procGdiplusStartup.Call(
		uintptr(unsafe.Pointer(&gdipToken)),
		uintptr(unsafe.Pointer(&input)),
		0,
	)
	if status != gdipOk {
		return fmt.Errorf("GdiplusStartup status %d", status)
	}
	gdipRefs = 1
	return nil
}

func stopGDIPlus() {
	gdipMu.Lock()
	defer gdipMu.Unlock()
	if gdipRefs == 0 {
		return
	}
	gdipRefs--
	if gdipRefs == 0 {
		procGdiplusShutdown.Call(gdipToken)
		gdipToken = 0
	}
}

// drawOutlines strokes each outline with an anti-aliased pen.
func drawOutlines(hdc win.HDC, outlines []Outline) error {
	var graphics uintptr
	if status, _, _ := procGdipCreateFromHDC.Call(uintptr(hdc), uintptr(unsafe.Pointer(&graphics))); status != gdipOk {
		return fmt.Errorf("GdipCreateFromHDC status %d", status)
	}
	defer procGdipDeleteGraphics.Call(graphics)
	procGdipSetSmoothingMode.Call(graphics, smoothingModeAntiAlias)

	for _, o := range outlines {
		if err := drawRectangle(graphics, o.Rect, o.Style); err != nil {
			return err
		}
	}
	return nil
}

func drawRectangle(graphics uintptr, r geometry.Rect, style highlight.Style) error {
	var pen uintptr
	status, _, _ := procGdipCreatePen1.Call(
		uintptr(style.Color.ARGB()),
		uintptr(math.Float32bits(float32(style.Width))),
		unitPixel,
		uintptr(unsafe.Pointer(&pen)),
	)
	if status != gdipOk {
		return fmt.Errorf("GdipCreatePen1 status %d", status)
	}
	defer procGdipDeletePen.Call(pen)
	if style.Dash != highlight.Solid {
		procGdipSetPenDashStyle.Call(pen, uintptr(style.Dash))
	}
	status, _, _ = procGdipDrawRectangleI.Call(
		graphics, pen,
		uintptr(int32(r.Left)), uintptr(int32(r.Top)),
		uintptr(int32(r.Width)), uintptr(int32(r.Height)),
	)
	if status != gdipOk {
		return fmt.Errorf("GdipDrawRectangleI status %d", status)
	}
	return nil
}

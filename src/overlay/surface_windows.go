//go:build windows

package overlay

import (
	"fmt"
	"log"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/window"
)

var (
	user32                                     = windows.NewLazySystemDLL("user32.dll")
	procSetLayeredWindowAttributes             = user32.NewProc("SetLayeredWindowAttributes")
	procPhysicalToLogicalPointForPerMonitorDPI = user32.NewProc("PhysicalToLogicalPointForPerMonitorDPI")
)

const (
	className = "ScreenMagnifierHighlight"
	// transparentColor is the color key; black pixels are see-through.
	transparentColor = 0
	opaque           = 0xFF
	lwaColorKey      = 0x1
	lwaAlpha         = 0x2
	refreshTimerID   = 1

	wsExNoActivate = 0x08000000
	exStyle        = win.WS_EX_TOPMOST | win.WS_EX_LAYERED | wsExNoActivate | win.WS_EX_TRANSPARENT
	style          = win.WS_POPUP | win.WS_DISABLED
)

// backgroundBrush is the class background, created on the first
// registration and shared by every overlay window after it.
var backgroundBrush = sync.OnceValue(func() win.HBRUSH {
	return win.CreateSolidBrush(win.COLORREF(transparentColor))
})

type winSurface struct {
	hwnd  win.HWND
	timer bool
	gdip  bool
}

// NewSurface returns the Win32 overlay surface.
func NewSurface() Surface { return &winSurface{} }

func (s *winSurface) Create() (window.Handle, error) {
	cls, err := window.RegisterClass(window.Class{
		Name:       className,
		Style:      win.CS_HREDRAW | win.CS_VREDRAW,
		Background: backgroundBrush(),
	})
	if err != nil {
		return 0, err
	}
	title, _ := syscall.UTF16PtrFromString("Screen Magnifier Highlight")
	s.hwnd = win.CreateWindowEx(exStyle, cls, title, style, 0, 0, 0, 0, 0, 0, win.GetModuleHandle(nil), nil)
	if s.hwnd == 0 {
		return 0, fmt.Errorf("CreateWindowEx: %w", windows.GetLastError())
	}
	r, _, err := procSetLayeredWindowAttributes.Call(uintptr(s.hwnd), transparentColor, opaque, lwaAlpha|lwaColorKey)
	if r == 0 {
		return 0, s.abandon(fmt.Errorf("SetLayeredWindowAttributes: %w", err))
	}
	if err := startGDIPlus(); err != nil {
		return 0, s.abandon(err)
	}
	s.gdip = true
	return window.Handle(s.hwnd), nil
}

// abandon destroys a half-built window. It runs before the handle is
// registered, so no destroy handler sees it.
func (s *winSurface) abandon(err error) error {
	win.DestroyWindow(s.hwnd)
	s.hwnd = 0
	return err
}

func (s *winSurface) Place(b geometry.Rect) error {
	win.ShowWindow(s.hwnd, win.SW_HIDE)
	if !win.SetWindowPos(s.hwnd, win.HWND_TOPMOST, int32(b.Left), int32(b.Top), int32(b.Width), int32(b.Height), win.SWP_NOACTIVATE) {
		return fmt.Errorf("SetWindowPos: %w", windows.GetLastError())
	}
	win.ShowWindow(s.hwnd, win.SW_SHOWNA)
	return nil
}

func (s *winSurface) Update() error {
	if !win.UpdateWindow(s.hwnd) {
		return fmt.Errorf("UpdateWindow: %w", windows.GetLastError())
	}
	return nil
}

func (s *winSurface) StartTimer(interval time.Duration) error {
	if win.SetTimer(s.hwnd, refreshTimerID, uint32(interval.Milliseconds()), 0) == 0 {
		return fmt.Errorf("SetTimer: %w", windows.GetLastError())
	}
	s.timer = true
	return nil
}

func (s *winSurface) Invalidate() error {
	if !win.InvalidateRect(s.hwnd, nil, true) {
		return fmt.Errorf("InvalidateRect: %w", windows.GetLastError())
	}
	return nil
}

func (s *winSurface) ToLogical(r geometry.Rect) (geometry.Rect, error) {
	if err := procPhysicalToLogicalPointForPerMonitorDPI.Find(); err != nil {
		return r, err
	}
	tl := win.POINT{X: int32(r.Left), Y: int32(r.Top)}
	br := win.POINT{X: int32(r.Right()), Y: int32(r.Bottom())}
	for _, p := range []*win.POINT{&tl, &br} {
		if ok, _, err := procPhysicalToLogicalPointForPerMonitorDPI.Call(uintptr(s.hwnd), uintptr(unsafe.Pointer(p))); ok == 0 {
			return r, fmt.Errorf("PhysicalToLogicalPointForPerMonitorDPI: %w", err)
		}
	}
	return pointsToRect(tl, br), nil
}

func (s *winSurface) ToClient(r geometry.Rect) geometry.Rect {
	tl := win.POINT{X: int32(r.Left), Y: int32(r.Top)}
	br := win.POINT{X: int32(r.Right()), Y: int32(r.Bottom())}
	win.ScreenToClient(s.hwnd, &tl)
	win.ScreenToClient(s.hwnd, &br)
	return pointsToRect(tl, br)
}

func pointsToRect(tl, br win.POINT) geometry.Rect {
	return geometry.Rect{Left: int(tl.X), Top: int(tl.Y), Width: int(br.X - tl.X), Height: int(br.Y - tl.Y)}
}

func (s *winSurface) Paint(outlines []Outline) {
	var ps win.PAINTSTRUCT
	hdc := win.BeginPaint(s.hwnd, &ps)
	defer win.EndPaint(s.hwnd, &ps)
	if hdc == 0 || len(outlines) == 0 {
		return
	}
	if err := drawOutlines(hdc, outlines); err != nil {
		log.Printf("OVERLAY: draw failed: %v", err)
	}
}

func (s *winSurface) RaiseTopmost() error {
	if !win.SetWindowPos(s.hwnd, win.HWND_TOPMOST, 0, 0, 0, 0, win.SWP_NOACTIVATE|win.SWP_NOMOVE|win.SWP_NOSIZE) {
		return fmt.Errorf("SetWindowPos: %w", windows.GetLastError())
	}
	return nil
}

func (s *winSurface) Release() {
	if s.timer {
		win.KillTimer(s.hwnd, refreshTimerID)
		s.timer = false
	}
	if s.gdip {
		stopGDIPlus()
		s.gdip = false
	}
}

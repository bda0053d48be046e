//go:build windows

package magnifier

import (
	"fmt"
	"syscall"
	"time"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/magnification"
	"screen-magnifier/src/window"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procSetLayeredWindowAttributes = user32.NewProc("SetLayeredWindowAttributes")
)

const (
	hostClassName  = "ScreenMagnifierHost"
	lwaAlpha       = 0x2
	smCXFrame      = 32
	smCYFrame      = 33
	refreshTimerID = 1

	hostExStyle       = win.WS_EX_TOPMOST | win.WS_EX_LAYERED | win.WS_EX_TRANSPARENT
	hostStyle         = win.WS_CLIPCHILDREN | win.WS_CAPTION
	windowedExStyle   = win.WS_EX_TOPMOST | win.WS_EX_LAYERED
	windowedStyle     = win.WS_SIZEBOX | win.WS_SYSMENU | win.WS_CLIPCHILDREN | win.WS_CAPTION | win.WS_MAXIMIZEBOX
	fullscreenExStyle = win.WS_EX_TOPMOST | win.WS_EX_LAYERED | win.WS_EX_TOOLWINDOW | win.WS_EX_TRANSPARENT
	fullscreenStyle   = win.WS_CHILD
	placeFlags        = win.SWP_SHOWWINDOW | win.SWP_NOZORDER | win.SWP_NOACTIVATE
)

type winHost struct {
	hwnd    win.HWND
	control win.HWND
	timer   bool
}

// NewHostOS returns the Win32 host window.
func NewHostOS() HostOS { return &winHost{} }

func (w *winHost) EnableDPIAwareness() { window.EnableDPIAwareness() }

func (w *winHost) CreateHost() (window.Handle, window.Handle, error) {
	cls, err := window.RegisterClass(window.Class{
		Name:  hostClassName,
		Style: win.CS_HREDRAW | win.CS_VREDRAW,
	})
	if err != nil {
		return 0, 0, err
	}
	hinst := win.GetModuleHandle(nil)
	title, _ := syscall.UTF16PtrFromString("Screen Magnifier")
	w.hwnd = win.CreateWindowEx(hostExStyle, cls, title, hostStyle, 0, 0, 0, 0, 0, 0, hinst, nil)
	if w.hwnd == 0 {
		return 0, 0, fmt.Errorf("CreateWindowEx(host): %w", windows.GetLastError())
	}
	if r, _, err := procSetLayeredWindowAttributes.Call(uintptr(w.hwnd), 0, 255, lwaAlpha); r == 0 {
		win.DestroyWindow(w.hwnd)
		return 0, 0, fmt.Errorf("SetLayeredWindowAttributes: %w", err)
	}

	var client win.RECT
	win.GetClientRect(w.hwnd, &client)
	ctlClass, _ := syscall.UTF16PtrFromString(magnification.ControlClass)
	ctlTitle, _ := syscall.UTF16PtrFromString("Screen Magnifier View")
	w.control = win.CreateWindowEx(0, ctlClass, ctlTitle, win.WS_CHILD|win.WS_VISIBLE,
		client.Left, client.Top, client.Right-client.Left, client.Bottom-client.Top,
		w.hwnd, 0, hinst, nil)
	if w.control == 0 {
		err := windows.GetLastError()
		win.DestroyWindow(w.hwnd)
		return 0, 0, fmt.Errorf("CreateWindowEx(magnifier control): %w", err)
	}
	return window.Handle(w.hwnd), window.Handle(w.control), nil
}

func (w *winHost) Show() error {
	win.ShowWindow(w.hwnd, win.SW_SHOW)
	return nil
}

func (w *winHost) restyle(exStyle, style uint32, r geometry.Rect) error {
	win.SetWindowLong(w.hwnd, win.GWL_EXSTYLE, int32(exStyle))
	win.SetWindowLong(w.hwnd, win.GWL_STYLE, int32(style))
	if !win.SetWindowPos(w.hwnd, win.HWND_TOPMOST, int32(r.Left), int32(r.Top), int32(r.Width), int32(r.Height), placeFlags) {
		return fmt.Errorf("SetWindowPos: %w", windows.GetLastError())
	}
	return nil
}

func (w *winHost) ApplyWindowed(r geometry.Rect) error {
	return w.restyle(windowedExStyle, windowedStyle, r)
}

func (w *winHost) ApplyFullscreen(r geometry.Rect) error {
	return w.restyle(fullscreenExStyle, fullscreenStyle, r)
}

func (w *winHost) FullscreenRect() geometry.Rect {
	return geometry.Rect{
		Width:  int(win.GetSystemMetrics(win.SM_CXSCREEN)),
		Height: int(win.GetSystemMetrics(win.SM_CYSCREEN)),
	}
}

func fromRECT(r win.RECT) geometry.Rect {
	return geometry.Rect{Left: int(r.Left), Top: int(r.Top), Width: int(r.Right - r.Left), Height: int(r.Bottom - r.Top)}
}

func (w *winHost) ClientRect() (geometry.Rect, error) {
	var r win.RECT
	if !win.GetClientRect(w.hwnd, &r) {
		return geometry.Rect{}, fmt.Errorf("GetClientRect: %w", windows.GetLastError())
	}
	return fromRECT(r), nil
}

func (w *winHost) FrameRect() (geometry.Rect, error) {
	var r win.RECT
	if !win.GetWindowRect(w.hwnd, &r) {
		return geometry.Rect{}, fmt.Errorf("GetWindowRect: %w", windows.GetLastError())
	}
	return fromRECT(r), nil
}

func (w *winHost) FrameInsets() (int, int) {
	dx := 2 * int(win.GetSystemMetrics(smCXFrame))
	dy := 2*int(win.GetSystemMetrics(smCYFrame)) + int(win.GetSystemMetrics(win.SM_CYCAPTION))
	return dx, dy
}

func (w *winHost) ResizeControl(r geometry.Rect) error {
	if !win.SetWindowPos(w.control, 0, int32(r.Left), int32(r.Top), int32(r.Width), int32(r.Height), 0) {
		return fmt.Errorf("SetWindowPos(control): %w", windows.GetLastError())
	}
	return nil
}

func (w *winHost) RaiseTopmost() error {
	if !win.SetWindowPos(w.hwnd, win.HWND_TOPMOST, 0, 0, 0, 0, win.SWP_NOACTIVATE|win.SWP_NOMOVE|win.SWP_NOSIZE) {
		return fmt.Errorf("SetWindowPos: %w", windows.GetLastError())
	}
	return nil
}

func (w *winHost) StartTimer(interval time.Duration) error {
	if win.SetTimer(w.hwnd, refreshTimerID, uint32(interval.Milliseconds()), 0) == 0 {
		return fmt.Errorf("SetTimer: %w", windows.GetLastError())
	}
	w.timer = true
	return nil
}

func (w *winHost) Invalidate() error {
	win.InvalidateRect(w.control, nil, true)
	if !win.InvalidateRect(w.hwnd, nil, false) {
		return fmt.Errorf("InvalidateRect: %w", windows.GetLastError())
	}
	return nil
}

func (w *winHost) ValidatePaint() {
	var ps win.PAINTSTRUCT
	win.BeginPaint(w.hwnd, &ps)
	win.EndPaint(w.hwnd, &ps)
}

func (w *winHost) Release() {
	if w.timer {
		win.KillTimer(w.hwnd, refreshTimerID)
		w.timer = false
	}
	w.control = 0
}

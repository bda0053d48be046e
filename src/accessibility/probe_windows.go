//go:build windows

package accessibility

import (
	"fmt"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"

	"screen-magnifier/src/geometry"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	procGetGUIThreadInfo = user32.NewProc("GetGUIThreadInfo")
	procGetClassNameW    = user32.NewProc("GetClassNameW")
)

type guiThreadInfo struct {
	cbSize        uint32
	flags         uint32
	hwndActive    win.HWND
	hwndFocus     win.HWND
	hwndCapture   win.HWND
	hwndMenuOwner win.HWND
	hwndMoveSize  win.HWND
	hwndCaret     win.HWND
	rcCaret       win.RECT
}

type winProbe struct{}

// NewProbe reads the foreground thread's focus and caret and the window
// under the mouse.
func NewProbe() Probe { return winProbe{} }

func (winProbe) Focus() (Object, error) {
	info := guiThreadInfo{}
	info.cbSize = uint32(unsafe.Sizeof(info))
	if r, _, err := procGetGUIThreadInfo.Call(0, uintptr(unsafe.Pointer(&info))); r == 0 {
		return Object{}, fmt.Errorf("GetGUIThreadInfo: %w", err)
	}
	hwnd := info.hwndFocus
	if hwnd == 0 {
		hwnd = info.hwndActive
	}
	if hwnd == 0 {
		return Object{}, fmt.Errorf("no focused window")
	}
	o, err := describe(hwnd)
	if err != nil {
		return Object{}, err
	}
	if info.hwndCaret != 0 {
		tl := win.POINT{X: info.rcCaret.Left, Y: info.rcCaret.Top}
		br := win.POINT{X: info.rcCaret.Right, Y: info.rcCaret.Bottom}
		if win.ClientToScreen(info.hwndCaret, &tl) && win.ClientToScreen(info.hwndCaret, &br) {
			caret := geometry.Rect{
				Left:   int(tl.X),
				Top:    int(tl.Y),
				Width:  int(br.X - tl.X),
				Height: int(br.Y - tl.Y),
			}
			o.Caret = &caret
		}
	}
	return o, nil
}

func (winProbe) Pointer() (Object, geometry.Point, error) {
	var pt win.POINT
	if !win.GetCursorPos(&pt) {
		return Object{}, geometry.Point{}, fmt.Errorf("GetCursorPos failed")
	}
	p := geometry.Point{X: int(pt.X), Y: int(pt.Y)}
	hwnd := win.WindowFromPoint(pt)
	if hwnd == 0 {
		return Object{}, p, fmt.Errorf("no window at %d,%d", p.X, p.Y)
	}
	o, err := describe(hwnd)
	return o, p, err
}

func describe(hwnd win.HWND) (Object, error) {
	var rc win.RECT
	if !win.GetWindowRect(hwnd, &rc) {
		return Object{}, fmt.Errorf("GetWindowRect failed for %#x", hwnd)
	}
	return Object{
		Window: uintptr(hwnd),
		Class:  className(hwnd),
		Bounds: geometry.Rect{
			Left:   int(rc.Left),
			Top:    int(rc.Top),
			Width:  int(rc.Right - rc.Left),
			Height: int(rc.Bottom - rc.Top),
		},
	}, nil
}

func className(hwnd win.HWND) string {
	buf := make([]uint16, 256)
	n, _, _ := procGetClassNameW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

//go:build windows

package window

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procPostThreadMessageW = user32.NewProc("PostThreadMessageW")
)

const (
	wmQuit                   = 0x0012
	errorClassAlreadyExists  = 1410
	errorInvalidWindowHandle = 1400
)

type winNative struct{}

// NewNative returns the Win32 message loop.
func NewNative() Native { return winNative{} }

func (winNative) CurrentThreadID() uint32 { return windows.GetCurrentThreadId() }

func (winNative) PumpMessages() error {
	var msg win.MSG
	for {
		switch win.GetMessage(&msg, 0, 0, 0) {
		case 0:
			return nil
		case -1:
			return errors.New("GetMessage failed")
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}
}

func (winNative) PostMessage(h Handle, msg uint32, wParam, lParam uintptr) error {
	if win.PostMessage(win.HWND(h), msg, wParam, lParam) == 0 {
		return fmt.Errorf("PostMessage(0x%x): %w", msg, windows.GetLastError())
	}
	return nil
}

func (winNative) PostThreadQuit(threadID uint32) error {
	r, _, err := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if r == 0 {
		return fmt.Errorf("PostThreadMessage(WM_QUIT): %w", err)
	}
	return nil
}

func (winNative) PostQuit(code int) { win.PostQuitMessage(int32(code)) }

func (winNative) DestroyWindow(h Handle) error {
	if !win.DestroyWindow(win.HWND(h)) {
		if errno, ok := windows.GetLastError().(syscall.Errno); ok && errno == errorInvalidWindowHandle {
			return nil
		}
		return fmt.Errorf("DestroyWindow: %w", windows.GetLastError())
	}
	return nil
}

// wndProc forwards every message to the registered Window, falling back to
// the default procedure.
var wndProc = syscall.NewCallback(func(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	if ret, ok := Dispatch(Handle(hwnd), msg, wParam, lParam); ok {
		return ret
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
})

// Class describes a window class served by the shared window procedure.
type Class struct {
	Name       string
	Style      uint32
	Background win.HBRUSH
	Cursor     win.HCURSOR
}

var (
	classMu    sync.Mutex
	registered = map[string]bool{}
)

// RegisterClass registers c once per process and returns its class name.
func RegisterClass(c Class) (*uint16, error) {
	classMu.Lock()
	defer classMu.Unlock()
	name, err := syscall.UTF16PtrFromString(c.Name)
	if err != nil {
		return nil, err
	}
	if registered[c.Name] {
		return name, nil
	}
	cursor := c.Cursor
	if cursor == 0 {
		cursor = win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_ARROW))
	}
	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         c.Style,
		LpfnWndProc:   wndProc,
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       cursor,
		HbrBackground: c.Background,
		LpszClassName: name,
	}
	if win.RegisterClassEx(&wc) == 0 {
		if errno, ok := windows.GetLastError().(syscall.Errno); !ok || errno != errorClassAlreadyExists {
			return nil, fmt.Errorf("RegisterClassEx(%s): %w", c.Name, windows.GetLastError())
		}
	}
	registered[c.Name] = true
	return name, nil
}

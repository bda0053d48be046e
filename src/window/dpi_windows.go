//go:build windows

package window

import "golang.org/x/sys/windows"

var (
	shcore                     = windows.NewLazySystemDLL("Shcore.dll")
	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
	procSetProcessDPIAware     = user32.NewProc("SetProcessDPIAware")
)

const processPerMonitorDPIAware = 2

// EnableDPIAwareness opts the process into per-monitor DPI awareness so
// magnified output is not bitmap-stretched. Later calls are no-ops.
func EnableDPIAwareness() {
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		_, _, _ = procSetProcessDpiAwareness.Call(processPerMonitorDPIAware)
		return
	}
	// Vista fallback
	if err := procSetProcessDPIAware.Find(); err == nil {
		_, _, _ = procSetProcessDPIAware.Call()
	}
}

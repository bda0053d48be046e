//go:build !windows

package window

// EnableDPIAwareness is a no-op off Windows.
func EnableDPIAwareness() {}

//go:build !windows

package window

import "errors"

var errUnsupported = errors.New("native windows are only available on Windows")

type stubNative struct{}

// NewNative returns a Native whose window thread never gets a message loop.
func NewNative() Native { return stubNative{} }

func (stubNative) CurrentThreadID() uint32                            { return 0 }
func (stubNative) PumpMessages() error                                { return errUnsupported }
func (stubNative) PostMessage(Handle, uint32, uintptr, uintptr) error { return errUnsupported }
func (stubNative) PostThreadQuit(uint32) error                        { return errUnsupported }
func (stubNative) PostQuit(int)                                       {}
func (stubNative) DestroyWindow(Handle) error                         { return errUnsupported }

// Package windowtest provides an in-process stand-in for the Win32 message
// loop. Goroutines play the part of OS threads.
package windowtest

import (
	"bytes"
	"errors"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"

	"screen-magnifier/src/window"
)

var ErrNoWindow = errors.New("no such window")

type message struct {
	h      window.Handle
	msg    uint32
	wParam uintptr
	lParam uintptr
	quit   bool
}

// Native implements window.Native with per-goroutine message queues.
type Native struct {
	mu      sync.Mutex
	queues  map[uint32]chan message
	windows map[window.Handle]uint32
	next    window.Handle

	Posted    atomic.Int64
	Destroyed atomic.Int64
	// FailPost makes PostMessage and PostThreadQuit fail.
	FailPost atomic.Bool
}

func New() *Native {
	return &Native{
		queues:  make(map[uint32]chan message),
		windows: make(map[window.Handle]uint32),
		next:    0x1000,
	}
}

func (n *Native) queue(tid uint32) chan message {
	n.mu.Lock()
	defer n.mu.Unlock()
	q, ok := n.queues[tid]
	if !ok {
		q = make(chan message, 256)
		n.queues[tid] = q
	}
	return q
}

// NewWindow allocates a handle owned by the calling goroutine.
func (n *Native) NewWindow() window.Handle {
	tid := n.CurrentThreadID()
	n.queue(tid)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.next += 4
	n.windows[n.next] = tid
	return n.next
}

func (n *Native) CurrentThreadID() uint32 { return goid() }

func (n *Native) PumpMessages() error {
	q := n.queue(goid())
	for m := range q {
		if m.quit {
			return nil
		}
		window.Dispatch(m.h, m.msg, m.wParam, m.lParam)
	}
	return nil
}

func (n *Native) PostMessage(h window.Handle, msg uint32, wParam, lParam uintptr) error {
	if n.FailPost.Load() {
		return errors.New("post failed")
	}
	n.mu.Lock()
	tid, ok := n.windows[h]
	n.mu.Unlock()
	if !ok {
		return ErrNoWindow
	}
	n.Posted.Add(1)
	n.queue(tid) <- message{h: h, msg: msg, wParam: wParam, lParam: lParam}
	return nil
}

func (n *Native) PostThreadQuit(threadID uint32) error {
	if n.FailPost.Load() {
		return errors.New("post failed")
	}
	n.queue(threadID) <- message{quit: true}
	return nil
}

func (n *Native) PostQuit(int) {
	n.queue(goid()) <- message{quit: true}
}

// DestroyWindow delivers the destroy message synchronously, as Win32 does.
func (n *Native) DestroyWindow(h window.Handle) error {
	n.mu.Lock()
	_, ok := n.windows[h]
	delete(n.windows, h)
	n.mu.Unlock()
	if !ok {
		return nil
	}
	n.Destroyed.Add(1)
	window.Dispatch(h, window.MsgDestroy, 0, 0)
	return nil
}

// Send delivers msg synchronously on the calling goroutine.
func (n *Native) Send(h window.Handle, msg uint32) (uintptr, bool) {
	return window.Dispatch(h, msg, 0, 0)
}

func goid() uint32 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return uint32(id)
}

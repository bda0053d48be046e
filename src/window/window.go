// Package window runs a native window on a dedicated OS thread and lets any
// goroutine talk to it. Messages posted to a window are handled in post order
// by its single thread, so OS-facing state needs no locking.
package window

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrInitTimeout is returned by Run when the window thread does not
	// finish creating its window in time or dies before doing so.
	ErrInitTimeout    = errors.New("window initialization timed out")
	ErrNotStarted     = errors.New("window not started")
	ErrAlreadyRunning = errors.New("window is already running")
)

// Win32 message identifiers the abstraction itself relies on.
const (
	MsgDestroy = 0x0002
	MsgClose   = 0x0010
	MsgUser    = 0x0400
	// MsgCommand tells the window thread a command is waiting in the queue.
	MsgCommand = MsgUser
)

// Handle is a native window handle.
type Handle uintptr

// Native is the OS message loop a Window runs on. CurrentThreadID,
// PostMessage and PostThreadQuit may be called from any thread; the rest only
// from the window thread.
type Native interface {
	CurrentThreadID() uint32
	// PumpMessages blocks dispatching messages until a quit message arrives.
	PumpMessages() error
	PostMessage(h Handle, msg uint32, wParam, lParam uintptr) error
	PostThreadQuit(threadID uint32) error
	PostQuit(code int)
	DestroyWindow(h Handle) error
}

// Handler processes one window message on the window thread.
type Handler func(wParam, lParam uintptr) uintptr

type Options struct {
	// Name is used in log lines.
	Name string
	// Create builds the native window. It runs on the window thread.
	Create func() (Handle, error)
	// Init runs on the window thread once the handle is registered, so
	// messages sent synchronously while placing the window reach the
	// handlers. An error destroys the window and fails Run.
	Init func() error
	// OnDestroy runs on the window thread while the window is being torn down.
	OnDestroy func()
	// AfterClose runs on the window thread once the message loop has exited.
	AfterClose func()
}

// Window is an actor owning one native window and the thread it lives on.
type Window struct {
	native   Native
	opts     Options
	handlers map[uint32]Handler

	mu        sync.Mutex
	started   bool
	abandoned bool
	handle    Handle

	threadID atomic.Uint32
	alive    atomic.Bool
	pumping  atomic.Bool
	done     chan struct{}
	stopped  chan struct{}

	execMu   sync.Mutex
	requests chan func() any
	results  chan any
}

func New(native Native, opts Options) *Window {
	if opts.Name == "" {
		opts.Name = "window"
	}
	w := &Window{
		native:   native,
		opts:     opts,
		handlers: make(map[uint32]Handler),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		requests: make(chan func() any, 1),
		results:  make(chan any, 1),
	}
	w.handlers[MsgDestroy] = w.onDestroy
	w.handlers[MsgClose] = w.onClose
	w.handlers[MsgCommand] = w.onCommand
	return w
}

// Handle registers h for msg. It must be called before Run.
func (w *Window) Handle(msg uint32, h Handler) {
	w.handlers[msg] = h
}

// NativeHandle returns the window handle, or 0 when no window exists.
func (w *Window) NativeHandle() Handle {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handle
}

// IsAlive reports whether the window has been created and not yet destroyed.
func (w *Window) IsAlive() bool { return w.alive.Load() }

// Run starts the window thread and waits up to timeout for the window to be
// created.
func (w *Window) Run(timeout time.Duration) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.started = true
	w.mu.Unlock()

	ready := make(chan error, 1)
	go w.loop(ready)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-ready:
		return err
	case <-w.done:
		select {
		case err := <-ready:
			if err != nil {
				return err
			}
		default:
		}
		return fmt.Errorf("%w: %s thread exited during startup", ErrInitTimeout, w.opts.Name)
	case <-timer.C:
		return fmt.Errorf("%w: %s after %v", ErrInitTimeout, w.opts.Name, timeout)
	}
}

func (w *Window) loop(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	w.threadID.Store(w.native.CurrentThreadID())
	h, err := w.opts.Create()
	if err != nil {
		ready <- err
		return
	}

	w.mu.Lock()
	if w.abandoned {
		w.mu.Unlock()
		log.Printf("WINDOW: %s created after being abandoned, destroying", w.opts.Name)
		_ = w.native.DestroyWindow(h)
		return
	}
	w.handle = h
	w.mu.Unlock()
	register(h, w)
	w.alive.Store(true)

	if w.opts.Init != nil {
		if err := w.opts.Init(); err != nil {
			if derr := w.native.DestroyWindow(h); derr != nil {
				log.Printf("WINDOW: %s destroy after failed init: %v", w.opts.Name, derr)
			}
			w.release()
			if w.opts.AfterClose != nil {
				w.opts.AfterClose()
			}
			ready <- err
			return
		}
	}
	ready <- nil

	w.pumping.Store(true)
	if err := w.native.PumpMessages(); err != nil {
		log.Printf("WINDOW: %s message loop failed: %v", w.opts.Name, err)
	}
	w.pumping.Store(false)

	if h := w.NativeHandle(); h != 0 {
		// Quit arrived without a destroy; tear the window down here.
		if err := w.native.DestroyWindow(h); err != nil {
			log.Printf("WINDOW: %s destroy failed: %v", w.opts.Name, err)
		}
		w.release()
	}
	if w.opts.AfterClose != nil {
		w.opts.AfterClose()
	}
}

// OnOwnerThread reports whether the caller runs on the window thread.
func (w *Window) OnOwnerThread() bool {
	id := w.threadID.Load()
	return id != 0 && id == w.native.CurrentThreadID()
}

// Invoke runs the handler for msg. On the window thread it is called
// directly; from anywhere else the message is posted and Invoke returns
// without waiting.
func (w *Window) Invoke(msg uint32) error {
	if w.OnOwnerThread() {
		if h, ok := w.handlers[msg]; ok {
			h(0, 0)
		}
		return nil
	}
	h := w.NativeHandle()
	if h == 0 {
		return ErrNotStarted
	}
	return w.native.PostMessage(h, msg, 0, 0)
}

// Execute runs cmd on the window thread and returns its result. Called from
// the window thread it runs inline. Otherwise the caller blocks, without a
// timeout, until the window thread has run cmd. If the window is destroyed
// first, cmd is dropped and ErrNotStarted returned.
func (w *Window) Execute(cmd func() any) (any, error) {
	if w.OnOwnerThread() {
		return cmd(), nil
	}
	h := w.NativeHandle()
	if h == 0 {
		return nil, ErrNotStarted
	}
	w.execMu.Lock()
	defer w.execMu.Unlock()
	w.requests <- cmd
	if err := w.native.PostMessage(h, MsgCommand, 0, 0); err != nil {
		<-w.requests
		return nil, fmt.Errorf("post command: %w", err)
	}
	select {
	case res := <-w.results:
		return res, nil
	case <-w.stopped:
		select {
		case res := <-w.results:
			return res, nil
		case <-w.requests:
		default:
		}
		return nil, ErrNotStarted
	}
}

func (w *Window) onCommand(_, _ uintptr) uintptr {
	select {
	case cmd := <-w.requests:
		w.results <- cmd()
	default:
	}
	return 0
}

// Close asks the window to destroy itself.
func (w *Window) Close() error { return w.Invoke(MsgClose) }

func (w *Window) onClose(_, _ uintptr) uintptr {
	if h := w.NativeHandle(); h != 0 {
		if err := w.native.DestroyWindow(h); err != nil {
			log.Printf("WINDOW: %s DestroyWindow failed: %v", w.opts.Name, err)
		}
	}
	return 0
}

func (w *Window) onDestroy(_, _ uintptr) uintptr {
	w.release()
	if w.pumping.Load() {
		w.native.PostQuit(0)
	}
	return 0
}

// release clears handle state. It runs once per window.
func (w *Window) release() {
	w.mu.Lock()
	h := w.handle
	w.handle = 0
	w.mu.Unlock()
	if h == 0 {
		return
	}
	unregister(h)
	w.alive.Store(false)
	if w.opts.OnDestroy != nil {
		w.opts.OnDestroy()
	}
	close(w.stopped)
}

// Stopped is closed once the window has been destroyed.
func (w *Window) Stopped() <-chan struct{} { return w.stopped }

// Wait blocks until the window thread has exited.
func (w *Window) Wait() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}
}

// Terminate posts a quit message to the window thread and joins it. It is
// safe on a window that never started or never finished creating; such a
// window is marked abandoned and destroyed by its thread if creation
// completes later.
func (w *Window) Terminate() error {
	w.mu.Lock()
	if !w.started || w.handle == 0 {
		w.abandoned = true
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := w.native.PostThreadQuit(w.threadID.Load()); err != nil {
		return fmt.Errorf("%s: post quit: %w", w.opts.Name, err)
	}
	<-w.done
	return nil
}

package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
)

const (
	logFileName  = "screen_magnifier_debug.log"
	maxSizeBytes = 10 * 1024 * 1024 // 10 MB
	maxArchives  = 3
)

var debug atomic.Bool

// Setup enables file logging with basic size-based rotation (10MB, max 3 files).
// When disabled, logs are discarded.
func Setup(enableFileLogging bool) {
	SetupIn(".", enableFileLogging)
}

// SetupIn is Setup with the log file placed in dir.
func SetupIn(dir string, enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	path := filepath.Join(dir, logFileName)
	rotateIfNeeded(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		return
	}
	log.SetOutput(&rotatingWriter{f: f, path: path})
}

// SetDebug toggles diagnostic logging through Debugf.
func SetDebug(on bool) { debug.Store(on) }

func DebugEnabled() bool { return debug.Load() }

// Debugf logs only when debug logging is on.
func Debugf(format string, args ...any) {
	if !debug.Load() {
		return
	}
	_ = log.Output(2, "DEBUG: "+fmt.Sprintf(format, args...))
}

type rotatingWriter struct {
	f    *os.File
	path string
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	// naive rotation check per write
	if st, err := w.f.Stat(); err == nil && st.Size()+int64(len(p)) > maxSizeBytes {
		_ = w.f.Close()
		rotate(w.path)
		nf, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return 0, err
		}
		w.f = nf
	}
	return w.f.Write(p)
}

func rotateIfNeeded(path string) {
	if st, err := os.Stat(path); err == nil && st.Size() > maxSizeBytes {
		rotate(path)
	}
}

// rotate shifts path to .1, .2, .3; the oldest is discarded.
func rotate(path string) {
	_ = os.Remove(archiveName(path, maxArchives))
	for i := maxArchives - 1; i >= 1; i-- {
		_ = os.Rename(archiveName(path, i), archiveName(path, i+1))
	}
	_ = os.Rename(path, archiveName(path, 1))
}

func archiveName(path string, n int) string { return fmt.Sprintf("%s.%d", path, n) }

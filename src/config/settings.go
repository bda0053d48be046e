package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
)

// Highlight holds the persisted highlighter flags.
type Highlight struct {
	Enabled    bool `toml:"enabled"`
	Focus      bool `toml:"magnify_focus"`
	Navigator  bool `toml:"magnify_navigator"`
	BrowseMode bool `toml:"magnify_browse_mode"`
}

func (h Highlight) Context(c highlight.Context) bool {
	switch c {
	case highlight.Focus:
		return h.Focus
	case highlight.Navigator:
		return h.Navigator
	case highlight.BrowseMode:
		return h.BrowseMode
	}
	return false
}

func (h *Highlight) SetContext(c highlight.Context, on bool) {
	switch c {
	case highlight.Focus:
		h.Focus = on
	case highlight.Navigator:
		h.Navigator = on
	case highlight.BrowseMode:
		h.BrowseMode = on
	}
}

// SetAll sets every supported context flag.
func (h *Highlight) SetAll(on bool) {
	for _, c := range highlight.Supported {
		h.SetContext(c, on)
	}
}

func (h Highlight) Any() bool { return h.Focus || h.Navigator || h.BrowseMode }

func (h Highlight) All() bool { return h.Focus && h.Navigator && h.BrowseMode }

type WindowRect struct {
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

func (w WindowRect) Rect() geometry.Rect {
	return geometry.Rect{Left: w.X, Top: w.Y, Width: w.Width, Height: w.Height}
}

// WindowRectOf is the persisted form of a window frame.
func WindowRectOf(r geometry.Rect) WindowRect {
	return WindowRect{X: r.Left, Y: r.Top, Width: r.Width, Height: r.Height}
}

type Magnifier struct {
	ZoomLevel   int        `toml:"zoom_level"`
	ColorFilter int        `toml:"color_filter"`
	Fullscreen  bool       `toml:"fullscreen"`
	TrackCursor bool       `toml:"track_cursor"`
	Window      WindowRect `toml:"window"`
}

type Settings struct {
	Highlighter Highlight `toml:"highlighter"`
	Magnifier   Magnifier `toml:"magnifier"`
}

func DefaultSettings() Settings {
	return Settings{
		Highlighter: Highlight{Focus: true, Navigator: true, BrowseMode: true},
		Magnifier: Magnifier{
			ZoomLevel: 2,
			Window:    WindowRect{X: 0, Y: 0, Width: 400, Height: 400},
		},
	}
}

// Store keeps the settings file and an in-memory copy. Writers from other
// processes are serialized through a lock file next to it.
type Store struct {
	path string
	// writeMu orders in-process writers so the file matches cur.
	writeMu sync.Mutex
	mu      sync.RWMutex
	cur     Settings
}

func OpenStore(path string) (*Store, error) {
	s := &Store{path: path, cur: DefaultSettings()}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) lockPath() string { return s.path + ".lock" }

func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Highlight returns the current highlighter flags.
func (s *Store) Highlight() Highlight { return s.Get().Highlighter }

// Reload replaces the in-memory copy with the file contents. A missing file
// yields the defaults.
func (s *Store) Reload() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	lock := flock.New(s.lockPath())
	if err := lock.RLock(); err != nil {
		return fmt.Errorf("failed to acquire read lock: %w", err)
	}
	defer lock.Unlock()

	next := DefaultSettings()
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		s.mu.Lock()
		s.cur = next
		s.mu.Unlock()
		return nil
	}

	if _, err := toml.DecodeFile(s.path, &next); err != nil {
		return fmt.Errorf("failed to decode settings file: %w", err)
	}

	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
	return nil
}

// Update applies fn to the settings and persists the result.
func (s *Store) Update(fn func(*Settings)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	next := s.cur
	fn(&next)
	s.cur = next
	s.mu.Unlock()
	return s.write(next)
}

func (s *Store) Save() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write(s.Get())
}

func (s *Store) write(st Settings) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	lock := flock.New(s.lockPath())
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire write lock: %w", err)
	}
	defer lock.Unlock()

	tmpPath := s.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(st); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

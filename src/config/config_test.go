package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"screen-magnifier/src/geometry"
	"screen-magnifier/src/highlight"
)

func TestLoad(t *testing.T) {
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("MAGNIFIER_DEBUG", "TRUE")
	t.Setenv("HOTKEY_ZOOM_IN", "Ctrl+Shift+Up")
	t.Setenv("REFRESH_INTERVAL_MS", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if !cfg.Debug {
		t.Errorf("Expected Debug to be true")
	}
	if cfg.Hotkeys.ZoomIn != "Ctrl+Shift+Up" {
		t.Errorf("Expected ZoomIn hotkey 'Ctrl+Shift+Up', got '%s'", cfg.Hotkeys.ZoomIn)
	}
	if cfg.Hotkeys.ZoomOut != "Ctrl+Alt+Down" {
		t.Errorf("Expected default ZoomOut hotkey, got '%s'", cfg.Hotkeys.ZoomOut)
	}
	if cfg.RefreshInterval != 250*time.Millisecond {
		t.Errorf("Expected RefreshInterval 250ms, got %v", cfg.RefreshInterval)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REFRESH_INTERVAL_MS", "-5")
	t.Setenv("INIT_TIMEOUT_MS", "nope")
	t.Setenv("DISPLAY_CHANGE_DELAY_MS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != DefaultRefreshInterval {
		t.Errorf("RefreshInterval = %v", cfg.RefreshInterval)
	}
	if cfg.InitTimeout != DefaultInitTimeout {
		t.Errorf("InitTimeout = %v", cfg.InitTimeout)
	}
	if cfg.DisplayChangeDelay != DefaultDisplayChangeDelay {
		t.Errorf("DisplayChangeDelay = %v", cfg.DisplayChangeDelay)
	}
	if cfg.Hotkeys.Highlight != "Ctrl+Alt+H" {
		t.Errorf("Highlight hotkey = %q", cfg.Hotkeys.Highlight)
	}
}

func TestSettingsPathPriority(t *testing.T) {
	t.Setenv(SettingsPathEnvVar, "/from/env.toml")

	if got := resolveSettingsPath(LoadOptions{}, map[string]string{}); got != "/from/env.toml" {
		t.Errorf("env path: got %q", got)
	}
	dotenv := map[string]string{SettingsPathEnvVar: "/from/dotenv.toml"}
	if got := resolveSettingsPath(LoadOptions{}, dotenv); got != "/from/dotenv.toml" {
		t.Errorf("dotenv path: got %q", got)
	}
	if got := resolveSettingsPath(LoadOptions{SettingsPathOverride: " /flag.toml "}, dotenv); got != "/flag.toml" {
		t.Errorf("override path: got %q", got)
	}
}

func TestDebugOverride(t *testing.T) {
	t.Setenv("MAGNIFIER_DEBUG", "true")
	off := false
	cfg, err := LoadWithOptions(LoadOptions{DebugOverride: &off})
	if err != nil {
		t.Fatalf("LoadWithOptions: %v", err)
	}
	if cfg.Debug {
		t.Errorf("expected override to disable debug")
	}
}

func TestReadDotenvValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magnifier.env")
	if err := os.WriteFile(path, []byte("SETTINGS_PATH=/x/settings.toml\n"), 0644); err != nil {
		t.Fatal(err)
	}
	values := readDotenvValues(path)
	if values[SettingsPathEnvVar] != "/x/settings.toml" {
		t.Errorf("got %v", values)
	}
	if len(readDotenvValues("")) != 0 {
		t.Errorf("empty path should give no values")
	}
}

func TestStoreDefaultsWhenMissing(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "nested", "settings.toml"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	got := store.Get()
	if got != DefaultSettings() {
		t.Errorf("got %+v, want defaults", got)
	}
	if !got.Highlighter.All() || got.Highlighter.Enabled {
		t.Errorf("unexpected highlighter defaults %+v", got.Highlighter)
	}
	if got.Magnifier.Window.Rect().Width != 400 {
		t.Errorf("window width = %d", got.Magnifier.Window.Width)
	}
}

func TestStoreUpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	err = store.Update(func(s *Settings) {
		s.Highlighter.Enabled = true
		s.Highlighter.SetContext(highlight.Navigator, false)
		s.Magnifier.ZoomLevel = 4
		s.Magnifier.ColorFilter = 2
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	again, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := again.Get()
	if !got.Highlighter.Enabled || got.Highlighter.Navigator || !got.Highlighter.Focus {
		t.Errorf("highlighter not persisted: %+v", got.Highlighter)
	}
	if got.Magnifier.ZoomLevel != 4 || got.Magnifier.ColorFilter != 2 {
		t.Errorf("magnifier not persisted: %+v", got.Magnifier)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind")
	}
}

func TestStorePartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	data := "[highlighter]\nmagnify_focus = false\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	h := store.Highlight()
	if h.Focus || !h.Navigator || !h.BrowseMode {
		t.Errorf("got %+v", h)
	}
	if h.All() || !h.Any() {
		t.Errorf("All/Any wrong for %+v", h)
	}
}

func TestStoreRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("[highlighter\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenStore(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestHighlightSetAll(t *testing.T) {
	var h Highlight
	h.SetAll(true)
	for _, c := range highlight.Supported {
		if !h.Context(c) {
			t.Errorf("%v not set", c)
		}
	}
	h.SetAll(false)
	if h.Any() {
		t.Errorf("expected none set")
	}
}

func TestStoreConcurrentUpdatesLeaveFileCurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	store, err := OpenStore(path)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Update(func(s *Settings) { s.Magnifier.ZoomLevel++ }); err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()

	want := DefaultSettings().Magnifier.ZoomLevel + writers
	if got := store.Get().Magnifier.ZoomLevel; got != want {
		t.Fatalf("in-memory zoom = %d, want %d", got, want)
	}
	again, err := OpenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := again.Get().Magnifier.ZoomLevel; got != want {
		t.Errorf("file zoom = %d, want %d", got, want)
	}
}

func TestWindowRectRoundTrip(t *testing.T) {
	frame := geometry.Rect{Left: -1200, Top: 40, Width: 516, Height: 438}
	if got := WindowRectOf(frame).Rect(); got != frame {
		t.Errorf("got %+v, want %+v", got, frame)
	}
}

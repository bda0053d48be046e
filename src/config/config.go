package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ConfigPathEnvVar   = "SCREEN_MAGNIFIER"
	SettingsPathEnvVar = "SETTINGS_PATH"

	DefaultRefreshInterval    = 100 * time.Millisecond
	DefaultInitTimeout        = 200 * time.Millisecond
	DefaultDisplayChangeDelay = 100 * time.Millisecond
)

// Hotkeys holds the global key combinations in "Ctrl+Alt+X" notation.
type Hotkeys struct {
	ZoomIn      string
	ZoomOut     string
	ColorFilter string
	Fullscreen  string
	Highlight   string
}

type LoadOptions struct {
	SettingsPathOverride string
	DebugOverride        *bool
}

type Config struct {
	EnableFileLogging  bool
	Debug              bool
	RefreshInterval    time.Duration
	InitTimeout        time.Duration
	DisplayChangeDelay time.Duration
	Hotkeys            Hotkeys
	SettingsPath       string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) .env in the executable directory
	// 2) the file named by SCREEN_MAGNIFIER
	envPath := resolveEnvPath()
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{
		EnableFileLogging:  envBool("ENABLE_FILE_LOGGING"),
		Debug:              envBool("MAGNIFIER_DEBUG"),
		RefreshInterval:    envMillis("REFRESH_INTERVAL_MS", DefaultRefreshInterval),
		InitTimeout:        envMillis("INIT_TIMEOUT_MS", DefaultInitTimeout),
		DisplayChangeDelay: envMillis("DISPLAY_CHANGE_DELAY_MS", DefaultDisplayChangeDelay),
		Hotkeys: Hotkeys{
			ZoomIn:      getEnvWithDefault("HOTKEY_ZOOM_IN", "Ctrl+Alt+Up"),
			ZoomOut:     getEnvWithDefault("HOTKEY_ZOOM_OUT", "Ctrl+Alt+Down"),
			ColorFilter: getEnvWithDefault("HOTKEY_COLOR_FILTER", "Ctrl+Alt+C"),
			Fullscreen:  getEnvWithDefault("HOTKEY_FULLSCREEN", "Ctrl+Alt+F"),
			Highlight:   getEnvWithDefault("HOTKEY_HIGHLIGHT", "Ctrl+Alt+H"),
		},
		SettingsPath: resolveSettingsPath(opts, dotenvValues),
	}
	if opts.DebugOverride != nil {
		cfg.Debug = *opts.DebugOverride
	}

	return cfg, nil
}

func resolveEnvPath() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}

	exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
	if _, err := os.Stat(exeEnv); err == nil {
		return exeEnv
	}

	if alt := os.Getenv(ConfigPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

// DefaultSettingsPath is settings.toml under the user config directory,
// or next to the working directory when that cannot be determined.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "settings.toml"
	}
	return filepath.Join(dir, "screen-magnifier", "settings.toml")
}

func resolveSettingsPath(opts LoadOptions, dotenvValues map[string]string) string {
	path := DefaultSettingsPath()

	if envPath := strings.TrimSpace(os.Getenv(SettingsPathEnvVar)); envPath != "" {
		path = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[SettingsPathEnvVar]); dotenvPath != "" {
		path = dotenvPath
	}

	if override := strings.TrimSpace(opts.SettingsPathOverride); override != "" {
		path = override
	}

	return path
}

func envBool(key string) bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv(key))) == "true"
}

func envMillis(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return def
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

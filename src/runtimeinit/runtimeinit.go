// Package runtimeinit performs the startup sequence shared by the resident.
package runtimeinit

import (
	"fmt"
	"log"

	"screen-magnifier/src/clipboard"
	"screen-magnifier/src/config"
	"screen-magnifier/src/logutil"
	"screen-magnifier/src/window"
)

type Options struct {
	LoadOptions  config.LoadOptions
	SetupLogging func(bool)
	// SkipDPI leaves the process DPI awareness untouched.
	SkipDPI bool
}

// Runtime is what the resident needs after bootstrap.
type Runtime struct {
	Config    *config.Config
	Store     *config.Store
	Clipboard bool
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.SetupLogging != nil {
		opts.SetupLogging(cfg.EnableFileLogging)
	}
	logutil.SetDebug(cfg.Debug)

	if !opts.SkipDPI {
		window.EnableDPIAwareness()
	}

	store, err := config.OpenStore(cfg.SettingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings %s: %w", cfg.SettingsPath, err)
	}
	log.Printf("Settings: %s", store.Path())

	rt := &Runtime{Config: cfg, Store: store, Clipboard: true}
	if err := clipboard.Init(); err != nil {
		// Copying the source rectangle is optional.
		log.Printf("Clipboard unavailable: %v", err)
		rt.Clipboard = false
	}
	return rt, nil
}

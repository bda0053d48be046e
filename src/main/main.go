package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"screen-magnifier/src/accessibility"
	"screen-magnifier/src/clipboard"
	"screen-magnifier/src/config"
	"screen-magnifier/src/display"
	"screen-magnifier/src/eventloop"
	"screen-magnifier/src/geometry"
	"screen-magnifier/src/logutil"
	"screen-magnifier/src/magnification"
	"screen-magnifier/src/magnifier"
	"screen-magnifier/src/overlay"
	"screen-magnifier/src/provider"
	"screen-magnifier/src/runtimeinit"
	"screen-magnifier/src/singleinstance"
	"screen-magnifier/src/toggle"
	"screen-magnifier/src/tray"
	"screen-magnifier/src/window"
)

var errAlreadyRunning = errors.New("screen magnifier is already running")

type mainOptions struct {
	settingsPath string
	debug        bool
	noTray       bool
}

func main() {
	if err := runWithArgs(normalizeLegacyArgs(os.Args)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"screen-magnifier"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.ExecuteContext(context.Background())
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-magnifier",
		Short:         "Screen magnifier with focus and navigator highlighting",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load .env early so MAGNIFIER_PORT_* apply to the pre-flight scan.
			_, _ = config.Load()
			return handleStartWithDelegation(cmd.Context(), singleinstance.NewClient(), func() error {
				return runResident(cmd.Context(), *opts, cmd.Flags().Changed("debug"))
			})
		},
	}

	cmd.Flags().StringVar(&opts.settingsPath, "settings", "", "Path to the settings file (highest precedence)")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Log highlight and magnifier diagnostics")
	cmd.Flags().BoolVar(&opts.noTray, "no-tray", false, "Run without the notification-area icon")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their cobra spelling.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"settings", "debug", "no-tray"} {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
			}
		}
	}
	return normalized
}

type residentClient interface {
	Send(ctx context.Context, req singleinstance.Request) (bool, string, error)
}

// handleStartWithDelegation starts the resident unless another one answers.
// A scan error is logged and the start goes ahead.
func handleStartWithDelegation(ctx context.Context, client residentClient, start func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scanCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	delegated, body, err := client.Send(scanCtx, singleinstance.Request{Command: singleinstance.CmdStatus})
	switch {
	case err != nil:
		log.Printf("Pre-flight: resident scan failed: %v; starting anyway", err)
	case delegated:
		log.Printf("Pre-flight: resident already exists")
		fmt.Print(body)
		return errAlreadyRunning
	}
	return start()
}

func runResident(parent context.Context, opts mainOptions, debugSet bool) error {
	loadOpts := config.LoadOptions{SettingsPathOverride: opts.settingsPath}
	if debugSet {
		loadOpts.DebugOverride = &opts.debug
	}
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions:  loadOpts,
		SetupLogging: logutil.Setup,
	})
	if err != nil {
		return err
	}
	cfg, store := rt.Config, rt.Store
	saved := store.Get()

	screens := display.Screens{}
	logDisplays(screens)
	primary, ok := display.Primary(screens)
	if !ok {
		return errors.New("no display detected")
	}

	engine, err := magnification.NewEngine()
	if err != nil {
		return fmt.Errorf("failed to load magnification engine: %w", err)
	}
	native := window.NewNative()
	ctrl := magnification.NewController(engine, primary)
	host := magnifier.NewHost(native, magnifier.NewHostOS(), ctrl, magnifier.Options{
		Window:          saved.Magnifier.Window.Rect(),
		Fullscreen:      saved.Magnifier.Fullscreen,
		Screen:          display.VirtualScreen(screens),
		Displays:        screens,
		RefreshInterval: cfg.RefreshInterval,
	})
	if err := host.Start(cfg.InitTimeout); err != nil {
		return fmt.Errorf("failed to start magnifier window: %w", err)
	}
	applySaved(host, saved.Magnifier, primary)

	probe := accessibility.NewProbe()
	prov := provider.New(store.Highlight, accessibility.NewResolver(probe), provider.Options{
		Native:             native,
		Surface:            overlay.NewSurface,
		Displays:           screens,
		RefreshInterval:    cfg.RefreshInterval,
		InitTimeout:        cfg.InitTimeout,
		DisplayChangeDelay: cfg.DisplayChangeDelay,
		Zoom:               ctrl,
		TrackCursor:        func() bool { return store.Get().Magnifier.TrackCursor },
	})
	hl := toggle.New(store, prov, ctrl)
	if state, err := hl.Load(); err != nil {
		log.Printf("Highlighter did not start: %v", err)
	} else {
		log.Printf("Highlighter state: %s", state)
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	go func() {
		if err := accessibility.NewWatcher(probe, 0).Run(ctx, prov); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Accessibility watcher stopped: %v", err)
		}
	}()

	var trayIcon *tray.Tray
	var copyRect func(geometry.Rect) error
	if rt.Clipboard {
		copyRect = clipboard.WriteRect
	}
	loop := eventloop.New(eventloop.Deps{
		Magnifier:   host,
		Highlighter: hl,
		Provider:    prov,
		Store:       store,
		Server:      singleinstance.NewServer(),
		Copy:        copyRect,
		OnChange: func(s eventloop.Status) {
			if trayIcon != nil {
				trayIcon.SetState(s.Magnifier.Fullscreen, s.Highlighter.State == toggle.Checked.String(), s.Magnifier.Filter)
				tray.UpdateTooltip(fmt.Sprintf("Screen Magnifier - %s, %s", s.Magnifier.Label, s.Magnifier.Filter))
			}
		},
	})

	if !opts.noTray {
		trayIcon, err = tray.New(tray.Config{
			Title:   "Screen Magnifier",
			Tooltip: fmt.Sprintf("Screen Magnifier - %s / %s to zoom", cfg.Hotkeys.ZoomIn, cfg.Hotkeys.ZoomOut),
			Hotkeys: cfg.Hotkeys,
			Submit:  loop.Submit,
			OnExit:  cancel,
		})
		if err != nil {
			return err
		}
		tray.SetAboutExtra("Settings: " + store.Path())
		go trayIcon.Run()
		defer trayIcon.Destroy()
	}

	stopHotkeys, err := loop.StartHotkeys(cfg.Hotkeys)
	if err != nil {
		log.Printf("Global hotkeys unavailable: %v", err)
	} else {
		defer stopHotkeys()
	}

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		select {
		case <-host.Stopped():
			log.Printf("Magnifier window closed; zoom commands are disabled")
		case <-ctx.Done():
		}
	}()

	log.Printf("Screen Magnifier initialized (zoom %s, filter %s)", ctrl.LevelLabel(), ctrl.FilterLabel())
	err = loop.Run(ctx)
	shutdown(host, prov, store)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("event loop stopped: %w", err)
	}
	return nil
}

// applySaved restores the persisted zoom level and color filter.
func applySaved(host *magnifier.Host, saved config.Magnifier, primary geometry.Rect) {
	if saved.ZoomLevel >= 1 {
		if err := host.SetZoomLevel(saved.ZoomLevel, primary.Center()); err != nil {
			log.Printf("Failed to restore zoom level %d: %v", saved.ZoomLevel, err)
		}
	}
	if err := host.SetColorFilter(magnification.Filter(saved.ColorFilter)); err != nil {
		log.Printf("Failed to restore color filter %d: %v", saved.ColorFilter, err)
	}
}

func shutdown(host *magnifier.Host, prov *provider.Provider, store *config.Store) {
	if err := prov.Terminate(); err != nil {
		log.Printf("Highlighter shutdown: %v", err)
	}
	if host.IsAlive() && !host.Fullscreen() {
		if err := savePlacement(store, host.Placement()); err != nil {
			log.Printf("Failed to save window position: %v", err)
		}
	}
	if err := host.Close(); err != nil {
		log.Printf("Magnifier shutdown: %v", err)
	}
	host.Wait()
}

// savePlacement persists the window frame, which is what Options.Window
// places on the next start.
func savePlacement(store *config.Store, frame geometry.Rect) error {
	return store.Update(func(s *config.Settings) {
		s.Magnifier.Window = config.WindowRectOf(frame)
	})
}

func logDisplays(src display.Source) {
	screens := src.Displays()
	log.Printf("MONITOR: Detected %d monitors", len(screens))
	for i, r := range screens {
		log.Printf("MONITOR: #%d x:%d y:%d w:%d h:%d", i, r.Left, r.Top, r.Width, r.Height)
	}
	v := display.VirtualScreen(src)
	log.Printf("MONITOR: Virtual screen - x:%d y:%d w:%d h:%d", v.Left, v.Top, v.Width, v.Height)
}

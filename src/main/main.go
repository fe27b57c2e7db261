package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"screen-ocr-overlay/src/clipboard"
	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/events"
	"screen-ocr-overlay/src/hotkey"
	"screen-ocr-overlay/src/notification"
	"screen-ocr-overlay/src/overlay"
	"screen-ocr-overlay/src/runtimeinit"
	"screen-ocr-overlay/src/screenshot"
	"screen-ocr-overlay/src/session"
	"screen-ocr-overlay/src/singleinstance"
	"screen-ocr-overlay/src/tray"
	"screen-ocr-overlay/src/watcher"
)

type mainOptions struct {
	envPath      string
	settingsPath string

	debug         bool
	translate     bool
	partsOfSpeech bool
	fullscreen    bool
	noWatch       bool
	furigana      string
	frameDir      string

	sendKey   string
	selectBox string
	secondary bool
}

func main() {
	// Ensure DPI awareness before querying display metrics
	enableDPIAwareness()

	// The tray's event loop must own the main OS thread
	runtime.LockOSThread()

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "screen-ocr-overlay",
		Short:         "Live Japanese text overlay for a watched screen region",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.sendKey != "" || opts.selectBox != "" {
				return forward(cmd.Context(), *opts)
			}
			return runOverlay(*opts, cmd.Flags().Changed)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.envPath, "env", "", "Path to a .env file (highest precedence)")
	f.StringVar(&opts.settingsPath, "settings", "", "Path to a watched settings file (toml, yaml or json)")
	f.BoolVar(&opts.debug, "debug", false, "Start with debug drawing on")
	f.BoolVar(&opts.translate, "translate", false, "Start with translation on")
	f.BoolVar(&opts.partsOfSpeech, "parts-of-speech", false, "Start with name and place highlighting on")
	f.BoolVar(&opts.fullscreen, "fullscreen", false, "Recognize the whole screen instead of a selection")
	f.BoolVar(&opts.noWatch, "no-watch", false, "Never re-run on screen changes")
	f.StringVar(&opts.furigana, "furigana", "", "Furigana level: none, some or all")
	f.StringVar(&opts.frameDir, "frames", "", "Write every presented overlay frame to this directory")
	f.StringVar(&opts.sendKey, "send-key", "", "Send an overlay key to the running overlay and exit")
	f.StringVar(&opts.selectBox, "select", "", "Send a selection x,y,w,h in screen pixels to the running overlay and exit")
	f.BoolVar(&opts.secondary, "secondary", false, "With --select, make it a lookup selection")

	return cmd
}

var longFlags = []string{
	"env", "settings", "debug", "translate", "parts-of-speech", "fullscreen",
	"no-watch", "furigana", "frames", "send-key", "select", "secondary",
}

// normalizeLegacyArgs maps single-dash long flags to their double-dash form.
func normalizeLegacyArgs(args []string) []string {
	normalized := make([]string, len(args))
	copy(normalized, args)
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range longFlags {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

// applyOverrides copies explicitly set flags over the loaded configuration.
func applyOverrides(cfg *config.Config, opts mainOptions, changed func(string) bool) {
	if changed("debug") {
		cfg.Debug = opts.debug
	}
	if changed("translate") {
		cfg.Translate = opts.translate
	}
	if changed("parts-of-speech") {
		cfg.PartsOfSpeech = opts.partsOfSpeech
	}
	if changed("fullscreen") {
		cfg.Fullscreen = opts.fullscreen
	}
	if changed("no-watch") {
		cfg.NoWatch = opts.noWatch
	}
	if changed("furigana") {
		cfg.Furigana = opts.furigana
	}
}

func parseBox(s string) (x, y, w, h int, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return 0, 0, 0, 0, fmt.Errorf("selection %q must be x,y,w,h", s)
	}
	var n [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("selection %q: %w", s, err)
		}
		n[i] = v
	}
	if n[2] <= 0 || n[3] <= 0 {
		return 0, 0, 0, 0, fmt.Errorf("selection %q has no area", s)
	}
	return n[0], n[1], n[2], n[3], nil
}

func remoteCommand(opts mainOptions) (string, error) {
	if opts.selectBox != "" {
		x, y, w, h, err := parseBox(opts.selectBox)
		if err != nil {
			return "", err
		}
		role := events.Primary
		if opts.secondary {
			role = events.Secondary
		}
		return singleinstance.RegionCommand(role, x, y, w, h), nil
	}
	return singleinstance.KeyCommand(events.Key(opts.sendKey)), nil
}

func forward(ctx context.Context, opts mainOptions) error {
	command, err := remoteCommand(opts)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := singleinstance.Send(ctx, command); err != nil {
		return fmt.Errorf("send to overlay: %w", err)
	}
	return nil
}

func runOverlay(opts mainOptions, changed func(string) bool) error {
	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			EnvPathOverride:      opts.envPath,
			SettingsPathOverride: opts.settingsPath,
		},
	})
	if err != nil {
		notification.ShowBlockingError(notification.FatalTitle, fmt.Sprintf("Startup failed: %v", err))
		return err
	}
	defer rt.Close()
	cfg, logger := rt.Config, rt.Logger
	applyOverrides(cfg, opts, changed)
	if err := cfg.Validate(); err != nil {
		return err
	}

	resident, err := singleinstance.Listen(logger)
	if err != nil {
		return fmt.Errorf("an overlay is already running: %w", err)
	}
	defer resident.Close()

	if err := clipboard.Init(); err != nil {
		logger.Warn("copy key disabled", "error", err)
	}

	workDir, err := os.MkdirTemp("", "screen-ocr-overlay-")
	if err != nil {
		return fmt.Errorf("create capture dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	bounds, err := screenshot.VirtualScreenBounds()
	if err != nil {
		return err
	}
	logger.Info("overlay covers virtual screen", "bounds", bounds.String())

	evq := events.NewQueue()
	listener, err := hotkey.NewListener(evq, bounds, cfg.HotkeyModifier, logger)
	if err != nil {
		return err
	}

	surface, err := overlay.OpenSurface(overlay.SurfaceOptions{
		Bounds:   bounds,
		FrameDir: opts.frameDir,
		FontPath: cfg.OverlayFont,
	}, logger)
	if err != nil {
		return fmt.Errorf("open overlay: %w", err)
	}
	defer surface.Close()

	rq := overlay.NewQueue()
	loop := overlay.NewLoop(rq, surface, logger)

	deps := watcher.Deps{
		Events:     evq,
		Capture:    screenshot.NewService(workDir, logger),
		Pipeline:   rt.Pipeline,
		Renderer:   rq,
		Pointer:    listener,
		Dictionary: rt.Dictionary,
		Store:      session.NewStore(cfg.SelectionPath, logger),
		OpenURL:    browser.OpenURL,
		Copy:       clipboard.Write,
		Logger:     logger,
	}
	if cfg.NotesFolder != "" {
		deps.Notes = screenshot.NewService(cfg.NotesFolder, logger)
	}
	w := watcher.New(deps, watcher.SessionFromConfig(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.SettingsPath != "" {
		sw, err := config.WatchSettings(ctx, cfg.SettingsPath, logger, func(s config.Settings) {
			evq.Push(events.SettingsEvent{Settings: s})
		})
		if err != nil {
			logger.Warn("settings will not reload", "path", cfg.SettingsPath, "error", err)
		} else {
			defer sw.Close()
		}
	}

	menu := tray.New(evq, cancel, logger)
	var wg sync.WaitGroup
	var runErr error

	goRun(&wg, logger, "overlay loop", func() error {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	goRun(&wg, logger, "input hook", func() error { return listener.Run(ctx) })
	goRun(&wg, logger, "resident server", func() error {
		return resident.Serve(ctx, evq, screenshot.ScreenContext(bounds))
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer menu.Quit()
		defer cancel()
		if err := w.Run(ctx); err != nil {
			runErr = err
			notification.Fatal(logger, err)
		}
	}()

	menu.Run(func() {
		logger.Info("overlay ready", "modifier", cfg.HotkeyModifier, "engine", cfg.Engine, "translator", cfg.Translator)
	})
	cancel()
	wg.Wait()
	return runErr
}

func goRun(wg *sync.WaitGroup, logger *slog.Logger, name string, fn func() error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := fn(); err != nil {
			logger.Error("component stopped", "component", name, "error", err)
		}
	}()
}

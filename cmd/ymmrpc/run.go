package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/namakemono-san/ymmrpc"
	"github.com/namakemono-san/ymmrpc/internal/atomicfile"
	"github.com/namakemono-san/ymmrpc/internal/host"
	"github.com/namakemono-san/ymmrpc/internal/logger"
	"github.com/namakemono-san/ymmrpc/internal/paths"
	"github.com/namakemono-san/ymmrpc/internal/presence"
	"github.com/namakemono-san/ymmrpc/internal/settings"
	"github.com/namakemono-san/ymmrpc/internal/update"
	"github.com/namakemono-san/ymmrpc/internal/watch"
)

// hostPollInterval is how often the editor process is checked for exit.
const hostPollInterval = 2 * time.Second

type runOptions struct {
	hostExe    string
	followHost bool
}

func newRunCommand(g *globalOptions) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the presence daemon until interrupted or the editor exits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals()...)
			defer stop()
			return runDaemon(ctx, g.dirs(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.hostExe, "host-exe", "", "editor executable path used for edition detection (default: from host snapshot)")
	cmd.Flags().BoolVar(&opts.followHost, "follow-host", true, "exit when the editor process exits")
	return cmd
}

// prepareSettings writes the default settings on first run and loads the
// effective settings.
func prepareSettings(dirs paths.DataDir) (*settings.Settings, error) {
	if err := os.MkdirAll(dirs.Root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if _, err := atomicfile.Seed(dirs.Settings(), ymmrpc.DefaultSettingsTOML, 0o644); err != nil {
		return nil, fmt.Errorf("write default settings: %w", err)
	}
	cfg, err := settings.Load(dirs.Root)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return cfg, nil
}

// uiInvoker returns the invoker matching the configured UI thread affinity
// and a release func for any dispatcher it started.
func uiInvoker(affinity string) (presence.Invoker, func()) {
	useDispatcher := affinity == settings.AffinityOn ||
		(affinity == settings.AffinityAuto && runtime.GOOS == "windows")
	if !useDispatcher {
		return presence.Direct, func() {}
	}
	d := host.NewDispatcher()
	return d.Invoke, func() { d.Close() }
}

func runDaemon(ctx context.Context, dirs paths.DataDir, opts runOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := prepareSettings(dirs)
	if err != nil {
		return err
	}

	log, logCloser, err := logger.NewLogger(logger.Options{
		Path:      dirs.Log(),
		Level:     logger.ParseLevel(cfg.Log.Level),
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Console:   cfg.Log.Console,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info("ymmrpc starting", "version", ver, "data_dir", dirs.Root, "pid", os.Getpid())

	if cfg.Behavior.CheckUpdates {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("update check panic", "error", r)
				}
			}()
			update.Check(ctx, update.NewChecker(update.ManifestURL), ver)
		}()
	}

	store := settings.NewStore(cfg, dirs.Settings())
	introspector := host.NewIntrospector(dirs.HostSnapshot())

	invoke, release := uiInvoker(cfg.Host.UIThreadAffinity)
	defer release()

	exe := opts.hostExe
	if exe == "" {
		exe = introspector.Executable()
	}

	sched := presence.NewScheduler(presence.Options{
		Settings:  func() presence.Settings { return store.Get().PresenceSnapshot() },
		NewClient: newDiscordPresence,
		Edition:   presence.NewDetector(exe, cfg.Host.EditionMarker, introspector, invoke),
		Project:   introspector,
		ProjectVisible: func(path string) bool {
			return store.Get().ProjectVisible(path)
		},
		Invoke:       invoke,
		Logger:       log,
		Version:      ver,
		Debounce:     cfg.UpdateDebounce(),
		RetryConnect: cfg.Behavior.RetryConnect,
	})
	defer sched.Dispose()

	if err := sched.InitializeClient(); err != nil {
		slog.Warn("Discord not available at startup", "error", err, "retry_connect", cfg.Behavior.RetryConnect)
	}
	if err := sched.StartTimer(cfg.UpdateInterval()); err != nil {
		return fmt.Errorf("start presence timer: %w", err)
	}
	sched.RequestUpdate()

	// Notifications arrive on the settings Follow goroutine only.
	interval := cfg.UpdateInterval()
	unsubscribe := store.Subscribe(func() {
		if next := store.Get().UpdateInterval(); next != interval {
			interval = next
			if err := sched.StartTimer(next); err != nil {
				slog.Warn("failed to apply update interval", "interval", next, "error", err)
			}
		}
		sched.RequestUpdate()
	})
	defer unsubscribe()

	settingsWatch, err := watch.New(dirs.Settings())
	if err != nil {
		return fmt.Errorf("watch settings: %w", err)
	}
	defer settingsWatch.Close()
	go store.Follow(ctx, settingsWatch.Events())

	hostWatch, err := watch.New(dirs.HostSnapshot())
	if err != nil {
		return fmt.Errorf("watch host snapshot: %w", err)
	}
	defer hostWatch.Close()
	go forwardEvents(ctx, hostWatch.Events(), sched.RequestUpdate)

	if settingsWatch.Polling() || hostWatch.Polling() {
		slog.Info("using polling mode for file watching")
	}

	hostExited := make(chan error, 1)
	if opts.followHost {
		go func() { hostExited <- introspector.WaitHostExit(ctx, hostPollInterval) }()
	}

	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	case err := <-hostExited:
		if err == nil {
			slog.Info("editor exited, shutting down")
		}
	}

	if err := sched.Dispose(); err != nil {
		slog.Warn("presence shutdown incomplete", "error", err)
	}
	slog.Info("ymmrpc stopped")
	return nil
}

// forwardEvents calls fn for every event until ctx is done or events closes.
func forwardEvents(ctx context.Context, events <-chan struct{}, fn func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			fn()
		}
	}
}

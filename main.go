// nano-stats is a lightweight status-bar application that displays live
// system statistics.
//
// It samples host metrics (CPU, memory, load, disk, uptime) on a fixed
// tick, formats them into a single status line, and renders that line into
// a display sink: the terminal, a file polled by a status-bar widget, or
// an interactive preview.
//
// Usage:
//
//	nano-stats [flags]
//
// Flags:
//
//	-title string     Application title (overrides config)
//	-config string    Path to configuration file
//	-interval string  Tick period, e.g. "1s", "500ms" (overrides config)
//	-sink string      Display sink: term|file|preview (overrides config)
//	-once             Sample and render a single tick, then exit
//	-status           Query a running instance and print its status
//	-stop             Ask a running instance to stop
//	-verbose          Enable verbose logging
//	-version          Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gitlab.com/tinyland/lab/nano-stats/pkg/config"
	"gitlab.com/tinyland/lab/nano-stats/pkg/daemon"
	"gitlab.com/tinyland/lab/nano-stats/pkg/format"
	"gitlab.com/tinyland/lab/nano-stats/pkg/nanostats"
	"gitlab.com/tinyland/lab/nano-stats/pkg/sink"
	"gitlab.com/tinyland/lab/nano-stats/pkg/sink/preview"
	"gitlab.com/tinyland/lab/nano-stats/pkg/source"
	"gitlab.com/tinyland/lab/nano-stats/pkg/source/sysstat"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		title       = flag.String("title", "", "Application title (overrides config)")
		interval    = flag.String("interval", "", "Tick period, e.g. 1s, 500ms (overrides config)")
		sinkName    = flag.String("sink", "", "Display sink: term|file|preview (overrides config)")
		runOnce     = flag.Bool("once", false, "Sample and render a single tick, then exit")
		queryStatus = flag.Bool("status", false, "Query a running instance and print its status")
		sendStop    = flag.Bool("stop", false, "Ask a running instance to stop")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("nano-stats %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	// Load configuration and apply flag overrides.
	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *title != "" {
		cfg.Title = *title
	}
	if *interval != "" {
		d, err := time.ParseDuration(*interval)
		if err != nil || d <= 0 {
			fmt.Fprintf(os.Stderr, "invalid interval %q\n", *interval)
			os.Exit(1)
		}
		cfg.Loop.Interval = config.Duration{Duration: d}
	}
	if *sinkName != "" {
		cfg.Display.Sink = *sinkName
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Remote commands against a running instance.
	if *queryStatus || *sendStop {
		client := daemon.NewIPCClient(cfg.Daemon.Socket)
		cmd := "STATUS"
		if *sendStop {
			cmd = "QUIT"
		}
		resp, err := client.SendCommand(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println(resp)
		os.Exit(0)
	}

	logger, logClose, err := setupLogging(cfg, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logClose()

	// Build the collaborators.
	src := sysstat.New(sysstat.Config{
		Mounts: cfg.Source.Mounts,
		Swap:   cfg.Source.Swap,
	})

	fmtr := format.New(format.Config{
		MaxWidth:   cfg.Display.MaxWidth,
		Color:      cfg.Display.Color && cfg.Display.Sink != "file",
		Thresholds: thresholds(cfg),
	})

	if *runOnce {
		if err := renderOnce(src, fmtr); err != nil {
			logger.Error("single collection failed", "error", err)
			os.Exit(1)
		}
		return
	}

	snk, err := buildSink(cfg)
	if err != nil {
		logger.Error("sink init failed", "error", err)
		os.Exit(1)
	}

	app, err := nanostats.New(cfg.Title, src, snk,
		nanostats.WithInterval(cfg.Loop.Interval.Duration),
		nanostats.WithFailureBudget(cfg.Loop.FailureBudget),
		nanostats.WithFormatter(fmtr),
		nanostats.WithLogger(logger),
	)
	if err != nil {
		logger.Error("app init failed", "error", err)
		os.Exit(1)
	}

	// The preview's quit key is wired up only once the app exists; until
	// then a keypress just exits the preview program.
	if p, ok := snk.(*preview.Sink); ok {
		p.OnQuit(app.Stop)
	}

	// Signal handling: SIGINT/SIGTERM cancel the context, which the run
	// loop records as a host termination request.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	// Daemon plumbing: PID file, IPC socket, periodic status file.
	if err := daemon.AcquirePID(cfg.Daemon.PIDFile); err != nil {
		logger.Error("pid file", "error", err)
		os.Exit(1)
	}
	defer daemon.ReleasePID(cfg.Daemon.PIDFile)

	ipc := daemon.NewIPCServer(cfg.Daemon.Socket, app)
	if err := ipc.Start(); err != nil {
		logger.Error("ipc server", "error", err)
		os.Exit(1)
	}
	defer ipc.Stop()

	statusDone := make(chan struct{})
	go statusWriter(ctx, cfg.Daemon.StatusFile, app, cfg.Loop.Interval.Duration, logger, statusDone)

	logger.Info("starting nano-stats",
		"title", cfg.Title,
		"sink", cfg.Display.Sink,
		"interval", cfg.Loop.Interval.Duration,
	)

	if err := app.Run(ctx); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
	cancel()
	<-statusDone

	reason := app.ExitReason()
	if err := daemon.WriteStatusFile(cfg.Daemon.StatusFile, daemon.Snapshot(app)); err != nil {
		logger.Warn("final status write failed", "error", err)
	}
	if err := app.Close(); err != nil {
		logger.Warn("close failed", "error", err)
	}

	switch reason {
	case nanostats.ReasonSourceExhausted, nanostats.ReasonSinkExhausted:
		logger.Error("terminated after exhausting failure budget", "reason", reason.String())
		os.Exit(1)
	default:
		logger.Info("clean shutdown", "reason", reason.String())
	}
}

// setupLogging builds the slog logger writing to stderr and, when
// configured, a log file. The returned func closes the log file.
func setupLogging(cfg *config.Config, verbose bool) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.Log.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Log.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeFn = func() { f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeFn, nil
}

// thresholds maps the config threshold table into the formatter's form.
func thresholds(cfg *config.Config) map[string]format.Threshold {
	if len(cfg.Display.Thresholds) == 0 {
		return nil
	}
	out := make(map[string]format.Threshold, len(cfg.Display.Thresholds))
	for name, t := range cfg.Display.Thresholds {
		out[name] = format.Threshold{Warn: t.Warn, Crit: t.Crit}
	}
	return out
}

// buildSink constructs the configured display sink.
func buildSink(cfg *config.Config) (sink.Sink, error) {
	switch cfg.Display.Sink {
	case "file":
		return sink.NewFileSink(cfg.Display.FilePath)
	case "preview":
		return preview.New(), nil
	default:
		return sink.NewTermSink(os.Stdout), nil
	}
}

// renderOnce performs a single sample/format cycle and prints the line.
func renderOnce(src source.Source, fmtr *format.Formatter) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	snap, err := src.Sample(ctx)
	if err != nil && snap.Empty() {
		return err
	}
	fmt.Println(fmtr.Format(snap))
	return nil
}

// statusWriter refreshes the status file once per tick period while the
// application runs.
func statusWriter(ctx context.Context, path string, app *nanostats.App, interval time.Duration, logger *slog.Logger, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := daemon.WriteStatusFile(path, daemon.Snapshot(app)); err != nil {
				logger.Warn("status write failed", "error", err)
			}
		}
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the full nano-stats configuration.
type Config struct {
	// Title is the application title shown by the display sink.
	Title string `toml:"title"`

	Loop    LoopConfig    `toml:"loop"`
	Source  SourceConfig  `toml:"source"`
	Display DisplayConfig `toml:"display"`
	Log     LogConfig     `toml:"log"`
	Daemon  DaemonConfig  `toml:"daemon"`
}

// LoopConfig controls the run loop.
type LoopConfig struct {
	// Interval is the tick period.
	Interval Duration `toml:"interval"`

	// FailureBudget is how many consecutive source (or sink) failures
	// terminate the application.
	FailureBudget int `toml:"failure_budget"`
}

// SourceConfig controls the sysstat source.
type SourceConfig struct {
	// Mounts lists mount paths for disk usage metrics. Empty disables disk
	// sampling.
	Mounts []string `toml:"mounts"`

	// Swap includes swap usage when the host has swap configured.
	Swap bool `toml:"swap"`
}

// ThresholdConfig holds warn/crit cutoffs for one metric.
type ThresholdConfig struct {
	Warn float64 `toml:"warn"`
	Crit float64 `toml:"crit"`
}

// DisplayConfig controls the sink and formatter.
type DisplayConfig struct {
	// Sink selects the display target: "term", "file", or "preview".
	Sink string `toml:"sink"`

	// FilePath is the target for the file sink.
	FilePath string `toml:"file_path"`

	// MaxWidth is the visible-width budget for the status line.
	MaxWidth int `toml:"max_width"`

	// Color enables threshold coloring (ignored by the file sink, which
	// always strips ANSI).
	Color bool `toml:"color"`

	// Thresholds maps metric name to warn/crit cutoffs.
	Thresholds map[string]ThresholdConfig `toml:"thresholds"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`

	// File, when set, receives log output in addition to stderr.
	File string `toml:"file"`
}

// DaemonConfig holds the runtime file paths.
type DaemonConfig struct {
	PIDFile    string `toml:"pid_file"`
	StatusFile string `toml:"status_file"`
	Socket     string `toml:"socket"`
}

// Default returns the default configuration with sensible defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	runDir := filepath.Join(xdgCacheHome(home), "nano-stats")

	return &Config{
		Title: "nano-stats",
		Loop: LoopConfig{
			Interval:      Duration{1 * time.Second},
			FailureBudget: 5,
		},
		Source: SourceConfig{
			Mounts: []string{"/"},
		},
		Display: DisplayConfig{
			Sink:     "term",
			FilePath: filepath.Join(runDir, "status"),
			MaxWidth: 60,
			Color:    true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Daemon: DaemonConfig{
			PIDFile:    filepath.Join(runDir, "nano-stats.pid"),
			StatusFile: filepath.Join(runDir, "health.json"),
			Socket:     filepath.Join(runDir, "nano-stats.sock"),
		},
	}
}

// Validate checks the configuration for values the application cannot run
// with.
func (c *Config) Validate() error {
	if c.Title == "" {
		return fmt.Errorf("title must not be empty")
	}
	if c.Loop.Interval.Duration <= 0 {
		return fmt.Errorf("loop.interval must be positive, got %q", c.Loop.Interval.Duration)
	}
	if c.Loop.FailureBudget <= 0 {
		return fmt.Errorf("loop.failure_budget must be positive, got %d", c.Loop.FailureBudget)
	}
	switch c.Display.Sink {
	case "term", "file", "preview":
	default:
		return fmt.Errorf("display.sink must be term, file, or preview, got %q", c.Display.Sink)
	}
	if c.Display.Sink == "file" && c.Display.FilePath == "" {
		return fmt.Errorf("display.file_path required for the file sink")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level)
	}
	return nil
}

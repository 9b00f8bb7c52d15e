package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/nano-stats/config.toml
//  2. ~/.config/nano-stats/config.toml
//  3. ~/.config/nano-stats/config.yaml (legacy v1)
//
// If no file exists, returns Default().
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	return Default(), nil
}

// LoadFromFile reads configuration from a specific file path. The format
// is chosen by extension: .yaml/.yml parses the legacy v1 schema,
// everything else is TOML.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadLegacyYAML(f)
	default:
		return LoadFromReader(f)
	}
}

// LoadFromReader reads TOML configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// legacyConfig mirrors the flat v1 config.yaml schema.
type legacyConfig struct {
	Title         string   `yaml:"title"`
	IntervalSecs  float64  `yaml:"interval_seconds"`
	FailureBudget int      `yaml:"failure_budget"`
	Output        string   `yaml:"output"`
	OutputFile    string   `yaml:"output_file"`
	Mounts        []string `yaml:"mounts"`
	LogLevel      string   `yaml:"log_level"`
}

// loadLegacyYAML parses a v1 config.yaml and maps it onto the current
// schema. Fields the v1 format never had keep their defaults.
func loadLegacyYAML(r io.Reader) (*Config, error) {
	var legacy legacyConfig
	if err := yaml.NewDecoder(r).Decode(&legacy); err != nil {
		return nil, fmt.Errorf("parse legacy config: %w", err)
	}

	cfg := Default()
	if legacy.Title != "" {
		cfg.Title = legacy.Title
	}
	if legacy.IntervalSecs > 0 {
		cfg.Loop.Interval = Duration{time.Duration(legacy.IntervalSecs * float64(time.Second))}
	}
	if legacy.FailureBudget > 0 {
		cfg.Loop.FailureBudget = legacy.FailureBudget
	}
	if legacy.Output != "" {
		cfg.Display.Sink = legacy.Output
	}
	if legacy.OutputFile != "" {
		cfg.Display.FilePath = legacy.OutputFile
	}
	if len(legacy.Mounts) > 0 {
		cfg.Source.Mounts = legacy.Mounts
	}
	if legacy.LogLevel != "" {
		cfg.Log.Level = legacy.LogLevel
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides checks environment variables and overrides config
// values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NANO_STATS_TITLE"); v != "" {
		cfg.Title = v
	}
	if v := os.Getenv("NANO_STATS_SINK"); v != "" {
		cfg.Display.Sink = v
	}
	if v := os.Getenv("NANO_STATS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, "nano-stats", "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, "nano-stats", "config.toml"))
	}

	// Legacy v1 YAML config, lowest priority.
	paths = append(paths, filepath.Join(xdg, "nano-stats", "config.yaml"))

	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// xdgCacheHome returns XDG_CACHE_HOME or ~/.cache as fallback.
func xdgCacheHome(home string) string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".cache")
}

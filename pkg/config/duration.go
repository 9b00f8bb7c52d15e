// Package config provides TOML-based configuration for nano-stats, with
// the legacy v1 YAML config still accepted at its old path.
package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration that parses from the string form used in
// both TOML and YAML config files ("1s", "250ms", "1m30s").
type Duration struct {
	time.Duration
}

// UnmarshalText parses the duration. Empty input leaves it zero, which
// Validate later rejects for fields that require a positive period.
func (d *Duration) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(string(text))
	switch {
	case err != nil:
		return fmt.Errorf("parse duration %q: %w", text, err)
	case v < 0:
		return fmt.Errorf("duration %q must not be negative", text)
	}
	d.Duration = v
	return nil
}

// MarshalText renders the canonical Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Package source defines the stat source capability for nano-stats. A Source
// produces point-in-time Snapshots of named metric values on demand; the
// application's run loop polls it once per tick. Concrete implementations
// live in sub-packages (e.g., pkg/source/sysstat); tests substitute a
// MockSource.
package source

import (
	"context"
	"time"
)

// Metric is a single named value within a snapshot. Unit is a short display
// suffix ("%", "GB", "") consumed by the formatter.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// Snapshot is one immutable capture of metric values. Metrics preserves the
// order the source emitted them in, which the formatter uses as display
// order. A snapshot is created fresh each tick and never retained by the
// run loop beyond the tick that produced it.
type Snapshot struct {
	Metrics []Metric  `json:"metrics"`
	Taken   time.Time `json:"taken"`
}

// Get returns the metric with the given name, or false if absent.
func (s Snapshot) Get(name string) (Metric, bool) {
	for _, m := range s.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Empty reports whether the snapshot carries no metrics.
func (s Snapshot) Empty() bool {
	return len(s.Metrics) == 0
}

// Source is the capability interface all stat producers implement.
type Source interface {
	// Name returns a unique identifier for this source (e.g., "sysstat").
	Name() string

	// Sample performs one collection cycle and returns a fresh snapshot.
	// Implementations must honor ctx cancellation at their blocking points.
	Sample(ctx context.Context) (Snapshot, error)
}

// Closer is implemented by sources that hold releasable resources. The
// application closes such sources during teardown.
type Closer interface {
	Close() error
}

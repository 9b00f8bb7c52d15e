package source

import (
	"context"
	"fmt"
	"strings"
)

// Composite merges several sources into a single Source. Snapshot metrics
// are concatenated in registration order with each metric name prefixed by
// its source name ("sysstat.cpu"). A composite with partial failures still
// returns the metrics that sampled successfully along with an aggregated
// error; only a total failure yields an empty snapshot.
type Composite struct {
	name    string
	sources []Source
}

// NewComposite creates a composite source. It returns an error if two
// sources share a name.
func NewComposite(name string, sources ...Source) (*Composite, error) {
	seen := make(map[string]bool, len(sources))
	for _, s := range sources {
		if seen[s.Name()] {
			return nil, fmt.Errorf("source %q registered twice", s.Name())
		}
		seen[s.Name()] = true
	}
	return &Composite{name: name, sources: sources}, nil
}

// Name returns the composite's identifier.
func (c *Composite) Name() string { return c.name }

// Len returns the number of member sources.
func (c *Composite) Len() int { return len(c.sources) }

// Sample polls every member source in order and merges the results.
func (c *Composite) Sample(ctx context.Context) (Snapshot, error) {
	var (
		merged Snapshot
		errs   []string
	)

	for _, s := range c.sources {
		snap, err := s.Sample(ctx)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		}
		for _, m := range snap.Metrics {
			merged.Metrics = append(merged.Metrics, Metric{
				Name:  s.Name() + "." + m.Name,
				Value: m.Value,
				Unit:  m.Unit,
			})
		}
		if snap.Taken.After(merged.Taken) {
			merged.Taken = snap.Taken
		}
	}

	if len(errs) == len(c.sources) && len(c.sources) > 0 {
		return Snapshot{}, fmt.Errorf("%s: all sources failed: %s", c.name, strings.Join(errs, "; "))
	}
	if len(errs) > 0 {
		return merged, fmt.Errorf("%s: partial errors: %s", c.name, strings.Join(errs, "; "))
	}
	return merged, nil
}

// Close releases every member source that is a Closer. The first error is
// returned after all members have been closed.
func (c *Composite) Close() error {
	var first error
	for _, s := range c.sources {
		if cl, ok := s.(Closer); ok {
			if err := cl.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

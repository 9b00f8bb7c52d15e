// Package sysstat provides the host stat source for nano-stats. It uses
// gopsutil to sample CPU, memory, load, disk, and uptime on both Darwin and
// Linux without /proc dependencies.
package sysstat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"gitlab.com/tinyland/lab/nano-stats/pkg/source"
)

// Config controls which metrics the sysstat source samples.
type Config struct {
	// Mounts restricts disk usage sampling to these mount paths. An empty
	// slice disables disk metrics entirely; a status bar rarely wants more
	// than the root mount.
	Mounts []string

	// Swap includes swap usage when the host has swap configured.
	Swap bool
}

// DefaultConfig returns a Config sampling the root mount and no swap.
func DefaultConfig() Config {
	return Config{Mounts: []string{"/"}}
}

// Sampler gathers host metrics via gopsutil and emits them as a generic
// source.Snapshot. It satisfies the source.Source interface.
type Sampler struct {
	cfg Config
}

// New creates a Sampler with the given configuration.
func New(cfg Config) *Sampler {
	return &Sampler{cfg: cfg}
}

// Name returns the source's unique identifier.
func (s *Sampler) Name() string {
	return "sysstat"
}

// Sample gathers all host metrics. If individual sub-collectors fail the
// method still returns as much data as possible; errors are aggregated. Only
// a total failure (every sub-collector errored) returns an empty snapshot.
func (s *Sampler) Sample(ctx context.Context) (source.Snapshot, error) {
	select {
	case <-ctx.Done():
		return source.Snapshot{}, ctx.Err()
	default:
	}

	snap := source.Snapshot{Taken: time.Now()}

	var errs []string
	attempted := 0

	collect := func(name string, fn func(ctx context.Context, snap *source.Snapshot) error) {
		attempted++
		if err := fn(ctx, &snap); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}

	collect("cpu", s.collectCPU)
	collect("memory", s.collectMemory)
	collect("load", s.collectLoad)
	collect("uptime", s.collectUptime)
	if len(s.cfg.Mounts) > 0 {
		collect("disk", s.collectDisk)
	}

	if len(errs) == attempted {
		return source.Snapshot{}, fmt.Errorf("sysstat: all sub-collectors failed: %s", strings.Join(errs, "; "))
	}
	if len(errs) > 0 {
		return snap, fmt.Errorf("sysstat: partial errors: %s", strings.Join(errs, "; "))
	}
	return snap, nil
}

func (s *Sampler) collectCPU(ctx context.Context, snap *source.Snapshot) error {
	// interval=0 means instantaneous snapshot against the previous call.
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return err
	}
	if len(total) > 0 {
		snap.Metrics = append(snap.Metrics, source.Metric{
			Name: "cpu", Value: total[0], Unit: "%",
		})
	}
	return nil
}

func (s *Sampler) collectMemory(ctx context.Context, snap *source.Snapshot) error {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Metrics = append(snap.Metrics,
		source.Metric{Name: "mem", Value: vm.UsedPercent, Unit: "%"},
		source.Metric{Name: "mem_used_gb", Value: float64(vm.Used) / (1 << 30), Unit: "GB"},
	)

	if !s.cfg.Swap {
		return nil
	}
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil || sw.Total == 0 {
		// Swap might not be available; non-fatal within memory.
		return nil
	}
	snap.Metrics = append(snap.Metrics, source.Metric{
		Name: "swap", Value: sw.UsedPercent, Unit: "%",
	})
	return nil
}

func (s *Sampler) collectLoad(ctx context.Context, snap *source.Snapshot) error {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Metrics = append(snap.Metrics, source.Metric{
		Name: "load1", Value: avg.Load1,
	})
	return nil
}

func (s *Sampler) collectUptime(ctx context.Context, snap *source.Snapshot) error {
	secs, err := host.UptimeWithContext(ctx)
	if err != nil {
		return err
	}
	snap.Metrics = append(snap.Metrics, source.Metric{
		Name: "uptime_hours", Value: (time.Duration(secs) * time.Second).Hours(), Unit: "h",
	})
	return nil
}

func (s *Sampler) collectDisk(ctx context.Context, snap *source.Snapshot) error {
	var errs []string
	for _, mp := range s.cfg.Mounts {
		usage, err := disk.UsageWithContext(ctx, mp)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", mp, err))
			continue
		}
		name := "disk"
		if len(s.cfg.Mounts) > 1 {
			name = "disk:" + mp
		}
		snap.Metrics = append(snap.Metrics, source.Metric{
			Name: name, Value: usage.UsedPercent, Unit: "%",
		})
	}
	if len(errs) == len(s.cfg.Mounts) {
		return fmt.Errorf("all mounts failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// compile-time check that Sampler implements source.Source.
var _ source.Source = (*Sampler)(nil)

package format

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"gitlab.com/tinyland/lab/nano-stats/pkg/source"
)

func snap(metrics ...source.Metric) source.Snapshot {
	return source.Snapshot{Metrics: metrics, Taken: time.Now()}
}

// --- Format ---

func TestFormatEmptySnapshot(t *testing.T) {
	f := New(Config{})
	if got := f.Format(source.Snapshot{}); got != "" {
		t.Errorf("Format(empty) = %q, want empty string", got)
	}
}

func TestFormatPlainSegments(t *testing.T) {
	f := New(Config{MaxWidth: 80})
	got := f.Format(snap(
		source.Metric{Name: "cpu", Value: 12.4, Unit: "%"},
		source.Metric{Name: "load1", Value: 0.42},
	))

	if want := "cpu 12% | load1 0.42"; got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatUnitPrecision(t *testing.T) {
	f := New(Config{MaxWidth: 80})
	got := f.Format(snap(source.Metric{Name: "mem_used_gb", Value: 3.25, Unit: "GB"}))
	if want := "mem_used_gb 3.2GB"; got != want {
		t.Errorf("Format = %q, want %q", got, want)
	}
}

func TestFormatDropsRightmostSegmentsOverBudget(t *testing.T) {
	f := New(Config{MaxWidth: 10})
	got := f.Format(snap(
		source.Metric{Name: "cpu", Value: 50, Unit: "%"},
		source.Metric{Name: "mem", Value: 60, Unit: "%"},
		source.Metric{Name: "disk", Value: 70, Unit: "%"},
	))

	if ansi.StringWidth(got) > 10 {
		t.Errorf("rendered width %d exceeds budget 10: %q", ansi.StringWidth(got), got)
	}
	if !strings.HasPrefix(got, "cpu") {
		t.Errorf("leftmost segment should survive, got %q", got)
	}
	if strings.Contains(got, "disk") {
		t.Errorf("rightmost segment should be dropped, got %q", got)
	}
}

func TestFormatTinyBudgetTruncatesFirstSegment(t *testing.T) {
	f := New(Config{MaxWidth: 4})
	got := f.Format(snap(source.Metric{Name: "cpu", Value: 50, Unit: "%"}))
	if got == "" {
		t.Fatal("tiny budget must not blank the line")
	}
	if ansi.StringWidth(got) > 4 {
		t.Errorf("width %d exceeds budget 4: %q", ansi.StringWidth(got), got)
	}
}

func TestFormatBudgetCountsVisibleColumnsNotBytes(t *testing.T) {
	// With coloring on, escape sequences inflate the byte length but not
	// the column count; the budget must be applied to the latter.
	f := New(Config{MaxWidth: 20, Color: true})
	got := f.Format(snap(
		source.Metric{Name: "cpu", Value: 50, Unit: "%"},
		source.Metric{Name: "mem", Value: 60, Unit: "%"},
	))

	if w := ansi.StringWidth(got); w > 20 {
		t.Errorf("visible width %d exceeds budget 20: %q", w, got)
	}
	stripped := ansi.Strip(got)
	if !strings.Contains(stripped, "cpu 50%") || !strings.Contains(stripped, "mem 60%") {
		t.Errorf("both segments fit in 20 columns, got %q", stripped)
	}
}

func TestFormatColorAppliesThresholds(t *testing.T) {
	f := New(Config{
		MaxWidth: 80,
		Color:    true,
		Thresholds: map[string]Threshold{
			"cpu": {Warn: 50, Crit: 80},
		},
	})

	low := f.Format(snap(source.Metric{Name: "cpu", Value: 10, Unit: "%"}))
	high := f.Format(snap(source.Metric{Name: "cpu", Value: 95, Unit: "%"}))

	if ansi.Strip(low) != "cpu 10%" {
		t.Errorf("stripped low = %q, want %q", ansi.Strip(low), "cpu 10%")
	}
	if ansi.Strip(high) != "cpu 95%" {
		t.Errorf("stripped high = %q, want %q", ansi.Strip(high), "cpu 95%")
	}
	if low == ansi.Strip(low) && high == ansi.Strip(high) {
		t.Skip("color profile downgraded styling in this environment")
	}
	if low == high {
		t.Error("low and high values rendered identically despite thresholds")
	}
}

func TestFormatNoColorForNonPercentUnits(t *testing.T) {
	f := New(Config{MaxWidth: 80, Color: true})
	got := f.Format(snap(source.Metric{Name: "load1", Value: 99}))
	if got != ansi.Strip(got) {
		t.Errorf("non-percent metric should not be colored: %q", got)
	}
}

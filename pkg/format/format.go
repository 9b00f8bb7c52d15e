// Package format renders a source.Snapshot into a single status-bar line.
// Each metric becomes a colored segment; segments are joined with a dim
// separator and the rightmost ones are dropped when the line would exceed
// the visible width budget.
package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"gitlab.com/tinyland/lab/nano-stats/pkg/source"
)

// Status colors and default thresholds (percentage 0-100).
const (
	colorGreen  = "#4CAF50"
	colorYellow = "#FF9800"
	colorRed    = "#F44336"

	DefaultWarnThreshold = 50.0
	DefaultCritThreshold = 80.0

	// DefaultMaxWidth is the visible-width budget when none is configured.
	DefaultMaxWidth = 60
)

// Threshold defines the warn/crit cutoffs for one metric's coloring.
type Threshold struct {
	Warn float64
	Crit float64
}

// Config controls formatter output.
type Config struct {
	// MaxWidth is the visible-width budget for the rendered line. Zero or
	// negative falls back to DefaultMaxWidth.
	MaxWidth int

	// Color enables lipgloss styling. Sinks that render into contexts
	// without ANSI support (the file sink) disable it.
	Color bool

	// Thresholds maps metric name to its coloring cutoffs. Metrics without
	// an entry use the defaults; metrics without a "%" unit are never
	// threshold-colored.
	Thresholds map[string]Threshold
}

// Formatter turns snapshots into display lines. It is stateless and safe
// for reuse across ticks.
type Formatter struct {
	cfg       Config
	separator string
	dim       lipgloss.Style
	styles    map[string]lipgloss.Style
}

// New creates a Formatter. Zero-value fields in cfg are replaced with
// defaults.
func New(cfg Config) *Formatter {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = DefaultMaxWidth
	}
	f := &Formatter{cfg: cfg}
	if cfg.Color {
		f.dim = lipgloss.NewStyle().Faint(true)
		f.styles = map[string]lipgloss.Style{
			colorGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorGreen)),
			colorYellow: lipgloss.NewStyle().Foreground(lipgloss.Color(colorYellow)),
			colorRed:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorRed)),
		}
		f.separator = f.dim.Render("│")
	} else {
		f.separator = "|"
	}
	return f
}

// Format renders the snapshot into one line. An empty snapshot renders to
// an empty string; callers treat that as "leave the display alone".
func (f *Formatter) Format(snap source.Snapshot) string {
	if snap.Empty() {
		return ""
	}

	type rendered struct {
		text    string
		visible int
	}

	parts := make([]rendered, 0, len(snap.Metrics))
	for _, m := range snap.Metrics {
		text := f.segment(m)
		parts = append(parts, rendered{text: text, visible: ansi.StringWidth(text)})
	}

	// Greedily include segments left-to-right until the budget is exceeded.
	const sepWidth = 3 // " │ "
	var b strings.Builder
	total := 0
	included := 0
	for i, p := range parts {
		needed := p.visible
		if i > 0 {
			needed += sepWidth
		}
		if total+needed > f.cfg.MaxWidth {
			break
		}
		if i > 0 {
			b.WriteString(" " + f.separator + " ")
		}
		b.WriteString(p.text)
		total += needed
		included++
	}

	if included == 0 {
		// Budget too small for even one segment; render the first truncated
		// rather than blanking the bar.
		return ansi.Truncate(parts[0].text, f.cfg.MaxWidth, "")
	}
	return b.String()
}

// segment renders one metric as "name value[unit]" with threshold coloring.
func (f *Formatter) segment(m source.Metric) string {
	text := fmt.Sprintf("%s %s", m.Name, formatValue(m))
	if !f.cfg.Color {
		return text
	}
	if m.Unit != "%" {
		return text
	}
	th, ok := f.cfg.Thresholds[m.Name]
	if !ok {
		th = Threshold{Warn: DefaultWarnThreshold, Crit: DefaultCritThreshold}
	}
	switch {
	case m.Value >= th.Crit:
		return f.styles[colorRed].Render(text)
	case m.Value >= th.Warn:
		return f.styles[colorYellow].Render(text)
	default:
		return f.styles[colorGreen].Render(text)
	}
}

// formatValue renders a metric value with a precision suited to its unit.
func formatValue(m source.Metric) string {
	switch m.Unit {
	case "%":
		return fmt.Sprintf("%.0f%%", m.Value)
	case "":
		return fmt.Sprintf("%.2f", m.Value)
	default:
		return fmt.Sprintf("%.1f%s", m.Value, m.Unit)
	}
}

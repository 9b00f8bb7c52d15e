package sink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
)

// termTitleLimit is the longest title the terminal sink accepts. Terminal
// emulators truncate OSC titles far earlier than this; the limit guards
// against runaway input, not cosmetics.
const termTitleLimit = 256

// TermSink renders the status line to a terminal. On a TTY it redraws
// in place with a carriage return and mirrors the title into the terminal
// title bar via OSC 2; on a plain pipe it emits one line per tick.
type TermSink struct {
	mu     sync.Mutex
	w      io.Writer
	tty    bool
	closed bool
	width  int // visible width of the previous line, for clearing
}

// NewTermSink creates a terminal sink writing to w. TTY behavior is
// enabled when w is os.Stdout or os.Stderr connected to a terminal.
func NewTermSink(w io.Writer) *TermSink {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &TermSink{w: w, tty: tty}
}

// SetTitle applies the title to the terminal title bar (OSC 2) when on a
// TTY. Over-long titles are rejected.
func (t *TermSink) SetTitle(title string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("term sink is closed")
	}
	if len(title) > termTitleLimit {
		return fmt.Errorf("title %d chars exceeds terminal limit %d", len(title), termTitleLimit)
	}
	if t.tty {
		if _, err := fmt.Fprintf(t.w, "\033]2;%s\007", title); err != nil {
			return err
		}
	}
	return nil
}

// Render writes one status line.
func (t *TermSink) Render(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("term sink is closed")
	}

	if !t.tty {
		_, err := fmt.Fprintln(t.w, ansi.Strip(line))
		return err
	}

	// Redraw in place, padding over any leftover characters from a longer
	// previous line.
	vis := ansi.StringWidth(line)
	pad := t.width - vis
	if pad < 0 {
		pad = 0
	}
	if _, err := fmt.Fprintf(t.w, "\r%s%*s", line, pad, ""); err != nil {
		return err
	}
	t.width = vis
	return nil
}

// Close terminates the in-place line and marks the sink released. The last
// rendered content is left visible.
func (t *TermSink) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.tty && t.width > 0 {
		fmt.Fprintln(t.w)
	}
	return nil
}

// compile-time check that TermSink implements Sink.
var _ Sink = (*TermSink)(nil)

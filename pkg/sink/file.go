package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// fileTitleLimit caps the title written to the file header.
const fileTitleLimit = 512

// FileSink writes the status line to a single file for consumers that poll
// one (xbar, polybar custom scripts, tmux status-right). The file holds a
// "# title" header line followed by the latest status line, stripped of
// ANSI sequences.
//
// Every write is atomic: content goes to a temporary file first, then is
// renamed into place so pollers never observe a partial line.
type FileSink struct {
	mu     sync.Mutex
	path   string
	title  string
	closed bool
}

// NewFileSink creates a file sink writing to path. The parent directory is
// created on demand.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("file sink path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sink directory: %w", err)
	}
	return &FileSink{path: path}, nil
}

// Path returns the sink's target file path.
func (f *FileSink) Path() string { return f.path }

// SetTitle stores the title for the file header.
func (f *FileSink) SetTitle(title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("file sink is closed")
	}
	if len(title) > fileTitleLimit {
		return fmt.Errorf("title %d chars exceeds file sink limit %d", len(title), fileTitleLimit)
	}
	f.title = title
	return nil
}

// Render writes the line to the target file via atomic rename. A failed
// write leaves the previous file contents intact.
func (f *FileSink) Render(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return fmt.Errorf("file sink is closed")
	}

	content := fmt.Sprintf("# %s\n%s\n", f.title, ansi.Strip(line))

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write temp sink file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename sink file: %w", err)
	}
	return nil
}

// Close marks the sink released. The file is left in place with its last
// rendered content so the status bar keeps showing the final value.
func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// compile-time check that FileSink implements Sink.
var _ Sink = (*FileSink)(nil)

package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tinyland/lab/nano-stats/pkg/nanostats"
)

// Status is the externally readable snapshot of a running (or finished)
// application, written to the status file and served over IPC.
type Status struct {
	PID        int                `json:"pid"`
	Title      string             `json:"title"`
	State      string             `json:"state"`
	ExitReason string             `json:"exit_reason"`
	LastLine   string             `json:"last_line"`
	Counters   nanostats.Counters `json:"counters"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Snapshot builds a Status from the live application.
func Snapshot(app *nanostats.App) *Status {
	return &Status{
		PID:        os.Getpid(),
		Title:      app.Title(),
		State:      app.State().String(),
		ExitReason: app.ExitReason().String(),
		LastLine:   app.LastLine(),
		Counters:   app.Counters(),
		UpdatedAt:  time.Now(),
	}
}

// WriteStatusFile writes the status as indented JSON to path. The write is
// atomic: content goes to a temporary file first, then is renamed into
// place to prevent partial reads.
func WriteStatusFile(path string, status *Status) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create status directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp status file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename status file: %w", err)
	}

	return nil
}

// ReadStatusFile reads and parses the status JSON from path.
func ReadStatusFile(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read status file: %w", err)
	}

	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal status file: %w", err)
	}

	return &status, nil
}

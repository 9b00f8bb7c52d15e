package sink

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- MockSink ---

func TestMockSinkRecordsLines(t *testing.T) {
	m := NewMockSink()
	if err := m.SetTitle("stats"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	m.Render("one")
	m.Render("two")

	if m.Title() != "stats" {
		t.Errorf("Title = %q, want %q", m.Title(), "stats")
	}
	if got := m.Lines(); len(got) != 2 || got[1] != "two" {
		t.Errorf("Lines = %v, want [one two]", got)
	}
	if m.LastLine() != "two" {
		t.Errorf("LastLine = %q, want %q", m.LastLine(), "two")
	}
}

func TestMockSinkTitleLimit(t *testing.T) {
	m := NewMockSink(WithTitleLimit(4))
	if err := m.SetTitle("too long"); err == nil {
		t.Fatal("SetTitle should enforce the configured limit")
	}
	if err := m.SetTitle("ok"); err != nil {
		t.Fatalf("SetTitle within limit failed: %v", err)
	}
}

func TestMockSinkScriptedError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockSink(WithRenderError(boom))
	if err := m.Render("x"); !errors.Is(err, boom) {
		t.Errorf("Render err = %v, want %v", err, boom)
	}
	if len(m.Lines()) != 0 {
		t.Error("failed render must not record a line")
	}

	m.SetRenderError(nil)
	if err := m.Render("y"); err != nil {
		t.Errorf("Render after clearing error: %v", err)
	}
}

func TestMockSinkClose(t *testing.T) {
	m := NewMockSink()
	if m.Closed() {
		t.Error("new sink should not be closed")
	}
	m.Close()
	if !m.Closed() {
		t.Error("Closed() false after Close")
	}
}

// --- TermSink ---

func TestTermSinkNonTTYWritesLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewTermSink(&buf)

	if err := s.SetTitle("stats"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	if err := s.Render("cpu 10%"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if err := s.Render("\033[31mcpu 90%\033[0m"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	out := buf.String()
	// Off-TTY output is line-per-tick, ANSI stripped, no OSC title.
	if strings.Contains(out, "\033") {
		t.Errorf("non-TTY output contains escape sequences: %q", out)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 || lines[0] != "cpu 10%" || lines[1] != "cpu 90%" {
		t.Errorf("output lines = %v", lines)
	}
}

func TestTermSinkTitleLimit(t *testing.T) {
	var buf bytes.Buffer
	s := NewTermSink(&buf)
	if err := s.SetTitle(strings.Repeat("x", 300)); err == nil {
		t.Fatal("SetTitle should reject over-long titles")
	}
}

func TestTermSinkClosedRejectsRender(t *testing.T) {
	var buf bytes.Buffer
	s := NewTermSink(&buf)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Render("x"); err == nil {
		t.Fatal("Render after Close should fail")
	}
	// Second Close is harmless.
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

// --- FileSink ---

func TestFileSinkRenderWritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "status")
	s, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	if err := s.SetTitle("nano"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}

	if err := s.Render("\033[32mcpu 10%\033[0m"); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read status file: %v", err)
	}
	want := "# nano\ncpu 10%\n"
	if string(data) != want {
		t.Errorf("file content = %q, want %q", data, want)
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after rename")
	}
}

func TestFileSinkOverwritesPreviousLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status")
	s, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	s.SetTitle("t")
	s.Render("first")
	s.Render("second")

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "second") || strings.Contains(string(data), "first") {
		t.Errorf("file content = %q, want only the latest line", data)
	}
}

func TestFileSinkCloseLeavesLastContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status")
	s, err := NewFileSink(path)
	if err != nil {
		t.Fatalf("NewFileSink failed: %v", err)
	}
	s.SetTitle("t")
	s.Render("final value")
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// The last rendered value stays visible after teardown.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("status file gone after Close: %v", err)
	}
	if !strings.Contains(string(data), "final value") {
		t.Errorf("file content = %q, want the final line preserved", data)
	}

	if err := s.Render("late"); err == nil {
		t.Error("Render after Close should fail")
	}
}

func TestFileSinkEmptyPath(t *testing.T) {
	if _, err := NewFileSink(""); err == nil {
		t.Fatal("NewFileSink with empty path should fail")
	}
}

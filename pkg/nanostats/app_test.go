package nanostats

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/nano-stats/pkg/sink"
	"gitlab.com/tinyland/lab/nano-stats/pkg/source"
)

func testSnapshot() source.Snapshot {
	return source.Snapshot{
		Metrics: []source.Metric{
			{Name: "cpu", Value: 12.5, Unit: "%"},
			{Name: "mem", Value: 40.0, Unit: "%"},
		},
		Taken: time.Now(),
	}
}

// --- New ---

func TestNewEmptyTitle(t *testing.T) {
	_, err := New("", source.NewMockSource("s"), sink.NewMockSink())
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("New with empty title: err = %v, want ErrInvalidArgument", err)
	}
}

func TestNewNilCollaborators(t *testing.T) {
	if _, err := New("t", nil, sink.NewMockSink()); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil source: err = %v, want ErrInvalidArgument", err)
	}
	if _, err := New("t", source.NewMockSource("s"), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil sink: err = %v, want ErrInvalidArgument", err)
	}
}

func TestNewTitleRejectedBySink(t *testing.T) {
	snk := sink.NewMockSink(sink.WithTitleLimit(8))
	_, err := New("this title is far too long", source.NewMockSource("s"), snk)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("over-long title: err = %v, want ErrInvalidArgument", err)
	}
}

func TestNewAppliesTitleToSink(t *testing.T) {
	snk := sink.NewMockSink()
	app, err := New("my stats", source.NewMockSource("s"), snk)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if snk.Title() != "my stats" {
		t.Errorf("sink title = %q, want %q", snk.Title(), "my stats")
	}
	if app.Title() != "my stats" {
		t.Errorf("app title = %q, want %q", app.Title(), "my stats")
	}
	if app.State() != StateCreated {
		t.Errorf("initial state = %v, want created", app.State())
	}
}

func TestNewDistinctHandles(t *testing.T) {
	a1, err := New("one", source.NewMockSource("s1"), sink.NewMockSink())
	if err != nil {
		t.Fatalf("first New failed: %v", err)
	}
	a2, err := New("one", source.NewMockSource("s2"), sink.NewMockSink())
	if err != nil {
		t.Fatalf("second New failed: %v", err)
	}
	if a1 == a2 {
		t.Fatal("New returned the same handle twice")
	}
}

// --- Close ---

func TestCloseWithoutRunReleasesResources(t *testing.T) {
	src := source.NewMockSource("s", source.WithSnapshot(testSnapshot()))
	snk := sink.NewMockSink()

	app, err := New("t", src, snk)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := app.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !src.Closed() {
		t.Error("source not released by Close")
	}
	if !snk.Closed() {
		t.Error("sink not released by Close")
	}
	// The cycle must never have run.
	if src.CallCount() != 0 {
		t.Errorf("Sample called %d times without Run, want 0", src.CallCount())
	}
	if len(snk.Lines()) != 0 {
		t.Errorf("sink received %d renders without Run, want 0", len(snk.Lines()))
	}
}

func TestCloseTwice(t *testing.T) {
	app, err := New("t", source.NewMockSource("s"), sink.NewMockSink())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := app.Close(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second Close: err = %v, want ErrInvalidState", err)
	}
}

func TestCloseWhileRunning(t *testing.T) {
	src := source.NewMockSource("s", source.WithSnapshot(testSnapshot()))
	snk := sink.NewMockSink()
	app, err := New("t", src, snk, WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		app.Run(context.Background())
		close(done)
	}()

	waitForState(t, app, StateRunning)

	if err := app.Close(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Close while running: err = %v, want ErrInvalidState", err)
	}

	app.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	if err := app.Close(); err != nil {
		t.Errorf("Close after Run returned: %v", err)
	}
}

// --- accessors ---

func TestCountersZeroBeforeRun(t *testing.T) {
	app, err := New("t", source.NewMockSource("s"), sink.NewMockSink())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	c := app.Counters()
	if c.Ticks != 0 || c.SourceFailures != 0 || c.SinkFailures != 0 {
		t.Errorf("counters before Run = %+v, want zeros", c)
	}
	if app.ExitReason() != ReasonNone {
		t.Errorf("ExitReason before Run = %v, want none", app.ExitReason())
	}
}

func TestReasonStrings(t *testing.T) {
	cases := map[Reason]string{
		ReasonNone:            "none",
		ReasonStopRequested:   "stop_requested",
		ReasonHostTermination: "host_termination",
		ReasonSourceExhausted: "source_exhausted",
		ReasonSinkExhausted:   "sink_exhausted",
	}
	for r, want := range cases {
		if got := r.String(); got != want {
			t.Errorf("Reason(%d).String() = %q, want %q", r, got, want)
		}
	}
}

func TestStateStrings(t *testing.T) {
	for s, want := range map[State]string{
		StateCreated:  "created",
		StateRunning:  "running",
		StateStopping: "stopping",
		StateStopped:  "stopped",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestFormatterFunc(t *testing.T) {
	f := FormatterFunc(func(s source.Snapshot) string {
		return strings.ToUpper(s.Metrics[0].Name)
	})
	if got := f.Format(testSnapshot()); got != "CPU" {
		t.Errorf("Format = %q, want %q", got, "CPU")
	}
}

// --- helpers ---

// waitForState polls until the app reaches the given state or a deadline
// passes.
func waitForState(t *testing.T, app *App, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if app.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("app never reached state %v (currently %v)", want, app.State())
}

// Package nanostats implements the status-bar application lifecycle: an
// opaque App built from a title, a blocking Run that drives the periodic
// sample→format→render cycle, and a Close that releases the collaborators.
//
// The stat source and display sink are capability interfaces injected at
// construction (pkg/source, pkg/sink), so the lifecycle is testable with
// deterministic doubles. Run blocks its calling goroutine for the whole
// application lifetime; the one sanctioned concurrent operation is Stop,
// which may be called from any goroutine and unblocks Run within one tick
// period.
package nanostats

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/tinyland/lab/nano-stats/pkg/sink"
	"gitlab.com/tinyland/lab/nano-stats/pkg/source"
)

// Defaults for options not supplied at construction.
const (
	DefaultInterval      = 1 * time.Second
	DefaultFailureBudget = 5
)

// Formatter turns a snapshot into a display line. pkg/format provides the
// production implementation; tests often use a FormatterFunc.
type Formatter interface {
	Format(source.Snapshot) string
}

// FormatterFunc adapts a plain function to the Formatter interface.
type FormatterFunc func(source.Snapshot) string

// Format calls fn(snap).
func (fn FormatterFunc) Format(snap source.Snapshot) string { return fn(snap) }

// Counters holds the run loop's tick and failure accounting. All fields
// are safe to read while the loop is running.
type Counters struct {
	Ticks             int64 `json:"ticks"`
	SourceFailures    int64 `json:"source_failures"`
	SinkFailures      int64 `json:"sink_failures"`
	ConsecutiveSource int64 `json:"consecutive_source_failures"`
	ConsecutiveSink   int64 `json:"consecutive_sink_failures"`
}

// App is the opaque application handle. The caller owns it exclusively:
// New → Run (at most once) → Close, with Stop allowed from any goroutine
// while Run is blocked.
type App struct {
	title    string
	src      source.Source
	snk      sink.Sink
	fmtr     Formatter
	interval time.Duration
	budget   int64
	log      *slog.Logger

	mu        sync.Mutex
	state     State
	reason    Reason
	lastLine  string
	destroyed bool

	stop     chan struct{}
	stopOnce sync.Once

	ticks     atomic.Int64
	srcFails  atomic.Int64
	snkFails  atomic.Int64
	srcConsec atomic.Int64
	snkConsec atomic.Int64
}

// Option configures an App at construction.
type Option func(*App)

// WithInterval sets the tick period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(a *App) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithFailureBudget sets how many consecutive source (or sink) failures
// escalate to a fatal termination. Non-positive values keep the default.
func WithFailureBudget(n int) Option {
	return func(a *App) {
		if n > 0 {
			a.budget = int64(n)
		}
	}
}

// WithFormatter replaces the formatter.
func WithFormatter(f Formatter) Option {
	return func(a *App) {
		if f != nil {
			a.fmtr = f
		}
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.log = l
		}
	}
}

// New constructs an App in state Created. It fails with ErrInvalidArgument
// when the title is empty or the sink rejects it (the sink owns the host
// display's length policy). No background work starts here.
func New(title string, src source.Source, snk sink.Sink, opts ...Option) (*App, error) {
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", ErrInvalidArgument)
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil stat source", ErrInvalidArgument)
	}
	if snk == nil {
		return nil, fmt.Errorf("%w: nil display sink", ErrInvalidArgument)
	}

	a := &App{
		title:    title,
		src:      src,
		snk:      snk,
		fmtr:     FormatterFunc(defaultFormat),
		interval: DefaultInterval,
		budget:   DefaultFailureBudget,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		state:    StateCreated,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := snk.SetTitle(title); err != nil {
		return nil, fmt.Errorf("%w: title rejected by sink: %v", ErrInvalidArgument, err)
	}

	return a, nil
}

// Title returns the immutable title set at creation.
func (a *App) Title() string { return a.title }

// State returns the current lifecycle state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// ExitReason returns why the run loop terminated, or ReasonNone while it
// has not. This is the diagnostic channel the three-operation surface
// deliberately omits from Run's return value.
func (a *App) ExitReason() Reason {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reason
}

// LastLine returns the most recently rendered display line.
func (a *App) LastLine() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastLine
}

// Counters returns a copy of the run loop's accounting.
func (a *App) Counters() Counters {
	return Counters{
		Ticks:             a.ticks.Load(),
		SourceFailures:    a.srcFails.Load(),
		SinkFailures:      a.snkFails.Load(),
		ConsecutiveSource: a.srcConsec.Load(),
		ConsecutiveSink:   a.snkConsec.Load(),
	}
}

// Stop requests termination. It is safe to call from any goroutine and at
// any time, including before Run and more than once; only the first call
// records a reason. Run observes the request within one tick period.
func (a *App) Stop() {
	a.requestStop(ReasonStopRequested)
}

// requestStop records the termination reason exactly once and wakes the
// run loop. The state moves to Stopping immediately so an in-flight tick
// is allowed to finish its render before the loop reaches Stopped.
func (a *App) requestStop(r Reason) {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		a.reason = r
		if a.state == StateRunning {
			a.state = StateStopping
		}
		a.mu.Unlock()
		close(a.stop)
	})
}

// Close releases the stat source, display sink, and the handle itself. It
// is valid in any state except Running/Stopping: destroying while the loop
// is blocked in Run is a contract violation and returns ErrInvalidState,
// as does a second Close. Callers must not retain the handle afterward.
func (a *App) Close() error {
	a.mu.Lock()
	if a.state == StateRunning || a.state == StateStopping {
		a.mu.Unlock()
		return fmt.Errorf("%w: cannot close while %s", ErrInvalidState, a.state)
	}
	if a.destroyed {
		a.mu.Unlock()
		return fmt.Errorf("%w: already closed", ErrInvalidState)
	}
	a.destroyed = true
	a.mu.Unlock()

	var first error
	if c, ok := a.src.(source.Closer); ok {
		if err := c.Close(); err != nil {
			first = fmt.Errorf("close source: %w", err)
		}
	}
	if err := a.snk.Close(); err != nil && first == nil {
		first = fmt.Errorf("close sink: %w", err)
	}
	return first
}

// defaultFormat is the fallback formatter: "name value" pairs joined with
// two spaces, no coloring.
func defaultFormat(snap source.Snapshot) string {
	var b []byte
	for i, m := range snap.Metrics {
		if i > 0 {
			b = append(b, ' ', ' ')
		}
		b = append(b, fmt.Sprintf("%s %.1f%s", m.Name, m.Value, m.Unit)...)
	}
	return string(b)
}

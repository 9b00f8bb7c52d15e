// Package sink defines the display sink capability for nano-stats. A Sink
// renders formatted status lines into a host display surface: a terminal,
// a file polled by a status-bar widget, or the interactive preview. The
// sink owns the host's title length policy; the application only surfaces
// SetTitle failures.
package sink

import (
	"fmt"
	"sync"
)

// Sink is the capability interface all display targets implement.
type Sink interface {
	// SetTitle validates and applies the application title. It is called
	// once at construction time; an error there fails application creation.
	SetTitle(title string) error

	// Render pushes one formatted line to the display. Implementations
	// must leave the previous content visible when they fail partway.
	Render(line string) error

	// Close releases the display handle. Render must not be called after
	// Close.
	Close() error
}

// MockSink implements Sink for testing. It records every rendered line and
// supports scripted failures.
type MockSink struct {
	mu        sync.RWMutex
	title     string
	titleMax  int
	lines     []string
	renderErr error
	closed    bool

	// RenderFunc, if set, overrides the default Render behavior.
	RenderFunc func(line string) error
}

// MockSinkOption configures a MockSink.
type MockSinkOption func(*MockSink)

// WithTitleLimit sets the maximum title length SetTitle accepts.
func WithTitleLimit(n int) MockSinkOption {
	return func(m *MockSink) { m.titleMax = n }
}

// WithRenderError makes every Render call fail with err.
func WithRenderError(err error) MockSinkOption {
	return func(m *MockSink) { m.renderErr = err }
}

// WithRenderFunc sets a custom function for Render.
func WithRenderFunc(fn func(line string) error) MockSinkOption {
	return func(m *MockSink) { m.RenderFunc = fn }
}

// NewMockSink creates a mock sink with the given options.
func NewMockSink(opts ...MockSinkOption) *MockSink {
	m := &MockSink{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetTitle applies the title, enforcing the configured length limit.
func (m *MockSink) SetTitle(title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.titleMax > 0 && len(title) > m.titleMax {
		return fmt.Errorf("title %d chars exceeds display limit %d", len(title), m.titleMax)
	}
	m.title = title
	return nil
}

// Render records the line, or delegates to RenderFunc / the scripted error.
func (m *MockSink) Render(line string) error {
	if m.RenderFunc != nil {
		return m.RenderFunc(line)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderErr != nil {
		return m.renderErr
	}
	m.lines = append(m.lines, line)
	return nil
}

// Close marks the sink released.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockSink) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Title returns the applied title.
func (m *MockSink) Title() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.title
}

// Lines returns a copy of all rendered lines.
func (m *MockSink) Lines() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}

// LastLine returns the most recently rendered line, or "" if none.
func (m *MockSink) LastLine() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.lines) == 0 {
		return ""
	}
	return m.lines[len(m.lines)-1]
}

// SetRenderError updates the scripted Render error (thread-safe).
func (m *MockSink) SetRenderError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.renderErr = err
}

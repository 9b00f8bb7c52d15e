package source

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource implements Source for testing. All fields are configurable and
// it records the wall-clock time of every Sample call so tests can assert
// tick ordering and spacing.
type MockSource struct {
	name string

	mu        sync.RWMutex
	snapshot  Snapshot
	err       error
	closed    bool
	callTimes []time.Time

	callCount atomic.Int64
	inFlight  atomic.Int64
	maxFlight atomic.Int64

	// SampleFunc, if set, overrides the default Sample behavior. This lets
	// tests script per-call results (fail K times then succeed, block until
	// signalled, and so on).
	SampleFunc func(ctx context.Context) (Snapshot, error)
}

// MockOption configures a MockSource.
type MockOption func(*MockSource)

// WithSnapshot sets the snapshot returned by Sample.
func WithSnapshot(s Snapshot) MockOption {
	return func(m *MockSource) { m.snapshot = s }
}

// WithError sets the error returned by Sample.
func WithError(err error) MockOption {
	return func(m *MockSource) { m.err = err }
}

// WithSampleFunc sets a custom function for Sample.
func WithSampleFunc(fn func(ctx context.Context) (Snapshot, error)) MockOption {
	return func(m *MockSource) { m.SampleFunc = fn }
}

// NewMockSource creates a mock source with the given name and options.
func NewMockSource(name string, opts ...MockOption) *MockSource {
	m := &MockSource{name: name}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the source name.
func (m *MockSource) Name() string { return m.name }

// Sample records the call, tracks in-flight concurrency, and returns the
// configured snapshot and error, or delegates to SampleFunc if set.
func (m *MockSource) Sample(ctx context.Context) (Snapshot, error) {
	m.callCount.Add(1)

	// Track concurrent Sample calls; the run loop promises at most one.
	cur := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		max := m.maxFlight.Load()
		if cur <= max || m.maxFlight.CompareAndSwap(max, cur) {
			break
		}
	}

	m.mu.Lock()
	m.callTimes = append(m.callTimes, time.Now())
	m.mu.Unlock()

	if m.SampleFunc != nil {
		return m.SampleFunc(ctx)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot, m.err
}

// Close marks the source released.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockSource) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// SetSnapshot updates the returned snapshot (thread-safe).
func (m *MockSource) SetSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = s
}

// SetError updates the returned error (thread-safe).
func (m *MockSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// CallCount returns how many times Sample has been called.
func (m *MockSource) CallCount() int64 {
	return m.callCount.Load()
}

// MaxInFlight returns the highest number of Sample calls that were ever in
// flight at the same time. The run loop contract keeps this at 1.
func (m *MockSource) MaxInFlight() int64 {
	return m.maxFlight.Load()
}

// CallTimes returns a copy of the recorded Sample call timestamps.
func (m *MockSource) CallTimes() []time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]time.Time, len(m.callTimes))
	copy(out, m.callTimes)
	return out
}

package nanostats

import "errors"

// Sentinel errors returned synchronously by the lifecycle operations.
// Everything that happens inside the run loop is counted and retried (or
// escalated to a termination reason), never returned from Run.
var (
	// ErrInvalidArgument reports a bad title at creation: empty, or
	// rejected by the display sink's length policy.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState reports a misordered lifecycle call, such as a second
	// Run on the same handle or Close while the loop is still running.
	ErrInvalidState = errors.New("invalid lifecycle state")
)

// Reason identifies why the run loop terminated. It is diagnostic only:
// Run returns nil on every termination path, so callers that need to tell
// a clean shutdown from a failure-budget exhaustion read ExitReason.
type Reason int

const (
	// ReasonNone means the loop has not terminated.
	ReasonNone Reason = iota

	// ReasonStopRequested is an explicit Stop call.
	ReasonStopRequested

	// ReasonHostTermination is a context cancellation, typically wired to
	// SIGINT/SIGTERM by the entry point.
	ReasonHostTermination

	// ReasonSourceExhausted means the stat source failed more consecutive
	// ticks than the failure budget allows.
	ReasonSourceExhausted

	// ReasonSinkExhausted means the display sink failed more consecutive
	// ticks than the failure budget allows.
	ReasonSinkExhausted
)

// String returns a stable identifier for the reason, used in logs and the
// daemon status file.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonStopRequested:
		return "stop_requested"
	case ReasonHostTermination:
		return "host_termination"
	case ReasonSourceExhausted:
		return "source_exhausted"
	case ReasonSinkExhausted:
		return "sink_exhausted"
	default:
		return "unknown"
	}
}

// State is the application lifecycle state.
type State int

const (
	// StateCreated is the quiescent state after New; no loop is running.
	StateCreated State = iota

	// StateRunning means Run holds the calling goroutine and ticks fire.
	StateRunning

	// StateStopping means a termination signal has been recorded but an
	// in-flight tick may still be completing its render.
	StateStopping

	// StateStopped is terminal; Run has returned or will return without
	// scheduling further ticks.
	StateStopped
)

// String returns a stable identifier for the state.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

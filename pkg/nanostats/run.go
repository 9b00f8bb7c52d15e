package nanostats

import (
	"context"
	"fmt"
	"time"
)

// Run drives the sample→format→render cycle on the calling goroutine until
// a termination signal, then returns nil. It requires state Created; any
// other state fails with ErrInvalidState without starting a loop, which
// makes Run safe to call at most once per handle.
//
// Ticks are strictly sequential: no sampling starts while a previous
// tick's render is in flight. The first tick fires immediately, then one
// per interval. Transient source/sink failures are counted and retried on
// the next tick; the budget's worth of consecutive failures escalates to
// a fatal termination. Cancelling ctx is equivalent to a host quit
// request. Callers that need responsiveness elsewhere invoke Run from a
// dedicated goroutine.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateCreated {
		state := a.state
		a.mu.Unlock()
		return fmt.Errorf("%w: run requires created state, have %s", ErrInvalidState, state)
	}
	a.state = StateRunning
	a.mu.Unlock()

	a.log.Info("run loop starting",
		"title", a.title,
		"source", a.src.Name(),
		"interval", a.interval,
		"failure_budget", a.budget,
	)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	// First tick fires immediately rather than one interval in.
	fatal := !a.stopPending(ctx) && a.runTick(ctx)
	drainTick(ticker)

loop:
	for !fatal {
		select {
		case <-a.stop:
			break loop
		case <-ctx.Done():
			a.requestStop(ReasonHostTermination)
			break loop
		case <-ticker.C:
			// A stop recorded while we slept wins over the tick: the loop
			// exits before scheduling more work.
			if a.stopPending(ctx) {
				break loop
			}
			fatal = a.runTick(ctx)
			drainTick(ticker)
		}
	}

	a.mu.Lock()
	a.state = StateStopped
	reason := a.reason
	a.mu.Unlock()

	a.log.Info("run loop stopped",
		"reason", reason.String(),
		"ticks", a.ticks.Load(),
	)
	return nil
}

// drainTick discards a tick that accrued while the previous cycle ran.
// Without it a sample that overruns the period is followed by a buffered
// tick firing back to back, and the next sample starts less than one
// period after the previous one.
func drainTick(t *time.Ticker) {
	select {
	case <-t.C:
	default:
	}
}

// stopPending reports whether a termination signal has been recorded,
// folding ctx cancellation into the signal first.
func (a *App) stopPending(ctx context.Context) bool {
	if ctx.Err() != nil {
		a.requestStop(ReasonHostTermination)
	}
	select {
	case <-a.stop:
		return true
	default:
		return false
	}
}

// runTick executes one sample→format→render cycle. It returns true when a
// failure budget was exhausted and the loop must terminate. A tick that
// fails leaves the previously rendered line untouched, so the status bar
// shows stale-but-last-good data instead of blanking.
func (a *App) runTick(ctx context.Context) bool {
	a.ticks.Add(1)

	snap, err := a.src.Sample(ctx)
	if err != nil && snap.Empty() {
		fails := a.srcConsec.Add(1)
		a.srcFails.Add(1)
		a.log.Warn("sample failed", "error", err, "consecutive", fails)
		if fails >= a.budget {
			a.log.Error("stat source failure budget exhausted", "budget", a.budget)
			a.requestStop(ReasonSourceExhausted)
			return true
		}
		return false
	}
	if err != nil {
		// Partial result: some sub-collectors failed but usable data came
		// back. Render what we have.
		a.log.Warn("sample returned partial data", "error", err)
	}
	a.srcConsec.Store(0)

	line := a.fmtr.Format(snap)
	if line == "" {
		return false
	}

	if err := a.snk.Render(line); err != nil {
		fails := a.snkConsec.Add(1)
		a.snkFails.Add(1)
		a.log.Warn("render failed", "error", err, "consecutive", fails)
		if fails >= a.budget {
			a.log.Error("display sink failure budget exhausted", "budget", a.budget)
			a.requestStop(ReasonSinkExhausted)
			return true
		}
		return false
	}
	a.snkConsec.Store(0)

	a.mu.Lock()
	a.lastLine = line
	a.mu.Unlock()
	return false
}

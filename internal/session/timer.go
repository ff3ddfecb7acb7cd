package session

import (
	"sync"
	"time"
)

// advanceTimer is the single pending-advance slot for a session. Scheduling
// replaces any outstanding timer; a cancelled timer never runs its callback,
// even if the underlying time.Timer already fired.
type advanceTimer struct {
	mu  sync.Mutex
	gen uint64
	t   *time.Timer
}

// Schedule arms the timer to run fn after d, cancelling any prior timer.
func (a *advanceTimer) Schedule(d time.Duration, fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.t != nil {
		a.t.Stop()
	}
	a.gen++
	gen := a.gen
	a.t = time.AfterFunc(d, func() {
		a.mu.Lock()
		if gen != a.gen {
			// Cancelled or rescheduled after this timer fired.
			a.mu.Unlock()
			return
		}
		a.t = nil
		a.mu.Unlock()
		fn()
	})
}

// Cancel stops the pending timer, if any, and invalidates callbacks that are
// already in flight.
func (a *advanceTimer) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.gen++
	if a.t != nil {
		a.t.Stop()
		a.t = nil
	}
}

// Pending reports whether an advance is currently scheduled.
func (a *advanceTimer) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.t != nil
}

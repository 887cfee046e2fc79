package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Handle is a single cancellable scheduled event.
//
// Owners keep the handle of every outstanding transition and compare it,
// under their own lock, against the handle passed to the fire callback.
// A handle that was cancelled or replaced must be ignored by its owner.
type Handle struct {
	timer clockwork.Timer
	done  chan struct{}
	once  sync.Once
}

// After starts a one-shot timer on clock and calls fire from its own
// goroutine once d has elapsed, unless the handle is cancelled first.
func After(clock Clock, d time.Duration, fire func(*Handle)) *Handle {
	h := &Handle{
		timer: clock.NewTimer(d),
		done:  make(chan struct{}),
	}

	go func() {
		select {
		case <-h.timer.Chan():
			select {
			case <-h.done:
				return
			default:
			}
			fire(h)
		case <-h.done:
		}
	}()

	return h
}

// Cancel stops the timer and releases its goroutine. Safe to call more than once and on nil.
func (h *Handle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		stopAndDrainTimer(h.timer)
		close(h.done)
	})
}

// Cancelled reports whether Cancel has been called.
func (h *Handle) Cancelled() bool {
	if h == nil {
		return true
	}
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel to prevent goroutine leaks.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

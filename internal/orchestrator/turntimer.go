package orchestrator

import (
	"sync"
	"time"
)

// TurnTimer implements the variable-length end-of-turn timer from spec.md
// §4.3/§4.9: each final ASR fragment (re)sets the timer to a duration
// chosen by the turn-status heuristic (complete/mid-thought/ambiguous);
// expiry dispatches the accumulated buffer as a user turn. Modeled on the
// teacher's session silence detector, generalized from a single fixed
// timeout to a timeout supplied per reset.
type TurnTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	onFired func()
}

// NewTurnTimer creates a turn timer with no fire callback registered yet.
func NewTurnTimer() *TurnTimer {
	return &TurnTimer{}
}

// OnFire registers the callback invoked when the timer expires.
func (t *TurnTimer) OnFire(callback func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onFired = callback
}

// Reset (re)arms the timer for d, canceling any pending fire.
func (t *TurnTimer) Reset(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}

	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		callback := t.onFired
		t.timer = nil
		t.mu.Unlock()

		if callback != nil {
			callback()
		}
	})
}

// Cancel stops a pending timer without firing it, per spec.md §4.9
// ("Turn timers are cancelled on each new final or on utterance-end
// dispatch").
func (t *TurnTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Package supervisor implements the Process Supervisor from spec.md
// §4.9/§7: nothing inside one session's task may crash the process, so
// every session goroutine runs under a recover() guard here, and the
// supervisor tracks in-flight sessions for a bounded graceful shutdown.
// Grounded on the errgroup-based parallel-worker idiom used for guardrail
// validators in the example pack (no repo in the corpus ships a
// dedicated process supervisor, so this generalizes that pattern from
// "run N workers, collect errors" to "run N session goroutines, survive
// any one of them panicking").
package supervisor

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HeartbeatInterval is how often the supervisor logs process health.
const HeartbeatInterval = 5 * time.Minute

// Supervisor tracks running session goroutines and guards each against
// panics propagating to the process, per spec.md §7's error taxonomy
// ("Internal invariant violation" must be contained to one call).
type Supervisor struct {
	mu       sync.Mutex
	group    *errgroup.Group
	groupCtx context.Context
	started  time.Time
	active   int
}

// New creates a supervisor bound to ctx. Cancel ctx to begin a graceful
// drain; Shutdown then waits for the sessions to finish.
func New(ctx context.Context) *Supervisor {
	// Sessions receive ctx itself rather than an errgroup-derived context,
	// so one session's failure does not cancel its siblings.
	return &Supervisor{group: new(errgroup.Group), groupCtx: ctx, started: time.Now()}
}

// Guard runs fn on its own goroutine under a recover() barrier. A panic
// inside fn is logged and contained; it never reaches the process's
// default panic handler and never fails sibling sessions sharing this
// supervisor.
func (s *Supervisor) Guard(sessionID string, fn func(ctx context.Context)) {
	s.mu.Lock()
	s.active++
	s.mu.Unlock()

	s.group.Go(func() (err error) {
		defer func() {
			s.mu.Lock()
			s.active--
			s.mu.Unlock()

			if r := recover(); r != nil {
				log.Printf("supervisor: session %s panicked: %v\n%s", sessionID, r, debug.Stack())
				err = fmt.Errorf("supervisor: session %s panicked: %v", sessionID, r)
			}
		}()

		fn(s.groupCtx)
		return nil
	})
}

// ActiveCount returns the number of currently-guarded sessions.
func (s *Supervisor) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Uptime reports how long the supervisor has been running.
func (s *Supervisor) Uptime() time.Duration {
	return time.Since(s.started)
}

// RunHeartbeat logs process health (pid, uptime, active sessions,
// memory) every HeartbeatInterval until ctx is canceled.
func (s *Supervisor) RunHeartbeat(ctx context.Context, pid int) {
	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.logHeartbeat(pid)
		}
	}
}

func (s *Supervisor) logHeartbeat(pid int) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	log.Printf("supervisor: heartbeat pid=%d uptime=%s active_sessions=%d heap_alloc_mb=%d goroutines=%d",
		pid, s.Uptime().Round(time.Second), s.ActiveCount(), mem.HeapAlloc/1024/1024, runtime.NumGoroutine())
}

// Shutdown waits for all guarded sessions to finish, up to deadline.
// Sessions still running past the deadline are abandoned (their context
// was already canceled via the parent ctx passed to New).
func (s *Supervisor) Shutdown(deadline time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- s.group.Wait() }()

	select {
	case err := <-done:
		return err
	case <-time.After(deadline):
		return fmt.Errorf("supervisor: shutdown deadline of %s exceeded with %d session(s) still active", deadline, s.ActiveCount())
	}
}

package orchestrator

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTurnTimerFiresAfterDuration(t *testing.T) {
	timer := NewTurnTimer()

	done := make(chan struct{}, 1)
	timer.OnFire(func() { done <- struct{}{} })
	timer.Reset(20 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected timer to fire")
	}
}

func TestTurnTimerResetReplacesDeadline(t *testing.T) {
	timer := NewTurnTimer()

	var fired atomic.Int32
	timer.OnFire(func() { fired.Add(1) })

	timer.Reset(1500 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	timer.Reset(300 * time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("expected timer not to have fired yet, got %d fires", fired.Load())
	}

	time.Sleep(400 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("expected exactly 1 fire, got %d", fired.Load())
	}
}

func TestTurnTimerCancelPreventsFire(t *testing.T) {
	timer := NewTurnTimer()

	var fired atomic.Int32
	timer.OnFire(func() { fired.Add(1) })

	timer.Reset(20 * time.Millisecond)
	timer.Cancel()

	time.Sleep(100 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("expected no fire after cancel, got %d", fired.Load())
	}
}

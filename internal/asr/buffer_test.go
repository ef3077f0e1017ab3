package asr

import "testing"

func TestTurnBufferAccumulatesAndFlushes(t *testing.T) {
	b := NewTurnBuffer()
	b.Add("I'm interested, but honestly")
	b.Add("the price is steep")

	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}

	got := b.Flush()
	want := "I'm interested, but honestly the price is steep"
	if got != want {
		t.Fatalf("Flush() = %q, want %q", got, want)
	}
	if b.Len() != 0 {
		t.Fatalf("expected buffer empty after flush, got Len() = %d", b.Len())
	}
}

func TestTurnBufferFlushEmpty(t *testing.T) {
	b := NewTurnBuffer()
	if got := b.Flush(); got != "" {
		t.Fatalf("expected empty flush, got %q", got)
	}
}

func TestTurnBufferSkipsBlankFragments(t *testing.T) {
	b := NewTurnBuffer()
	b.Add("  ")
	b.Add("hello")
	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}
}

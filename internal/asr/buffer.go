package asr

import "strings"

// TurnBuffer accumulates final transcript fragments across multiple ASR
// results until a turn timer or utterance-end dispatches them as one user
// turn, per spec.md §4.3 ("Final ASR events are accumulated into an
// in-flight turn buffer").
type TurnBuffer struct {
	parts []string
}

// NewTurnBuffer creates an empty turn buffer.
func NewTurnBuffer() *TurnBuffer {
	return &TurnBuffer{}
}

// Add appends a final fragment to the buffer.
func (b *TurnBuffer) Add(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	b.parts = append(b.parts, text)
}

// Flush joins and returns all accumulated fragments and resets the
// buffer. Returns "" if the buffer is empty.
func (b *TurnBuffer) Flush() string {
	if len(b.parts) == 0 {
		return ""
	}
	out := strings.Join(b.parts, " ")
	b.parts = nil
	return out
}

// Len returns the number of fragments currently buffered.
func (b *TurnBuffer) Len() int {
	return len(b.parts)
}

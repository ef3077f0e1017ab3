package observer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/brightline/callengine/internal/session"
)

func TestHubBroadcastDeliversToSubscribers(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.BroadcastUserSpeech("hello")

	select {
	case msg := <-ch:
		var evt UserSpeechMessage
		if err := json.Unmarshal(msg, &evt); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if evt.Text != "hello" || evt.Type != "user_speech" || !evt.Final {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("expected event delivery")
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)

	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsubscribe, got %d", h.ClientCount())
	}
}

func TestHubBroadcastDoesNotBlockOnFullChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < 100; i++ {
		h.BroadcastUserSpeechInterim("spam")
	}
	// Must return without blocking even though nothing drained ch.
}

func TestSessionStateMessageFromSnapshot(t *testing.T) {
	snap := session.Snapshot{
		ID:     "s1",
		Status: session.StatusConnected,
		BANT:   session.BANT{Budget: true, Need: true},
	}
	msg := NewSessionStateMessage(snap)
	if msg.Status != session.StatusConnected {
		t.Fatalf("unexpected status: %v", msg.Status)
	}
}

func TestCallEndedMessageCarriesScoring(t *testing.T) {
	snap := session.Snapshot{
		ID:   "s1",
		BANT: session.BANT{Budget: true, Authority: true, Need: true, Timeline: true},
	}
	msg := NewCallEndedMessage(snap, "agent_hangup")
	if msg.Scoring.BANTDepth != 4 {
		t.Fatalf("expected BANT depth 4, got %d", msg.Scoring.BANTDepth)
	}
	if msg.Reason != "agent_hangup" {
		t.Fatalf("unexpected reason: %q", msg.Reason)
	}
}

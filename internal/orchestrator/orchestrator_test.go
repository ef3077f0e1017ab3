package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/brightline/callengine/internal/asr"
	"github.com/brightline/callengine/internal/llm"
	"github.com/brightline/callengine/internal/observer"
	"github.com/brightline/callengine/internal/session"
)

type fakeSpeaker struct {
	calls int
	text  []string
}

func (f *fakeSpeaker) Synthesize(ctx context.Context, text string) ([][]byte, error) {
	f.calls++
	f.text = append(f.text, text)
	return [][]byte{make([]byte, 160)}, nil
}

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, params llm.CompletionParams) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeSpeaker, *fakeLLM, *observer.Hub) {
	t.Helper()
	sess := session.New("sess1", session.ProspectIdentity{FirstName: "Jane"}, session.OperatorIdentity{AgentName: "Michael", Company: "Acme", Selling: "widgets"})
	store := session.NewStore()
	if err := store.Create(sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	hub := observer.NewHub()
	speaker := &fakeSpeaker{}
	model := &fakeLLM{response: "Sounds good, let's do Tuesday at 2 PM."}

	o := New(sess, store, hub, asr.New("en"), speaker, nil, model)
	return o, speaker, model, hub
}

func runLoop(o *Orchestrator) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go o.Run(ctx)
	return cancel
}

func drain(o *Orchestrator) {
	// allow the task loop to process queued work
	time.Sleep(50 * time.Millisecond)
}

func TestDispatchUserTurnOptOutSetsFlagAndSpeaks(t *testing.T) {
	o, speaker, _, hub := newTestOrchestrator(t)
	cancel := runLoop(o)
	defer cancel()

	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	o.Enqueue(func(ctx context.Context) { o.dispatchUserTurn(ctx, "please stop calling me") })
	drain(o)

	if speaker.calls != 1 {
		t.Fatalf("expected 1 synth call for opt-out ack, got %d", speaker.calls)
	}
	var optOut bool
	o.sess.WithLock(func(s *session.Session) { optOut = s.Flags.OptOut })
	if !optOut {
		t.Fatal("expected opt-out flag set")
	}
}

func TestDispatchUserTurnUpdatesSentimentAndGenerates(t *testing.T) {
	o, speaker, model, _ := newTestOrchestrator(t)
	cancel := runLoop(o)
	defer cancel()

	o.Enqueue(func(ctx context.Context) { o.dispatchUserTurn(ctx, "that sounds great, tell me more") })
	drain(o)

	if model.calls != 1 {
		t.Fatalf("expected 1 generation call, got %d", model.calls)
	}
	if speaker.calls != 1 {
		t.Fatalf("expected 1 synth call, got %d", speaker.calls)
	}

	var score float64
	var label session.SentimentLabel
	o.sess.WithLock(func(s *session.Session) { score = s.Sentiment.Score; label = s.Sentiment.Label })
	if score <= 0 {
		t.Fatalf("expected positive sentiment score, got %v", score)
	}
	if label != session.SentimentPositive && label != session.SentimentEnthused {
		t.Fatalf("expected positive/enthusiastic label, got %v", label)
	}
}

func TestGenerateAndSpeakDetectsMeetingBooked(t *testing.T) {
	o, _, model, hub := newTestOrchestrator(t)
	cancel := runLoop(o)
	defer cancel()

	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	model.response = "Perfect, I've got you down for Tuesday at 2 PM — I'll send a calendar invite."
	o.sess.WithLock(func(s *session.Session) { s.AppendHistory(session.RoleUser, "Sounds good.") })

	o.Enqueue(func(ctx context.Context) { o.generateAndSpeak(ctx) })
	drain(o)

	var booked bool
	o.sess.WithLock(func(s *session.Session) { booked = s.Flags.MeetingBooked })
	if !booked {
		t.Fatal("expected meeting-booked flag to be set")
	}
}

func TestHandleBargeInIncrementsCounterAndClearsSpeaking(t *testing.T) {
	o, _, _, _ := newTestOrchestrator(t)
	o.sess.WithLock(func(s *session.Session) { s.Flags.Speaking = true })

	o.handleBargeIn()

	var count int
	var speaking bool
	o.sess.WithLock(func(s *session.Session) { count = s.Counters.BargeInCount; speaking = s.Flags.Speaking })
	if count != 1 {
		t.Fatalf("expected barge-in count 1, got %d", count)
	}
	if speaking {
		t.Fatal("expected speaking flag cleared after barge-in")
	}
}

func TestDispatchBufferedTurnSkipsDuringOpeningCooldown(t *testing.T) {
	o, _, model, _ := newTestOrchestrator(t)
	cancel := runLoop(o)
	defer cancel()

	o.sess.WithLock(func(s *session.Session) { s.Flags.OpeningCooldown = true })
	o.turnBuffer.Add("hello there")

	o.Enqueue(func(ctx context.Context) { o.dispatchBufferedTurn(ctx) })
	drain(o)

	if model.calls != 0 {
		t.Fatalf("expected no generation during opening cooldown, got %d calls", model.calls)
	}

	var historyLen int
	o.sess.WithLock(func(s *session.Session) { historyLen = len(s.History) })
	if historyLen != 1 {
		t.Fatalf("expected user turn still recorded to history, got %d entries", historyLen)
	}
}

func TestHandleStatusCallbackTerminalEndsCall(t *testing.T) {
	o, _, _, hub := newTestOrchestrator(t)
	cancel := runLoop(o)
	defer cancel()

	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	o.HandleStatusCallback(session.StatusCompleted)
	drain(o)

	var endedAt time.Time
	o.sess.WithLock(func(s *session.Session) { endedAt = s.EndedAt })
	if endedAt.IsZero() {
		t.Fatal("expected EndedAt to be set after terminal status")
	}
}

// Package asr wraps a streaming Deepgram connection into the ASR Adapter
// contract from spec.md §4.3: interim/final/utterance-end events over
// mu-law 8kHz mono audio, with a turn-status heuristic on final
// fragments and one-shot reconnect on a mid-call drop. Grounded on the
// teacher's callback-based Deepgram wiring in cmd/ghost-wispr/main.go.
package asr

import (
	"context"
	"log"
	"os"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

// TurnStatus is the end-of-turn heuristic result for a final fragment,
// per spec.md §4.3.
type TurnStatus string

const (
	TurnComplete   TurnStatus = "complete"
	TurnMidThought TurnStatus = "mid-thought"
	TurnAmbiguous  TurnStatus = "ambiguous"
)

// FinalMetadata carries the metadata fields attached to a final fragment.
type FinalMetadata struct {
	DetectedLanguage string
	Confidence       float64
	TurnStatus       TurnStatus
}

// Handler receives ASR events for one call. All methods run on whatever
// goroutine Deepgram's client delivers them on; implementations must not
// block and must serialize through the session's own event queue, per
// spec.md §5.
type Handler interface {
	Interim(text string)
	Final(text string, meta FinalMetadata)
	UtteranceEnd()
}

var shortAffirmatives = []string{"yeah", "sure", "bye", "what do you think"}
var conjunctions = []string{"and", "but", "or", "so", "because"}
var hedges = []string{"i think", "you know", "like"}
var cliffhangers = []string{"i mean", "the thing is", "well"}

// ClassifyTurn applies the turn-status heuristic from spec.md §4.3 to a
// final fragment.
func ClassifyTurn(text string) TurnStatus {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if endsWithSentencePunct(trimmed) {
		return TurnComplete
	}
	for _, a := range shortAffirmatives {
		if strings.HasSuffix(lower, a) {
			return TurnComplete
		}
	}
	if len(strings.Fields(trimmed)) <= 3 {
		return TurnComplete
	}

	lastChar := ""
	if trimmed != "" {
		lastChar = trimmed[len(trimmed)-1:]
	}
	if lastChar == "," {
		return TurnMidThought
	}
	for _, c := range conjunctions {
		if strings.HasSuffix(lower, " "+c) || lower == c {
			return TurnMidThought
		}
	}
	for _, h := range hedges {
		if strings.HasSuffix(lower, h) {
			return TurnMidThought
		}
	}
	for _, c := range cliffhangers {
		if strings.HasSuffix(lower, c) {
			return TurnMidThought
		}
	}

	return TurnAmbiguous
}

func endsWithSentencePunct(s string) bool {
	if s == "" {
		return false
	}
	last := s[len(s)-1]
	return last == '.' || last == '!' || last == '?'
}

// Adapter manages one streaming Deepgram connection for one call.
type Adapter struct {
	language string

	mu           sync.Mutex
	client       *client.WSCallback
	handler      Handler
	ctx          context.Context
	apiKey       string
	stopped      bool
	reconnected  bool
	reconnecting bool
}

// New creates an adapter for the given ASR language (BCP-47-ish, e.g. "en").
func New(language string) *Adapter {
	if language == "" {
		language = "en"
	}
	return &Adapter{language: language}
}

// Connect opens the streaming session against Deepgram configured for
// mu-law 8kHz mono per spec.md §4.3. On failure it returns an error; per
// spec.md §4.3 the caller must continue the call regardless (Michael
// still delivers the opening, deaf but not mute).
func (a *Adapter) Connect(ctx context.Context, apiKey string, handler Handler) error {
	a.mu.Lock()
	a.handler = handler
	a.ctx = ctx
	a.apiKey = apiKey
	a.mu.Unlock()

	if apiKey != "" {
		os.Setenv("DEEPGRAM_API_KEY", apiKey)
	}

	cOptions := &interfaces.ClientOptions{EnableKeepAlive: true}
	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          "nova-2",
		Language:       a.language,
		Encoding:       "mulaw",
		SampleRate:     8000,
		Channels:       1,
		Punctuate:      true,
		SmartFormat:    true,
		InterimResults: true,
		UtteranceEndMs: "1200",
		Endpointing:    "400",
		FillerWords:    true,
	}

	dgClient, err := client.NewWSUsingCallback(ctx, "", cOptions, tOptions, callback{adapter: a})
	if err != nil {
		return err
	}
	if ok := dgClient.Connect(); !ok {
		return errConnectFailed
	}

	a.mu.Lock()
	a.client = dgClient
	a.mu.Unlock()
	return nil
}

// SendFrame forwards one 20ms mu-law frame to the ASR connection.
func (a *Adapter) SendFrame(frame []byte) error {
	a.mu.Lock()
	c := a.client
	a.mu.Unlock()

	if c == nil {
		return errNotConnected
	}
	_, err := c.Write(frame)
	return err
}

// Stop closes the underlying connection. Marks the adapter stopped so a
// Close callback racing with this deliberate shutdown doesn't trigger a
// reconnect.
func (a *Adapter) Stop() {
	a.mu.Lock()
	a.stopped = true
	c := a.client
	a.client = nil
	a.mu.Unlock()

	if c != nil {
		c.Stop()
	}
}

// reconnectOnce implements the one-shot best-effort reconnect from
// spec.md §4.3 ("If it drops mid-call, the orchestrator attempts one
// reconnect; failure leaves the call one-way").
func (a *Adapter) reconnectOnce(ctx context.Context, apiKey string) {
	a.mu.Lock()
	if a.reconnected || a.reconnecting || a.stopped {
		a.mu.Unlock()
		return
	}
	a.reconnecting = true
	handler := a.handler
	a.mu.Unlock()

	log.Printf("asr: connection dropped mid-call, attempting one reconnect")
	err := a.Connect(ctx, apiKey, handler)

	a.mu.Lock()
	a.reconnecting = false
	a.reconnected = true
	a.mu.Unlock()

	if err != nil {
		log.Printf("asr: reconnect failed, call is one-way: %v", err)
	}
}

type callback struct {
	adapter *Adapter
}

func (c callback) Message(mr *api.MessageResponse) error {
	c.adapter.mu.Lock()
	handler := c.adapter.handler
	c.adapter.mu.Unlock()
	if handler == nil || len(mr.Channel.Alternatives) == 0 {
		return nil
	}

	text := strings.TrimSpace(mr.Channel.Alternatives[0].Transcript)
	if text == "" {
		return nil
	}

	if !mr.IsFinal {
		handler.Interim(text)
		return nil
	}

	handler.Final(text, FinalMetadata{
		DetectedLanguage: "en",
		Confidence:       mr.Channel.Alternatives[0].Confidence,
		TurnStatus:       ClassifyTurn(text),
	})
	return nil
}

func (c callback) Open(*api.OpenResponse) error { return nil }

func (c callback) Metadata(*api.MetadataResponse) error { return nil }

func (c callback) SpeechStarted(*api.SpeechStartedResponse) error { return nil }

func (c callback) UtteranceEnd(*api.UtteranceEndResponse) error {
	c.adapter.mu.Lock()
	handler := c.adapter.handler
	c.adapter.mu.Unlock()
	if handler != nil {
		handler.UtteranceEnd()
	}
	return nil
}

func (c callback) Close(*api.CloseResponse) error {
	log.Printf("asr: deepgram connection closed")

	c.adapter.mu.Lock()
	stopped := c.adapter.stopped
	ctx := c.adapter.ctx
	apiKey := c.adapter.apiKey
	c.adapter.mu.Unlock()

	if !stopped {
		go c.adapter.reconnectOnce(ctx, apiKey)
	}
	return nil
}

func (c callback) Error(er *api.ErrorResponse) error {
	log.Printf("asr: deepgram error %s: %s", er.ErrCode, er.Description)
	return nil
}

func (c callback) UnhandledEvent([]byte) error { return nil }

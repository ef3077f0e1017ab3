// Package observer relays live call state to read-only observer clients
// over a per-session websocket, per spec.md §4.10/§6. Adapted from the
// teacher's single global server.Hub into one hub per session, since
// multiple calls run concurrently and observers subscribe to exactly one.
package observer

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/brightline/callengine/internal/session"
)

// Hub is a per-session broadcast pub/sub: one Subscribe() per connected
// observer, Broadcast() fans out to all of them. Send is best-effort — a
// slow observer drops messages rather than blocking the orchestrator.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

// NewHub creates an empty hub for one session.
func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

// Subscribe registers a new observer connection and returns its delivery channel.
func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes an observer's delivery channel.
func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Broadcast sends msg to every currently subscribed observer, dropping it
// for any observer whose channel is full.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// ClientCount returns the number of currently subscribed observers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("observer: event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}

// BroadcastSessionState emits a full state snapshot, sent on observer
// connect per spec.md §4.8.
func (h *Hub) BroadcastSessionState(snap session.Snapshot) {
	h.broadcastEvent(NewSessionStateMessage(snap))
}

func (h *Hub) BroadcastStatus(value string) {
	h.broadcastEvent(NewStatusMessage(value))
}

func (h *Hub) BroadcastUserSpeechInterim(text string) {
	h.broadcastEvent(NewUserSpeechInterimMessage(text))
}

func (h *Hub) BroadcastUserSpeech(text string) {
	h.broadcastEvent(NewUserSpeechMessage(text))
}

func (h *Hub) BroadcastMichaelSpeech(text string) {
	h.broadcastEvent(NewMichaelSpeechMessage(text))
}

func (h *Hub) BroadcastSentimentUpdate(s session.Sentiment) {
	h.broadcastEvent(NewSentimentUpdateMessage(s))
}

func (h *Hub) BroadcastBargeIn(count int) {
	h.broadcastEvent(NewBargeInMessage(count))
}

func (h *Hub) BroadcastGatekeeperDetected() {
	h.broadcastEvent(NewGatekeeperDetectedMessage())
}

func (h *Hub) BroadcastGatekeeperNavigated() {
	h.broadcastEvent(NewGatekeeperNavigatedMessage())
}

func (h *Hub) BroadcastCallbackRequested() {
	h.broadcastEvent(NewCallbackRequestedMessage())
}

func (h *Hub) BroadcastVoicemailDetected(answeredBy string) {
	h.broadcastEvent(NewVoicemailDetectedMessage(answeredBy))
}

func (h *Hub) BroadcastOptOutDetected() {
	h.broadcastEvent(NewOptOutDetectedMessage())
}

func (h *Hub) BroadcastLanguageDetected(language string) {
	h.broadcastEvent(NewLanguageDetectedMessage(language))
}

func (h *Hub) BroadcastMeetingBooked(message string) {
	h.broadcastEvent(NewMeetingBookedMessage(message))
}

// BroadcastCallEnded emits the terminal analytics event, per spec.md §7
// ("On any terminal status the observer receives a call-ended event with
// analytics").
func (h *Hub) BroadcastCallEnded(snap session.Snapshot, reason string) {
	h.broadcastEvent(NewCallEndedMessage(snap, reason))
}

func (h *Hub) BroadcastError(message string) {
	h.broadcastEvent(NewErrorMessage(message))
}

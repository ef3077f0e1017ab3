package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/brightline/callengine/internal/observer"
)

var transcriptUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleTranscriptStream serves a read-only observer connection: an
// immediate session_state snapshot on connect, then every subsequent
// event broadcast on the session's hub, per spec.md §4.8/§6.
func (s *Server) handleTranscriptStream(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validSessionID(id) {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	c, ok := s.registry.get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	sess, err := s.deps.Store.Get(id)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := transcriptUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	ch := c.hub.Subscribe()
	defer c.hub.Unsubscribe(ch)

	snapshotMsg, err := json.Marshal(observer.NewSessionStateMessage(sess.Snap()))
	if err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, snapshotMsg)
	}

	for msg := range ch {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

package httpapi

import (
	"encoding/base64"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/brightline/callengine/internal/telephony"
)

var mediaUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleMediaStream accepts the carrier's bidirectional media-stream
// websocket, attaches it to the session's orchestrator, connects ASR,
// and pumps inbound audio frames into the transcription pipeline until
// the carrier sends a stop event or the connection drops, per
// spec.md §4.2/§6.
func (s *Server) handleMediaStream(w http.ResponseWriter, r *http.Request) {
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

	media, err := telephony.AcceptMediaStream(w, r, mediaUpgrader)
	if err != nil {
		log.Printf("httpapi: media stream upgrade failed for session %s: %v", id, err)
		return
	}
	defer func() { _ = media.Close() }()

	c.orch.AttachMedia(media)

	if err := c.asr.Connect(r.Context(), s.deps.ASRAPIKey, c.orch); err != nil {
		log.Printf("httpapi: asr connect failed for session %s: %v", id, err)
	}
	defer c.asr.Stop()

	for {
		event, err := media.ReadEvent()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("httpapi: media stream read error for session %s: %v", id, err)
			}
			return
		}

		switch event.Event {
		case "start":
			c.orch.HandleMediaStart(event.Start.StreamSid)
		case "media":
			frame, err := base64.StdEncoding.DecodeString(event.Media.Payload)
			if err != nil {
				continue
			}
			if err := c.asr.SendFrame(frame); err != nil {
				log.Printf("httpapi: asr send frame failed for session %s: %v", id, err)
			}
		case "stop":
			return
		}
	}
}

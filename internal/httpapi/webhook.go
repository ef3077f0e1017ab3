package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/brightline/callengine/internal/session"
)

// handleWebhook answers the telephony carrier's answer webhook with an XML
// control directive that opens a bidirectional media stream, per
// spec.md §6. The engine never plays TTS audio here directly — the
// opening line is generated and streamed once the media stream itself
// reports "start" (see handleMediaStream), matching the Init state from
// spec.md §4.7.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validSessionID(id) {
		writeHangupDirective(w, "Sorry, something went wrong with this call.")
		return
	}
	if _, err := s.deps.Store.Get(id); err != nil {
		writeHangupDirective(w, "Sorry, something went wrong with this call.")
		return
	}

	streamURL := fmt.Sprintf("wss://%s/call/media/%s", requestHost(r), id)

	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<Response><Connect><Stream url="%s"/></Connect><Pause length="600"/></Response>`, streamURL)
}

// writeHangupDirective answers the carrier with a TwiML directive that
// speaks a brief apology and hangs up, per spec.md §4.1 — the carrier
// expects XML here, not a bare HTTP error status.
func writeHangupDirective(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>`+
		`<Response><Say>%s</Say><Hangup/></Response>`, message)
}

func requestHost(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		return forwarded
	}
	return r.Host
}

func (s *Server) handleStatusCallback(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	if raw := r.FormValue("CallDuration"); raw != "" {
		if secs, err := strconv.ParseFloat(raw, 64); err == nil {
			c.orch.Enqueue(func(ctx context.Context) {
				if sess, err := s.deps.Store.Get(id); err == nil {
					sess.WithLock(func(sn *session.Session) {
						sn.CarrierDurationSecs = secs
						sn.HasCarrierDuration = true
					})
				}
			})
		}
	}

	status := carrierStatusToSession(r.FormValue("CallStatus"))
	c.orch.HandleStatusCallback(status)

	if status.IsTerminal() {
		// The orchestrator's task loop keeps running until Shutdown is
		// called; tear it down once the session's retention window
		// closes, matching the store's own purge timer.
		time.AfterFunc(session.RetentionPeriod, func() {
			c.orch.Shutdown()
			s.registry.delete(id)
		})
	}

	w.WriteHeader(http.StatusOK)
}

func carrierStatusToSession(callStatus string) session.Status {
	switch callStatus {
	case "queued", "initiated":
		return session.StatusInitiating
	case "ringing":
		return session.StatusRinging
	case "in-progress", "answered":
		return session.StatusConnected
	case "completed":
		return session.StatusCompleted
	case "busy":
		return session.StatusBusy
	case "no-answer":
		return session.StatusNoAnswer
	case "canceled":
		return session.StatusCanceled
	case "failed":
		return session.StatusFailed
	default:
		return session.StatusFailed
	}
}

func (s *Server) handleAMDCallback(w http.ResponseWriter, r *http.Request) {
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

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}

	c.orch.HandleAMD(r.FormValue("AnsweredBy"))
	w.WriteHeader(http.StatusOK)
}

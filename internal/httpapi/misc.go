package httpapi

import (
	"net/http"
	"strconv"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"activeCalls": s.deps.Store.Len(),
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"service": "call engine control plane"})
}

// handleVoicePreview serves a sample clip of the configured TTS voice,
// per spec.md §6's GET /voice/preview?index=N.
func (s *Server) handleVoicePreview(w http.ResponseWriter, r *http.Request) {
	if s.deps.VoiceSamples == nil {
		writeJSONError(w, http.StatusNotFound, "voice preview unavailable")
		return
	}

	index := 0
	if raw := r.URL.Query().Get("index"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid index")
			return
		}
		index = parsed
	}

	audio, contentType, err := s.deps.VoiceSamples.Sample(index)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "sample not found")
		return
	}

	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(audio)
}

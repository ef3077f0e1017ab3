package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/brightline/callengine/internal/observer"
	"github.com/brightline/callengine/internal/orchestrator"
	"github.com/brightline/callengine/internal/session"
	"github.com/brightline/callengine/internal/telephony"
)

// initiateCallRequest mirrors the wire contract in spec.md §6's
// POST /call/initiate.
type initiateCallRequest struct {
	FirstName         string   `json:"firstName"`
	LastName          string   `json:"lastName"`
	Phone             string   `json:"phone"`
	Company           string   `json:"company"`
	Selling           string   `json:"selling"`
	Tone              string   `json:"tone"`
	Industry          string   `json:"industry"`
	TargetRole        string   `json:"targetRole"`
	ValueProps        []string `json:"valueProps"`
	CommonObjections  []string `json:"commonObjections"`
	AdditionalContext string   `json:"additionalContext"`
	Email             string   `json:"email"`
}

type initiateCallResponse struct {
	SessionID string `json:"sessionId"`
	CallSID   string `json:"callSid"`
	Status    string `json:"status"`
}

func (s *Server) handleInitiateCall(w http.ResponseWriter, r *http.Request) {
	var req initiateCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.FirstName == "" || req.Phone == "" || req.Company == "" || req.Selling == "" {
		writeJSONError(w, http.StatusBadRequest, "firstName, phone, company, and selling are required")
		return
	}

	sessionID := uuid.NewString()

	prospect := session.ProspectIdentity{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}
	operator := session.OperatorIdentity{
		AgentName:         s.deps.DefaultOpName,
		Company:           req.Company,
		Selling:           req.Selling,
		Tone:              req.Tone,
		Industry:          req.Industry,
		TargetRole:        req.TargetRole,
		ValueProps:        req.ValueProps,
		CommonObjections:  req.CommonObjections,
		AdditionalContext: req.AdditionalContext,
		Email:             req.Email,
	}

	sess := session.New(sessionID, prospect, operator)
	sess.Status = session.StatusInitiating
	if err := s.deps.Store.Create(sess); err != nil {
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("create session: %v", err))
		return
	}

	hub := observer.NewHub()
	asrAdapter := s.asrAdapterFor()
	orch := orchestrator.New(sess, s.deps.Store, hub, asrAdapter, s.deps.TTS, s.deps.Telephony, s.deps.LLMClient)

	c := &call{orch: orch, hub: hub, asr: asrAdapter}
	s.registry.put(sessionID, c)

	base := s.deps.Config.PublicBaseURL
	params := telephony.PlaceCallParams{
		Target:               req.Phone,
		AnswerURL:            fmt.Sprintf("%s/call/webhook/%s", base, sessionID),
		StatusURL:            fmt.Sprintf("%s/call/status/%s", base, sessionID),
		AMDURL:               fmt.Sprintf("%s/call/amd/%s", base, sessionID),
		TimeoutSeconds:       30,
		AsyncAMD:             true,
		MachineDetectionMode: telephony.DetectEnable,
	}

	callSID, err := s.deps.Telephony.PlaceCall(r.Context(), params)
	if err != nil {
		sess.WithLock(func(sn *session.Session) { sn.Status = session.StatusFailed })
		s.registry.delete(sessionID)
		writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("place call: %v", err))
		return
	}

	sess.WithLock(func(sn *session.Session) {
		sn.CallSID = callSID
		sn.Status = session.StatusRinging
	})

	if s.deps.Supervisor != nil {
		s.deps.Supervisor.Guard(sessionID, c.orch.Run)
	} else {
		go c.orch.Run(r.Context())
	}

	writeJSON(w, http.StatusOK, initiateCallResponse{
		SessionID: sessionID,
		CallSID:   callSID,
		Status:    "initiating",
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validSessionID(id) {
		writeJSONError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := s.deps.Store.Get(id)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, "session not found")
		return
	}

	writeJSON(w, http.StatusOK, sess.Snap())
}

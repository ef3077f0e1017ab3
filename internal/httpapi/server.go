// Package httpapi implements the Control Plane from spec.md §4.1/§6: the
// HTTP/WebSocket surface that places calls, receives telephony
// callbacks, and serves observer connections. Routing follows the
// teacher's net/http.ServeMux pattern-routing idiom (internal/server in
// the teacher repo) rather than a third-party router, since the teacher
// never reaches for one and no router library appears anywhere in the
// example pack either.
package httpapi

import (
	"crypto/subtle"
	"log"
	"net/http"
	"regexp"
	"sync"

	"github.com/brightline/callengine/internal/asr"
	"github.com/brightline/callengine/internal/config"
	"github.com/brightline/callengine/internal/llm"
	"github.com/brightline/callengine/internal/observer"
	"github.com/brightline/callengine/internal/orchestrator"
	"github.com/brightline/callengine/internal/session"
	"github.com/brightline/callengine/internal/supervisor"
	"github.com/brightline/callengine/internal/telephony"
	"github.com/brightline/callengine/internal/tts"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// call bundles everything the Control Plane tracks for one in-flight
// call beyond what *session.Session itself holds: the orchestrator
// driving it, its observer hub, and its ASR adapter.
type call struct {
	orch *orchestrator.Orchestrator
	hub  *observer.Hub
	asr  *asr.Adapter
}

// registry is the process-global map from session id to its running
// call, guarding the same "one session, one writer" rule the Store
// already enforces, scoped to the extra fields Store doesn't carry.
type registry struct {
	mu    sync.RWMutex
	calls map[string]*call
}

func newRegistry() *registry {
	return &registry{calls: make(map[string]*call)}
}

func (r *registry) put(id string, c *call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[id] = c
}

func (r *registry) get(id string) (*call, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.calls[id]
	return c, ok
}

func (r *registry) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.calls, id)
}

// VoiceSampleSource serves a preview audio clip by index, per spec.md §6's
// GET /voice/preview.
type VoiceSampleSource interface {
	Sample(index int) ([]byte, string, error)
}

// Deps bundles everything the Control Plane needs to wire a call end to
// end.
type Deps struct {
	Store         *session.Store
	Config        config.Config
	Telephony     *telephony.Adapter
	ASRLanguage   string
	ASRAPIKey     string
	TTS           *tts.Adapter
	LLMClient     llm.Client
	VoiceSamples  VoiceSampleSource
	DefaultOpName string
	Supervisor    *supervisor.Supervisor
}

// Server holds the Control Plane's routing table and shared state.
type Server struct {
	deps     Deps
	registry *registry
}

// NewServer builds the Control Plane server.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps, registry: newRegistry()}
}

// Handler returns the http.Handler for the Control Plane.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	auth := func(h http.HandlerFunc) http.HandlerFunc {
		return requireBearer(s.deps.Config.ControlSecret, h)
	}

	mux.HandleFunc("POST /call/initiate", auth(s.handleInitiateCall))
	mux.HandleFunc("GET /call/session/{id}", auth(s.handleGetSession))

	mux.HandleFunc("POST /call/webhook/{id}", s.handleWebhook)
	mux.HandleFunc("POST /call/status/{id}", s.handleStatusCallback)
	mux.HandleFunc("POST /call/amd/{id}", s.handleAMDCallback)

	mux.HandleFunc("GET /call/media/{id}", s.handleMediaStream)
	mux.HandleFunc("GET /call/transcript/{id}", s.handleTranscriptStream)

	mux.HandleFunc("GET /voice/preview", s.handleVoicePreview)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /", s.handleRoot)

	return withRequestLogging(mux)
}

func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func requireBearer(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		auth := r.Header.Get("Authorization")
		if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := auth[len(prefix):]
		if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "invalid bearer token")
			return
		}
		next(w, r)
	}
}

// asrAdapterFor builds a fresh ASR adapter for one call — Deepgram's
// websocket client is per-connection, so each call gets its own.
func (s *Server) asrAdapterFor() *asr.Adapter {
	lang := s.deps.ASRLanguage
	if lang == "" {
		lang = "en"
	}
	return asr.New(lang)
}

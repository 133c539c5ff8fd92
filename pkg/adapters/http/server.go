package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aretw0/vigil/internal/logging"
	"github.com/aretw0/vigil/pkg/adapters/twilio"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// Core defines the interface to the call-flow state machine.
type Core interface {
	HandleTrigger(ctx context.Context, event domain.TriggerEvent) domain.TriggerOutcome
	HandleVoicePrompt(ctx context.Context, callID string) domain.VoicePrompt
	HandleResponse(ctx context.Context, callID, digits, speech string, raw map[string]string) domain.VoicePrompt
	HandleCallStatus(ctx context.Context, callID, status string)
}

// Server maps inbound webhooks onto core operations.
type Server struct {
	core   Core
	logger *slog.Logger
}

// Option configures the handler.
type Option func(*Server)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for the trigger endpoint and the
// carrier webhooks. metrics may be nil to disable the /metrics route.
func NewHandler(core Core, metrics http.Handler, opts ...Option) http.Handler {
	server := &Server{
		core:   core,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Get("/healthz", server.health)
	r.Post("/trigger", server.trigger)
	r.Post("/twilio/voice", server.voice)
	r.Post("/twilio/gather", server.gather)
	r.Post("/twilio/status", server.status)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// trigger handles POST /trigger: the detector reports a safety event.
func (s *Server) trigger(w http.ResponseWriter, r *http.Request) {
	var event domain.TriggerEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	outcome := s.core.HandleTrigger(r.Context(), event)

	w.Header().Set("Content-Type", "application/json")
	if outcome.Status == domain.StatusError {
		w.WriteHeader(http.StatusBadGateway)
	}
	if err := json.NewEncoder(w).Encode(outcome); err != nil {
		s.logger.Error("failed to encode trigger outcome", "err", err)
	}
}

// voice handles the carrier's request for call instructions.
func (s *Server) voice(w http.ResponseWriter, r *http.Request) {
	callID := s.formValue(r, "CallSid")
	prompt := s.core.HandleVoicePrompt(r.Context(), callID)
	s.writeTwiML(w, prompt)
}

// gather handles the response-collection callback. Missing fields are passed
// through empty; the core normalizes them to "no input".
func (s *Server) gather(w http.ResponseWriter, r *http.Request) {
	callID := s.formValue(r, "CallSid")
	if callID == "" {
		// The original dial request may carry the session key in the
		// query string instead.
		callID = r.URL.Query().Get("call_sid")
	}

	raw := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		raw[k] = r.PostForm.Get(k)
	}

	prompt := s.core.HandleResponse(r.Context(),
		callID,
		r.PostForm.Get("Digits"),
		r.PostForm.Get("SpeechResult"),
		raw,
	)
	s.writeTwiML(w, prompt)
}

// status handles call-lifecycle webhooks.
func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	callID := s.formValue(r, "CallSid")
	s.core.HandleCallStatus(r.Context(), callID, s.formValue(r, "CallStatus"))
	w.WriteHeader(http.StatusNoContent)
}

// formValue parses the form lazily and tolerates malformed bodies: a webhook
// is never rejected for bad fields.
func (s *Server) formValue(r *http.Request, key string) string {
	if err := r.ParseForm(); err != nil {
		s.logger.Warn("malformed webhook form", "path", r.URL.Path, "err", err)
		return ""
	}
	return r.PostForm.Get(key)
}

// holdTwiML is the static last-resort document when rendering fails; the
// carrier must never be left without a response.
const holdTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response><Say>Please hold while we process your response.</Say></Response>`

func (s *Server) writeTwiML(w http.ResponseWriter, prompt domain.VoicePrompt) {
	doc, err := twilio.RenderPrompt(prompt)
	if err != nil {
		s.logger.Error("failed to render voice response", "err", err)
		doc = holdTwiML
	}

	w.Header().Set("Content-Type", "application/xml")
	if _, err := w.Write([]byte(doc)); err != nil {
		s.logger.Error("failed to write voice response", "err", err)
	}
}

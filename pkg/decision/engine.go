package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/vigil/internal/logging"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Engine wraps the decision oracle with a hard deadline, a strict decode of
// its free-form reply, and a deterministic fallback. Decide never fails: a
// silent policy layer must not suppress a wellness check.
type Engine struct {
	oracle  ports.Oracle
	timeout time.Duration
	logger  *slog.Logger

	// onFallback is invoked whenever the fallback decision is applied.
	onFallback func(context.Context, domain.TriggerEvent)
}

// Option configures the Engine.
type Option func(*Engine)

// WithTimeout bounds the oracle call. Default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithFallbackHook registers a callback fired on every fallback decision.
func WithFallbackHook(fn func(context.Context, domain.TriggerEvent)) Option {
	return func(e *Engine) {
		e.onFallback = fn
	}
}

// NewEngine creates a decision engine over the given oracle.
func NewEngine(oracle ports.Oracle, opts ...Option) *Engine {
	e := &Engine{
		oracle:  oracle,
		timeout: 10 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide maps a trigger event to a policy decision. Side-effect-free with
// respect to session state.
func (e *Engine) Decide(ctx context.Context, event domain.TriggerEvent) domain.PolicyDecision {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	reply, err := e.oracle.Complete(ctx, buildPrompt(event))
	if err != nil {
		return e.fallback(ctx, event, "oracle unavailable", err)
	}

	decision, err := parseDecision(reply)
	if err != nil {
		return e.fallback(ctx, event, "oracle reply unparseable", err)
	}

	return decision
}

func (e *Engine) fallback(ctx context.Context, event domain.TriggerEvent, reason string, err error) domain.PolicyDecision {
	e.logger.Warn("applying fallback decision",
		"reason", reason,
		"subject_id", event.SubjectID,
		"event_type", event.EventType,
		"err", err,
	)
	if e.onFallback != nil {
		e.onFallback(ctx, event)
	}
	return domain.FallbackDecision()
}

// buildPrompt serializes the event into the oracle instruction.
func buildPrompt(event domain.TriggerEvent) string {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		payload = []byte("{}")
	}

	return fmt.Sprintf(`You are a safety agent. A safety-relevant event occurred.
Subject: %s (%s)
Event type: %s
Payload: %s

Decide:
- action: CALL / NOTIFY / IGNORE
- message: short message to speak when calling.
- escalation: true/false (escalate on no or negative response).
- max_attempts: number of call attempts before escalating.

Return JSON only: {"action": ..., "message": ..., "escalation": ..., "max_attempts": ...}`,
		event.SubjectName, event.Phone, event.EventType, payload)
}

// decisionPayload is the untrusted wire shape of the oracle reply.
type decisionPayload struct {
	Action      string `mapstructure:"action"`
	Message     string `mapstructure:"message"`
	Escalation  bool   `mapstructure:"escalation"`
	MaxAttempts int    `mapstructure:"max_attempts"`
}

// parseDecision extracts and strictly decodes the JSON object from the
// oracle's free-form reply. Models wrap JSON in prose or code fences, and
// emit numbers as strings; extractJSON and the weakly-typed decode absorb
// both.
func parseDecision(reply string) (domain.PolicyDecision, error) {
	raw := extractJSON(reply)
	if raw == "" {
		return domain.PolicyDecision{}, fmt.Errorf("no JSON object in reply")
	}

	var loose map[string]any
	if err := json.Unmarshal([]byte(raw), &loose); err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("invalid JSON in reply: %w", err)
	}

	var payload decisionPayload
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &payload,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return domain.PolicyDecision{}, err
	}
	if err := dec.Decode(loose); err != nil {
		return domain.PolicyDecision{}, fmt.Errorf("reply does not match decision shape: %w", err)
	}

	action := domain.Action(strings.ToLower(strings.TrimSpace(payload.Action)))
	switch action {
	case domain.ActionCall, domain.ActionNotify, domain.ActionIgnore:
	default:
		return domain.PolicyDecision{}, fmt.Errorf("unknown action %q", payload.Action)
	}

	if action == domain.ActionCall && strings.TrimSpace(payload.Message) == "" {
		return domain.PolicyDecision{}, fmt.Errorf("call decision without a message")
	}

	return domain.PolicyDecision{
		Action:      action,
		Message:     payload.Message,
		Escalate:    payload.Escalation,
		MaxAttempts: payload.MaxAttempts,
	}, nil
}

// extractJSON returns the first top-level JSON object in the text.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

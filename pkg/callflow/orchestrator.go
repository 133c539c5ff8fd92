package callflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/vigil/internal/logging"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
	"github.com/aretw0/vigil/pkg/session"
	"github.com/google/uuid"
)

// Spoken copy for the fixed points of the call script.
const (
	safeFarewell      = "Glad you are safe. We have noted this. Goodbye."
	escalatedFarewell = "We have alerted your emergency contact and authorities. Help is on the way."
	retryPreamble     = "We did not receive your response. "
)

// Decider maps a trigger event to a policy decision. It never fails; the
// decision engine folds oracle failures into its fallback.
type Decider interface {
	Decide(ctx context.Context, event domain.TriggerEvent) domain.PolicyDecision
}

// Config carries the orchestrator's deployment-level knobs.
type Config struct {
	// BaseURL is the public root the carrier uses to reach our webhooks.
	BaseURL string

	// GatherTimeoutSeconds bounds each response-collection window.
	GatherTimeoutSeconds int

	// NumDigits is the keypress length collected per window.
	NumDigits int

	// NotifyFailureEscalates controls whether a failed NOTIFY delivery is
	// escalated like an unanswered call.
	NotifyFailureEscalates bool
}

func (c *Config) applyDefaults() {
	if c.GatherTimeoutSeconds <= 0 {
		c.GatherTimeoutSeconds = 6
	}
	if c.NumDigits <= 0 {
		c.NumDigits = 1
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

// Orchestrator is the call-session state machine core.
type Orchestrator struct {
	sessions  *session.Manager
	decider   Decider
	telephony ports.Telephony
	escalator ports.Escalator
	cfg       Config
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithHooks wires lifecycle observers (logging, metrics).
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// NewOrchestrator assembles the state machine core.
func NewOrchestrator(sessions *session.Manager, decider Decider, telephony ports.Telephony, escalator ports.Escalator, cfg Config, opts ...Option) *Orchestrator {
	cfg.applyDefaults()
	o := &Orchestrator{
		sessions:  sessions,
		decider:   decider,
		telephony: telephony,
		escalator: escalator,
		cfg:       cfg,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) voiceURL() string {
	return o.cfg.BaseURL + "/twilio/voice"
}

func (o *Orchestrator) gatherURL() string {
	return o.cfg.BaseURL + "/twilio/gather"
}

// HandleTrigger runs the decision step for a detector event and, on a call
// decision, creates the session and places the outbound call.
func (o *Orchestrator) HandleTrigger(ctx context.Context, event domain.TriggerEvent) domain.TriggerOutcome {
	decision := o.decider.Decide(ctx, event)

	var outcome domain.TriggerOutcome
	switch decision.Action {
	case domain.ActionIgnore:
		outcome = domain.TriggerOutcome{Status: domain.StatusIgnored, Detail: "policy decided to ignore"}
	case domain.ActionNotify:
		outcome = o.notify(ctx, event, decision)
	case domain.ActionCall:
		outcome = o.call(ctx, event, decision)
	default:
		// The decision engine normalizes actions; this is unreachable
		// unless a Decider implementation misbehaves.
		outcome = domain.TriggerOutcome{Status: domain.StatusError, Detail: fmt.Sprintf("unknown action %q", decision.Action)}
	}

	o.logger.Info("trigger handled",
		"subject_id", event.SubjectID,
		"event_type", event.EventType,
		"status", outcome.Status,
		"detail", outcome.Detail,
	)
	if o.hooks.OnTrigger != nil {
		o.hooks.OnTrigger(ctx, outcome.Status)
	}
	return outcome
}

func (o *Orchestrator) notify(ctx context.Context, event domain.TriggerEvent, decision domain.PolicyDecision) domain.TriggerOutcome {
	message := decision.Message
	if strings.TrimSpace(message) == "" {
		message = domain.FallbackMessage
	}

	if err := o.telephony.SendNotification(ctx, event.Phone, message); err != nil {
		o.logger.Warn("notification delivery failed",
			"subject_id", event.SubjectID,
			"err", err,
		)
		if o.cfg.NotifyFailureEscalates {
			s := domain.NewCallSession(uuid.NewString(), event, decision)
			if createErr := o.sessions.Create(ctx, s); createErr == nil {
				o.escalateSession(ctx, s.ID)
			}
			return domain.TriggerOutcome{Status: domain.StatusError, Detail: "notification delivery failed; escalated"}
		}
		return domain.TriggerOutcome{Status: domain.StatusError, Detail: "notification delivery failed"}
	}
	return domain.TriggerOutcome{Status: domain.StatusNotified}
}

func (o *Orchestrator) call(ctx context.Context, event domain.TriggerEvent, decision domain.PolicyDecision) domain.TriggerOutcome {
	s := domain.NewCallSession(uuid.NewString(), event, decision)
	if err := o.sessions.Create(ctx, s); err != nil {
		return domain.TriggerOutcome{Status: domain.StatusError, Detail: fmt.Sprintf("failed to create session: %v", err)}
	}

	// A zero or negative attempt budget means the policy wants escalation
	// without even trying the subject.
	if decision.MaxAttempts <= 0 {
		o.escalateSession(ctx, s.ID)
		return domain.TriggerOutcome{Status: domain.StatusError, Detail: "attempt budget exhausted before dialing; escalated"}
	}

	callID, dialErr := o.dial(ctx, s.ID)
	if dialErr != nil {
		return domain.TriggerOutcome{Status: domain.StatusError, Detail: fmt.Sprintf("dial failed: %v", dialErr)}
	}
	return domain.TriggerOutcome{Status: domain.StatusCalling, CallID: callID}
}

// dial places the outbound call for the session currently keyed by sessionID,
// consuming one attempt per retryable failure. On success the session is
// rekeyed to the carrier call ID. On an unreachable destination or an
// exhausted budget the session is escalated and the dial error returned.
func (o *Orchestrator) dial(ctx context.Context, sessionID string) (string, error) {
	for {
		s, err := o.update(ctx, sessionID, func(s *domain.CallSession, tr *transitions) error {
			tr.to(s, domain.StateDialing)
			return nil
		})
		if err != nil {
			return "", err
		}

		callID, dialErr := o.telephony.PlaceCall(ctx, s.Destination, o.voiceURL())
		if dialErr == nil {
			if err := o.sessions.Rekey(ctx, sessionID, callID); err != nil {
				return "", fmt.Errorf("call %s placed but session rekey failed: %w", callID, err)
			}
			return callID, nil
		}

		o.logger.Warn("dial attempt failed",
			"session_id", sessionID,
			"destination", s.Destination,
			"err", dialErr,
		)

		var exhausted bool
		o.update(ctx, sessionID, func(s *domain.CallSession, tr *transitions) error {
			exhausted = s.ConsumeAttempt()
			tr.to(s, domain.StateRetrying)
			return nil
		})

		if exhausted || errors.Is(dialErr, domain.ErrUnreachableDestination) {
			o.escalateSession(ctx, sessionID)
			return "", dialErr
		}
	}
}

// HandleVoicePrompt answers the carrier's request for call instructions.
// Unknown or terminal sessions get a generic goodbye; the carrier must always
// receive a well-formed response.
func (o *Orchestrator) HandleVoicePrompt(ctx context.Context, callID string) domain.VoicePrompt {
	var message string
	_, err := o.update(ctx, callID, func(s *domain.CallSession, tr *transitions) error {
		if s.State.Terminal() || s.State == domain.StateEscalating {
			return errAlreadyTerminal
		}
		message = s.PromptMessage
		tr.to(s, domain.StatePrompting)
		tr.to(s, domain.StateAwaitingResponse)
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) && !errors.Is(err, errAlreadyTerminal) {
			o.logger.Error("voice prompt lookup failed", "call_id", callID, "err", err)
			return domain.HoldPrompt()
		}
		o.logger.Debug("voice prompt for unknown or finished call", "call_id", callID)
		return domain.GoodbyePrompt()
	}

	return o.gatherPrompt(message)
}

// HandleResponse interprets one response-collection callback and advances the
// session. Missing or malformed fields classify as no input.
func (o *Orchestrator) HandleResponse(ctx context.Context, callID, digits, speech string, raw map[string]string) domain.VoicePrompt {
	var (
		outcome domain.ResponseOutcome
		retry   bool
		handoff bool
		message string
	)

	updated, err := o.update(ctx, callID, func(s *domain.CallSession, tr *transitions) error {
		if s.State.Terminal() || s.State == domain.StateEscalating {
			return errAlreadyTerminal
		}

		s.LastResponse = &domain.CallerResponse{Digits: digits, Speech: speech, Raw: raw}
		message = s.PromptMessage
		outcome = domain.ClassifyResponse(digits, speech)

		switch outcome {
		case domain.OutcomeSafe:
			tr.to(s, domain.StateResolvedSafe)
		case domain.OutcomeEscalate:
			// Negative responses escalate immediately; the attempt
			// budget is not consumed on this path.
			tr.to(s, domain.StateEscalating)
			handoff = true
		case domain.OutcomeNoInput:
			if s.ConsumeAttempt() {
				tr.to(s, domain.StateEscalating)
				handoff = true
			} else {
				tr.to(s, domain.StateRetrying)
				tr.to(s, domain.StateAwaitingResponse)
				retry = true
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) && !errors.Is(err, errAlreadyTerminal) {
			o.logger.Error("response handling failed", "call_id", callID, "err", err)
			return domain.HoldPrompt()
		}
		o.logger.Debug("response for unknown or finished call", "call_id", callID)
		return domain.GoodbyePrompt()
	}

	o.logger.Info("response collected",
		"call_id", callID,
		"outcome", outcome,
		"attempts", updated.AttemptsMade,
	)

	switch {
	case handoff:
		o.handoff(ctx, updated)
		return domain.VoicePrompt{Message: escalatedFarewell, Hangup: true}
	case retry:
		return o.gatherPrompt(retryPreamble + message)
	default:
		return domain.VoicePrompt{Message: safeFarewell, Hangup: true}
	}
}

// HandleCallStatus reacts to carrier call-lifecycle webhooks. A call that
// ended without a resolution consumes an attempt and is re-dialed, or
// escalated once the budget is gone. Anything else is ignored.
func (o *Orchestrator) HandleCallStatus(ctx context.Context, callID, status string) {
	switch strings.ToLower(status) {
	case "busy", "failed", "no-answer", "canceled":
	default:
		return
	}

	var exhausted bool
	_, err := o.update(ctx, callID, func(s *domain.CallSession, tr *transitions) error {
		if s.State.Terminal() || s.State == domain.StateEscalating {
			return errAlreadyTerminal
		}
		exhausted = s.ConsumeAttempt()
		tr.to(s, domain.StateRetrying)
		return nil
	})
	if err != nil {
		return
	}

	o.logger.Info("call ended without resolution",
		"call_id", callID,
		"status", status,
		"exhausted", exhausted,
	)

	if exhausted {
		o.escalateSession(ctx, callID)
		return
	}
	if _, err := o.dial(ctx, callID); err != nil {
		o.logger.Warn("re-dial failed", "call_id", callID, "err", err)
	}
}

// escalateSession performs the edge into the escalating state and, when this
// caller wins that edge, the handoff to the escalation handler. Losing racers
// see an already-advanced state and do nothing, which keeps the handoff
// single-shot per session.
func (o *Orchestrator) escalateSession(ctx context.Context, sessionID string) {
	won := false
	updated, err := o.update(ctx, sessionID, func(s *domain.CallSession, tr *transitions) error {
		if s.State.Terminal() || s.State == domain.StateEscalating {
			return errAlreadyTerminal
		}
		tr.to(s, domain.StateEscalating)
		won = true
		return nil
	})
	if err != nil || !won {
		return
	}
	o.handoff(ctx, updated)
}

// handoff delivers the escalation and settles the session. Delivery failure
// after the handler's own retries is fatal for this session: there is no
// further fallback, so it is logged for operator attention and the session
// still terminates as escalated.
func (o *Orchestrator) handoff(ctx context.Context, s *domain.CallSession) {
	if err := o.escalator.Escalate(ctx, s); err != nil {
		o.logger.Error("escalation delivery failed; operator attention required",
			"session_id", s.ID,
			"subject_id", s.SubjectID,
			"err", err,
		)
	}
	o.update(ctx, s.ID, func(s *domain.CallSession, tr *transitions) error {
		tr.to(s, domain.StateResolvedEscalated)
		return nil
	})
}

func (o *Orchestrator) gatherPrompt(message string) domain.VoicePrompt {
	return domain.VoicePrompt{
		Message:        message,
		Gather:         true,
		NumDigits:      o.cfg.NumDigits,
		TimeoutSeconds: o.cfg.GatherTimeoutSeconds,
		ActionURL:      o.gatherURL(),
	}
}

// errAlreadyTerminal marks a callback that lost the race: the session has
// already advanced past the state this callback would act on.
var errAlreadyTerminal = errors.New("session already advanced")

// transitions records state changes made inside one atomic update so hooks
// fire only after the store write succeeded.
type transitions struct {
	sessionID string
	events    []domain.TransitionEvent
}

func (t *transitions) to(s *domain.CallSession, next domain.CallState) {
	t.events = append(t.events, domain.TransitionEvent{
		Timestamp: time.Now().UTC(),
		SessionID: t.sessionID,
		From:      s.State,
		To:        next,
		Attempts:  s.AttemptsMade,
	})
	s.Transition(next)
}

// update wraps Manager.Update, collecting transitions and emitting them to
// the lifecycle hooks once the new state is durable.
func (o *Orchestrator) update(ctx context.Context, sessionID string, fn func(*domain.CallSession, *transitions) error) (*domain.CallSession, error) {
	tr := &transitions{sessionID: sessionID}
	s, err := o.sessions.Update(ctx, sessionID, func(s *domain.CallSession) error {
		return fn(s, tr)
	})
	if err != nil {
		return nil, err
	}

	for i := range tr.events {
		e := &tr.events[i]
		o.logger.Debug("session transition",
			"session_id", e.SessionID,
			"from", e.From,
			"to", e.To,
			"attempts", e.Attempts,
		)
		if o.hooks.OnTransition != nil {
			o.hooks.OnTransition(ctx, e)
		}
	}
	return s, nil
}

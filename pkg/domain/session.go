package domain

import "time"

// CallState is the position of a session in the call lifecycle.
type CallState string

const (
	StateCreated           CallState = "created"
	StateDialing           CallState = "dialing"
	StatePrompting         CallState = "prompting"
	StateAwaitingResponse  CallState = "awaiting_response"
	StateRetrying          CallState = "retrying"
	StateEscalating        CallState = "escalating"
	StateResolvedSafe      CallState = "resolved_safe"
	StateResolvedEscalated CallState = "resolved_escalated"
)

// Terminal reports whether the state admits no further transitions.
func (s CallState) Terminal() bool {
	return s == StateResolvedSafe || s == StateResolvedEscalated
}

// CallerResponse captures the raw input collected during one prompt window.
type CallerResponse struct {
	Digits string            `json:"digits,omitempty"`
	Speech string            `json:"speech,omitempty"`
	Raw    map[string]string `json:"raw,omitempty"`
}

// CallSession tracks one outbound wellness-check call from creation to a
// terminal disposition. It is keyed first by a process-local ID and rekeyed
// to the carrier-assigned call ID once the outbound call is accepted.
type CallSession struct {
	// ID is the current store key: a temporary UUID before dial, the
	// carrier call ID after.
	ID string `json:"id"`

	SubjectID     string         `json:"subject_id"`
	Destination   string         `json:"destination"`
	PromptMessage string         `json:"prompt_message"`
	Decision      PolicyDecision `json:"decision"`

	// AttemptsMade counts consumed attempts: failed dials and prompt
	// windows that closed without a usable response.
	AttemptsMade int `json:"attempts_made"`

	LastResponse *CallerResponse `json:"last_response,omitempty"`
	State        CallState       `json:"state"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCallSession creates a session in StateCreated for a call decision.
func NewCallSession(id string, event TriggerEvent, decision PolicyDecision) *CallSession {
	now := time.Now().UTC()
	return &CallSession{
		ID:            id,
		SubjectID:     event.SubjectID,
		Destination:   event.Phone,
		PromptMessage: decision.Message,
		Decision:      decision,
		State:         StateCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ConsumeAttempt burns one attempt and reports whether the budget is gone.
func (s *CallSession) ConsumeAttempt() (exhausted bool) {
	s.AttemptsMade++
	return s.AttemptsMade >= s.Decision.MaxAttempts
}

// Transition moves the session to a new state and bumps UpdatedAt.
func (s *CallSession) Transition(next CallState) {
	s.State = next
	s.UpdatedAt = time.Now().UTC()
}

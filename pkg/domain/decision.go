package domain

// Action is the policy verdict for a trigger event.
type Action string

const (
	ActionCall   Action = "call"
	ActionNotify Action = "notify"
	ActionIgnore Action = "ignore"
)

// PolicyDecision is the immutable output of the decision engine.
// Message and MaxAttempts are only meaningful when Action == ActionCall;
// downstream logic ignores them otherwise.
type PolicyDecision struct {
	Action      Action `json:"action"`
	Message     string `json:"message"`
	Escalate    bool   `json:"escalation"`
	MaxAttempts int    `json:"max_attempts"`
}

// FallbackMessage is spoken when the oracle gave us nothing usable.
const FallbackMessage = "Hello, this is the safety service. We detected unusual activity. Are you safe? Press 1 for yes, press 2 for help."

// FallbackDecision is the decision applied when the oracle is unreachable,
// times out, or returns output that does not parse. Silence from the policy
// layer must never suppress a wellness check, so the failure mode is a call.
func FallbackDecision() PolicyDecision {
	return PolicyDecision{
		Action:      ActionCall,
		Message:     FallbackMessage,
		Escalate:    true,
		MaxAttempts: 2,
	}
}

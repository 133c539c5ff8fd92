package domain

// VoicePrompt is a carrier-agnostic description of the voice response to a
// webhook: what to say and, when Gather is set, how to collect input.
// Adapters render it into the carrier's wire format.
type VoicePrompt struct {
	Message string

	// Gather enables a response-collection window (keypress and speech).
	// The carrier posts to ActionURL when the window closes, with empty
	// fields if nothing was collected.
	Gather         bool
	NumDigits      int
	TimeoutSeconds int
	ActionURL      string

	// Hangup ends the call after Message. Mutually exclusive with Gather.
	Hangup bool
}

// GoodbyePrompt is the generic acknowledgment for callbacks that reference an
// unknown or already-terminal session. The carrier always gets a well-formed
// response.
func GoodbyePrompt() VoicePrompt {
	return VoicePrompt{
		Message: "Thank you. Goodbye.",
		Hangup:  true,
	}
}

// HoldPrompt is the last-resort response when an internal failure prevents a
// real answer; the caller must never hear a dead line.
func HoldPrompt() VoicePrompt {
	return VoicePrompt{
		Message: "Please hold while we process your response.",
	}
}

package domain

import "strings"

// ResponseOutcome is the classification of one collected response.
type ResponseOutcome string

const (
	// OutcomeSafe confirms the subject is fine.
	OutcomeSafe ResponseOutcome = "safe"
	// OutcomeEscalate is a negative response: escalate now, regardless of
	// remaining attempt budget.
	OutcomeEscalate ResponseOutcome = "escalate"
	// OutcomeNoInput covers an empty window and anything unrecognized.
	OutcomeNoInput ResponseOutcome = "no_input"
)

// ClassifyResponse maps a collected keypress/utterance pair to an outcome.
// Keypress takes precedence over speech when both are present; matching is
// case-insensitive.
func ClassifyResponse(digits, speech string) ResponseOutcome {
	switch strings.TrimSpace(digits) {
	case "1":
		return OutcomeSafe
	case "2":
		return OutcomeEscalate
	}

	spoken := strings.ToLower(speech)
	if strings.Contains(spoken, "safe") {
		return OutcomeSafe
	}
	if strings.Contains(spoken, "help") {
		return OutcomeEscalate
	}

	return OutcomeNoInput
}

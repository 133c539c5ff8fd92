package domain

// TriggerEvent is the inbound report of a safety-relevant occurrence for a
// subject, produced by an external detector. It is consumed exactly once by
// the decision engine and never mutated.
type TriggerEvent struct {
	SubjectID   string         `json:"subject_id"`
	SubjectName string         `json:"subject_name"`
	Phone       string         `json:"phone"`
	EventType   string         `json:"event_type"`
	Payload     map[string]any `json:"event_payload,omitempty"`
}

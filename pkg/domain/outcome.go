package domain

// TriggerStatus is the synchronous result reported to the trigger caller.
type TriggerStatus string

const (
	StatusCalling  TriggerStatus = "calling"
	StatusNotified TriggerStatus = "notified"
	StatusIgnored  TriggerStatus = "ignored"
	StatusError    TriggerStatus = "error"
)

// TriggerOutcome is returned from handling one trigger event.
type TriggerOutcome struct {
	Status TriggerStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`
	// CallID is the carrier call identifier when Status == StatusCalling.
	CallID string `json:"call_id,omitempty"`
}

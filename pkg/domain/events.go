package domain

import (
	"context"
	"time"
)

// TransitionEvent describes one state-machine transition for observers.
type TransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	From      CallState `json:"from"`
	To        CallState `json:"to"`
	Attempts  int       `json:"attempts"`
}

// EscalationEvent describes an escalation handoff.
type EscalationEvent struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	SubjectID string    `json:"subject_id"`
	Delivered bool      `json:"delivered"`
}

// LifecycleHooks defines callbacks for orchestrator observability. All fields
// are optional; hooks must not block.
type LifecycleHooks struct {
	OnTrigger        func(context.Context, TriggerStatus)
	OnTransition     func(context.Context, *TransitionEvent)
	OnEscalation     func(context.Context, *EscalationEvent)
	OnOracleFallback func(context.Context, TriggerEvent)
}

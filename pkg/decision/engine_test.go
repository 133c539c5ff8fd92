package decision_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/vigil/pkg/decision"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/stretchr/testify/assert"
)

// scriptedOracle returns a fixed reply or error.
type scriptedOracle struct {
	reply string
	err   error
	delay time.Duration
}

func (o *scriptedOracle) Complete(ctx context.Context, prompt string) (string, error) {
	if o.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(o.delay):
		}
	}
	return o.reply, o.err
}

var event = domain.TriggerEvent{
	SubjectID:   "subj-1",
	SubjectName: "Alex",
	Phone:       "+15550001111",
	EventType:   "panic_button",
}

func TestDecide_ParsesCleanReply(t *testing.T) {
	oracle := &scriptedOracle{reply: `{"action":"CALL","message":"Are you safe?","escalation":true,"max_attempts":3}`}
	eng := decision.NewEngine(oracle)

	d := eng.Decide(context.Background(), event)

	assert.Equal(t, domain.ActionCall, d.Action)
	assert.Equal(t, "Are you safe?", d.Message)
	assert.True(t, d.Escalate)
	assert.Equal(t, 3, d.MaxAttempts)
}

func TestDecide_ParsesFencedWeaklyTypedReply(t *testing.T) {
	oracle := &scriptedOracle{reply: "Here is my decision:\n```json\n" +
		`{"action": "notify", "message": "Stay alert", "escalation": "false", "max_attempts": "2"}` +
		"\n```\n"}
	eng := decision.NewEngine(oracle)

	d := eng.Decide(context.Background(), event)

	assert.Equal(t, domain.ActionNotify, d.Action)
	assert.Equal(t, "Stay alert", d.Message)
	assert.False(t, d.Escalate)
	assert.Equal(t, 2, d.MaxAttempts)
}

func TestDecide_FallbackOnOracleError(t *testing.T) {
	oracle := &scriptedOracle{err: errors.New("connection refused")}

	var fallbacks int
	eng := decision.NewEngine(oracle, decision.WithFallbackHook(func(context.Context, domain.TriggerEvent) {
		fallbacks++
	}))

	d := eng.Decide(context.Background(), event)

	assert.Equal(t, domain.FallbackDecision(), d)
	assert.Equal(t, 1, fallbacks)
}

func TestDecide_FallbackOnTimeout(t *testing.T) {
	oracle := &scriptedOracle{reply: `{"action":"ignore"}`, delay: time.Second}
	eng := decision.NewEngine(oracle, decision.WithTimeout(20*time.Millisecond))

	start := time.Now()
	d := eng.Decide(context.Background(), event)

	assert.Equal(t, domain.FallbackDecision(), d)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "timeout must not hang the caller")
}

func TestDecide_FallbackOnGarbage(t *testing.T) {
	for name, reply := range map[string]string{
		"no json":        "I think you should call them.",
		"invalid json":   `{"action": "call",`,
		"unknown action": `{"action":"panic","message":"x","escalation":true,"max_attempts":1}`,
		"call no message": `{"action":"call","message":"","escalation":true,"max_attempts":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			eng := decision.NewEngine(&scriptedOracle{reply: reply})
			assert.Equal(t, domain.FallbackDecision(), eng.Decide(context.Background(), event))
		})
	}
}

func TestDecide_IgnoreWithoutMessageIsValid(t *testing.T) {
	// Message and attempts are meaningful only for calls; their absence on
	// other actions must not trip the parser.
	eng := decision.NewEngine(&scriptedOracle{reply: `{"action":"ignore","escalation":false}`})

	d := eng.Decide(context.Background(), event)

	assert.Equal(t, domain.ActionIgnore, d.Action)
	assert.Zero(t, d.MaxAttempts)
}

package domain_test

import (
	"testing"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifyResponse(t *testing.T) {
	cases := []struct {
		name   string
		digits string
		speech string
		want   domain.ResponseOutcome
	}{
		{"keypress one", "1", "", domain.OutcomeSafe},
		{"keypress two", "2", "", domain.OutcomeEscalate},
		{"keypress wins over negative speech", "1", "please send help", domain.OutcomeSafe},
		{"keypress wins over positive speech", "2", "I am safe", domain.OutcomeEscalate},
		{"spoken safe", "", "yes I'm Safe thanks", domain.OutcomeSafe},
		{"spoken help", "", "HELP me", domain.OutcomeEscalate},
		{"whitespace around digits", " 1 ", "", domain.OutcomeSafe},
		{"no input", "", "", domain.OutcomeNoInput},
		{"unrecognized digit", "7", "", domain.OutcomeNoInput},
		{"unrecognized speech", "", "what is this call", domain.OutcomeNoInput},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.ClassifyResponse(tc.digits, tc.speech))
		})
	}
}

func TestCallState_Terminal(t *testing.T) {
	assert.True(t, domain.StateResolvedSafe.Terminal())
	assert.True(t, domain.StateResolvedEscalated.Terminal())
	assert.False(t, domain.StateEscalating.Terminal())
	assert.False(t, domain.StateAwaitingResponse.Terminal())
}

func TestConsumeAttempt(t *testing.T) {
	s := domain.NewCallSession("s1", domain.TriggerEvent{}, domain.PolicyDecision{
		Action:      domain.ActionCall,
		Message:     "check",
		MaxAttempts: 2,
	})

	assert.False(t, s.ConsumeAttempt())
	assert.True(t, s.ConsumeAttempt())
	assert.Equal(t, 2, s.AttemptsMade)
}

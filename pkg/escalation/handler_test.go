package escalation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/escalation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTelephony counts notifications and can fail a number of times.
type recordingTelephony struct {
	mu        sync.Mutex
	sent      []string
	failFirst int
	failWith  error
}

func (f *recordingTelephony) PlaceCall(ctx context.Context, destination, voiceURL string) (string, error) {
	return "", domain.ErrProvider
}

func (f *recordingTelephony) SendNotification(ctx context.Context, destination, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFirst > 0 {
		f.failFirst--
		return f.failWith
	}
	f.sent = append(f.sent, destination)
	return nil
}

func (f *recordingTelephony) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var contacts = []escalation.Contact{
	{Name: "Sam", Phone: "+15550002222"},
	{Name: "Dispatch", Phone: "+15550003333"},
}

func session(id string) *domain.CallSession {
	return domain.NewCallSession(id, domain.TriggerEvent{
		SubjectID: "subj-1",
		Phone:     "+15550001111",
	}, domain.FallbackDecision())
}

func TestEscalate_NotifiesAllContacts(t *testing.T) {
	tel := &recordingTelephony{}
	h := escalation.NewHandler(tel, contacts)

	require.NoError(t, h.Escalate(context.Background(), session("CA1")))
	assert.Equal(t, []string{"+15550002222", "+15550003333"}, tel.sent)
}

func TestEscalate_IdempotentPerSession(t *testing.T) {
	tel := &recordingTelephony{}
	h := escalation.NewHandler(tel, contacts)

	s := session("CA1")
	require.NoError(t, h.Escalate(context.Background(), s))
	require.NoError(t, h.Escalate(context.Background(), s))

	assert.Equal(t, 2, tel.sentCount(), "second escalation must not double-notify")
}

func TestEscalate_RetriesTransientFailures(t *testing.T) {
	tel := &recordingTelephony{failFirst: 1, failWith: domain.ErrRateLimited}
	h := escalation.NewHandler(tel, contacts[:1],
		escalation.WithRetries(3),
		escalation.WithBackoff(time.Millisecond),
	)

	require.NoError(t, h.Escalate(context.Background(), session("CA1")))
	assert.Equal(t, 1, tel.sentCount())
}

func TestEscalate_DeliveryExhaustion(t *testing.T) {
	tel := &recordingTelephony{failFirst: 100, failWith: domain.ErrProvider}
	h := escalation.NewHandler(tel, contacts,
		escalation.WithRetries(2),
		escalation.WithBackoff(time.Millisecond),
	)

	err := h.Escalate(context.Background(), session("CA1"))
	require.ErrorIs(t, err, escalation.ErrDeliveryFailed)
}

func TestEscalate_GuardEvictsOldestSessions(t *testing.T) {
	tel := &recordingTelephony{}
	h := escalation.NewHandler(tel, contacts[:1], escalation.WithSeenLimit(2))
	ctx := context.Background()

	require.NoError(t, h.Escalate(ctx, session("CA1")))
	require.NoError(t, h.Escalate(ctx, session("CA2")))
	require.NoError(t, h.Escalate(ctx, session("CA3")))

	// CA1 was evicted to keep the guard bounded, so a replay for it
	// delivers again; CA3 is still tracked and stays idempotent.
	require.NoError(t, h.Escalate(ctx, session("CA1")))
	require.NoError(t, h.Escalate(ctx, session("CA3")))
	assert.Equal(t, 4, tel.sentCount())
}

func TestEscalate_HookReportsDelivery(t *testing.T) {
	tel := &recordingTelephony{}
	var got *domain.EscalationEvent
	h := escalation.NewHandler(tel, contacts, escalation.WithHook(func(_ context.Context, e *domain.EscalationEvent) {
		got = e
	}))

	require.NoError(t, h.Escalate(context.Background(), session("CA9")))
	require.NotNil(t, got)
	assert.Equal(t, "CA9", got.SessionID)
	assert.True(t, got.Delivered)
}

package escalation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/vigil/internal/logging"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
)

// ErrDeliveryFailed is returned when no emergency contact could be reached
// after all retries. This is the last line of defense; the caller must log it
// for operator attention.
var ErrDeliveryFailed = errors.New("escalation delivery failed")

// Contact is one emergency contact to alert on escalation.
type Contact struct {
	Name  string `yaml:"name"`
	Phone string `yaml:"phone"`
}

// Handler implements ports.Escalator: it fans an alert out to the configured
// contacts over the telephony gateway. The state machine only invokes it on
// the edge into the escalating state, but the handler keeps its own
// per-session guard as a second line of defense against double-notification.
// The guard is bounded: once seenLimit sessions are tracked, the oldest entry
// is evicted, so memory stays flat for the life of the process.
type Handler struct {
	telephony ports.Telephony
	contacts  []Contact
	retries   int
	backoff   time.Duration
	seenLimit int
	logger    *slog.Logger

	mu        sync.Mutex
	seen      map[string]bool
	seenOrder []string

	onEscalation func(context.Context, *domain.EscalationEvent)
}

// Option configures the Handler.
type Option func(*Handler)

// WithRetries sets the per-contact delivery retry budget. Default 3.
func WithRetries(n int) Option {
	return func(h *Handler) {
		h.retries = n
	}
}

// WithBackoff sets the pause between delivery retries.
func WithBackoff(d time.Duration) Option {
	return func(h *Handler) {
		h.backoff = d
	}
}

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithSeenLimit caps the idempotence guard. Default 4096 sessions.
func WithSeenLimit(n int) Option {
	return func(h *Handler) {
		h.seenLimit = n
	}
}

// WithHook registers a callback fired after every escalation handoff.
func WithHook(fn func(context.Context, *domain.EscalationEvent)) Option {
	return func(h *Handler) {
		h.onEscalation = fn
	}
}

// NewHandler creates an escalation handler alerting the given contacts.
func NewHandler(telephony ports.Telephony, contacts []Contact, opts ...Option) *Handler {
	h := &Handler{
		telephony: telephony,
		contacts:  contacts,
		retries:   3,
		backoff:   500 * time.Millisecond,
		seenLimit: 4096,
		logger:    logging.NewNop(),
		seen:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Escalate alerts every configured contact about the session's subject.
// Safe for concurrent use across sessions; idempotent per session.
func (h *Handler) Escalate(ctx context.Context, session *domain.CallSession) error {
	h.mu.Lock()
	if h.seen[session.ID] {
		h.mu.Unlock()
		h.logger.Debug("escalation already delivered", "session_id", session.ID)
		return nil
	}
	h.seen[session.ID] = true
	h.seenOrder = append(h.seenOrder, session.ID)
	for len(h.seenOrder) > h.seenLimit {
		delete(h.seen, h.seenOrder[0])
		h.seenOrder = h.seenOrder[1:]
	}
	h.mu.Unlock()

	body := fmt.Sprintf(
		"Safety alert: subject %s (%s) could not be confirmed safe after a wellness check. Please respond.",
		session.SubjectID, session.Destination,
	)

	delivered := 0
	for _, contact := range h.contacts {
		if err := h.deliver(ctx, contact, body); err != nil {
			h.logger.Error("failed to alert contact",
				"session_id", session.ID,
				"contact", contact.Name,
				"err", err,
			)
			continue
		}
		delivered++
	}

	event := &domain.EscalationEvent{
		Timestamp: time.Now().UTC(),
		SessionID: session.ID,
		SubjectID: session.SubjectID,
		Delivered: delivered > 0,
	}
	if h.onEscalation != nil {
		h.onEscalation(ctx, event)
	}

	if delivered == 0 {
		return fmt.Errorf("%w: 0 of %d contacts reached for session %s",
			ErrDeliveryFailed, len(h.contacts), session.ID)
	}

	h.logger.Info("escalation delivered",
		"session_id", session.ID,
		"subject_id", session.SubjectID,
		"contacts_reached", delivered,
	)
	return nil
}

// deliver sends one alert with a bounded retry loop. Unreachable contacts
// are not retried; retrying a bad number cannot help.
func (h *Handler) deliver(ctx context.Context, contact Contact, body string) error {
	var lastErr error
	for attempt := 0; attempt < h.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(h.backoff):
			}
		}

		lastErr = h.telephony.SendNotification(ctx, contact.Phone, body)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, domain.ErrUnreachableDestination) {
			return lastErr
		}
	}
	return lastErr
}

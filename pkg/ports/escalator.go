package ports

import (
	"context"

	"github.com/aretw0/vigil/pkg/domain"
)

// Escalator alerts emergency contacts when a subject cannot be confirmed
// safe. The state machine invokes it exactly once per session, on the edge
// into the escalating state; implementations should be defensively
// idempotent anyway.
type Escalator interface {
	Escalate(ctx context.Context, session *domain.CallSession) error
}

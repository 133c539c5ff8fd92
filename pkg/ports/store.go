package ports

import (
	"context"

	"github.com/aretw0/vigil/pkg/domain"
)

// SessionStore defines the interface for persisting call sessions.
// Implementations must be safe for concurrent use; atomicity of
// read-modify-write cycles is layered on top by session.Manager.
type SessionStore interface {
	// Create inserts a new session keyed by session.ID.
	// Returns domain.ErrDuplicateSession if the key is already present.
	Create(ctx context.Context, session *domain.CallSession) error

	// Load retrieves the session for a given ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.CallSession, error)

	// Save persists the session under its current ID, inserting or replacing.
	Save(ctx context.Context, session *domain.CallSession) error

	// Delete removes the session for a given ID. Unknown IDs are a no-op.
	Delete(ctx context.Context, sessionID string) error

	// Rekey atomically moves a record from oldID to newID, so the session
	// is reachable by exactly one key at every instant. Returns
	// domain.ErrSessionNotFound if oldID is absent and
	// domain.ErrRekeyConflict if newID is already taken.
	Rekey(ctx context.Context, oldID, newID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

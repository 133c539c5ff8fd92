package memory

import (
	"context"
	"sync"

	"github.com/aretw0/vigil/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use. Suitable for tests and single-node deployments.
type Store struct {
	data map[string]*domain.CallSession
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.CallSession),
	}
}

// clone copies a session so callers can't mutate store state by pointer,
// mimicking serialization in the durable adapters.
func clone(s *domain.CallSession) *domain.CallSession {
	copied := *s
	if s.LastResponse != nil {
		resp := *s.LastResponse
		if s.LastResponse.Raw != nil {
			resp.Raw = make(map[string]string, len(s.LastResponse.Raw))
			for k, v := range s.LastResponse.Raw {
				resp.Raw[k] = v
			}
		}
		copied.LastResponse = &resp
	}
	return &copied
}

// Create inserts the session, failing on an existing key.
func (s *Store) Create(ctx context.Context, session *domain.CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[session.ID]; ok {
		return domain.ErrDuplicateSession
	}
	s.data[session.ID] = clone(session)
	return nil
}

// Load retrieves the session from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return clone(session), nil
}

// Save persists the session under its current ID.
func (s *Store) Save(ctx context.Context, session *domain.CallSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.ID] = clone(session)
	return nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// Rekey moves the record from oldID to newID under one lock, so there is no
// window where the session is reachable by neither key.
func (s *Store) Rekey(ctx context.Context, oldID, newID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.data[oldID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if _, taken := s.data[newID]; taken {
		return domain.ErrRekeyConflict
	}

	delete(s.data, oldID)
	session.ID = newID
	s.data[newID] = session
	return nil
}

// List returns the stored session IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

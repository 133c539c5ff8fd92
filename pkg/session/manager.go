package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/vigil/internal/logging"
	"github.com/aretw0/vigil/pkg/domain"
	"github.com/aretw0/vigil/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates session access, ensuring safe concurrent operations.
// It uses reference counting to garbage collect unused locks, and can hold an
// optional distributed lock when multiple replicas share one store.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session Manager over the given store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock entry.mu and later call release(key) after unlocking.
func (m *Manager) acquire(key string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		entry = &lockEntry{}
		m.locks[key] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[key]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, key)
	}
}

// Create inserts a new session, failing on a duplicate ID.
func (m *Manager) Create(ctx context.Context, s *domain.CallSession) error {
	return m.WithLock(ctx, s.ID, func(ctx context.Context) error {
		return m.store.Create(ctx, s)
	})
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	var s *domain.CallSession
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, sessionID)
		return err
	})
	return s, err
}

// Update runs a read-modify-write cycle for one session while holding its
// lock. The mutator receives the freshly loaded session and may mutate it in
// place; the result is persisted before the lock is released. This is the
// atomicity primitive every state-machine transition goes through.
func (m *Manager) Update(ctx context.Context, sessionID string, mutator func(*domain.CallSession) error) (*domain.CallSession, error) {
	var s *domain.CallSession
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := mutator(s); err != nil {
			return err
		}
		return m.store.Save(ctx, s)
	})
	return s, err
}

// Rekey moves a session from a temporary key to the carrier-assigned key.
// Both keys are locked, in a stable order, to avoid deadlock between
// concurrent rekeys.
func (m *Manager) Rekey(ctx context.Context, oldID, newID string) error {
	first, second := oldID, newID
	if strings.Compare(first, second) > 0 {
		first, second = second, first
	}
	return m.WithLock(ctx, first, func(ctx context.Context) error {
		return m.WithLock(ctx, second, func(ctx context.Context) error {
			return m.store.Rekey(ctx, oldID, newID)
		})
	})
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

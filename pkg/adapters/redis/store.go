package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/vigil/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.SessionStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Terminal sessions linger for
// auditing until the TTL prunes them.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "vigil:session:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// Create inserts the session only if the key is free (SET NX).
func (s *Store) Create(ctx context.Context, session *domain.CallSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.key(session.ID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create in redis: %w", err)
	}
	if !ok {
		return domain.ErrDuplicateSession
	}
	return nil
}

// Save persists the session to Redis.
func (s *Store) Save(ctx context.Context, session *domain.CallSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the session from Redis.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.CallSession, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var session domain.CallSession
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

// Rekey moves the record atomically using RENAMENX, so the session is
// reachable by exactly one key at all times. The stored ID field is then
// rewritten to match the new key. The caller holds the manager lock for both
// keys, so the EXISTS check cannot race a concurrent rekey of the source.
func (s *Store) Rekey(ctx context.Context, oldID, newID string) error {
	exists, err := s.client.Exists(ctx, s.key(oldID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check key in redis: %w", err)
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}

	ok, err := s.client.RenameNX(ctx, s.key(oldID), s.key(newID)).Result()
	if err != nil {
		return fmt.Errorf("failed to rename in redis: %w", err)
	}
	if !ok {
		return domain.ErrRekeyConflict
	}

	session, err := s.Load(ctx, newID)
	if err != nil {
		return err
	}
	session.ID = newID
	return s.Save(ctx, session)
}

// List returns active session IDs by scanning the key prefix.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, s.prefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SessionStore keeps JSON snapshots of interactive sessions under a key
// namespace with a sliding TTL, and serializes updates per session.
type SessionStore struct {
	cache     Cache
	namespace string
	ttl       time.Duration

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionStore creates a store writing keys as "<namespace>:<id>".
func NewSessionStore(c Cache, namespace string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		cache:     c,
		namespace: namespace,
		ttl:       ttl,
		locks:     make(map[string]*sessionLock),
	}
}

func (s *SessionStore) key(id string) string {
	return s.namespace + ":" + id
}

// Load decodes the session into dest. It returns ErrNotFound for unknown or
// expired sessions.
func (s *SessionStore) Load(ctx context.Context, id string, dest interface{}) error {
	if err := GetJSON(ctx, s.cache, s.key(id), dest); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to load %s session %s: %w", s.namespace, id, err)
	}
	return nil
}

// Save stores the session and refreshes its TTL.
func (s *SessionStore) Save(ctx context.Context, id string, value interface{}) error {
	if err := SetJSON(ctx, s.cache, s.key(id), value, s.ttl); err != nil {
		return fmt.Errorf("failed to save %s session %s: %w", s.namespace, id, err)
	}
	return nil
}

// Update loads the session into dest, runs fn, and saves dest when fn
// succeeds. Concurrent updates of the same session within this process run
// one at a time.
func (s *SessionStore) Update(ctx context.Context, id string, dest interface{}, fn func() error) error {
	unlock := s.lock(id)
	defer unlock()

	if err := s.Load(ctx, id, dest); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.Save(ctx, id, dest)
}

func (s *SessionStore) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

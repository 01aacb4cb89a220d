package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory, keyed like the Redis store.
// Used when REDIS_URL is not configured.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sess Session, ttl time.Duration) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[TokenKey(sess.ID)] = memoryEntry{value: sess.Token, expiresAt: expiresAt}
	s.entries[UserKey(sess.ID)] = memoryEntry{value: string(user), expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.getLocked(TokenKey(id))
	if !ok || token.value == "" {
		return Session{}, ErrNotFound
	}

	sess := Session{ID: id, Token: token.value, ExpiresAt: token.expiresAt}
	if user, ok := s.getLocked(UserKey(id)); ok && user.value != "" {
		if err := json.Unmarshal([]byte(user.value), &sess.User); err != nil {
			return Session{}, fmt.Errorf("decode session user: %w", err)
		}
	}
	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, TokenKey(id))
	delete(s.entries, UserKey(id))
	return nil
}

func (s *MemoryStore) getLocked(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, true
}

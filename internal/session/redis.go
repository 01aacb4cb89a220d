package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, sess Session, ttl time.Duration) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, TokenKey(sess.ID), sess.Token, ttl)
	pipe.Set(ctx, UserKey(sess.ID), user, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (Session, error) {
	vals, err := s.client.MGet(ctx, TokenKey(id), UserKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("load session: %w", err)
	}

	token, _ := vals[0].(string)
	rawUser, _ := vals[1].(string)
	if token == "" {
		return Session{}, ErrNotFound
	}

	sess := Session{ID: id, Token: token}
	if rawUser != "" {
		if err := json.Unmarshal([]byte(rawUser), &sess.User); err != nil {
			return Session{}, fmt.Errorf("decode session user: %w", err)
		}
	}

	if ttl, err := s.client.TTL(ctx, TokenKey(id)).Result(); err == nil && ttl > 0 {
		sess.ExpiresAt = time.Now().Add(ttl)
	}
	return sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, TokenKey(id), UserKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

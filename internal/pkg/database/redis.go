package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rideops/admin-console/internal/session"
)

// NewRedis creates a Redis client and verifies the connection.
func NewRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	// Session reads are tiny and frequent.
	opt.PoolSize = 20
	opt.MinIdleConns = 2
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 2 * time.Second
	opt.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().Str("addr", opt.Addr).Int("db", opt.DB).Msg("Connected to Redis")
	return client, nil
}

// OpenSessionStore returns the Redis session store, or an in-memory one
// when redisURL is empty. The returned close func is never nil.
func OpenSessionStore(ctx context.Context, redisURL string) (session.Store, func(), error) {
	if redisURL == "" {
		log.Warn().Msg("Redis URL not configured, keeping sessions in memory")
		return session.NewMemoryStore(), func() {}, nil
	}

	client, err := NewRedis(ctx, redisURL)
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	return session.NewRedisStore(client), func() { once.Do(func() { CloseRedis(client) }) }, nil
}

// CloseRedis closes the Redis connection
func CloseRedis(client *redis.Client) {
	if client != nil {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing Redis connection")
		} else {
			log.Info().Msg("Redis connection closed")
		}
	}
}

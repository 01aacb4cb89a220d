package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	sess := Session{
		ID:    "sid-1",
		Token: "tok-1",
		User:  User{ID: "admin-1", Name: "Ada", Email: "ada@example.com"},
	}
	require.NoError(t, store.Save(ctx, sess, time.Minute))

	got, err := store.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got.Token)
	assert.Equal(t, sess.User, got.User)

	require.NoError(t, store.Delete(ctx, "sid-1"))
	_, err = store.Load(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "sid-1"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreExpires(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(context.Background(), Session{ID: "s", Token: "t"}, time.Second))

	now = now.Add(2 * time.Second)
	_, err := store.Load(context.Background(), "s")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	exerciseStore(t, NewRedisStore(client))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "console:session:abc:token", TokenKey("abc"))
	assert.Equal(t, "console:session:abc:user", UserKey("abc"))
}

func TestIdentitySource(t *testing.T) {
	store := NewMemoryStore()
	src := NewIdentitySource(store, "sid-9")

	_, ok := src.Identity(context.Background())
	assert.False(t, ok)

	require.NoError(t, store.Save(context.Background(), Session{
		ID:    "sid-9",
		Token: "tok",
		User:  User{ID: "admin-9"},
	}, time.Minute))

	id, ok := src.Identity(context.Background())
	require.True(t, ok)
	assert.Equal(t, "admin-9", id.UserID)
	assert.Equal(t, "tok", id.Token)
}

package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrNoToken  = errors.New("session has no token")
)

// CookieName carries the console session id in the browser.
const CookieName = "console_session"

// User is the cached identity of the signed-in admin.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is the persisted client state of one signed-in admin.
type Session struct {
	ID        string
	Token     string
	User      User
	ExpiresAt time.Time
}

// Store persists sessions under fixed per-session keys.
type Store interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// TokenKey is the cache key holding the bearer token.
func TokenKey(id string) string {
	return fmt.Sprintf("console:session:%s:token", id)
}

// UserKey is the cache key holding the serialized user.
func UserKey(id string) string {
	return fmt.Sprintf("console:session:%s:user", id)
}

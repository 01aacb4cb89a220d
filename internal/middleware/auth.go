package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rideops/admin-console/internal/pkg/logger"
	"github.com/rideops/admin-console/internal/pkg/response"
	"github.com/rideops/admin-console/internal/session"
)

type contextKey string

const SessionKey contextKey = "session"

// Auth returns middleware that resolves the console session cookie.
// onExpired runs for a cookie whose session is no longer in the store.
func Auth(store session.Store, onExpired ...func(sid string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				response.Unauthorized(w, "Not signed in")
				return
			}

			sess, err := store.Load(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					for _, fn := range onExpired {
						fn(cookie.Value)
					}
				} else {
					logger.FromContext(r.Context()).Error().Err(err).Msg("Failed to load session")
				}
				response.Unauthorized(w, "Session expired")
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession extracts the session from context
func GetSession(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(session.Session)
	return sess, ok
}

// GetToken extracts the forwarded bearer token from context
func GetToken(ctx context.Context) string {
	sess, _ := GetSession(ctx)
	return sess.Token
}

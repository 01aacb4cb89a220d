package session

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/rideops/admin-console/internal/realtime"
)

// IdentitySource reads the cached identity of one session for the
// real-time connection.
type IdentitySource struct {
	store Store
	id    string
}

func NewIdentitySource(store Store, id string) *IdentitySource {
	return &IdentitySource{store: store, id: id}
}

func (s *IdentitySource) Identity(ctx context.Context) (realtime.Identity, bool) {
	sess, err := s.store.Load(ctx, s.id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("session_id", s.id).Msg("Failed to load cached identity")
		}
		return realtime.Identity{}, false
	}
	if sess.User.ID == "" {
		return realtime.Identity{Token: sess.Token}, false
	}
	return realtime.Identity{UserID: sess.User.ID, Token: sess.Token}, true
}

package console

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rideops/admin-console/internal/domain/profile"
	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/jwt"
	"github.com/rideops/admin-console/internal/pkg/logger"
	"github.com/rideops/admin-console/internal/pkg/response"
	"github.com/rideops/admin-console/internal/pkg/validator"
	"github.com/rideops/admin-console/internal/session"
)

// ProfileSource fetches the identity a token belongs to.
type ProfileSource interface {
	GetProfile(ctx context.Context, token string) (*profile.Profile, error)
}

// SessionRequest starts a console session for a platform token.
type SessionRequest struct {
	Token string `json:"token" validate:"required"`
}

// SessionResponse describes the started session.
type SessionResponse struct {
	User      session.User `json:"user"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// AuthHandler starts and ends console sessions.
type AuthHandler struct {
	store      session.Store
	profiles   ProfileSource
	inspector  *jwt.Inspector
	workspaces *Registry
	ttl        time.Duration
	signInPath string
	secure     bool
}

// AuthConfig holds AuthHandler settings.
type AuthConfig struct {
	SessionTTL   time.Duration
	SignInPath   string
	SecureCookie bool
}

// NewAuthHandler creates the session handler.
func NewAuthHandler(store session.Store, profiles ProfileSource, inspector *jwt.Inspector, workspaces *Registry, cfg AuthConfig) *AuthHandler {
	if cfg.SignInPath == "" {
		cfg.SignInPath = "/signin"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &AuthHandler{
		store:      store,
		profiles:   profiles,
		inspector:  inspector,
		workspaces: workspaces,
		ttl:        cfg.SessionTTL,
		signInPath: cfg.SignInPath,
		secure:     cfg.SecureCookie,
	}
}

// Start handles POST /auth/session
// @Summary Start console session
// @Description Accepts a platform token, caches the admin identity and sets the session cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body SessionRequest true "Platform token"
// @Success 201 {object} response.Response{data=SessionResponse}
// @Router /auth/session [post]
func (h *AuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	req.Token = strings.TrimSpace(strings.TrimPrefix(req.Token, "Bearer "))
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	claims, err := h.inspector.Inspect(req.Token)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpiredToken):
			response.Unauthorized(w, "Token has expired")
		default:
			response.Unauthorized(w, "Invalid token")
		}
		return
	}

	p, err := h.profiles.GetProfile(r.Context(), req.Token)
	if err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to load profile")
		return
	}
	if p.ID == "" {
		p.ID = claims.SubjectID()
	}

	// A new sign-in replaces whatever session the browser had.
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		h.end(r.Context(), c.Value)
	}

	ttl := h.inspector.TTL(claims, h.ttl)
	sess := session.Session{
		ID:        uuid.NewString(),
		Token:     req.Token,
		User:      userFromProfile(p),
		ExpiresAt: time.Now().Add(ttl),
	}
	if err := h.store.Save(r.Context(), sess, ttl); err != nil {
		errorhandler.HandleError(r.Context(), w, "SESSION_SAVE_FAILED", "Could not start session", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	logger.FromContext(r.Context()).Info().
		Str("session_id", sess.ID).
		Str("user_id", sess.User.ID).
		Dur("ttl", ttl).
		Msg("Console session started")

	response.Created(w, SessionResponse{User: sess.User, ExpiresAt: sess.ExpiresAt})
}

// SignOut handles DELETE /auth/session and GET /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(session.CookieName); err == nil && c.Value != "" {
		h.end(r.Context(), c.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.signInPath, http.StatusSeeOther)
}

func (h *AuthHandler) end(ctx context.Context, sid string) {
	if err := h.store.Delete(ctx, sid); err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("session_id", sid).Msg("Failed to clear session")
	}
	h.workspaces.Unmount(sid)
}

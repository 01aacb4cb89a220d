package profile

import (
	"context"
	"net/http"

	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/logger"
	"github.com/rideops/admin-console/internal/pkg/response"
	"github.com/rideops/admin-console/internal/pkg/validator"
)

// Platform is the remote profile API.
type Platform interface {
	GetProfile(ctx context.Context, token string) (*Profile, error)
	UpdateProfile(ctx context.Context, token string, req *UpdateProfileRequest) (*Profile, error)
	ChangePassword(ctx context.Context, token string, req *ChangePasswordRequest) error
}

// IdentityCache keeps the session's cached identity in step with the profile.
type IdentityCache interface {
	RefreshIdentity(ctx context.Context, p *Profile) error
}

// Handler handles profile HTTP requests
type Handler struct {
	platform Platform
	cache    IdentityCache
}

// NewHandler creates profile handler. cache may be nil.
func NewHandler(platform Platform, cache IdentityCache) *Handler {
	return &Handler{platform: platform, cache: cache}
}

// Get handles GET /profile
// @Summary My profile
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Response{data=Profile}
// @Router /profile [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.platform.GetProfile(r.Context(), middleware.GetToken(r.Context()))
	if err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to load profile")
		return
	}
	response.OK(w, p)
}

// Update handles PUT /profile
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	p, err := h.platform.UpdateProfile(r.Context(), middleware.GetToken(r.Context()), &req)
	if err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to update profile")
		return
	}

	if h.cache != nil {
		if err := h.cache.RefreshIdentity(r.Context(), p); err != nil {
			logger.FromContext(r.Context()).Warn().Err(err).Msg("Failed to refresh cached identity")
		}
	}

	response.OK(w, p)
}

// ChangePassword handles POST /profile/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}
	if req.CurrentPassword == req.NewPassword {
		response.BadRequest(w, ErrSamePassword.Error())
		return
	}

	if err := h.platform.ChangePassword(r.Context(), middleware.GetToken(r.Context()), &req); err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to change password")
		return
	}

	response.OK(w, map[string]string{"message": "Password changed"})
}

package vehicle

import (
	"context"
	"maps"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/response"
	"github.com/rideops/admin-console/internal/pkg/validator"
)

// Platform is the remote vehicle type API.
type Platform interface {
	ListVehicleTypes(ctx context.Context, token string) ([]VehicleType, error)
	UpdateVehicleType(ctx context.Context, token, id string, req *UpdateRequest) (*VehicleType, error)
}

// Handler handles vehicle type HTTP requests
type Handler struct {
	platform Platform
}

// NewHandler creates vehicle type handler
func NewHandler(platform Platform) *Handler {
	return &Handler{platform: platform}
}

// List handles GET /vehicle-types
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	types, err := h.platform.ListVehicleTypes(r.Context(), middleware.GetToken(r.Context()))
	if err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to load vehicle types")
		return
	}
	if types == nil {
		types = []VehicleType{}
	}
	response.OK(w, types)
}

// Update handles PUT /vehicle-types/{id}
// @Summary Update vehicle type
// @Tags Vehicle Types
// @Accept json
// @Produce json
// @Param id path string true "Vehicle type ID"
// @Param request body UpdateRequest true "Configuration"
// @Success 200 {object} response.Response{data=VehicleType}
// @Router /vehicle-types/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	errs := validator.Validate(&req)
	if amountErrs := req.validateAmounts(); amountErrs != nil {
		if errs == nil {
			errs = map[string]string{}
		}
		maps.Copy(errs, amountErrs)
	}
	if errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	vt, err := h.platform.UpdateVehicleType(r.Context(), middleware.GetToken(r.Context()), id, &req)
	if err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to update vehicle type")
		return
	}
	response.OK(w, vt)
}

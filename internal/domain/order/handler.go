package order

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/response"
)

// Platform is the remote order API.
type Platform interface {
	GetOrder(ctx context.Context, token, id string) (*Order, error)
}

// DetailResponse is the order plus derived totals.
type DetailResponse struct {
	*Order
	ItemsTotal decimal.Decimal `json:"itemsTotal"`
}

// Handler handles order HTTP requests
type Handler struct {
	platform Platform
}

// NewHandler creates order handler
func NewHandler(platform Platform) *Handler {
	return &Handler{platform: platform}
}

// Get handles GET /orders/{id}
// @Summary Order detail
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} response.Response{data=DetailResponse}
// @Router /orders/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		response.BadRequest(w, "Order ID is required")
		return
	}

	o, err := h.platform.GetOrder(r.Context(), middleware.GetToken(r.Context()), id)
	if err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to load order")
		return
	}

	response.OK(w, DetailResponse{Order: o, ItemsTotal: o.ItemsTotal()})
}

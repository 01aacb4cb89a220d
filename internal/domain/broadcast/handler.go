package broadcast

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/response"
	"github.com/rideops/admin-console/internal/pkg/validator"
)

// DispatcherSource resolves the calling session's dispatcher.
type DispatcherSource interface {
	Dispatcher(ctx context.Context) (*Dispatcher, error)
}

// Handler handles broadcast HTTP requests
type Handler struct {
	dispatchers DispatcherSource
}

// NewHandler creates broadcast handler
func NewHandler(dispatchers DispatcherSource) *Handler {
	return &Handler{dispatchers: dispatchers}
}

// Send handles POST /broadcast/{audience}
// @Summary Broadcast a message
// @Description Sends a message to all, riders, customers or admin. Dropped when the socket is down.
// @Tags Broadcast
// @Accept json
// @Produce json
// @Param audience path string true "all | riders | customers | admin"
// @Param request body SendRequest true "Message"
// @Success 200 {object} response.Response{data=SendResponse}
// @Router /broadcast/{audience} [post]
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	audience := Audience(chi.URLParam(r, "audience"))
	if err := validator.ValidateVar(string(audience), "required,audience"); err != nil {
		response.NotFound(w, "Unknown audience")
		return
	}

	var req SendRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	d, err := h.dispatchers.Dispatcher(r.Context())
	if err != nil {
		errorhandler.HandleError(r.Context(), w, "WORKSPACE_UNAVAILABLE", "Workspace is not available", err)
		return
	}

	response.OK(w, SendResponse{
		Audience:  audience,
		Delivered: d.Send(audience, req.Message),
	})
}

package notification

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/response"
)

// AggregatorSource resolves the calling session's aggregator.
type AggregatorSource interface {
	Aggregator(ctx context.Context) (*Aggregator, error)
}

// Handler handles notification HTTP requests
type Handler struct {
	aggregators AggregatorSource
}

// NewHandler creates notification handler
func NewHandler(aggregators AggregatorSource) *Handler {
	return &Handler{aggregators: aggregators}
}

// List handles GET /notifications
// @Summary Live notifications
// @Description Returns up to five notifications, newest first.
// @Tags Notifications
// @Produce json
// @Success 200 {object} response.Response{data=[]Notification}
// @Router /notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.aggregator(w, r)
	if !ok {
		return
	}
	response.OK(w, agg.List())
}

// Delete handles DELETE /notifications/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid notification ID")
		return
	}

	agg, ok := h.aggregator(w, r)
	if !ok {
		return
	}

	if err := agg.Remove(id); err != nil {
		if errors.Is(err, ErrNotificationNotFound) {
			response.NotFound(w, "Notification not found")
			return
		}
		errorhandler.HandleError(r.Context(), w, "NOTIFICATION_DELETE_FAILED", "Failed to delete notification", err)
		return
	}
	response.NoContent(w)
}

// Clear handles DELETE /notifications
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	agg, ok := h.aggregator(w, r)
	if !ok {
		return
	}
	agg.Clear()
	response.NoContent(w)
}

func (h *Handler) aggregator(w http.ResponseWriter, r *http.Request) (*Aggregator, bool) {
	agg, err := h.aggregators.Aggregator(r.Context())
	if err != nil {
		errorhandler.HandleError(r.Context(), w, "WORKSPACE_UNAVAILABLE", "Workspace is not available", err)
		return nil, false
	}
	return agg, true
}

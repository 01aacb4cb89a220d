package rider

import (
	"net/http"
	"strconv"

	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/response"
)

// Handler handles rider HTTP requests
type Handler struct {
	fetcher Fetcher
}

// NewHandler creates rider handler
func NewHandler(fetcher Fetcher) *Handler {
	return &Handler{fetcher: fetcher}
}

// List handles GET /riders
// @Summary Riders
// @Tags Riders
// @Produce json
// @Param page query int false "Page number"
// @Param search query string false "Name, email or phone"
// @Success 200 {object} response.Response{data=[]Rider}
// @Router /riders [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			response.BadRequest(w, "page must be a positive integer")
			return
		}
		page = p
	}

	res, err := h.fetcher.ListRiders(r.Context(), middleware.GetToken(r.Context()), ListParams{
		Page:   page,
		Limit:  PageSize,
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to load riders")
		return
	}

	items := res.Items
	if items == nil {
		items = []Rider{}
	}
	response.WithMeta(w, items, response.NewMeta(res.Total, page, PageSize))
}

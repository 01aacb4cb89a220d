package transaction

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/response"
	"github.com/rideops/admin-console/internal/pkg/validator"
)

// TableSource resolves the calling session's table.
type TableSource interface {
	Table(ctx context.Context) (*Table, error)
}

// Handler handles transaction table HTTP requests
type Handler struct {
	tables TableSource
}

// NewHandler creates transaction handler
func NewHandler(tables TableSource) *Handler {
	return &Handler{tables: tables}
}

// List handles GET /transactions
// @Summary Transactions page
// @Description Fetches a page from the platform and applies the session's search and sort.
// @Tags Transactions
// @Produce json
// @Param page query int false "Page number"
// @Param riderId query string false "Rider filter"
// @Param search query string false "Search text"
// @Param sort query string false "Order by, e.g. amount desc"
// @Success 200 {object} response.Response{data=[]Transaction}
// @Router /transactions [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	table, ok := h.table(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	if q.Has("sort") {
		sort, err := ParseOrderBy(q.Get("sort"))
		if err != nil {
			response.BadRequest(w, err.Error())
			return
		}
		table.SetSort(sort)
	}

	if q.Has("page") || q.Has("riderId") || q.Has("search") {
		view := table.View()
		search, riderID, page := view.Search, view.RiderID, 0
		if q.Has("search") {
			search = q.Get("search")
		}
		if q.Has("riderId") {
			riderID = q.Get("riderId")
		}
		if q.Has("page") {
			p, err := strconv.Atoi(q.Get("page"))
			if err != nil || p < 1 {
				response.BadRequest(w, "page must be a positive integer")
				return
			}
			page = p
		}
		table.SetView(search, riderID, page)
	}

	h.refresh(w, r, table)
}

// ToggleSort handles POST /transactions/sort
func (h *Handler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	var req ToggleSortRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	table, ok := h.table(w, r)
	if !ok {
		return
	}

	table.ToggleSort(req.Key)
	writeResult(w, table.Current())
}

// UpdateView handles PUT /transactions/view
func (h *Handler) UpdateView(w http.ResponseWriter, r *http.Request) {
	var req UpdateViewRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		errorhandler.HandleValidation(r.Context(), w, errs)
		return
	}

	table, ok := h.table(w, r)
	if !ok {
		return
	}

	table.SetView(req.Search, req.RiderID, req.Page)
	h.refresh(w, r, table)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request, table *Table) {
	res, err := table.Refresh(r.Context(), middleware.GetToken(r.Context()))
	if err != nil {
		if errors.Is(err, ErrStaleResponse) {
			response.Conflict(w, "A newer request superseded this one")
			return
		}
		errorhandler.HandleUpstream(r.Context(), w, err, "Failed to load transactions")
		return
	}
	writeResult(w, res)
}

func (h *Handler) table(w http.ResponseWriter, r *http.Request) (*Table, bool) {
	table, err := h.tables.Table(r.Context())
	if err != nil {
		errorhandler.HandleError(r.Context(), w, "WORKSPACE_UNAVAILABLE", "Workspace is not available", err)
		return nil, false
	}
	return table, true
}

func writeResult(w http.ResponseWriter, res *Result) {
	response.WithMeta(w, res, response.NewMeta(res.Total, res.View.Page, PageSize))
}

package order

import "github.com/go-chi/chi/v5"

// Routes returns order router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.Get)
	return r
}

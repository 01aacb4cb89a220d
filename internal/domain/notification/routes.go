package notification

import "github.com/go-chi/chi/v5"

// Routes returns notification router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Delete("/", h.Clear)
	r.Delete("/{id}", h.Delete)

	return r
}

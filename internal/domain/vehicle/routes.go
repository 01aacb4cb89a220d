package vehicle

import "github.com/go-chi/chi/v5"

// Routes returns vehicle type router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Put("/{id}", h.Update)

	return r
}

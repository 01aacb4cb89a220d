package transaction

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns transaction router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/sort", h.ToggleSort)
	r.Put("/view", h.UpdateView)

	return r
}

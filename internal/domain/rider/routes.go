package rider

import "github.com/go-chi/chi/v5"

// Routes returns rider router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	return r
}

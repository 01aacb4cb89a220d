package broadcast

import "github.com/go-chi/chi/v5"

// Routes returns broadcast router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{audience}", h.Send)
	return r
}

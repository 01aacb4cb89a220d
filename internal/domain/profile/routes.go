package profile

import "github.com/go-chi/chi/v5"

// Routes returns profile router
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Get)
	r.Put("/", h.Update)
	r.Post("/password", h.ChangePassword)

	return r
}

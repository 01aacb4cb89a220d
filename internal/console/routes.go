package console

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the session router.
func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/session", h.Start)
	r.Delete("/session", h.SignOut)
	r.Get("/signout", h.SignOut)

	return r
}

// Routes returns the connection router. Every route needs a session.
func (h *ConnectionHandler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.Status)
	r.Post("/reconnect", h.Reconnect)

	return r
}

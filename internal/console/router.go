package console

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/rideops/admin-console/internal/domain/broadcast"
	"github.com/rideops/admin-console/internal/domain/notification"
	"github.com/rideops/admin-console/internal/domain/order"
	"github.com/rideops/admin-console/internal/domain/profile"
	"github.com/rideops/admin-console/internal/domain/rider"
	"github.com/rideops/admin-console/internal/domain/transaction"
	"github.com/rideops/admin-console/internal/domain/vehicle"
	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/pkg/jwt"
	pkgresponse "github.com/rideops/admin-console/internal/pkg/response"
	"github.com/rideops/admin-console/internal/session"
)

// Platform is every platform REST call the console makes.
type Platform interface {
	profile.Platform
	transaction.Fetcher
	rider.Fetcher
	order.Platform
	vehicle.Platform
}

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Store          session.Store
	Platform       Platform
	Workspaces     *Registry
	Hub            *Hub
	Inspector      *jwt.Inspector
	Auth           AuthConfig
	AllowedOrigins []string
	ConnectTimeout time.Duration
	Version        string
}

// NewRouter builds the console HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	authMiddleware := middleware.Auth(cfg.Store, func(sid string) {
		cfg.Workspaces.Unmount(sid)
	})

	authHandler := NewAuthHandler(cfg.Store, cfg.Platform, cfg.Inspector, cfg.Workspaces, cfg.Auth)
	connectionHandler := NewConnectionHandler(cfg.Workspaces, cfg.ConnectTimeout)
	profileHandler := profile.NewHandler(cfg.Platform, cfg.Workspaces)
	riderHandler := rider.NewHandler(cfg.Platform)
	orderHandler := order.NewHandler(cfg.Platform)
	vehicleHandler := vehicle.NewHandler(cfg.Platform)
	transactionHandler := transaction.NewHandler(cfg.Workspaces)
	broadcastHandler := broadcast.NewHandler(cfg.Workspaces)
	notificationHandler := notification.NewHandler(cfg.Workspaces)

	version := cfg.Version
	if version == "" {
		version = "1.0.0"
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// Browser socket is never compressed
	r.With(authMiddleware).Get("/ws", cfg.Hub.ServeWS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]any{
			"status":     "ok",
			"version":    version,
			"workspaces": cfg.Workspaces.Len(),
			"browsers":   cfg.Hub.Count(),
		})
	})

	r.Mount("/auth", authHandler.Routes())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/connection", connectionHandler.Routes(authMiddleware))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)

			r.Mount("/profile", profileHandler.Routes())
			r.Mount("/riders", riderHandler.Routes())
			r.Mount("/orders", orderHandler.Routes())
			r.Mount("/vehicle-types", vehicleHandler.Routes())
			r.Mount("/transactions", transactionHandler.Routes())
			r.Mount("/broadcast", broadcastHandler.Routes())
			r.Mount("/notifications", notificationHandler.Routes())
		})
	})

	return r
}

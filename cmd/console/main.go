package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rideops/admin-console/internal/config"
	"github.com/rideops/admin-console/internal/console"
	"github.com/rideops/admin-console/internal/pkg/database"
	"github.com/rideops/admin-console/internal/pkg/jwt"
	"github.com/rideops/admin-console/internal/pkg/logger"
	"github.com/rideops/admin-console/internal/platform"
	"github.com/rideops/admin-console/internal/realtime"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logFile, err := logger.Init(logger.Config{
		Level:   cfg.LogLevel,
		Console: cfg.IsDevelopment(),
		LogFile: cfg.LogFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	defer logFile.Close()

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("platform_api", cfg.PlatformAPIURL).
		Str("socket_url", cfg.SocketURL).
		Msg("Starting admin console")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := database.OpenSessionStore(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer closeStore()

	if cfg.PlatformJWTSecret == "" {
		log.Warn().Msg("PLATFORM_JWT_SECRET not set, session tokens are decoded without signature checks")
	}

	client := platform.NewClient(cfg.PlatformAPIURL,
		platform.WithTimeout(cfg.PlatformAPITimeout),
		platform.WithLogger(logger.Component("platform")),
		platform.WithUserAgent("rideops-admin-console/"+version),
	)

	workspaces := console.NewRegistry(cfg.Realtime(), store, client,
		console.WithDebounce(cfg.RiderSearchDebounce),
		console.WithSessionTTL(cfg.SessionTTL),
		console.WithRealtimeOptions(realtime.WithHTTPClient(pollingClient())),
	)
	hub := console.NewHub(workspaces, cfg.AllowedOrigins)

	router := console.NewRouter(console.RouterConfig{
		Store:      store,
		Platform:   client,
		Workspaces: workspaces,
		Hub:        hub,
		Inspector:  jwt.NewInspector(cfg.PlatformJWTSecret),
		Auth: console.AuthConfig{
			SessionTTL:   cfg.SessionTTL,
			SignInPath:   cfg.SignInPath,
			SecureCookie: cfg.IsProduction(),
		},
		AllowedOrigins: cfg.AllowedOrigins,
		ConnectTimeout: cfg.SocketHandshakeTimeout,
		Version:        version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		hub.Shutdown()
		workspaces.Close()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		closeStore()
		os.Exit(1)
	}

	log.Info().Msg("Server exited properly")
}

// pollingClient is shared by every workspace's long-polling transport.
// Long polls are bounded by the handshake and request contexts, not a
// client timeout.
func pollingClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

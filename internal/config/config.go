package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/rideops/admin-console/internal/realtime"
)

var (
	ErrMissingPlatformURL = errors.New("PLATFORM_API_URL is required")
	ErrMissingSocketURL   = errors.New("SOCKET_URL is required")
	ErrInvalidURL         = errors.New("invalid url")
)

type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"debug"`
	LogFile  string `env:"LOG_FILE"`

	// Platform REST API
	PlatformAPIURL     string        `env:"PLATFORM_API_URL" envDefault:"http://localhost:5000/api"`
	PlatformAPITimeout time.Duration `env:"PLATFORM_API_TIMEOUT" envDefault:"15s"`
	PlatformJWTSecret  string        `env:"PLATFORM_JWT_SECRET"`

	// Real-time socket server
	SocketURL               string        `env:"SOCKET_URL" envDefault:"http://localhost:5000"`
	SocketTransports        []string      `env:"SOCKET_TRANSPORTS" envSeparator:"," envDefault:"websocket,polling"`
	SocketReconnectAttempts int           `env:"SOCKET_RECONNECT_ATTEMPTS" envDefault:"5"`
	SocketReconnectDelay    time.Duration `env:"SOCKET_RECONNECT_DELAY" envDefault:"1000ms"`
	SocketHandshakeTimeout  time.Duration `env:"SOCKET_HANDSHAKE_TIMEOUT" envDefault:"10s"`

	// Session cache. Empty RedisURL keeps sessions in memory.
	RedisURL   string        `env:"REDIS_URL"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Browser routes
	SignInPath          string        `env:"SIGNIN_PATH" envDefault:"/signin"`
	RiderSearchDebounce time.Duration `env:"RIDER_SEARCH_DEBOUNCE" envDefault:"300ms"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values.
func (c *Config) Validate() error {
	if c.PlatformAPIURL == "" {
		return ErrMissingPlatformURL
	}
	if c.SocketURL == "" {
		return ErrMissingSocketURL
	}
	for name, raw := range map[string]string{
		"PLATFORM_API_URL": c.PlatformAPIURL,
		"SOCKET_URL":       c.SocketURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s=%q", ErrInvalidURL, name, raw)
		}
	}
	return nil
}

// Realtime returns the connection settings for a workspace.
func (c *Config) Realtime() realtime.Config {
	rc := realtime.DefaultConfig()
	rc.URL = c.SocketURL
	if len(c.SocketTransports) > 0 {
		rc.Transports = c.SocketTransports
	}
	if c.SocketReconnectAttempts > 0 {
		rc.ReconnectAttempts = c.SocketReconnectAttempts
	}
	if c.SocketReconnectDelay > 0 {
		rc.ReconnectDelay = c.SocketReconnectDelay
	}
	if c.SocketHandshakeTimeout > 0 {
		rc.HandshakeTimeout = c.SocketHandshakeTimeout
	}
	return rc
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

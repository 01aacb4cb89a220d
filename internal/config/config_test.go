package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PLATFORM_API_URL", "https://api.example.com/api")
	t.Setenv("SOCKET_URL", "https://socket.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"websocket", "polling"}, cfg.SocketTransports)
	assert.Equal(t, 5, cfg.SocketReconnectAttempts)
	assert.Equal(t, time.Second, cfg.SocketReconnectDelay)
	assert.Equal(t, 300*time.Millisecond, cfg.RiderSearchDebounce)
	assert.Equal(t, "/signin", cfg.SignInPath)
	assert.Empty(t, cfg.RedisURL)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PLATFORM_API_URL", "https://api.example.com/api")
	t.Setenv("SOCKET_URL", "wss://socket.example.com")
	t.Setenv("SOCKET_TRANSPORTS", "polling")
	t.Setenv("SOCKET_RECONNECT_ATTEMPTS", "2")
	t.Setenv("SOCKET_RECONNECT_DELAY", "250ms")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	rc := cfg.Realtime()
	assert.Equal(t, "wss://socket.example.com", rc.URL)
	assert.Equal(t, []string{"polling"}, rc.Transports)
	assert.Equal(t, 2, rc.ReconnectAttempts)
	assert.Equal(t, 250*time.Millisecond, rc.ReconnectDelay)
	assert.Len(t, cfg.AllowedOrigins, 2)
}

func TestValidate(t *testing.T) {
	valid := Config{PlatformAPIURL: "http://api.local", SocketURL: "ws://socket.local"}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.PlatformAPIURL = ""
	assert.True(t, errors.Is(missing.Validate(), ErrMissingPlatformURL))

	missing = valid
	missing.SocketURL = ""
	assert.True(t, errors.Is(missing.Validate(), ErrMissingSocketURL))

	bad := valid
	bad.SocketURL = "not a url"
	assert.True(t, errors.Is(bad.Validate(), ErrInvalidURL))
}

package realtime

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrHandshakeTimeout = errors.New("handshake timeout")
	ErrUnexpectedFrame  = errors.New("unexpected handshake frame")
	ErrNoTransport      = errors.New("no transport configured")
	ErrConnClosed       = errors.New("connection closed")
	ErrUnknownTransport = errors.New("unknown transport")
)

// Status is the lifecycle state of the managed connection.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

// Lifecycle events are dispatched locally by the Manager.
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventConnectError    = "connect_error"
	EventReconnect       = "reconnect"
	EventReconnectFailed = "reconnect_failed"
)

// Room membership events sent to the server.
const (
	EventJoinRoom  = "joinRoom"
	EventLeaveRoom = "leaveRoom"
)

// RoleAdmin is the room tag every console connection joins.
const RoleAdmin = "admin"

// Transport names accepted in Config.Transports.
const (
	TransportWebsocket = "websocket"
	TransportPolling   = "polling"
)

// Frame is the unit exchanged with the socket server.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomMembership is the payload of joinRoom and leaveRoom.
type RoomMembership struct {
	UserID   string `json:"userId"`
	UserType string `json:"userType"`
}

// Identity is the cached authenticated user the connection acts for.
type Identity struct {
	UserID string
	Token  string
}

// Info is a point-in-time view of the managed connection.
type Info struct {
	SessionID string `json:"session_id,omitempty"`
	Status    Status `json:"status"`
	Transport string `json:"transport,omitempty"`
	Retries   int    `json:"retries"`
}

// Config configures a Manager.
type Config struct {
	URL               string        // Socket server URL, http(s):// or ws(s)://
	Transports        []string      // Dial order, e.g. websocket then polling
	ReconnectAttempts int           // Attempts after a drop before giving up
	ReconnectDelay    time.Duration // Fixed wait before each attempt
	HandshakeTimeout  time.Duration // Dial plus connect acknowledgement
	WriteTimeout      time.Duration // Write deadline for sends
	PingInterval      time.Duration // Websocket keepalive period (0 disables)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Transports:        []string{TransportWebsocket, TransportPolling},
		ReconnectAttempts: 5,
		ReconnectDelay:    1000 * time.Millisecond,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      5 * time.Second,
		PingInterval:      25 * time.Second,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if len(c.Transports) == 0 {
		c.Transports = d.Transports
	}
	if c.ReconnectAttempts <= 0 {
		c.ReconnectAttempts = d.ReconnectAttempts
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = d.ReconnectDelay
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
}

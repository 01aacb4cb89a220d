package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Conn is a single live transport connection.
type Conn interface {
	// ReadFrame blocks until the next inbound frame or a transport error.
	ReadFrame() (Frame, error)

	// WriteFrame sends one frame. Safe for concurrent use.
	WriteFrame(f Frame) error

	// Close releases the connection. Safe to call more than once.
	Close() error

	// Transport returns the name of the transport that produced the connection.
	Transport() string
}

// Transport dials connections of one kind.
type Transport interface {
	Name() string
	Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error)
}

// transportsFor builds the dial order named in cfg.
func transportsFor(cfg Config, httpClient *http.Client, logger zerolog.Logger) ([]Transport, error) {
	out := make([]Transport, 0, len(cfg.Transports))
	for _, name := range cfg.Transports {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case TransportWebsocket:
			out = append(out, &websocketTransport{
				handshakeTimeout: cfg.HandshakeTimeout,
				writeTimeout:     cfg.WriteTimeout,
				pingInterval:     cfg.PingInterval,
				logger:           logger,
			})
		case TransportPolling:
			out = append(out, &pollingTransport{
				client:       httpClient,
				writeTimeout: cfg.WriteTimeout,
				idleDelay:    cfg.ReconnectDelay / 10,
			})
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, name)
		}
	}
	return out, nil
}

// endpointFor rewrites the configured URL for a transport.
func endpointFor(raw, transport, sid string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse socket url: %w", err)
	}

	switch transport {
	case TransportWebsocket:
		switch u.Scheme {
		case "http":
			u.Scheme = "ws"
		case "https":
			u.Scheme = "wss"
		}
	case TransportPolling:
		switch u.Scheme {
		case "ws":
			u.Scheme = "http"
		case "wss":
			u.Scheme = "https"
		}
	}

	q := u.Query()
	q.Set("transport", transport)
	if sid != "" {
		q.Set("sid", sid)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// websocketTransport is the preferred low-latency transport.
type websocketTransport struct {
	handshakeTimeout time.Duration
	writeTimeout     time.Duration
	pingInterval     time.Duration
	logger           zerolog.Logger
}

func (t *websocketTransport) Name() string { return TransportWebsocket }

func (t *websocketTransport) Dial(ctx context.Context, endpoint string, header http.Header) (Conn, error) {
	target, err := endpointFor(endpoint, TransportWebsocket, "")
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.handshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, err
	}

	c := &wsConn{
		ws:           ws,
		writeTimeout: t.writeTimeout,
		done:         make(chan struct{}),
		logger:       t.logger,
	}

	if t.pingInterval > 0 {
		pongWait := 2 * t.pingInterval
		ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		go c.heartbeatLoop(t.pingInterval)
	}

	return c, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	logger       zerolog.Logger

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func (c *wsConn) Transport() string { return TransportWebsocket }

func (c *wsConn) ReadFrame() (Frame, error) {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return Frame{}, ErrConnClosed
			default:
				return Frame{}, err
			}
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			c.logger.Warn().Int("bytes", len(data)).Msg("dropping malformed frame")
			continue
		}
		return f, nil
	}
}

func (c *wsConn) WriteFrame(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

// heartbeatLoop keeps intermediaries from idling the socket out.
func (c *wsConn) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.writeTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				c.logger.Debug().Err(err).Msg("failed to send ping")
			}
		}
	}
}

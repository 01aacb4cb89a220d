package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// IdentitySource supplies the cached authenticated user.
type IdentitySource interface {
	// Identity returns false when no identity is cached.
	Identity(ctx context.Context) (Identity, bool)
}

// Handler receives the raw data of a dispatched event.
type Handler func(data json.RawMessage)

// Subscription is a registered listener. Release is idempotent.
type Subscription struct {
	once    sync.Once
	release func()
}

// NewSubscription wraps a release func.
func NewSubscription(release func()) *Subscription {
	return &Subscription{release: release}
}

// Release unregisters the listener.
func (s *Subscription) Release() {
	if s == nil || s.release == nil {
		return
	}
	s.once.Do(s.release)
}

type listener struct {
	id uint64
	fn Handler
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used by the polling transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = hc
	}
}

// WithTransports replaces the transports built from Config.Transports.
func WithTransports(ts ...Transport) Option {
	return func(m *Manager) {
		m.transports = ts
	}
}

// Manager owns one real-time connection and its lifecycle.
type Manager struct {
	cfg        Config
	identity   IdentitySource
	logger     zerolog.Logger
	httpClient *http.Client
	transports []Transport
	setupErr   error

	mu          sync.Mutex
	status      Status
	conn        Conn
	sid         string
	retries     int
	gen         uint64 // bumped by every Connect from idle and every Disconnect
	cancelRetry context.CancelFunc

	lmu       sync.RWMutex
	listeners map[string][]listener
	nextID    uint64
}

// NewManager creates a Manager in the disconnected state.
func NewManager(cfg Config, identity IdentitySource, opts ...Option) *Manager {
	cfg.applyDefaults()

	m := &Manager{
		cfg:        cfg,
		identity:   identity,
		logger:     log.With().Str("component", "realtime").Logger(),
		httpClient: &http.Client{Timeout: 0},
		status:     StatusDisconnected,
		listeners:  make(map[string][]listener),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.transports == nil {
		m.transports, m.setupErr = transportsFor(cfg, m.httpClient, m.logger)
	}

	return m
}

// Connect establishes the connection, or returns the existing one.
//
// A failed first attempt still starts the bounded reconnect loop in the
// background; the dial error is returned to the caller.
func (m *Manager) Connect(ctx context.Context) (Info, error) {
	m.mu.Lock()
	if m.status != StatusDisconnected {
		info := m.infoLocked()
		m.mu.Unlock()
		m.logger.Debug().
			Str("sid", info.SessionID).
			Str("status", string(info.Status)).
			Msg("connection already active, reusing")
		return info, nil
	}
	m.gen++
	gen := m.gen
	m.status = StatusConnecting
	m.mu.Unlock()

	m.logger.Info().Str("url", m.cfg.URL).Msg("connecting")

	conn, sid, err := m.dial(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("connect failed")
		m.dispatch(EventConnectError, errorData(err))

		m.mu.Lock()
		if m.gen == gen {
			m.status = StatusReconnecting
			m.startReconnectLocked(gen)
		}
		info := m.infoLocked()
		m.mu.Unlock()
		return info, fmt.Errorf("connect: %w", err)
	}

	if !m.adopt(conn, sid, gen) {
		conn.Close()
		return m.Info(), fmt.Errorf("connect: %w", ErrConnClosed)
	}

	m.afterConnect(EventConnect)
	return m.Info(), nil
}

// Disconnect closes the active connection and clears local state.
// Safe to call when already disconnected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.status == StatusDisconnected && m.conn == nil {
		m.mu.Unlock()
		return
	}

	conn := m.conn
	wasConnected := m.status == StatusConnected
	sid := m.sid

	m.gen++
	if m.cancelRetry != nil {
		m.cancelRetry()
		m.cancelRetry = nil
	}
	m.conn = nil
	m.sid = ""
	m.retries = 0
	m.status = StatusDisconnected
	m.mu.Unlock()

	if conn != nil {
		if wasConnected {
			m.leaveRoom(conn)
		}
		if err := conn.Close(); err != nil {
			m.logger.Debug().Err(err).Msg("close transport")
		}
	}

	m.logger.Info().Str("sid", sid).Msg("disconnected")
	m.dispatch(EventDisconnect, reasonData("io client disconnect"))
}

// Emit sends one event to the server.
func (m *Manager) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	m.mu.Lock()
	conn := m.conn
	status := m.status
	m.mu.Unlock()

	if conn == nil || status != StatusConnected {
		return ErrNotConnected
	}

	return conn.WriteFrame(Frame{Event: event, Data: data})
}

// On registers a listener for an event name. Listeners stay registered
// until released; the Manager never removes them on its own.
func (m *Manager) On(event string, fn Handler) *Subscription {
	m.lmu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners[event] = append(m.listeners[event], listener{id: id, fn: fn})
	m.lmu.Unlock()

	return NewSubscription(func() {
		m.lmu.Lock()
		defer m.lmu.Unlock()

		ls := m.listeners[event]
		for i, l := range ls {
			if l.id == id {
				m.listeners[event] = append(ls[:i:i], ls[i+1:]...)
				break
			}
		}
		if len(m.listeners[event]) == 0 {
			delete(m.listeners, event)
		}
	})
}

// ListenerCount returns the number of listeners for an event.
func (m *Manager) ListenerCount(event string) int {
	m.lmu.RLock()
	defer m.lmu.RUnlock()
	return len(m.listeners[event])
}

// Status returns the current lifecycle state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connected reports whether the connection is usable for sends.
func (m *Manager) Connected() bool {
	return m.Status() == StatusConnected
}

// Info returns a snapshot of the connection state.
func (m *Manager) Info() Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.infoLocked()
}

func (m *Manager) infoLocked() Info {
	info := Info{
		SessionID: m.sid,
		Status:    m.status,
		Retries:   m.retries,
	}
	if m.conn != nil {
		info.Transport = m.conn.Transport()
	}
	return info
}

// dial tries each transport in order and waits for the connect ack.
func (m *Manager) dial(ctx context.Context) (Conn, string, error) {
	if m.setupErr != nil {
		return nil, "", m.setupErr
	}
	if len(m.transports) == 0 {
		return nil, "", ErrNoTransport
	}

	header := http.Header{}
	if m.identity != nil {
		if id, _ := m.identity.Identity(ctx); id.Token != "" {
			header.Set("Authorization", "Bearer "+id.Token)
		}
	}

	var errs []error
	for _, t := range m.transports {
		dialCtx, cancel := context.WithTimeout(ctx, m.cfg.HandshakeTimeout)
		conn, err := t.Dial(dialCtx, m.cfg.URL, header)
		if err != nil {
			cancel()
			m.logger.Debug().Err(err).Str("transport", t.Name()).Msg("transport dial failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
			continue
		}

		sid, err := awaitAck(dialCtx, conn)
		cancel()
		if err != nil {
			conn.Close()
			m.logger.Debug().Err(err).Str("transport", t.Name()).Msg("handshake failed, trying next")
			errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
			continue
		}

		return conn, sid, nil
	}

	return nil, "", errors.Join(errs...)
}

// awaitAck reads the server's connect frame and returns the session id.
func awaitAck(ctx context.Context, conn Conn) (string, error) {
	type result struct {
		frame Frame
		err   error
	}

	ch := make(chan result, 1)
	go func() {
		f, err := conn.ReadFrame()
		ch <- result{frame: f, err: err}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		return "", ErrHandshakeTimeout
	case r := <-ch:
		if r.err != nil {
			return "", r.err
		}
		if r.frame.Event != EventConnect {
			return "", fmt.Errorf("%w: %q", ErrUnexpectedFrame, r.frame.Event)
		}
		sid := gjson.GetBytes(r.frame.Data, "sid").String()
		if sid == "" {
			sid = uuid.NewString()
		}
		return sid, nil
	}
}

// adopt installs conn as the live connection unless a Disconnect
// happened while it was being dialed.
func (m *Manager) adopt(conn Conn, sid string, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen {
		return false
	}

	m.conn = conn
	m.sid = sid
	m.retries = 0
	m.status = StatusConnected

	go m.readLoop(conn, gen)

	m.logger.Info().
		Str("sid", sid).
		Str("transport", conn.Transport()).
		Msg("connected")
	return true
}

// afterConnect re-asserts room membership and notifies listeners.
func (m *Manager) afterConnect(event string) {
	m.joinRoom()

	info := m.Info()
	data, _ := json.Marshal(map[string]string{
		"sid":       info.SessionID,
		"transport": info.Transport,
	})
	m.dispatch(event, data)
}

func (m *Manager) joinRoom() {
	if m.identity == nil {
		return
	}
	id, ok := m.identity.Identity(context.Background())
	if !ok || id.UserID == "" {
		m.logger.Debug().Msg("no cached identity, skipping room join")
		return
	}

	if err := m.Emit(EventJoinRoom, RoomMembership{UserID: id.UserID, UserType: RoleAdmin}); err != nil {
		m.logger.Warn().Err(err).Msg("failed to join admin room")
		return
	}
	m.logger.Debug().Str("user_id", id.UserID).Msg("joined admin room")
}

func (m *Manager) leaveRoom(conn Conn) {
	if m.identity == nil {
		return
	}
	id, ok := m.identity.Identity(context.Background())
	if !ok || id.UserID == "" {
		return
	}

	data, _ := json.Marshal(RoomMembership{UserID: id.UserID, UserType: RoleAdmin})
	if err := conn.WriteFrame(Frame{Event: EventLeaveRoom, Data: data}); err != nil {
		m.logger.Debug().Err(err).Msg("failed to leave admin room")
	}
}

// readLoop dispatches inbound frames until the transport fails.
func (m *Manager) readLoop(conn Conn, gen uint64) {
	for {
		f, err := conn.ReadFrame()
		if err != nil {
			m.handleDrop(conn, gen, err)
			return
		}

		if f.Event == EventDisconnect {
			m.handleServerDisconnect(conn, gen, f.Data)
			return
		}

		m.dispatch(f.Event, f.Data)
	}
}

// handleDrop moves a dropped connection into the reconnect loop.
func (m *Manager) handleDrop(conn Conn, gen uint64, cause error) {
	m.mu.Lock()
	if m.gen != gen || m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	m.sid = ""
	m.status = StatusReconnecting
	m.startReconnectLocked(gen)
	m.mu.Unlock()

	conn.Close()

	m.logger.Warn().Err(cause).Msg("connection dropped, reconnecting")
	m.dispatch(EventDisconnect, reasonData("transport close"))
}

// handleServerDisconnect honours a server-initiated disconnect without
// reconnecting.
func (m *Manager) handleServerDisconnect(conn Conn, gen uint64, data json.RawMessage) {
	m.mu.Lock()
	if m.gen != gen || m.conn != conn {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.conn = nil
	m.sid = ""
	m.retries = 0
	m.status = StatusDisconnected
	m.mu.Unlock()

	conn.Close()

	m.logger.Info().Msg("server closed the connection")
	if len(data) == 0 {
		data = reasonData("io server disconnect")
	}
	m.dispatch(EventDisconnect, data)
}

func (m *Manager) startReconnectLocked(gen uint64) {
	if m.cancelRetry != nil {
		m.cancelRetry()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelRetry = cancel
	go m.reconnect(ctx, cancel, gen)
}

// reconnect retries with a fixed delay up to the configured attempts.
func (m *Manager) reconnect(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	for attempt := 1; attempt <= m.cfg.ReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.cfg.ReconnectDelay):
		}

		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		m.retries = attempt
		m.mu.Unlock()

		m.logger.Info().Int("attempt", attempt).Msg("attempting reconnection")

		conn, sid, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn().Err(err).Int("attempt", attempt).Msg("reconnection failed")
			m.dispatch(EventConnectError, errorData(err))
			continue
		}

		if !m.adopt(conn, sid, gen) {
			conn.Close()
			return
		}

		m.afterConnect(EventReconnect)
		return
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.status = StatusDisconnected
	m.retries = 0
	m.cancelRetry = nil
	m.mu.Unlock()

	m.logger.Warn().Int("attempts", m.cfg.ReconnectAttempts).Msg("reconnect attempts exhausted")
	m.dispatch(EventReconnectFailed, nil)
}

// dispatch runs every listener for event synchronously, in registration order.
func (m *Manager) dispatch(event string, data json.RawMessage) {
	m.lmu.RLock()
	ls := make([]Handler, 0, len(m.listeners[event]))
	for _, l := range m.listeners[event] {
		ls = append(ls, l.fn)
	}
	m.lmu.RUnlock()

	for _, fn := range ls {
		fn(data)
	}
}

func errorData(err error) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"message": err.Error()})
	return data
}

func reasonData(reason string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"reason": reason})
	return data
}

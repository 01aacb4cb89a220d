package console

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/rideops/admin-console/internal/domain/notification"
	"github.com/rideops/admin-console/internal/domain/rider"
	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/response"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Browser message types.
const (
	MessageNotifications = "notifications"
	MessageRiderSearch   = "rider_search"
	MessageRiderResults  = "rider_results"
	MessageDismiss       = "dismiss"
	MessageClear         = "clear_notifications"
)

// Snapshot is pushed to the browser after every notification or
// connection change.
type Snapshot struct {
	Type      string                      `json:"type"`
	Connected bool                        `json:"connected"`
	Data      []notification.Notification `json:"data"`
}

// RiderResults answers a rider_search message.
type RiderResults struct {
	Type  string        `json:"type"`
	Term  string        `json:"term"`
	Data  []rider.Rider `json:"data"`
	Error string        `json:"error,omitempty"`
}

type browserClient struct {
	id     string
	ws     *Workspace
	riders *rider.Search
	token  string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	logger zerolog.Logger
}

func (c *browserClient) close() {
	c.once.Do(func() { close(c.done) })
}

// enqueue never blocks; a browser that cannot keep up loses frames.
func (c *browserClient) enqueue(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Error().Err(err).Msg("Encode browser message")
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.logger.Warn().Msg("Browser send buffer full, dropping message")
	}
}

// Hub serves the browser websocket of each console session.
type Hub struct {
	workspaces *Registry
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[*browserClient]struct{}
}

// NewHub creates the browser hub. Empty allowedOrigins accepts any origin.
func NewHub(workspaces *Registry, allowedOrigins []string) *Hub {
	return &Hub{
		workspaces: workspaces,
		clients:    make(map[*browserClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				if len(allowedOrigins) == 0 || origin == "" {
					return true
				}

				for _, allowed := range allowedOrigins {
					if origin == allowed || allowed == "*" {
						return true
					}
				}

				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

// ServeWS handles GET /ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSession(r.Context())
	if !ok {
		response.Unauthorized(w, "Not signed in")
		return
	}

	ws, err := h.workspaces.Mount(sess)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, "WORKSPACE_UNAVAILABLE", "Workspace is not available", err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &browserClient{
		id:     uuid.NewString(),
		ws:     ws,
		riders: ws.NewRiderSearch(),
		token:  sess.Token,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: log.With().
			Str("component", "browser_ws").
			Str("session_id", sess.ID).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Logger(),
	}
	h.register(client)

	stopNotes := ws.Notifications().OnChange(func(items []notification.Notification) {
		client.enqueue(newSnapshot(ws.Connection().Connected(), items))
	})
	stopStatus := ws.OnStatusChange(func(connected bool) {
		client.enqueue(newSnapshot(connected, ws.Notifications().List()))
	})

	client.enqueue(newSnapshot(ws.Connection().Connected(), ws.Notifications().List()))

	go func() {
		<-client.done
		stopNotes()
		stopStatus()
		client.riders.Close()
		h.unregister(client)
	}()

	go h.wsReader(client)
	go h.wsWriter(client)
}

func newSnapshot(connected bool, items []notification.Notification) Snapshot {
	if items == nil {
		items = []notification.Notification{}
	}
	return Snapshot{Type: MessageNotifications, Connected: connected, Data: items}
}

func (h *Hub) register(c *browserClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	c.logger.Debug().Int("clients", n).Msg("Browser connected")
}

func (h *Hub) unregister(c *browserClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.logger.Debug().Msg("Browser disconnected")
}

// Count returns the number of open browser sockets.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown closes every browser socket.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	clients := make([]*browserClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) wsReader(client *browserClient) {
	defer func() {
		client.close()
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				client.logger.Error().Err(err).Msg("WebSocket read error")
			}
			return
		}

		if !gjson.ValidBytes(message) {
			continue
		}
		msg := gjson.ParseBytes(message)

		switch msg.Get("type").String() {
		case MessageRiderSearch:
			term := strings.TrimSpace(msg.Get("term").String())
			client.riders.Query(client.token, term, func(res rider.Result) {
				out := RiderResults{Type: MessageRiderResults, Term: res.Term, Data: res.Riders}
				if res.Err != nil {
					out.Error = "Failed to search riders"
				}
				if out.Data == nil {
					out.Data = []rider.Rider{}
				}
				client.enqueue(out)
			})
		case MessageDismiss:
			id, err := uuid.Parse(msg.Get("id").String())
			if err != nil {
				continue
			}
			if err := client.ws.Notifications().Remove(id); err != nil {
				client.logger.Debug().Err(err).Str("notification_id", id.String()).Msg("Dismiss ignored")
			}
		case MessageClear:
			client.ws.Notifications().Clear()
		}
	}
}

func (h *Hub) wsWriter(client *browserClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				client.close()
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.close()
				return
			}

		case <-client.ws.Done():
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "signed out"))
			client.close()
			return

		case <-client.done:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

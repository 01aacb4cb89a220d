package console

import (
	"context"
	"net/http"
	"time"

	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/pkg/errorhandler"
	"github.com/rideops/admin-console/internal/pkg/response"
	"github.com/rideops/admin-console/internal/realtime"
)

// ConnectionHandler reports and restarts the session's real-time connection.
type ConnectionHandler struct {
	workspaces *Registry
	timeout    time.Duration
}

// NewConnectionHandler creates the connection handler.
func NewConnectionHandler(workspaces *Registry, timeout time.Duration) *ConnectionHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ConnectionHandler{workspaces: workspaces, timeout: timeout}
}

// Status handles GET /connection
// @Summary Real-time connection status
// @Tags Connection
// @Produce json
// @Success 200 {object} response.Response{data=realtime.Info}
// @Router /connection [get]
func (h *ConnectionHandler) Status(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	response.OK(w, ws.Connection().Info())
}

// Reconnect handles POST /connection/reconnect
func (h *ConnectionHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	conn := ws.Connection()
	if conn.Status() == realtime.StatusConnected {
		response.OK(w, conn.Info())
		return
	}

	// A connection stuck in the retry loop is dropped and dialed fresh.
	conn.Disconnect()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	info, err := conn.Connect(ctx)
	if err != nil {
		errorhandler.HandleUpstream(r.Context(), w, err, "Could not reach the real-time server")
		return
	}
	response.OK(w, info)
}

func (h *ConnectionHandler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	sess, _ := middleware.GetSession(r.Context())
	ws, err := h.workspaces.Mount(sess)
	if err != nil {
		errorhandler.HandleError(r.Context(), w, "WORKSPACE_UNAVAILABLE", "Workspace is not available", err)
		return nil, false
	}
	return ws, true
}

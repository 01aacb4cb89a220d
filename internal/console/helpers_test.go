package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rideops/admin-console/internal/domain/order"
	"github.com/rideops/admin-console/internal/domain/profile"
	"github.com/rideops/admin-console/internal/domain/rider"
	"github.com/rideops/admin-console/internal/domain/transaction"
	"github.com/rideops/admin-console/internal/domain/vehicle"
	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/realtime"
	"github.com/rideops/admin-console/internal/session"
)

type fakePlatform struct {
	mu      sync.Mutex
	profile *profile.Profile
	err     error
	riders  []rider.Rider
	tokens  []string
}

func (f *fakePlatform) GetProfile(_ context.Context, token string) (*profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	return &p, nil
}

func (f *fakePlatform) UpdateProfile(_ context.Context, _ string, req *profile.UpdateProfileRequest) (*profile.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profile.Name = req.Name
	f.profile.Email = req.Email
	f.profile.Phone = req.Phone
	p := *f.profile
	return &p, nil
}

func (f *fakePlatform) ChangePassword(context.Context, string, *profile.ChangePasswordRequest) error {
	return nil
}

func (f *fakePlatform) ListTransactions(context.Context, string, transaction.ListParams) (*transaction.Page, error) {
	return &transaction.Page{Items: []transaction.Transaction{{ID: "t1"}}, Total: 1, Page: 1, Limit: transaction.PageSize}, nil
}

func (f *fakePlatform) ListRiders(_ context.Context, _ string, params rider.ListParams) (*rider.Page, error) {
	var out []rider.Rider
	for _, r := range f.riders {
		if strings.Contains(strings.ToLower(r.Name), strings.ToLower(params.Search)) {
			out = append(out, r)
		}
	}
	return &rider.Page{Items: out, Total: len(out), Page: 1, Limit: rider.PageSize}, nil
}

func (f *fakePlatform) GetOrder(_ context.Context, _ string, id string) (*order.Order, error) {
	return &order.Order{ID: id, Status: "new"}, nil
}

func (f *fakePlatform) ListVehicleTypes(context.Context, string) ([]vehicle.VehicleType, error) {
	return nil, nil
}

func (f *fakePlatform) UpdateVehicleType(_ context.Context, _ string, id string, req *vehicle.UpdateRequest) (*vehicle.VehicleType, error) {
	return &vehicle.VehicleType{ID: id, Name: req.Name}, nil
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		profile: &profile.Profile{ID: "admin-1", Name: "Ada", Email: "ada@example.com", Role: "admin"},
		riders: []rider.Rider{
			{ID: "r1", Name: "Rae"},
			{ID: "r2", Name: "Raj"},
			{ID: "r3", Name: "Sam"},
		},
	}
}

// socketServer acknowledges every connection and records inbound frames.
type socketServer struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  []*websocket.Conn
	frames chan realtime.Frame
}

func newSocketServer(t *testing.T) *socketServer {
	t.Helper()
	s := &socketServer{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		frames:   make(chan realtime.Frame, 64),
	}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(func() {
		s.mu.Lock()
		for _, c := range s.conns {
			c.Close()
		}
		s.mu.Unlock()
		s.server.Close()
	})
	return s
}

func (s *socketServer) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conns = append(s.conns, ws)
	n := len(s.conns)
	s.mu.Unlock()

	ack, _ := json.Marshal(realtime.Frame{Event: realtime.EventConnect, Data: json.RawMessage(fmt.Sprintf(`{"sid":"srv-%d"}`, n))})
	ws.WriteMessage(websocket.TextMessage, ack)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var f realtime.Frame
		if json.Unmarshal(data, &f) == nil {
			select {
			case s.frames <- f:
			default:
			}
		}
	}
}

func (s *socketServer) send(t *testing.T, event, data string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.conns) == 0 {
		t.Fatal("no workspace connected")
	}
	msg, _ := json.Marshal(realtime.Frame{Event: event, Data: json.RawMessage(data)})
	if err := s.conns[len(s.conns)-1].WriteMessage(websocket.TextMessage, msg); err != nil {
		t.Fatalf("send %s: %v", event, err)
	}
}

func (s *socketServer) config() realtime.Config {
	return realtime.Config{
		URL:               s.server.URL,
		Transports:        []string{realtime.TransportWebsocket},
		ReconnectAttempts: 2,
		ReconnectDelay:    20 * time.Millisecond,
		HandshakeTimeout:  time.Second,
	}
}

// offlineConfig points at a closed port; connects fail and the retry
// loop waits long enough to stay in the reconnecting state.
func offlineConfig(t *testing.T) realtime.Config {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	return realtime.Config{
		URL:               url,
		Transports:        []string{realtime.TransportWebsocket},
		ReconnectAttempts: 1,
		ReconnectDelay:    time.Minute,
		HandshakeTimeout:  200 * time.Millisecond,
	}
}

func withSession(ctx context.Context, sess session.Session) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, sess)
}

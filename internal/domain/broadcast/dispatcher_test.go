package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type sent struct {
	event   string
	payload any
}

type fakeConn struct {
	connected bool
	err       error
	sent      []sent
}

func (f *fakeConn) Connected() bool { return f.connected }

func (f *fakeConn) Emit(event string, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{event: event, payload: payload})
	return nil
}

func TestSendsMapToEvents(t *testing.T) {
	conn := &fakeConn{connected: true}
	d := NewDispatcher(conn)

	d.SendToAll("a")
	d.SendToRiders("r")
	d.SendToCustomers("c")
	d.SendToAdmin("x")

	want := []sent{
		{"sendToAll", "a"},
		{"sendToRiders", "r"},
		{"sendToCustomers", "c"},
		{"sendToAdmin", "x"},
	}
	if len(conn.sent) != len(want) {
		t.Fatalf("expected %d sends, got %d", len(want), len(conn.sent))
	}
	for i, w := range want {
		if conn.sent[i] != w {
			t.Fatalf("send %d: expected %+v, got %+v", i, w, conn.sent[i])
		}
	}
}

func TestDisconnectedSendsAreDropped(t *testing.T) {
	conn := &fakeConn{connected: false}
	d := NewDispatcher(conn)

	for _, send := range []func(string) bool{d.SendToAll, d.SendToRiders, d.SendToCustomers, d.SendToAdmin} {
		if send("hello") {
			t.Fatal("expected message to be dropped")
		}
	}
	if len(conn.sent) != 0 {
		t.Fatalf("expected no sends, got %d", len(conn.sent))
	}
}

func TestNilConnectionDoesNotPanic(t *testing.T) {
	d := NewDispatcher(nil)
	if d.SendToAll("hello") {
		t.Fatal("expected message to be dropped")
	}
}

func TestEmitFailureIsNotDelivered(t *testing.T) {
	d := NewDispatcher(&fakeConn{connected: true, err: errors.New("closed")})
	if d.SendToAdmin("hello") {
		t.Fatal("expected delivery to fail")
	}
}

type fixedDispatchers struct{ d *Dispatcher }

func (f fixedDispatchers) Dispatcher(context.Context) (*Dispatcher, error) { return f.d, nil }

func TestHandlerSend(t *testing.T) {
	conn := &fakeConn{connected: true}
	router := NewHandler(fixedDispatchers{d: NewDispatcher(conn)}).Routes()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/riders", strings.NewReader(`{"message":"Surge pricing active"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var env struct {
		Data SendResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.Data.Delivered || env.Data.Audience != AudienceRiders {
		t.Fatalf("unexpected response %+v", env.Data)
	}
	if len(conn.sent) != 1 || conn.sent[0].event != "sendToRiders" {
		t.Fatalf("unexpected sends %+v", conn.sent)
	}
}

func TestHandlerRejectsUnknownAudience(t *testing.T) {
	router := NewHandler(fixedDispatchers{d: NewDispatcher(&fakeConn{connected: true})}).Routes()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/drivers", strings.NewReader(`{"message":"x"}`)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandlerValidatesMessage(t *testing.T) {
	router := NewHandler(fixedDispatchers{d: NewDispatcher(&fakeConn{connected: true})}).Routes()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/all", strings.NewReader(`{"message":""}`)))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}

func TestHandlerReportsDroppedMessage(t *testing.T) {
	router := NewHandler(fixedDispatchers{d: NewDispatcher(&fakeConn{connected: false})}).Routes()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/all", strings.NewReader(`{"message":"hi"}`)))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"delivered":false`) {
		t.Fatalf("expected delivered=false, got %s", w.Body.String())
	}
}

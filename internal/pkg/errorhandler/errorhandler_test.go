package errorhandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type testRejection struct{ msg string }

func (e *testRejection) Error() string     { return "rejected: " + e.msg }
func (e *testRejection) Rejection() string { return e.msg }

type testPayloadErr struct{ body []byte }

func (e *testPayloadErr) Error() string   { return "request failed" }
func (e *testPayloadErr) Payload() []byte { return e.body }

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Message  string `json:"message"`
		Severity string `json:"severity"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

func TestHandleUpstreamRejectionIsWarning(t *testing.T) {
	w := httptest.NewRecorder()
	err := fmt.Errorf("get profile: %w", &testRejection{msg: "Profile locked"})
	HandleUpstream(context.Background(), w, err, "Failed to load profile")

	env := decode(t, w)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if env.Error.Severity != "warning" || env.Error.Message != "Profile locked" {
		t.Fatalf("unexpected notice %+v", env.Error)
	}
}

func TestHandleUpstreamRejectionWithoutMessageUsesFallback(t *testing.T) {
	w := httptest.NewRecorder()
	HandleUpstream(context.Background(), w, &testRejection{}, "Failed to load profile")

	if env := decode(t, w); env.Error.Message != "Failed to load profile" {
		t.Fatalf("expected fallback, got %q", env.Error.Message)
	}
}

func TestHandleUpstreamFailureExtractsPayloadMessage(t *testing.T) {
	w := httptest.NewRecorder()
	HandleUpstream(context.Background(), w, &testPayloadErr{body: []byte(`{"error":"database unavailable"}`)}, "x")

	env := decode(t, w)
	if env.Error.Severity != "error" || env.Error.Message != "database unavailable" {
		t.Fatalf("unexpected notice %+v", env.Error)
	}
}

func TestHandleUpstreamPlainErrorUsesFallback(t *testing.T) {
	w := httptest.NewRecorder()
	HandleUpstream(context.Background(), w, errors.New("dial tcp: refused"), "")

	env := decode(t, w)
	if env.Error.Severity != "error" || env.Error.Message != FallbackError {
		t.Fatalf("unexpected notice %+v", env.Error)
	}
}

func TestHandleUpstreamCanceledWritesNothing(t *testing.T) {
	w := httptest.NewRecorder()
	HandleUpstream(context.Background(), w, fmt.Errorf("get: %w", context.Canceled), "")

	if w.Body.Len() != 0 {
		t.Fatalf("expected no body, got %s", w.Body.String())
	}
}

func TestMessageFrom(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{`{"message":"bad"}`, "bad"},
		{`{"error":{"message":"nested"}}`, "nested"},
		{`{"error":"flat"}`, "flat"},
		{`{"error":42}`, ""},
		{`<html>oops</html>`, ""},
		{``, ""},
	}

	for _, tt := range tests {
		if got := MessageFrom([]byte(tt.payload)); got != tt.want {
			t.Fatalf("MessageFrom(%q) = %q, want %q", tt.payload, got, tt.want)
		}
	}
}

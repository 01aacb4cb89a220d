package platform

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideops/admin-console/internal/domain/profile"
	"github.com/rideops/admin-console/internal/domain/rider"
	"github.com/rideops/admin-console/internal/domain/transaction"
	"github.com/rideops/admin-console/internal/domain/vehicle"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(server.URL,
		WithTimeout(time.Second),
		WithRetries(2, time.Millisecond),
		WithLogger(zerolog.Nop()),
	)
}

func TestGetProfileForwardsToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/profile" || r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"status":200,"message":"ok","data":{"user":{"id":"a1","name":"Ada","email":"ada@example.com","role":"admin"}}}`))
	})

	p, err := client.GetProfile(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "a1", p.ID)
	assert.Equal(t, "Ada", p.Name)
}

func TestMissingTokenFailsWithoutRequest(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	})

	_, err := client.GetProfile(context.Background(), " ")
	require.ErrorIs(t, err, ErrMissingToken)
	assert.Zero(t, hits.Load())
}

func TestEnvelopeStatusIsRejection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":403,"message":"Not allowed","data":null}`))
	})

	_, err := client.GetOrder(context.Background(), "tok", "o1")
	var envErr *EnvelopeError
	require.ErrorAs(t, err, &envErr)
	assert.Equal(t, int64(403), envErr.Status)
	assert.Equal(t, "Not allowed", envErr.Rejection())
}

func TestEnvelopeStatusAsString(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"200","data":[]}`))
	})

	types, err := client.ListVehicleTypes(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestNonEnvelopeErrorCarriesPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad input"}`))
	})

	err := client.ChangePassword(context.Background(), "tok", &profile.ChangePasswordRequest{})
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusBadRequest, reqErr.StatusCode)
	assert.JSONEq(t, `{"error":"bad input"}`, string(reqErr.Payload()))
}

func TestGetRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":200,"data":{"riders":[{"id":"r1","name":"Rae"}],"total":31}}`))
	})

	page, err := client.ListRiders(context.Background(), "tok", rider.ListParams{Search: "ra"})
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 31, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Rae", page.Items[0].Name)
}

func TestWritesAreNotRetried(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	active := true
	_, err := client.UpdateVehicleType(context.Background(), "tok", "v1", &vehicle.UpdateRequest{Name: "Van", Capacity: 2, Active: &active})
	require.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestListTransactionsQueryAndShapes(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		total int
	}{
		{"bare array", `{"status":200,"data":[{"id":"t1","amount":12.5},{"id":"t2","amount":null}]}`, 2},
		{"named key", `{"status":200,"data":{"transactions":[{"id":"t1"},{"id":"t2"}],"total":40}}`, 40},
		{"items key", `{"status":200,"data":{"items":[{"id":"t1"},{"id":"t2"}],"pagination":{"total":12}}}`, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var query string
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.RawQuery
				_, _ = io.WriteString(w, tt.body)
			})

			page, err := client.ListTransactions(context.Background(), "tok", transaction.ListParams{Page: 3, RiderID: "r7"})
			require.NoError(t, err)
			assert.Equal(t, "limit=10&page=3&riderId=r7", query)
			assert.Len(t, page.Items, 2)
			assert.Equal(t, tt.total, page.Total)
			assert.Equal(t, 3, page.Page)
		})
	}
}

func TestDecimalAmountsKeepPrecision(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":200,"data":[{"id":"t1","amount":"0.10"},{"id":"t2"}]}`))
	})

	page, err := client.ListTransactions(context.Background(), "tok", transaction.ListParams{})
	require.NoError(t, err)
	assert.True(t, page.Items[0].Amount.Valid)
	assert.Equal(t, "0.1", page.Items[0].Amount.Decimal.String())
	assert.False(t, page.Items[1].Amount.Valid)
}

func TestMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	})

	_, err := client.GetProfile(context.Background(), "tok")
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestTimeoutClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, WithTimeout(20*time.Millisecond), WithRetries(0, 0), WithLogger(zerolog.Nop()))
	_, err := client.GetProfile(context.Background(), "tok")

	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "timeout", reqErr.Kind)
}

func TestCanceledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.GetProfile(ctx, "tok")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestPathEscaping(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"status":200,"data":{"order":{"id":"a/b","status":"new"}}}`))
	})

	o, err := client.GetOrder(context.Background(), "tok", "a/b")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "/admin/orders/a%2Fb"), path)
	assert.Equal(t, "new", o.Status)
}

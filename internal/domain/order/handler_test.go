package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	orders map[string]*Order
	gotID  string
}

type notFound struct{}

func (notFound) Error() string     { return "order not found" }
func (notFound) Rejection() string { return "Order not found" }

func (f *fakePlatform) GetOrder(_ context.Context, _ string, id string) (*Order, error) {
	f.gotID = id
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, notFound{}
}

func TestGetOrderIncludesItemsTotal(t *testing.T) {
	platform := &fakePlatform{orders: map[string]*Order{
		"X1": {
			ID:     "X1",
			Status: "delivered",
			Items: []Item{
				{Name: "Burger", Quantity: 2, Price: decimal.RequireFromString("4.50")},
				{Name: "Fries", Quantity: 1, Price: decimal.RequireFromString("2.25")},
			},
		},
	}}

	w := httptest.NewRecorder()
	NewHandler(platform).Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/X1", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var env struct {
		Data struct {
			ID         string `json:"id"`
			ItemsTotal string `json:"itemsTotal"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "X1", env.Data.ID)
	assert.Equal(t, "11.25", env.Data.ItemsTotal)
}

func TestGetOrderRejectionIsWarning(t *testing.T) {
	w := httptest.NewRecorder()
	NewHandler(&fakePlatform{}).Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"severity":"warning"`)
	assert.Contains(t, w.Body.String(), "Order not found")
}

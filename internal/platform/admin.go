package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rideops/admin-console/internal/domain/order"
	"github.com/rideops/admin-console/internal/domain/profile"
	"github.com/rideops/admin-console/internal/domain/rider"
	"github.com/rideops/admin-console/internal/domain/transaction"
	"github.com/rideops/admin-console/internal/domain/vehicle"
)

// GetProfile returns the admin profile the token belongs to.
func (c *Client) GetProfile(ctx context.Context, token string) (*profile.Profile, error) {
	const op = "get profile"
	data, err := c.do(ctx, op, http.MethodGet, "/admin/profile", nil, token, nil)
	if err != nil {
		return nil, err
	}
	return decodeProfile(op, data)
}

// UpdateProfile saves the editable profile fields.
func (c *Client) UpdateProfile(ctx context.Context, token string, req *profile.UpdateProfileRequest) (*profile.Profile, error) {
	const op = "update profile"
	data, err := c.do(ctx, op, http.MethodPut, "/admin/profile", nil, token, req)
	if err != nil {
		return nil, err
	}
	return decodeProfile(op, data)
}

// ChangePassword forwards a password change.
func (c *Client) ChangePassword(ctx context.Context, token string, req *profile.ChangePasswordRequest) error {
	_, err := c.do(ctx, "change password", http.MethodPost, "/admin/change-password", nil, token, req)
	return err
}

// ListTransactions returns one page of transactions.
func (c *Client) ListTransactions(ctx context.Context, token string, params transaction.ListParams) (*transaction.Page, error) {
	const op = "list transactions"
	page, limit := pageParams(params.Page, params.Limit, transaction.PageSize)

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if id := strings.TrimSpace(params.RiderID); id != "" {
		q.Set("riderId", id)
	}

	data, err := c.do(ctx, op, http.MethodGet, "/admin/transactions", q, token, nil)
	if err != nil {
		return nil, err
	}

	var items []transaction.Transaction
	total, err := decodeList(op, data, &items, "transactions")
	if err != nil {
		return nil, err
	}
	return &transaction.Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ListRiders returns one page of riders, optionally filtered by a search term.
func (c *Client) ListRiders(ctx context.Context, token string, params rider.ListParams) (*rider.Page, error) {
	const op = "list riders"
	page, limit := pageParams(params.Page, params.Limit, rider.PageSize)

	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if term := strings.TrimSpace(params.Search); term != "" {
		q.Set("search", term)
	}

	data, err := c.do(ctx, op, http.MethodGet, "/admin/riders", q, token, nil)
	if err != nil {
		return nil, err
	}

	var items []rider.Rider
	total, err := decodeList(op, data, &items, "riders")
	if err != nil {
		return nil, err
	}
	return &rider.Page{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// GetOrder returns one order's detail.
func (c *Client) GetOrder(ctx context.Context, token, id string) (*order.Order, error) {
	const op = "get order"
	data, err := c.do(ctx, op, http.MethodGet, "/admin/orders/"+url.PathEscape(id), nil, token, nil)
	if err != nil {
		return nil, err
	}
	if o := data.Get("order"); o.IsObject() {
		data = o
	}

	var o order.Order
	if err := unmarshal(op, data, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListVehicleTypes returns every configured vehicle type.
func (c *Client) ListVehicleTypes(ctx context.Context, token string) ([]vehicle.VehicleType, error) {
	const op = "list vehicle types"
	data, err := c.do(ctx, op, http.MethodGet, "/admin/vehicle-types", nil, token, nil)
	if err != nil {
		return nil, err
	}

	var items []vehicle.VehicleType
	if _, err := decodeList(op, data, &items, "vehicleTypes"); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateVehicleType replaces one vehicle type's configuration.
func (c *Client) UpdateVehicleType(ctx context.Context, token, id string, req *vehicle.UpdateRequest) (*vehicle.VehicleType, error) {
	const op = "update vehicle type"
	data, err := c.do(ctx, op, http.MethodPut, "/admin/vehicle-types/"+url.PathEscape(id), nil, token, req)
	if err != nil {
		return nil, err
	}
	if vt := data.Get("vehicleType"); vt.IsObject() {
		data = vt
	}

	var vt vehicle.VehicleType
	if err := unmarshal(op, data, &vt); err != nil {
		return nil, err
	}
	return &vt, nil
}

func decodeProfile(op string, data gjson.Result) (*profile.Profile, error) {
	for _, key := range []string{"user", "profile"} {
		if v := data.Get(key); v.IsObject() {
			data = v
			break
		}
	}

	var p profile.Profile
	if err := unmarshal(op, data, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		p.ID = data.Get("_id").String()
	}
	return &p, nil
}

// decodeList accepts a bare array or an object holding the array under key,
// "items" or "data". The total falls back to the number of items.
func decodeList(op string, data gjson.Result, dst any, key string) (int, error) {
	list := data
	if !list.IsArray() {
		list = gjson.Result{}
		for _, k := range []string{key, "items", "data"} {
			if v := data.Get(k); v.IsArray() {
				list = v
				break
			}
		}
	}

	if !list.Exists() {
		if data.Type == gjson.Null || !data.Exists() {
			return 0, json.Unmarshal([]byte("[]"), dst)
		}
		return 0, &RequestError{Op: op, Kind: "decode error", Body: []byte(data.Raw), Err: ErrMalformedResponse}
	}

	if err := json.Unmarshal([]byte(list.Raw), dst); err != nil {
		return 0, &RequestError{Op: op, Kind: "decode error", Body: []byte(list.Raw), Err: err}
	}

	for _, path := range []string{"total", "totalCount", "pagination.total", "meta.total"} {
		if v := data.Get(path); v.Type == gjson.Number {
			return int(v.Int()), nil
		}
	}
	return int(list.Get("#").Int()), nil
}

func pageParams(page, limit, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = size
	}
	return page, limit
}

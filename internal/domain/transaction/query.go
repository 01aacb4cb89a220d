package transaction

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the sort direction of a column.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Sort keys for the fixed columns. Any other key is looked up in ExtraFields.
const (
	KeyID            = "id"
	KeyAmount        = "amount"
	KeyFromUserType  = "fromUserType"
	KeyToUserType    = "toUserType"
	KeyPaymentMethod = "paymentMethod"
	KeyOrderID       = "orderId"
	KeyRiderID       = "riderId"
	KeyCreatedAt     = "createdAt"
	KeyUpdatedAt     = "updatedAt"
)

// SortState is the active sort column. An empty Key means unsorted.
type SortState struct {
	Key       string    `json:"key,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Toggle flips the direction when key is already active, otherwise
// selects key ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key && key != "" {
		if s.Direction == Ascending {
			return SortState{Key: key, Direction: Descending}
		}
		return SortState{Key: key, Direction: Ascending}
	}
	return SortState{Key: key, Direction: Ascending}
}

// Query is the client-side view over the loaded page.
type Query struct {
	Search string
	Sort   SortState
}

// Apply filters then sorts records into a new slice.
func Apply(records []Transaction, q Query) []Transaction {
	out := Filter(records, q.Search)
	SortInPlace(out, q.Sort)
	return out
}

// Filter returns the records matching search, in input order.
func Filter(records []Transaction, search string) []Transaction {
	needle := strings.ToLower(strings.TrimSpace(search))

	out := make([]Transaction, 0, len(records))
	for _, t := range records {
		if needle == "" || matches(t, needle) {
			out = append(out, t)
		}
	}
	return out
}

func matches(t Transaction, needle string) bool {
	fields := []string{
		t.ID,
		t.FromUserType.Label(),
		t.ToUserType.Label(),
		t.PaymentMethod.Label(),
	}
	if t.Amount.Valid {
		fields = append(fields, t.Amount.Decimal.String())
	}

	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Sort returns a sorted copy of records.
func Sort(records []Transaction, s SortState) []Transaction {
	out := slices.Clone(records)
	SortInPlace(out, s)
	return out
}

// SortInPlace stable-sorts records. Records without a value for the key
// go last in both directions.
func SortInPlace(records []Transaction, s SortState) {
	if s.Key == "" {
		return
	}

	slices.SortStableFunc(records, func(a, b Transaction) int {
		av, aok := value(a, s.Key)
		bv, bok := value(b, s.Key)

		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}

		c := compareValues(av, bv)
		if s.Direction == Descending {
			return -c
		}
		return c
	})
}

// value returns the record's value under key and whether it is defined.
func value(t Transaction, key string) (any, bool) {
	switch key {
	case KeyID:
		return t.ID, t.ID != ""
	case KeyAmount:
		return t.Amount.Decimal, t.Amount.Valid
	case KeyFromUserType:
		return string(t.FromUserType), t.FromUserType != ""
	case KeyToUserType:
		return string(t.ToUserType), t.ToUserType != ""
	case KeyPaymentMethod:
		return string(t.PaymentMethod), t.PaymentMethod != ""
	case KeyOrderID:
		return t.OrderID, t.OrderID != ""
	case KeyRiderID:
		return t.RiderID, t.RiderID != ""
	case KeyCreatedAt:
		if t.CreatedAt == nil {
			return nil, false
		}
		return *t.CreatedAt, true
	case KeyUpdatedAt:
		if t.UpdatedAt == nil {
			return nil, false
		}
		return *t.UpdatedAt, true
	}

	v, ok := t.ExtraFields[strings.TrimPrefix(key, "extraFields.")]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr {
		if ts, err := time.Parse(time.RFC3339, s); err == nil && isDateKey(key) {
			return ts, true
		}
	}
	return v, true
}

func isDateKey(key string) bool {
	k := strings.ToLower(key)
	return strings.HasSuffix(k, "at") || strings.HasSuffix(k, "date")
}

// compareValues orders two defined values of possibly different kinds.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case decimal.Decimal:
		if bv, ok := asDecimal(b); ok {
			return av.Cmp(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return cmp.Compare(boolRank(av), boolRank(bv))
		}
	}

	if ad, ok := asDecimal(a); ok {
		if bd, ok := asDecimal(b); ok {
			return ad.Cmp(bd)
		}
	}

	if c := cmp.Compare(kindRank(a), kindRank(b)); c != 0 {
		return c
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case int32:
		return decimal.NewFromInt32(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	}
	return decimal.Decimal{}, false
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// kindRank orders values of unrelated kinds: numbers, strings, bools, other.
func kindRank(v any) int {
	if _, ok := asDecimal(v); ok {
		return 0
	}
	switch v.(type) {
	case string:
		return 1
	case bool:
		return 2
	case time.Time:
		return 3
	}
	return 4
}

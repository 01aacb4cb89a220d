package transaction

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/ordering"
)

var snakeKeys = map[string]string{
	"from_user_type": KeyFromUserType,
	"to_user_type":   KeyToUserType,
	"payment_method": KeyPaymentMethod,
	"order_id":       KeyOrderID,
	"rider_id":       KeyRiderID,
	"created_at":     KeyCreatedAt,
	"updated_at":     KeyUpdatedAt,
}

// ParseOrderBy reads a single-field order-by string such as "amount desc"
// or "created_at". An empty string clears the sort.
func ParseOrderBy(s string) (SortState, error) {
	if strings.TrimSpace(s) == "" {
		return SortState{}, nil
	}

	var ob ordering.OrderBy
	if err := ob.UnmarshalString(s); err != nil {
		return SortState{}, fmt.Errorf("%w: %v", ErrInvalidOrderBy, err)
	}
	if len(ob.Fields) != 1 {
		return SortState{}, fmt.Errorf("%w: expected one field, got %d", ErrInvalidOrderBy, len(ob.Fields))
	}

	f := ob.Fields[0]
	key := f.Path
	if k, ok := snakeKeys[key]; ok {
		key = k
	}

	dir := Ascending
	if f.Desc {
		dir = Descending
	}
	return SortState{Key: key, Direction: dir}, nil
}

package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is a pickup or drop-off point.
type Address struct {
	Label     string   `json:"label,omitempty"`
	Street    string   `json:"street,omitempty"`
	City      string   `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Item is one line of an order.
type Item struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Order is the detail view of one platform order.
type Order struct {
	ID            string              `json:"id"`
	Status        string              `json:"status"`
	CustomerID    string              `json:"customerId,omitempty"`
	CustomerName  string              `json:"customerName,omitempty"`
	RiderID       string              `json:"riderId,omitempty"`
	RiderName     string              `json:"riderName,omitempty"`
	VehicleType   string              `json:"vehicleType,omitempty"`
	Pickup        *Address            `json:"pickup,omitempty"`
	Dropoff       *Address            `json:"dropoff,omitempty"`
	Items         []Item              `json:"items,omitempty"`
	Fare          decimal.NullDecimal `json:"fare"`
	DistanceKm    *float64            `json:"distanceKm,omitempty"`
	PaymentMethod string              `json:"paymentMethod,omitempty"`
	CreatedAt     *time.Time          `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time          `json:"updatedAt,omitempty"`
}

// ItemsTotal sums quantity times price over all items.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

package vehicle

import (
	"time"

	"github.com/shopspring/decimal"
)

// VehicleType is a configurable class of vehicle with its pricing.
type VehicleType struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	BaseFare  decimal.Decimal `json:"baseFare"`
	PerKmRate decimal.Decimal `json:"perKmRate"`
	Capacity  int             `json:"capacity"`
	Active    bool            `json:"active"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// EstimateFare prices a trip of distanceKm.
func (v VehicleType) EstimateFare(distanceKm decimal.Decimal) decimal.Decimal {
	return v.BaseFare.Add(v.PerKmRate.Mul(distanceKm)).Round(2)
}

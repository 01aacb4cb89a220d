package vehicle

import "github.com/shopspring/decimal"

// UpdateRequest replaces a vehicle type's configuration.
type UpdateRequest struct {
	Name      string          `json:"name" validate:"required,max=60"`
	BaseFare  decimal.Decimal `json:"baseFare"`
	PerKmRate decimal.Decimal `json:"perKmRate"`
	Capacity  int             `json:"capacity" validate:"gte=1,lte=100"`
	Active    *bool           `json:"active" validate:"required"`
}

// validateAmounts checks the money fields the struct tags cannot express.
func (r *UpdateRequest) validateAmounts() map[string]string {
	errs := map[string]string{}
	if r.BaseFare.IsNegative() {
		errs["baseFare"] = "Value must be at least 0"
	}
	if r.PerKmRate.IsNegative() {
		errs["perKmRate"] = "Value must be at least 0"
	}
	if r.BaseFare.Exponent() < -2 {
		errs["baseFare"] = "At most 2 decimal places"
	}
	if r.PerKmRate.Exponent() < -2 {
		errs["perKmRate"] = "At most 2 decimal places"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

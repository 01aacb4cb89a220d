package rider

import "time"

// PageSize is fixed by the platform's admin listing.
const PageSize = 10

// Rider is a delivery rider as listed by the platform.
type Rider struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Status      string     `json:"status,omitempty"`
	VehicleType string     `json:"vehicleType,omitempty"`
	Rating      *float64   `json:"rating,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

// Page is one server-side page of riders.
type Page struct {
	Items []Rider `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}

// ListParams selects a server-side page.
type ListParams struct {
	Page   int
	Limit  int
	Search string
}

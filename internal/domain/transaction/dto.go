package transaction

// ToggleSortRequest toggles the sort on one column.
type ToggleSortRequest struct {
	Key string `json:"key" validate:"required,max=64"`
}

// UpdateViewRequest sets the search text, rider filter and page.
type UpdateViewRequest struct {
	Search  string `json:"search" validate:"max=200"`
	RiderID string `json:"riderId" validate:"max=64"`
	Page    int    `json:"page" validate:"gte=0"`
}

package transaction

import (
	"context"
	"sync"
)

// View is the per-session table selection.
type View struct {
	Search  string    `json:"search"`
	RiderID string    `json:"riderId,omitempty"`
	Page    int       `json:"page"`
	Sort    SortState `json:"sort"`
}

// Result is the derived table the dashboard renders.
type Result struct {
	Items []Transaction `json:"items"`
	View  View          `json:"view"`
	Total int           `json:"total"`
}

// Table holds one session's view state and the currently loaded page.
type Table struct {
	loader *Loader

	mu     sync.Mutex
	view   View
	loaded *Page
}

func NewTable(loader *Loader) *Table {
	return &Table{
		loader: loader,
		view:   View{Page: 1},
	}
}

// View returns the current selection.
func (t *Table) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.view
}

// ToggleSort applies SortState.Toggle to the session's sort.
func (t *Table) ToggleSort(key string) SortState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.Sort = t.view.Sort.Toggle(key)
	return t.view.Sort
}

// SetSort replaces the sort state.
func (t *Table) SetSort(s SortState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.view.Sort = s
}

// SetView updates search, rider filter and page. A rider change resets
// the page to 1.
func (t *Table) SetView(search, riderID string, page int) View {
	t.mu.Lock()
	defer t.mu.Unlock()

	if riderID != t.view.RiderID && page <= 0 {
		page = 1
	}
	if page <= 0 {
		page = t.view.Page
	}

	t.view.Search = search
	t.view.RiderID = riderID
	t.view.Page = page
	return t.view
}

// Refresh re-fetches the page named by the view and returns the derived
// table. A stale fetch leaves the loaded page untouched.
func (t *Table) Refresh(ctx context.Context, token string) (*Result, error) {
	view := t.View()

	page, err := t.loader.Load(ctx, token, ListParams{
		Page:    view.Page,
		Limit:   PageSize,
		RiderID: view.RiderID,
	})
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.loaded = page
	t.mu.Unlock()

	return t.Current(), nil
}

// Current derives the table from the loaded page without fetching.
func (t *Table) Current() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	res := &Result{View: t.view, Items: []Transaction{}}
	if t.loaded == nil {
		return res
	}

	res.Items = Apply(t.loaded.Items, Query{Search: t.view.Search, Sort: t.view.Sort})
	res.Total = t.loaded.Total
	return res
}

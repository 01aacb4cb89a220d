package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedFetcher blocks each call until released, so tests can control
// completion order.
type gatedFetcher struct {
	mu     sync.Mutex
	calls  []ListParams
	gates  map[int]chan struct{}
	pages  map[int]*Page
	err    error
	called chan int
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates:  make(map[int]chan struct{}),
		pages:  make(map[int]*Page),
		called: make(chan int, 8),
	}
}

func (f *gatedFetcher) gate(page int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gates[page]
	if !ok {
		g = make(chan struct{})
		f.gates[page] = g
	}
	return g
}

func (f *gatedFetcher) ListTransactions(ctx context.Context, token string, params ListParams) (*Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, params)
	page := f.pages[params.Page]
	err := f.err
	f.mu.Unlock()

	f.called <- params.Page
	<-f.gate(params.Page)

	if err != nil {
		return nil, err
	}
	return page, nil
}

type staticFetcher struct {
	page   *Page
	err    error
	params ListParams
}

func (f *staticFetcher) ListTransactions(ctx context.Context, token string, params ListParams) (*Page, error) {
	f.params = params
	return f.page, f.err
}

func TestLoaderDiscardsOvertakenResponse(t *testing.T) {
	fetcher := newGatedFetcher()
	fetcher.pages[1] = &Page{Items: []Transaction{{ID: "old"}}, Page: 1}
	fetcher.pages[2] = &Page{Items: []Transaction{{ID: "new"}}, Page: 2}
	loader := NewLoader(fetcher)

	type result struct {
		page *Page
		err  error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)

	go func() {
		p, err := loader.Load(context.Background(), "tok", ListParams{Page: 1})
		first <- result{p, err}
	}()
	<-fetcher.called

	go func() {
		p, err := loader.Load(context.Background(), "tok", ListParams{Page: 2})
		second <- result{p, err}
	}()
	<-fetcher.called

	close(fetcher.gate(2))
	r2 := <-second
	require.NoError(t, r2.err)
	assert.Equal(t, "new", r2.page.Items[0].ID)

	close(fetcher.gate(1))
	r1 := <-first
	assert.ErrorIs(t, r1.err, ErrStaleResponse)
	assert.Nil(t, r1.page)
}

func TestLoaderAppliesDefaults(t *testing.T) {
	fetcher := &staticFetcher{page: &Page{}}
	_, err := NewLoader(fetcher).Load(context.Background(), "tok", ListParams{RiderID: "r1"})
	require.NoError(t, err)

	assert.Equal(t, ListParams{Page: 1, Limit: PageSize, RiderID: "r1"}, fetcher.params)
}

func TestLoaderPassesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewLoader(&staticFetcher{err: boom}).Load(context.Background(), "tok", ListParams{})
	assert.ErrorIs(t, err, boom)
}

func TestTableKeepsSortAcrossRefresh(t *testing.T) {
	fetcher := &staticFetcher{page: &Page{
		Items: []Transaction{
			{ID: "a", Amount: amount(50)},
			{ID: "b", Amount: amount(10)},
			{ID: "c", Amount: amount(30)},
		},
		Total: 3,
		Page:  1,
	}}
	table := NewTable(NewLoader(fetcher))

	table.ToggleSort(KeyAmount)
	res, err := table.Refresh(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, ids(res.Items))

	table.ToggleSort(KeyAmount)
	assert.Equal(t, []string{"a", "c", "b"}, ids(table.Current().Items))
	assert.Equal(t, "a", fetcher.page.Items[0].ID)
}

func TestTableRiderChangeResetsPage(t *testing.T) {
	table := NewTable(NewLoader(&staticFetcher{page: &Page{}}))

	v := table.SetView("", "", 3)
	assert.Equal(t, 3, v.Page)

	v = table.SetView("", "rider-7", 0)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, "rider-7", v.RiderID)

	v = table.SetView("abc", "rider-7", 0)
	assert.Equal(t, 1, v.Page)
	assert.Equal(t, "abc", v.Search)
}

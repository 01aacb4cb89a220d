package transaction

import (
	"context"
	"sync"
)

// Fetcher loads one page of transactions from the platform.
type Fetcher interface {
	ListTransactions(ctx context.Context, token string, params ListParams) (*Page, error)
}

// Loader fetches pages and discards responses overtaken by a newer fetch.
type Loader struct {
	fetcher Fetcher

	mu     sync.Mutex
	latest uint64
}

func NewLoader(fetcher Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Load fetches a page. It returns ErrStaleResponse when another Load
// started after this one, regardless of which finished first.
func (l *Loader) Load(ctx context.Context, token string, params ListParams) (*Page, error) {
	l.mu.Lock()
	l.latest++
	gen := l.latest
	l.mu.Unlock()

	if params.Limit <= 0 {
		params.Limit = PageSize
	}
	if params.Page <= 0 {
		params.Page = 1
	}

	page, err := l.fetcher.ListTransactions(ctx, token, params)

	l.mu.Lock()
	stale := gen != l.latest
	l.mu.Unlock()

	if stale {
		return nil, ErrStaleResponse
	}
	if err != nil {
		return nil, err
	}
	return page, nil
}

package rider

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher lists riders from the platform.
type Fetcher interface {
	ListRiders(ctx context.Context, token string, params ListParams) (*Page, error)
}

// Result is delivered once per settled search.
type Result struct {
	Term   string  `json:"term"`
	Riders []Rider `json:"data"`
	Err    error   `json:"-"`
}

// Search debounces search-as-you-type and delivers only the answer to
// the most recent term.
type Search struct {
	fetcher Fetcher
	delay   time.Duration
	logger  zerolog.Logger

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
}

func NewSearch(fetcher Fetcher, delay time.Duration) *Search {
	return &Search{
		fetcher: fetcher,
		delay:   delay,
		logger:  log.With().Str("component", "rider_search").Logger(),
	}
}

// Query schedules a search for term after the debounce delay. A later
// Query supersedes this one whether or not its fetch has started.
func (s *Search) Query(token, term string, deliver func(Result)) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.gen++
	gen := s.gen

	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.timer = time.AfterFunc(s.delay, func() {
		s.run(gen, token, term, deliver)
	})
}

func (s *Search) run(gen uint64, token, term string, deliver func(Result)) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	defer cancel()

	page, err := s.fetcher.ListRiders(ctx, token, ListParams{Page: 1, Limit: PageSize, Search: term})

	s.mu.Lock()
	current := !s.closed && gen == s.gen
	s.mu.Unlock()

	if !current {
		s.logger.Debug().Str("term", term).Msg("discarding superseded search response")
		return
	}

	res := Result{Term: term, Riders: []Rider{}}
	if err != nil {
		res.Err = err
	} else if page != nil {
		res.Riders = page.Items
	}
	deliver(res)
}

// Close stops pending and in-flight searches. Nothing is delivered after
// Close returns, except a delivery already in progress.
func (s *Search) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
}

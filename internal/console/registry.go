package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rideops/admin-console/internal/domain/broadcast"
	"github.com/rideops/admin-console/internal/domain/notification"
	"github.com/rideops/admin-console/internal/domain/profile"
	"github.com/rideops/admin-console/internal/domain/rider"
	"github.com/rideops/admin-console/internal/domain/transaction"
	"github.com/rideops/admin-console/internal/middleware"
	"github.com/rideops/admin-console/internal/realtime"
	"github.com/rideops/admin-console/internal/session"
)

const (
	defaultDebounce = 300 * time.Millisecond
	defaultSweep    = time.Minute
)

// Fetchers are the platform reads a workspace performs on its own.
type Fetchers interface {
	transaction.Fetcher
	rider.Fetcher
}

// Registry owns the workspaces of all live console sessions.
type Registry struct {
	cfg        realtime.Config
	store      session.Store
	fetchers   Fetchers
	debounce   time.Duration
	sessionTTL time.Duration
	sweepEvery time.Duration
	rtOpts     []realtime.Option

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	workspaces map[string]*Workspace
	closed     bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDebounce sets the rider search debounce.
func WithDebounce(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithSessionTTL sets the TTL used when a refreshed identity is saved
// for a session with no known expiry.
func WithSessionTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.sessionTTL = d
	}
}

// WithSweepInterval sets how often mounted workspaces are checked against
// the session store. Zero disables the sweep.
func WithSweepInterval(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.sweepEvery = d
	}
}

// WithRealtimeOptions passes options to every workspace connection.
func WithRealtimeOptions(opts ...realtime.Option) RegistryOption {
	return func(r *Registry) {
		r.rtOpts = append(r.rtOpts, opts...)
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg realtime.Config, store session.Store, fetchers Fetchers, opts ...RegistryOption) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		cfg:        cfg,
		store:      store,
		fetchers:   fetchers,
		debounce:   defaultDebounce,
		sessionTTL: 24 * time.Hour,
		sweepEvery: defaultSweep,
		ctx:        ctx,
		cancel:     cancel,
		workspaces: make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.sweepEvery > 0 {
		go r.sweepLoop()
	}
	return r
}

// Mount returns the session's workspace, creating and connecting it on
// first use. A known ExpiresAt unmounts the workspace when it passes.
func (r *Registry) Mount(sess session.Session) (*Workspace, error) {
	w, err := r.mount(sess.ID)
	if err != nil {
		return nil, err
	}
	if !sess.ExpiresAt.IsZero() {
		w.expireAt(sess.ExpiresAt, func() { r.expire(sess.ID, w) })
	}
	return w, nil
}

func (r *Registry) mount(sid string) (*Workspace, error) {
	if sid == "" {
		return nil, ErrNoSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if w, ok := r.workspaces[sid]; ok {
		return w, nil
	}

	opts := append([]realtime.Option{
		realtime.WithLogger(log.With().Str("component", "realtime").Str("session_id", sid).Logger()),
	}, r.rtOpts...)
	conn := realtime.NewManager(r.cfg, session.NewIdentitySource(r.store, sid), opts...)

	w := newWorkspace(sid, conn, r.fetchers, r.debounce)
	r.workspaces[sid] = w
	w.start(r.ctx)

	log.Info().Str("session_id", sid).Int("workspaces", len(r.workspaces)).Msg("Workspace mounted")
	return w, nil
}

// Lookup returns the session's workspace without creating one.
func (r *Registry) Lookup(sid string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workspaces[sid]
	return w, ok
}

// Unmount tears down the session's workspace. It reports whether one
// was mounted.
func (r *Registry) Unmount(sid string) bool {
	r.mu.Lock()
	w, ok := r.workspaces[sid]
	delete(r.workspaces, sid)
	r.mu.Unlock()

	if !ok {
		return false
	}
	w.Close()
	log.Info().Str("session_id", sid).Msg("Workspace unmounted")
	return true
}

// expire unmounts w if it is still the session's workspace.
func (r *Registry) expire(sid string, w *Workspace) {
	r.mu.Lock()
	if cur, ok := r.workspaces[sid]; !ok || cur != w {
		r.mu.Unlock()
		return
	}
	delete(r.workspaces, sid)
	r.mu.Unlock()

	w.Close()
	log.Info().Str("session_id", sid).Msg("Workspace expired with its session")
}

func (r *Registry) sweepLoop() {
	ticker := time.NewTicker(r.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

// sweep unmounts workspaces whose session is gone from the store.
func (r *Registry) sweep() {
	r.mu.Lock()
	mounted := make(map[string]*Workspace, len(r.workspaces))
	for sid, w := range r.workspaces {
		mounted[sid] = w
	}
	r.mu.Unlock()

	for sid, w := range mounted {
		_, err := r.store.Load(r.ctx, sid)
		if errors.Is(err, session.ErrNotFound) {
			r.expire(sid, w)
		} else if err != nil && r.ctx.Err() == nil {
			log.Warn().Err(err).Str("session_id", sid).Msg("Session sweep lookup failed")
		}
	}
}

// Len returns the number of mounted workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// Close unmounts every workspace and refuses further mounts.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	all := make([]*Workspace, 0, len(r.workspaces))
	for sid, w := range r.workspaces {
		all = append(all, w)
		delete(r.workspaces, sid)
	}
	r.mu.Unlock()

	r.cancel()

	var wg sync.WaitGroup
	for _, w := range all {
		wg.Add(1)
		go func(w *Workspace) {
			defer wg.Done()
			w.Close()
		}(w)
	}
	wg.Wait()

	log.Info().Int("workspaces", len(all)).Msg("Workspace registry closed")
}

func (r *Registry) current(ctx context.Context) (*Workspace, error) {
	sess, _ := middleware.GetSession(ctx)
	return r.Mount(sess)
}

// Table implements transaction.TableSource.
func (r *Registry) Table(ctx context.Context) (*transaction.Table, error) {
	w, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	return w.Transactions(), nil
}

// Dispatcher implements broadcast.DispatcherSource.
func (r *Registry) Dispatcher(ctx context.Context) (*broadcast.Dispatcher, error) {
	w, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	return w.Dispatcher(), nil
}

// Aggregator implements notification.AggregatorSource.
func (r *Registry) Aggregator(ctx context.Context) (*notification.Aggregator, error) {
	w, err := r.current(ctx)
	if err != nil {
		return nil, err
	}
	return w.Notifications(), nil
}

// RefreshIdentity rewrites the cached identity after a profile change.
func (r *Registry) RefreshIdentity(ctx context.Context, p *profile.Profile) error {
	sess, ok := middleware.GetSession(ctx)
	if !ok || sess.ID == "" {
		return ErrNoSession
	}

	sess.User = userFromProfile(p)

	ttl := time.Until(sess.ExpiresAt)
	if sess.ExpiresAt.IsZero() || ttl <= 0 {
		ttl = r.sessionTTL
	}
	return r.store.Save(ctx, sess, ttl)
}

func userFromProfile(p *profile.Profile) session.User {
	return session.User{
		ID:    p.ID,
		Name:  p.Name,
		Email: p.Email,
		Role:  p.Role,
	}
}

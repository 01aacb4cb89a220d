package console

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rideops/admin-console/internal/domain/broadcast"
	"github.com/rideops/admin-console/internal/domain/notification"
	"github.com/rideops/admin-console/internal/domain/rider"
	"github.com/rideops/admin-console/internal/domain/transaction"
	"github.com/rideops/admin-console/internal/realtime"
)

// statusEvents change what Connected reports.
var statusEvents = []string{
	realtime.EventConnect,
	realtime.EventReconnect,
	realtime.EventDisconnect,
	realtime.EventReconnectFailed,
}

// Workspace is everything one signed-in admin session owns: the real-time
// connection and the state built on top of it.
type Workspace struct {
	id     string
	logger zerolog.Logger

	conn          *realtime.Manager
	dispatcher    *broadcast.Dispatcher
	notifications *notification.Aggregator
	transactions  *transaction.Table
	fetchers      Fetchers
	debounce      time.Duration

	detach    func()
	lifecycle []*realtime.Subscription

	watchMu   sync.Mutex
	watchers  map[uint64]func(bool)
	nextWatch uint64

	expiryMu sync.Mutex
	expiry   *time.Timer

	done      chan struct{}
	closeOnce sync.Once
}

func newWorkspace(id string, conn *realtime.Manager, fetchers Fetchers, debounce time.Duration) *Workspace {
	w := &Workspace{
		id:            id,
		logger:        log.With().Str("component", "workspace").Str("session_id", id).Logger(),
		conn:          conn,
		dispatcher:    broadcast.NewDispatcher(conn),
		notifications: notification.NewAggregator(),
		transactions:  transaction.NewTable(transaction.NewLoader(fetchers)),
		fetchers:      fetchers,
		debounce:      debounce,
		watchers:      make(map[uint64]func(bool)),
		done:          make(chan struct{}),
	}

	w.detach = w.notifications.Attach(conn)
	for _, event := range statusEvents {
		w.lifecycle = append(w.lifecycle, conn.On(event, func(json.RawMessage) {
			w.notifyStatus()
		}))
	}

	return w
}

// start connects in the background. A failed first attempt is retried
// by the connection itself.
func (w *Workspace) start(ctx context.Context) {
	go func() {
		info, err := w.conn.Connect(ctx)
		if err != nil {
			w.logger.Warn().Err(err).Str("status", string(info.Status)).Msg("Workspace connect failed")
			return
		}
		w.logger.Info().Str("sid", info.SessionID).Str("transport", info.Transport).Msg("Workspace connected")
	}()
}

// expireAt arms fn to run when the session expires. A later call moves
// the deadline.
func (w *Workspace) expireAt(at time.Time, fn func()) {
	w.expiryMu.Lock()
	defer w.expiryMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	if w.expiry == nil {
		w.expiry = time.AfterFunc(d, fn)
		return
	}
	w.expiry.Reset(d)
}

// ID returns the owning console session id.
func (w *Workspace) ID() string { return w.id }

// Connection returns the real-time connection.
func (w *Workspace) Connection() *realtime.Manager { return w.conn }

// Dispatcher returns the broadcast dispatcher.
func (w *Workspace) Dispatcher() *broadcast.Dispatcher { return w.dispatcher }

// Notifications returns the notification aggregator.
func (w *Workspace) Notifications() *notification.Aggregator { return w.notifications }

// Transactions returns the transaction table.
func (w *Workspace) Transactions() *transaction.Table { return w.transactions }

// NewRiderSearch returns a debounced rider search for one browser.
// The caller closes it.
func (w *Workspace) NewRiderSearch() *rider.Search {
	return rider.NewSearch(w.fetchers, w.debounce)
}

// Done is closed when the workspace is closed.
func (w *Workspace) Done() <-chan struct{} { return w.done }

// OnStatusChange registers fn to be called with the connected flag after
// every connection lifecycle event. The returned func unregisters it.
func (w *Workspace) OnStatusChange(fn func(connected bool)) func() {
	w.watchMu.Lock()
	w.nextWatch++
	id := w.nextWatch
	w.watchers[id] = fn
	w.watchMu.Unlock()

	return func() {
		w.watchMu.Lock()
		delete(w.watchers, id)
		w.watchMu.Unlock()
	}
}

func (w *Workspace) notifyStatus() {
	connected := w.conn.Connected()

	w.watchMu.Lock()
	fns := make([]func(bool), 0, len(w.watchers))
	for _, fn := range w.watchers {
		fns = append(fns, fn)
	}
	w.watchMu.Unlock()

	for _, fn := range fns {
		fn(connected)
	}
}

// Close disconnects and releases every listener the workspace registered.
func (w *Workspace) Close() {
	w.closeOnce.Do(func() {
		w.expiryMu.Lock()
		if w.expiry != nil {
			w.expiry.Stop()
		}
		w.expiryMu.Unlock()

		w.conn.Disconnect()

		for _, s := range w.lifecycle {
			s.Release()
		}
		w.detach()
		w.notifications.Close()

		w.watchMu.Lock()
		clear(w.watchers)
		w.watchMu.Unlock()

		close(w.done)
		w.logger.Info().Msg("Workspace closed")
	})
}

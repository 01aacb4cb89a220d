package notification

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rideops/admin-console/internal/realtime"
)

// Source is the connection the aggregator listens on.
type Source interface {
	On(event string, fn realtime.Handler) *realtime.Subscription
}

// Aggregator keeps the newest notifications, capped at MaxItems.
type Aggregator struct {
	logger zerolog.Logger
	now    func() time.Time

	// notifyMu orders delivery so subscribers see snapshots in mutation order.
	notifyMu sync.Mutex
	mu       sync.Mutex
	items    []Notification

	bindMu  sync.Mutex
	binding []*realtime.Subscription

	watchMu  sync.Mutex
	watchers []watcher
	nextID   uint64
}

type watcher struct {
	id uint64
	fn func([]Notification)
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		logger: log.With().Str("component", "notifications").Logger(),
		now:    time.Now,
	}
}

// Attach binds the inbound event listeners to src. Bindings to a
// previous source are released first. The returned func releases the
// new bindings.
func (a *Aggregator) Attach(src Source) func() {
	subs := make([]*realtime.Subscription, 0, 3)
	for _, name := range []string{EventMessage, EventOrderUpdate, EventRiderUpdate} {
		name := name
		subs = append(subs, src.On(name, func(data json.RawMessage) {
			a.handle(name, data)
		}))
	}

	a.bindMu.Lock()
	prev := a.binding
	a.binding = subs
	a.bindMu.Unlock()

	for _, s := range prev {
		s.Release()
	}

	return func() {
		for _, s := range subs {
			s.Release()
		}
		a.bindMu.Lock()
		if len(a.binding) > 0 && len(subs) > 0 && a.binding[0] == subs[0] {
			a.binding = nil
		}
		a.bindMu.Unlock()
	}
}

// Close releases the current bindings and drops all change subscribers.
func (a *Aggregator) Close() {
	a.bindMu.Lock()
	subs := a.binding
	a.binding = nil
	a.bindMu.Unlock()

	for _, s := range subs {
		s.Release()
	}

	a.watchMu.Lock()
	a.watchers = nil
	a.watchMu.Unlock()
}

func (a *Aggregator) handle(name string, data json.RawMessage) {
	ev, err := Decode(name, data)
	if err != nil {
		a.logger.Warn().Err(err).Msg("dropping inbound event")
		return
	}
	a.Push(ev)
}

// Push records a decoded event.
func (a *Aggregator) Push(ev Event) Notification {
	return a.Add(ev.Text(), ev.Category())
}

// Add prepends a notification and truncates the list to MaxItems.
func (a *Aggregator) Add(message string, category Category) Notification {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	n := Notification{
		ID:        id,
		Message:   message,
		Category:  category,
		Timestamp: a.now(),
	}

	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	items := make([]Notification, 0, MaxItems)
	items = append(items, n)
	items = append(items, a.items...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	a.items = items
	snapshot := slices.Clone(a.items)
	a.mu.Unlock()

	a.logger.Debug().
		Str("category", string(category)).
		Str("message", message).
		Msg("notification added")

	a.notify(snapshot)
	return n
}

// List returns a copy of the notifications, newest first.
func (a *Aggregator) List() []Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.items)
}

// Remove deletes one notification.
func (a *Aggregator) Remove(id uuid.UUID) error {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	idx := slices.IndexFunc(a.items, func(n Notification) bool { return n.ID == id })
	if idx < 0 {
		a.mu.Unlock()
		return ErrNotificationNotFound
	}
	a.items = slices.Delete(slices.Clone(a.items), idx, idx+1)
	snapshot := slices.Clone(a.items)
	a.mu.Unlock()

	a.notify(snapshot)
	return nil
}

// Clear empties the list.
func (a *Aggregator) Clear() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	a.items = nil
	a.mu.Unlock()

	a.notify([]Notification{})
}

// OnChange registers fn to receive a snapshot after every mutation.
// fn must not mutate the aggregator. The returned func unregisters it.
func (a *Aggregator) OnChange(fn func([]Notification)) func() {
	a.watchMu.Lock()
	a.nextID++
	id := a.nextID
	a.watchers = append(a.watchers, watcher{id: id, fn: fn})
	a.watchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.watchMu.Lock()
			defer a.watchMu.Unlock()
			a.watchers = slices.DeleteFunc(a.watchers, func(w watcher) bool { return w.id == id })
		})
	}
}

func (a *Aggregator) notify(snapshot []Notification) {
	a.watchMu.Lock()
	fns := make([]func([]Notification), 0, len(a.watchers))
	for _, w := range a.watchers {
		fns = append(fns, w.fn)
	}
	a.watchMu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

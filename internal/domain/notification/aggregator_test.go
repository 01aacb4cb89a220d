package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideops/admin-console/internal/realtime"
)

// fakeSource records listeners and lets tests fire events.
type fakeSource struct {
	mu        sync.Mutex
	listeners map[string][]realtime.Handler
	released  int
}

func newFakeSource() *fakeSource {
	return &fakeSource{listeners: make(map[string][]realtime.Handler)}
}

func (s *fakeSource) On(event string, fn realtime.Handler) *realtime.Subscription {
	s.mu.Lock()
	s.listeners[event] = append(s.listeners[event], fn)
	idx := len(s.listeners[event]) - 1
	s.mu.Unlock()

	return realtime.NewSubscription(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.listeners[event][idx] = nil
		s.released++
	})
}

func (s *fakeSource) fire(event, data string) {
	s.mu.Lock()
	fns := append([]realtime.Handler(nil), s.listeners[event]...)
	s.mu.Unlock()
	for _, fn := range fns {
		if fn != nil {
			fn(json.RawMessage(data))
		}
	}
}

func (s *fakeSource) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, fns := range s.listeners {
		for _, fn := range fns {
			if fn != nil {
				n++
			}
		}
	}
	return n
}

func TestOrderUpdateBecomesSuccessNotification(t *testing.T) {
	src := newFakeSource()
	agg := NewAggregator()
	defer agg.Close()
	agg.Attach(src)

	src.fire(EventOrderUpdate, `{"orderId":"X1"}`)

	list := agg.List()
	require.Len(t, list, 1)
	assert.Contains(t, list[0].Message, "X1")
	assert.Equal(t, CategorySuccess, list[0].Category)
}

func TestListIsCappedNewestFirst(t *testing.T) {
	agg := NewAggregator()

	for i := 1; i <= 7; i++ {
		agg.Add(fmt.Sprintf("n%d", i), CategoryInfo)
		assert.Len(t, agg.List(), min(MaxItems, i))
		assert.Equal(t, fmt.Sprintf("n%d", i), agg.List()[0].Message)
	}

	msgs := []string{}
	for _, n := range agg.List() {
		msgs = append(msgs, n.Message)
	}
	assert.Equal(t, []string{"n7", "n6", "n5", "n4", "n3"}, msgs)
}

func TestIDsAreTimeOrdered(t *testing.T) {
	agg := NewAggregator()
	a := agg.Add("a", CategoryInfo)
	b := agg.Add("b", CategoryInfo)

	assert.Equal(t, uuid.Version(7), a.ID.Version())
	assert.Less(t, a.ID.String(), b.ID.String())
}

func TestListReturnsCopy(t *testing.T) {
	agg := NewAggregator()
	agg.Add("a", CategoryInfo)

	list := agg.List()
	list[0].Message = "mutated"
	assert.Equal(t, "a", agg.List()[0].Message)
}

func TestRemoveAndClear(t *testing.T) {
	agg := NewAggregator()
	a := agg.Add("a", CategoryInfo)
	agg.Add("b", CategoryWarning)

	require.NoError(t, agg.Remove(a.ID))
	assert.Len(t, agg.List(), 1)
	assert.ErrorIs(t, agg.Remove(a.ID), ErrNotificationNotFound)

	agg.Clear()
	assert.Empty(t, agg.List())
}

func TestReattachReleasesPreviousSource(t *testing.T) {
	first := newFakeSource()
	second := newFakeSource()
	agg := NewAggregator()

	agg.Attach(first)
	assert.Equal(t, 3, first.active())

	release := agg.Attach(second)
	assert.Equal(t, 0, first.active())
	assert.Equal(t, 3, second.active())

	first.fire(EventMessage, `{"message":"ignored"}`)
	assert.Empty(t, agg.List())

	release()
	release()
	assert.Equal(t, 0, second.active())
}

func TestCloseReleasesBindings(t *testing.T) {
	src := newFakeSource()
	agg := NewAggregator()
	agg.Attach(src)

	agg.Close()
	assert.Equal(t, 0, src.active())
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	agg := NewAggregator()

	var got [][]Notification
	stop := agg.OnChange(func(list []Notification) { got = append(got, list) })

	agg.Add("a", CategoryInfo)
	agg.Add("b", CategoryInfo)
	agg.Clear()
	stop()
	agg.Add("c", CategoryInfo)

	require.Len(t, got, 3)
	assert.Len(t, got[0], 1)
	assert.Len(t, got[1], 2)
	assert.Empty(t, got[2])
}

type fixedAggregators struct{ agg *Aggregator }

func (f fixedAggregators) Aggregator(context.Context) (*Aggregator, error) { return f.agg, nil }

func TestOnChangeLastSnapshotMatchesList(t *testing.T) {
	agg := NewAggregator()

	var (
		mu   sync.Mutex
		last []Notification
	)
	agg.OnChange(func(items []Notification) {
		mu.Lock()
		last = items
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			agg.Add(fmt.Sprintf("n%d", i), CategoryInfo)
		}(i)
		go func() {
			defer wg.Done()
			agg.Clear()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(agg.List()), len(last))
	for i, n := range agg.List() {
		assert.Equal(t, n.ID, last[i].ID)
	}
}

func TestHandlerListAndDelete(t *testing.T) {
	agg := NewAggregator()
	n := agg.Add("Order X1 updated", CategorySuccess)
	router := NewHandler(fixedAggregators{agg: agg}).Routes()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "Order X1 updated"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/"+n.ID.String(), nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/"+n.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	agg.Add("x", CategoryInfo)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, agg.List())
}

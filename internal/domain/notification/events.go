package notification

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Inbound socket event names the aggregator listens to.
const (
	EventMessage     = "message"
	EventOrderUpdate = "orderUpdate"
	EventRiderUpdate = "riderUpdate"
)

// Event is a decoded inbound event. The set of implementations is closed.
type Event interface {
	Category() Category
	Text() string
	event()
}

// MessageEvent is a free-form message from the platform.
type MessageEvent struct {
	Body *string
	From *string
}

// OrderUpdateEvent reports an order state change.
type OrderUpdateEvent struct {
	OrderID *string
	Status  *string
}

// RiderUpdateEvent reports a rider state change.
type RiderUpdateEvent struct {
	RiderID *string
	Name    *string
	Status  *string
}

func (MessageEvent) event()     {}
func (OrderUpdateEvent) event() {}
func (RiderUpdateEvent) event() {}

func (MessageEvent) Category() Category     { return CategoryInfo }
func (OrderUpdateEvent) Category() Category { return CategorySuccess }
func (RiderUpdateEvent) Category() Category { return CategoryWarning }

func (e MessageEvent) Text() string {
	if e.Body == nil {
		return "New message received"
	}
	if e.From != nil {
		return fmt.Sprintf("%s: %s", *e.From, *e.Body)
	}
	return *e.Body
}

func (e OrderUpdateEvent) Text() string {
	var b strings.Builder
	b.WriteString("Order ")
	if e.OrderID != nil {
		b.WriteString(*e.OrderID)
		b.WriteString(" ")
	}
	b.WriteString("updated")
	if e.Status != nil {
		b.WriteString(": ")
		b.WriteString(*e.Status)
	}
	return b.String()
}

func (e RiderUpdateEvent) Text() string {
	var b strings.Builder
	b.WriteString("Rider ")
	switch {
	case e.Name != nil && e.RiderID != nil:
		fmt.Fprintf(&b, "%s (%s) ", *e.Name, *e.RiderID)
	case e.Name != nil:
		b.WriteString(*e.Name + " ")
	case e.RiderID != nil:
		b.WriteString(*e.RiderID + " ")
	}
	b.WriteString("updated")
	if e.Status != nil {
		b.WriteString(": ")
		b.WriteString(*e.Status)
	}
	return b.String()
}

// Decode turns a raw payload into a typed event. Payloads of any JSON
// shape are accepted; missing fields stay nil.
func Decode(name string, data json.RawMessage) (Event, error) {
	switch name {
	case EventMessage:
		if gjson.ValidBytes(data) {
			if s := scalar(gjson.ParseBytes(data)); s != nil {
				return MessageEvent{Body: s}, nil
			}
		}
		return MessageEvent{
			Body: first(data, "message", "text", "content", "body"),
			From: first(data, "from", "sender", "senderName"),
		}, nil
	case EventOrderUpdate:
		return OrderUpdateEvent{
			OrderID: first(data, "orderId", "order_id", "id", "order.id"),
			Status:  first(data, "status", "order.status"),
		}, nil
	case EventRiderUpdate:
		return RiderUpdateEvent{
			RiderID: first(data, "riderId", "rider_id", "id", "rider.id"),
			Name:    first(data, "name", "riderName", "rider.name"),
			Status:  first(data, "status", "rider.status"),
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// first returns the first non-empty scalar found at paths.
func first(data json.RawMessage, paths ...string) *string {
	if !gjson.ValidBytes(data) {
		return nil
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil
	}
	for _, p := range paths {
		if s := scalar(root.Get(p)); s != nil {
			return s
		}
	}
	return nil
}

func scalar(r gjson.Result) *string {
	switch r.Type {
	case gjson.String, gjson.Number, gjson.True, gjson.False:
		s := strings.TrimSpace(r.String())
		if s == "" {
			return nil
		}
		return &s
	}
	return nil
}

package broadcast

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Audience is a role-based channel on the socket server.
type Audience string

const (
	AudienceAll       Audience = "all"
	AudienceRiders    Audience = "riders"
	AudienceCustomers Audience = "customers"
	AudienceAdmin     Audience = "admin"
)

var events = map[Audience]string{
	AudienceAll:       "sendToAll",
	AudienceRiders:    "sendToRiders",
	AudienceCustomers: "sendToCustomers",
	AudienceAdmin:     "sendToAdmin",
}

// Event returns the socket event name for the audience.
func (a Audience) Event() (string, bool) {
	e, ok := events[a]
	return e, ok
}

// Emitter is the connection the dispatcher sends through.
type Emitter interface {
	Connected() bool
	Emit(event string, payload any) error
}

// Dispatcher sends fire-and-forget messages to audience channels.
// Messages sent while disconnected are dropped.
type Dispatcher struct {
	conn   Emitter
	logger zerolog.Logger
}

func NewDispatcher(conn Emitter) *Dispatcher {
	return &Dispatcher{
		conn:   conn,
		logger: log.With().Str("component", "broadcast").Logger(),
	}
}

func (d *Dispatcher) SendToAll(message string) bool {
	return d.Send(AudienceAll, message)
}

func (d *Dispatcher) SendToRiders(message string) bool {
	return d.Send(AudienceRiders, message)
}

func (d *Dispatcher) SendToCustomers(message string) bool {
	return d.Send(AudienceCustomers, message)
}

func (d *Dispatcher) SendToAdmin(message string) bool {
	return d.Send(AudienceAdmin, message)
}

// Send emits message to the audience at most once and reports whether it
// was handed to the connection.
func (d *Dispatcher) Send(audience Audience, message string) bool {
	event, ok := audience.Event()
	if !ok {
		d.logger.Warn().Str("audience", string(audience)).Msg("unknown audience, message dropped")
		return false
	}

	if d.conn == nil || !d.conn.Connected() {
		d.logger.Debug().Str("event", event).Msg("not connected, message dropped")
		return false
	}

	if err := d.conn.Emit(event, message); err != nil {
		d.logger.Warn().Err(err).Str("event", event).Msg("broadcast send failed")
		return false
	}
	return true
}

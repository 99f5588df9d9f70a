package device

import (
	"context"
	"time"
)

// Transport is the provider-agnostic telephony boundary.
//
// Rules (same discipline as the dispatch/upload adapters):
//   - No provider SDK calls outside transport adapters.
//   - Adapters translate provider events into Event values and make no
//     call-lifecycle decisions; those belong to the controller and the
//     session machine.
type Transport interface {
	// Register pre-warms the provider connection for the given identity so
	// the first call connects with minimal latency. Must be safe to call
	// more than once.
	Register(ctx context.Context, identity string) error

	// Connect opens an outbound connection. Lifecycle events arrive on the
	// returned connection's Events channel in provider order; the channel is
	// closed after a terminal event.
	Connect(ctx context.Context, params ConnectParams) (Conn, error)

	// Reject declines an inbound call at the provider without answering it.
	Reject(ctx context.Context, providerCallID string) error
}

// Conn is one live provider connection.
type Conn interface {
	// ID is the provider's call identifier (e.g. a CallSid).
	ID() string

	// SendDigits forwards a DTMF tone. Valid tones: 0-9, *, #, w (pause).
	SendDigits(digits string) error

	// Disconnect hangs up. Idempotent.
	Disconnect() error

	// Events yields lifecycle events in arrival order.
	Events() <-chan Event
}

// ConnectParams tags the outbound connection with routing context so the
// provider webhook side can associate it with a back-office entity.
type ConnectParams struct {
	WorkspaceID string
	From        string
	To          string

	EntityType string // lead, owner, vendor; optional
	EntityID   string
}

// EventKind mirrors the provider lifecycle: ringing, accepted, disconnected, error.
type EventKind string

const (
	EventRinging      EventKind = "ringing"
	EventAccepted     EventKind = "accepted"
	EventDisconnected EventKind = "disconnected"
	EventError        EventKind = "error"
)

type Event struct {
	Kind       EventKind
	Reason     string // populated for EventError
	OccurredAt time.Time
}

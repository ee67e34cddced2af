// Package bus provides the in-process message bus connecting the engine
// to its transport and telemetry collaborators.
//
// The supervisor publishes lifecycle events and emitted envelopes here;
// transports subscribe and forward them to the peer. Keeping the seam at
// the bus means the engine never knows which transport is attached.
package bus

import "context"

// MessageCategory represents message routing categories.
type MessageCategory string

const (
	// MessageCategoryEvent is fire-and-forget, fanned out to all subscribers.
	MessageCategoryEvent MessageCategory = "event"
	// MessageCategoryQuery is request-response with a single handler.
	MessageCategoryQuery MessageCategory = "query"
	// MessageCategoryCommand is fire-and-forget with a single handler.
	MessageCategoryCommand MessageCategory = "command"
)

// Message is anything routable on the bus.
type Message interface {
	Category() string
}

// Query marks messages expecting a synchronous response.
type Query interface {
	Message
	IsQuery()
}

// HandlerFunc processes one message. Event subscribers ignore the return
// value; query handlers return the response.
type HandlerFunc func(ctx context.Context, message Message) (any, error)

// Middleware intercepts bus traffic for cross-cutting concerns.
type Middleware interface {
	// Before runs ahead of delivery. Returning nil aborts the message.
	Before(ctx context.Context, message Message) (Message, error)
	// After runs once delivery settles, in reverse registration order.
	After(ctx context.Context, message Message, result any, err error) (any, error)
}

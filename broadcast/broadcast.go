package broadcast

import "context"

// Kind identifies the message type on the bus. Logout is the only one.
type Kind string

const KindLogout Kind = "LOGOUT"

// Event is the wire payload. Origin identifies the publishing bus so that
// subscribers can discard their own messages and avoid a broadcast loop.
type Event struct {
	Origin string `json:"origin"`
	Kind   Kind   `json:"kind"`
}

// Handler receives events published by other origins. The publishing bus
// never delivers an event to its own handlers.
type Handler func(Event)

// Bus is a fire-and-forget fan-out channel between admin console instances.
// There is no replay and no delivery guarantee; an instance that misses a
// logout broadcast discovers it on its next 401.
type Bus interface {
	// Origin returns this bus instance's identity.
	Origin() string
	// Publish fans the event out to every other subscribed instance.
	Publish(ctx context.Context, kind Kind) error
	// Subscribe registers a handler and returns its remove function.
	Subscribe(h Handler) func()
	// Close detaches the bus from its underlying channel.
	Close() error
}

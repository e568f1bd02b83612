package bus

import (
	"errors"
	"time"
)

// Handler is a callback invoked once per delivered event. A returned error is
// logged and counted by the bus but never reaches the publisher.
type Handler func(event *Event) error

// Subscription is the token returned by Subscribe. Use Cancel or Bus.Unsubscribe
// to stop receiving events.
type Subscription interface {
	// ID is a unique identifier for this subscription.
	ID() string
	// EventType returns the event type this subscription listens to.
	EventType() EventType
	// Priority returns the ordering key; higher values fire first.
	Priority() int
	// IsActive reports whether the handler would still be invoked.
	IsActive() bool
	// Cancel de-registers the handler from the bus. Multiple calls are safe.
	Cancel() error
}

// Observer is notified about publishes and deliveries. Observers run on the
// publishing goroutine and should return quickly.
type Observer interface {
	OnPublish(event *Event, queued bool)
	OnDelivered(event *Event, handlers int, err error, took time.Duration)
}

// Metrics is a snapshot of the bus counters.
type Metrics struct {
	Published uint64
	Queued    uint64
	Delivered uint64
	Failures  uint64
	Pruned    uint64
	Consumed  uint64
}

var (
	ErrNilHandler   = errors.New("bus: nil handler")
	ErrHandlerPanic = errors.New("bus: handler panicked")
	ErrInvalidType  = errors.New("bus: invalid event type")
)

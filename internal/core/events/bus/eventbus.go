package bus

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/gamecore/internal/core/observability/log"
	"github.com/zeusync/gamecore/pkg/sequence"
)

// subscription is one entry of a per-type handler list.
type subscription struct {
	bus       *Bus
	id        string
	eventType EventType
	priority  int
	once      bool
	handler   Handler
	alive     func() bool
	owner     any
	dead      bool
}

func (s *subscription) ID() string           { return s.id }
func (s *subscription) EventType() EventType { return s.eventType }
func (s *subscription) Priority() int        { return s.priority }

func (s *subscription) IsActive() bool {
	return !s.dead && (s.alive == nil || s.alive())
}

func (s *subscription) Cancel() error {
	if s.dead {
		return nil
	}
	s.dead = true
	s.bus.markDirty(s.eventType)
	return nil
}

// SubOption customizes a subscription.
type SubOption func(*subscription)

// Priority sets the ordering key. Higher priorities fire first; equal
// priorities fire in subscription order.
func Priority(p int) SubOption {
	return func(s *subscription) { s.priority = p }
}

// Once removes the handler after its first invocation, whether it failed or not.
func Once() SubOption {
	return func(s *subscription) { s.once = true }
}

// Liveness ties the subscription to an external lifetime. Once alive reports
// false the entry is skipped and pruned on the next dispatch.
func Liveness(alive func() bool) SubOption {
	return func(s *subscription) { s.alive = alive }
}

// Option configures a Bus.
type Option func(*Bus)

func WithLogger(l log.Log) Option {
	return func(b *Bus) { b.log = l }
}

// Bus is a synchronous, single-threaded publish/subscribe hub. Events published
// while a dispatch is in flight are queued and delivered in FIFO order once the
// current event has reached all of its handlers.
//
// Bus is not safe for concurrent use.
type Bus struct {
	log log.Log

	handlers    [][]*subscription // indexed by EventType
	dirty       map[EventType]struct{}
	pending     *sequence.Queue[*Event]
	dispatching bool

	observers map[Observer]struct{}
	metrics   Metrics
}

func New(opts ...Option) *Bus {
	b := &Bus{
		log:       log.NewNop(),
		dirty:     make(map[EventType]struct{}),
		pending:   sequence.NewQueue[*Event](16),
		observers: make(map[Observer]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.With(log.String("component", "event_bus"))
	return b
}

// Subscribe registers handler for events of type t.
func (b *Bus) Subscribe(t EventType, handler Handler, opts ...SubOption) (Subscription, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, t)
	}
	s := &subscription{
		bus:       b,
		id:        uuid.NewString(),
		eventType: t,
		handler:   handler,
	}
	for _, opt := range opts {
		opt(s)
	}
	b.insert(s)
	return s, nil
}

func (b *Bus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

// Publish builds an Event from data and delivers it. The returned Event lets the
// caller inspect Consumed once delivery finished, unless it was queued.
func (b *Bus) Publish(t EventType, data map[string]any) *Event {
	return b.PublishEvent(NewEvent(t, data))
}

func (b *Bus) PublishEvent(event *Event) *Event {
	b.metrics.Published++
	if b.dispatching {
		b.metrics.Queued++
		b.pending.Enqueue(event)
		b.notifyPublish(event, true)
		return event
	}

	b.notifyPublish(event, false)
	b.dispatch(event)
	for {
		next, ok := b.pending.Dequeue()
		if !ok {
			break
		}
		b.dispatch(next)
	}
	return event
}

// Clear drops every subscription of type t.
func (b *Bus) Clear(t EventType) {
	if int(t) >= len(b.handlers) {
		return
	}
	for _, s := range b.handlers[t] {
		s.dead = true
	}
	b.handlers[t] = nil
}

// ClearAll drops every subscription. Events already queued behind the
// current dispatch are still delivered, to whoever subscribes before they
// are dequeued.
func (b *Bus) ClearAll() {
	for t := range b.handlers {
		b.Clear(EventType(t))
	}
}

// HandlerCount returns the number of registered, uncancelled handlers for t.
// Weak handlers whose owner is gone still count until the next dispatch prunes them.
func (b *Bus) HandlerCount(t EventType) int {
	if int(t) >= len(b.handlers) {
		return 0
	}
	n := 0
	for _, s := range b.handlers[t] {
		if !s.dead {
			n++
		}
	}
	return n
}

func (b *Bus) Dispatching() bool {
	return b.dispatching
}

// Pending returns the number of events waiting behind the current dispatch.
func (b *Bus) Pending() int {
	return b.pending.Len()
}

func (b *Bus) AddObserver(obs Observer) {
	b.observers[obs] = struct{}{}
}

func (b *Bus) RemoveObserver(obs Observer) {
	delete(b.observers, obs)
}

func (b *Bus) Metrics() Metrics {
	return b.metrics
}

func (b *Bus) insert(s *subscription) {
	if need := int(s.eventType) + 1; need > len(b.handlers) {
		grown := make([][]*subscription, need)
		copy(grown, b.handlers)
		b.handlers = grown
	}

	list := b.handlers[s.eventType]
	at := len(list)
	for i, other := range list {
		if other.priority < s.priority {
			at = i
			break
		}
	}
	list = append(list, nil)
	copy(list[at+1:], list[at:])
	list[at] = s
	b.handlers[s.eventType] = list
}

func (b *Bus) markDirty(t EventType) {
	b.dirty[t] = struct{}{}
	if !b.dispatching {
		b.compact()
	}
}

// compact removes dead entries from every list touched since the last pass.
func (b *Bus) compact() {
	for t := range b.dirty {
		if int(t) < len(b.handlers) {
			list := b.handlers[t]
			kept := list[:0]
			for _, s := range list {
				if !s.dead {
					kept = append(kept, s)
				}
			}
			for i := len(kept); i < len(list); i++ {
				list[i] = nil
			}
			b.handlers[t] = kept
		}
		delete(b.dirty, t)
	}
}

func (b *Bus) dispatch(event *Event) {
	start := time.Now()
	b.dispatching = true
	defer func() { b.dispatching = false }()

	var snapshot []*subscription
	if int(event.Type) < len(b.handlers) {
		snapshot = append(snapshot, b.handlers[event.Type]...)
	}

	delivered := 0
	var all error
	for _, s := range snapshot {
		if s.dead {
			continue
		}
		if s.alive != nil && !s.alive() {
			s.dead = true
			b.metrics.Pruned++
			b.dirty[event.Type] = struct{}{}
			continue
		}

		delivered++
		if err := b.invoke(s, event); err != nil {
			b.metrics.Failures++
			all = errors.Join(all, err)
			b.log.Error("event handler failed",
				log.String("event", event.Type.String()),
				log.String("subscription", s.id),
				log.Error(err),
			)
		}
		if s.once && !s.dead {
			s.dead = true
			b.dirty[event.Type] = struct{}{}
		}
		if event.consumed {
			b.metrics.Consumed++
			break
		}
	}
	b.metrics.Delivered += uint64(delivered)

	b.compact()
	b.notifyDelivered(event, delivered, all, time.Since(start))
}

func (b *Bus) invoke(s *subscription, event *Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return s.handler(event)
}

func (b *Bus) notifyPublish(event *Event, queued bool) {
	for obs := range b.observers {
		obs.OnPublish(event, queued)
	}
}

func (b *Bus) notifyDelivered(event *Event, handlers int, err error, took time.Duration) {
	for obs := range b.observers {
		obs.OnDelivered(event, handlers, err, took)
	}
}

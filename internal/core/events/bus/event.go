package bus

import (
	"fmt"
	"time"
)

// Event is the unit of delivery. Data is immutable by convention; the consumed
// flag is the only state handlers are expected to change.
type Event struct {
	Type      EventType
	Data      map[string]any
	Timestamp time.Time

	consumed bool
}

func NewEvent(t EventType, data map[string]any) *Event {
	if data == nil {
		data = map[string]any{}
	}
	return &Event{Type: t, Data: data, Timestamp: time.Now()}
}

// Consume stops delivery to lower-priority handlers of this event.
func (e *Event) Consume() {
	e.consumed = true
}

func (e *Event) Consumed() bool {
	return e.consumed
}

func (e *Event) Get(key string) (any, bool) {
	v, ok := e.Data[key]
	return v, ok
}

func (e *Event) String() string {
	return fmt.Sprintf("Event(%s, %v)", e.Type, e.Data)
}

// Value returns Data[key] as T. ok is false when the key is missing or holds another type.
func Value[T any](e *Event, key string) (T, bool) {
	v, ok := e.Data[key].(T)
	return v, ok
}

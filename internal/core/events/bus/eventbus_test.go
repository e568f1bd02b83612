package bus

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/gamecore/internal/core/observability/log"
)

var (
	testPing  = NewType("test.ping")
	testPong  = NewType("test.pong")
	testChain = NewType("test.chain")
	testLeaf  = NewType("test.leaf")
)

type testObserver struct {
	published int
	queued    int
	delivered int
	lastErr   error
}

func (o *testObserver) OnPublish(_ *Event, queued bool) {
	o.published++
	if queued {
		o.queued++
	}
}

func (o *testObserver) OnDelivered(_ *Event, handlers int, err error, _ time.Duration) {
	o.delivered += handlers
	o.lastErr = err
}

func record(out *[]string, tag string) Handler {
	return func(*Event) error {
		*out = append(*out, tag)
		return nil
	}
}

func mustSubscribe(t *testing.T, b *Bus, et EventType, h Handler, opts ...SubOption) Subscription {
	t.Helper()
	sub, err := b.Subscribe(et, h, opts...)
	require.NoError(t, err)
	return sub
}

func TestPriorityOrder(t *testing.T) {
	b := New()
	var order []string
	mustSubscribe(t, b, testPing, record(&order, "low"), Priority(1))
	mustSubscribe(t, b, testPing, record(&order, "high"), Priority(10))
	mustSubscribe(t, b, testPing, record(&order, "mid"), Priority(5))

	b.Publish(testPing, nil)
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestEqualPriorityIsFIFO(t *testing.T) {
	b := New()
	var order []string
	mustSubscribe(t, b, testPing, record(&order, "first"))
	mustSubscribe(t, b, testPing, record(&order, "second"))
	mustSubscribe(t, b, testPing, record(&order, "top"), Priority(3))
	mustSubscribe(t, b, testPing, record(&order, "third"))

	b.Publish(testPing, nil)
	assert.Equal(t, []string{"top", "first", "second", "third"}, order)
}

func TestConsumeStopsLowerPriorities(t *testing.T) {
	b := New()
	var order []string
	mustSubscribe(t, b, testPing, func(e *Event) error {
		order = append(order, "A")
		e.Consume()
		return nil
	}, Priority(10))
	mustSubscribe(t, b, testPing, record(&order, "B"), Priority(1))

	evt := b.Publish(testPing, map[string]any{"n": 1})
	assert.True(t, evt.Consumed())
	assert.Equal(t, []string{"A"}, order)
	assert.Equal(t, 2, b.HandlerCount(testPing), "consumption must not remove untouched handlers")
}

func TestOnceFiresOnce(t *testing.T) {
	b := New()
	calls := 0
	mustSubscribe(t, b, testPing, func(*Event) error {
		calls++
		return errors.New("still removed")
	}, Once())

	b.Publish(testPing, nil)
	b.Publish(testPing, nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.HandlerCount(testPing))
}

func TestHandlerIsolation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := New(WithLogger(log.NewFromZap(zap.New(core))))

	var order []string
	mustSubscribe(t, b, testPing, func(*Event) error { return errors.New("broken") }, Priority(3))
	mustSubscribe(t, b, testPing, func(*Event) error { panic("worse") }, Priority(2))
	mustSubscribe(t, b, testPing, record(&order, "survivor"), Priority(1))

	assert.NotPanics(t, func() { b.Publish(testPing, nil) })
	assert.Equal(t, []string{"survivor"}, order)
	assert.False(t, b.Dispatching())
	assert.Equal(t, uint64(2), b.Metrics().Failures)

	failures := logs.FilterMessage("event handler failed").All()
	require.Len(t, failures, 2)
	assert.Equal(t, "test.ping", failures[0].ContextMap()["event"])
	assert.Contains(t, failures[1].ContextMap()["error"], "worse")
}

func TestNestedPublishIsBreadthFirst(t *testing.T) {
	b := New()
	var order []string

	mustSubscribe(t, b, testPing, func(*Event) error {
		order = append(order, "ping")
		b.Publish(testChain, nil)
		assert.Equal(t, 1, b.Pending())
		b.Publish(testPong, nil)
		order = append(order, "ping-done")
		return nil
	})
	mustSubscribe(t, b, testChain, func(*Event) error {
		order = append(order, "chain")
		b.Publish(testLeaf, nil)
		return nil
	})
	mustSubscribe(t, b, testPong, record(&order, "pong"))
	mustSubscribe(t, b, testLeaf, record(&order, "leaf"))

	b.Publish(testPing, nil)
	assert.Equal(t, []string{"ping", "ping-done", "chain", "pong", "leaf"}, order)
	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, uint64(3), b.Metrics().Queued)
}

func TestCancelDuringDispatch(t *testing.T) {
	b := New()
	var order []string
	var victim Subscription
	mustSubscribe(t, b, testPing, func(*Event) error {
		order = append(order, "killer")
		return victim.Cancel()
	}, Priority(2))
	victim = mustSubscribe(t, b, testPing, record(&order, "victim"), Priority(1))

	b.Publish(testPing, nil)
	assert.Equal(t, []string{"killer"}, order)
	assert.False(t, victim.IsActive())
	assert.Equal(t, 1, b.HandlerCount(testPing))
}

func TestSubscribeDuringDispatchWaitsForNextEvent(t *testing.T) {
	b := New()
	late := 0
	mustSubscribe(t, b, testPing, func(*Event) error {
		_, err := b.Subscribe(testPing, func(*Event) error { late++; return nil }, Priority(100))
		return err
	}, Once())

	b.Publish(testPing, nil)
	assert.Equal(t, 0, late)
	b.Publish(testPing, nil)
	assert.Equal(t, 1, late)
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	calls := 0
	sub := mustSubscribe(t, b, testPing, func(*Event) error { calls++; return nil })
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, b.Unsubscribe(nil))

	b.Publish(testPing, nil)
	assert.Zero(t, calls)
	assert.Equal(t, 0, b.HandlerCount(testPing))
}

func TestLivenessPrunes(t *testing.T) {
	b := New()
	alive := true
	calls := 0
	sub := mustSubscribe(t, b, testPing, func(*Event) error { calls++; return nil }, Liveness(func() bool { return alive }))

	b.Publish(testPing, nil)
	alive = false
	assert.False(t, sub.IsActive())
	assert.Equal(t, 1, b.HandlerCount(testPing))

	b.Publish(testPing, nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.HandlerCount(testPing))
	assert.Equal(t, uint64(1), b.Metrics().Pruned)
}

type listener struct {
	hits *int
	name string
}

func (l *listener) onPing(*Event) error {
	*l.hits++
	return nil
}

//go:noinline
func subscribeTransient(t *testing.T, b *Bus, hits *int) {
	l := &listener{hits: hits, name: "transient"}
	_, err := SubscribeWeak(b, testPing, l, (*listener).onPing)
	require.NoError(t, err)
}

func TestWeakSubscriptionIsPruned(t *testing.T) {
	b := New()
	hits := 0
	subscribeTransient(t, b, &hits)
	require.Equal(t, 1, b.HandlerCount(testPing))

	runtime.GC()
	runtime.GC()

	b.Publish(testPing, nil)
	assert.Zero(t, hits)
	assert.Equal(t, 0, b.HandlerCount(testPing))
}

func TestWeakSubscriptionWhileOwnerAlive(t *testing.T) {
	b := New()
	hits := 0
	l := &listener{hits: &hits}
	_, err := SubscribeWeak(b, testPing, l, (*listener).onPing, Priority(4))
	require.NoError(t, err)

	b.Publish(testPing, nil)
	assert.Equal(t, 1, hits)

	assert.Equal(t, 1, UnsubscribeOwner(b, testPing, l))
	b.Publish(testPing, nil)
	assert.Equal(t, 1, hits)
	runtime.KeepAlive(l)
}

func TestClear(t *testing.T) {
	b := New()
	mustSubscribe(t, b, testPing, func(*Event) error { return nil })
	mustSubscribe(t, b, testPong, func(*Event) error { return nil })

	b.Clear(testPing)
	assert.Equal(t, 0, b.HandlerCount(testPing))
	assert.Equal(t, 1, b.HandlerCount(testPong))

	b.ClearAll()
	assert.Equal(t, 0, b.HandlerCount(testPong))
}

func TestClearAllKeepsQueuedEvents(t *testing.T) {
	b := New()
	var order []string
	mustSubscribe(t, b, testPing, func(*Event) error {
		b.Publish(testPong, nil)
		b.ClearAll()
		_, err := b.Subscribe(testPong, record(&order, "pong"))
		return err
	})

	b.Publish(testPing, nil)
	assert.Equal(t, []string{"pong"}, order)
	assert.Equal(t, 0, b.Pending())
}

func TestSubscribeValidation(t *testing.T) {
	b := New()
	_, err := b.Subscribe(testPing, nil)
	assert.ErrorIs(t, err, ErrNilHandler)

	_, err = b.Subscribe(EventType(0), func(*Event) error { return nil })
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestObserverAndMetrics(t *testing.T) {
	b := New()
	obs := &testObserver{}
	b.AddObserver(obs)
	mustSubscribe(t, b, testPing, func(*Event) error { return errors.New("x") })
	mustSubscribe(t, b, testPing, func(*Event) error { return nil })

	b.Publish(testPing, nil)
	assert.Equal(t, 1, obs.published)
	assert.Equal(t, 2, obs.delivered)
	assert.Error(t, obs.lastErr)

	m := b.Metrics()
	assert.Equal(t, uint64(1), m.Published)
	assert.Equal(t, uint64(2), m.Delivered)

	b.RemoveObserver(obs)
	b.Publish(testPing, nil)
	assert.Equal(t, 1, obs.published)
}

func TestEventTypesAndValues(t *testing.T) {
	assert.Equal(t, testPing, NewType("test.ping"))
	got, ok := TypeByName("entity_destroyed")
	require.True(t, ok)
	assert.Equal(t, EntityDestroyed, got)
	assert.Equal(t, "button_clicked", ButtonClicked.String())
	assert.Equal(t, "unknown", EventType(0).String())

	evt := NewEvent(testPing, map[string]any{"id": uint64(9)})
	id, ok := Value[uint64](evt, "id")
	assert.True(t, ok)
	assert.Equal(t, uint64(9), id)
	_, ok = Value[string](evt, "id")
	assert.False(t, ok)
}

func BenchmarkPublishSingleSubscriber(b *testing.B) {
	bus := New()
	n := 0
	_, _ = bus.Subscribe(testPing, func(*Event) error { n++; return nil })
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(testPing, nil)
	}
}

func BenchmarkPublishManySubscribers(b *testing.B) {
	bus := New()
	n := 0
	for i := 0; i < 32; i++ {
		_, _ = bus.Subscribe(testPing, func(*Event) error { n++; return nil }, Priority(i%4))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(testPing, nil)
	}
}

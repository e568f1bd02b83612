package bus

import "weak"

// SubscribeWeak registers fn for events of type t without keeping owner alive.
// When owner becomes unreachable the subscription is skipped and pruned on the
// next dispatch of t. fn must not capture owner itself; use a method expression
// such as (*Player).OnHit.
func SubscribeWeak[T any](b *Bus, t EventType, owner *T, fn func(owner *T, event *Event) error, opts ...SubOption) (Subscription, error) {
	if owner == nil || fn == nil {
		return nil, ErrNilHandler
	}

	ref := weak.Make(owner)
	handler := func(event *Event) error {
		target := ref.Value()
		if target == nil {
			return nil
		}
		return fn(target, event)
	}
	alive := func() bool { return ref.Value() != nil }

	opts = append(opts, Liveness(alive), ownedBy(ref))
	return b.Subscribe(t, handler, opts...)
}

// UnsubscribeOwner cancels every weak subscription of owner on type t and
// reports how many were removed.
func UnsubscribeOwner[T any](b *Bus, t EventType, owner *T) int {
	if owner == nil || int(t) >= len(b.handlers) {
		return 0
	}
	key := any(weak.Make(owner))
	removed := 0
	for _, s := range b.handlers[t] {
		if !s.dead && s.owner == key {
			s.dead = true
			removed++
		}
	}
	if removed > 0 {
		b.markDirty(t)
	}
	return removed
}

func ownedBy(key any) SubOption {
	return func(s *subscription) { s.owner = key }
}

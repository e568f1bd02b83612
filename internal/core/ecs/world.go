package ecs

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/zeusync/gamecore/internal/core/events/bus"
	"github.com/zeusync/gamecore/internal/core/observability/log"
)

// Publisher receives entity lifecycle events. *bus.Bus satisfies it.
type Publisher interface {
	Publish(t bus.EventType, data map[string]any) *bus.Event
}

type WorldOption func(*World)

func WithEventBus(p Publisher) WorldOption {
	return func(w *World) { w.events = p }
}

func WithLogger(l log.Log) WorldOption {
	return func(w *World) { w.log = l }
}

type entitySet map[EntityID]struct{}

// World owns entities, the component and tag indices, the deferred destruction
// queue and the two ordered system lists. It is single-threaded: every method
// must be called from the goroutine driving Update and Render.
type World struct {
	log    log.Log
	events Publisher

	entities map[EntityID]*Entity
	byName   map[string]*Entity

	pending    []EntityID
	pendingSet entitySet

	components []entitySet // indexed by ComponentID
	tags       map[string]entitySet

	systems       []System
	renderSystems []RenderSystem

	tick uint64
}

func NewWorld(opts ...WorldOption) *World {
	w := &World{
		log:        log.NewNop(),
		entities:   make(map[EntityID]*Entity),
		byName:     make(map[string]*Entity),
		pendingSet: make(entitySet),
		tags:       make(map[string]entitySet),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With(log.String("component", "world"))
	return w
}

// CreateEntity builds a new entity and attaches it.
func (w *World) CreateEntity(name string) *Entity {
	e := NewEntity(name)
	// a fresh id cannot collide
	_ = w.AddEntity(e)
	return e
}

// AddEntity attaches a standalone entity, indexing the components and tags it
// already carries.
func (w *World) AddEntity(e *Entity) error {
	if e == nil {
		return ErrNilEntity
	}
	if e.world != nil && e.world != w {
		return fmt.Errorf("%w: %s", ErrEntityAttached, e)
	}
	if _, exists := w.entities[e.id]; exists {
		return fmt.Errorf("%w: %s", ErrEntityExists, e)
	}

	w.entities[e.id] = e
	w.bindName(e)
	e.world = w
	for id := range e.components {
		w.index(id).add(e.id)
	}
	for tag := range e.tags {
		w.tagSet(tag).add(e.id)
	}

	w.log.Debug("entity created", log.Uint64("entity_id", uint64(e.id)), log.String("name", e.name))
	w.publish(bus.EntityCreated, map[string]any{
		"entity":    e,
		"entity_id": e.id,
	})
	return nil
}

// DestroyEntity queues id for removal at the end of the current Update.
// Unknown and already queued ids are ignored.
func (w *World) DestroyEntity(id EntityID) {
	if _, ok := w.entities[id]; !ok {
		return
	}
	if _, queued := w.pendingSet[id]; queued {
		return
	}
	w.pendingSet[id] = struct{}{}
	w.pending = append(w.pending, id)
}

func (w *World) PendingDestroy(id EntityID) bool {
	_, ok := w.pendingSet[id]
	return ok
}

func (w *World) Entity(id EntityID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

func (w *World) EntityByName(name string) (*Entity, bool) {
	e, ok := w.byName[name]
	return e, ok
}

// Entities returns every attached entity ordered by id.
func (w *World) Entities() []*Entity {
	return w.sorted(maps.Keys(w.entities))
}

func (w *World) EntityCount() int {
	return len(w.entities)
}

// EntitiesWith returns the entities carrying every listed component type,
// ordered by id. No ids yields an empty result.
func (w *World) EntitiesWith(ids ...ComponentID) []*Entity {
	if len(ids) == 0 {
		return nil
	}
	sets := make([]entitySet, 0, len(ids))
	for _, id := range ids {
		set := w.lookup(id)
		if len(set) == 0 {
			return nil
		}
		sets = append(sets, set)
	}
	slices.SortFunc(sets, func(a, b entitySet) int { return cmp.Compare(len(a), len(b)) })

	matched := make([]EntityID, 0, len(sets[0]))
candidates:
	for eid := range sets[0] {
		for _, other := range sets[1:] {
			if _, ok := other[eid]; !ok {
				continue candidates
			}
		}
		matched = append(matched, eid)
	}
	return w.sorted(slices.Values(matched))
}

// EntitiesWithAny returns the entities carrying at least one listed type, ordered by id.
func (w *World) EntitiesWithAny(ids ...ComponentID) []*Entity {
	union := make(entitySet)
	for _, id := range ids {
		for eid := range w.lookup(id) {
			union[eid] = struct{}{}
		}
	}
	return w.sorted(maps.Keys(union))
}

func (w *World) EntitiesWithTag(tag string) []*Entity {
	return w.sorted(maps.Keys(w.tags[tag]))
}

// AddSystem inserts s into the logic or render list and keeps that list
// ordered by descending priority, ties in insertion order.
func (w *World) AddSystem(s Stage) error {
	if s == nil {
		return ErrInvalidSystem
	}
	if w.hasSystem(s) {
		return fmt.Errorf("%w: %s", ErrSystemExists, s.Name())
	}

	switch sys := s.(type) {
	case RenderSystem:
		w.renderSystems = append(w.renderSystems, sys)
		slices.SortStableFunc(w.renderSystems, byPriority[RenderSystem])
	case System:
		w.systems = append(w.systems, sys)
		slices.SortStableFunc(w.systems, byPriority[System])
	default:
		return fmt.Errorf("%w: %T implements neither Update nor Render", ErrInvalidSystem, s)
	}

	s.OnAdd(w)
	w.log.Debug("system added", log.String("system", s.Name()), log.Int("priority", s.Priority()))
	return nil
}

// RemoveSystem detaches s and reports whether it was present.
func (w *World) RemoveSystem(s Stage) bool {
	removed := false
	if i := slices.IndexFunc(w.systems, func(o System) bool { return Stage(o) == s }); i >= 0 {
		w.systems = slices.Delete(w.systems, i, i+1)
		removed = true
	}
	if i := slices.IndexFunc(w.renderSystems, func(o RenderSystem) bool { return Stage(o) == s }); i >= 0 {
		w.renderSystems = slices.Delete(w.renderSystems, i, i+1)
		removed = true
	}
	if removed {
		s.OnRemove()
	}
	return removed
}

// Systems returns the logic systems in execution order.
func (w *World) Systems() []System {
	return slices.Clone(w.systems)
}

// RenderSystems returns the render systems in execution order.
func (w *World) RenderSystems() []RenderSystem {
	return slices.Clone(w.renderSystems)
}

// GetSystem returns the first system of type T.
func GetSystem[T Stage](w *World) (T, bool) {
	for _, s := range w.systems {
		if t, ok := s.(T); ok {
			return t, true
		}
	}
	for _, s := range w.renderSystems {
		if t, ok := s.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Update runs every enabled logic system in order, then sweeps the entities
// destroyed during the pass. A system error aborts the pass before the sweep;
// queued destructions stay queued for the next successful Update.
func (w *World) Update(dt float64) error {
	for _, s := range slices.Clone(w.systems) {
		if !s.Enabled() {
			continue
		}
		if err := s.Update(dt); err != nil {
			return fmt.Errorf("update %s: %w", s.Name(), err)
		}
	}
	w.sweep()
	w.tick++
	return nil
}

// Render runs every enabled render system in order. It never sweeps.
func (w *World) Render(alpha float64) error {
	for _, s := range slices.Clone(w.renderSystems) {
		if !s.Enabled() {
			continue
		}
		if err := s.Render(alpha); err != nil {
			return fmt.Errorf("render %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Clear destroys every entity immediately, detaches every system and drops
// both indices.
func (w *World) Clear() {
	for _, e := range w.Entities() {
		w.DestroyEntity(e.id)
	}
	w.sweep()

	for _, s := range w.systems {
		s.OnRemove()
	}
	for _, s := range w.renderSystems {
		s.OnRemove()
	}
	w.systems, w.renderSystems = nil, nil
	w.components = nil
	w.tags = make(map[string]entitySet)
	w.byName = make(map[string]*Entity)
}

// Tick returns the number of completed updates.
func (w *World) Tick() uint64 {
	return w.tick
}

// Stats is a point-in-time summary of the World.
type Stats struct {
	Entities       int
	PendingDestroy int
	ComponentTypes int
	Tags           int
	Systems        int
	RenderSystems  int
	Tick           uint64
}

func (w *World) Stats() Stats {
	types := 0
	for _, set := range w.components {
		if len(set) > 0 {
			types++
		}
	}
	return Stats{
		Entities:       len(w.entities),
		PendingDestroy: len(w.pending),
		ComponentTypes: types,
		Tags:           len(w.tags),
		Systems:        len(w.systems),
		RenderSystems:  len(w.renderSystems),
		Tick:           w.tick,
	}
}

func (w *World) sweep() {
	if len(w.pending) == 0 {
		return
	}
	queue := w.pending
	w.pending = nil
	for _, id := range queue {
		delete(w.pendingSet, id)
		e, ok := w.entities[id]
		if !ok {
			continue
		}
		for cid := range e.components {
			w.unindex(cid, id)
		}
		for tag := range e.tags {
			w.untag(tag, id)
		}
		delete(w.entities, id)
		if current, ok := w.byName[e.name]; ok && current == e {
			delete(w.byName, e.name)
		}
		e.world = nil

		w.log.Debug("entity destroyed", log.Uint64("entity_id", uint64(id)), log.String("name", e.name))
		w.publish(bus.EntityDestroyed, map[string]any{
			"entity":    e,
			"entity_id": id,
		})
	}
}

func (w *World) componentAdded(e *Entity, id ComponentID, c Component) {
	w.index(id).add(e.id)
	w.publish(bus.ComponentAdded, map[string]any{
		"entity":       e,
		"entity_id":    e.id,
		"component":    c,
		"component_id": id,
	})
}

func (w *World) componentRemoved(e *Entity, id ComponentID, c Component) {
	w.unindex(id, e.id)
	w.publish(bus.ComponentRemoved, map[string]any{
		"entity":       e,
		"entity_id":    e.id,
		"component":    c,
		"component_id": id,
	})
}

func (w *World) tagAdded(e *Entity, tag string) {
	w.tagSet(tag).add(e.id)
}

func (w *World) tagRemoved(e *Entity, tag string) {
	w.untag(tag, e.id)
}

func (w *World) renamed(e *Entity, old string) {
	if current, ok := w.byName[old]; ok && current == e {
		delete(w.byName, old)
	}
	w.bindName(e)
}

// bindName points the name index at e, displacing any previous holder.
func (w *World) bindName(e *Entity) {
	if prev, ok := w.byName[e.name]; ok && prev != e {
		w.log.Warn("entity name collision",
			log.String("name", e.name),
			log.Uint64("previous_id", uint64(prev.id)),
			log.Uint64("entity_id", uint64(e.id)),
		)
	}
	w.byName[e.name] = e
}

func (w *World) index(id ComponentID) entitySet {
	if need := int(id) + 1; need > len(w.components) {
		grown := make([]entitySet, need)
		copy(grown, w.components)
		w.components = grown
	}
	if w.components[id] == nil {
		w.components[id] = make(entitySet)
	}
	return w.components[id]
}

func (w *World) lookup(id ComponentID) entitySet {
	if int(id) >= len(w.components) {
		return nil
	}
	return w.components[id]
}

func (w *World) unindex(id ComponentID, eid EntityID) {
	if set := w.lookup(id); set != nil {
		delete(set, eid)
	}
}

func (w *World) tagSet(tag string) entitySet {
	set, ok := w.tags[tag]
	if !ok {
		set = make(entitySet)
		w.tags[tag] = set
	}
	return set
}

func (w *World) untag(tag string, eid EntityID) {
	set, ok := w.tags[tag]
	if !ok {
		return
	}
	delete(set, eid)
	if len(set) == 0 {
		delete(w.tags, tag)
	}
}

func (w *World) hasSystem(s Stage) bool {
	return slices.ContainsFunc(w.systems, func(o System) bool { return Stage(o) == s }) ||
		slices.ContainsFunc(w.renderSystems, func(o RenderSystem) bool { return Stage(o) == s })
}

func (w *World) publish(t bus.EventType, data map[string]any) {
	if w.events != nil {
		w.events.Publish(t, data)
	}
}

func (w *World) sorted(ids iter.Seq[EntityID]) []*Entity {
	ordered := slices.Sorted(ids)
	out := make([]*Entity, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, w.entities[id])
	}
	return out
}

func (s entitySet) add(id EntityID) {
	s[id] = struct{}{}
}

func byPriority[S Stage](a, b S) int {
	return cmp.Compare(b.Priority(), a.Priority())
}

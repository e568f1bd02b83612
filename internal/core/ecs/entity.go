package ecs

import (
	"fmt"
	"maps"
	"slices"
	"sync/atomic"
)

// EntityID is a process-wide, monotonically increasing identity. Ids are never reused.
type EntityID uint64

var lastEntityID atomic.Uint64

func nextEntityID() EntityID {
	return EntityID(lastEntityID.Add(1))
}

// Entity is an identity with a name, an active flag, a tag set and at most
// one component per component type.
type Entity struct {
	id         EntityID
	name       string
	active     bool
	tags       map[string]struct{}
	components map[ComponentID]Component
	world      *World
}

// NewEntity builds a standalone entity. An empty name becomes "Entity_<id>".
func NewEntity(name string) *Entity {
	id := nextEntityID()
	if name == "" {
		name = fmt.Sprintf("Entity_%d", id)
	}
	return &Entity{
		id:         id,
		name:       name,
		active:     true,
		tags:       make(map[string]struct{}),
		components: make(map[ComponentID]Component),
	}
}

func (e *Entity) ID() EntityID     { return e.id }
func (e *Entity) Name() string     { return e.name }
func (e *Entity) Active() bool     { return e.active }
func (e *Entity) World() *World    { return e.world }
func (e *Entity) SetActive(v bool) { e.active = v }

// SetName renames the entity and keeps the owning World's name index in step.
func (e *Entity) SetName(name string) {
	if name == e.name {
		return
	}
	old := e.name
	e.name = name
	if e.world != nil {
		e.world.renamed(e, old)
	}
}

// Destroy queues the entity for removal from its World at the end of the
// current update. It is a no-op for detached entities.
func (e *Entity) Destroy() {
	if e.world != nil {
		e.world.DestroyEntity(e.id)
	}
}

// Add attaches c. It fails with ErrDuplicateComponent when a component of the
// same type is already present, leaving the existing one untouched.
func (e *Entity) Add(c Component) error {
	if !validComponent(c) {
		return fmt.Errorf("%w: %T", ErrInvalidComponent, c)
	}
	id := TypeOf(c)
	if _, exists := e.components[id]; exists {
		return fmt.Errorf("%w: %s on %s", ErrDuplicateComponent, id, e)
	}
	if owner := c.Owner(); owner != 0 && owner != e.id {
		return fmt.Errorf("%w: %s is owned by entity %d", ErrInvalidComponent, id, owner)
	}

	c.setOwner(e.id)
	e.components[id] = c
	if e.world != nil {
		e.world.componentAdded(e, id, c)
	}
	return nil
}

// Remove detaches the component of type id and returns it.
func (e *Entity) Remove(id ComponentID) (Component, bool) {
	c, ok := e.components[id]
	if !ok {
		return nil, false
	}
	delete(e.components, id)
	c.setOwner(0)
	if e.world != nil {
		e.world.componentRemoved(e, id, c)
	}
	return c, true
}

func (e *Entity) Get(id ComponentID) (Component, error) {
	c, ok := e.components[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrComponentNotFound, id, e)
	}
	return c, nil
}

func (e *Entity) TryGet(id ComponentID) (Component, bool) {
	c, ok := e.components[id]
	return c, ok
}

// Has reports whether every listed type is attached. No ids means true.
func (e *Entity) Has(ids ...ComponentID) bool {
	for _, id := range ids {
		if _, ok := e.components[id]; !ok {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one listed type is attached. No ids means false.
func (e *Entity) HasAny(ids ...ComponentID) bool {
	for _, id := range ids {
		if _, ok := e.components[id]; ok {
			return true
		}
	}
	return false
}

// ComponentIDs returns the attached types in ascending order.
func (e *Entity) ComponentIDs() []ComponentID {
	return slices.Sorted(maps.Keys(e.components))
}

// Components returns the attached components ordered by ComponentID.
func (e *Entity) Components() []Component {
	ids := e.ComponentIDs()
	out := make([]Component, len(ids))
	for i, id := range ids {
		out[i] = e.components[id]
	}
	return out
}

func (e *Entity) ComponentCount() int {
	return len(e.components)
}

func (e *Entity) AddTag(tag string) {
	if _, ok := e.tags[tag]; ok {
		return
	}
	e.tags[tag] = struct{}{}
	if e.world != nil {
		e.world.tagAdded(e, tag)
	}
}

func (e *Entity) RemoveTag(tag string) bool {
	if _, ok := e.tags[tag]; !ok {
		return false
	}
	delete(e.tags, tag)
	if e.world != nil {
		e.world.tagRemoved(e, tag)
	}
	return true
}

func (e *Entity) HasTag(tag string) bool {
	_, ok := e.tags[tag]
	return ok
}

// Tags returns a sorted snapshot of the tag set.
func (e *Entity) Tags() []string {
	return slices.Sorted(maps.Keys(e.tags))
}

func (e *Entity) String() string {
	return fmt.Sprintf("Entity(%d, %q)", e.id, e.name)
}

// Get returns the T attached to e.
func Get[T Component](e *Entity) (T, error) {
	c, err := e.Get(ID[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return c.(T), nil
}

// TryGet returns the T attached to e, if any.
func TryGet[T Component](e *Entity) (T, bool) {
	c, ok := e.TryGet(ID[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return c.(T), true
}

// RemoveComponent detaches and returns the T attached to e.
func RemoveComponent[T Component](e *Entity) (T, bool) {
	c, ok := e.Remove(ID[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return c.(T), true
}

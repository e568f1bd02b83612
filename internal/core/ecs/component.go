package ecs

import (
	"fmt"
	"reflect"
	"sync"
)

// ComponentID is a dense identifier interned per Go component type. It is
// stable for the lifetime of the process and never reused. Zero is invalid.
type ComponentID uint32

// Component is pure data attached to at most one entity. Concrete components
// are pointers to structs embedding Base.
type Component interface {
	// Owner returns the id of the entity the component is attached to, or 0.
	Owner() EntityID
	setOwner(id EntityID)
}

// Named lets a component choose its canonical name. Without it the struct
// name is used.
type Named interface {
	ComponentName() string
}

// Defaulter is implemented by components whose zero value is not a sensible
// starting point. Registry constructors call Defaults on fresh instances.
type Defaulter interface {
	Defaults()
}

// Base carries the owner back-reference. Embed it by value.
type Base struct {
	owner EntityID
}

func (b *Base) Owner() EntityID { return b.owner }

func (b *Base) setOwner(id EntityID) { b.owner = id }

var componentTable = struct {
	sync.RWMutex
	byType map[reflect.Type]ComponentID
	types  []reflect.Type
	names  []string
}{
	byType: make(map[reflect.Type]ComponentID),
	types:  []reflect.Type{nil},
	names:  []string{""},
}

// ID returns the ComponentID of T, interning it on first use.
func ID[T Component]() ComponentID {
	return intern(reflect.TypeFor[T]())
}

// TypeOf returns the ComponentID of the dynamic type of c.
func TypeOf(c Component) ComponentID {
	return intern(reflect.TypeOf(c))
}

func (id ComponentID) String() string {
	componentTable.RLock()
	defer componentTable.RUnlock()
	if id == 0 || int(id) >= len(componentTable.names) {
		return fmt.Sprintf("ComponentID(%d)", uint32(id))
	}
	return componentTable.names[id]
}

// Type returns the pointer type behind id, or nil when id was never interned.
func (id ComponentID) Type() reflect.Type {
	componentTable.RLock()
	defer componentTable.RUnlock()
	if int(id) >= len(componentTable.types) {
		return nil
	}
	return componentTable.types[id]
}

func intern(t reflect.Type) ComponentID {
	componentTable.RLock()
	id, ok := componentTable.byType[t]
	componentTable.RUnlock()
	if ok {
		return id
	}

	name := canonicalName(t)

	componentTable.Lock()
	defer componentTable.Unlock()
	if id, ok = componentTable.byType[t]; ok {
		return id
	}
	id = ComponentID(len(componentTable.types))
	componentTable.types = append(componentTable.types, t)
	componentTable.names = append(componentTable.names, name)
	componentTable.byType[t] = id
	return id
}

func canonicalName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		if n, ok := reflect.New(t.Elem()).Interface().(Named); ok {
			return n.ComponentName()
		}
		return t.Elem().Name()
	}
	return t.String()
}

// validComponent reports whether c is a non-nil pointer to a struct.
func validComponent(c Component) bool {
	if c == nil {
		return false
	}
	v := reflect.ValueOf(c)
	return v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Struct
}

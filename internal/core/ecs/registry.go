package ecs

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// ComponentType describes a registered, constructible component type.
type ComponentType struct {
	ID   ComponentID
	Name string
	Type reflect.Type
}

// New returns a fresh instance with Defaults applied when available.
func (ct ComponentType) New() Component {
	c := reflect.New(ct.Type.Elem()).Interface().(Component)
	if d, ok := c.(Defaulter); ok {
		d.Defaults()
	}
	return c
}

// Registry maps canonical component names to constructible types. It is an
// explicit instance handed to whatever needs to build components by name.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]ComponentType
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]ComponentType)}
}

// Register binds proto's type under its canonical name. Registering the same
// type twice is a no-op.
func (r *Registry) Register(proto Component) (ComponentType, error) {
	if !validComponent(proto) {
		return ComponentType{}, fmt.Errorf("%w: %T", ErrInvalidComponent, proto)
	}
	id := TypeOf(proto)
	ct := ComponentType{ID: id, Name: id.String(), Type: reflect.TypeOf(proto)}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byName[ct.Name]; ok {
		if existing.ID != ct.ID {
			return ComponentType{}, fmt.Errorf("%w: %q is %s, not %s", ErrTypeConflict, ct.Name, existing.Type, ct.Type)
		}
		return existing, nil
	}
	r.byName[ct.Name] = ct
	return ct, nil
}

// MustRegister registers every prototype and panics on the first failure.
// Intended for package-level wiring.
func (r *Registry) MustRegister(protos ...Component) *Registry {
	for _, p := range protos {
		if _, err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

func (r *Registry) GetType(name string) (ComponentType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.byName[name]
	if !ok {
		return ComponentType{}, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return ct, nil
}

// New constructs a fresh component by canonical name.
func (r *Registry) New(name string) (Component, error) {
	ct, err := r.GetType(name)
	if err != nil {
		return nil, err
	}
	return ct.New(), nil
}

// AllTypes returns a snapshot sorted by name.
func (r *Registry) AllTypes() []ComponentType {
	r.mu.RLock()
	out := make([]ComponentType, 0, len(r.byName))
	for _, ct := range r.byName {
		out = append(out, ct)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b ComponentType) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

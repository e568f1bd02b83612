package ecs

import "errors"

// ECS contract violations. They are returned to the direct caller and never retried.
var (
	ErrDuplicateComponent = errors.New("component already attached")
	ErrComponentNotFound  = errors.New("component not found")
	ErrInvalidComponent   = errors.New("invalid component")
	ErrEntityExists       = errors.New("entity already exists in world")
	ErrEntityAttached     = errors.New("entity belongs to another world")
	ErrNilEntity          = errors.New("nil entity")
	ErrNotAttached        = errors.New("system not attached to a world")
	ErrInvalidSystem      = errors.New("invalid system")
	ErrSystemExists       = errors.New("system already added")
	ErrUnknownType        = errors.New("unknown component type")
	ErrTypeConflict       = errors.New("component name bound to another type")
)

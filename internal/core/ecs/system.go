package ecs

import "slices"

// Common priorities. Higher runs earlier.
const (
	PriorityInput    = 100
	PriorityHigh     = 50
	PriorityNormal   = 0
	PriorityLow      = -50
	PriorityCleanup  = -100
	PriorityRenderUI = -200
)

// Stage is what World needs to order and attach a system.
type Stage interface {
	Name() string
	Priority() int
	Enabled() bool
	OnAdd(w *World)
	OnRemove()
}

// System runs once per World.Update.
type System interface {
	Stage
	Update(dt float64) error
}

// RenderSystem runs once per World.Render and is never driven by Update.
type RenderSystem interface {
	Stage
	Render(alpha float64) error
}

// SystemConfig is fixed when the system is built.
type SystemConfig struct {
	Name     string
	Priority int
	// Required is the AND filter used by Entities. Empty matches every entity.
	Required []ComponentID
	// Optional documents components the system reads when present.
	Optional []ComponentID
	Disabled bool
}

// Per-tick hooks picked up by SystemBase.Tick and SystemBase.Draw.
type (
	EntityProcessor interface {
		ProcessEntity(e *Entity, dt float64) error
	}
	PreUpdater interface {
		PreUpdate(dt float64) error
	}
	PostUpdater interface {
		PostUpdate(dt float64) error
	}

	EntityRenderer interface {
		RenderEntity(e *Entity, alpha float64) error
	}
	PreRenderer interface {
		PreRender(alpha float64) error
	}
	PostRenderer interface {
		PostRender(alpha float64) error
	}
)

// ProcessFunc adapts a function to EntityProcessor.
type ProcessFunc func(e *Entity, dt float64) error

func (f ProcessFunc) ProcessEntity(e *Entity, dt float64) error { return f(e, dt) }

// RenderFunc adapts a function to EntityRenderer.
type RenderFunc func(e *Entity, alpha float64) error

func (f RenderFunc) RenderEntity(e *Entity, alpha float64) error { return f(e, alpha) }

// SystemBase implements Stage and the query plumbing. Concrete systems embed
// it and call Tick from Update (or Draw from Render). A system that overrides
// OnAdd or OnRemove must call the embedded method.
type SystemBase struct {
	cfg     SystemConfig
	enabled bool
	world   *World
}

func NewSystemBase(cfg SystemConfig) SystemBase {
	cfg.Required = slices.Clone(cfg.Required)
	cfg.Optional = slices.Clone(cfg.Optional)
	return SystemBase{cfg: cfg, enabled: !cfg.Disabled}
}

func (s *SystemBase) Name() string  { return s.cfg.Name }
func (s *SystemBase) Priority() int { return s.cfg.Priority }
func (s *SystemBase) Enabled() bool { return s.enabled }

func (s *SystemBase) SetEnabled(enabled bool) { s.enabled = enabled }

func (s *SystemBase) Required() []ComponentID { return slices.Clone(s.cfg.Required) }
func (s *SystemBase) Optional() []ComponentID { return slices.Clone(s.cfg.Optional) }

func (s *SystemBase) OnAdd(w *World) { s.world = w }
func (s *SystemBase) OnRemove()      { s.world = nil }

// World returns the World the system is attached to.
func (s *SystemBase) World() (*World, error) {
	if s.world == nil {
		return nil, ErrNotAttached
	}
	return s.world, nil
}

// Entities returns every entity carrying all Required components, or every
// entity when Required is empty. Inactive entities are included.
func (s *SystemBase) Entities() ([]*Entity, error) {
	w, err := s.World()
	if err != nil {
		return nil, err
	}
	if len(s.cfg.Required) == 0 {
		return w.Entities(), nil
	}
	return w.EntitiesWith(s.cfg.Required...), nil
}

// Tick runs PreUpdate, ProcessEntity for every active matching entity, then
// PostUpdate. The first error aborts the tick and is returned as is.
func (s *SystemBase) Tick(dt float64, p EntityProcessor) error {
	if !s.enabled {
		return nil
	}
	entities, err := s.Entities()
	if err != nil {
		return err
	}

	if pre, ok := p.(PreUpdater); ok {
		if err = pre.PreUpdate(dt); err != nil {
			return err
		}
	}
	for _, e := range entities {
		if !e.Active() {
			continue
		}
		if err = p.ProcessEntity(e, dt); err != nil {
			return err
		}
	}
	if post, ok := p.(PostUpdater); ok {
		return post.PostUpdate(dt)
	}
	return nil
}

// Draw is the render phase counterpart of Tick.
func (s *SystemBase) Draw(alpha float64, r EntityRenderer) error {
	if !s.enabled {
		return nil
	}
	entities, err := s.Entities()
	if err != nil {
		return err
	}

	if pre, ok := r.(PreRenderer); ok {
		if err = pre.PreRender(alpha); err != nil {
			return err
		}
	}
	for _, e := range entities {
		if !e.Active() {
			continue
		}
		if err = r.RenderEntity(e, alpha); err != nil {
			return err
		}
	}
	if post, ok := r.(PostRenderer); ok {
		return post.PostRender(alpha)
	}
	return nil
}

// FuncSystem runs a per-entity function over the entities matching cfg.
type FuncSystem struct {
	SystemBase
	fn ProcessFunc
}

func NewFuncSystem(cfg SystemConfig, fn ProcessFunc) *FuncSystem {
	return &FuncSystem{SystemBase: NewSystemBase(cfg), fn: fn}
}

func (s *FuncSystem) Update(dt float64) error {
	return s.Tick(dt, s.fn)
}

// FuncRenderSystem runs a per-entity function in the render phase.
type FuncRenderSystem struct {
	SystemBase
	fn RenderFunc
}

func NewFuncRenderSystem(cfg SystemConfig, fn RenderFunc) *FuncRenderSystem {
	return &FuncRenderSystem{SystemBase: NewSystemBase(cfg), fn: fn}
}

func (s *FuncRenderSystem) Render(alpha float64) error {
	return s.Draw(alpha, s.fn)
}

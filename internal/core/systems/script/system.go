package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/zeusync/gamecore/internal/core/ecs"
)

// System drives a global Lua function once per matching entity:
//
//	function fn(entity, dt) ... end
//
// A Lua error aborts the World update like any other system failure.
type System struct {
	ecs.SystemBase
	engine *Engine
	fn     string
}

// NewSystem builds a System calling fn. cfg.Name defaults to "lua:<fn>".
func NewSystem(engine *Engine, fn string, cfg ecs.SystemConfig) *System {
	if cfg.Name == "" {
		cfg.Name = "lua:" + fn
	}
	return &System{SystemBase: ecs.NewSystemBase(cfg), engine: engine, fn: fn}
}

func (s *System) Update(dt float64) error {
	return s.Tick(dt, s)
}

func (s *System) ProcessEntity(e *ecs.Entity, dt float64) error {
	vm := s.engine.vm
	if vm == nil {
		return ErrClosed
	}
	if err := s.engine.Call(s.fn, entityTable(vm, e), lua.LNumber(dt)); err != nil {
		return fmt.Errorf("%s on %s: %w", s.fn, e, err)
	}
	return nil
}

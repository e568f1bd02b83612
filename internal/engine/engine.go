package engine

import (
	"context"
	"fmt"

	"github.com/zeusync/gamecore/internal/config"
	"github.com/zeusync/gamecore/internal/core/ecs"
	"github.com/zeusync/gamecore/internal/core/events/bus"
	"github.com/zeusync/gamecore/internal/core/observability/log"
	"github.com/zeusync/gamecore/internal/core/scene"
	"github.com/zeusync/gamecore/internal/core/systems/physics"
	"github.com/zeusync/gamecore/internal/core/systems/script"
)

// Engine is the composition root: the root World, its Bus, the component
// Registry, the Lua scripts, the scene stack and the frame loop driving it.
type Engine struct {
	cfg      *config.Config
	log      log.Log
	bus      *bus.Bus
	world    *ecs.World
	registry *ecs.Registry
	scripts  *script.Engine
	scenes   *scene.Manager
	loop     *Loop
}

func New(cfg *config.Config, logger log.Log, b *bus.Bus, w *ecs.World, reg *ecs.Registry, scripts *script.Engine, scenes *scene.Manager, loop *Loop) *Engine {
	return &Engine{
		cfg:      cfg,
		log:      logger,
		bus:      b,
		world:    w,
		registry: reg,
		scripts:  scripts,
		scenes:   scenes,
		loop:     loop,
	}
}

func (e *Engine) World() *ecs.World       { return e.world }
func (e *Engine) Bus() *bus.Bus           { return e.bus }
func (e *Engine) Registry() *ecs.Registry { return e.registry }
func (e *Engine) Scenes() *scene.Manager  { return e.scenes }
func (e *Engine) Loop() *Loop             { return e.loop }

// Setup registers the built-in components and systems, loads scripts, spawns
// the configured scene files into the root World and queues the root scene.
// The root scene is named after the first scene file, or "main".
func (e *Engine) Setup(ctx context.Context) error {
	if err := physics.Register(e.registry); err != nil {
		return fmt.Errorf("register physics components: %w", err)
	}
	if err := e.world.AddSystem(physics.NewMovementSystem(ecs.PriorityNormal)); err != nil {
		return err
	}

	if dir := e.cfg.Scripts.Dir; dir != "" {
		if err := e.scripts.LoadDir(dir); err != nil {
			return fmt.Errorf("load scripts: %w", err)
		}
	}
	if fn := e.cfg.Scripts.Function; fn != "" && e.scripts.HasFunction(fn) {
		sys := script.NewSystem(e.scripts, fn, ecs.SystemConfig{Priority: e.cfg.Scripts.Priority})
		if err := e.world.AddSystem(sys); err != nil {
			return err
		}
	}

	name := "main"
	if len(e.cfg.Scene.Paths) > 0 {
		docs, err := scene.LoadFiles(ctx, e.cfg.Scene.Paths)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			spawned, err := scene.Spawn(e.world, e.registry, doc)
			if err != nil {
				return err
			}
			e.log.Info("scene loaded", log.String("scene", doc.Name), log.Int("entities", len(spawned)))
		}
		name = docs[0].Name
	}
	return e.scenes.Push(scene.New(scene.Config{Name: name, World: e.world}))
}

// Run drives the loop until ctx ends or the configured tick budget is spent,
// then releases the scripts.
func (e *Engine) Run(ctx context.Context) error {
	defer e.scripts.Close()

	e.bus.Publish(bus.GameStart, map[string]any{"tick_rate": e.cfg.Engine.TickRate})
	e.log.Info("engine started",
		log.Int("tick_rate", e.cfg.Engine.TickRate),
		log.Int("entities", e.world.EntityCount()),
		log.Int("systems", len(e.world.Systems())),
	)

	err := e.loop.Run(ctx, uint64(e.cfg.Engine.MaxTicks))

	e.bus.Publish(bus.GameQuit, map[string]any{"ticks": e.world.Tick()})
	stats := e.world.Stats()
	e.log.Info("engine stopped",
		log.Uint64("ticks", stats.Tick),
		log.Int("entities", stats.Entities),
		log.Uint64("fingerprint", e.world.Fingerprint()),
	)
	return err
}

// Pause stops fixed updates; rendering continues.
func (e *Engine) Pause() {
	if e.loop.Paused() {
		return
	}
	e.loop.SetPaused(true)
	e.bus.Publish(bus.GamePause, nil)
}

func (e *Engine) Resume() {
	if !e.loop.Paused() {
		return
	}
	e.loop.SetPaused(false)
	e.bus.Publish(bus.GameResume, nil)
}

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/gamecore/internal/config"
	"github.com/zeusync/gamecore/internal/core/ecs"
	"github.com/zeusync/gamecore/internal/core/events/bus"
	"github.com/zeusync/gamecore/internal/core/observability/log"
	"github.com/zeusync/gamecore/internal/core/scene"
	"github.com/zeusync/gamecore/internal/core/systems/script"
	"github.com/zeusync/gamecore/internal/engine"
)

// ProviderSet builds an engine.Engine from a *config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideWorld,
	ecs.NewRegistry,
	ProvideScripts,
	ProvideScenes,
	ProvideLoop,
	engine.New,
	wire.Bind(new(log.Log), new(*log.Logger)),
	wire.Bind(new(engine.Ticker), new(*scene.Manager)),
)

func ProvideLogger(cfg *config.Config) *log.Logger {
	level, _ := log.ParseLevel(cfg.Logging.Level)
	return log.NewWithOptions(log.Options{
		Level:  level,
		Format: cfg.Logging.Format,
	})
}

func ProvideBus(logger log.Log) *bus.Bus {
	return bus.New(bus.WithLogger(logger))
}

func ProvideWorld(b *bus.Bus, logger log.Log) *ecs.World {
	return ecs.NewWorld(ecs.WithEventBus(b), ecs.WithLogger(logger))
}

func ProvideScripts(w *ecs.World, b *bus.Bus, logger log.Log) *script.Engine {
	return script.NewEngine(w, b, logger)
}

func ProvideScenes(b *bus.Bus, logger log.Log) *scene.Manager {
	return scene.NewManager(scene.WithEventBus(b), scene.WithLogger(logger))
}

func ProvideLoop(cfg *config.Config, target engine.Ticker, logger log.Log) *engine.Loop {
	return engine.NewLoop(target, cfg.Engine.TickRate, cfg.Engine.MaxStepsPerFrame, logger)
}

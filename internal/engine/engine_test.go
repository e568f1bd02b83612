package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/gamecore/internal/config"
	"github.com/zeusync/gamecore/internal/core/ecs"
	"github.com/zeusync/gamecore/internal/core/events/bus"
	"github.com/zeusync/gamecore/internal/core/observability/log"
	"github.com/zeusync/gamecore/internal/core/scene"
	"github.com/zeusync/gamecore/internal/core/systems/physics"
	"github.com/zeusync/gamecore/internal/core/systems/script"
)

const townScene = `
name: town
entities:
  - name: walker
    tags: [npc]
    components:
      Transform: {x: 0, y: 0}
      Velocity: {vx: 60}
  - name: lamp
    components:
      Transform: {x: 5, y: 5}
`

const patrolScript = `
steps = 0
function update(entity, dt)
  if ecs.has_tag(entity.id, "npc") then
    steps = steps + 1
  end
end
`

func newEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	logger := log.NewNop()
	b := bus.New(bus.WithLogger(logger))
	w := ecs.NewWorld(ecs.WithEventBus(b), ecs.WithLogger(logger))
	scripts := script.NewEngine(w, b, logger)
	scenes := scene.NewManager(scene.WithEventBus(b), scene.WithLogger(logger))
	loop := NewLoop(scenes, cfg.Engine.TickRate, cfg.Engine.MaxStepsPerFrame, logger)
	return New(cfg, logger, b, w, ecs.NewRegistry(), scripts, scenes, loop)
}

func TestEngine_SetupAndRun(t *testing.T) {
	dir := t.TempDir()
	scenePath := filepath.Join(dir, "town.yaml")
	require.NoError(t, os.WriteFile(scenePath, []byte(townScene), 0o644))
	scriptDir := filepath.Join(dir, "scripts")
	require.NoError(t, os.Mkdir(scriptDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(scriptDir, "patrol.lua"), []byte(patrolScript), 0o644))

	cfg := config.Default()
	cfg.Engine.TickRate = 60
	cfg.Engine.MaxTicks = 6
	cfg.Scene.Paths = []string{scenePath}
	cfg.Scripts.Dir = scriptDir

	eng := newEngine(t, cfg)
	var events []string
	for _, et := range []bus.EventType{bus.ScenePushed, bus.GameStart, bus.GameQuit} {
		_, err := eng.Bus().Subscribe(et, func(e *bus.Event) error {
			events = append(events, e.Type.String())
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, eng.Setup(context.Background()))
	assert.Equal(t, 2, eng.World().EntityCount())
	assert.Len(t, eng.World().Systems(), 2)

	_, ok := ecs.GetSystem[*script.System](eng.World())
	assert.True(t, ok)

	require.NoError(t, eng.Run(context.Background()))
	assert.Equal(t, []string{"game_start", "scene_pushed", "game_quit"}, events, "the root scene is pushed on the first update")
	top, ok := eng.Scenes().Current()
	require.True(t, ok)
	assert.Equal(t, "town", top.Name())
	assert.Same(t, eng.World(), top.World())

	walker, ok := eng.World().EntityByName("walker")
	require.True(t, ok)
	tr, err := ecs.Get[*physics.Transform](walker)
	require.NoError(t, err)
	ticks := eng.Loop().Ticks()
	require.GreaterOrEqual(t, ticks, uint64(6))
	assert.InDelta(t, float64(ticks), tr.X, 1e-6, "60 units per second at 60 ticks per second")
}

func TestEngine_PauseResume(t *testing.T) {
	eng := newEngine(t, config.Default())
	var events []string
	for _, et := range []bus.EventType{bus.GamePause, bus.GameResume} {
		_, err := eng.Bus().Subscribe(et, func(e *bus.Event) error {
			events = append(events, e.Type.String())
			return nil
		})
		require.NoError(t, err)
	}

	eng.Pause()
	eng.Pause()
	assert.True(t, eng.Loop().Paused())
	eng.Resume()
	eng.Resume()
	assert.Equal(t, []string{"game_pause", "game_resume"}, events)
}

func TestEngine_SetupFailsOnBadScene(t *testing.T) {
	cfg := config.Default()
	cfg.Scene.Paths = []string{filepath.Join(t.TempDir(), "missing.yaml")}
	eng := newEngine(t, cfg)
	assert.Error(t, eng.Setup(context.Background()))
}

func TestEngine_RootSceneWithoutFiles(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.MaxTicks = 1
	eng := newEngine(t, cfg)
	require.NoError(t, eng.Setup(context.Background()))
	assert.Equal(t, 1, eng.Scenes().PendingOps())

	require.NoError(t, eng.Run(context.Background()))
	top, ok := eng.Scenes().Current()
	require.True(t, ok)
	assert.Equal(t, "main", top.Name())
	assert.GreaterOrEqual(t, eng.World().Tick(), uint64(1))
}

package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zeusync/gamecore/internal/core/ecs"
	"github.com/zeusync/gamecore/internal/core/events/bus"
	"github.com/zeusync/gamecore/internal/core/observability/log"
	"github.com/zeusync/gamecore/internal/core/systems/physics"
)

type fixture struct {
	world  *ecs.World
	bus    *bus.Bus
	engine *Engine
	logs   *observer.ObservedLogs
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := log.NewFromZap(zap.New(core))
	b := bus.New(bus.WithLogger(logger))
	w := ecs.NewWorld(ecs.WithEventBus(b), ecs.WithLogger(logger))
	e := NewEngine(w, b, logger)
	t.Cleanup(e.Close)
	return &fixture{world: w, bus: b, engine: e, logs: logs}
}

func (f *fixture) global(name string) lua.LValue {
	return f.engine.vm.GetGlobal(name)
}

func TestSystem_MovesThroughComponentAPI(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.LoadString("drift", `
function drift(entity, dt)
  local t = ecs.get(entity.id, "Transform")
  t.x = t.x + 5 * dt
  ecs.set(entity.id, "Transform", t)
end
`))

	e := f.world.CreateEntity("boat")
	tr := physics.NewTransform(1, 0)
	require.NoError(t, e.Add(tr))
	f.world.CreateEntity("cloud")

	sys := NewSystem(f.engine, "drift", ecs.SystemConfig{Required: []ecs.ComponentID{ecs.ID[*physics.Transform]()}})
	assert.Equal(t, "lua:drift", sys.Name())
	require.NoError(t, f.world.AddSystem(sys))
	require.NoError(t, f.world.Update(2))

	assert.Equal(t, 11.0, tr.X)
	assert.Equal(t, 1.0, tr.ScaleX)
}

func TestSystem_DestroyAndTags(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.LoadString("reaper", `
function reap(entity, dt)
  if ecs.has_tag(entity.id, "doomed") then
    ecs.destroy(entity.id)
  else
    ecs.add_tag(entity.id, "spared")
  end
end
`))
	doomed := f.world.CreateEntity("a")
	doomed.AddTag("doomed")
	spared := f.world.CreateEntity("b")

	require.NoError(t, f.world.AddSystem(NewSystem(f.engine, "reap", ecs.SystemConfig{})))
	require.NoError(t, f.world.Update(0.1))

	assert.Equal(t, 1, f.world.EntityCount())
	assert.True(t, spared.HasTag("spared"))
	assert.Len(t, f.world.EntitiesWithTag("spared"), 1)
}

func TestSystem_ErrorsAbortUpdate(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.LoadString("bad", `function explode(entity, dt) error("kaboom") end`))
	f.world.CreateEntity("victim")

	require.NoError(t, f.world.AddSystem(NewSystem(f.engine, "explode", ecs.SystemConfig{})))
	err := f.world.Update(1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	missing := NewSystem(f.engine, "nope", ecs.SystemConfig{Priority: 10})
	require.NoError(t, f.world.AddSystem(missing))
	assert.ErrorIs(t, f.world.Update(1), ErrFunctionNotFound)
}

func TestLuaSubscriberConsumes(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.LoadString("listener", `
hits = 0
ecs.subscribe("lua.ping", function(ev)
  hits = hits + ev.data.n
  return true
end, 10)
`))
	ping, ok := bus.TypeByName("lua.ping")
	require.True(t, ok)

	lower := 0
	_, err := f.bus.Subscribe(ping, func(*bus.Event) error { lower++; return nil }, bus.Priority(1))
	require.NoError(t, err)

	evt := f.bus.Publish(ping, map[string]any{"n": 3})
	assert.True(t, evt.Consumed())
	assert.Zero(t, lower)
	assert.Equal(t, lua.LNumber(3), f.global("hits"))

	f.engine.Close()
	assert.Equal(t, 1, f.bus.HandlerCount(ping))
}

func TestLuaPublishReachesGo(t *testing.T) {
	f := newFixture(t)
	pong := bus.NewType("lua.pong")
	var got map[string]any
	_, err := f.bus.Subscribe(pong, func(e *bus.Event) error {
		got = e.Data
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.LoadString("publisher", `consumed = ecs.publish("lua.pong", {name = "bell", tags = {"a", "b"}})`))
	assert.Equal(t, "bell", got["name"])
	assert.Equal(t, []any{"a", "b"}, got["tags"])
	assert.Equal(t, lua.LFalse, f.global("consumed"))
}

func TestLuaSeesLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.LoadString("watch", `
created = {}
ecs.subscribe("entity_created", function(ev)
  table.insert(created, ev.data.entity.name)
end)
`))
	f.world.CreateEntity("first")
	f.world.CreateEntity("second")

	tbl, ok := f.global("created").(*lua.LTable)
	require.True(t, ok)
	assert.Equal(t, []any{"first", "second"}, fromLua(tbl))
}

func TestLuaQueries(t *testing.T) {
	f := newFixture(t)
	e := f.world.CreateEntity("sign")
	require.NoError(t, e.Add(physics.NewTransform(0, 0)))

	require.NoError(t, f.engine.LoadString("query", `
local s = ecs.find("sign")
sign_id = s.id
component = s.components[1]
count = ecs.count()
missing = ecs.entity(999999999) == nil
ecs.set_active(s.id, false)
ecs.log("warn", "queried")
`))
	assert.Equal(t, lua.LNumber(e.ID()), f.global("sign_id"))
	assert.Equal(t, lua.LString("Transform"), f.global("component"))
	assert.Equal(t, lua.LNumber(1), f.global("count"))
	assert.Equal(t, lua.LTrue, f.global("missing"))
	assert.False(t, e.Active())
	assert.Equal(t, 1, f.logs.FilterMessage("queried").Len())
}

func TestLoadDir(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`order = "a"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`order = order .. "b"`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte(`# not lua`), 0o644))

	require.NoError(t, f.engine.LoadDir(dir))
	assert.Equal(t, lua.LString("ab"), f.global("order"))
	assert.Equal(t, lua.LNumber(APIVersion), f.global("API_VERSION"))
	assert.NoError(t, f.engine.LoadDir(filepath.Join(dir, "missing")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.lua"), []byte(`this is not lua`), 0o644))
	assert.Error(t, f.engine.LoadDir(dir))
}

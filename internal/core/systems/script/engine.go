package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"

	"github.com/zeusync/gamecore/internal/core/ecs"
	"github.com/zeusync/gamecore/internal/core/events/bus"
	"github.com/zeusync/gamecore/internal/core/observability/log"
)

var (
	ErrFunctionNotFound = errors.New("lua function not found")
	ErrClosed           = errors.New("script engine closed")
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// Engine wraps a single gopher-lua VM bound to one World and one Bus. Scripts
// reach the runtime through the global "ecs" table. Single-goroutine access only.
type Engine struct {
	vm    *lua.LState
	world *ecs.World
	bus   *bus.Bus
	log   log.Log
	subs  []bus.Subscription
}

func NewEngine(w *ecs.World, b *bus.Bus, logger log.Log) *Engine {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))

	e := &Engine{
		vm:    vm,
		world: w,
		bus:   b,
		log:   logger.With(log.String("component", "lua")),
	}
	vm.SetGlobal("ecs", vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"entity":     e.luaEntity,
		"find":       e.luaFind,
		"count":      e.luaCount,
		"destroy":    e.luaDestroy,
		"set_active": e.luaSetActive,
		"has_tag":    e.luaHasTag,
		"add_tag":    e.luaAddTag,
		"remove_tag": e.luaRemoveTag,
		"get":        e.luaGet,
		"set":        e.luaSet,
		"publish":    e.luaPublish,
		"subscribe":  e.luaSubscribe,
		"log":        e.luaLog,
	}))
	return e
}

// LoadString runs a chunk of Lua source. name only labels log lines.
func (e *Engine) LoadString(name, src string) error {
	if e.vm == nil {
		return ErrClosed
	}
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	e.log.Debug("loaded lua chunk", log.String("name", name))
	return nil
}

func (e *Engine) LoadFile(path string) error {
	if e.vm == nil {
		return ErrClosed
	}
	if err := e.vm.DoFile(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	e.log.Debug("loaded lua script", log.String("file", path))
	return nil
}

// LoadDir loads every .lua file of dir in name order. A missing directory is not an error.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err = e.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// HasFunction reports whether a global function named fn exists.
func (e *Engine) HasFunction(fn string) bool {
	if e.vm == nil {
		return false
	}
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// Call invokes the global function fn in protected mode and discards its results.
func (e *Engine) Call(fn string, args ...lua.LValue) error {
	if e.vm == nil {
		return ErrClosed
	}
	f, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	if !ok {
		return fmt.Errorf("%w: %s", ErrFunctionNotFound, fn)
	}
	return e.vm.CallByParam(lua.P{Fn: f, NRet: 0, Protect: true}, args...)
}

// Close cancels every subscription made from Lua and shuts the VM down.
func (e *Engine) Close() {
	for _, sub := range e.subs {
		_ = sub.Cancel()
	}
	e.subs = nil
	if e.vm != nil {
		e.vm.Close()
		e.vm = nil
	}
}

func (e *Engine) entityArg(L *lua.LState, n int) *ecs.Entity {
	id := ecs.EntityID(L.CheckInt64(n))
	ent, ok := e.world.Entity(id)
	if !ok {
		return nil
	}
	return ent
}

// ecs.entity(id) -> table | nil
func (e *Engine) luaEntity(L *lua.LState) int {
	ent := e.entityArg(L, 1)
	if ent == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(entityTable(L, ent))
	return 1
}

// ecs.find(name) -> table | nil
func (e *Engine) luaFind(L *lua.LState) int {
	ent, ok := e.world.EntityByName(L.CheckString(1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(entityTable(L, ent))
	return 1
}

// ecs.count() -> number
func (e *Engine) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(e.world.EntityCount()))
	return 1
}

// ecs.destroy(id)
func (e *Engine) luaDestroy(L *lua.LState) int {
	e.world.DestroyEntity(ecs.EntityID(L.CheckInt64(1)))
	return 0
}

// ecs.set_active(id, bool)
func (e *Engine) luaSetActive(L *lua.LState) int {
	if ent := e.entityArg(L, 1); ent != nil {
		ent.SetActive(L.CheckBool(2))
	}
	return 0
}

// ecs.has_tag(id, tag) -> bool
func (e *Engine) luaHasTag(L *lua.LState) int {
	ent := e.entityArg(L, 1)
	L.Push(lua.LBool(ent != nil && ent.HasTag(L.CheckString(2))))
	return 1
}

// ecs.add_tag(id, tag)
func (e *Engine) luaAddTag(L *lua.LState) int {
	if ent := e.entityArg(L, 1); ent != nil {
		ent.AddTag(L.CheckString(2))
	}
	return 0
}

// ecs.remove_tag(id, tag) -> bool
func (e *Engine) luaRemoveTag(L *lua.LState) int {
	ent := e.entityArg(L, 1)
	L.Push(lua.LBool(ent != nil && ent.RemoveTag(L.CheckString(2))))
	return 1
}

// ecs.get(id, component) -> table | nil
func (e *Engine) luaGet(L *lua.LState) int {
	c := e.component(L)
	if c == nil {
		L.Push(lua.LNil)
		return 1
	}
	fields, err := componentFields(c)
	if err != nil {
		L.RaiseError("ecs.get: %v", err)
		return 0
	}
	L.Push(toLua(L, fields))
	return 1
}

// ecs.set(id, component, fields) -> bool
func (e *Engine) luaSet(L *lua.LState) int {
	c := e.component(L)
	if c == nil {
		L.Push(lua.LFalse)
		return 1
	}
	fields, ok := fromLua(L.CheckTable(3)).(map[string]any)
	if !ok {
		L.ArgError(3, "expected a table of fields")
		return 0
	}
	if err := patchComponent(c, fields); err != nil {
		L.RaiseError("ecs.set: %v", err)
		return 0
	}
	L.Push(lua.LTrue)
	return 1
}

func (e *Engine) component(L *lua.LState) ecs.Component {
	ent := e.entityArg(L, 1)
	name := L.CheckString(2)
	if ent == nil {
		return nil
	}
	for _, c := range ent.Components() {
		if ecs.TypeOf(c).String() == name {
			return c
		}
	}
	return nil
}

// ecs.publish(type, data) -> consumed
func (e *Engine) luaPublish(L *lua.LState) int {
	t := bus.NewType(L.CheckString(1))
	data := map[string]any{}
	if tbl, ok := L.Get(2).(*lua.LTable); ok {
		if m, ok := fromLua(tbl).(map[string]any); ok {
			data = m
		}
	}
	evt := e.bus.Publish(t, data)
	L.Push(lua.LBool(evt.Consumed()))
	return 1
}

// ecs.subscribe(type, fn[, priority[, once]]) -> subscription id
//
// fn receives {type=..., data={...}}. Returning true consumes the event.
func (e *Engine) luaSubscribe(L *lua.LState) int {
	t := bus.NewType(L.CheckString(1))
	fn := L.CheckFunction(2)
	opts := []bus.SubOption{bus.Priority(L.OptInt(3, 0))}
	if L.OptBool(4, false) {
		opts = append(opts, bus.Once())
	}

	sub, err := e.bus.Subscribe(t, func(event *bus.Event) error {
		if e.vm == nil {
			return ErrClosed
		}
		if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, eventTable(e.vm, event)); err != nil {
			return err
		}
		ret := e.vm.Get(-1)
		e.vm.Pop(1)
		if lua.LVAsBool(ret) {
			event.Consume()
		}
		return nil
	}, opts...)
	if err != nil {
		L.RaiseError("ecs.subscribe: %v", err)
		return 0
	}
	e.subs = append(e.subs, sub)
	L.Push(lua.LString(sub.ID()))
	return 1
}

// ecs.log(level, msg)
func (e *Engine) luaLog(L *lua.LState) int {
	level, ok := log.ParseLevel(L.CheckString(1))
	if !ok {
		level = log.LevelInfo
	}
	e.log.Log(level, L.CheckString(2))
	return 0
}

package script

import (
	"fmt"
	"maps"
	"slices"

	"github.com/goccy/go-json"
	lua "github.com/yuin/gopher-lua"

	"github.com/zeusync/gamecore/internal/core/ecs"
	"github.com/zeusync/gamecore/internal/core/events/bus"
)

// toLua converts event payload values. Unknown types are rendered with %v.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case json.Number:
		f, _ := val.Float64()
		return lua.LNumber(f)
	case ecs.EntityID:
		return lua.LNumber(val)
	case ecs.ComponentID:
		return lua.LString(val.String())
	case *ecs.Entity:
		return entityTable(L, val)
	case ecs.Component:
		return lua.LString(ecs.TypeOf(val).String())
	case []string:
		t := L.CreateTable(len(val), 0)
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	case []any:
		t := L.CreateTable(len(val), 0)
		for _, item := range val {
			t.Append(toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for _, k := range slices.Sorted(maps.Keys(val)) {
			t.RawSetString(k, toLua(L, val[k]))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// fromLua converts a Lua value into plain Go data. Tables with only a
// sequence part become slices, every other table becomes a map.
func fromLua(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.Len(); n > 0 {
			isArray := true
			val.ForEach(func(k, _ lua.LValue) {
				if _, ok := k.(lua.LNumber); !ok {
					isArray = false
				}
			})
			if isArray {
				out := make([]any, 0, n)
				for i := 1; i <= n; i++ {
					out = append(out, fromLua(val.RawGetInt(i)))
				}
				return out
			}
		}
		out := make(map[string]any)
		val.ForEach(func(k, item lua.LValue) {
			out[k.String()] = fromLua(item)
		})
		return out
	default:
		return nil
	}
}

func entityTable(L *lua.LState, e *ecs.Entity) *lua.LTable {
	t := L.CreateTable(0, 5)
	t.RawSetString("id", lua.LNumber(e.ID()))
	t.RawSetString("name", lua.LString(e.Name()))
	t.RawSetString("active", lua.LBool(e.Active()))
	t.RawSetString("tags", toLua(L, e.Tags()))
	names := make([]string, 0, e.ComponentCount())
	for _, id := range e.ComponentIDs() {
		names = append(names, id.String())
	}
	slices.Sort(names)
	t.RawSetString("components", toLua(L, names))
	return t
}

func eventTable(L *lua.LState, event *bus.Event) *lua.LTable {
	t := L.CreateTable(0, 2)
	t.RawSetString("type", lua.LString(event.Type.String()))
	t.RawSetString("data", toLua(L, event.Data))
	return t
}

// componentFields exposes a component as its JSON fields.
func componentFields(c ecs.Component) (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any)
	return out, json.Unmarshal(raw, &out)
}

// patchComponent overlays fields onto c through its JSON representation.
func patchComponent(c ecs.Component, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, c)
}

package bus

import "sync"

// EventType is a dense identifier interned from an event name. The zero value
// is never handed out and is treated as invalid.
type EventType uint32

var typeTable = struct {
	sync.RWMutex
	byName map[string]EventType
	names  []string
}{
	byName: make(map[string]EventType),
	names:  []string{""},
}

// NewType returns the EventType bound to name, allocating one on first use.
// Calling it twice with the same name yields the same value.
func NewType(name string) EventType {
	typeTable.RLock()
	t, ok := typeTable.byName[name]
	typeTable.RUnlock()
	if ok {
		return t
	}

	typeTable.Lock()
	defer typeTable.Unlock()
	if t, ok = typeTable.byName[name]; ok {
		return t
	}
	t = EventType(len(typeTable.names))
	typeTable.names = append(typeTable.names, name)
	typeTable.byName[name] = t
	return t
}

// TypeByName looks up a previously interned name.
func TypeByName(name string) (EventType, bool) {
	typeTable.RLock()
	defer typeTable.RUnlock()
	t, ok := typeTable.byName[name]
	return t, ok
}

func (t EventType) String() string {
	typeTable.RLock()
	defer typeTable.RUnlock()
	if int(t) < len(typeTable.names) && t != 0 {
		return typeTable.names[t]
	}
	return "unknown"
}

func (t EventType) Valid() bool {
	typeTable.RLock()
	defer typeTable.RUnlock()
	return t != 0 && int(t) < len(typeTable.names)
}

// Engine lifecycle.
var (
	GameStart  = NewType("game_start")
	GamePause  = NewType("game_pause")
	GameResume = NewType("game_resume")
	GameQuit   = NewType("game_quit")

	ScenePushed   = NewType("scene_pushed")
	ScenePopped   = NewType("scene_popped")
	SceneSwitched = NewType("scene_switched")

	WindowResized     = NewType("window_resized")
	WindowFocusGained = NewType("window_focus_gained")
	WindowFocusLost   = NewType("window_focus_lost")

	EntityCreated    = NewType("entity_created")
	EntityDestroyed  = NewType("entity_destroyed")
	ComponentAdded   = NewType("component_added")
	ComponentRemoved = NewType("component_removed")
)

// Audio.
var (
	BGMStarted   = NewType("bgm_started")
	BGMStopped   = NewType("bgm_stopped")
	BGMCrossfade = NewType("bgm_crossfade")
	SFXPlayed    = NewType("sfx_played")
)

// UI.
var (
	MenuOpened       = NewType("menu_opened")
	MenuClosed       = NewType("menu_closed")
	DialogStarted    = NewType("dialog_started")
	DialogEnded      = NewType("dialog_ended")
	WidgetFocused    = NewType("widget_focused")
	WidgetUnfocused  = NewType("widget_unfocused")
	ButtonClicked    = NewType("button_clicked")
	SelectionChanged = NewType("selection_changed")
	TextInput        = NewType("text_input")
	InventoryOpened  = NewType("inventory_opened")
	InventoryClosed  = NewType("inventory_closed")
	ShopOpened       = NewType("shop_opened")
	ShopClosed       = NewType("shop_closed")
)

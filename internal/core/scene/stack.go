package scene

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/gamecore/internal/core/ecs"
	"github.com/zeusync/gamecore/internal/core/events/bus"
	"github.com/zeusync/gamecore/internal/core/observability/log"
	"github.com/zeusync/gamecore/pkg/sequence"
)

var ErrNilScene = errors.New("nil scene")

// Scene is one game state on the Manager's stack: a title screen, the
// gameplay map, a menu drawn over it. A scene may own a World, which the
// Manager updates and renders right after the scene's own hooks.
type Scene interface {
	Name() string
	World() *ecs.World
	Active() bool

	// Transparent lets the scene below render as well.
	Transparent() bool
	// BlocksUpdate stops every scene below from updating.
	BlocksUpdate() bool

	// OnEnter runs when the scene becomes the top of the stack, pushed or uncovered.
	OnEnter()
	// OnExit runs when the scene stops being the top, covered or removed.
	OnExit()
	// OnDestroy runs once the scene has left the stack for good.
	OnDestroy()

	Update(dt float64) error
	Render(alpha float64) error
}

// Resizer is implemented by scenes that react to window size changes.
type Resizer interface {
	OnResize(width, height int)
}

type Config struct {
	Name  string
	World *ecs.World
	// Transparent scenes let the scene below render.
	Transparent bool
	// PassUpdates lets the scenes below keep updating underneath this one.
	PassUpdates bool
}

// Base implements Scene with no-op Update and Render. Embed it and override
// what the scene needs; overrides of the hooks must call the embedded method.
type Base struct {
	cfg    Config
	active bool
}

func NewBase(cfg Config) Base {
	return Base{cfg: cfg}
}

// New returns a scene that only drives its World.
func New(cfg Config) *Base {
	b := NewBase(cfg)
	return &b
}

func (b *Base) Name() string       { return b.cfg.Name }
func (b *Base) World() *ecs.World  { return b.cfg.World }
func (b *Base) Active() bool       { return b.active }
func (b *Base) Transparent() bool  { return b.cfg.Transparent }
func (b *Base) BlocksUpdate() bool { return !b.cfg.PassUpdates }

func (b *Base) OnEnter() { b.active = true }
func (b *Base) OnExit()  { b.active = false }

// OnDestroy clears the owned World.
func (b *Base) OnDestroy() {
	if b.cfg.World != nil {
		b.cfg.World.Clear()
	}
}

func (b *Base) Update(float64) error { return nil }
func (b *Base) Render(float64) error { return nil }

type opKind uint8

const (
	opPush opKind = iota
	opPop
	opSwitch
	opClear
)

func (k opKind) String() string {
	switch k {
	case opPush:
		return "push"
	case opPop:
		return "pop"
	case opSwitch:
		return "switch"
	default:
		return "clear"
	}
}

type operation struct {
	kind  opKind
	scene Scene
}

type ManagerOption func(*Manager)

func WithEventBus(p ecs.Publisher) ManagerOption {
	return func(m *Manager) { m.events = p }
}

func WithLogger(l log.Log) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// Manager keeps a stack of scenes, top last. Push, Pop, Switch and Clear are
// queued and applied in request order at the start of the next Update, so a
// scene can replace itself from inside its own hooks. Operations requested
// while the queue is being applied run in the same pass.
//
// Manager is single-threaded, like the World it drives.
type Manager struct {
	log     log.Log
	events  ecs.Publisher
	stack   []Scene
	pending *sequence.Queue[operation]
}

func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		log:     log.NewNop(),
		pending: sequence.NewQueue[operation](4),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(log.String("component", "scenes"))
	return m
}

// Push queues s to go on top. The covered scene exits but stays on the stack.
func (m *Manager) Push(s Scene) error {
	if s == nil {
		return ErrNilScene
	}
	m.pending.Enqueue(operation{kind: opPush, scene: s})
	return nil
}

// Pop queues removal of the top scene. Popping an empty stack does nothing.
func (m *Manager) Pop() {
	m.pending.Enqueue(operation{kind: opPop})
}

// Switch queues replacing the top scene with s.
func (m *Manager) Switch(s Scene) error {
	if s == nil {
		return ErrNilScene
	}
	m.pending.Enqueue(operation{kind: opSwitch, scene: s})
	return nil
}

// Clear queues removal of every scene.
func (m *Manager) Clear() {
	m.pending.Enqueue(operation{kind: opClear})
}

// Current returns the top scene.
func (m *Manager) Current() (Scene, bool) {
	if len(m.stack) == 0 {
		return nil, false
	}
	return m.stack[len(m.stack)-1], true
}

func (m *Manager) Len() int    { return len(m.stack) }
func (m *Manager) Empty() bool { return len(m.stack) == 0 }

// PendingOps returns the number of operations waiting for the next Update.
func (m *Manager) PendingOps() int { return m.pending.Len() }

// Scenes returns the stack bottom to top.
func (m *Manager) Scenes() []Scene {
	return slices.Clone(m.stack)
}

// UpdateList returns the scenes the next Update drives, bottom to top: the
// top scene down to and including the first one that blocks updates.
func (m *Manager) UpdateList() []Scene {
	return m.visible(Scene.BlocksUpdate)
}

// RenderList returns the scenes Render draws, bottom to top: the top scene
// down to and including the first one that is not transparent.
func (m *Manager) RenderList() []Scene {
	return m.visible(func(s Scene) bool { return !s.Transparent() })
}

// Update applies queued operations, then updates every scene of UpdateList
// followed by its World. The first error aborts the pass.
func (m *Manager) Update(dt float64) error {
	m.apply()
	for _, s := range m.UpdateList() {
		if err := s.Update(dt); err != nil {
			return fmt.Errorf("scene %s: %w", s.Name(), err)
		}
		if w := s.World(); w != nil {
			if err := w.Update(dt); err != nil {
				return fmt.Errorf("scene %s: %w", s.Name(), err)
			}
		}
	}
	return nil
}

// Render draws every scene of RenderList followed by its World.
func (m *Manager) Render(alpha float64) error {
	for _, s := range m.RenderList() {
		if err := s.Render(alpha); err != nil {
			return fmt.Errorf("scene %s: %w", s.Name(), err)
		}
		if w := s.World(); w != nil {
			if err := w.Render(alpha); err != nil {
				return fmt.Errorf("scene %s: %w", s.Name(), err)
			}
		}
	}
	return nil
}

// Resize tells every scene on the stack about the new window size.
func (m *Manager) Resize(width, height int) {
	for _, s := range m.stack {
		if r, ok := s.(Resizer); ok {
			r.OnResize(width, height)
		}
	}
	m.publish(bus.WindowResized, map[string]any{"width": width, "height": height})
}

func (m *Manager) apply() {
	for !m.pending.IsEmpty() {
		op, _ := m.pending.Dequeue()
		m.log.Debug("scene operation", log.String("op", op.kind.String()), log.Int("depth", len(m.stack)))
		switch op.kind {
		case opPush:
			m.push(op.scene)
		case opPop:
			m.pop()
		case opSwitch:
			m.switchTo(op.scene)
		case opClear:
			for len(m.stack) > 0 {
				m.pop()
			}
		}
	}
}

func (m *Manager) push(s Scene) {
	if top, ok := m.Current(); ok {
		top.OnExit()
	}
	m.stack = append(m.stack, s)
	s.OnEnter()
	m.publish(bus.ScenePushed, map[string]any{"scene": s.Name(), "depth": len(m.stack)})
}

func (m *Manager) pop() {
	top, ok := m.Current()
	if !ok {
		return
	}
	m.stack = m.stack[:len(m.stack)-1]
	top.OnExit()
	top.OnDestroy()
	if next, ok := m.Current(); ok {
		next.OnEnter()
	}
	m.publish(bus.ScenePopped, map[string]any{"scene": top.Name(), "depth": len(m.stack)})
}

func (m *Manager) switchTo(s Scene) {
	from := ""
	if top, ok := m.Current(); ok {
		m.stack = m.stack[:len(m.stack)-1]
		top.OnExit()
		top.OnDestroy()
		from = top.Name()
	}
	m.stack = append(m.stack, s)
	s.OnEnter()
	m.publish(bus.SceneSwitched, map[string]any{"from": from, "to": s.Name(), "depth": len(m.stack)})
}

func (m *Manager) visible(stop func(Scene) bool) []Scene {
	i := len(m.stack) - 1
	for ; i > 0; i-- {
		if stop(m.stack[i]) {
			break
		}
	}
	if i < 0 {
		return nil
	}
	return slices.Clone(m.stack[i:])
}

func (m *Manager) publish(t bus.EventType, data map[string]any) {
	if m.events != nil {
		m.events.Publish(t, data)
	}
}

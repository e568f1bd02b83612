package physics

import (
	"github.com/zeusync/gamecore/internal/core/ecs"
)

// MovementSystem integrates Velocity into Transform once per update:
// friction, then the speed clamp, then position += velocity*dt. Facing
// follows the direction of travel.
type MovementSystem struct {
	ecs.SystemBase
}

func NewMovementSystem(priority int) *MovementSystem {
	return &MovementSystem{
		SystemBase: ecs.NewSystemBase(ecs.SystemConfig{
			Name:     "movement",
			Priority: priority,
			Required: []ecs.ComponentID{ecs.ID[*Transform](), ecs.ID[*Velocity]()},
		}),
	}
}

func (s *MovementSystem) Update(dt float64) error {
	return s.Tick(dt, s)
}

func (s *MovementSystem) ProcessEntity(e *ecs.Entity, dt float64) error {
	t, err := ecs.Get[*Transform](e)
	if err != nil {
		return err
	}
	v, err := ecs.Get[*Velocity](e)
	if err != nil {
		return err
	}

	v.ApplyFriction(dt)
	v.ClampSpeed()
	t.Move(v.VX*dt, v.VY*dt)
	if d := v.Direction(); d != DirectionNone {
		t.Facing = d
	}
	return nil
}

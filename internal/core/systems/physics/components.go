package physics

import (
	"math"

	"github.com/zeusync/gamecore/internal/core/ecs"
)

// Direction is a cardinal or ordinal facing.
type Direction string

const (
	DirectionNone      Direction = "none"
	DirectionUp        Direction = "up"
	DirectionDown      Direction = "down"
	DirectionLeft      Direction = "left"
	DirectionRight     Direction = "right"
	DirectionUpLeft    Direction = "up_left"
	DirectionUpRight   Direction = "up_right"
	DirectionDownLeft  Direction = "down_left"
	DirectionDownRight Direction = "down_right"
)

const diagonal = math.Sqrt2 / 2

// Vector returns the unit vector of d. Screen space: y grows downwards.
func (d Direction) Vector() Vec2 {
	switch d {
	case DirectionUp:
		return Vec2{Y: -1}
	case DirectionDown:
		return Vec2{Y: 1}
	case DirectionLeft:
		return Vec2{X: -1}
	case DirectionRight:
		return Vec2{X: 1}
	case DirectionUpLeft:
		return Vec2{X: -diagonal, Y: -diagonal}
	case DirectionUpRight:
		return Vec2{X: diagonal, Y: -diagonal}
	case DirectionDownLeft:
		return Vec2{X: -diagonal, Y: diagonal}
	case DirectionDownRight:
		return Vec2{X: diagonal, Y: diagonal}
	default:
		return Vec2{}
	}
}

// DirectionOf classifies a movement vector. A component dominates when it is
// more than twice the other; otherwise the direction is diagonal.
func DirectionOf(dx, dy float64) Direction {
	ax, ay := math.Abs(dx), math.Abs(dy)
	switch {
	case ax < 0.01 && ay < 0.01:
		return DirectionNone
	case ax > ay*2:
		if dx > 0 {
			return DirectionRight
		}
		return DirectionLeft
	case ay > ax*2:
		if dy > 0 {
			return DirectionDown
		}
		return DirectionUp
	case dx > 0:
		if dy > 0 {
			return DirectionDownRight
		}
		return DirectionUpRight
	default:
		if dy > 0 {
			return DirectionDownLeft
		}
		return DirectionUpLeft
	}
}

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Transform is position and orientation in world space.
type Transform struct {
	ecs.Base
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Z        float64   `json:"z"`
	Rotation float64   `json:"rotation"`
	ScaleX   float64   `json:"scale_x"`
	ScaleY   float64   `json:"scale_y"`
	Facing   Direction `json:"facing,omitempty"`
}

func NewTransform(x, y float64) *Transform {
	t := &Transform{X: x, Y: y}
	t.Defaults()
	return t
}

func (t *Transform) Defaults() {
	t.ScaleX, t.ScaleY = 1, 1
	t.Facing = DirectionDown
}

func (t *Transform) Position() Vec2 { return Vec2{X: t.X, Y: t.Y} }

func (t *Transform) Move(dx, dy float64) {
	t.X += dx
	t.Y += dy
}

func (t *Transform) MoveTo(x, y float64) {
	t.X, t.Y = x, y
}

// Tile returns the cell under the transform for a square grid of size cell.
func (t *Transform) Tile(cell float64) (int, int) {
	return int(math.Floor(t.X / cell)), int(math.Floor(t.Y / cell))
}

func (t *Transform) DistanceTo(other *Transform) float64 {
	return Distance2(t.X, t.Y, other.X, other.Y)
}

// Velocity is movement in units per second.
type Velocity struct {
	ecs.Base
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	MaxSpeed float64 `json:"max_speed"`
	// Friction is the fraction of speed lost per second, in [0, 1].
	Friction float64 `json:"friction"`
}

const DefaultMaxSpeed = 200

func NewVelocity(vx, vy float64) *Velocity {
	v := &Velocity{VX: vx, VY: vy}
	v.Defaults()
	return v
}

func (v *Velocity) Defaults() {
	v.MaxSpeed = DefaultMaxSpeed
}

func (v *Velocity) Speed() float64 { return math.Hypot(v.VX, v.VY) }

func (v *Velocity) Direction() Direction { return DirectionOf(v.VX, v.VY) }

// ApplyFriction scales the velocity by max(0, 1 - friction*dt).
func (v *Velocity) ApplyFriction(dt float64) {
	if v.Friction <= 0 {
		return
	}
	factor := math.Max(0, 1-v.Friction*dt)
	v.VX *= factor
	v.VY *= factor
}

// ClampSpeed rescales the velocity down to MaxSpeed. A non-positive MaxSpeed disables the clamp.
func (v *Velocity) ClampSpeed() {
	if v.MaxSpeed <= 0 {
		return
	}
	if speed := v.Speed(); speed > v.MaxSpeed {
		factor := v.MaxSpeed / speed
		v.VX *= factor
		v.VY *= factor
	}
}

func (v *Velocity) Set(d Direction, speed float64) {
	vec := d.Vector()
	v.VX, v.VY = vec.X*speed, vec.Y*speed
}

// Distance2 computes Euclidean distance between two 2D points.
func Distance2(x1, y1, x2, y2 float64) float64 { return math.Hypot(x2-x1, y2-y1) }

// Register adds the physics components to reg.
func Register(reg *ecs.Registry) error {
	for _, proto := range []ecs.Component{&Transform{}, &Velocity{}} {
		if _, err := reg.Register(proto); err != nil {
			return err
		}
	}
	return nil
}

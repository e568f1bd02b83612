package engine

import (
	"context"
	"time"

	"github.com/zeusync/gamecore/internal/core/observability/log"
)

// Ticker is what the loop drives. *scene.Manager and *ecs.World satisfy it.
type Ticker interface {
	Update(dt float64) error
	Render(alpha float64) error
}

// maxFrameTime caps a single frame's elapsed time so a stall does not turn
// into a burst of catch-up updates.
const maxFrameTime = 250 * time.Millisecond

// Loop runs fixed-timestep updates with one render per frame. Leftover time
// in the accumulator becomes the render interpolation alpha.
type Loop struct {
	target   Ticker
	step     time.Duration
	maxSteps int
	log      log.Log

	accumulator time.Duration
	paused      bool
	ticks       uint64
	frames      uint64
}

func NewLoop(target Ticker, tickRate, maxSteps int, logger log.Log) *Loop {
	if tickRate <= 0 {
		tickRate = 60
	}
	if tickRate > int(time.Second) {
		tickRate = int(time.Second)
	}
	if maxSteps <= 0 {
		maxSteps = 1
	}
	return &Loop{
		target:   target,
		step:     time.Second / time.Duration(tickRate),
		maxSteps: maxSteps,
		log:      logger.With(log.String("component", "loop")),
	}
}

// Step is the fixed update interval.
func (l *Loop) Step() time.Duration { return l.step }

func (l *Loop) Ticks() uint64  { return l.ticks }
func (l *Loop) Frames() uint64 { return l.frames }
func (l *Loop) Paused() bool   { return l.paused }

// SetPaused stops fixed updates while still consuming time and rendering.
func (l *Loop) SetPaused(paused bool) { l.paused = paused }

// Frame advances the simulation by elapsed wall time: as many fixed updates as
// fit (at most maxSteps, dropping the remainder beyond that), then one render.
// It returns the number of updates run.
func (l *Loop) Frame(elapsed time.Duration) (int, error) {
	if elapsed > maxFrameTime {
		elapsed = maxFrameTime
	}
	l.accumulator += elapsed

	dt := l.step.Seconds()
	steps := 0
	for l.accumulator >= l.step {
		if !l.paused {
			if err := l.target.Update(dt); err != nil {
				return steps, err
			}
			l.ticks++
		}
		l.accumulator -= l.step
		steps++
		if steps >= l.maxSteps {
			if l.accumulator >= l.step {
				l.log.Debug("dropping frame backlog", log.Duration("backlog", l.accumulator))
				l.accumulator = 0
			}
			break
		}
	}

	alpha := float64(l.accumulator) / float64(l.step)
	l.frames++
	return steps, l.target.Render(alpha)
}

// Run drives frames from a wall clock until ctx is cancelled, a tick fails,
// or maxTicks updates have run (0 means no limit).
func (l *Loop) Run(ctx context.Context, maxTicks uint64) error {
	ticker := time.NewTicker(l.step)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if _, err := l.Frame(elapsed); err != nil {
				return err
			}
			if maxTicks > 0 && l.ticks >= maxTicks {
				return nil
			}
		}
	}
}

// Package clock generates 96 PPQN ticks and 1/16 step boundaries from a BPM
// setting. It is polled from the control loop and never blocks.
package clock

import (
	"math"
	"time"
)

const (
	PPQN         = 96 // pulses per quarter note
	StepsPerBar  = 16
	TicksPerStep = PPQN / StepsPerBar // 6 ticks per step

	defaultBPM = 120.0
)

// Option configures a Clock.
type Option func(*Clock)

// WithNow replaces the time source. Tests use it to drive the clock.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBPM sets the initial tempo.
func WithBPM(bpm float64) Option {
	return func(c *Clock) {
		c.SetBPM(bpm)
	}
}

// Clock is a polled tick/step generator.
type Clock struct {
	now func() time.Time

	bpm          float64
	tickInterval float64 // microseconds

	running     bool
	lastTick    time.Time
	currentStep int
	currentTick int // tick position within the step, 0..TicksPerStep-1
	ticks       uint64

	stepCallback func(step int)
	tickCallback func()
}

// New creates a stopped clock at 120 BPM.
func New(opts ...Option) *Clock {
	c := &Clock{now: time.Now}
	c.SetBPM(defaultBPM)
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetBPM recomputes the tick interval. Non-positive or non-finite values are
// ignored. The new interval applies from the next tick boundary.
func (c *Clock) SetBPM(bpm float64) {
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return
	}
	c.bpm = bpm
	c.tickInterval = 60_000_000 / (bpm * PPQN)
}

// BPM returns the current tempo.
func (c *Clock) BPM() float64 { return c.bpm }

// TickIntervalMicros returns the tick interval in microseconds.
func (c *Clock) TickIntervalMicros() float64 { return c.tickInterval }

// TickInterval returns the tick interval as a duration.
func (c *Clock) TickInterval() time.Duration {
	return time.Duration(c.tickInterval * float64(time.Microsecond))
}

// StepInterval returns the duration of one 1/16 step.
func (c *Clock) StepInterval() time.Duration {
	return time.Duration(c.tickInterval * TicksPerStep * float64(time.Microsecond))
}

// SetStepCallback registers the function called on each step boundary.
func (c *Clock) SetStepCallback(fn func(step int)) { c.stepCallback = fn }

// SetTickCallback registers the function called on every tick.
func (c *Clock) SetTickCallback(fn func()) { c.tickCallback = fn }

// Start resets the counters and starts emitting from a cold start. The first
// tick is emitted one interval after Start and is the boundary of step 0.
func (c *Clock) Start() {
	c.currentStep = 0
	c.currentTick = 0
	c.ticks = 0
	c.lastTick = c.now()
	c.running = true
}

// Stop halts tick emission. Counters keep their values until the next Start.
func (c *Clock) Stop() {
	c.running = false
}

// Running reports whether the clock is emitting ticks.
func (c *Clock) Running() bool { return c.running }

// CurrentStep returns the step index of the last step boundary.
func (c *Clock) CurrentStep() int { return c.currentStep }

// CurrentTick returns the tick position inside the current step.
func (c *Clock) CurrentTick() int { return c.currentTick }

// Ticks returns the number of ticks emitted since Start.
func (c *Clock) Ticks() uint64 { return c.ticks }

// Update emits at most one tick if a tick interval has elapsed. When the
// caller fell behind by more than one interval the backlog is dropped and the
// phase is re-anchored to now.
func (c *Clock) Update() {
	if !c.running {
		return
	}
	now := c.now()
	interval := time.Duration(c.tickInterval * float64(time.Microsecond))
	elapsed := now.Sub(c.lastTick)
	if elapsed < interval {
		return
	}

	c.lastTick = c.lastTick.Add(interval)
	if now.Sub(c.lastTick) >= interval {
		c.lastTick = now
	}

	c.handleTick()
}

func (c *Clock) handleTick() {
	pos := int(c.ticks % TicksPerStep)
	if pos == 0 && c.ticks > 0 {
		c.currentStep = (c.currentStep + 1) % StepsPerBar
	}
	c.currentTick = pos
	c.ticks++

	if c.tickCallback != nil {
		c.tickCallback()
	}
	if pos == 0 && c.stepCallback != nil {
		c.stepCallback(c.currentStep)
	}
}

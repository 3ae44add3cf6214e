// Package engine runs the control-rate loop: it polls the clock and the
// touch matrix, routes button events to the sequencer and publishes
// snapshots for monitors.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/icco/touchseq/internal/bridge"
	"github.com/icco/touchseq/internal/clock"
	"github.com/icco/touchseq/internal/matrix"
	"github.com/icco/touchseq/internal/sensorlink"
	"github.com/icco/touchseq/internal/sequencer"
)

// Buttons with a fixed role. 0-15 select and preview steps.
const (
	ButtonRecordNote     = 16
	ButtonRecordVelocity = 17
	ButtonRecordFilter   = 18
	ButtonToggleGate     = 19
	ButtonTransport      = 20

	stepButtons = 16
)

const (
	defaultScanInterval     = time.Millisecond
	defaultSnapshotInterval = time.Second / 30
	commandQueue            = 64
)

// Ticker is notified on every clock tick, for example by a capture.
type Ticker interface {
	Tick()
}

// Config is the fixed setup of an Engine.
type Config struct {
	BPM          float64
	StepLength   int
	Channel      uint8
	Seed         uint64 // 0 picks a time-based seed
	Debounce     time.Duration
	ScanInterval time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithNow replaces the time source of the clock, the matrix and snapshots.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithTicker adds a clock tick observer.
func WithTicker(t Ticker) Option {
	return func(e *Engine) { e.tickers = append(e.tickers, t) }
}

// Engine owns the clock, the sequencer and the matrix. Everything except
// the command methods and Snapshot runs on the goroutine calling Run.
type Engine struct {
	log     *slog.Logger
	now     func() time.Time
	state   *bridge.State
	sensor  sensorlink.Sensor
	tickers []Ticker

	clock  *clock.Clock
	seq    *sequencer.Sequencer
	matrix *matrix.Matrix

	scanInterval time.Duration
	lastSnapshot time.Time
	snapshot     atomic.Pointer[Snapshot]
	commands     chan func()
}

// New wires an engine. io is usually a bridge.IO writing to state.
func New(cfg Config, state *bridge.State, io sequencer.IO, sensor sensorlink.Sensor, opts ...Option) *Engine {
	e := &Engine{
		log:          slog.Default(),
		now:          time.Now,
		state:        state,
		sensor:       sensor,
		scanInterval: cfg.ScanInterval,
		commands:     make(chan func(), commandQueue),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scanInterval <= 0 {
		e.scanInterval = defaultScanInterval
	}
	if e.sensor == nil {
		e.sensor = &sensorlink.VirtualSensor{}
	}

	seqOpts := []sequencer.Option{sequencer.WithStepLength(cfg.StepLength)}
	if cfg.Channel != 0 {
		seqOpts = append(seqOpts, sequencer.WithChannel(cfg.Channel))
	}
	if cfg.Seed != 0 {
		seqOpts = append(seqOpts, sequencer.WithSeed(cfg.Seed))
	}
	e.seq = sequencer.New(io, seqOpts...)

	e.clock = clock.New(clock.WithNow(e.now))
	e.clock.SetBPM(cfg.BPM)
	e.clock.SetTickCallback(e.onTick)
	e.clock.SetStepCallback(e.seq.AdvanceStep)

	e.matrix = matrix.New(e.sensor, matrix.WithDebounce(cfg.Debounce), matrix.WithNow(e.now))
	e.matrix.SetRisingEdgeHandler(e.onRisingEdge)
	e.matrix.SetEventHandler(e.onButton)

	e.publish()
	return e
}

func (e *Engine) onTick() {
	e.seq.TickNoteDuration()
	for _, t := range e.tickers {
		t.Tick()
	}
}

func (e *Engine) onRisingEdge(button int) {
	if button < stepButtons {
		e.seq.PlayStepNow(button)
	}
}

func (e *Engine) onButton(ev matrix.Event) {
	b := ev.Button
	if b < stepButtons {
		e.selectStep(b, ev.Type == matrix.Pressed)
		return
	}
	if ev.Type != matrix.Pressed {
		return
	}
	switch b {
	case ButtonRecordNote, ButtonRecordVelocity, ButtonRecordFilter:
		// read as holds in Poll
	case ButtonToggleGate:
		if sel := e.state.SelectedStep(); sel >= 0 {
			e.seq.ToggleStep(sel)
			e.log.Debug("gate toggled", "step", sel, "gate", e.seq.Step(sel).Gate)
		}
	case ButtonTransport:
		e.toggleTransport()
	default:
		e.log.Debug("unassigned button", "button", b)
	}
}

// selectStep selects the last pressed step button. Releasing the selected
// button falls back to the lowest step button still held, or -1.
func (e *Engine) selectStep(button int, pressed bool) {
	if pressed {
		e.state.SetSelectedStep(button)
		return
	}
	if e.state.SelectedStep() != button {
		return
	}
	sel := -1
	for i := 0; i < stepButtons; i++ {
		if e.matrix.ButtonState(i) {
			sel = i
			break
		}
	}
	e.state.SetSelectedStep(sel)
}

func (e *Engine) start() {
	if e.seq.Running() {
		return
	}
	e.clock.Start()
	e.seq.Start()
	e.log.Info("transport started", "bpm", e.clock.BPM(), "steps", e.seq.StepLength())
}

func (e *Engine) stop() {
	if !e.seq.Running() {
		return
	}
	e.clock.Stop()
	e.seq.Stop()
	e.seq.Silence()
	e.log.Info("transport stopped")
}

func (e *Engine) toggleTransport() {
	if e.seq.Running() {
		e.stop()
		return
	}
	e.start()
}

// Poll runs one control iteration. Run calls it on every scan tick; tests
// call it directly.
func (e *Engine) Poll() {
	e.drain()

	e.state.SetDistance(e.sensor.DistanceMM())
	e.matrix.Scan()

	holds := e.sensor.Holds()
	for i, b := range []int{ButtonRecordNote, ButtonRecordVelocity, ButtonRecordFilter} {
		e.state.SetHold(bridge.HoldNote+i, e.matrix.ButtonState(b) || holds&(1<<i) != 0)
	}

	e.clock.Update()
	e.seq.CaptureLive()

	if now := e.now(); now.Sub(e.lastSnapshot) >= defaultSnapshotInterval {
		e.lastSnapshot = now
		e.publish()
	}
}

// Run polls until ctx is done, then stops the transport.
func (e *Engine) Run(ctx context.Context) error {
	t := time.NewTicker(e.scanInterval)
	defer t.Stop()

	e.log.Info("engine running", "scan", e.scanInterval)
	for {
		select {
		case <-ctx.Done():
			e.drain()
			e.stop()
			e.publish()
			return nil
		case <-t.C:
			e.Poll()
		}
	}
}

func (e *Engine) drain() {
	for {
		select {
		case fn := <-e.commands:
			fn()
		default:
			return
		}
	}
}

// submit queues fn for the control goroutine. It never blocks.
func (e *Engine) submit(fn func()) {
	select {
	case e.commands <- fn:
	default:
		e.log.Warn("engine command queue full, dropping command")
	}
}

// Start starts the transport. Safe from any goroutine.
func (e *Engine) Start() { e.submit(e.start) }

// Stop stops the transport and silences the voice. Safe from any goroutine.
func (e *Engine) Stop() { e.submit(e.stop) }

// ToggleTransport flips the transport. Safe from any goroutine.
func (e *Engine) ToggleTransport() { e.submit(e.toggleTransport) }

// SetBPM changes the tempo. Safe from any goroutine.
func (e *Engine) SetBPM(bpm float64) {
	e.submit(func() { e.clock.SetBPM(bpm) })
}

// SetStepLength changes the pattern length. Safe from any goroutine.
func (e *Engine) SetStepLength(n int) {
	e.submit(func() { e.seq.SetStepLength(n) })
}

// ResetPattern loads the default patch and stops. Safe from any goroutine.
func (e *Engine) ResetPattern() {
	e.submit(func() {
		e.stop()
		e.seq.Reset()
	})
}

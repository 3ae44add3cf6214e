package engine

import (
	"github.com/icco/touchseq/internal/bridge"
	"github.com/icco/touchseq/internal/matrix"
	"github.com/icco/touchseq/internal/sequencer"
)

// Snapshot is a copy of the engine state for display.
type Snapshot struct {
	Pattern    sequencer.State
	StepLength int
	BPM        float64
	ClockStep  int
	ClockTick  int
	LastNote   int

	Selected int
	Distance int
	Holds    [3]bool
	Touch    uint16
	Grid     [matrix.Rows][matrix.Cols]bool

	Note     int
	Velocity float64
	Filter   float64
	Gate     bool
	Triggers uint64
}

func (e *Engine) publish() {
	s := &Snapshot{
		Pattern:    e.seq.State(),
		StepLength: e.seq.StepLength(),
		BPM:        e.clock.BPM(),
		ClockStep:  e.clock.CurrentStep(),
		ClockTick:  e.clock.CurrentTick(),
		LastNote:   e.seq.LastNote(),
		Selected:   e.state.SelectedStep(),
		Distance:   e.state.Distance(),
		Touch:      e.matrix.TouchBits(),
		Grid:       e.matrix.Grid(),
		Note:       e.state.Note(),
		Velocity:   e.state.Vel(),
		Filter:     e.state.Freq(),
		Gate:       e.state.Gate(),
		Triggers:   e.state.Triggers(),
	}
	for i := range s.Holds {
		s.Holds[i] = e.state.Held(bridge.HoldNote + i)
	}
	e.snapshot.Store(s)
}

// Snapshot returns the latest published state. Safe from any goroutine.
func (e *Engine) Snapshot() Snapshot {
	return *e.snapshot.Load()
}

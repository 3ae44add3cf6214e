// Package bridge holds the state shared between the control-rate loop, the
// audio-rate voice and the input devices.
//
// Every field is an individual atomic. There is no cross-field consistency:
// a reader may observe a new note with an old velocity for one block.
package bridge

import (
	"math"
	"sync/atomic"
)

// Record hold buttons, indexed by HoldNote, HoldVelocity and HoldFilter.
const (
	HoldNote = iota
	HoldVelocity
	HoldFilter

	holdCount
)

// State is the cross-context state bridge.
type State struct {
	note     atomic.Int32
	freq     atomic.Uint64 // float64 bits
	vel      atomic.Uint64 // float64 bits
	trigEnv1 atomic.Bool
	trigEnv2 atomic.Bool
	triggers atomic.Uint64

	selected atomic.Int32
	distance atomic.Int32
	holds    [holdCount]atomic.Bool
}

// NewState returns a state with no step selected, a 440 filter value and
// half velocity.
func NewState() *State {
	s := &State{}
	s.selected.Store(-1)
	s.SetFreq(440)
	s.SetVel(0.5)
	return s
}

// SetNote and Note carry the MIDI note the oscillator plays.
func (s *State) SetNote(note int) { s.note.Store(int32(note)) }
func (s *State) Note() int { return int(s.note.Load()) }

// SetFreq and Freq carry the filter target, normalized or in Hz.
func (s *State) SetFreq(f float64) { s.freq.Store(math.Float64bits(f)) }
func (s *State) Freq() float64 { return math.Float64frombits(s.freq.Load()) }

// SetVel and Vel carry the voice velocity in [0,1].
func (s *State) SetVel(v float64) { s.vel.Store(math.Float64bits(v)) }
func (s *State) Vel() float64 { return math.Float64frombits(s.vel.Load()) }

// Trigger raises the primary envelope gate and bumps the trigger counter so
// the audio side can re-articulate a gate that never went low.
func (s *State) Trigger() {
	s.triggers.Add(1)
	s.trigEnv1.Store(true)
}

// Release lowers the primary envelope gate.
func (s *State) Release() { s.trigEnv1.Store(false) }

// Gate reports the primary envelope gate.
func (s *State) Gate() bool { return s.trigEnv1.Load() }

// Triggers returns the number of Trigger calls so far.
func (s *State) Triggers() uint64 { return s.triggers.Load() }

// SetGate2 and Gate2 carry the secondary envelope gate. Nothing in the
// sequencer drives it; hosts may use it for a second voice.
func (s *State) SetGate2(on bool) { s.trigEnv2.Store(on) }
func (s *State) Gate2() bool { return s.trigEnv2.Load() }

// SetSelectedStep stores the step held for editing, -1 for none.
func (s *State) SetSelectedStep(step int) { s.selected.Store(int32(step)) }
// SelectedStep returns the step held for editing, -1 for none.
func (s *State) SelectedStep() int { return int(s.selected.Load()) }

// SetDistance stores the latest distance reading in millimetres.
func (s *State) SetDistance(mm int) { s.distance.Store(int32(mm)) }
// Distance returns the latest distance reading in millimetres.
func (s *State) Distance() int { return int(s.distance.Load()) }

// SetHold stores a record hold button. Unknown holds are ignored.
func (s *State) SetHold(hold int, held bool) {
	if hold < 0 || hold >= holdCount {
		return
	}
	s.holds[hold].Store(held)
}

// Held reports a record hold button.
func (s *State) Held(hold int) bool {
	if hold < 0 || hold >= holdCount {
		return false
	}
	return s.holds[hold].Load()
}

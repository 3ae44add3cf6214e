// Package sequencer implements a 16-step monophonic step sequencer.
//
// The sequencer is advanced by clock callbacks: AdvanceStep on every 1/16
// step boundary and TickNoteDuration on every 96 PPQN tick. It reaches MIDI,
// the envelope and the synth targets only through the IO interface.
//
// A Sequencer is owned by the control loop and is not safe for concurrent use.
package sequencer

import (
	"math"
	"math/rand/v2"
	"time"
)

const (
	defaultChannel  = 1
	defaultVelocity = 100.0 / 127.0

	noNote = -1
)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithSeed makes the default patch reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Sequencer) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithChannel sets the 1-based MIDI channel notes are sent on.
func WithChannel(ch uint8) Option {
	return func(s *Sequencer) {
		if ch >= 1 && ch <= 16 {
			s.channel = ch
		}
	}
}

// WithStepLength sets the initial pattern length.
func WithStepLength(n int) Option {
	return func(s *Sequencer) {
		s.SetStepLength(n)
	}
}

// Sequencer holds the pattern, the playhead and the monophonic voice.
type Sequencer struct {
	io      IO
	rng     *rand.Rand
	channel uint8

	state      State
	stepLength int

	lastNote            int
	currentNote         int // MIDI note sounding, noNote when silent
	noteDurationCounter int
}

// New creates a sequencer with the default patch (see Init).
func New(io IO, opts ...Option) *Sequencer {
	now := uint64(time.Now().UnixNano())
	s := &Sequencer{
		io:          io,
		rng:         rand.New(rand.NewPCG(now, now>>7)),
		channel:     defaultChannel,
		stepLength:  NumSteps,
		lastNote:    noNote,
		currentNote: noNote,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.Init()
	return s
}

// Init stops the transport, rewinds the playhead and loads the default patch:
// every step within the step length is gated with note 0, velocity 100/127
// and a random filter value in [200,1000). Steps beyond the length are
// cleared.
func (s *Sequencer) Init() {
	s.state.Playhead = 0
	s.state.Running = false
	for i := 0; i < NumSteps; i++ {
		if i < s.stepLength {
			s.state.Steps[i] = Step{
				Gate:     true,
				Note:     0,
				Velocity: defaultVelocity,
				Filter:   float64(200 + s.rng.IntN(800)),
			}
			continue
		}
		s.state.Steps[i] = Step{}
	}
}

// Reset is Init.
func (s *Sequencer) Reset() { s.Init() }

// Start sets the running flag.
func (s *Sequencer) Start() { s.state.Running = true }

// Stop clears the running flag. It does not silence the voice; see Silence.
func (s *Sequencer) Stop() { s.state.Running = false }

// Silence ends the active note and releases the envelope.
func (s *Sequencer) Silence() {
	s.handleNoteOff()
	s.io.ReleaseEnvelope()
	s.lastNote = noNote
}

// StepLength returns the number of steps the playhead wraps at.
func (s *Sequencer) StepLength() int { return s.stepLength }

// SetStepLength changes the wrap length. Values outside [1,16] select 16.
func (s *Sequencer) SetStepLength(n int) {
	if n < 1 || n > NumSteps {
		n = NumSteps
	}
	s.stepLength = n
}

// AdvanceStep plays the step at stepIndex modulo the step length. Any note
// still sounding is ended first, so repeated identical notes re-articulate.
func (s *Sequencer) AdvanceStep(stepIndex int) {
	if s.currentNote != noNote {
		s.handleNoteOff()
	}

	s.state.Playhead = mod(stepIndex, s.stepLength)
	step := s.state.Steps[s.state.Playhead]

	if !step.Gate {
		s.handleNoteOff()
		s.io.ReleaseEnvelope()
		s.lastNote = noNote
		return
	}

	note := s.resolveNote(step.Note)
	s.io.SetNote(note)
	s.io.SetVel(step.Velocity)
	s.io.SetFreq(step.Filter)
	s.io.TriggerEnvelope()
	s.startNote(note, step.Velocity, NoteTicks)
	s.lastNote = note
}

// TickNoteDuration counts down the active note. When the count reaches zero
// the note is ended and the envelope released, even in the middle of a step.
func (s *Sequencer) TickNoteDuration() {
	if s.currentNote == noNote || s.noteDurationCounter == 0 {
		return
	}
	s.noteDurationCounter--
	if s.noteDurationCounter == 0 {
		s.handleNoteOff()
		s.io.ReleaseEnvelope()
	}
}

// PlayStepNow previews a step: it sets the synth targets and triggers the
// envelope without moving the playhead or starting a MIDI note.
func (s *Sequencer) PlayStepNow(stepIndex int) {
	if stepIndex < 0 || stepIndex >= s.stepLength {
		return
	}
	step := s.state.Steps[stepIndex]
	s.io.SetNote(s.resolveNote(step.Note))
	s.io.SetVel(step.Velocity)
	s.io.SetFreq(step.Filter)
	s.io.TriggerEnvelope()
}

// SetOscillatorNote pushes an absolute MIDI note to the synth target. The
// next gated step overrides it.
func (s *Sequencer) SetOscillatorNote(midiNote int) {
	s.io.SetNote(midiNote)
}

func (s *Sequencer) resolveNote(index int) int {
	if index < 0 || index >= ScaleSize {
		index = 0
	}
	return BaseNote + s.io.ScaleNote(0, index)
}

func (s *Sequencer) startNote(note int, velocity float64, duration int) {
	s.currentNote = note
	s.noteDurationCounter = duration
	s.io.SendNoteOn(uint8(note), velocityByte(velocity), s.channel)
}

func (s *Sequencer) handleNoteOff() {
	if s.currentNote == noNote {
		return
	}
	s.io.SendNoteOff(uint8(s.currentNote), 0, s.channel)
	s.currentNote = noNote
	s.noteDurationCounter = 0
}

// ToggleStep flips the gate of a step.
func (s *Sequencer) ToggleStep(idx int) {
	if !s.inRange(idx) {
		return
	}
	s.state.Steps[idx].Gate = !s.state.Steps[idx].Gate
}

// SetStepNote sets the scale index of a step.
func (s *Sequencer) SetStepNote(idx, note int) {
	if !s.inRange(idx) || !validNote(note) {
		return
	}
	s.state.Steps[idx].Note = note
}

// SetStepVelocity sets the velocity of a step from a MIDI byte (0..127).
func (s *Sequencer) SetStepVelocity(idx int, velocity uint8) {
	if !s.inRange(idx) || velocity > 127 {
		return
	}
	s.state.Steps[idx].Velocity = float64(velocity) / 127
}

// SetStepFiltFreq sets the normalized filter value of a step.
func (s *Sequencer) SetStepFiltFreq(idx int, filter float64) {
	if !s.inRange(idx) || !validUnit(filter) {
		return
	}
	s.state.Steps[idx].Filter = filter
}

// SetStep writes every field of a step. Nothing is written if any value is
// out of range.
func (s *Sequencer) SetStep(idx int, gate, slide bool, note int, velocity, filter float64) {
	s.SetStepValue(idx, Step{Gate: gate, Slide: slide, Note: note, Velocity: velocity, Filter: filter})
}

// SetStepValue replaces a step. Nothing is written if the step is invalid.
func (s *Sequencer) SetStepValue(idx int, step Step) {
	if !s.inRange(idx) || !step.Valid() {
		return
	}
	s.state.Steps[idx] = step
}

// Step returns a step. An index outside the step length returns step 0.
func (s *Sequencer) Step(idx int) Step {
	if !s.inRange(idx) {
		idx = 0
	}
	return s.state.Steps[idx]
}

// Playhead returns the index of the step last played.
func (s *Sequencer) Playhead() int { return s.state.Playhead }

// Running reports the transport flag.
func (s *Sequencer) Running() bool { return s.state.Running }

// LastNote returns the MIDI note of the last gated step, -1 after a rest.
func (s *Sequencer) LastNote() int { return s.lastNote }

// SetLastNote overrides the last note.
func (s *Sequencer) SetLastNote(note int) { s.lastNote = note }

// CurrentNote returns the MIDI note awaiting its NoteOff, -1 if none.
func (s *Sequencer) CurrentNote() int { return s.currentNote }

// NoteTicksRemaining returns the ticks left before the active note is cut.
func (s *Sequencer) NoteTicksRemaining() int { return s.noteDurationCounter }

// State returns a copy of the pattern and transport state.
func (s *Sequencer) State() State { return s.state }

func (s *Sequencer) inRange(idx int) bool {
	return idx >= 0 && idx < s.stepLength
}

func velocityByte(v float64) uint8 {
	b := v * 127
	switch {
	case math.IsNaN(b) || b <= 0:
		return 0
	case b >= 127:
		return 127
	}
	return uint8(math.Round(b))
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}

package bridge

import (
	"log/slog"

	"github.com/icco/touchseq/internal/sequencer"
)

// NoteSender transmits MIDI notes. Channels are 0-based.
type NoteSender interface {
	NoteOn(channel, key, velocity uint8) error
	NoteOff(channel, key uint8) error
}

// IO connects a sequencer to the shared state, a scale table and a MIDI
// sender. Send errors are logged and dropped.
type IO struct {
	state  *State
	scales *ScaleTable
	out    NoteSender
	log    *slog.Logger
}

var _ sequencer.IO = (*IO)(nil)

// NewIO returns an IO. out may be nil to disable MIDI.
func NewIO(state *State, scales *ScaleTable, out NoteSender, log *slog.Logger) *IO {
	if log == nil {
		log = slog.Default()
	}
	return &IO{state: state, scales: scales, out: out, log: log}
}

func (b *IO) SendNoteOn(note, velocity, channel uint8) {
	if b.out == nil {
		return
	}
	if err := b.out.NoteOn(zeroBased(channel), note, velocity); err != nil {
		b.log.Warn("note on failed", "note", note, "channel", channel, "error", err)
	}
}

func (b *IO) SendNoteOff(note, velocity, channel uint8) {
	if b.out == nil {
		return
	}
	if err := b.out.NoteOff(zeroBased(channel), note); err != nil {
		b.log.Warn("note off failed", "note", note, "channel", channel, "error", err)
	}
}

func (b *IO) TriggerEnvelope() { b.state.Trigger() }
func (b *IO) ReleaseEnvelope() { b.state.Release() }

func (b *IO) SetNote(note int) { b.state.SetNote(note) }
func (b *IO) SetFreq(freq float64) { b.state.SetFreq(freq) }
func (b *IO) SetVel(vel float64) { b.state.SetVel(vel) }

func (b *IO) ScaleNote(scale, note int) int {
	if b.scales == nil {
		return 0
	}
	return b.scales.Note(scale, note)
}

func (b *IO) DistanceMM() int { return b.state.Distance() }
func (b *IO) SelectedStepForEdit() int { return b.state.SelectedStep() }
func (b *IO) Button16Held() bool { return b.state.Held(HoldNote) }
func (b *IO) Button17Held() bool { return b.state.Held(HoldVelocity) }
func (b *IO) Button18Held() bool { return b.state.Held(HoldFilter) }

func zeroBased(channel uint8) uint8 {
	if channel == 0 {
		return 0
	}
	return (channel - 1) & 0x0F
}

package bridge

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/icco/touchseq/internal/sequencer"
)

type sent struct {
	on           bool
	ch, key, vel uint8
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) NoteOn(ch, key, vel uint8) error {
	f.sent = append(f.sent, sent{on: true, ch: ch, key: key, vel: vel})
	return f.err
}

func (f *fakeSender) NoteOff(ch, key uint8) error {
	f.sent = append(f.sent, sent{ch: ch, key: key})
	return f.err
}

func TestStateDefaults(t *testing.T) {
	s := NewState()
	if s.SelectedStep() != -1 {
		t.Fatalf("selected = %d, want -1", s.SelectedStep())
	}
	if s.Freq() != 440 || s.Vel() != 0.5 {
		t.Fatalf("freq %v vel %v, want 440 and 0.5", s.Freq(), s.Vel())
	}
	if s.Gate() || s.Triggers() != 0 {
		t.Fatal("gate raised on a new state")
	}
}

func TestTriggerCounter(t *testing.T) {
	s := NewState()
	s.Trigger()
	s.Trigger()
	if !s.Gate() || s.Triggers() != 2 {
		t.Fatalf("gate %v triggers %d", s.Gate(), s.Triggers())
	}
	s.Release()
	if s.Gate() || s.Triggers() != 2 {
		t.Fatal("release changed the counter or left the gate high")
	}
}

func TestHoldsOutOfRange(t *testing.T) {
	s := NewState()
	s.SetHold(7, true)
	s.SetHold(HoldFilter, true)
	if s.Held(7) || s.Held(-1) || !s.Held(HoldFilter) {
		t.Fatal("hold bounds not respected")
	}
}

func TestScaleTable(t *testing.T) {
	tests := []struct {
		first string
		idx   int
		want  int
	}{
		{"chromatic", 13, 13},
		{"major", 2, 4},
		{"major", 7, 12},
		{"minor", 2, 3},
		{"pentatonic", 5, 12},
		{"Dorian", 6, 10},
		{"", 3, 3},
	}
	for _, tt := range tests {
		tab, err := NewScaleTable(tt.first)
		if err != nil {
			t.Fatalf("NewScaleTable(%q): %v", tt.first, err)
		}
		if got := tab.Note(0, tt.idx); got != tt.want {
			t.Errorf("%s[%d] = %d, want %d", tt.first, tt.idx, got, tt.want)
		}
	}
}

func TestScaleTableBounds(t *testing.T) {
	tab, err := NewScaleTable("pentatonic")
	if err != nil {
		t.Fatal(err)
	}
	if tab.Note(5, 0) != 0 || tab.Note(0, 48) != 0 || tab.Note(-1, 3) != 0 {
		t.Fatal("out-of-range lookup did not return 0")
	}
	for row := 0; row < NumScales; row++ {
		for i := 0; i < ScaleNotes; i++ {
			if n := sequencer.BaseNote + tab.Note(row, i); n > 127 {
				t.Fatalf("%s[%d] resolves to MIDI %d", tab.Name(row), i, n)
			}
		}
	}
	if tab.Name(0) != "pentatonic" || tab.Name(1) != "chromatic" {
		t.Fatalf("row order = %q, %q", tab.Name(0), tab.Name(1))
	}
	tab.SetNote(0, 0, 5)
	if tab.Note(0, 0) != 5 {
		t.Fatal("SetNote did not write")
	}
	if _, err := NewScaleTable("lydian"); err == nil {
		t.Fatal("unknown scale accepted")
	}
}

func TestIOChannelsAndTargets(t *testing.T) {
	state := NewState()
	tab, _ := NewScaleTable("chromatic")
	out := &fakeSender{}
	io := NewIO(state, tab, out, slog.New(slog.DiscardHandler))

	io.SendNoteOn(40, 100, 1)
	io.SendNoteOff(40, 0, 16)
	if len(out.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(out.sent))
	}
	if out.sent[0] != (sent{on: true, ch: 0, key: 40, vel: 100}) || out.sent[1].ch != 15 {
		t.Fatalf("unexpected messages %+v", out.sent)
	}

	io.SetNote(48)
	io.SetFreq(800)
	io.SetVel(0.25)
	io.TriggerEnvelope()
	if state.Note() != 48 || state.Freq() != 800 || state.Vel() != 0.25 || !state.Gate() {
		t.Fatal("targets not written to the state")
	}
	io.ReleaseEnvelope()
	if state.Gate() {
		t.Fatal("release did not lower the gate")
	}

	state.SetDistance(225)
	state.SetSelectedStep(4)
	state.SetHold(HoldVelocity, true)
	if io.DistanceMM() != 225 || io.SelectedStepForEdit() != 4 || !io.Button17Held() || io.Button16Held() {
		t.Fatal("live input not read from the state")
	}
}

func TestIOSendErrorsAreSwallowed(t *testing.T) {
	out := &fakeSender{err: errors.New("port closed")}
	io := NewIO(NewState(), nil, out, slog.New(slog.DiscardHandler))
	io.SendNoteOn(36, 1, 1)
	if io.ScaleNote(0, 3) != 0 {
		t.Fatal("nil scale table returned a note")
	}
	NewIO(NewState(), nil, nil, nil).SendNoteOn(36, 1, 1)
}

func TestSequencerThroughBridge(t *testing.T) {
	state := NewState()
	tab, _ := NewScaleTable("major")
	out := &fakeSender{}
	seq := sequencer.New(NewIO(state, tab, out, slog.New(slog.DiscardHandler)), sequencer.WithSeed(3))

	seq.SetStepNote(0, 2)
	seq.AdvanceStep(0)
	if state.Note() != sequencer.BaseNote+4 {
		t.Fatalf("note = %d, want %d", state.Note(), sequencer.BaseNote+4)
	}
	if state.Triggers() != 1 || len(out.sent) != 1 || out.sent[0].key != uint8(sequencer.BaseNote+4) {
		t.Fatalf("triggers %d sent %+v", state.Triggers(), out.sent)
	}
}

package midiout

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestCaptureRoundTrip(t *testing.T) {
	c := NewCapture()

	// Two notes one step (6 ticks) apart, each held 24 ticks, monophonic.
	c.NoteOn(0, 36, 100)
	for i := 0; i < 6; i++ {
		c.Tick()
	}
	c.NoteOff(0, 36)
	c.NoteOn(0, 40, 64)
	for i := 0; i < 24; i++ {
		c.Tick()
	}
	c.NoteOff(0, 40)

	if c.Len() != 4 {
		t.Fatalf("recorded %d events, want 4", c.Len())
	}

	path := filepath.Join(t.TempDir(), "take.mid")
	if err := c.WriteFile(path, 120); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	notes, bpm, err := ReadCapture(path)
	if err != nil {
		t.Fatalf("ReadCapture: %v", err)
	}
	if bpm != 120 {
		t.Errorf("bpm = %v, want 120", bpm)
	}
	want := []Note{
		{Tick: 0, Length: 6, Channel: 0, Key: 36, Velocity: 100},
		{Tick: 6, Length: 24, Channel: 0, Key: 40, Velocity: 64},
	}
	if len(notes) != len(want) {
		t.Fatalf("got %d notes, want %d: %+v", len(notes), len(want), notes)
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Errorf("note %d = %+v, want %+v", i, notes[i], want[i])
		}
	}
}

func TestCaptureWriteNeedsPath(t *testing.T) {
	if err := NewCapture().WriteFile("", 120); err == nil {
		t.Fatal("WriteFile accepted an empty path")
	}
}

func TestReadCaptureMissingFile(t *testing.T) {
	if _, _, err := ReadCapture(filepath.Join(t.TempDir(), "missing.mid")); err == nil {
		t.Fatal("ReadCapture of a missing file succeeded")
	}
}

type countingSender struct {
	on, off int
	err     error
}

func (s *countingSender) NoteOn(_, _, _ uint8) error {
	s.on++
	return s.err
}

func (s *countingSender) NoteOff(_, _ uint8) error {
	s.off++
	return s.err
}

func TestTee(t *testing.T) {
	a := &countingSender{}
	b := &countingSender{err: errors.New("boom")}
	tee := Tee{a, nil, b}

	if err := tee.NoteOn(0, 60, 100); err == nil {
		t.Fatal("Tee dropped an error")
	}
	if err := tee.NoteOff(0, 60); err == nil {
		t.Fatal("Tee dropped an error")
	}
	if a.on != 1 || a.off != 1 || b.on != 1 || b.off != 1 {
		t.Fatalf("counts a=%+v b=%+v", a, b)
	}
	if err := (Tee{a}).NoteOn(0, 60, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

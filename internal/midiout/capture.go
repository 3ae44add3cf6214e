package midiout

import (
	"errors"
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// CaptureResolution is the SMF resolution captures are written at, matching
// the sequencer clock.
const CaptureResolution = 96

type capturedEvent struct {
	tick uint64
	msg  midi.Message
}

// Capture records notes against the sequencer clock and writes them as a
// standard MIDI file. Call Tick once per clock tick.
type Capture struct {
	mu     sync.Mutex
	tick   uint64
	events []capturedEvent
}

// NewCapture returns an empty capture.
func NewCapture() *Capture {
	return &Capture{}
}

// Tick advances the capture position by one clock tick.
func (c *Capture) Tick() {
	c.mu.Lock()
	c.tick++
	c.mu.Unlock()
}

// NoteOn records a note on. Channels are 0-based.
func (c *Capture) NoteOn(channel, key, velocity uint8) error {
	c.add(midi.NoteOn(channel, key, velocity))
	return nil
}

// NoteOff records a note off. Channels are 0-based.
func (c *Capture) NoteOff(channel, key uint8) error {
	c.add(midi.NoteOff(channel, key))
	return nil
}

func (c *Capture) add(msg midi.Message) {
	c.mu.Lock()
	c.events = append(c.events, capturedEvent{tick: c.tick, msg: msg})
	c.mu.Unlock()
}

// Len returns the number of recorded events.
func (c *Capture) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

// WriteFile writes the capture as a two-track SMF: a tempo track and a note
// track.
func (c *Capture) WriteFile(path string, bpm float64) error {
	if path == "" {
		return errors.New("no file path set")
	}

	c.mu.Lock()
	events := append([]capturedEvent(nil), c.events...)
	end := c.tick
	c.mu.Unlock()

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(CaptureResolution)

	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(4, 4))
	track0.Add(0, smf.MetaTempo(bpm))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return fmt.Errorf("error adding tempo track: %w", err)
	}

	var track smf.Track
	var last uint64
	for _, ev := range events {
		track.Add(uint32(ev.tick-last), ev.msg)
		last = ev.tick
	}
	if end < last {
		end = last
	}
	track.Close(uint32(end - last))
	if err := sm.Add(track); err != nil {
		return fmt.Errorf("error adding note track: %w", err)
	}

	if err := sm.WriteFile(path); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

// Note is one note read back from a capture file. Tick and Length are in
// CaptureResolution ticks.
type Note struct {
	Tick     uint64
	Length   uint64
	Channel  uint8
	Key      uint8
	Velocity uint8
}

// ReadCapture reads the notes and the first tempo from an SMF.
func ReadCapture(path string) ([]Note, float64, error) {
	rd, err := smf.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("error reading MIDI file: %w", err)
	}

	var bpm float64
	if tempos := rd.TempoChanges(); len(tempos) > 0 {
		bpm = tempos[0].BPM
	}

	var notes []Note
	for _, track := range rd.Tracks {
		open := map[[2]uint8]int{}
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)

			var channel, key, velocity uint8
			msg := midi.Message(ev.Message)
			switch {
			case msg.GetNoteStart(&channel, &key, &velocity):
				open[[2]uint8{channel, key}] = len(notes)
				notes = append(notes, Note{Tick: tick, Channel: channel, Key: key, Velocity: velocity})
			case msg.GetNoteEnd(&channel, &key):
				id := [2]uint8{channel, key}
				if i, ok := open[id]; ok {
					notes[i].Length = tick - notes[i].Tick
					delete(open, id)
				}
			}
		}
	}
	return notes, bpm, nil
}

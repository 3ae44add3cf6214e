// Package midiout sends the sequencer's notes to MIDI ports and records them
// to standard MIDI files.
package midiout

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// ErrNoPort is returned when no output port matches the requested name.
var ErrNoPort = errors.New("no MIDI output port")

// ListPorts returns the names of the available output ports.
func ListPorts() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// Port is an open MIDI output.
type Port struct {
	mu     sync.Mutex
	name   string
	out    drivers.Out
	send   func(msg midi.Message) error
	driver *rtmididrv.Driver // set for virtual ports
}

// Open opens the first output port whose name contains name, ignoring case.
// An empty name opens the first port.
func Open(name string) (*Port, error) {
	want := strings.ToLower(name)
	for _, out := range midi.GetOutPorts() {
		if want != "" && !strings.Contains(strings.ToLower(out.String()), want) {
			continue
		}
		return newPort(out, nil)
	}
	if name == "" {
		return nil, ErrNoPort
	}
	return nil, fmt.Errorf("%w matching %q", ErrNoPort, name)
}

// OpenVirtual creates a virtual output port other applications can read
// from.
func OpenVirtual(name string) (*Port, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MIDI driver: %w", err)
	}
	out, err := driver.OpenVirtualOut(name)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create virtual MIDI port: %w", err)
	}
	p, err := newPort(out, driver)
	if err != nil {
		driver.Close()
		return nil, err
	}
	return p, nil
}

func newPort(out drivers.Out, driver *rtmididrv.Driver) (*Port, error) {
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", out.String(), err)
	}
	return &Port{name: out.String(), out: out, send: send, driver: driver}, nil
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

// NoteOn sends a note on. Channels are 0-based.
func (p *Port) NoteOn(channel, key, velocity uint8) error {
	return p.write(midi.NoteOn(channel, key, velocity))
}

// NoteOff sends a note off. Channels are 0-based.
func (p *Port) NoteOff(channel, key uint8) error {
	return p.write(midi.NoteOff(channel, key))
}

// AllNotesOff sends CC 123 on every channel.
func (p *Port) AllNotesOff() error {
	var errs []error
	for ch := uint8(0); ch < 16; ch++ {
		errs = append(errs, p.write(midi.ControlChange(ch, 123, 0)))
	}
	return errors.Join(errs...)
}

func (p *Port) write(msg midi.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.send == nil {
		return fmt.Errorf("port %s is closed", p.name)
	}
	return p.send(msg)
}

// Close silences every channel and closes the port.
func (p *Port) Close() error {
	_ = p.AllNotesOff()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.send == nil {
		return nil
	}
	p.send = nil
	err := p.out.Close()
	if p.driver != nil {
		p.driver.Close()
	}
	return err
}

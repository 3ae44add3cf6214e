package midiout

import "errors"

// Sender is anything that accepts notes on 0-based channels.
type Sender interface {
	NoteOn(channel, key, velocity uint8) error
	NoteOff(channel, key uint8) error
}

// Tee fans notes out to several senders. Every sender receives every note;
// the errors are joined.
type Tee []Sender

func (t Tee) NoteOn(channel, key, velocity uint8) error {
	var errs []error
	for _, s := range t {
		if s != nil {
			errs = append(errs, s.NoteOn(channel, key, velocity))
		}
	}
	return errors.Join(errs...)
}

func (t Tee) NoteOff(channel, key uint8) error {
	var errs []error
	for _, s := range t {
		if s != nil {
			errs = append(errs, s.NoteOff(channel, key))
		}
	}
	return errors.Join(errs...)
}

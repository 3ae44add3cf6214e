// Package sensorlink reads touch and distance readings from the sensor board
// over a serial link.
package sensorlink

import "errors"

const (
	SOF0           = 0xAA
	SOF1           = 0x55
	CmdSensorFrame = 0x20
	sensorPayload  = 5
	maxFrameLength = 32
	touchMask      = 0x0FFF
)

var (
	ErrChecksum       = errors.New("sensorlink: checksum mismatch")
	ErrShortFrame     = errors.New("sensorlink: frame length too short")
	ErrUnknownCommand = errors.New("sensorlink: unknown command")
)

// Frame is one sensor reading: the 12 electrode bits, the distance in
// millimetres and the three record hold buttons (bit 0 note, bit 1
// velocity, bit 2 filter).
type Frame struct {
	Touch      uint16
	DistanceMM uint16
	Holds      byte
}

// Encode builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][touchLo][touchHi][mmLo][mmHi][holds][CKS]
func (f Frame) Encode() []byte {
	payload := []byte{
		byte(f.Touch), byte(f.Touch >> 8),
		byte(f.DistanceMM), byte(f.DistanceMM >> 8),
		f.Holds,
	}

	length := byte(len(payload) + 1) // +1 for CMD byte
	cks := length ^ CmdSensorFrame
	for _, b := range payload {
		cks ^= b
	}

	out := []byte{SOF0, SOF1, length, CmdSensorFrame}
	out = append(out, payload...)
	out = append(out, cks)
	return out
}

type decodeState int

const (
	waitSOF0 decodeState = iota
	waitSOF1
	waitLen
	readBody
	waitCks
)

// Decoder reassembles frames from a byte stream. After an error it resyncs
// on the next start-of-frame marker.
type Decoder struct {
	state  decodeState
	length int
	body   [maxFrameLength]byte
	n      int
}

// Feed consumes one byte. It returns ok when b completes a valid frame, and
// an error when b completes a frame that is malformed.
func (d *Decoder) Feed(b byte) (f Frame, ok bool, err error) {
	switch d.state {
	case waitSOF0:
		if b == SOF0 {
			d.state = waitSOF1
		}
	case waitSOF1:
		switch b {
		case SOF1:
			d.state = waitLen
		case SOF0:
		default:
			d.state = waitSOF0
		}
	case waitLen:
		if b < 1 || int(b) > maxFrameLength {
			d.state = waitSOF0
			return Frame{}, false, ErrShortFrame
		}
		d.length = int(b)
		d.n = 0
		d.state = readBody
	case readBody:
		d.body[d.n] = b
		d.n++
		if d.n == d.length {
			d.state = waitCks
		}
	case waitCks:
		d.state = waitSOF0
		return d.finish(b)
	}
	return Frame{}, false, nil
}

func (d *Decoder) finish(cks byte) (Frame, bool, error) {
	sum := byte(d.length)
	for _, b := range d.body[:d.length] {
		sum ^= b
	}
	if sum != cks {
		return Frame{}, false, ErrChecksum
	}

	cmd, payload := d.body[0], d.body[1:d.length]
	if cmd != CmdSensorFrame {
		return Frame{}, false, ErrUnknownCommand
	}
	if len(payload) < sensorPayload {
		return Frame{}, false, ErrShortFrame
	}
	return Frame{
		Touch:      (uint16(payload[0]) | uint16(payload[1])<<8) & touchMask,
		DistanceMM: uint16(payload[2]) | uint16(payload[3])<<8,
		Holds:      payload[4] & 0x07,
	}, true, nil
}

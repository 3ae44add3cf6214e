package sensorlink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
)

// Sensor is the latest state of the sensor board.
type Sensor interface {
	Touched() uint16
	DistanceMM() int
	Holds() uint8
}

// Link decodes frames from a stream and keeps the latest reading. The
// getters are safe from any goroutine.
type Link struct {
	log *slog.Logger

	touch    atomic.Uint32
	distance atomic.Int32
	holds    atomic.Uint32

	frames atomic.Uint64
	errors atomic.Uint64
}

var _ Sensor = (*Link)(nil)

// NewLink returns a link with no reading yet.
func NewLink(log *slog.Logger) *Link {
	if log == nil {
		log = slog.Default()
	}
	return &Link{log: log}
}

func (l *Link) Touched() uint16 { return uint16(l.touch.Load()) }
func (l *Link) DistanceMM() int { return int(l.distance.Load()) }
func (l *Link) Holds() uint8 { return uint8(l.holds.Load()) }

// Frames returns the number of valid frames received.
func (l *Link) Frames() uint64 { return l.frames.Load() }

// Errors returns the number of malformed frames received.
func (l *Link) Errors() uint64 { return l.errors.Load() }

// Apply stores a frame as the latest reading.
func (l *Link) Apply(f Frame) {
	l.touch.Store(uint32(f.Touch))
	l.distance.Store(int32(f.DistanceMM))
	l.holds.Store(uint32(f.Holds))
	l.frames.Add(1)
}

// Run reads r until ctx is done or r fails. Reads returning no data, as a
// serial port does on read timeout, are retried. Malformed frames are
// counted and logged, never fatal.
func (l *Link) Run(ctx context.Context, r io.Reader) error {
	var dec Decoder
	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			f, ok, ferr := dec.Feed(b)
			if ferr != nil {
				l.errors.Add(1)
				l.log.Debug("sensorlink: dropped frame", "err", ferr)
				continue
			}
			if ok {
				l.Apply(f)
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// VirtualSensor is a Sensor set directly, for running without hardware.
type VirtualSensor struct {
	touch    atomic.Uint32
	distance atomic.Int32
	holds    atomic.Uint32
}

var _ Sensor = (*VirtualSensor)(nil)

func (v *VirtualSensor) Touched() uint16 { return uint16(v.touch.Load()) }
func (v *VirtualSensor) DistanceMM() int { return int(v.distance.Load()) }
func (v *VirtualSensor) Holds() uint8 { return uint8(v.holds.Load()) }

// SetTouched replaces the electrode bits.
func (v *VirtualSensor) SetTouched(bits uint16) { v.touch.Store(uint32(bits & touchMask)) }

// ToggleElectrode flips one electrode bit.
func (v *VirtualSensor) ToggleElectrode(electrode int) {
	if electrode < 0 || electrode > 11 {
		return
	}
	for {
		old := v.touch.Load()
		if v.touch.CompareAndSwap(old, old^(1<<electrode)) {
			return
		}
	}
}

// SetDistanceMM sets the distance reading, clamped at 0.
func (v *VirtualSensor) SetDistanceMM(mm int) { v.distance.Store(int32(max(mm, 0))) }

// SetHolds sets the hold button bits.
func (v *VirtualSensor) SetHolds(bits uint8) { v.holds.Store(uint32(bits & 0x07)) }

package audio

import (
	"math"
	"testing"

	"github.com/icco/touchseq/internal/bridge"
)

func peak(buf []float64) float64 {
	var p float64
	for _, s := range buf {
		p = math.Max(p, math.Abs(s))
	}
	return p
}

func TestSilentWithoutTrigger(t *testing.T) {
	v := NewVoice(bridge.NewState(), 8000, 16)
	buf := make([]float64, 512)
	v.Render(buf)
	if peak(buf) != 0 {
		t.Fatalf("peak = %v, want silence", peak(buf))
	}
}

func TestTriggerProducesSoundAndReleaseDecays(t *testing.T) {
	state := bridge.NewState()
	state.SetNote(57)
	state.SetVel(1)
	state.SetFreq(1)
	v := NewVoice(state, 8000, 16, WithVolume(1))
	v.Envelope().SetAttackTime(0.01, 0)
	v.Envelope().SetDecayTime(0.01)
	v.Envelope().SetReleaseTime(0.01)

	state.Trigger()
	buf := make([]float64, 800)
	v.Render(buf)
	if peak(buf) < 0.1 {
		t.Fatalf("peak = %v after trigger, want audible output", peak(buf))
	}
	if v.Level() <= 0 {
		t.Fatal("meter level not published")
	}

	// The envelope is free running: after attack, decay and release it idles
	// even with the gate still high.
	for i := 0; i < 10; i++ {
		v.Render(buf)
	}
	if peak(buf) > 1e-3 {
		t.Fatalf("peak = %v, want the envelope to have finished", peak(buf))
	}
}

func TestRetriggerWithGateHeld(t *testing.T) {
	state := bridge.NewState()
	state.SetNote(60)
	state.SetVel(1)
	v := NewVoice(state, 8000, 16)
	v.Envelope().SetAttackTime(0.005, 0)
	v.Envelope().SetDecayTime(0.005)
	v.Envelope().SetReleaseTime(0.005)

	state.Trigger()
	buf := make([]float64, 4000)
	v.Render(buf)
	if v.Envelope().Active() {
		t.Fatal("envelope still active")
	}

	// A second trigger without a release in between re-articulates.
	state.Trigger()
	v.Render(buf[:64])
	if !v.Envelope().Active() {
		t.Fatal("second trigger with the gate held did not restart the envelope")
	}
}

func TestReadWritesStereoInt16(t *testing.T) {
	state := bridge.NewState()
	state.SetVel(1)
	state.Trigger()
	v := NewVoice(state, 8000, 16, WithWave(WaveSquare), WithVolume(1))

	buf := make([]byte, 4*256)
	n, err := v.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i := 0; i < len(buf); i += 4 {
		if buf[i] != buf[i+2] || buf[i+1] != buf[i+3] {
			t.Fatalf("frame %d: left and right differ", i/4)
		}
	}
}

func TestParseWave(t *testing.T) {
	tests := []struct {
		name string
		want WaveType
		ok   bool
	}{
		{"sine", WaveSine, true},
		{"saw", WaveSawtooth, true},
		{"square", WaveSquare, true},
		{"triangle", WaveTriangle, true},
		{"noise", WaveSine, false},
	}
	for _, tt := range tests {
		got, ok := ParseWave(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseWave(%q) = %v, %v", tt.name, got, ok)
		}
	}
}

func TestMidiNoteToFreq(t *testing.T) {
	if f := midiNoteToFreq(69); f != 440 {
		t.Fatalf("A4 = %v", f)
	}
	if f := midiNoteToFreq(57); math.Abs(f-220) > 1e-9 {
		t.Fatalf("A3 = %v", f)
	}
}

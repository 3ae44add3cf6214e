// Package audio renders the sequencer's monophonic voice at audio rate.
package audio

import (
	"math"
	"sync/atomic"

	"github.com/icco/touchseq/internal/bridge"
	"github.com/icco/touchseq/internal/envelope"
)

const (
	DefaultSampleRate = 44100
	DefaultBlockSize  = 64

	channelCount = 2 // stereo
	bitDepth     = 2 // 16-bit

	// Filter values at or below 1 are normalized and scaled by this.
	filterScaleHz = 5000
	minCutoffHz   = 20
)

// WaveType represents different oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSawtooth
	WaveTriangle
)

// ParseWave returns the wave type for a name, and false if it is unknown.
func ParseWave(name string) (WaveType, bool) {
	switch name {
	case "sine", "":
		return WaveSine, true
	case "square":
		return WaveSquare, true
	case "saw", "sawtooth":
		return WaveSawtooth, true
	case "triangle":
		return WaveTriangle, true
	}
	return WaveSine, false
}

// Option configures a Voice.
type Option func(*Voice)

// WithWave sets the oscillator shape.
func WithWave(w WaveType) Option {
	return func(v *Voice) { v.wave = w }
}

// WithVolume sets the master volume (0.0 - 1.0)
func WithVolume(vol float64) Option {
	return func(v *Voice) { v.volume = math.Max(0, math.Min(1, vol)) }
}

// Voice is the monophonic synth voice. It reads its targets from the bridge
// once per block and runs the envelope at block rate. Render must only be
// called from one goroutine.
type Voice struct {
	state *bridge.State
	env   *envelope.ADSR

	sampleRate float64
	blockSize  int
	wave       WaveType
	volume     float64

	pos      int // sample within the current block
	triggers uint64
	phase    float64
	step     float64 // phase increment per sample
	gain     float64
	lpCoeff  float64
	lp       float64

	level   atomic.Uint64 // float64 bits, for meters
	scratch []float64
}

// NewVoice creates a voice reading from state.
func NewVoice(state *bridge.State, sampleRate float64, blockSize int, opts ...Option) *Voice {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	v := &Voice{
		state:      state,
		env:        envelope.New(sampleRate, blockSize),
		sampleRate: sampleRate,
		blockSize:  blockSize,
		volume:     0.3,
		triggers:   state.Triggers(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Envelope returns the voice's envelope for configuration. Configure it
// before audio starts.
func (v *Voice) Envelope() *envelope.ADSR { return v.env }

// Level returns the envelope level of the last block. Safe from any
// goroutine.
func (v *Voice) Level() float64 { return math.Float64frombits(v.level.Load()) }

// Render fills out with mono samples in [-1, 1].
func (v *Voice) Render(out []float64) {
	for i := range out {
		if v.pos == 0 {
			v.block()
		}
		v.pos++
		if v.pos == v.blockSize {
			v.pos = 0
		}

		osc := generateWave(v.wave, v.phase)
		v.phase += v.step
		if v.phase >= 1.0 {
			v.phase -= 1.0
		}

		v.lp += v.lpCoeff * (osc - v.lp)
		sample := v.lp * v.gain
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}
		out[i] = sample
	}
}

// block pulls the targets from the bridge and advances the envelope.
func (v *Voice) block() {
	if t := v.state.Triggers(); t != v.triggers {
		v.triggers = t
		v.env.Retrigger(false)
	}
	level := v.env.Process(v.state.Gate())
	v.level.Store(math.Float64bits(level))

	v.step = midiNoteToFreq(v.state.Note()) / v.sampleRate
	v.gain = level * clampUnit(v.state.Vel()) * v.volume
	v.lpCoeff = 1 - math.Exp(-2*math.Pi*v.cutoff()/v.sampleRate)
}

func (v *Voice) cutoff() float64 {
	f := v.state.Freq()
	if f <= 1 {
		f *= filterScaleHz
	}
	return math.Max(minCutoffHz, math.Min(f, 0.45*v.sampleRate))
}

// Read implements io.Reader, producing 16-bit little-endian stereo.
func (v *Voice) Read(buf []byte) (int, error) {
	numSamples := len(buf) / (channelCount * bitDepth)
	if cap(v.scratch) < numSamples {
		v.scratch = make([]float64, numSamples)
	}
	samples := v.scratch[:numSamples]
	v.Render(samples)

	for i, sample := range samples {
		sampleInt := int16(sample * 32767)

		// Write stereo samples (same for L and R)
		idx := i * channelCount * bitDepth
		buf[idx] = byte(sampleInt)
		buf[idx+1] = byte(sampleInt >> 8)
		buf[idx+2] = byte(sampleInt)
		buf[idx+3] = byte(sampleInt >> 8)
	}
	return numSamples * channelCount * bitDepth, nil
}

func generateWave(waveType WaveType, phase float64) float64 {
	switch waveType {
	case WaveSquare:
		if phase < 0.5 {
			return 0.8
		}
		return -0.8
	case WaveSawtooth:
		return 2*phase - 1
	case WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// midiNoteToFreq converts a MIDI note number to frequency in Hz
func midiNoteToFreq(note int) float64 {
	// A4 (note 69) = 440 Hz
	return 440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0)
}

func clampUnit(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

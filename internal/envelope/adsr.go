// Package envelope implements an exponential ADSR envelope generator.
//
// Each segment approaches its target with a single-pole filter whose
// coefficient is derived from the segment time. Coefficients are cached and
// recomputed only when the owning parameter changes, so Process performs no
// transcendental math.
//
// The envelope is triggered by the rising edge of the gate only. Once started
// it runs Attack, Decay and Release to completion: a falling gate edge is
// ignored and there is no indefinite sustain hold. Release begins when Decay
// has converged on the sustain level.
package envelope

import "math"

// Stage is the current envelope segment.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain // reserved; Decay hands over directly to Release
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	default:
		return "unknown"
	}
}

// Segment selects a time parameter for SetTime.
type Segment int

const (
	SegmentAttack Segment = iota
	SegmentDecay
	SegmentRelease
)

const (
	defaultSegmentTime = 0.1
	defaultSustain     = 0.7

	// SustainEpsilon is the distance from the sustain level at which Decay
	// hands over to Release.
	SustainEpsilon = 0.0001

	// releaseTarget sits below zero so Release crosses 0 in finite time.
	releaseTarget = -0.01
)

// ADSR is a single envelope instance. It is not safe for concurrent use; the
// audio-rate loop owns it.
type ADSR struct {
	rate float64 // control updates per second (sample rate / block size)

	attackTime   float64
	attackShape  float64
	decayTime    float64
	releaseTime  float64
	sustainLevel float64

	attackTarget float64
	attackCoeff  float64
	decayCoeff   float64
	releaseCoeff float64

	level float64
	gate  bool
	stage Stage
}

// New returns an idle envelope updated once per block of blockSize samples at
// sampleRate. A non-positive blockSize is treated as 1.
func New(sampleRate float64, blockSize int) *ADSR {
	if blockSize <= 0 {
		blockSize = 1
	}
	e := &ADSR{
		rate:         sampleRate / float64(blockSize),
		attackTime:   -1,
		attackShape:  -1,
		decayTime:    -1,
		releaseTime:  -1,
		sustainLevel: defaultSustain,
	}
	e.SetTime(SegmentAttack, defaultSegmentTime)
	e.SetTime(SegmentDecay, defaultSegmentTime)
	e.SetTime(SegmentRelease, defaultSegmentTime)
	return e
}

// SetTime sets the time in seconds of one segment. Attack keeps the default
// shape of 0.
func (e *ADSR) SetTime(seg Segment, seconds float64) {
	switch seg {
	case SegmentAttack:
		e.SetAttackTime(seconds, 0)
	case SegmentDecay:
		e.SetDecayTime(seconds)
	case SegmentRelease:
		e.SetReleaseTime(seconds)
	}
}

// SetAttackTime sets the attack time and curve shape. The shape maps to an
// overshooting target 9·shape¹⁰ + 0.3·shape + 1.01, always above 1.
func (e *ADSR) SetAttackTime(seconds, shape float64) {
	if seconds == e.attackTime && shape == e.attackShape {
		return
	}
	e.attackTime = seconds
	e.attackShape = shape
	e.attackTarget = 9*math.Pow(shape, 10) + 0.3*shape + 1.01
	if seconds <= 0 {
		e.attackCoeff = 1
		return
	}
	logTarget := math.Log(1 - 1/e.attackTarget)
	e.attackCoeff = 1 - math.Exp(logTarget/(seconds*e.rate))
}

// SetDecayTime sets the decay time constant in seconds.
func (e *ADSR) SetDecayTime(seconds float64) {
	e.decayCoeff = timeConstant(seconds, &e.decayTime, e.decayCoeff, e.rate)
}

// SetReleaseTime sets the release time constant in seconds.
func (e *ADSR) SetReleaseTime(seconds float64) {
	e.releaseCoeff = timeConstant(seconds, &e.releaseTime, e.releaseCoeff, e.rate)
}

// SetSustainLevel sets the level Decay converges to, clamped to [0,1].
func (e *ADSR) SetSustainLevel(level float64) {
	e.sustainLevel = math.Max(0, math.Min(1, level))
}

// timeConstant returns the coefficient reaching 63% of the distance to the
// target after seconds. It returns cur unchanged when seconds equals *time.
func timeConstant(seconds float64, time *float64, cur, rate float64) float64 {
	if seconds == *time {
		return cur
	}
	*time = seconds
	if seconds <= 0 {
		return 1
	}
	return 1 - math.Exp(math.Log(1/math.E)/(seconds*rate))
}

// Retrigger restarts the attack. A hard retrigger also drops the level to 0;
// otherwise the attack continues from the current level.
func (e *ADSR) Retrigger(hard bool) {
	e.stage = StageAttack
	if hard {
		e.level = 0
	}
}

// Process advances the envelope by one step and returns the new level.
func (e *ADSR) Process(gate bool) float64 {
	if gate && !e.gate {
		e.stage = StageAttack
	}
	e.gate = gate

	switch e.stage {
	case StageAttack:
		e.level += e.attackCoeff * (e.attackTarget - e.level)
		if e.level > 1 {
			e.level = 1
			e.stage = StageDecay
		}
	case StageDecay:
		e.level += e.decayCoeff * (e.sustainLevel - e.level)
		if math.Abs(e.level-e.sustainLevel) < SustainEpsilon {
			e.stage = StageRelease
		}
	case StageRelease:
		e.level += e.releaseCoeff * (releaseTarget - e.level)
		if e.level < 0 {
			e.level = 0
			e.stage = StageIdle
		}
	default:
		return 0
	}
	return e.level
}

// Stage returns the current segment.
func (e *ADSR) Stage() Stage { return e.stage }

// Level returns the last computed level.
func (e *ADSR) Level() float64 { return e.level }

// Active reports whether the envelope is outside the Idle stage.
func (e *ADSR) Active() bool { return e.stage != StageIdle }

// SustainLevel returns the configured sustain level.
func (e *ADSR) SustainLevel() float64 { return e.sustainLevel }

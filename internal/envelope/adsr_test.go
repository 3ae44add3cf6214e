package envelope

import (
	"math"
	"testing"
)

const testRate = 8000.0

func newTestEnvelope(a, d, s, r float64) *ADSR {
	e := New(testRate, 1)
	e.SetTime(SegmentAttack, a)
	e.SetTime(SegmentDecay, d)
	e.SetSustainLevel(s)
	e.SetTime(SegmentRelease, r)
	return e
}

func TestFullShapeWithoutGateRelease(t *testing.T) {
	const sustain = 0.5
	e := newTestEnvelope(0.01, 0.05, sustain, 0.05)

	level := e.Process(true)
	if e.Stage() != StageAttack || level <= 0 {
		t.Fatalf("after rising edge: stage=%v level=%v, want attack with positive level", e.Stage(), level)
	}

	// Drop the gate immediately: the envelope must keep running its shape.
	var (
		peaked       bool
		reachedSus   bool
		prev         = level
		releaseStart = -1
	)
	for i := 0; i < 20000 && e.Stage() != StageIdle; i++ {
		level = e.Process(false)
		switch e.Stage() {
		case StageDecay:
			if level == 1 {
				peaked = true
			}
		case StageRelease:
			if releaseStart < 0 {
				releaseStart = i
				reachedSus = math.Abs(level-sustain) < SustainEpsilon
				prev = level
				continue
			}
			if level > prev {
				t.Fatalf("release not monotonic at %d: %v > %v", i, level, prev)
			}
		}
		if e.Stage() == StageAttack && level > 1 {
			t.Fatalf("attack level %v exceeded 1", level)
		}
		prev = level
	}

	if !peaked {
		t.Error("envelope never reached 1")
	}
	if !reachedSus {
		t.Error("decay did not converge on the sustain level before release")
	}
	if e.Stage() != StageIdle || e.Level() != 0 {
		t.Fatalf("final stage=%v level=%v, want idle at 0", e.Stage(), e.Level())
	}

	for i := 0; i < 100; i++ {
		if l := e.Process(false); l != 0 {
			t.Fatalf("idle output = %v, want 0", l)
		}
	}
}

func TestFallingEdgeDoesNotForceRelease(t *testing.T) {
	e := newTestEnvelope(0.01, 0.05, 0.5, 0.05)
	e.Process(true)
	e.Process(true)
	e.Process(false)

	if e.Stage() != StageAttack {
		t.Fatalf("stage after gate release = %v, want attack", e.Stage())
	}
}

func TestZeroTimesJumpInstantly(t *testing.T) {
	e := newTestEnvelope(0, 0, 0.25, 0)

	if l := e.Process(true); l != 1 || e.Stage() != StageDecay {
		t.Fatalf("attack: level=%v stage=%v, want 1/decay", l, e.Stage())
	}
	if l := e.Process(true); l != 0.25 || e.Stage() != StageRelease {
		t.Fatalf("decay: level=%v stage=%v, want 0.25/release", l, e.Stage())
	}
	if l := e.Process(true); l != 0 || e.Stage() != StageIdle {
		t.Fatalf("release: level=%v stage=%v, want 0/idle", l, e.Stage())
	}
}

func TestRetrigger(t *testing.T) {
	e := newTestEnvelope(0.01, 0.05, 0.5, 0.05)
	e.Process(true)
	for e.Stage() != StageRelease {
		e.Process(true)
	}
	mid := e.Level()

	e.Retrigger(false)
	if e.Stage() != StageAttack || e.Level() != mid {
		t.Fatalf("legato retrigger: stage=%v level=%v, want attack at %v", e.Stage(), e.Level(), mid)
	}
	if l := e.Process(true); l <= mid {
		t.Fatalf("legato attack level %v did not rise from %v", l, mid)
	}

	e.Retrigger(true)
	if e.Level() != 0 {
		t.Fatalf("hard retrigger level = %v, want 0", e.Level())
	}
}

func TestAttackCoefficientFormula(t *testing.T) {
	tests := []struct {
		name  string
		time  float64
		shape float64
	}{
		{"default shape", 0.02, 0},
		{"mid shape", 0.02, 0.5},
		{"full shape", 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(48000, 16)
			e.SetAttackTime(tt.time, tt.shape)

			rate := 48000.0 / 16
			target := 9*math.Pow(tt.shape, 10) + 0.3*tt.shape + 1.01
			want := 1 - math.Exp(math.Log(1-1/target)/(tt.time*rate))
			if math.Abs(e.attackCoeff-want) > 1e-12 {
				t.Errorf("attack coeff = %v, want %v", e.attackCoeff, want)
			}
			if e.attackTarget <= 1 {
				t.Errorf("attack target = %v, want > 1", e.attackTarget)
			}
		})
	}
}

func TestTimeConstantCachedUntilChange(t *testing.T) {
	e := New(testRate, 1)
	e.SetDecayTime(0.2)
	first := e.decayCoeff

	e.decayCoeff = 42 // sentinel: unchanged time must not recompute
	e.SetDecayTime(0.2)
	if e.decayCoeff != 42 {
		t.Fatal("coefficient recomputed for unchanged time")
	}

	e.SetDecayTime(0.3)
	if e.decayCoeff == 42 || e.decayCoeff >= first {
		t.Fatalf("decay coeff = %v after longer time, want < %v", e.decayCoeff, first)
	}
}

func TestSustainClamped(t *testing.T) {
	e := New(testRate, 1)
	e.SetSustainLevel(1.5)
	if e.SustainLevel() != 1 {
		t.Errorf("sustain = %v, want 1", e.SustainLevel())
	}
	e.SetSustainLevel(-0.5)
	if e.SustainLevel() != 0 {
		t.Errorf("sustain = %v, want 0", e.SustainLevel())
	}
}

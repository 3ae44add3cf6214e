package sequencer

// Distance ranges, in millimetres, for live parameter capture.
const (
	editDistanceMin = 50
	editDistanceMax = 400

	liveDistanceMin = 0
	liveDistanceMax = 1400
)

// RecordLiveParameters writes distance readings into the pattern.
//
// With a step selected for editing, every held button writes its parameter
// into that step. Without a selection, the playing step is written only if it
// is gated, and only the first held button in the order note, velocity,
// filter is recorded. A selection outside the step length records nothing.
func (s *Sequencer) RecordLiveParameters(distance int, noteHeld, velocityHeld, filterHeld bool, selected int) {
	switch {
	case s.inRange(selected):
		s.recordSelected(distance, noteHeld, velocityHeld, filterHeld, &s.state.Steps[selected])
	case selected < 0:
		step := &s.state.Steps[s.state.Playhead]
		if !step.Gate {
			return
		}
		s.recordPlaying(distance, noteHeld, velocityHeld, filterHeld, step)
	}
}

func (s *Sequencer) recordSelected(distance int, noteHeld, velocityHeld, filterHeld bool, step *Step) {
	if noteHeld {
		step.Note = clamp(mapRange(distance, editDistanceMin, editDistanceMax, 0, MaxNote), 0, MaxNote)
	}
	if velocityHeld {
		v := clamp(mapRange(distance, editDistanceMin, editDistanceMax, 0, 127), 0, 127)
		step.Velocity = float64(v) / 127
	}
	if filterHeld {
		step.Filter = float64(clamp(mapRange(distance, editDistanceMin, editDistanceMax, 200, 2000), 200, 2000))
	}
}

func (s *Sequencer) recordPlaying(distance int, noteHeld, velocityHeld, filterHeld bool, step *Step) {
	switch {
	case noteHeld:
		step.Note = clamp(mapRange(distance, liveDistanceMin, liveDistanceMax, 0, MaxNote), 0, MaxNote)
	case velocityHeld:
		v := clamp(mapRange(distance, liveDistanceMin, liveDistanceMax, 0, 1000), 0, 1000)
		step.Velocity = float64(v) / 1000
	case filterHeld:
		step.Filter = float64(clamp(mapRange(distance, liveDistanceMin, liveDistanceMax, 0, 2000), 0, 2000))
	}
}

// CaptureLive records from the live input state exposed by IO.
func (s *Sequencer) CaptureLive() {
	s.RecordLiveParameters(
		s.io.DistanceMM(),
		s.io.Button16Held(),
		s.io.Button17Held(),
		s.io.Button18Held(),
		s.io.SelectedStepForEdit(),
	)
}

// mapRange maps x linearly from [inMin,inMax] to [outMin,outMax] using
// truncating integer arithmetic.
func mapRange(x, inMin, inMax, outMin, outMax int) int {
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

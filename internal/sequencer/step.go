package sequencer

const (
	NumSteps = 16

	MaxNote = 24 // highest scale index a step can hold

	// ScaleSize is the number of scale-table entries a note index may address.
	ScaleSize = 40

	// BaseNote is the MIDI note of scale index 0.
	BaseNote = 36

	// NoteTicks is the fixed gate length of a sequenced note in clock ticks.
	// It does not follow the step interval.
	NoteTicks = 24
)

// Step is one slot of the pattern. Note is a scale index, not a MIDI note.
type Step struct {
	Gate     bool
	Slide    bool // stored, never consumed
	Note     int
	Velocity float64
	Filter   float64
}

// Valid reports whether the note, velocity and filter are within range.
func (s Step) Valid() bool {
	return validNote(s.Note) && validUnit(s.Velocity) && validUnit(s.Filter)
}

func validNote(n int) bool { return n >= 0 && n <= MaxNote }

func validUnit(v float64) bool { return v >= 0 && v <= 1 }

// State is a snapshot of the pattern and transport.
type State struct {
	Steps    [NumSteps]Step
	Playhead int
	Running  bool
}

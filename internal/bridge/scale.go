package bridge

import (
	"fmt"
	"slices"
	"strings"
)

const (
	NumScales  = 5
	ScaleNotes = 48

	// maxOffset keeps every entry a valid MIDI note above the base note.
	maxOffset = 127 - 36
)

// Scale names known to NewScaleTable.
var ScaleNames = []string{"chromatic", "major", "minor", "pentatonic", "dorian"}

var scaleIntervals = map[string][]int{
	"chromatic":  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	"major":      {0, 2, 4, 5, 7, 9, 11},
	"minor":      {0, 2, 3, 5, 7, 8, 10},
	"pentatonic": {0, 2, 4, 7, 9},
	"dorian":     {0, 2, 3, 5, 7, 9, 10},
}

// ScaleTable maps scale and note indices to semitone offsets. It is written
// once at startup and read without synchronization afterwards.
type ScaleTable struct {
	names [NumScales]string
	notes [NumScales][ScaleNotes]int
}

// NewScaleTable builds the five named scales with first in row 0, which is
// the row the sequencer resolves notes through.
func NewScaleTable(first string) (*ScaleTable, error) {
	first = strings.ToLower(strings.TrimSpace(first))
	if first == "" {
		first = ScaleNames[0]
	}
	if !slices.Contains(ScaleNames, first) {
		return nil, fmt.Errorf("unknown scale %q (want one of %s)", first, strings.Join(ScaleNames, ", "))
	}

	order := []string{first}
	for _, name := range ScaleNames {
		if name != first {
			order = append(order, name)
		}
	}

	t := &ScaleTable{}
	for row, name := range order {
		t.names[row] = name
		steps := scaleIntervals[name]
		for i := 0; i < ScaleNotes; i++ {
			t.notes[row][i] = min(steps[i%len(steps)]+12*(i/len(steps)), maxOffset)
		}
	}
	return t, nil
}

// Note returns the offset at (scale, note), or 0 when either index is out
// of range.
func (t *ScaleTable) Note(scale, note int) int {
	if scale < 0 || scale >= NumScales || note < 0 || note >= ScaleNotes {
		return 0
	}
	return t.notes[scale][note]
}

// SetNote overwrites one entry. Out-of-range indices are ignored.
func (t *ScaleTable) SetNote(scale, note, value int) {
	if scale < 0 || scale >= NumScales || note < 0 || note >= ScaleNotes {
		return
	}
	t.notes[scale][note] = value
}

// Name returns the name of a scale row.
func (t *ScaleTable) Name(scale int) string {
	if scale < 0 || scale >= NumScales {
		return ""
	}
	return t.names[scale]
}

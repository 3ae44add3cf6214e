package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/icco/touchseq/internal/matrix"
	"github.com/icco/touchseq/internal/sequencer"
)

const meterWidth = 32

var barLevels = []rune("▁▂▃▄▅▆▇█")

func (m Model) View() string {
	s := m.snap
	var b strings.Builder

	b.WriteString(titleStyle.Render("touchseq") + "\n\n")

	status := "Stopped"
	if s.Pattern.Running {
		status = "Playing"
	}
	b.WriteString(fmt.Sprintf("BPM: %.0f  Steps: %d  %s\n", s.BPM, s.StepLength, status))

	sel := "none"
	if s.Selected >= 0 {
		sel = fmt.Sprintf("%X", s.Selected)
	}
	b.WriteString(fmt.Sprintf("Edit: %s  Distance: %d mm  Hold: %s  Note: %s\n\n",
		sel, s.Distance, renderHolds(s.Holds), noteLabel(s.LastNote)))

	b.WriteString(renderClockBar(s.Pattern.Running, s.Pattern.Playhead, s.StepLength) + "\n")
	b.WriteString(m.renderPattern() + "\n")
	b.WriteString(m.renderMatrix() + "\n")
	b.WriteString(labelStyle.Render("Env    ") + renderMeter(m.meter) + "\n")

	if m.message != "" {
		b.WriteString("\n" + selectedStyle.Render(m.message) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("↑↓←→/hjkl: move • enter/x: touch button • esc: release all • space: play/stop"))
	b.WriteString("\n" + helpStyle.Render("w/s W/S: distance • 1/2/3: record holds • +/-: tempo • [/]: length • c: reset • q: quit"))

	return b.String()
}

func renderClockBar(isPlaying bool, playhead, length int) string {
	// Colors for the clock bar - gradient from cyan to magenta
	colors := []string{
		"#00FFFF", "#00E5FF", "#00CCFF", "#00B2FF",
		"#0099FF", "#0080FF", "#0066FF", "#1A4DFF",
		"#3333FF", "#4D1AFF", "#6600FF", "#8000FF",
		"#9900FF", "#B300FF", "#CC00FF", "#FF00FF",
	}

	var bar strings.Builder
	bar.WriteString(labelStyle.Render("Clock  "))
	for i := 0; i < sequencer.NumSteps; i++ {
		var cell string
		var cellStyle lipgloss.Style

		switch {
		case i >= length:
			cell = "   "
			cellStyle = lipgloss.NewStyle()
		case isPlaying && i == playhead:
			cell = " ▶ "
			cellStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color(colors[i])).
				Bold(true)
		case isPlaying && i < playhead:
			cell = " █ "
			cellStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colors[i]))
		default:
			cell = " · "
			cellStyle = dimStyle
		}
		bar.WriteString(cellStyle.Render(cell))
	}
	return bar.String()
}

func (m Model) renderPattern() string {
	s := m.snap
	var b strings.Builder

	b.WriteString(labelStyle.Render("Step   "))
	hexDigits := "0123456789ABCDEF"
	for i := 0; i < sequencer.NumSteps; i++ {
		b.WriteString(fmt.Sprintf(" %c ", hexDigits[i]))
	}
	b.WriteString("\n")

	rows := []struct {
		label string
		cell  func(sequencer.Step) string
	}{
		{"Gate", func(st sequencer.Step) string {
			if st.Gate {
				return "●"
			}
			return "·"
		}},
		{"Note", func(st sequencer.Step) string { return fmt.Sprintf("%2d", st.Note) }},
		{"Vel", func(st sequencer.Step) string { return string(levelBar(st.Velocity)) }},
		{"Filt", func(st sequencer.Step) string { return string(levelBar(filterUnit(st.Filter))) }},
	}
	for _, row := range rows {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-7s", row.label)))
		for i := 0; i < sequencer.NumSteps; i++ {
			st := s.Pattern.Steps[i]
			cellStyle := lipgloss.NewStyle().Width(3).Align(lipgloss.Center)
			switch {
			case i >= s.StepLength:
				cellStyle = cellStyle.Inherit(dimStyle)
			case i == s.Selected:
				cellStyle = cellStyle.Background(lipgloss.Color("#7D56F4"))
			case s.Pattern.Running && i == s.Pattern.Playhead:
				cellStyle = cellStyle.Foreground(lipgloss.Color("#00FF00")).Bold(true)
			case st.Gate:
				cellStyle = cellStyle.Inherit(activeStyle)
			default:
				cellStyle = cellStyle.Inherit(dimStyle)
			}
			b.WriteString(cellStyle.Render(row.cell(st)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderMatrix() string {
	var b strings.Builder
	for row := 0; row < matrix.Rows; row++ {
		label := "       "
		if row == 0 {
			label = "Touch  "
		}
		b.WriteString(labelStyle.Render(label))
		for col := 0; col < matrix.Cols; col++ {
			idx := matrix.Index(row, col)
			cell := " ○ "
			cellStyle := dimStyle
			if m.snap.Grid[row][col] {
				cell = " ● "
				cellStyle = activeStyle
			}
			if idx == m.cursor {
				cellStyle = cellStyle.Background(lipgloss.Color("#7D56F4"))
			}
			b.WriteString(cellStyle.Render(cell))
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %s", buttonRole(row*matrix.Cols))))
		b.WriteString("\n")
	}
	return b.String()
}

func buttonRole(first int) string {
	switch {
	case first < 16:
		return fmt.Sprintf("steps %X-%X", first, first+matrix.Cols-1)
	case first == 16:
		return "rec note/vel/filt • gate • play"
	default:
		return "unassigned"
	}
}

func renderMeter(level float64) string {
	n := int(clamp01(level)*meterWidth + 0.5)
	return activeStyle.Render(strings.Repeat("█", n)) + dimStyle.Render(strings.Repeat("·", meterWidth-n))
}

func renderHolds(holds [3]bool) string {
	names := []string{"N", "V", "F"}
	var out string
	for i, on := range holds {
		if on {
			out += activeStyle.Render(names[i])
		} else {
			out += dimStyle.Render("-")
		}
	}
	return out
}

func levelBar(v float64) rune {
	return barLevels[int(clamp01(v)*float64(len(barLevels)-1)+0.5)]
}

// filterUnit maps both normalized and Hz filter values onto [0,1].
func filterUnit(f float64) float64 {
	if f <= 1 {
		return f
	}
	return f / 2000
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func noteLabel(note int) string {
	if note < 0 {
		return "-"
	}
	return midiNoteToName(note)
}

func midiNoteToName(note int) string {
	notes := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := (note / 12) - 1
	noteName := notes[note%12]
	return fmt.Sprintf("%s%d", noteName, octave)
}

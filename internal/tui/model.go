// Package tui is a terminal monitor for the engine. It shows the pattern,
// the touch matrix and the envelope, and simulates the sensor board from the
// keyboard.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/icco/touchseq/internal/engine"
	"github.com/icco/touchseq/internal/matrix"
	"github.com/icco/touchseq/internal/sensorlink"
)

const (
	frameRate = 30

	minBPM = 20
	maxBPM = 300
	bpmInc = 5

	distanceStep  = 25
	distanceLarge = 100
	maxDistance   = 2000
)

// Engine is the part of engine.Engine the monitor drives.
type Engine interface {
	Snapshot() engine.Snapshot
	ToggleTransport()
	SetBPM(bpm float64)
	SetStepLength(n int)
	ResetPattern()
}

// frameMsg redraws the monitor
type frameMsg time.Time

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#444444"))
)

// Model is the monitor state.
type Model struct {
	engine Engine
	sensor *sensorlink.VirtualSensor // nil when a real board is attached
	level  func() float64            // envelope level, nil without audio

	snap    engine.Snapshot
	cursor  int
	latched [matrix.ButtonCount]bool
	message string

	spring   harmonica.Spring
	meter    float64
	meterVel float64

	width  int
	height int
}

// New returns a monitor for e. sensor may be nil when the electrodes come
// from hardware; level may be nil when no audio voice runs.
func New(e Engine, sensor *sensorlink.VirtualSensor, level func() float64) Model {
	return Model{
		engine: e,
		sensor: sensor,
		level:  level,
		snap:   e.Snapshot(),
		spring: harmonica.NewSpring(harmonica.FPS(frameRate), 6.0, 0.5),
	}
}

func frame() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return frame()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case frameMsg:
		m.snap = m.engine.Snapshot()
		m.meter, m.meterVel = m.spring.Update(m.meter, m.meterVel, m.meterTarget())
		return m, frame()

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

// meterTarget is the envelope level when audio runs, otherwise the gate
// scaled by velocity.
func (m Model) meterTarget() float64 {
	if m.level != nil {
		return m.level()
	}
	if m.snap.Gate {
		return m.snap.Velocity
	}
	return 0
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case keyLeft, "h":
		if m.cursor%matrix.Cols > 0 {
			m.cursor--
		}
	case keyRight, "l":
		if m.cursor%matrix.Cols < matrix.Cols-1 {
			m.cursor++
		}
	case keyUp, "k":
		if m.cursor >= matrix.Cols {
			m.cursor -= matrix.Cols
		}
	case keyDown, "j":
		if m.cursor < matrix.ButtonCount-matrix.Cols {
			m.cursor += matrix.Cols
		}
	case "enter", "x":
		m.latched[m.cursor] = !m.latched[m.cursor]
		m.applyTouch()
	case "esc":
		m.latched = [matrix.ButtonCount]bool{}
		m.applyTouch()
	case " ", "p":
		m.engine.ToggleTransport()
	case "+", "=":
		if bpm := m.snap.BPM + bpmInc; bpm <= maxBPM {
			m.snap.BPM = bpm
			m.engine.SetBPM(bpm)
		}
	case "-", "_":
		if bpm := m.snap.BPM - bpmInc; bpm >= minBPM {
			m.snap.BPM = bpm
			m.engine.SetBPM(bpm)
		}
	case "]":
		if m.snap.StepLength < 16 {
			m.snap.StepLength++
			m.engine.SetStepLength(m.snap.StepLength)
		}
	case "[":
		if m.snap.StepLength > 1 {
			m.snap.StepLength--
			m.engine.SetStepLength(m.snap.StepLength)
		}
	case "w":
		m.nudgeDistance(distanceStep)
	case "s":
		m.nudgeDistance(-distanceStep)
	case "W":
		m.nudgeDistance(distanceLarge)
	case "S":
		m.nudgeDistance(-distanceLarge)
	case "1", "2", "3":
		m.toggleHold(int(msg.String()[0] - '1'))
	case "c":
		m.engine.ResetPattern()
		m.message = "Pattern reset"
	}
	return m, nil
}

const (
	keyUp    = "up"
	keyDown  = "down"
	keyLeft  = "left"
	keyRight = "right"
)

// applyTouch drives the simulated electrodes from the latched buttons.
func (m *Model) applyTouch() {
	if m.sensor == nil {
		m.message = "Electrodes come from the sensor board"
		return
	}
	var bits uint16
	for i, on := range m.latched {
		if on {
			bits |= matrix.Mask(i)
		}
	}
	m.sensor.SetTouched(bits)
}

func (m *Model) nudgeDistance(delta int) {
	if m.sensor == nil {
		return
	}
	d := min(max(m.sensor.DistanceMM()+delta, 0), maxDistance)
	m.sensor.SetDistanceMM(d)
}

func (m *Model) toggleHold(hold int) {
	if m.sensor == nil {
		return
	}
	m.sensor.SetHolds(m.sensor.Holds() ^ 1<<hold)
}

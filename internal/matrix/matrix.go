// Package matrix turns the touch bitmask of a single capacitive sensor into 32
// logical buttons.
//
// Four row electrodes and eight column electrodes form a virtual grid: a
// button is pressed when both its row and its column electrode report touch.
package matrix

import (
	"strings"
	"time"
)

const (
	Rows        = 4
	Cols        = 8
	ButtonCount = Rows * Cols
)

// Sensor input numbers of the row and column electrodes.
var (
	RowInputs = [Rows]uint8{3, 2, 1, 0}
	ColInputs = [Cols]uint8{4, 5, 6, 7, 8, 9, 10, 11}
)

// TouchSensor reports the current touch bitmask, one bit per electrode.
type TouchSensor interface {
	Touched() uint16
}

// EventType distinguishes presses from releases.
type EventType int

const (
	Pressed EventType = iota
	Released
)

func (t EventType) String() string {
	if t == Pressed {
		return "pressed"
	}
	return "released"
}

// Event describes a debounced button state change.
type Event struct {
	Button int
	Type   EventType
}

// button maps a logical button to its electrodes.
type button struct {
	rowInput uint8
	colInput uint8
}

// Option configures a Matrix.
type Option func(*Matrix)

// WithDebounce requires a raw state to stay unchanged for d before it is
// accepted. Zero keeps immediate edges.
func WithDebounce(d time.Duration) Option {
	return func(m *Matrix) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// WithNow replaces the time source used by the debounce window.
func WithNow(now func() time.Time) Option {
	return func(m *Matrix) {
		if now != nil {
			m.now = now
		}
	}
}

// Matrix owns the debounce table. It is scanned from the control loop and is
// not safe for concurrent use.
type Matrix struct {
	sensor  TouchSensor
	buttons [ButtonCount]button

	state      [ButtonCount]bool
	lastRaw    [ButtonCount]bool
	rawChanged [ButtonCount]time.Time
	touchBits  uint16

	debounce time.Duration
	now      func() time.Time

	onEvent      func(Event)
	onRisingEdge func(button int)
}

// New builds the 4x8 mapping over sensor. A nil sensor makes Scan a no-op.
func New(sensor TouchSensor, opts ...Option) *Matrix {
	m := &Matrix{sensor: sensor, now: time.Now}
	idx := 0
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			m.buttons[idx] = button{rowInput: RowInputs[row], colInput: ColInputs[col]}
			idx++
		}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// SetEventHandler registers the press/release handler.
func (m *Matrix) SetEventHandler(fn func(Event)) { m.onEvent = fn }

// SetRisingEdgeHandler registers the handler called on every press, before
// the event handler.
func (m *Matrix) SetRisingEdgeHandler(fn func(button int)) { m.onRisingEdge = fn }

// Scan reads the sensor once and dispatches every state change.
func (m *Matrix) Scan() {
	if m.sensor == nil {
		return
	}
	m.touchBits = m.sensor.Touched()

	var now time.Time
	if m.debounce > 0 {
		now = m.now()
	}

	for i := range m.buttons {
		curr := pressed(m.buttons[i], m.touchBits)
		if m.debounce > 0 {
			if curr != m.lastRaw[i] {
				m.lastRaw[i] = curr
				m.rawChanged[i] = now
				continue
			}
			if now.Sub(m.rawChanged[i]) < m.debounce {
				continue
			}
		}
		if curr == m.state[i] {
			continue
		}
		m.state[i] = curr
		if curr && m.onRisingEdge != nil {
			m.onRisingEdge(i)
		}
		if m.onEvent != nil {
			typ := Released
			if curr {
				typ = Pressed
			}
			m.onEvent(Event{Button: i, Type: typ})
		}
	}
}

func pressed(b button, touchBits uint16) bool {
	return touchBits&(1<<b.rowInput) != 0 && touchBits&(1<<b.colInput) != 0
}

// ButtonState returns the debounced state of a button, false when idx is out
// of range.
func (m *Matrix) ButtonState(idx int) bool {
	if idx < 0 || idx >= ButtonCount {
		return false
	}
	return m.state[idx]
}

// TouchBits returns the bitmask read by the last Scan.
func (m *Matrix) TouchBits() uint16 { return m.touchBits }

// Grid returns the debounced state laid out by row and column.
func (m *Matrix) Grid() [Rows][Cols]bool {
	var g [Rows][Cols]bool
	for row := 0; row < Rows; row++ {
		for col := 0; col < Cols; col++ {
			g[row][col] = m.state[row*Cols+col]
		}
	}
	return g
}

// String prints the grid, 1 for pressed and 0 for released.
func (m *Matrix) String() string {
	var b strings.Builder
	for _, row := range m.Grid() {
		for _, on := range row {
			if on {
				b.WriteString("1 ")
			} else {
				b.WriteString("0 ")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Index returns the logical button for a grid position, or -1.
func Index(row, col int) int {
	if row < 0 || row >= Rows || col < 0 || col >= Cols {
		return -1
	}
	return row*Cols + col
}

// Mask returns the touch bitmask that presses the button at idx.
func Mask(idx int) uint16 {
	if idx < 0 || idx >= ButtonCount {
		return 0
	}
	return 1<<RowInputs[idx/Cols] | 1<<ColInputs[idx%Cols]
}

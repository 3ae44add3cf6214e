package matrix

import (
	"strings"
	"testing"
	"time"
)

type fakeSensor struct {
	bits  uint16
	reads int
}

func (f *fakeSensor) Touched() uint16 {
	f.reads++
	return f.bits
}

func TestMappingAndMask(t *testing.T) {
	tests := []struct {
		row, col int
		want     uint16
	}{
		{0, 0, 1<<3 | 1<<4},
		{0, 7, 1<<3 | 1<<11},
		{3, 0, 1<<0 | 1<<4},
		{2, 5, 1<<1 | 1<<9},
	}
	for _, tt := range tests {
		idx := Index(tt.row, tt.col)
		if got := Mask(idx); got != tt.want {
			t.Errorf("Mask(%d) for (%d,%d) = %012b, want %012b", idx, tt.row, tt.col, got, tt.want)
		}
	}
	if Index(4, 0) != -1 || Index(0, 8) != -1 {
		t.Error("Index accepted an out-of-range position")
	}
}

func TestRowOnlyDoesNotPress(t *testing.T) {
	sensor := &fakeSensor{}
	m := New(sensor)
	rising := 0
	m.SetRisingEdgeHandler(func(int) { rising++ })

	idx := Index(1, 2)
	sensor.bits = 1 << RowInputs[1]
	m.Scan()
	if m.ButtonState(idx) {
		t.Fatal("row electrode alone pressed the button")
	}

	sensor.bits = Mask(idx)
	m.Scan()
	m.Scan()
	if !m.ButtonState(idx) {
		t.Fatal("row and column touched but button not pressed")
	}
	if rising != 1 {
		t.Fatalf("rising edge fired %d times, want 1", rising)
	}
}

func TestEventOrderAndRelease(t *testing.T) {
	sensor := &fakeSensor{}
	m := New(sensor)

	var log []string
	m.SetRisingEdgeHandler(func(b int) { log = append(log, "rise") })
	m.SetEventHandler(func(e Event) { log = append(log, e.Type.String()) })

	sensor.bits = Mask(5)
	m.Scan()
	sensor.bits = 0
	m.Scan()

	want := []string{"rise", "pressed", "released"}
	if strings.Join(log, ",") != strings.Join(want, ",") {
		t.Fatalf("dispatch order = %v, want %v", log, want)
	}
}

func TestSharedElectrodesPressSeveralButtons(t *testing.T) {
	sensor := &fakeSensor{}
	m := New(sensor)

	var events []Event
	m.SetEventHandler(func(e Event) { events = append(events, e) })

	// Two rows and one column touched: both crossings read as pressed.
	sensor.bits = 1<<RowInputs[0] | 1<<RowInputs[2] | 1<<ColInputs[3]
	m.Scan()

	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %v", len(events), events)
	}
	if events[0].Button != Index(0, 3) || events[1].Button != Index(2, 3) {
		t.Fatalf("unexpected buttons: %v", events)
	}
}

func TestOutOfRangeQuery(t *testing.T) {
	m := New(&fakeSensor{bits: 0xFFF})
	m.Scan()
	if m.ButtonState(-1) || m.ButtonState(ButtonCount) {
		t.Fatal("out-of-range ButtonState returned true")
	}
	if !m.ButtonState(ButtonCount - 1) {
		t.Fatal("all electrodes touched but last button not pressed")
	}
}

func TestNilSensorScanIsNoop(t *testing.T) {
	m := New(nil)
	m.Scan()
	if m.ButtonState(0) {
		t.Fatal("nil sensor produced a press")
	}
}

func TestDebounceWindow(t *testing.T) {
	sensor := &fakeSensor{}
	now := time.Unix(0, 0)
	m := New(sensor, WithDebounce(10*time.Millisecond), WithNow(func() time.Time { return now }))

	presses := 0
	m.SetRisingEdgeHandler(func(int) { presses++ })

	sensor.bits = Mask(0)
	m.Scan()
	now = now.Add(3 * time.Millisecond)
	sensor.bits = 0 // glitch
	m.Scan()
	now = now.Add(3 * time.Millisecond)
	sensor.bits = Mask(0)
	m.Scan()
	now = now.Add(5 * time.Millisecond)
	m.Scan()
	if presses != 0 || m.ButtonState(0) {
		t.Fatal("press accepted before the window elapsed")
	}

	now = now.Add(6 * time.Millisecond)
	m.Scan()
	if presses != 1 || !m.ButtonState(0) {
		t.Fatalf("presses = %d state = %v, want one accepted press", presses, m.ButtonState(0))
	}
}

func TestStringGrid(t *testing.T) {
	sensor := &fakeSensor{bits: Mask(Index(0, 0))}
	m := New(sensor)
	m.Scan()

	lines := strings.Split(strings.TrimSuffix(m.String(), "\n"), "\n")
	if len(lines) != Rows {
		t.Fatalf("got %d rows, want %d", len(lines), Rows)
	}
	if !strings.HasPrefix(lines[0], "1 0 ") {
		t.Fatalf("first row = %q, want it to start with the pressed button", lines[0])
	}
	if m.TouchBits() != sensor.bits {
		t.Fatalf("TouchBits = %b, want %b", m.TouchBits(), sensor.bits)
	}
}

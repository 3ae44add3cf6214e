package sensorlink

import (
	"fmt"
	"log/slog"
	"time"

	"go.bug.st/serial"
)

// readTimeout bounds each read so Run notices cancellation.
const readTimeout = 100 * time.Millisecond

// SerialPort wraps a go.bug.st/serial port.
type SerialPort struct {
	port serial.Port
	log  *slog.Logger
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(name string, baud int, log *slog.Logger) (*SerialPort, error) {
	if log == nil {
		log = slog.Default()
	}
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: failed to open %s: %w", name, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("serial: set read timeout: %w", err)
	}
	log.Info("serial: port opened", "device", name, "baud", baud)
	return &SerialPort{port: p, log: log}, nil
}

// Read implements io.Reader. It returns 0, nil on timeout.
func (s *SerialPort) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

// Close closes the underlying serial port.
func (s *SerialPort) Close() error {
	s.log.Info("serial: closing port")
	return s.port.Close()
}

// ListSerialPorts returns the serial devices present on the system.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

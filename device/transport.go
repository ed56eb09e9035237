package device

//go:generate go tool mockgen -source=transport.go -destination=mock_transport.go -package=device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"go.bug.st/serial"
)

// Transport represents an established, bidirectional byte stream to the
// synthesizer.
//
// Writes are expected to accept the whole frame. Reads may return fewer
// bytes than requested; a read returning (0, nil) is treated as a read
// timeout, which is how serial ports report one.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport configured for the given Mode.
//
// The Device closes its current Transport before dialing again, so a
// Dialer never needs to handle two open transports for the same port.
type Dialer interface {
	Dial(ctx context.Context, mode Mode) (Transport, error)
}

// Latency selects the USB bridge latency timer.
type Latency int

const (
	// LatencyStandard batches USB transfers, keeping driver CPU usage low.
	LatencyStandard Latency = iota
	// LatencyRealTime flushes every transfer immediately. Used for flash
	// programming and audio streaming.
	LatencyRealTime
)

// Timer returns the latency timer setting for l.
func (l Latency) Timer() time.Duration {
	if l == LatencyRealTime {
		return 0
	}
	return 16 * time.Millisecond
}

func (l Latency) String() string {
	switch l {
	case LatencyStandard:
		return "standard"
	case LatencyRealTime:
		return "realtime"
	default:
		return fmt.Sprintf("Latency(%d)", int(l))
	}
}

// Mode is the line configuration of an open Transport.
type Mode struct {
	BaudRate int
	Latency  Latency
}

// SerialDialer opens the synthesizer's USB-serial bridge using
// go.bug.st/serial. The line is always 8N1.
type SerialDialer struct {
	// PortName is the serial device, e.g. "/dev/ttyUSB1"
	PortName string
	// ReadTimeout bounds each read. Zero blocks until data arrives.
	ReadTimeout time.Duration
	// Logger receives latency timer diagnostics (optional)
	Logger *slog.Logger
}

var errLatencyUnsupported = errors.New("latency timer not supported on " + runtime.GOOS)

// Dial opens the port at mode.BaudRate and applies mode.Latency to the
// bridge when the platform exposes it.
func (d SerialDialer) Dial(ctx context.Context, mode Mode) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("xload: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("xload: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	port, err := serial.Open(d.PortName, &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.PortName, err)
	}

	if d.ReadTimeout > 0 {
		if err := port.SetReadTimeout(d.ReadTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", d.PortName, err)
		}
	}

	if err := setLatencyTimer(d.PortName, mode.Latency); err != nil && d.Logger != nil {
		d.Logger.Debug("latency timer not applied", "port", d.PortName, "latency", mode.Latency, "error", err)
	}

	return port, nil
}

// setLatencyTimer writes the FTDI latency timer through sysfs. Only Linux
// usb-serial drivers expose it.
func setLatencyTimer(portName string, l Latency) error {
	if runtime.GOOS != "linux" {
		return errLatencyUnsupported
	}
	path := filepath.Join("/sys/bus/usb-serial/devices", filepath.Base(portName), "latency_timer")
	ms := strconv.Itoa(int(l.Timer() / time.Millisecond))
	return os.WriteFile(path, []byte(ms), 0)
}

package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"i4.energy/across/xload/xva"
)

// Device is a session with an XVA1 synthesizer. It exclusively owns one open
// Transport at a time and knows the Mode that transport was opened with.
//
// A Device is not safe for concurrent use. Every operation runs to
// completion, blocking on the transport, before the next one may start.
type Device struct {
	// transport is the currently open byte stream, nil after a failed Reopen
	transport Transport
	// mode is the line configuration transport was opened with
	mode Mode
	// config contains the device configuration settings
	config Config
	// closed indicates if the device has been shut down
	closed bool
	logger *slog.Logger
}

// New opens a Device at the configured terminal baud rate with standard
// latency.
//
// Returns an error if the configuration has no Dialer or the transport
// cannot be opened.
func New(ctx context.Context, config Config) (*Device, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	d := &Device{
		config: config,
		logger: config.logger,
	}

	if err := d.open(ctx, Mode{BaudRate: config.baudRate, Latency: LatencyStandard}); err != nil {
		return nil, err
	}
	return d, nil
}

// Mode returns the line configuration of the open transport.
func (d *Device) Mode() Mode {
	return d.mode
}

// Reopen closes the current transport and opens a new one with mode. On
// failure the Device has no open transport until a later Reopen succeeds.
func (d *Device) Reopen(ctx context.Context, mode Mode) error {
	if d.closed {
		return ErrAlreadyClosed
	}
	if d.transport != nil {
		err := d.transport.Close()
		d.transport = nil
		if err != nil {
			return fmt.Errorf("close transport: %w", err)
		}
	}
	return d.open(ctx, mode)
}

// Close releases the transport. After Close every operation returns
// ErrAlreadyClosed.
func (d *Device) Close() error {
	if d.closed {
		return ErrAlreadyClosed
	}
	d.closed = true

	if d.transport != nil {
		t := d.transport
		d.transport = nil
		return t.Close()
	}
	return nil
}

func (d *Device) open(ctx context.Context, mode Mode) error {
	t, err := d.config.dialer.Dial(ctx, mode)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	if t == nil {
		return ErrNotInitialized
	}
	d.transport = t
	d.mode = mode
	d.logger.Debug("transport open", "baud", mode.BaudRate, "latency", mode.Latency)
	return nil
}

// switchMode reopens the transport in mode and returns a function that
// restores the previous mode. If mode cannot be opened the previous mode is
// restored before returning. Restoring runs even when ctx has been
// cancelled.
func (d *Device) switchMode(ctx context.Context, mode Mode) (restore func() error, err error) {
	prev := d.mode
	restore = func() error {
		if err := d.Reopen(context.WithoutCancel(ctx), prev); err != nil {
			return fmt.Errorf("restore %s latency at %d baud: %w", prev.Latency, prev.BaudRate, err)
		}
		return nil
	}
	if err := d.Reopen(ctx, mode); err != nil {
		if d.closed {
			return nil, err
		}
		return nil, errors.Join(err, restore())
	}
	return restore, nil
}

func (d *Device) ready() error {
	if d.closed {
		return ErrAlreadyClosed
	}
	if d.transport == nil {
		return ErrNotInitialized
	}
	return nil
}

// write sends frame in a single transport write.
func (d *Device) write(op string, frame []byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	n, err := d.transport.Write(frame)
	if err != nil {
		return &TransportError{Op: op, Want: len(frame), Got: n, Err: err}
	}
	if n != len(frame) {
		return &TransportError{Op: op, Want: len(frame), Got: n, Err: ErrShortWrite}
	}
	return nil
}

// read fills buf, looping over partial reads. A read that returns no data
// ends the operation with ErrTimeout.
func (d *Device) read(op string, buf []byte) error {
	if err := d.ready(); err != nil {
		return err
	}
	got := 0
	for got < len(buf) {
		n, err := d.transport.Read(buf[got:])
		got += n
		if err != nil {
			return &TransportError{Op: op, Want: len(buf), Got: got, Err: err}
		}
		if n == 0 {
			return &TransportError{Op: op, Want: len(buf), Got: got, Err: ErrTimeout}
		}
	}
	return nil
}

func (d *Device) readByte(op string) (byte, error) {
	var b [1]byte
	if err := d.read(op, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// transact runs one row of the protocol table: the opcode is prepended to
// the first argument group, every group is sent as its own write, and the
// reply is read and checked according to the row's Reply kind. Echo replies
// are returned for the caller to compare.
func (d *Device) transact(op xva.Op, args ...[]byte) ([]byte, error) {
	c := xva.Lookup(op)

	first := []byte{c.Opcode}
	if len(args) > 0 {
		first = append(first, args[0]...)
		args = args[1:]
	}
	if err := d.write(c.Name, first); err != nil {
		return nil, err
	}
	for _, a := range args {
		if err := d.write(c.Name, a); err != nil {
			return nil, err
		}
	}
	d.logger.Debug("tx", "op", c.Name, "opcode", fmt.Sprintf("0x%02X", c.Opcode))

	if c.ReplyLen == 0 {
		return nil, nil
	}
	reply := make([]byte, c.ReplyLen)
	if err := d.read(c.Name, reply); err != nil {
		return nil, err
	}
	if c.Reply == xva.ReplyStatus && reply[0] != xva.StatusOK {
		return reply, &RejectedError{Op: c.Name, Status: reply[0], Want: xva.StatusOK}
	}
	return reply, nil
}

// expectEcho runs op and requires the one-byte reply to equal want.
func (d *Device) expectEcho(op xva.Op, want byte, args ...[]byte) error {
	reply, err := d.transact(op, args...)
	if err != nil {
		return err
	}
	if reply[0] != want {
		return &RejectedError{Op: xva.Lookup(op).Name, Status: reply[0], Want: want}
	}
	return nil
}

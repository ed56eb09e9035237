package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDialer is returned when a Device is constructed without a Dialer.
	//
	// This indicates a configuration error. A Dialer is required in order to
	// open the transport to the synthesizer.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrNotInitialized is returned when an operation is attempted on a
	// Device without an open transport, for example after a failed Reopen.
	ErrNotInitialized = errors.New("device not initialized")

	// ErrAlreadyClosed is returned when Close is called on a Device that has
	// already been closed, or when any operation follows Close.
	ErrAlreadyClosed = errors.New("device already closed")

	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport failure")

	// ErrRejected matches every *RejectedError.
	ErrRejected = errors.New("device rejected command")

	// ErrInvalidArgument matches every *ArgumentError and is returned for
	// arguments rejected before any I/O takes place.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShortWrite reports a write that accepted fewer bytes than the frame.
	ErrShortWrite = errors.New("short write")

	// ErrTimeout reports a read that returned no data.
	ErrTimeout = errors.New("read timed out")
)

// TransportError reports a write or read that did not move the expected
// number of bytes. The operation is aborted and the device may be left in
// the middle of a frame.
type TransportError struct {
	Op   string
	Want int
	Got  int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transferred %d of %d bytes: %v", e.Op, e.Got, e.Want, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RejectedError reports a status byte other than the one the command
// requires.
type RejectedError struct {
	Op     string
	Status byte
	Want   byte
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected: status 0x%02X, want 0x%02X", e.Op, e.Status, e.Want)
}

func (e *RejectedError) Is(target error) bool { return target == ErrRejected }

// ArgumentError reports a value outside its allowed range.
type ArgumentError struct {
	Name  string
	Value int
	Min   int
	Max   int
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s %d (%d-%d)", e.Name, e.Value, e.Min, e.Max)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

func checkRange(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &ArgumentError{Name: name, Value: v, Min: lo, Max: hi}
	}
	return nil
}

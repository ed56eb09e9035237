// Package wav frames a raw PCM byte stream in a RIFF/WAVE container whose
// length fields are written once the stream ends.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	SampleRate    = 96000
	Channels      = 2
	BitsPerSample = 24
	BlockAlign    = Channels * BitsPerSample / 8
	ByteRate      = SampleRate * BlockAlign

	// HeaderSize is the size of everything before the first sample.
	HeaderSize = 46
	// RIFFSizeOffset and DataSizeOffset locate the two patched fields.
	RIFFSizeOffset = 4
	DataSizeOffset = 42

	fmtChunkSize = 18
	formatPCM    = 1
)

// ErrClosed is returned when writing to a Writer after Close.
var ErrClosed = errors.New("wav: writer closed")

// Writer appends samples after a header with placeholder lengths.
type Writer struct {
	ws     io.WriteSeeker
	n      int64
	closed bool
}

// Header returns the container header for a stream of dataLen bytes.
func Header(dataLen uint32) []byte {
	h := make([]byte, 0, HeaderSize)
	h = append(h, "RIFF"...)
	h = binary.LittleEndian.AppendUint32(h, dataLen+HeaderSize-8)
	h = append(h, "WAVE"...)
	h = append(h, "fmt "...)
	h = binary.LittleEndian.AppendUint32(h, fmtChunkSize)
	h = binary.LittleEndian.AppendUint16(h, formatPCM)
	h = binary.LittleEndian.AppendUint16(h, Channels)
	h = binary.LittleEndian.AppendUint32(h, SampleRate)
	h = binary.LittleEndian.AppendUint32(h, ByteRate)
	h = binary.LittleEndian.AppendUint16(h, BlockAlign)
	h = binary.LittleEndian.AppendUint16(h, BitsPerSample)
	h = binary.LittleEndian.AppendUint16(h, 0) // cbSize
	h = append(h, "data"...)
	h = binary.LittleEndian.AppendUint32(h, dataLen)
	return h
}

// NewWriter writes a header with zeroed length fields at the current
// position of ws, which must be the start of the file.
func NewWriter(ws io.WriteSeeker) (*Writer, error) {
	h := Header(0)
	binary.LittleEndian.PutUint32(h[RIFFSizeOffset:], 0)
	if _, err := ws.Write(h); err != nil {
		return nil, fmt.Errorf("write wav header: %w", err)
	}
	return &Writer{ws: ws}, nil
}

// Write appends PCM bytes.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	n, err := w.ws.Write(p)
	w.n += int64(n)
	return n, err
}

// Len reports the number of sample bytes written so far.
func (w *Writer) Len() int64 {
	return w.n
}

// Close back-patches the data and RIFF lengths and leaves the file offset at
// the end of the data. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	var field [4]byte
	binary.LittleEndian.PutUint32(field[:], uint32(w.n))
	if err := w.patch(DataSizeOffset, field[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(field[:], uint32(w.n)+HeaderSize-8)
	if err := w.patch(RIFFSizeOffset, field[:]); err != nil {
		return err
	}
	if _, err := w.ws.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek wav end: %w", err)
	}
	return nil
}

func (w *Writer) patch(offset int64, field []byte) error {
	if _, err := w.ws.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek wav offset %d: %w", offset, err)
	}
	if _, err := w.ws.Write(field); err != nil {
		return fmt.Errorf("patch wav offset %d: %w", offset, err)
	}
	return nil
}

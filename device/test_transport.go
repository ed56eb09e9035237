package device

import (
	"context"
	"io"
	"sync"

	"i4.energy/across/xload/xva"
)

// TestTransport is an in-memory XVA1 used by tests. It decodes the bytes
// written to it the way the firmware does and queues the replies for Read.
//
// A Read with nothing queued returns (0, nil), which a Device treats as a
// read timeout. While streaming, reads are filled with an incrementing byte
// pattern.
type TestTransport struct {
	mu sync.Mutex

	// Edit is the active program; parameter n is byte n of it.
	Edit  xva.Program
	Slots [xva.NumPrograms]xva.Program
	// Channels holds the channel assigned to each position, 1-based.
	Channels [xva.MaxChannel + 1]byte

	// ImageLoader makes '}' the flash image writer instead of the bank
	// writer, as with the image loader firmware.
	ImageLoader bool
	Image       []byte
	Tuning      []byte
	Wavetable   []byte
	// BadPages lists flash pages that report a non-OK status.
	BadPages map[int]bool

	// Fail replaces the status or echo byte of the given opcode.
	Fail map[byte]byte

	// Written logs every byte the host sent.
	Written   []byte
	Streaming bool

	out    []byte
	next   func(byte)
	sample byte
	closed bool
}

// NewTestTransport returns a simulator with an empty bank.
func NewTestTransport() *TestTransport {
	return &TestTransport{
		BadPages: map[int]bool{},
		Fail:     map[byte]byte{},
	}
}

func (t *TestTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.ErrClosedPipe
	}
	t.Written = append(t.Written, p...)
	for _, b := range p {
		t.feed(b)
	}
	return len(p), nil
}

func (t *TestTransport) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, io.EOF
	}
	if len(t.out) > 0 {
		n := copy(p, t.out)
		t.out = t.out[n:]
		return n, nil
	}
	if t.Streaming {
		for i := range p {
			p[i] = t.sample
			t.sample++
		}
		return len(p), nil
	}
	return 0, nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Pending returns the reply bytes not yet read.
func (t *TestTransport) Pending() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.out...)
}

func (t *TestTransport) reopen() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = false
}

func (t *TestTransport) feed(b byte) {
	if t.next != nil {
		step := t.next
		t.next = nil
		step(b)
		return
	}
	t.command(b)
}

func (t *TestTransport) command(op byte) {
	switch op {
	case xva.CmdInit:
		t.Edit = xva.Program{}
		t.queue(t.status(op))
	case xva.CmdDump:
		t.queue(t.Edit[:]...)
	case xva.CmdGetParam:
		t.paramIndex(func(i int) { t.queue(t.Edit[i]) })
	case xva.CmdSetParam:
		t.paramIndex(func(i int) {
			t.collect(1, func(v []byte) { t.Edit[i] = v[0] })
		})
	case xva.CmdReadProgram:
		t.collect(1, func(b []byte) {
			if int(b[0]) >= xva.NumPrograms {
				t.queue(1)
				return
			}
			t.Edit = t.Slots[b[0]]
			t.queue(t.status(op))
		})
	case xva.CmdWriteProgram:
		t.collect(1, func(b []byte) {
			if int(b[0]) >= xva.NumPrograms {
				t.queue(1)
				return
			}
			t.Slots[b[0]] = t.Edit
			t.queue(t.status(op))
		})
	case xva.CmdInjectProgram:
		t.collect(xva.ProgramSize, func(b []byte) {
			copy(t.Edit[:], b)
			t.queue(t.status(op))
		})
	case xva.CmdGetChannel:
		t.queue(t.Channels[1])
	case xva.CmdSetChannel:
		t.collect(2, func(b []byte) {
			pos := int(b[0]) - 9
			if pos >= 1 && pos <= xva.MaxChannel {
				t.Channels[pos] = b[1]
			}
			t.queue(t.echo(op, b[1]))
		})
	case xva.CmdBankErase:
		t.Slots = [xva.NumPrograms]xva.Program{}
		t.queue(t.status(op))
	case xva.CmdBankReset:
		for i := range t.Slots {
			t.queue(t.Slots[i][:]...)
		}
	case xva.CmdBankWriteProgram:
		if t.ImageLoader {
			t.flashPaged()
			return
		}
		t.bankWrite()
	case xva.CmdImageErase:
		t.Image = t.Image[:0]
		t.queue(t.status(op))
	case xva.CmdTuningErase:
		t.Tuning = t.Tuning[:0]
		t.queue(t.status(op))
	case xva.CmdWavetableErase:
		t.Wavetable = t.Wavetable[:0]
		t.queue(t.status(op))
	case xva.CmdTuningWrite:
		t.flashBytewise(xva.FlashTuning, &t.Tuning)
	case xva.CmdWavetableWrite:
		t.flashBytewise(xva.FlashWavetable, &t.Wavetable)
	case xva.CmdStreamInit:
	case xva.CmdStreamStart:
		t.Streaming = true
	case xva.CmdStreamStop:
		t.Streaming = false
	}
}

func (t *TestTransport) queue(b ...byte) {
	t.out = append(t.out, b...)
}

func (t *TestTransport) status(op byte) byte {
	if s, ok := t.Fail[op]; ok {
		return s
	}
	return xva.StatusOK
}

func (t *TestTransport) echo(op, v byte) byte {
	if s, ok := t.Fail[op]; ok {
		return s
	}
	return v
}

func (t *TestTransport) pageStatus(page int) byte {
	if t.BadPages[page] {
		return 1
	}
	return xva.StatusOK
}

// collect hands the next n bytes to done.
func (t *TestTransport) collect(n int, done func([]byte)) {
	buf := make([]byte, 0, n)
	var step func(byte)
	step = func(b byte) {
		buf = append(buf, b)
		if len(buf) == n {
			done(buf)
			return
		}
		t.next = step
	}
	t.next = step
}

func (t *TestTransport) paramIndex(done func(int)) {
	t.collect(1, func(b []byte) {
		if b[0] != xva.ParamEscape {
			done(int(b[0]))
			return
		}
		t.collect(1, func(hi []byte) { done(256 + int(hi[0])) })
	})
}

func (t *TestTransport) bankWrite() {
	t.collect(1, func(sel []byte) {
		slot := int(sel[0]) - '0'
		t.queue(t.echo(xva.CmdBankWriteProgram, sel[0]))

		var chunk func(k int)
		chunk = func(k int) {
			if k*xva.BankChunkSize == xva.ProgramSize {
				return
			}
			t.collect(xva.BankChunkSize, func(c []byte) {
				if slot >= 0 && slot < xva.NumPrograms {
					copy(t.Slots[slot][k*xva.BankChunkSize:], c)
				}
				t.queue(xva.AckChunk)
				chunk(k + 1)
			})
		}
		chunk(0)
	})
}

func (t *TestTransport) flashPaged() {
	region, _ := xva.RegionFor(xva.FlashImage)
	t.Image = t.Image[:0]

	var page func(i int)
	page = func(i int) {
		if i == region.Pages {
			t.queue(xva.StatusOK)
			return
		}
		t.collect(xva.PageSize, func(b []byte) {
			t.Image = append(t.Image, b...)
			t.queue(t.pageStatus(i))
			page(i + 1)
		})
	}
	page(0)
}

func (t *TestTransport) flashBytewise(kind xva.FlashKind, dst *[]byte) {
	region, _ := xva.RegionFor(kind)
	total := region.Pages * xva.PageSize
	*dst = (*dst)[:0]

	var step func(byte)
	step = func(b byte) {
		*dst = append(*dst, b)
		t.queue(t.pageStatus((len(*dst) - 1) / xva.PageSize))
		if len(*dst) == total {
			t.queue(xva.StatusOK)
			return
		}
		t.next = step
	}
	t.next = step
}

// TestDialer hands out the same TestTransport on every Dial and records the
// requested modes.
type TestDialer struct {
	Transport *TestTransport
	Modes     []Mode
	// Err, when set, fails every Dial after the first FailAfter successes.
	// Failures limits how many dials fail; zero fails all of them.
	Err       error
	FailAfter int
	Failures  int

	failed int
}

func (d *TestDialer) Dial(ctx context.Context, mode Mode) (Transport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Err != nil && len(d.Modes) >= d.FailAfter && (d.Failures == 0 || d.failed < d.Failures) {
		d.failed++
		return nil, d.Err
	}
	d.Modes = append(d.Modes, mode)
	d.Transport.reopen()
	return d.Transport, nil
}

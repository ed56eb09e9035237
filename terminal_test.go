package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"i4.energy/across/xload/command"
	"i4.energy/across/xload/device"
	"i4.energy/across/xload/wav"
	"i4.energy/across/xload/xva"
)

func init() {
	color.NoColor = true
}

func newTestTerminal(t *testing.T, input string, opts ...func(*device.ConfigBuilder)) (*Terminal, *device.TestTransport, *bytes.Buffer) {
	t.Helper()
	sim := device.NewTestTransport()
	b := device.NewConfigBuilder().
		WithDialer(&device.TestDialer{Transport: sim}).
		WithSleeper(func(time.Duration) {})
	for _, opt := range opts {
		opt(b)
	}
	config, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	dev, err := device.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	t.Cleanup(func() { dev.Close() })

	out := &bytes.Buffer{}
	logger := slog.New(slog.DiscardHandler)
	return &Terminal{
		Logger:     logger,
		Dispatcher: &command.Dispatcher{Logger: logger, Device: dev, Out: out},
		In:         strings.NewReader(input),
		Out:        out,
	}, sim, out
}

func TestTerminalSession(t *testing.T) {
	term, sim, out := newTestTerminal(t, "s 10 200\ng 10\n\ng x\nzzz\n* 5\nq\ns 11 1\n")

	if err := term.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"XLoad v2.01", "  200\n", "  Unknown command.\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Error") {
		t.Errorf("malformed line was reported:\n%s", got)
	}
	if sim.Channels[1] != 5 {
		t.Error("channel command not run")
	}
	if sim.Edit[11] != 0 {
		t.Error("line after quit was run")
	}
}

func TestTerminalEndOfInput(t *testing.T) {
	term, _, _ := newTestTerminal(t, "g 1")
	if err := term.Run(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestTerminalReportsDeviceErrors(t *testing.T) {
	term, sim, out := newTestTerminal(t, "")
	sim.Fail[xva.CmdReadProgram] = 4

	err := term.RunLine(context.Background(), "r 1")
	if !errors.Is(err, device.ErrRejected) {
		t.Errorf("expected ErrRejected, got: %v", err)
	}
	if !strings.Contains(out.String(), "  Error: read program rejected: status 0x04") {
		t.Errorf("output = %q", out.String())
	}
}

func TestTerminalRecordStopsOnInput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rec.wav")
	term, sim, _ := newTestTerminal(t, ". "+file+"\n\nq\n")

	if err := term.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim.Streaming {
		t.Error("stream left running")
	}
	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if (info.Size()-wav.HeaderSize)%xva.AudioChunkSize != 0 {
		t.Errorf("file size %d is not whole chunks", info.Size())
	}
}

func TestTerminalInterruptCancelsRecording(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rec.wav")
	interrupts := make(chan os.Signal, 1)
	term, sim, _ := newTestTerminal(t, "", func(b *device.ConfigBuilder) {
		b.WithProgress(func(p device.Progress) {
			if p.Phase == device.PhaseRecord && p.Current == 2 {
				interrupts <- os.Interrupt
			}
		})
	})
	term.In = blockingReader{}
	term.Interrupt = interrupts

	if err := term.RunLine(context.Background(), ". "+file); err != nil {
		t.Fatalf("interrupt is a normal stop, got: %v", err)
	}
	if sim.Streaming {
		t.Error("stream left running")
	}
}

func TestTerminalRecordOutlivesEndOfInput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "rec.wav")
	interrupts := make(chan os.Signal, 1)
	term, sim, _ := newTestTerminal(t, "", func(b *device.ConfigBuilder) {
		b.WithProgress(func(p device.Progress) {
			if p.Phase == device.PhaseRecord && p.Current == 5 {
				interrupts <- os.Interrupt
			}
		})
	})
	term.Interrupt = interrupts

	if err := term.RunLine(context.Background(), ". "+file); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim.Streaming {
		t.Error("stream left running")
	}
	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Size() - wav.HeaderSize; got < 5*xva.AudioChunkSize {
		t.Errorf("recorded %d bytes, want at least 5 chunks", got)
	}
}

// blockingReader never delivers input.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}

func TestProgressPrinter(t *testing.T) {
	t.Run("Flash markers", func(t *testing.T) {
		var out bytes.Buffer
		p := &progressPrinter{out: &out}

		pages := 8 * 65
		for i := 1; i <= pages; i++ {
			var status byte
			if i == 3 {
				status = 1
			}
			p.Report(device.Progress{Phase: device.PhaseFlashWrite, Current: i, Total: pages, Status: status})
		}

		want := "X" + strings.Repeat(".", 64) + "\n" + ".\n"
		if out.String() != want {
			t.Errorf("output = %q, want %q", out.String(), want)
		}
	})

	t.Run("Bank markers", func(t *testing.T) {
		var out bytes.Buffer
		p := &progressPrinter{out: &out}
		for i := 1; i <= xva.NumPrograms; i++ {
			p.Report(device.Progress{Phase: device.PhaseBankRead, Current: i, Total: xva.NumPrograms})
		}
		want := strings.Repeat(strings.Repeat(".", 64)+"\n", 2)
		if out.String() != want {
			t.Errorf("output = %q, want %q", out.String(), want)
		}
	})

	t.Run("Finished phase shows duration", func(t *testing.T) {
		var out bytes.Buffer
		p := &progressPrinter{out: &out}
		p.Report(device.Progress{Phase: device.PhaseBankWrite, Current: 1, Total: 2, Elapsed: time.Second})
		p.Report(device.Progress{Phase: device.PhaseBankWrite, Current: 2, Total: 2, Elapsed: 2500 * time.Millisecond})

		if want := "..\n  2/2 in 2.5s\n"; out.String() != want {
			t.Errorf("output = %q, want %q", out.String(), want)
		}
	})

	t.Run("Record is silent", func(t *testing.T) {
		var out bytes.Buffer
		p := &progressPrinter{out: &out}
		p.Report(device.Progress{Phase: device.PhaseRecord, Current: 1})
		if out.Len() != 0 {
			t.Errorf("output = %q", out.String())
		}
	})
}

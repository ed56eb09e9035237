package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"i4.energy/across/xload/command"
	"i4.energy/across/xload/device"
	"i4.energy/across/xload/xva"
)

const version = "2.01"

var (
	infoColor  = color.New(color.FgHiGreen)
	errorColor = color.New(color.FgHiRed)
)

// Terminal reads command lines and runs them through the dispatcher until
// quit, end of input, or an interrupt at the prompt.
//
// Input is read on a separate goroutine so a running recording can be
// stopped by entering a line.
type Terminal struct {
	Logger     *slog.Logger
	Dispatcher *command.Dispatcher
	In         io.Reader
	Out        io.Writer
	// Interrupt cancels the running command, or ends the session at the
	// prompt.
	Interrupt <-chan os.Signal

	lines chan string
}

// Run is the interactive prompt loop.
func (t *Terminal) Run(ctx context.Context) error {
	t.start()
	infoColor.Fprintf(t.Out, "\nXLoad v%s ('q' to exit.)\n\n", version)

	for {
		infoColor.Fprint(t.Out, "# ")

		var line string
		select {
		case <-ctx.Done():
			return nil
		case sig := <-t.Interrupt:
			t.Logger.Info("received signal at prompt", "signal", sig)
			fmt.Fprintln(t.Out)
			return nil
		case l, ok := <-t.lines:
			if !ok {
				return nil
			}
			line = l
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := t.RunLine(ctx, line); errors.Is(err, command.ErrQuit) {
			return nil
		}
	}
}

// RunLine runs one command line and prints its outcome. Malformed lines are
// ignored. The returned error is the command's.
func (t *Terminal) RunLine(ctx context.Context, line string) error {
	t.start()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-t.Interrupt:
			cancel()
		case <-done:
		}
	}()

	err := t.Dispatcher.Exec(ctx, line)
	switch {
	case err == nil, errors.Is(err, command.ErrQuit):
	case errors.Is(err, command.ErrMalformed):
		t.Logger.Debug("malformed command ignored", "line", line)
	case errors.Is(err, command.ErrUnknownCommand):
		errorColor.Fprintln(t.Out, "  Unknown command.")
	default:
		t.Logger.Error("command failed", "line", line, "error", err)
		errorColor.Fprintf(t.Out, "  Error: %v\n", err)
	}
	return err
}

func (t *Terminal) start() {
	if t.lines != nil {
		return
	}
	t.lines = make(chan string)
	t.Dispatcher.Stop = t.stopRequested

	go func() {
		defer close(t.lines)
		scanner := bufio.NewScanner(t.In)
		scanner.Split(command.SplitLines)
		for scanner.Scan() {
			t.lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			t.Logger.Error("reading input failed", "error", err)
		}
	}()
}

// stopRequested consumes a pending input line. Once input has ended only
// an interrupt stops a recording.
func (t *Terminal) stopRequested() bool {
	select {
	case _, ok := <-t.lines:
		return ok
	default:
		return false
	}
}

// progressPrinter renders transfer progress as dot markers: one per 8 flash
// pages with an X for every bad page, one per bank slot or erase step, 64 to
// a row. A finished phase prints its step count and duration.
type progressPrinter struct {
	out     io.Writer
	markers int
}

func (p *progressPrinter) Report(pr device.Progress) {
	switch pr.Phase {
	case device.PhaseFlashErase:
		infoColor.Fprintln(p.out, "Flash erased, writing...")
		p.markers = 0
		return
	case device.PhaseFlashWrite:
		if pr.Status != xva.StatusOK {
			errorColor.Fprint(p.out, "X")
		}
		if pr.Current%8 == 0 {
			p.mark()
		}
	case device.PhaseBankErase, device.PhaseBankRead, device.PhaseBankWrite:
		p.mark()
	default:
		return
	}

	if pr.Total > 0 && pr.Current == pr.Total {
		if p.markers > 0 {
			fmt.Fprintln(p.out)
		}
		p.markers = 0
		if pr.Elapsed > 0 {
			infoColor.Fprintf(p.out, "  %d/%d in %s\n", pr.Current, pr.Total, pr.Elapsed.Round(time.Millisecond))
		}
	}
}

func (p *progressPrinter) mark() {
	fmt.Fprint(p.out, ".")
	p.markers++
	if p.markers == 64 {
		fmt.Fprintln(p.out)
		p.markers = 0
	}
}

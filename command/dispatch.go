package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"i4.energy/across/xload/device"
	"i4.energy/across/xload/xva"
)

// Device is the part of *device.Device the dispatcher drives.
type Device interface {
	Initialize() error
	LoadProgram(p xva.Program) error
	DumpProgram() (xva.Program, error)
	GetParam(index int) (byte, error)
	SetParam(index, value int) error
	ReadProgram(slot int) error
	WriteProgram(slot int) error
	Name() (string, error)
	SetName(name string) error
	Channel() (int, error)
	SetChannels(channels ...int) error
	LoadFlash(ctx context.Context, kind xva.FlashKind, r io.Reader) (device.FlashResult, error)
	InitBank() error
	GetBank(w io.Writer) error
	PutBank(r io.Reader) error
	Record(ctx context.Context, w io.WriteSeeker, stop func() bool) (int64, error)
}

var _ Device = (*device.Device)(nil)

// Dispatcher runs commands against a Device and renders their results to
// Out.
type Dispatcher struct {
	Logger *slog.Logger
	Device Device
	Out    io.Writer
	// Stop is polled once per audio chunk while recording. Nil records
	// until the context is done.
	Stop func() bool
}

// Exec parses and runs one terminal line.
func (d *Dispatcher) Exec(ctx context.Context, line string) error {
	cmd, err := Parse(line)
	if err != nil {
		return err
	}
	return d.Run(ctx, cmd)
}

// Run executes cmd. File arguments are opened before the device is touched.
func (d *Dispatcher) Run(ctx context.Context, cmd Command) error {
	d.logger().Debug("run command", "command", cmd.Keyword())

	switch c := cmd.(type) {
	case Initialize:
		return d.Device.Initialize()

	case LoadProgram:
		p, err := readProgram(c.File)
		if err != nil {
			return err
		}
		return d.Device.LoadProgram(p)

	case DumpProgram:
		p, err := d.Device.DumpProgram()
		if err != nil {
			return err
		}
		if c.File == "" {
			_, err = io.WriteString(d.Out, p.Hex())
			return err
		}
		return os.WriteFile(c.File, p[:], 0o644)

	case GetParam:
		v, err := d.Device.GetParam(c.Index)
		if err != nil {
			return err
		}
		fmt.Fprintf(d.Out, "  %d\n", v)
		return nil

	case SetParam:
		return d.Device.SetParam(c.Index, c.Value)

	case ReadProgram:
		if err := d.Device.ReadProgram(c.Slot); err != nil {
			return err
		}
		fmt.Fprintf(d.Out, "  %d\nDone\n", xva.StatusOK)
		return nil

	case WriteProgram:
		return d.Device.WriteProgram(c.Slot)

	case GetName:
		name, err := d.Device.Name()
		if err != nil {
			return err
		}
		fmt.Fprintln(d.Out, name)
		return nil

	case SetName:
		return d.Device.SetName(c.Name)

	case GetChannel:
		ch, err := d.Device.Channel()
		if err != nil {
			return err
		}
		fmt.Fprintf(d.Out, "Channel: %d\n", ch)
		return nil

	case SetChannels:
		return d.Device.SetChannels(c.Channels...)

	case LoadFlash:
		return d.loadFlash(ctx, c)

	case GetBank:
		f, err := os.Create(c.File)
		if err != nil {
			return err
		}
		if err := d.Device.GetBank(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()

	case PutBank:
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		fmt.Fprintf(d.Out, "Writing bank %s\n", c.File)
		return d.Device.PutBank(f)

	case InitBank:
		if err := d.Device.InitBank(); err != nil {
			return err
		}
		return d.Run(ctx, ReadProgram{Slot: 0})

	case Record:
		return d.record(ctx, c)

	case Help:
		_, err := io.WriteString(d.Out, helpText)
		return err

	case Quit:
		return ErrQuit
	}
	return fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
}

func (d *Dispatcher) loadFlash(ctx context.Context, c LoadFlash) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(d.Out, "Loading %s file %s\n", c.Kind, c.File)
	res, err := d.Device.LoadFlash(ctx, c.Kind, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.Out, "done, %d pages, %d bad\n", res.Pages, res.BadPages)
	d.logger().Info("flash loaded", "kind", c.Kind, "file", c.File, "bytes", res.Bytes, "bad_pages", res.BadPages)
	return nil
}

func (d *Dispatcher) record(ctx context.Context, c Record) error {
	f, err := os.Create(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(d.Out, "  Recording... (press Enter to finish)")
	n, err := d.Device.Record(ctx, f, d.Stop)
	if err != nil {
		return err
	}
	fmt.Fprintf(d.Out, "  done, %d bytes.\n", n)
	return f.Close()
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

func readProgram(name string) (xva.Program, error) {
	var p xva.Program
	f, err := os.Open(name)
	if err != nil {
		return p, err
	}
	defer f.Close()
	if _, err := io.ReadFull(f, p[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return p, fmt.Errorf("read program %s: %w", name, err)
	}
	return p, nil
}

const helpText = `
  Commands:

  i			Initializes program.
  i filename		Initializes program from file (load).
  d			Shows all parameter values for current program.
  d filename		Writes current program to filename (save).
  g N			Gets parameter N value.
  s N V			Sets parameter N to value V.
  r N			Reads program N.
  w N			Writes current program to memory slot N.
  n			Gets current program name.
  n new name		Sets current program name.
  *			Displays current MIDI channel.
  * N...		Sets MIDI channels, first to N (0 = omni).
  . filename		Starts audio recording.
  t filename		Writes a tuning definition file into device.
  wave filename		Writes a wavetable file into device.
  img filename		Writes a synthesizer image file into device.
  get_bank filename	Reads a program bank from device.
  put_bank filename	Writes a program bank file into device.
  init_bank		Erases all programs of the bank.
  h			Displays this help.
  q			Quits.

`

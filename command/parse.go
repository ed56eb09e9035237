package command

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"i4.energy/across/xload/device"
	"i4.energy/across/xload/xva"
)

var (
	// ErrMalformed is returned for a known command with the wrong number of
	// arguments or a non-numeric argument. The terminal ignores such lines.
	ErrMalformed = errors.New("malformed command")

	// ErrUnknownCommand is returned when the first token names no command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrQuit is returned by the quit command.
	ErrQuit = errors.New("quit")
)

var flashKeywords = map[string]xva.FlashKind{
	"t":    xva.FlashTuning,
	"wave": xva.FlashWavetable,
	"img":  xva.FlashImage,
}

// Parse splits line on whitespace and validates it into a Command.
//
// Arguments are checked in order: token count, then decimal digits, then
// range. Range failures are reported as *device.ArgumentError.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrMalformed
	}

	switch kw, args := fields[0], fields[1:]; kw {
	case "i":
		switch len(args) {
		case 0:
			return Initialize{}, nil
		case 1:
			return LoadProgram{File: args[0]}, nil
		}
		return nil, ErrMalformed

	case "d":
		switch len(args) {
		case 0:
			return DumpProgram{}, nil
		case 1:
			return DumpProgram{File: args[0]}, nil
		}
		return nil, ErrMalformed

	case "g":
		if len(args) != 1 {
			return nil, ErrMalformed
		}
		n, err := number(args[0], "parameter index", xva.NumParams-1)
		if err != nil {
			return nil, err
		}
		return GetParam{Index: n}, nil

	case "s":
		if len(args) != 2 || !digits(args[0]) || !digits(args[1]) {
			return nil, ErrMalformed
		}
		n, err := number(args[0], "parameter index", xva.NumParams-1)
		if err != nil {
			return nil, err
		}
		v, err := number(args[1], "parameter value", xva.MaxParamValue)
		if err != nil {
			return nil, err
		}
		return SetParam{Index: n, Value: v}, nil

	case "r", "w":
		if len(args) != 1 {
			return nil, ErrMalformed
		}
		n, err := number(args[0], "program slot", xva.NumPrograms-1)
		if err != nil {
			return nil, err
		}
		if kw == "r" {
			return ReadProgram{Slot: n}, nil
		}
		return WriteProgram{Slot: n}, nil

	case "n":
		if len(args) == 0 {
			return GetName{}, nil
		}
		return SetName{Name: nameText(line, kw)}, nil

	case "*":
		if len(args) == 0 {
			return GetChannel{}, nil
		}
		for _, a := range args {
			if !digits(a) {
				return nil, ErrMalformed
			}
		}
		channels := make([]int, len(args))
		for i, a := range args {
			ch, err := number(a, "channel", xva.MaxChannel)
			if err != nil {
				return nil, err
			}
			channels[i] = ch
		}
		return SetChannels{Channels: channels}, nil

	case "t", "wave", "img":
		if len(args) != 1 {
			return nil, ErrMalformed
		}
		return LoadFlash{Kind: flashKeywords[kw], File: args[0]}, nil

	case "get_bank", "put_bank", ".":
		if len(args) != 1 {
			return nil, ErrMalformed
		}
		switch kw {
		case "get_bank":
			return GetBank{File: args[0]}, nil
		case "put_bank":
			return PutBank{File: args[0]}, nil
		}
		return Record{File: args[0]}, nil

	case "init_bank":
		return InitBank{}, nil
	case "h":
		return Help{}, nil
	case "q":
		return Quit{}, nil
	}
	return nil, ErrUnknownCommand
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// number validates a decimal argument against 0..hi.
func number(s, name string, hi int) (int, error) {
	if !digits(s) {
		return 0, ErrMalformed
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// only overflow gets here
		n = math.MaxInt
	}
	if n > hi {
		return 0, &device.ArgumentError{Name: name, Value: n, Min: 0, Max: hi}
	}
	return n, nil
}

// nameText is everything after the keyword and one separator, inner
// spacing kept. The separator may be any Unicode space.
func nameText(line, kw string) string {
	rest := strings.TrimLeftFunc(line, unicode.IsSpace)
	rest = strings.TrimPrefix(rest, kw)
	_, size := utf8.DecodeRuneInString(rest)
	return strings.TrimRight(rest[size:], "\r\n")
}

// Package command turns terminal lines into synthesizer commands and runs
// them against a device.
package command

import "i4.energy/across/xload/xva"

// Command is one parsed terminal command. Arguments are already validated.
type Command interface {
	// Keyword is the token that selects the command.
	Keyword() string
}

// Initialize resets the edit buffer.
type Initialize struct{}

// LoadProgram sends a 512-byte program file into the edit buffer.
type LoadProgram struct{ File string }

// DumpProgram prints the edit buffer, or saves it when File is set.
type DumpProgram struct{ File string }

// GetParam prints one parameter of the edit buffer.
type GetParam struct{ Index int }

// SetParam sets one parameter of the edit buffer.
type SetParam struct{ Index, Value int }

// ReadProgram loads the program in Slot into the edit buffer.
type ReadProgram struct{ Slot int }

// WriteProgram stores the edit buffer into Slot.
type WriteProgram struct{ Slot int }

// GetName prints the name of the edit buffer.
type GetName struct{}

// SetName renames the edit buffer.
type SetName struct{ Name string }

// GetChannel prints the MIDI channel.
type GetChannel struct{}

// SetChannels assigns MIDI channels, the first to position 1.
type SetChannels struct{ Channels []int }

// LoadFlash programs a flash region from File.
type LoadFlash struct {
	Kind xva.FlashKind
	File string
}

// GetBank saves the program bank to File.
type GetBank struct{ File string }

// PutBank writes the bank file File into the device.
type PutBank struct{ File string }

// InitBank erases the bank and reloads slot 0.
type InitBank struct{}

// Record captures audio into a WAV file.
type Record struct{ File string }

// Help prints the command list.
type Help struct{}

// Quit ends the session.
type Quit struct{}

func (Initialize) Keyword() string   { return "i" }
func (LoadProgram) Keyword() string  { return "i" }
func (DumpProgram) Keyword() string  { return "d" }
func (GetParam) Keyword() string     { return "g" }
func (SetParam) Keyword() string     { return "s" }
func (ReadProgram) Keyword() string  { return "r" }
func (WriteProgram) Keyword() string { return "w" }
func (GetName) Keyword() string      { return "n" }
func (SetName) Keyword() string      { return "n" }
func (GetChannel) Keyword() string   { return "*" }
func (SetChannels) Keyword() string  { return "*" }
func (GetBank) Keyword() string      { return "get_bank" }
func (PutBank) Keyword() string      { return "put_bank" }
func (InitBank) Keyword() string     { return "init_bank" }
func (Record) Keyword() string       { return "." }
func (Help) Keyword() string         { return "h" }
func (Quit) Keyword() string         { return "q" }

func (c LoadFlash) Keyword() string {
	switch c.Kind {
	case xva.FlashTuning:
		return "t"
	case xva.FlashWavetable:
		return "wave"
	default:
		return "img"
	}
}

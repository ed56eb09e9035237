// Package xva describes the wire protocol spoken by the XVA1 synthesizer
// firmware: single-byte opcodes, the shape of each reply, and the fixed
// record layouts moved over the link.
package xva

import "fmt"

const (
	// Program and parameter access
	CmdInit          = 'i'
	CmdDump          = 'd'
	CmdGetParam      = 'g'
	CmdSetParam      = 's'
	CmdReadProgram   = 'r'
	CmdWriteProgram  = 'w'
	CmdInjectProgram = 'j'

	// MIDI channel
	CmdGetChannel = 0x21
	CmdSetChannel = 42

	// Flash regions
	CmdImageErase     = '{'
	CmdImageWrite     = '}'
	CmdTuningErase    = '#'
	CmdTuningWrite    = 't'
	CmdWavetableErase = 'V'
	CmdWavetableWrite = 'v'

	// EEPROM bank. The bank writer shares its opcode with the image writer;
	// the two never run against the same firmware.
	CmdBankErase        = '$'
	CmdBankReset        = '>'
	CmdBankWriteProgram = '}'

	// Audio streaming
	CmdStreamInit  = 'e'
	CmdStreamStart = 'h'
	CmdStreamStop  = 'f'
)

const (
	// StatusOK is the success code for every status-replying command.
	StatusOK = 0x00
	// AckChunk acknowledges each 128-byte chunk of a bank program write.
	AckChunk = 0x80
	// ParamEscape prefixes the second byte of a parameter index above 255.
	ParamEscape = 0xFF
)

const (
	ProgramSize     = 512
	NumPrograms     = 128
	NumParams       = 512
	MaxParamValue   = 255
	MaxChannel      = 16
	PageSize        = 256
	BankChunkSize   = 128
	AudioChunkSize  = 6 * 64
	BankSize        = NumPrograms * ProgramSize
	channelIndexOff = 9
)

// Reply describes what the firmware sends back after a command frame.
type Reply int

const (
	ReplyNone   Reply = iota // fire-and-forget
	ReplyStatus              // one byte, StatusOK on success
	ReplyEcho                // one byte, must echo a value from the request
	ReplyValue               // one byte carrying data
	ReplyBlock               // fixed-size data block
)

func (r Reply) String() string {
	switch r {
	case ReplyNone:
		return "none"
	case ReplyStatus:
		return "status"
	case ReplyEcho:
		return "echo"
	case ReplyValue:
		return "value"
	case ReplyBlock:
		return "block"
	default:
		return fmt.Sprintf("Reply(%d)", int(r))
	}
}

// Op names a logical protocol operation.
type Op int

const (
	OpInit Op = iota
	OpDump
	OpGetParam
	OpSetParam
	OpReadProgram
	OpWriteProgram
	OpInjectProgram
	OpGetChannel
	OpSetChannel
	OpBankErase
	OpBankReset
	OpBankWriteProgram
	OpStreamInit
	OpStreamStart
	OpStreamStop
)

// Command is one row of the protocol table.
type Command struct {
	Name   string
	Opcode byte
	Reply  Reply
	// ReplyLen is the number of bytes read back after the frame.
	ReplyLen int
}

var commands = map[Op]Command{
	OpInit:             {"initialize", CmdInit, ReplyStatus, 1},
	OpDump:             {"dump program", CmdDump, ReplyBlock, ProgramSize},
	OpGetParam:         {"get parameter", CmdGetParam, ReplyValue, 1},
	OpSetParam:         {"set parameter", CmdSetParam, ReplyNone, 0},
	OpReadProgram:      {"read program", CmdReadProgram, ReplyStatus, 1},
	OpWriteProgram:     {"write program", CmdWriteProgram, ReplyStatus, 1},
	OpInjectProgram:    {"load program", CmdInjectProgram, ReplyStatus, 1},
	OpGetChannel:       {"get channel", CmdGetChannel, ReplyValue, 1},
	OpSetChannel:       {"set channel", CmdSetChannel, ReplyEcho, 1},
	OpBankErase:        {"erase bank", CmdBankErase, ReplyStatus, 1},
	OpBankReset:        {"reset bank counter", CmdBankReset, ReplyNone, 0},
	OpBankWriteProgram: {"write bank program", CmdBankWriteProgram, ReplyEcho, 1},
	OpStreamInit:       {"init stream", CmdStreamInit, ReplyNone, 0},
	OpStreamStart:      {"start stream", CmdStreamStart, ReplyNone, 0},
	OpStreamStop:       {"stop stream", CmdStreamStop, ReplyNone, 0},
}

// Lookup returns the table entry for op. It panics on an unknown op, which
// can only happen through a programming error.
func Lookup(op Op) Command {
	c, ok := commands[op]
	if !ok {
		panic(fmt.Sprintf("xva: unknown op %d", int(op)))
	}
	return c
}

// ParamIndex encodes a parameter index as the byte groups that follow the
// opcode. Indexes above 255 are sent as the escape byte and the remainder
// in a separate write.
func ParamIndex(index int) [][]byte {
	if index > MaxParamValue {
		return [][]byte{{ParamEscape}, {byte(index - 256)}}
	}
	return [][]byte{{byte(index)}}
}

// ChannelArgs builds the bytes following CmdSetChannel for the channel at
// position (1-based) in the argument list.
func ChannelArgs(position, channel int) []byte {
	return []byte{byte(channelIndexOff + position), byte(channel)}
}

// BankSlotByte is the slot selector sent by the bank writer. The firmware
// receives '0'+slot, which is only a decimal digit for slots 0-9.
func BankSlotByte(slot int) byte {
	return byte('0' + slot)
}

package xva

import (
	"fmt"
	"strings"
)

const (
	NameOffset = 480
	NameLen    = 24
	dumpRowLen = 25
)

// Program is the 512-byte record backing one program slot and the active
// edit buffer.
type Program [ProgramSize]byte

// Name returns the raw name field, padding included.
func (p *Program) Name() string {
	return string(p[NameOffset : NameOffset+NameLen])
}

// NameBytes returns the name field as the firmware stores it: left
// justified, space padded and truncated to NameLen bytes.
func NameBytes(name string) [NameLen]byte {
	var field [NameLen]byte
	n := copy(field[:], name)
	for i := n; i < NameLen; i++ {
		field[i] = ' '
	}
	return field
}

// Hex renders the program as rows of uppercase hex bytes.
func (p *Program) Hex() string {
	var b strings.Builder
	b.WriteString("  ")
	for i, v := range p {
		fmt.Fprintf(&b, "%02X ", v)
		if i%dumpRowLen == dumpRowLen-1 {
			b.WriteString("\n  ")
		}
	}
	b.WriteString("\n")
	return b.String()
}

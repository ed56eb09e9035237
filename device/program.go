package device

import (
	"i4.energy/across/xload/xva"
)

// Initialize resets the edit buffer to the firmware's init program.
func (d *Device) Initialize() error {
	_, err := d.transact(xva.OpInit)
	return err
}

// LoadProgram sends p into the edit buffer.
func (d *Device) LoadProgram(p xva.Program) error {
	_, err := d.transact(xva.OpInjectProgram, nil, p[:])
	return err
}

// DumpProgram returns the current edit buffer.
func (d *Device) DumpProgram() (xva.Program, error) {
	var p xva.Program
	reply, err := d.transact(xva.OpDump)
	if err != nil {
		return p, err
	}
	copy(p[:], reply)
	return p, nil
}

// ReadProgram loads the program stored in slot into the edit buffer.
func (d *Device) ReadProgram(slot int) error {
	if err := checkRange("program slot", slot, 0, xva.NumPrograms-1); err != nil {
		return err
	}
	_, err := d.transact(xva.OpReadProgram, []byte{byte(slot)})
	return err
}

// WriteProgram stores the edit buffer into slot.
func (d *Device) WriteProgram(slot int) error {
	if err := checkRange("program slot", slot, 0, xva.NumPrograms-1); err != nil {
		return err
	}
	_, err := d.transact(xva.OpWriteProgram, []byte{byte(slot)})
	return err
}

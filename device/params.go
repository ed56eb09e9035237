package device

import (
	"fmt"

	"i4.energy/across/xload/xva"
)

// GetParam reads one parameter of the edit buffer.
//
// Indexes above 255 are sent as the escape byte followed by the remainder in
// a second write.
func (d *Device) GetParam(index int) (byte, error) {
	if err := checkRange("parameter index", index, 0, xva.NumParams-1); err != nil {
		return 0, err
	}
	reply, err := d.transact(xva.OpGetParam, xva.ParamIndex(index)...)
	if err != nil {
		return 0, err
	}
	return reply[0], nil
}

// SetParam writes one parameter of the edit buffer. The firmware does not
// answer, so success only means the bytes were sent.
func (d *Device) SetParam(index, value int) error {
	if err := checkRange("parameter index", index, 0, xva.NumParams-1); err != nil {
		return err
	}
	if err := checkRange("parameter value", value, 0, xva.MaxParamValue); err != nil {
		return err
	}
	args := append(xva.ParamIndex(index), []byte{byte(value)})
	_, err := d.transact(xva.OpSetParam, args...)
	return err
}

// Name returns the 24-byte name field of the edit buffer, padding included.
func (d *Device) Name() (string, error) {
	p, err := d.DumpProgram()
	if err != nil {
		return "", err
	}
	return p.Name(), nil
}

// SetName stores name in the edit buffer, one SetParam per byte of the name
// field. Longer names are truncated, shorter ones padded with spaces.
func (d *Device) SetName(name string) error {
	field := xva.NameBytes(name)
	for i, b := range field {
		if err := d.SetParam(xva.NameOffset+i, int(b)); err != nil {
			return fmt.Errorf("set name byte %d: %w", i, err)
		}
	}
	d.logger.Debug("program name set", "name", name)
	return nil
}

package device

import (
	"errors"
	"fmt"

	"i4.energy/across/xload/xva"
)

var errNoChannels = errors.New("no channels given")

// Channel returns the MIDI channel the synthesizer listens on.
func (d *Device) Channel() (int, error) {
	reply, err := d.transact(xva.OpGetChannel)
	if err != nil {
		return 0, err
	}
	return int(reply[0]), nil
}

// SetChannels assigns the MIDI channels in order, the first to position 1.
// Every channel is validated before anything is sent. The firmware echoes
// each channel back.
func (d *Device) SetChannels(channels ...int) error {
	if len(channels) == 0 {
		return errNoChannels
	}
	for _, ch := range channels {
		if err := checkRange("channel", ch, 0, xva.MaxChannel); err != nil {
			return err
		}
	}

	for i, ch := range channels {
		if err := d.expectEcho(xva.OpSetChannel, byte(ch), xva.ChannelArgs(i+1, ch)); err != nil {
			return fmt.Errorf("channel position %d: %w", i+1, err)
		}
	}
	return nil
}

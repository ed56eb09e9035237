package device

import (
	"fmt"
	"io"
	"time"

	"i4.energy/across/xload/xva"
)

// InitBank erases every program slot of the EEPROM bank. The firmware
// answers only after the erase has completed, which takes several seconds.
func (d *Device) InitBank() error {
	c := xva.Lookup(xva.OpBankErase)
	if err := d.write(c.Name, []byte{c.Opcode}); err != nil {
		return err
	}

	delays := d.config.delays
	start := time.Now()
	for i := 0; i < delays.BankEraseSteps; i++ {
		d.config.sleep(delays.BankEraseStep)
		d.report(Progress{Phase: PhaseBankErase, Current: i + 1, Total: delays.BankEraseSteps, Elapsed: time.Since(start)})
	}

	status, err := d.readByte(c.Name)
	if err != nil {
		return err
	}
	if status != xva.StatusOK {
		return &RejectedError{Op: c.Name, Status: status, Want: xva.StatusOK}
	}
	d.logger.Info("bank erased", "elapsed", time.Since(start))
	return nil
}

// GetBank streams all programs of the EEPROM bank to w in slot order.
func (d *Device) GetBank(w io.Writer) error {
	if _, err := d.transact(xva.OpBankReset); err != nil {
		return err
	}

	var p xva.Program
	start := time.Now()
	for slot := 0; slot < xva.NumPrograms; slot++ {
		if err := d.read("read bank", p[:]); err != nil {
			return fmt.Errorf("slot %d: %w", slot, err)
		}
		if _, err := w.Write(p[:]); err != nil {
			return fmt.Errorf("write slot %d: %w", slot, err)
		}
		d.report(Progress{Phase: PhaseBankRead, Current: slot + 1, Total: xva.NumPrograms, Elapsed: time.Since(start)})
	}
	d.logger.Info("bank read", "programs", xva.NumPrograms, "elapsed", time.Since(start))
	return nil
}

// PutBank writes a whole bank read from r into the EEPROM. The first
// xva.BankSize bytes of r are read before anything is sent; a shorter input
// fails with io.ErrUnexpectedEOF.
//
// Each slot is selected by BankSlotByte and acknowledged by its echo, then
// sent in chunks of xva.BankChunkSize bytes, each acknowledged by
// xva.AckChunk.
func (d *Device) PutBank(r io.Reader) error {
	bank := make([]byte, xva.BankSize)
	if _, err := io.ReadFull(r, bank); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("read bank: %w", err)
	}

	start := time.Now()
	for slot := 0; slot < xva.NumPrograms; slot++ {
		sel := xva.BankSlotByte(slot)
		if err := d.expectEcho(xva.OpBankWriteProgram, sel, []byte{sel}); err != nil {
			return fmt.Errorf("slot %d: %w", slot, err)
		}

		prog := bank[slot*xva.ProgramSize : (slot+1)*xva.ProgramSize]
		for off := 0; off < xva.ProgramSize; off += xva.BankChunkSize {
			if err := d.write("write bank chunk", prog[off:off+xva.BankChunkSize]); err != nil {
				return fmt.Errorf("slot %d: %w", slot, err)
			}
			ack, err := d.readByte("write bank chunk")
			if err != nil {
				return fmt.Errorf("slot %d: %w", slot, err)
			}
			if ack != xva.AckChunk {
				return fmt.Errorf("slot %d: %w", slot, &RejectedError{Op: "write bank chunk", Status: ack, Want: xva.AckChunk})
			}
			d.config.sleep(d.config.delays.ChunkSettle)
		}
		d.report(Progress{Phase: PhaseBankWrite, Current: slot + 1, Total: xva.NumPrograms, Elapsed: time.Since(start)})
	}
	d.logger.Info("bank written", "programs", xva.NumPrograms, "elapsed", time.Since(start))
	return nil
}

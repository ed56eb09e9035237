package device

import "time"

// Phase names the stage of a bulk transfer.
type Phase string

const (
	PhaseFlashErase Phase = "flash-erase"
	PhaseFlashWrite Phase = "flash-write"
	PhaseBankErase  Phase = "bank-erase"
	PhaseBankRead   Phase = "bank-read"
	PhaseBankWrite  Phase = "bank-write"
	PhaseRecord     Phase = "record"
)

// Progress is passed to the ProgressFunc during bulk transfers.
type Progress struct {
	Phase Phase

	// Current counts completed steps (pages, slots, wait steps or audio
	// chunks); Total is zero when the step count is open ended.
	Current int
	Total   int

	// Status is the status byte of the step just completed.
	Status byte

	// Bad counts flash pages whose status was not OK so far.
	Bad int

	Elapsed time.Duration
}

// ProgressFunc is called synchronously between transfer steps and should
// return quickly.
type ProgressFunc func(Progress)

func (d *Device) report(p Progress) {
	if d.config.progress != nil {
		d.config.progress(p)
	}
}

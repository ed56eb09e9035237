package xva

import "fmt"

// FlashKind selects one of the serially programmable flash regions.
type FlashKind int

const (
	FlashImage FlashKind = iota
	FlashTuning
	FlashWavetable
)

func (k FlashKind) String() string {
	switch k {
	case FlashImage:
		return "image"
	case FlashTuning:
		return "tuning"
	case FlashWavetable:
		return "wavetable"
	default:
		return fmt.Sprintf("FlashKind(%d)", int(k))
	}
}

// Region is the constant descriptor of a flash kind.
type Region struct {
	Kind  FlashKind
	Size  int
	Pages int
	Erase byte
	Write byte
	// ByteAck is set when the loader acknowledges every byte of a page
	// rather than every page.
	ByteAck bool
}

var regions = [...]Region{
	FlashImage:     {FlashImage, 34 * 256 * 256, 34 * 256, CmdImageErase, CmdImageWrite, false},
	FlashTuning:    {FlashTuning, 4 * 256 * 128, 2 * 256, CmdTuningErase, CmdTuningWrite, true},
	FlashWavetable: {FlashWavetable, 3 * 256 * 1024, 12 * 256, CmdWavetableErase, CmdWavetableWrite, true},
}

// RegionFor returns the descriptor for kind.
func RegionFor(kind FlashKind) (Region, error) {
	if kind < 0 || int(kind) >= len(regions) {
		return Region{}, fmt.Errorf("unknown flash kind %d", int(kind))
	}
	return regions[kind], nil
}

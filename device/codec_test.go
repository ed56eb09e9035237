package device_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/mock/gomock"
	"i4.energy/across/xload/device"
	"i4.energy/across/xload/xva"
)

func TestGetParam(t *testing.T) {
	tests := []struct {
		name  string
		index int
		calls func(b *MockSequenceBuilder)
	}{
		{"low index in one write", 10, func(b *MockSequenceBuilder) {
			b.Write('g', 10).Reply(200)
		}},
		{"high index escaped", 300, func(b *MockSequenceBuilder) {
			b.Write('g', 255).Write(44).Reply(200)
		}},
		{"last index", 511, func(b *MockSequenceBuilder) {
			b.Write('g', 255).Write(255).Reply(200)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, mockTransport := newMockDevice(t)
			seq := NewMockSequence(mockTransport)
			tt.calls(seq)
			gomock.InOrder(seq.Build()...)

			v, err := d.GetParam(tt.index)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v != 200 {
				t.Errorf("GetParam(%d) = %d, want 200", tt.index, v)
			}
		})
	}
}

func TestSetParam(t *testing.T) {
	t.Run("Sends index then value", func(t *testing.T) {
		d, mockTransport := newMockDevice(t)
		gomock.InOrder(NewMockSequence(mockTransport).
			Write('s', 255).Write(0).Write(17).
			Build()...)

		if err := d.SetParam(256, 17); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Rejects out of range arguments without I/O", func(t *testing.T) {
		d, _ := newMockDevice(t)
		for _, args := range [][2]int{{0, 256}, {0, -1}, {512, 0}, {-1, 0}} {
			err := d.SetParam(args[0], args[1])
			if !errors.Is(err, device.ErrInvalidArgument) {
				t.Errorf("SetParam(%d, %d) = %v, want ErrInvalidArgument", args[0], args[1], err)
			}
		}
		if _, err := d.GetParam(512); !errors.Is(err, device.ErrInvalidArgument) {
			t.Errorf("GetParam(512) = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestParamsThroughSimulator(t *testing.T) {
	d, _, _ := newSimDevice(t)

	for _, idx := range []int{0, 10, 254, 256, 300, 511} {
		if err := d.SetParam(idx, idx%256); err != nil {
			t.Fatalf("SetParam(%d): %v", idx, err)
		}
		v, err := d.GetParam(idx)
		if err != nil {
			t.Fatalf("GetParam(%d): %v", idx, err)
		}
		if int(v) != idx%256 {
			t.Errorf("GetParam(%d) = %d, want %d", idx, v, idx%256)
		}
	}
}

func TestParamIndex255IsAmbiguous(t *testing.T) {
	d, sim, _ := newSimDevice(t)

	// The firmware reads a bare 255 as the escape prefix and waits for the
	// second index byte, so nothing comes back.
	_, err := d.GetParam(255)
	if !errors.Is(err, device.ErrTimeout) {
		t.Errorf("GetParam(255) = %v, want ErrTimeout", err)
	}
	if diff := cmp.Diff([]byte{'g', 255}, sim.Written); diff != "" {
		t.Errorf("written bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestPrograms(t *testing.T) {
	t.Run("Read and write slot", func(t *testing.T) {
		d, mockTransport := newMockDevice(t)
		gomock.InOrder(NewMockSequence(mockTransport).
			Write('r', 5).Reply(0).
			Write('w', 127).Reply(0).
			Build()...)

		if err := d.ReadProgram(5); err != nil {
			t.Errorf("ReadProgram: %v", err)
		}
		if err := d.WriteProgram(127); err != nil {
			t.Errorf("WriteProgram: %v", err)
		}
	})

	t.Run("Rejected status", func(t *testing.T) {
		d, mockTransport := newMockDevice(t)
		gomock.InOrder(NewMockSequence(mockTransport).Write('r', 5).Reply(3).Build()...)

		err := d.ReadProgram(5)
		var rej *device.RejectedError
		if !errors.As(err, &rej) || rej.Status != 3 {
			t.Errorf("expected RejectedError with status 3, got: %v", err)
		}
		if !errors.Is(err, device.ErrRejected) {
			t.Errorf("expected ErrRejected, got: %v", err)
		}
	})

	t.Run("Slot out of range", func(t *testing.T) {
		d, _ := newMockDevice(t)
		if err := d.ReadProgram(128); !errors.Is(err, device.ErrInvalidArgument) {
			t.Errorf("ReadProgram(128) = %v", err)
		}
		if err := d.WriteProgram(-1); !errors.Is(err, device.ErrInvalidArgument) {
			t.Errorf("WriteProgram(-1) = %v", err)
		}
	})

	t.Run("Initialize", func(t *testing.T) {
		d, mockTransport := newMockDevice(t)
		gomock.InOrder(NewMockSequence(mockTransport).Write('i').Reply(1).Build()...)

		if err := d.Initialize(); !errors.Is(err, device.ErrRejected) {
			t.Errorf("Initialize() = %v, want ErrRejected", err)
		}
	})

	t.Run("Load, store and reload through simulator", func(t *testing.T) {
		d, sim, _ := newSimDevice(t)

		var p xva.Program
		for i := range p {
			p[i] = byte(i * 7)
		}
		if err := d.LoadProgram(p); err != nil {
			t.Fatalf("LoadProgram: %v", err)
		}
		if err := d.WriteProgram(42); err != nil {
			t.Fatalf("WriteProgram: %v", err)
		}
		if err := d.Initialize(); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if err := d.ReadProgram(42); err != nil {
			t.Fatalf("ReadProgram: %v", err)
		}
		got, err := d.DumpProgram()
		if err != nil {
			t.Fatalf("DumpProgram: %v", err)
		}
		if diff := cmp.Diff(p, got); diff != "" {
			t.Errorf("program mismatch (-want +got):\n%s", diff)
		}
		if sim.Slots[42] != p {
			t.Error("slot 42 not stored")
		}
	})
}

func TestName(t *testing.T) {
	d, sim, _ := newSimDevice(t)

	if err := d.SetName("Warm Pad"); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	name, err := d.Name()
	if err != nil {
		t.Fatalf("Name: %v", err)
	}
	if want := "Warm Pad" + strings.Repeat(" ", 16); name != want {
		t.Errorf("Name() = %q, want %q", name, want)
	}

	if err := d.SetName(strings.Repeat("x", 30)); err != nil {
		t.Fatalf("SetName: %v", err)
	}
	if got := string(sim.Edit[xva.NameOffset : xva.NameOffset+xva.NameLen]); got != strings.Repeat("x", 24) {
		t.Errorf("stored name %q", got)
	}
	if sim.Edit[xva.NameOffset+xva.NameLen] != 0 {
		t.Error("name write overran the name field")
	}
}

func TestChannels(t *testing.T) {
	t.Run("Set one channel", func(t *testing.T) {
		d, mockTransport := newMockDevice(t)
		gomock.InOrder(NewMockSequence(mockTransport).Write(42, 10, 5).Reply(5).Build()...)

		if err := d.SetChannels(5); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Echo mismatch is rejected", func(t *testing.T) {
		d, mockTransport := newMockDevice(t)
		gomock.InOrder(NewMockSequence(mockTransport).Write(42, 10, 5).Reply(0).Build()...)

		err := d.SetChannels(5)
		var rej *device.RejectedError
		if !errors.As(err, &rej) || rej.Status != 0 || rej.Want != 5 {
			t.Errorf("expected RejectedError 0 want 5, got: %v", err)
		}
	})

	t.Run("Invalid channel rejected before any write", func(t *testing.T) {
		d, _ := newMockDevice(t)
		if err := d.SetChannels(1, 2, 17); !errors.Is(err, device.ErrInvalidArgument) {
			t.Errorf("SetChannels(1, 2, 17) = %v, want ErrInvalidArgument", err)
		}
		if err := d.SetChannels(); err == nil {
			t.Error("expected error for empty channel list")
		}
	})

	t.Run("Positions through simulator", func(t *testing.T) {
		d, sim, _ := newSimDevice(t)
		if err := d.SetChannels(3, 0, 16); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]byte{0, 3, 0, 16}, sim.Channels[:4]); diff != "" {
			t.Errorf("channels mismatch (-want +got):\n%s", diff)
		}
		ch, err := d.Channel()
		if err != nil || ch != 3 {
			t.Errorf("Channel() = %d, %v", ch, err)
		}
	})
}

package device

import (
	"context"
	"runtime"
	"testing"
	"time"
)

func TestSerialDialer_Dial_EmptyPortName(t *testing.T) {
	dialer := SerialDialer{
		PortName: "",
	}

	transport, err := dialer.Dial(context.Background(), Mode{BaudRate: DefaultBaudRate})

	if err == nil {
		t.Fatal("expected error for empty port name")
	}
	if transport != nil {
		t.Error("expected nil transport for empty port name")
	}
	if err.Error() != "xload: serial port name is required" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_NilContext(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/ttyUSB1",
	}

	//lint:ignore SA1012 a nil context is the case under test
	transport, err := dialer.Dial(nil, Mode{BaudRate: DefaultBaudRate})

	if err == nil {
		t.Fatal("expected error for nil context")
	}
	if transport != nil {
		t.Error("expected nil transport for nil context")
	}
	if err.Error() != "xload: context is nil" {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestSerialDialer_Dial_ContextCanceled(t *testing.T) {
	dialer := SerialDialer{
		PortName: "/dev/nonexistent",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport, err := dialer.Dial(ctx, Mode{BaudRate: DefaultBaudRate})

	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if transport != nil {
		t.Error("expected nil transport for canceled context")
	}
}

func TestSerialDialer_Dial_NonexistentPort(t *testing.T) {
	dialer := SerialDialer{
		PortName:    "/dev/nonexistent",
		ReadTimeout: 100 * time.Millisecond,
	}

	transport, err := dialer.Dial(context.Background(), Mode{BaudRate: DefaultImageBaudRate, Latency: LatencyRealTime})

	if err == nil {
		t.Error("expected error for non-existent port")
	}
	if transport != nil {
		t.Error("expected nil transport for non-existent port")
	}
}

func TestLatency(t *testing.T) {
	tests := []struct {
		latency Latency
		timer   time.Duration
		name    string
	}{
		{LatencyStandard, 16 * time.Millisecond, "standard"},
		{LatencyRealTime, 0, "realtime"},
	}
	for _, tt := range tests {
		if got := tt.latency.Timer(); got != tt.timer {
			t.Errorf("%v.Timer() = %v, want %v", tt.latency, got, tt.timer)
		}
		if got := tt.latency.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
	}
	if got := Latency(7).String(); got != "Latency(7)" {
		t.Errorf("unknown latency String() = %q", got)
	}
}

func TestSetLatencyTimer_UnknownPort(t *testing.T) {
	err := setLatencyTimer("/dev/ttyNOPE99", LatencyRealTime)
	if err == nil {
		t.Error("expected error for a port without a latency attribute")
	}
	if runtime.GOOS != "linux" && err != errLatencyUnsupported {
		t.Errorf("expected errLatencyUnsupported, got: %v", err)
	}
}

func TestTransportInterface(t *testing.T) {
	var _ Transport = (*TestTransport)(nil)
	var _ Dialer = (*TestDialer)(nil)
	var _ Dialer = SerialDialer{}
}

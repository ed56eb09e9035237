package device_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/mock/gomock"
	"i4.energy/across/xload/device"
)

// MockSequenceBuilder scripts a byte exchange on a MockTransport.
type MockSequenceBuilder struct {
	transport *device.MockTransport
	calls     []any
}

func NewMockSequence(transport *device.MockTransport) *MockSequenceBuilder {
	return &MockSequenceBuilder{
		transport: transport,
		calls:     []any{},
	}
}

// Write expects one write of exactly frame.
func (b *MockSequenceBuilder) Write(frame ...byte) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Write(frame).Return(len(frame), nil),
	)
	return b
}

// Reply answers the next read with data.
func (b *MockSequenceBuilder) Reply(data ...byte) *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Read(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
			return copy(p, data), nil
		}),
	)
	return b
}

// Timeout answers the next read with no data.
func (b *MockSequenceBuilder) Timeout() *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Read(gomock.Any()).Return(0, nil),
	)
	return b
}

func (b *MockSequenceBuilder) Close() *MockSequenceBuilder {
	b.calls = append(b.calls,
		b.transport.EXPECT().Close().Return(nil),
	)
	return b
}

func (b *MockSequenceBuilder) Build() []any {
	return b.calls
}

func noSleep(time.Duration) {}

// newMockDevice opens a Device on a MockTransport at the default mode.
func newMockDevice(t *testing.T) (*device.Device, *device.MockTransport) {
	t.Helper()
	ctrl := gomock.NewController(t)

	mockTransport := device.NewMockTransport(ctrl)
	mockDialer := device.NewMockDialer(ctrl)
	mockDialer.EXPECT().
		Dial(gomock.Any(), device.Mode{BaudRate: device.DefaultBaudRate, Latency: device.LatencyStandard}).
		Return(mockTransport, nil)

	config, err := device.NewConfigBuilder().
		WithDialer(mockDialer).
		WithSleeper(noSleep).
		Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	d, err := device.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	return d, mockTransport
}

// newSimDevice opens a Device on a TestTransport.
func newSimDevice(t *testing.T, opts ...func(*device.ConfigBuilder)) (*device.Device, *device.TestTransport, *device.TestDialer) {
	t.Helper()
	sim := device.NewTestTransport()
	dialer := &device.TestDialer{Transport: sim}

	b := device.NewConfigBuilder().
		WithDialer(dialer).
		WithSleeper(noSleep)
	for _, opt := range opts {
		opt(b)
	}
	config, err := b.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}
	d, err := device.New(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from New(): %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, sim, dialer
}

package device

import (
	"log/slog"
	"time"
)

const (
	// DefaultBaudRate is the terminal line rate of the synthesizer firmware.
	DefaultBaudRate = 12_000_000
	// DefaultImageBaudRate is the line rate of the flash image loader.
	DefaultImageBaudRate = 500_000
)

// Delays are the fixed waits the firmware needs between transfers. They are
// minimums, not hints.
type Delays struct {
	// FirstByteSettle follows the first byte of every image page while the
	// loader prepares the page.
	FirstByteSettle time.Duration
	// ChunkSettle follows every acknowledged chunk of a bank program write.
	ChunkSettle time.Duration
	// BankEraseStep times BankEraseSteps is the time given to an EEPROM
	// bank erase before its status is read.
	BankEraseStep  time.Duration
	BankEraseSteps int
}

// DefaultDelays returns the delays required by the XVA1 firmware.
func DefaultDelays() Delays {
	return Delays{
		FirstByteSettle: 10 * time.Millisecond,
		ChunkSettle:     20 * time.Millisecond,
		BankEraseStep:   100 * time.Millisecond,
		BankEraseSteps:  128,
	}
}

// Sleeper blocks for at least d. Tests substitute a recording fake.
type Sleeper func(d time.Duration)

func (c *Config) validate() error {
	if c.dialer == nil {
		return ErrNoDialer
	}
	return nil
}

// Config holds the settings of a Device. Create one with NewConfigBuilder.
type Config struct {
	dialer        Dialer
	baudRate      int
	imageBaudRate int
	delays        Delays
	sleep         Sleeper
	progress      ProgressFunc
	logger        *slog.Logger
}

func (c *Config) setDefaults() {
	if c.baudRate == 0 {
		c.baudRate = DefaultBaudRate
	}
	if c.imageBaudRate == 0 {
		c.imageBaudRate = DefaultImageBaudRate
	}
	if c.delays == (Delays{}) {
		c.delays = DefaultDelays()
	}
	if c.sleep == nil {
		c.sleep = time.Sleep
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
}

// ConfigBuilder assembles a Config.
type ConfigBuilder struct {
	config Config
}

// NewConfigBuilder returns a builder preloaded with the firmware defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: Config{
		baudRate:      DefaultBaudRate,
		imageBaudRate: DefaultImageBaudRate,
		delays:        DefaultDelays(),
	}}
}

// WithDialer sets how the transport is opened. Required.
func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.dialer = d
	return b
}

// WithBaudRate sets the terminal line rate.
func (b *ConfigBuilder) WithBaudRate(baud int) *ConfigBuilder {
	b.config.baudRate = baud
	return b
}

// WithImageBaudRate sets the line rate used while loading a flash image.
func (b *ConfigBuilder) WithImageBaudRate(baud int) *ConfigBuilder {
	b.config.imageBaudRate = baud
	return b
}

// WithDelays replaces the firmware timing delays.
func (b *ConfigBuilder) WithDelays(d Delays) *ConfigBuilder {
	b.config.delays = d
	return b
}

// WithSleeper replaces time.Sleep for the firmware timing delays.
func (b *ConfigBuilder) WithSleeper(s Sleeper) *ConfigBuilder {
	b.config.sleep = s
	return b
}

// WithProgress sets a callback for bulk transfer progress.
func (b *ConfigBuilder) WithProgress(fn ProgressFunc) *ConfigBuilder {
	b.config.progress = fn
	return b
}

// WithLogger sets the logger. Frames are logged at debug level.
func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.logger = l
	return b
}

// Build validates and returns the Config.
func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	return b.config, nil
}

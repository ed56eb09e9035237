package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration
type Config struct {
	// SerialPort is the path to the synthesizer's serial port (e.g. "/dev/ttyUSB1")
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the terminal baud rate (e.g. 12000000)
	BaudRate int `yaml:"baud_rate"`
	// ImageBaudRate is the baud rate of the flash image loader (e.g. 500000)
	ImageBaudRate int `yaml:"image_baud_rate"`
	// ReadTimeout bounds every serial read, zero blocks (e.g. "2s")
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `yaml:"log_level"`
	// NoColor disables colored terminal output
	NoColor bool `yaml:"no_color"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.SerialPort = "/dev/ttyUSB1"
		c.BaudRate = 12_000_000
		c.ImageBaudRate = 500_000
		c.LogLevel = "warn"
		return nil
	}
}

// WithFile overlays the values set in a YAML file. A missing file is not an
// error.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if serial := os.Getenv("SERIAL_PORT"); serial != "" {
			c.SerialPort = serial
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if baud := os.Getenv("IMAGE_BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.ImageBaudRate = b
			}
		}

		if timeout := os.Getenv("READ_TIMEOUT"); timeout != "" {
			if d, err := time.ParseDuration(timeout); err == nil {
				c.ReadTimeout = d
			}
		}

		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}

		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			c.NoColor = true
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "image-baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.ImageBaudRate = b
				}
			case "read-timeout":
				if d, err := time.ParseDuration(f.Value.String()); err == nil {
					c.ReadTimeout = d
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "no-color":
				c.NoColor = f.Value.String() == "true"
			}
		})
		return nil
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"i4.energy/across/xload/command"
	"i4.energy/across/xload/device"
	"i4.energy/across/xload/xva"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB1", "Serial port of the synthesizer")
	flag.Int("baud-rate", device.DefaultBaudRate, "Baud rate of the synthesizer terminal")
	flag.Int("image-baud-rate", device.DefaultImageBaudRate, "Baud rate of the flash image loader")
	flag.Duration("read-timeout", 0, "Serial read timeout (0 blocks)")
	flag.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flag.Bool("no-color", false, "Disable colored output")
	configFile := flag.String("config", defaultConfigFile(), "YAML configuration file")
	image := flag.String("img", "", "Load a synthesizer image file and exit")
	flag.Usage = usage
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelWarn
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	fd := os.Stdout.Fd()
	color.NoColor = config.NoColor || !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))

	os.Exit(run(config, logger, *image, flag.Args()))
}

func run(config *Config, logger *slog.Logger, image string, args []string) int {
	progress := &progressPrinter{out: os.Stdout}

	deviceConfig, err := device.NewConfigBuilder().
		WithDialer(device.SerialDialer{
			PortName:    config.SerialPort,
			ReadTimeout: config.ReadTimeout,
			Logger:      logger.With("component", "serial"),
		}).
		WithBaudRate(config.BaudRate).
		WithImageBaudRate(config.ImageBaudRate).
		WithProgress(progress.Report).
		WithLogger(logger.With("component", "device")).
		Build()
	if err != nil {
		logger.Error("Failed to create device config", "error", err)
		return 1
	}

	ctx := context.Background()
	dev, err := device.New(ctx, deviceConfig)
	if err != nil {
		logger.Error("Failed to open device", "port", config.SerialPort, "error", err)
		errorColor.Fprintf(os.Stderr, "Error opening %s: %v\n", config.SerialPort, err)
		return 1
	}
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Error("Failed to close device", "error", err)
		}
	}()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(interrupts)

	term := &Terminal{
		Logger: logger.With("component", "terminal"),
		Dispatcher: &command.Dispatcher{
			Logger: logger.With("component", "dispatcher"),
			Device: dev,
			Out:    os.Stdout,
		},
		In:        os.Stdin,
		Out:       os.Stdout,
		Interrupt: interrupts,
	}

	switch {
	case image != "":
		infoColor.Fprintln(os.Stdout, "\nLoading Image file:")
		if err := term.Dispatcher.Run(ctx, command.LoadFlash{Kind: xva.FlashImage, File: image}); err != nil {
			errorColor.Fprintf(os.Stdout, "Error: %v\n", err)
			return 1
		}
		infoColor.Fprintln(os.Stdout, "\ndone.")
	case len(args) > 0:
		fmt.Fprintln(os.Stdout)
		if err := term.RunLine(ctx, strings.Join(args, " ")); err != nil && !errors.Is(err, command.ErrQuit) {
			return 1
		}
	default:
		if err := term.Run(ctx); err != nil {
			logger.Error("Terminal failed", "error", err)
			return 1
		}
	}
	return 0
}

func defaultConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "xload", "config.yaml")
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "\nUsage:\txload [options] [\"<command>\"]\n\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprint(out, "\nExamples:\n"+
		"\txload -img xva1.bin\n"+
		"\txload \"get_bank bank1.bank\"\n"+
		"\txload \"* 5\"\n"+
		"\txload \". rec.wav\"\n")
}

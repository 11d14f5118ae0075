package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/tonylturner/dccverify/internal/app"
)

// commonFlags are the station and logging flags shared by every command
// that opens a port.
type commonFlags struct {
	config      string
	port        string
	logLevel    string
	logFile     string
	capture     string
	readTimeout time.Duration
	bootDelay   time.Duration
}

func addCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().StringVar(&f.config, "config", "", "YAML config file (see init-config)")
	cmd.Flags().StringVar(&f.port, "port", "", "Station port: /dev/ttyACM0, serial://COM3?baud=115200, tcp://host:port or sim://")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: silent, error, info, verbose or debug")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Also write the log to this file")
	cmd.Flags().StringVar(&f.capture, "capture", "", "Record every byte on the wire to a pcap file")
	cmd.Flags().DurationVar(&f.readTimeout, "read-timeout", 0, "Wait this long for each line (default from config)")
	cmd.Flags().DurationVar(&f.bootDelay, "boot-delay", 0, "Wait after opening a serial port (default from config)")
}

func (f *commonFlags) options(cmd *cobra.Command) app.CommonOptions {
	return app.CommonOptions{
		ConfigPath:  f.config,
		Port:        f.port,
		LogLevel:    f.logLevel,
		LogFile:     f.logFile,
		Capture:     f.capture,
		ReadTimeout: f.readTimeout,
		BootDelay:   f.bootDelay,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
		Build:       buildInfo(),
	}
}

// needsPort fails when neither --port nor --config says where the station is.
func (f *commonFlags) needsPort(cmd *cobra.Command) error {
	if f.port == "" && f.config == "" {
		return missingFlagError(cmd, "--port or --config")
	}
	return nil
}

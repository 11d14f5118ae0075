package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tonylturner/dccverify/internal/capture"
	"github.com/tonylturner/dccverify/internal/config"
	dccerrors "github.com/tonylturner/dccverify/internal/errors"
	"github.com/tonylturner/dccverify/internal/logging"
	"github.com/tonylturner/dccverify/internal/report"
	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/transport"
)

// ErrCasesFailed is returned when a run finished with failures and the
// caller asked for a non-zero exit.
var ErrCasesFailed = errors.New("one or more cases failed")

// CommonOptions are shared by every command that talks to a station.
type CommonOptions struct {
	ConfigPath  string // optional YAML config
	Port        string // overrides port.spec
	LogLevel    string // overrides log.level
	LogFile     string // overrides log.file
	Capture     string // overrides output.capture
	ReadTimeout time.Duration
	BootDelay   time.Duration
	Stdout      io.Writer
	Stderr      io.Writer
	Build       report.Build
}

func (o *CommonOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// loadConfig reads the config file if one was named and applies flag
// overrides on top.
func loadConfig(o CommonOptions) (*config.Config, error) {
	cfg := config.CreateDefaultConfig()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.Port != "" {
		cfg.Port.Spec = o.Port
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}
	if o.Capture != "" {
		cfg.Output.Capture = o.Capture
	}
	if o.ReadTimeout > 0 {
		cfg.Port.ReadTimeoutMs = int(o.ReadTimeout / time.Millisecond)
	}
	if o.BootDelay > 0 {
		cfg.Port.BootDelayMs = int(o.BootDelay / time.Millisecond)
	}
	if err := config.Validate(cfg); err != nil {
		path := o.ConfigPath
		if path == "" {
			path = "command line"
		}
		return nil, dccerrors.WrapConfigError(err, path)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(level, cfg.Log.File)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// station is an open port with its session and optional capture.
type station struct {
	port    transport.Port
	session *session.Session
	capture *capture.Recorder
	logger  *logging.Logger
}

// openStation opens the configured port, waits out the board reset and
// drains whatever the station printed while booting.
func openStation(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*station, error) {
	port, err := transport.ParseWithOptions(cfg.Port.Spec, cfg.TransportOptions())
	if err != nil {
		return nil, dccerrors.WrapPortError(err, cfg.Port.Spec)
	}
	st := &station{port: port, logger: logger}

	if cfg.Output.Capture != "" {
		rec, err := capture.Create(cfg.Output.Capture)
		if err != nil {
			port.Close()
			return nil, err
		}
		st.capture = rec
		st.port = transport.Tap(port, rec)
		logger.Verbose("capturing traffic to %s", cfg.Output.Capture)
	}

	if d := cfg.BootDelay(); d > 0 {
		logger.Verbose("waiting %s for the station to boot", d)
		select {
		case <-time.After(d):
		case <-ctx.Done():
			st.Close()
			return nil, ctx.Err()
		}
	}

	st.session = session.New(st.port, cfg.SessionOptions(logger))
	if err := st.session.Drain(ctx); err != nil {
		st.Close()
		return nil, dccerrors.WrapPortError(err, cfg.Port.Spec)
	}
	return st, nil
}

// Close closes the port and finishes the capture.
func (s *station) Close() error {
	err := s.port.Close()
	if s.capture != nil {
		if cerr := s.capture.Close(); cerr != nil && err == nil {
			err = cerr
		}
		s.logger.Verbose("captured %d packets", s.capture.Count())
	}
	return err
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *logging.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("Received interrupt signal, shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

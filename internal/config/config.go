package config

// Configuration loading and validation for dccverify

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tonylturner/dccverify/internal/errors"
	"github.com/tonylturner/dccverify/internal/logging"
	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/sim"
	"github.com/tonylturner/dccverify/internal/transport"
)

// PortConfig describes how to reach the command station.
type PortConfig struct {
	Spec          string `yaml:"spec"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	DialTimeoutMs int    `yaml:"dial_timeout_ms,omitempty"`
	BootDelayMs   int    `yaml:"boot_delay_ms"` // USB CDC boards reset on open
}

// SessionConfig tunes the line session.
type SessionConfig struct {
	SettleMs       int `yaml:"settle_ms"`
	ResyncRetries  int `yaml:"resync_retries"`
	MaxDrainRounds int `yaml:"max_drain_rounds"`
}

// SuiteConfig selects what "run" executes.
type SuiteConfig struct {
	Groups   []string `yaml:"groups,omitempty"` // empty runs every group
	File     string   `yaml:"file,omitempty"`   // extra YAML groups merged over the catalog
	FailExit bool     `yaml:"fail_exit"`        // exit non-zero when any case fails
}

// ScanConfig controls the CV dump.
type ScanConfig struct {
	Progress bool `yaml:"progress"`
}

// OutputConfig names optional artifact files. Empty paths disable them.
type OutputConfig struct {
	MetricsCSV  string `yaml:"metrics_csv,omitempty"`
	MetricsJSON string `yaml:"metrics_json,omitempty"`
	ReportJSON  string `yaml:"report_json,omitempty"`
	Capture     string `yaml:"capture,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// SimConfig configures the in-process station used by sim:// ports.
type SimConfig struct {
	OpMillis   int        `yaml:"op_ms"`
	RailcomHex string     `yaml:"railcom_hex,omitempty"` // 16 bytes, "_" separators allowed
	Faults     sim.Faults `yaml:"faults"`
}

// Config is the top-level dccverify configuration.
type Config struct {
	Port    PortConfig    `yaml:"port"`
	Session SessionConfig `yaml:"session"`
	Suite   SuiteConfig   `yaml:"suite"`
	Scan    ScanConfig    `yaml:"scan"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
	Sim     SimConfig     `yaml:"sim"`
}

// CreateDefaultConfig creates a default configuration.
func CreateDefaultConfig() *Config {
	sopts := session.DefaultOptions()
	topts := transport.DefaultOptions()
	return &Config{
		Port: PortConfig{
			Spec:          "/dev/ttyACM0",
			Baud:          topts.BaudRate,
			ReadTimeoutMs: int(topts.ReadTimeout / time.Millisecond),
			DialTimeoutMs: int(topts.DialTimeout / time.Millisecond),
			BootDelayMs:   2000,
		},
		Session: SessionConfig{
			SettleMs:       int(sopts.Settle / time.Millisecond),
			ResyncRetries:  sopts.ResyncRetries,
			MaxDrainRounds: sopts.MaxDrainRounds,
		},
		Scan: ScanConfig{Progress: true},
		Log:  LogConfig{Level: "info"},
		Sim:  SimConfig{OpMillis: sim.DefaultConfig().OpMillis},
	}
}

// WriteDefault writes a default configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}
	data, err := yaml.Marshal(CreateDefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Load reads a configuration from a YAML file. Fields left out of the file
// keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := CreateDefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate rejects values no station or session could work with.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Port.Spec) == "" {
		return fmt.Errorf("port.spec is required")
	}
	if cfg.Port.Baud <= 0 {
		return fmt.Errorf("port.baud must be positive, got %d", cfg.Port.Baud)
	}
	if cfg.Port.ReadTimeoutMs <= 0 {
		return fmt.Errorf("port.read_timeout_ms must be positive, got %d", cfg.Port.ReadTimeoutMs)
	}
	if cfg.Port.DialTimeoutMs < 0 {
		return fmt.Errorf("port.dial_timeout_ms must be non-negative")
	}
	if cfg.Port.BootDelayMs < 0 {
		return fmt.Errorf("port.boot_delay_ms must be non-negative")
	}
	if cfg.Session.SettleMs <= 0 {
		return fmt.Errorf("session.settle_ms must be positive, got %d", cfg.Session.SettleMs)
	}
	if cfg.Session.ResyncRetries < 0 || cfg.Session.ResyncRetries > 5 {
		return fmt.Errorf("session.resync_retries must be between 0 and 5, got %d", cfg.Session.ResyncRetries)
	}
	if cfg.Session.MaxDrainRounds <= 0 {
		return fmt.Errorf("session.max_drain_rounds must be positive, got %d", cfg.Session.MaxDrainRounds)
	}
	for i, g := range cfg.Suite.Groups {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("suite.groups[%d] is empty", i)
		}
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if cfg.Sim.OpMillis < 0 {
		return fmt.Errorf("sim.op_ms must be non-negative")
	}
	if cfg.Sim.RailcomHex != "" {
		if _, err := parseRailcom(cfg.Sim.RailcomHex); err != nil {
			return fmt.Errorf("sim.railcom_hex: %w", err)
		}
	}
	f := cfg.Sim.Faults
	if f.StrayEvery < 0 || f.CorruptEchoEvery < 0 || f.DropResponseEvery < 0 {
		return fmt.Errorf("sim.faults counters must be non-negative")
	}
	return nil
}

func parseRailcom(s string) ([16]byte, error) {
	var out [16]byte
	clean := strings.NewReplacer("_", "", " ", "").Replace(s)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("need %d bytes, got %d", len(out), len(b))
	}
	copy(out[:], b)
	return out, nil
}

// SessionOptions converts the session section. The logger may be nil.
func (c *Config) SessionOptions(logger *logging.Logger) session.Options {
	opts := session.DefaultOptions()
	opts.ReadTimeout = time.Duration(c.Port.ReadTimeoutMs) * time.Millisecond
	opts.Settle = time.Duration(c.Session.SettleMs) * time.Millisecond
	opts.ResyncRetries = c.Session.ResyncRetries
	opts.MaxDrainRounds = c.Session.MaxDrainRounds
	opts.Logger = logger
	return opts
}

// TransportOptions converts the port and sim sections.
func (c *Config) TransportOptions() transport.Options {
	opts := transport.DefaultOptions()
	opts.BaudRate = c.Port.Baud
	opts.ReadTimeout = time.Duration(c.Port.ReadTimeoutMs) * time.Millisecond
	if c.Port.DialTimeoutMs > 0 {
		opts.DialTimeout = time.Duration(c.Port.DialTimeoutMs) * time.Millisecond
	}
	opts.Sim.OpMillis = c.Sim.OpMillis
	opts.Sim.Faults = c.Sim.Faults
	if rc, err := parseRailcom(c.Sim.RailcomHex); err == nil {
		opts.Sim.Railcom = rc
	}
	return opts
}

// BootDelay is how long to wait after opening a port before the first
// command. The simulator needs none.
func (c *Config) BootDelay() time.Duration {
	if transport.IsSimulated(c.Port.Spec) {
		return 0
	}
	return time.Duration(c.Port.BootDelayMs) * time.Millisecond
}

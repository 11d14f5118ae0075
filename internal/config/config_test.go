package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tonylturner/dccverify/internal/sim"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "sim port", mutate: func(c *Config) { c.Port.Spec = "sim://?drop=3" }},
		{name: "empty port", mutate: func(c *Config) { c.Port.Spec = " " }, wantErr: true},
		{name: "zero baud", mutate: func(c *Config) { c.Port.Baud = 0 }, wantErr: true},
		{name: "zero read timeout", mutate: func(c *Config) { c.Port.ReadTimeoutMs = 0 }, wantErr: true},
		{name: "negative boot delay", mutate: func(c *Config) { c.Port.BootDelayMs = -1 }, wantErr: true},
		{name: "zero settle", mutate: func(c *Config) { c.Session.SettleMs = 0 }, wantErr: true},
		{name: "too many resyncs", mutate: func(c *Config) { c.Session.ResyncRetries = 6 }, wantErr: true},
		{name: "no resyncs", mutate: func(c *Config) { c.Session.ResyncRetries = 0 }},
		{name: "zero drain rounds", mutate: func(c *Config) { c.Session.MaxDrainRounds = 0 }, wantErr: true},
		{name: "blank group", mutate: func(c *Config) { c.Suite.Groups = []string{"track", ""} }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "chatty" }, wantErr: true},
		{name: "railcom hex", mutate: func(c *Config) { c.Sim.RailcomHex = "00_00_00_97 02_00_00_93 df_fa_b4_ac 27_d2_e4_be" }},
		{name: "short railcom hex", mutate: func(c *Config) { c.Sim.RailcomHex = "00_00_00_97" }, wantErr: true},
		{name: "negative fault", mutate: func(c *Config) { c.Sim.Faults.DropResponseEvery = -2 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CreateDefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
port:
  spec: "sim://"
session:
  resync_retries: 2
suite:
  groups: [track, cv]
  fail_exit: true
sim:
  faults:
    stray_every: 4
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port.Baud != 115200 {
		t.Errorf("baud = %d, want default 115200", cfg.Port.Baud)
	}
	if cfg.Session.SettleMs != 100 || cfg.Session.ResyncRetries != 2 {
		t.Errorf("session = %+v", cfg.Session)
	}
	if strings.Join(cfg.Suite.Groups, ",") != "track,cv" || !cfg.Suite.FailExit {
		t.Errorf("suite = %+v", cfg.Suite)
	}
	if cfg.Sim.Faults.StrayEvery != 4 || cfg.Sim.OpMillis != 45 {
		t.Errorf("sim = %+v", cfg.Sim)
	}
	if cfg.BootDelay() != 0 {
		t.Errorf("BootDelay() = %v for a sim port", cfg.BootDelay())
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("port: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("session:\n  settle_ms: -5\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dccverify.yaml")
	if err := os.WriteFile(path, []byte("port:\n  spec: /dev/ttyUSB1\n  boot_delay_ms: 1500\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port.Spec != "/dev/ttyUSB1" {
		t.Errorf("spec = %q", cfg.Port.Spec)
	}
	if cfg.BootDelay() != 1500*time.Millisecond {
		t.Errorf("BootDelay() = %v", cfg.BootDelay())
	}

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "init-config") {
		t.Errorf("missing file error = %v", err)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dccverify.yaml")
	if err := WriteDefault(path, false); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	if err := WriteDefault(path, false); err == nil {
		t.Error("WriteDefault overwrote an existing file")
	}
	if err := WriteDefault(path, true); err != nil {
		t.Errorf("WriteDefault(force): %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load default file: %v", err)
	}
	if cfg.Port.Spec != "/dev/ttyACM0" || !cfg.Scan.Progress {
		t.Errorf("round-tripped default = %+v", cfg)
	}
}

func TestOptionConversion(t *testing.T) {
	cfg := CreateDefaultConfig()
	cfg.Port.ReadTimeoutMs = 750
	cfg.Session.SettleMs = 20
	cfg.Session.ResyncRetries = 3
	cfg.Sim.OpMillis = 12
	cfg.Sim.RailcomHex = strings.Repeat("01", 16)

	sopts := cfg.SessionOptions(nil)
	if sopts.ReadTimeout != 750*time.Millisecond || sopts.Settle != 20*time.Millisecond || sopts.ResyncRetries != 3 {
		t.Errorf("session options = %+v", sopts)
	}

	topts := cfg.TransportOptions()
	if topts.ReadTimeout != 750*time.Millisecond || topts.Sim.OpMillis != 12 {
		t.Errorf("transport options = %+v", topts)
	}
	if topts.Sim.Railcom[0] != 1 || topts.Sim.Railcom == sim.DefaultRailcom {
		t.Errorf("railcom = %x", topts.Sim.Railcom)
	}

	cfg.Sim.RailcomHex = ""
	if got := cfg.TransportOptions().Sim.Railcom; got != sim.DefaultRailcom {
		t.Errorf("default railcom = %x", got)
	}
}

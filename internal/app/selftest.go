package app

import (
	"context"
	"fmt"
	"time"

	"github.com/tonylturner/dccverify/internal/config"
	"github.com/tonylturner/dccverify/internal/cv"
	"github.com/tonylturner/dccverify/internal/sim"
	"github.com/tonylturner/dccverify/internal/suite"
)

// SelfTestOptions configures the loopback validation.
type SelfTestOptions struct {
	CommonOptions
	Faults sim.Faults
	Quiet  bool // print only the summary
}

// RunSelfTest starts an emulated station on a loopback TCP port and runs the
// whole catalog plus a RailCom read against it. Every case must pass.
func RunSelfTest(opts SelfTestOptions) error {
	opts.defaults()
	simCfg := sim.DefaultConfig()
	simCfg.Faults = opts.Faults

	srv := sim.NewServer(simCfg)
	if err := srv.Start("127.0.0.1:0"); err != nil {
		return fmt.Errorf("start simulator: %w", err)
	}
	defer srv.Stop()

	addr := srv.Addr()
	if addr == nil {
		return fmt.Errorf("simulator did not expose TCP address")
	}

	cfg := config.CreateDefaultConfig()
	cfg.Port.Spec = "tcp://" + addr.String()
	cfg.Port.BootDelayMs = 0
	cfg.Port.ReadTimeoutMs = 2000
	cfg.Session.SettleMs = 20
	cfg.Log.Level = "error"
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, err := openStation(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("connect to simulator: %w", err)
	}
	defer st.Close()

	var observers []suite.Observer
	if !opts.Quiet {
		observers = append(observers, suite.NewConsole(opts.Stdout, nil))
	}
	rep, err := suite.NewRunner(st.session, logger, observers...).RunAll(ctx, suite.Catalog())
	if err != nil {
		return fmt.Errorf("run catalog: %w", err)
	}
	fmt.Fprintf(opts.Stdout, "catalog: %s\n", rep.Tally)
	if rep.Tally.Failed > 0 {
		return fmt.Errorf("catalog: %d cases failed: %w", rep.Tally.Failed, ErrCasesFailed)
	}

	block, _, err := cv.NewScanner(st.session, logger).ReadRailcom(ctx)
	if err != nil {
		return fmt.Errorf("read RailCom block: %w", err)
	}
	if err := checkRailcom(block, simCfg.Railcom); err != nil {
		return err
	}
	fmt.Fprintf(opts.Stdout, "railcom: manufacturer %s product %s\n",
		cv.FormatHex(block.ManufacturerID), cv.FormatHex(block.ProductID))

	fmt.Fprintln(opts.Stdout, "Loopback selftest complete")
	return nil
}

func checkRailcom(block cv.RailcomBlock, raw [16]byte) error {
	bytes := make(map[int]uint8, len(raw))
	for i, b := range raw {
		bytes[i] = b
	}
	want := cv.DecodeRailcom(bytes)
	if block != want {
		return fmt.Errorf("RailCom block %+v does not match the emulated decoder %+v", block, want)
	}
	return nil
}

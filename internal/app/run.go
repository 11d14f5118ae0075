package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	dccerrors "github.com/tonylturner/dccverify/internal/errors"
	"github.com/tonylturner/dccverify/internal/logging"
	"github.com/tonylturner/dccverify/internal/metrics"
	"github.com/tonylturner/dccverify/internal/progress"
	"github.com/tonylturner/dccverify/internal/report"
	"github.com/tonylturner/dccverify/internal/suite"
	"github.com/tonylturner/dccverify/internal/tui"
	"github.com/tonylturner/dccverify/internal/ui"
)

// RunOptions configures a conformance run.
type RunOptions struct {
	CommonOptions
	Groups      []string // overrides suite.groups
	SuiteFile   string   // overrides suite.file
	FailExit    bool     // forces suite.fail_exit on
	Pick        bool     // choose groups interactively
	TUI         bool     // live dashboard instead of console lines
	Quiet       bool     // only the summary, with a case counter
	Color       bool
	MetricsCSV  string
	MetricsJSON string
	ReportJSON  string
}

// loadGroups returns the catalog merged with an optional suite file.
func loadGroups(path string) ([]suite.Group, error) {
	groups := suite.Catalog()
	if path == "" {
		return groups, nil
	}
	extra, err := suite.LoadFile(path)
	if err != nil {
		return nil, dccerrors.WrapSuiteError(err, path)
	}
	return suite.Merge(groups, extra), nil
}

// RunSuite runs the selected groups against the configured station.
func RunSuite(opts RunOptions) (suite.Report, error) {
	opts.defaults()
	cfg, err := loadConfig(opts.CommonOptions)
	if err != nil {
		return suite.Report{}, err
	}
	if len(opts.Groups) > 0 {
		cfg.Suite.Groups = opts.Groups
	}
	if opts.SuiteFile != "" {
		cfg.Suite.File = opts.SuiteFile
	}
	if opts.FailExit {
		cfg.Suite.FailExit = true
	}
	if opts.MetricsCSV != "" {
		cfg.Output.MetricsCSV = opts.MetricsCSV
	}
	if opts.MetricsJSON != "" {
		cfg.Output.MetricsJSON = opts.MetricsJSON
	}
	if opts.ReportJSON != "" {
		cfg.Output.ReportJSON = opts.ReportJSON
	}

	all, err := loadGroups(cfg.Suite.File)
	if err != nil {
		return suite.Report{}, err
	}
	groups, err := suite.Select(all, cfg.Suite.Groups)
	if err != nil {
		return suite.Report{}, err
	}
	if opts.Pick {
		if groups, err = ui.PickGroups(all, cfg.Suite.Groups); err != nil {
			return suite.Report{}, err
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return suite.Report{}, err
	}
	defer logger.Close()
	if opts.TUI {
		// The dashboard owns the screen.
		logger.SetLevel(logging.LogLevelSilent)
	}
	logger.LogStartup(cfg.Port.Spec, cfg.Port.ReadTimeoutMs, cfg.Session.SettleMs, suite.Names(groups), opts.ConfigPath)

	ctx, cancel := signalContext(logger)
	defer cancel()

	st, err := openStation(ctx, cfg, logger)
	if err != nil {
		return suite.Report{}, err
	}
	defer st.Close()

	sink := metrics.NewSink()
	writer, err := metrics.NewWriter(cfg.Output.MetricsCSV, cfg.Output.MetricsJSON)
	if err != nil {
		return suite.Report{}, fmt.Errorf("create metrics writer: %w", err)
	}
	defer writer.Close()
	metricsObs := metrics.NewObserver(sink, writer)

	var rep suite.Report
	var runErr error
	switch {
	case opts.TUI:
		rep, runErr = tui.Run(ctx, groups, func(ctx context.Context, obs suite.Observer) (suite.Report, error) {
			return suite.NewRunner(st.session, logger, metricsObs, obs).RunAll(ctx, groups)
		})
	case opts.Quiet:
		counter := progress.NewCounter(opts.Stderr, 250*time.Millisecond)
		rep, runErr = suite.NewRunner(st.session, logger, metricsObs, counter).RunAll(ctx, groups)
		counter.Finish()
	default:
		console := suite.NewConsole(opts.Stdout, ui.StyleFor(opts.Color))
		rep, runErr = suite.NewRunner(st.session, logger, metricsObs, console).RunAll(ctx, groups)
	}
	if err := metricsObs.Err(); err != nil {
		logger.Error("metrics output: %v", err)
	}

	summary := sink.GetSummary()
	runReport := report.NewRunReport(opts.Build, cfg.Port.Spec, rep, summary)
	if !opts.TUI {
		fmt.Fprintln(opts.Stdout)
		report.WriteRunSummary(opts.Stdout, runReport)
		if opts.Color {
			ui.WriteSummaryBox(opts.Stdout, rep)
		}
	}
	if logger.GetLevel() >= logging.LogLevelVerbose && summary.TotalExchanges > 0 {
		fmt.Fprintf(opts.Stdout, "\n%s", metrics.FormatSummary(summary))
	}
	if cfg.Output.ReportJSON != "" {
		if err := report.WriteJSONFile(cfg.Output.ReportJSON, runReport); err != nil {
			logger.Error("write report: %v", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return rep, fmt.Errorf("run interrupted after %s: %w", rep.Tally, runErr)
		}
		return rep, fmt.Errorf("run on %s: %w", cfg.Port.Spec, runErr)
	}
	if cfg.Suite.FailExit && rep.Tally.Failed > 0 {
		return rep, ErrCasesFailed
	}
	return rep, nil
}

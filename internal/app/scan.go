package app

import (
	"fmt"

	"github.com/tonylturner/dccverify/internal/cv"
	"github.com/tonylturner/dccverify/internal/progress"
	"github.com/tonylturner/dccverify/internal/report"
)

// ScanOptions configures a CV dump.
type ScanOptions struct {
	CommonOptions
	RailcomOnly bool   // read only CV 257-272 on the RailCom page
	NoProgress  bool   // overrides scan.progress
	ReportJSON  string // overrides output.report_json
}

// sectionName labels a CV for the progress bar.
func sectionName(e cv.Entry) string {
	switch {
	case e.CV <= cv.BaseLast:
		return "CV 1-256"
	case e.Offset >= 0:
		return "railcom page"
	default:
		return "default page"
	}
}

// RunScan dumps the decoder's CV space, or just the RailCom block.
func RunScan(opts ScanOptions) (cv.DumpResult, error) {
	opts.defaults()
	cfg, err := loadConfig(opts.CommonOptions)
	if err != nil {
		return cv.DumpResult{}, err
	}
	if opts.NoProgress {
		cfg.Scan.Progress = false
	}
	if opts.ReportJSON != "" {
		cfg.Output.ReportJSON = opts.ReportJSON
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return cv.DumpResult{}, err
	}
	defer logger.Close()

	ctx, cancel := signalContext(logger)
	defer cancel()

	st, err := openStation(ctx, cfg, logger)
	if err != nil {
		return cv.DumpResult{}, err
	}
	defer st.Close()

	scanner := cv.NewScanner(st.session, logger)
	bar := progress.NewBar(opts.Stderr, 0, "")
	if cfg.Scan.Progress {
		scanner.OnEntry(func(e cv.Entry, done, total int) {
			if done == 1 {
				bar.Reset(total, sectionName(e))
			}
			bar.Entry(e, done, total)
			if done == total {
				bar.Finish()
			}
		})
	}

	var res cv.DumpResult
	if opts.RailcomOnly {
		res.Block, res.Railcom, err = scanner.ReadRailcom(ctx)
		if err != nil {
			return res, fmt.Errorf("read RailCom block: %w", err)
		}
		report.WriteScan(opts.Stdout, res.Railcom)
		fmt.Fprintln(opts.Stdout)
		report.WriteRailcom(opts.Stdout, res.Block)
	} else {
		res, err = scanner.Dump(ctx)
		report.WriteDump(opts.Stdout, res)
		if err != nil {
			return res, fmt.Errorf("dump: %w", err)
		}
	}

	if cfg.Output.ReportJSON != "" {
		if err := report.WriteJSONFile(cfg.Output.ReportJSON, report.NewScanReport(opts.Build, cfg.Port.Spec, res)); err != nil {
			logger.Error("write report: %v", err)
		}
	}
	return res, nil
}

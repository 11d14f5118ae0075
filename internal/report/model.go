package report

import (
	"time"

	"github.com/tonylturner/dccverify/internal/cv"
	"github.com/tonylturner/dccverify/internal/metrics"
	"github.com/tonylturner/dccverify/internal/suite"
)

// Build identifies the binary that produced a report.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// RunReport captures a conformance run.
type RunReport struct {
	GeneratedAt string           `json:"generated_at"`
	Build       Build            `json:"build"`
	Port        string           `json:"port"`
	Groups      []string         `json:"groups"`
	Result      suite.Report     `json:"result"`
	Metrics     *metrics.Summary `json:"metrics,omitempty"`
}

// Passed reports whether every tallied case passed.
func (r RunReport) Passed() bool {
	return r.Result.Tally.Failed == 0
}

// NewRunReport stamps a suite report for output.
func NewRunReport(build Build, port string, res suite.Report, summary *metrics.Summary) RunReport {
	return RunReport{
		GeneratedAt: FormatTimestamp(time.Now()),
		Build:       build,
		Port:        port,
		Groups:      groupNames(res),
		Result:      res,
		Metrics:     summary,
	}
}

func groupNames(res suite.Report) []string {
	names := make([]string, len(res.Groups))
	for i, g := range res.Groups {
		names[i] = g.Name
	}
	return names
}

// ScanReport captures a CV dump.
type ScanReport struct {
	GeneratedAt string        `json:"generated_at"`
	Build       Build         `json:"build"`
	Port        string        `json:"port"`
	Dump        cv.DumpResult `json:"dump"`
}

// NewScanReport stamps a dump for output.
func NewScanReport(build Build, port string, dump cv.DumpResult) ScanReport {
	return ScanReport{
		GeneratedAt: FormatTimestamp(time.Now()),
		Build:       build,
		Port:        port,
		Dump:        dump,
	}
}

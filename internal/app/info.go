package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tonylturner/dccverify/internal/capture"
	"github.com/tonylturner/dccverify/internal/config"
	"github.com/tonylturner/dccverify/internal/metrics"
	"github.com/tonylturner/dccverify/internal/suite"
	"github.com/tonylturner/dccverify/internal/transport"
)

// ListGroups prints the catalog, merged with suiteFile when given. With
// verbose set every case is listed.
func ListGroups(w io.Writer, suiteFile string, verbose bool) error {
	groups, err := loadGroups(suiteFile)
	if err != nil {
		return err
	}
	for _, g := range groups {
		note := ""
		if g.Railcom {
			note = "  RailCom decode"
		}
		fmt.Fprintf(w, "%-12s %3d cases%s\n", g.Name, len(g.Cases), note)
		if !verbose {
			continue
		}
		for _, c := range g.Cases {
			exp := c.Expect
			if exp == "" {
				exp = "(any)"
			}
			fmt.Fprintf(w, "    %-16s expect %s\n", c.Command, exp)
		}
	}
	return nil
}

// ListPorts prints the serial devices found on this machine.
func ListPorts(w io.Writer) error {
	ports, err := transport.ListSerialPorts()
	if err != nil {
		return fmt.Errorf("list serial ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found (use sim:// to try without hardware)")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}

// DumpCapture prints a capture written by --capture.
func DumpCapture(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()
	return capture.Dump(f, w)
}

// SummarizeMetrics reads a metrics CSV and prints its summary.
func SummarizeMetrics(w io.Writer, path string) error {
	ms, first, last, err := metrics.ReadMetricsCSV(path)
	if err != nil {
		return err
	}
	if len(ms) > 0 {
		fmt.Fprintf(w, "%d exchanges from %s to %s\n", len(ms),
			first.Format(time.RFC3339), last.Format(time.RFC3339))
	}
	sink := metrics.NewSink()
	for _, m := range ms {
		sink.Record(m)
	}
	fmt.Fprint(w, metrics.FormatSummary(sink.GetSummary()))
	return nil
}

// InitConfig writes a starter configuration file.
func InitConfig(w io.Writer, path string, force bool) error {
	if err := config.WriteDefault(path, force); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s\n", path)
	return nil
}

// GroupNames lists the group names for shell completion.
func GroupNames(suiteFile string) []string {
	groups, err := loadGroups(suiteFile)
	if err != nil {
		return nil
	}
	return suite.Names(groups)
}

package report

import (
	"fmt"
	"io"

	"github.com/tonylturner/dccverify/internal/cv"
	"github.com/tonylturner/dccverify/internal/suite"
)

// WriteRunSummary renders per-group, per-pass tallies, any decoded RailCom
// blocks and the final tally line.
func WriteRunSummary(w io.Writer, rep RunReport) {
	fmt.Fprintf(w, "Run Summary (%s)\n", rep.Port)
	fmt.Fprintf(w, "%-12s %-16s %-16s\n", "group", "verbose", "quiet")
	for _, g := range rep.Result.Groups {
		cols := make([]string, 2)
		for i, p := range g.Passes {
			if i < len(cols) {
				cols[i] = passCell(p)
			}
		}
		fmt.Fprintf(w, "%-12s %-16s %-16s\n", g.Name, cols[0], cols[1])
	}
	for _, g := range rep.Result.Groups {
		for _, p := range g.Passes {
			if p.Railcom != nil {
				fmt.Fprintf(w, "\nRailCom (%s, %s):\n", g.Name, p.Verbosity)
				WriteRailcom(w, *p.Railcom)
			}
		}
	}
	if c := rep.Result.Cleanup; c != nil && !c.Passed {
		fmt.Fprintf(w, "\nCleanup failed: %s answered %q\n", c.Case.Command, c.Response)
	}
	fmt.Fprintf(w, "\n%s\n", rep.Result.Tally)
}

func passCell(p suite.PassResult) string {
	cell := fmt.Sprintf("%d/%d", p.Tally.Passed, p.Tally.Total())
	if !p.Switch.Passed {
		cell += " (switch!)"
	}
	return cell
}

// WriteRailcom renders the four identification fields.
func WriteRailcom(w io.Writer, b cv.RailcomBlock) {
	for _, f := range cv.RailcomFields {
		v, complete := b.Get(f)
		note := ""
		if !complete {
			note = " (incomplete)"
		}
		fmt.Fprintf(w, "  %-16s %s = %d%s\n", f.String()+":", cv.FormatHex(v), v, note)
	}
}

// WriteScan renders a scan one CV per line.
func WriteScan(w io.Writer, s cv.Scan) {
	if s.Unreliable {
		fmt.Fprintf(w, "WARNING: page select %s was rejected; values may belong to another page\n", pageName(s))
	}
	for _, e := range s.Entries {
		label := fmt.Sprintf("C %d ?", e.CV)
		if e.Offset >= 0 {
			label += fmt.Sprintf(" [+%d]", e.Offset)
		}
		fmt.Fprintf(w, "%q --> %q\n", label, e.Response)
	}
}

func pageName(s cv.Scan) string {
	if s.Page == nil {
		return "-"
	}
	return s.Page.String()
}

// WriteDump renders a full decoder dump.
func WriteDump(w io.Writer, d cv.DumpResult) {
	for _, o := range d.Setup {
		if !o.Passed {
			fmt.Fprintf(w, "setup %q failed: %q\n", o.Command.Line(), o.Response)
		}
	}
	WriteScan(w, d.Base)
	fmt.Fprint(w, "\nDefault Page:\n\n")
	WriteScan(w, d.Default)
	fmt.Fprint(w, "\nRailCom Page:\n\n")
	WriteScan(w, d.Railcom)
	fmt.Fprintln(w)
	WriteRailcom(w, d.Block)
	if n := d.Base.Failed() + d.Default.Failed() + d.Railcom.Failed(); n > 0 {
		fmt.Fprintf(w, "\n%d CV reads failed\n", n)
	}
	for _, o := range d.Restore {
		if !o.Passed {
			fmt.Fprintf(w, "restore %q failed: %q; decoder may still be on the RailCom page\n", o.Command.Line(), o.Response)
		}
	}
}

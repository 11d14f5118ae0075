package suite

import (
	"fmt"
	"io"

	"github.com/tonylturner/dccverify/internal/session"
)

// FormatResult renders a case in the console layout:
//
//	T ?      -->  T ?      -->  OFF                                              >>>>> PASS
func FormatResult(r CaseResult) string {
	line := fmt.Sprintf("%-8s -->  %-8s -->  %-48s >>>>> ", r.Case.Command, r.Echo, r.Response)
	if r.Passed {
		return line + "PASS"
	}
	return line + fmt.Sprintf("FAIL: expected '%s'", r.Case.Expect)
}

// StyleFunc decorates a formatted line, e.g. with terminal colour.
type StyleFunc func(line string, passed bool) string

// Console prints every case as it completes.
type Console struct {
	w     io.Writer
	style StyleFunc
}

// NewConsole returns a console observer writing to w. style may be nil.
func NewConsole(w io.Writer, style StyleFunc) *Console {
	return &Console{w: w, style: style}
}

func (c *Console) GroupStarted(g Group) {
	fmt.Fprintf(c.w, "\n### %s\n", g.Name)
}

func (c *Console) PassStarted(g Group, v session.Verbosity) {
	fmt.Fprintf(c.w, "--- %s (%s)\n", g.Name, v)
}

func (c *Console) CaseDone(r CaseResult) {
	line := FormatResult(r)
	if c.style != nil {
		line = c.style(line, r.Passed)
	}
	fmt.Fprintln(c.w, line)
}

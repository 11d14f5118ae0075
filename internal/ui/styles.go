// Package ui holds the styled and interactive parts of the command line.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tonylturner/dccverify/internal/suite"
	"github.com/tonylturner/dccverify/internal/tui"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(tui.DefaultTheme.Success)
	failStyle   = lipgloss.NewStyle().Foreground(tui.DefaultTheme.Error).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(tui.DefaultTheme.Accent).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(tui.DefaultTheme.TextDim)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

// ConsoleStyle colors a case line green or red. It is a suite.StyleFunc.
func ConsoleStyle(line string, passed bool) string {
	if passed {
		return passStyle.Render(line)
	}
	return failStyle.Render(line)
}

// PlainStyle leaves lines untouched.
func PlainStyle(line string, _ bool) string { return line }

// StyleFor picks the console style. Color is used only on terminals.
func StyleFor(color bool) suite.StyleFunc {
	if color {
		return ConsoleStyle
	}
	return PlainStyle
}

// Header renders a section title.
func Header(title string) string {
	return headerStyle.Render(title)
}

// Dim renders secondary text.
func Dim(text string) string {
	return dimStyle.Render(text)
}

// SummaryBox renders the final tally of a run in a bordered box.
func SummaryBox(rep suite.Report) string {
	var lines []string
	for _, g := range rep.Groups {
		line := fmt.Sprintf("%-12s %s", g.Name, g.Tally)
		if g.Tally.Failed > 0 {
			line = failStyle.Render(line)
		}
		lines = append(lines, line)
	}
	total := rep.Tally.String()
	border := tui.DefaultTheme.Success
	if rep.Tally.Failed > 0 {
		border = tui.DefaultTheme.Error
		total = failStyle.Render(total)
	} else {
		total = passStyle.Render(total)
	}
	lines = append(lines, "", total, dimStyle.Render(fmt.Sprintf("in %s", rep.Duration.Round(time.Millisecond))))
	return boxStyle.BorderForeground(border).Render(strings.Join(lines, "\n"))
}

// WriteSummaryBox prints SummaryBox followed by a newline.
func WriteSummaryBox(w io.Writer, rep suite.Report) {
	fmt.Fprintln(w, SummaryBox(rep))
}

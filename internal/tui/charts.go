package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline renders round-trip times as a mini chart using braille
// characters. The newest value is on the right; older values scroll off.
func Sparkline(values []float64, width int, s Styles) string {
	if len(values) == 0 || width < 1 {
		return ""
	}

	// Using dots: ⣀ ⣤ ⣶ ⣿
	blocks := []rune{'⣀', '⣤', '⣶', '⣿'}

	if len(values) > width {
		values = values[len(values)-width:]
	}
	maxVal := 0.0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal == 0 {
		maxVal = 1
	}

	var result strings.Builder
	result.WriteString(strings.Repeat(" ", width-len(values)))
	for _, v := range values {
		level := int(v / maxVal * float64(len(blocks)-1))
		if level < 0 {
			level = 0
		}
		if level >= len(blocks) {
			level = len(blocks) - 1
		}
		result.WriteRune(blocks[level])
	}

	return s.Info.Render(result.String())
}

// ProgressBar renders "label [████░░░░] 12/40".
func ProgressBar(label string, done, total, width int, s Styles) string {
	if width < 10 {
		width = 10
	}
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	if filled > width {
		filled = width
	}
	bar := s.ProgressFilled.Render(strings.Repeat("█", filled)) +
		s.ProgressEmpty.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s [%s] %d/%d", s.Dim.Render(label), bar, done, total)
}

// SectionBox renders a titled box with content.
//
//	╭─ TITLE ──────────────────────────╮
//	│  content line 1                  │
//	╰──────────────────────────────────╯
func SectionBox(title, content string, width int, s Styles) string {
	if width < 20 {
		width = 60
	}

	titleText := " " + title + " "
	remaining := width - 3 - lipgloss.Width(titleText)
	if remaining < 0 {
		remaining = 0
	}
	titleBar := "─" + s.Header.Render(titleText) + strings.Repeat("─", remaining)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder(), false, true, true, true).
		BorderForeground(DefaultTheme.Border).
		Width(width - 2).
		Padding(0, 1)

	return "╭" + titleBar + "╮\n" + box.Render(content)
}

func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

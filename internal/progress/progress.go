// Package progress renders terminal progress for CV scans and suite runs.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/tonylturner/dccverify/internal/cv"
	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/suite"
)

const (
	barWidth       = 40
	renderInterval = 100 * time.Millisecond
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Bar is a single-line progress bar for a CV scan.
type Bar struct {
	mu          sync.Mutex
	total       int
	current     int
	failed      int
	lastCV      int
	startTime   time.Time
	lastUpdate  time.Time
	output      io.Writer
	enabled     bool
	description string
	now         func() time.Time
}

// NewBar creates a bar writing to w. It is disabled unless w is a terminal.
func NewBar(w io.Writer, total int, description string) *Bar {
	now := time.Now()
	return &Bar{
		total:       total,
		startTime:   now,
		output:      w,
		enabled:     IsTerminal(w),
		description: description,
		now:         time.Now,
	}
}

// SetEnabled forces rendering on or off.
func (p *Bar) SetEnabled(on bool) {
	p.mu.Lock()
	p.enabled = on
	p.mu.Unlock()
}

// Reset starts a new range with its own total and description.
func (p *Bar) Reset(total int, description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.current = 0
	p.failed = 0
	p.description = description
	p.startTime = p.now()
	p.lastUpdate = time.Time{}
}

// Entry records one CV read. Its signature matches cv.Scanner.OnEntry.
func (p *Bar) Entry(e cv.Entry, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = done
	p.total = total
	p.lastCV = e.CV
	if !e.OK {
		p.failed++
	}
	p.render()
}

func (p *Bar) render() {
	if !p.enabled {
		return
	}
	now := p.now()
	if now.Sub(p.lastUpdate) < renderInterval && p.current < p.total {
		return
	}
	p.lastUpdate = now
	fmt.Fprint(p.output, p.line(now))
}

func (p *Bar) line(now time.Time) string {
	var percent float64
	if p.total > 0 {
		percent = float64(p.current) / float64(p.total) * 100
	}
	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat("-", barWidth-filled-1)
	}

	elapsed := now.Sub(p.startTime)
	var b strings.Builder
	b.WriteString("\r")
	if p.description != "" {
		b.WriteString(p.description + " ")
	}
	fmt.Fprintf(&b, "[%s] %d/%d (%.1f%%) CV %d", bar, p.current, p.total, percent, p.lastCV)
	if p.failed > 0 {
		fmt.Fprintf(&b, " | failed %d", p.failed)
	}
	fmt.Fprintf(&b, " | Elapsed: %s", formatDuration(elapsed))
	if p.current > 0 && p.current < p.total && elapsed > 0 {
		rate := float64(p.current) / elapsed.Seconds()
		eta := time.Duration(float64(p.total-p.current)/rate) * time.Second
		if eta > 0 {
			fmt.Fprintf(&b, " | ETA: %s", formatDuration(eta))
		}
	}
	return b.String()
}

// Finish draws the final state and ends the line.
func (p *Bar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.current = p.total
	p.lastUpdate = time.Time{}
	p.render()
	fmt.Fprint(p.output, "\n")
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// Counter is a suite observer that shows a running case count in place of
// per-case lines.
type Counter struct {
	mu         sync.Mutex
	output     io.Writer
	tally      suite.Tally
	current    string
	lastUpdate time.Time
	interval   time.Duration
	now        func() time.Time
}

// NewCounter creates a counter writing to w at most once per interval.
func NewCounter(w io.Writer, interval time.Duration) *Counter {
	return &Counter{
		output:   w,
		interval: interval,
		now:      time.Now,
	}
}

func (c *Counter) GroupStarted(suite.Group) {}

func (c *Counter) PassStarted(g suite.Group, v session.Verbosity) {
	c.mu.Lock()
	c.current = fmt.Sprintf("%s (%s)", g.Name, v)
	c.lastUpdate = time.Time{}
	c.mu.Unlock()
}

func (c *Counter) CaseDone(r suite.CaseResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tally.Add(r.Passed)
	now := c.now()
	if now.Sub(c.lastUpdate) < c.interval {
		return
	}
	c.lastUpdate = now
	fmt.Fprintf(c.output, "\r%d cases | %d failed | %s", c.tally.Total(), c.tally.Failed, c.current)
}

// Finish ends the line.
func (c *Counter) Finish() {
	fmt.Fprint(c.output, "\n")
}

package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tonylturner/dccverify/internal/cv"
	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/suite"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBar(total int, desc string) (*Bar, *bytes.Buffer, *clock) {
	var buf bytes.Buffer
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	pb := NewBar(&buf, total, desc)
	pb.now = clk.now
	pb.startTime = clk.t
	pb.SetEnabled(true)
	return pb, &buf, clk
}

func TestNewBarDisabledOffTerminal(t *testing.T) {
	var buf bytes.Buffer
	pb := NewBar(&buf, 10, "scan")
	if pb.enabled {
		t.Error("bar enabled on a non-terminal writer")
	}
	pb.Entry(cv.Entry{CV: 1, OK: true}, 1, 10)
	pb.Finish()
	if buf.Len() > 0 {
		t.Errorf("disabled bar wrote %q", buf.String())
	}
}

func TestBarRender(t *testing.T) {
	pb, buf, clk := newTestBar(10, "base")
	for i := 1; i <= 5; i++ {
		clk.advance(time.Second)
		pb.Entry(cv.Entry{CV: 256 + i, OK: i != 2}, i, 10)
	}
	lines := strings.Split(buf.String(), "\r")
	last := lines[len(lines)-1]
	for _, want := range []string{
		"base [====================>",
		"5/10 (50.0%) CV 261",
		"failed 1",
		"Elapsed: 5.0s",
		"ETA: 5.0s",
	} {
		if !strings.Contains(last, want) {
			t.Errorf("render %q missing %q", last, want)
		}
	}
}

func TestBarThrottle(t *testing.T) {
	pb, buf, clk := newTestBar(10, "")
	clk.advance(time.Second)
	pb.Entry(cv.Entry{CV: 1, OK: true}, 1, 10)
	first := buf.Len()
	clk.advance(10 * time.Millisecond)
	pb.Entry(cv.Entry{CV: 2, OK: true}, 2, 10)
	if buf.Len() != first {
		t.Error("second render inside the interval was not throttled")
	}
	pb.Entry(cv.Entry{CV: 10, OK: true}, 10, 10)
	if buf.Len() == first {
		t.Error("final entry was throttled")
	}
}

func TestBarFinishAndReset(t *testing.T) {
	pb, buf, _ := newTestBar(4, "x")
	pb.Finish()
	if out := buf.String(); !strings.HasSuffix(out, "\n") || !strings.Contains(out, "4/4 (100.0%)") {
		t.Errorf("Finish output = %q", out)
	}

	pb.Entry(cv.Entry{CV: 3}, 1, 4)
	pb.Reset(256, "default page")
	if pb.current != 0 || pb.failed != 0 || pb.total != 256 || pb.description != "default page" {
		t.Errorf("Reset left %+v", pb)
	}
}

func TestZeroTotal(t *testing.T) {
	pb, buf, _ := newTestBar(0, "")
	pb.Finish()
	if !strings.Contains(buf.String(), "0/0 (0.0%)") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{2500 * time.Millisecond, "2.5s"},
		{90 * time.Second, "1m30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestCounter(t *testing.T) {
	var buf bytes.Buffer
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCounter(&buf, time.Second)
	c.now = clk.now

	g := suite.Group{Name: "speed"}
	c.GroupStarted(g)
	c.PassStarted(g, session.Quiet)
	c.CaseDone(suite.CaseResult{Passed: true})
	c.CaseDone(suite.CaseResult{Passed: false})
	clk.advance(2 * time.Second)
	c.CaseDone(suite.CaseResult{Passed: true})
	c.Finish()

	out := buf.String()
	if strings.Count(out, "\r") != 2 {
		t.Errorf("renders = %d, want 2: %q", strings.Count(out, "\r"), out)
	}
	if !strings.Contains(out, "3 cases | 1 failed | speed (quiet)") {
		t.Errorf("output = %q", out)
	}
}

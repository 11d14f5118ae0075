package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/suite"
)

func TestMetricsSummary(t *testing.T) {
	sink := NewSink()
	sink.Record(Metric{Group: "cv", Verb: "C", Passed: true, RTTMs: 5, JitterMs: 1, Attempts: 1})
	sink.Record(Metric{Group: "cv", Verb: "C", Passed: true, RTTMs: 60, JitterMs: 55, Attempts: 1})
	sink.Record(Metric{Group: "track", Verb: "T", Passed: false, TimedOut: true, RTTMs: 5000, Attempts: 2})

	summary := sink.GetSummary()
	if summary.TotalExchanges != 3 {
		t.Fatalf("expected total 3, got %d", summary.TotalExchanges)
	}
	if summary.Passed != 2 || summary.Failed != 1 {
		t.Fatalf("unexpected pass/fail counts: %d/%d", summary.Passed, summary.Failed)
	}
	if summary.Timeouts != 1 || summary.Resyncs != 1 {
		t.Fatalf("timeouts=%d resyncs=%d", summary.Timeouts, summary.Resyncs)
	}
	if summary.MaxRTT != 60 {
		t.Fatalf("timed-out exchange counted in RTT: max=%v", summary.MaxRTT)
	}
	if summary.P50RTT == 0 || summary.P90RTT == 0 {
		t.Fatalf("expected RTT percentiles to be set")
	}
	if summary.RTTBuckets["lt_10ms"] != 1 || summary.RTTBuckets["50_100ms"] != 1 {
		t.Fatalf("buckets = %v", summary.RTTBuckets)
	}
	if st := summary.ByVerb["C"]; st == nil || st.Count != 2 || st.AvgRTT != 32.5 {
		t.Fatalf("per-verb C = %+v", st)
	}
	if st := summary.ByGroup["track"]; st == nil || st.Failed != 1 {
		t.Fatalf("per-group track = %+v", st)
	}

	// The returned summary is a copy.
	summary.ByVerb["C"].Count = 99
	if sink.GetSummary().ByVerb["C"].Count != 2 {
		t.Fatal("GetSummary exposed internal stats")
	}

	text := FormatSummary(sink.GetSummary())
	for _, want := range []string{"Total Exchanges: 3", "Timeouts: 1", "Per-Verb Statistics", "  C: 2 exchanges"} {
		if !strings.Contains(text, want) {
			t.Errorf("summary text missing %q:\n%s", want, text)
		}
	}
}

func TestVerbOf(t *testing.T) {
	tests := map[string]string{"c 8 ?": "C", "T ON": "T", "": "", "  L ?": "L"}
	for in, want := range tests {
		if got := VerbOf(in); got != want {
			t.Errorf("VerbOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "m.csv")
	jsonPath := filepath.Join(dir, "m.json")
	w, err := NewWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	in := []Metric{
		{Timestamp: base, Group: "cv", Pass: "verbose", Verb: "C", Command: "C 8 ?", Expected: "151", Response: "151 (0x97) in 45 ms", Passed: true, Attempts: 1, RTTMs: 45.5},
		{Timestamp: base.Add(time.Second), Group: "cv", Pass: "quiet", Verb: "C", Command: "C 8 ?", Expected: "151", Response: "", TimedOut: true, Attempts: 2, RTTMs: 5000},
	}
	for _, m := range in {
		if err := w.WriteMetric(m); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	got, first, last, err := ReadMetricsCSV(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || !first.Equal(base) || !last.Equal(base.Add(time.Second)) {
		t.Fatalf("read %d metrics, first=%v last=%v", len(got), first, last)
	}
	if got[0].Response != in[0].Response || got[0].RTTMs != 45.5 || !got[0].Passed {
		t.Errorf("row 1 = %+v", got[0])
	}
	if !got[1].TimedOut || got[1].Attempts != 2 || got[1].Pass != "quiet" {
		t.Errorf("row 2 = %+v", got[1])
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	js := string(data)
	if !strings.HasPrefix(js, "[\n") || !strings.HasSuffix(js, "\n]\n") || strings.Count(js, `"command"`) != 2 {
		t.Errorf("json output = %s", js)
	}
}

func TestParseMetricsCSVRequiresColumns(t *testing.T) {
	if _, _, _, err := ParseMetricsCSV(strings.NewReader("timestamp,group\n")); err == nil {
		t.Fatal("expected missing column error")
	}
	if _, _, _, err := ParseMetricsCSV(strings.NewReader(strings.Join(csvHeader, ",") + "\n")); err == nil {
		t.Fatal("expected no data rows error")
	}
}

func TestObserverComputesJitter(t *testing.T) {
	sink := NewSink()
	obs := NewObserver(sink, nil)
	g := suite.Group{Name: "speed"}
	obs.GroupStarted(g)
	obs.PassStarted(g, session.Verbose)
	for _, rtt := range []time.Duration{10 * time.Millisecond, 14 * time.Millisecond, 11 * time.Millisecond} {
		obs.CaseDone(suite.CaseResult{Group: "speed", Case: suite.Case{Command: "S ?", Expect: "0"}, Passed: true, Attempts: 1, RTT: rtt})
	}
	obs.PassStarted(g, session.Quiet)
	obs.CaseDone(suite.CaseResult{Group: "speed", Pass: session.Quiet, Case: suite.Case{Command: "S ?"}, Passed: true, Attempts: 1, RTT: 30 * time.Millisecond})

	ms := sink.GetMetrics()
	want := []float64{0, 4, 3, 0}
	for i, m := range ms {
		if m.JitterMs != want[i] {
			t.Errorf("metric %d jitter = %v, want %v", i, m.JitterMs, want[i])
		}
	}
	if ms[3].Pass != "quiet" || ms[0].Verb != "S" {
		t.Errorf("metric fields = %+v", ms[3])
	}
	if obs.Err() != nil {
		t.Error(obs.Err())
	}
}

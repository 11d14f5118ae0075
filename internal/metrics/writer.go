package metrics

// Metrics output (CSV/JSON) and summary formatting

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

var csvHeader = []string{
	"timestamp",
	"group",
	"pass",
	"verb",
	"command",
	"expected",
	"response",
	"passed",
	"timed_out",
	"attempts",
	"rtt_ms",
	"jitter_ms",
}

// Writer handles writing metrics to files
type Writer struct {
	csvFile   *os.File
	csvWriter *csv.Writer
	jsonFile  *os.File
	jsonCount int
}

// NewWriter creates a new metrics writer. Either path may be empty.
func NewWriter(csvPath, jsonPath string) (*Writer, error) {
	w := &Writer{}

	if csvPath != "" {
		file, err := os.Create(csvPath)
		if err != nil {
			return nil, fmt.Errorf("create CSV file: %w", err)
		}
		w.csvFile = file
		w.csvWriter = csv.NewWriter(file)
		if err := w.csvWriter.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("write CSV header: %w", err)
		}
		w.csvWriter.Flush()
	}

	if jsonPath != "" {
		file, err := os.Create(jsonPath)
		if err != nil {
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("create JSON file: %w", err)
		}
		w.jsonFile = file
		if _, err := file.WriteString("[\n"); err != nil {
			file.Close()
			if w.csvFile != nil {
				w.csvFile.Close()
			}
			return nil, fmt.Errorf("write JSON start: %w", err)
		}
	}

	return w, nil
}

// WriteMetric writes a single metric
func (w *Writer) WriteMetric(m Metric) error {
	if w.csvWriter != nil {
		record := []string{
			m.Timestamp.Format(time.RFC3339Nano),
			m.Group,
			m.Pass,
			m.Verb,
			m.Command,
			m.Expected,
			m.Response,
			strconv.FormatBool(m.Passed),
			strconv.FormatBool(m.TimedOut),
			strconv.Itoa(m.Attempts),
			formatMs(m.RTTMs),
			formatMs(m.JitterMs),
		}
		if err := w.csvWriter.Write(record); err != nil {
			return fmt.Errorf("write CSV record: %w", err)
		}
		w.csvWriter.Flush()
		if err := w.csvWriter.Error(); err != nil {
			return fmt.Errorf("flush CSV: %w", err)
		}
	}

	if w.jsonFile != nil {
		jsonData, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		if w.jsonCount > 0 {
			if _, err := w.jsonFile.WriteString(",\n"); err != nil {
				return fmt.Errorf("write JSON comma: %w", err)
			}
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, jsonData, "", "  "); err != nil {
			return fmt.Errorf("indent JSON: %w", err)
		}
		if _, err := w.jsonFile.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("write JSON: %w", err)
		}
		w.jsonCount++
	}

	return nil
}

// Close closes the writer and flushes all data
func (w *Writer) Close() error {
	var errs []error

	if w.csvWriter != nil {
		w.csvWriter.Flush()
	}
	if w.csvFile != nil {
		if err := w.csvFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if w.jsonFile != nil {
		if _, err := w.jsonFile.WriteString("\n]\n"); err != nil {
			errs = append(errs, err)
		}
		if err := w.jsonFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close writer: %v", errs)
	}

	return nil
}

// formatMs formats a duration in ms for CSV (empty string if 0)
func formatMs(ms float64) string {
	if ms == 0 {
		return ""
	}
	return fmt.Sprintf("%.3f", ms)
}

// FormatSummary formats a summary for human-readable output
func FormatSummary(summary *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Total Exchanges: %d\n", summary.TotalExchanges)
	if summary.TotalExchanges == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "Passed: %d (%.1f%%)\n",
		summary.Passed, float64(summary.Passed)/float64(summary.TotalExchanges)*100)
	fmt.Fprintf(&b, "Failed: %d (%.1f%%)\n",
		summary.Failed, float64(summary.Failed)/float64(summary.TotalExchanges)*100)
	if summary.Timeouts > 0 {
		fmt.Fprintf(&b, "Timeouts: %d\n", summary.Timeouts)
	}
	if summary.Resyncs > 0 {
		fmt.Fprintf(&b, "Resyncs: %d\n", summary.Resyncs)
	}

	if summary.rttCount > 0 || summary.MaxRTT > 0 {
		b.WriteString("\nRTT Statistics:\n")
		writeDistribution(&b, summary.MinRTT, summary.MaxRTT, summary.AvgRTT,
			[4]float64{summary.P50RTT, summary.P90RTT, summary.P95RTT, summary.P99RTT}, summary.RTTBuckets)
	}
	if summary.AvgJitter > 0 {
		b.WriteString("\nJitter Statistics:\n")
		writeDistribution(&b, summary.MinJitter, summary.MaxJitter, summary.AvgJitter,
			[4]float64{summary.P50Jitter, summary.P90Jitter, summary.P95Jitter, summary.P99Jitter}, summary.JitterBuckets)
	}

	writeStats(&b, "Per-Verb Statistics", summary.ByVerb)
	writeStats(&b, "Per-Group Statistics", summary.ByGroup)
	return b.String()
}

func writeDistribution(b *strings.Builder, lo, hi, avg float64, p [4]float64, buckets map[string]int) {
	fmt.Fprintf(b, "  Min: %.3f ms\n", lo)
	fmt.Fprintf(b, "  Max: %.3f ms\n", hi)
	fmt.Fprintf(b, "  Avg: %.3f ms\n", avg)
	if p[0] > 0 || p[3] > 0 {
		fmt.Fprintf(b, "  P50: %.3f ms\n", p[0])
		fmt.Fprintf(b, "  P90: %.3f ms\n", p[1])
		fmt.Fprintf(b, "  P95: %.3f ms\n", p[2])
		fmt.Fprintf(b, "  P99: %.3f ms\n", p[3])
	}
	if len(buckets) > 0 {
		b.WriteString("  Buckets:")
		for _, name := range Buckets {
			fmt.Fprintf(b, " %s=%d", name, buckets[name])
		}
		b.WriteString("\n")
	}
}

func writeStats(b *strings.Builder, title string, table map[string]*Stats) {
	if len(table) == 0 {
		return
	}
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, k := range keys {
		st := table[k]
		fmt.Fprintf(b, "  %s: %d exchanges (%d passed, %d failed)", k, st.Count, st.Passed, st.Failed)
		if st.rtts > 0 {
			fmt.Fprintf(b, " - RTT: min=%.3fms, max=%.3fms, avg=%.3fms", st.MinRTT, st.MaxRTT, st.AvgRTT)
		}
		b.WriteString("\n")
	}
}

package metrics

// Metrics collection for command station exchanges

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Metric represents a single evaluated exchange
type Metric struct {
	Timestamp time.Time `json:"timestamp"`
	Group     string    `json:"group"`
	Pass      string    `json:"pass"`
	Verb      string    `json:"verb"`
	Command   string    `json:"command"`
	Expected  string    `json:"expected"`
	Response  string    `json:"response"`
	Passed    bool      `json:"passed"`
	TimedOut  bool      `json:"timed_out"`
	Attempts  int       `json:"attempts"`
	RTTMs     float64   `json:"rtt_ms"`
	JitterMs  float64   `json:"jitter_ms"`
}

// VerbOf returns the upper-cased first field of a command line.
func VerbOf(command string) string {
	f := strings.Fields(command)
	if len(f) == 0 {
		return ""
	}
	return strings.ToUpper(f[0])
}

// Sink collects and aggregates metrics
type Sink struct {
	mu      sync.RWMutex
	metrics []Metric
	summary *Summary
}

func newSummary() *Summary {
	return &Summary{
		RTTBuckets:    make(map[string]int),
		JitterBuckets: make(map[string]int),
		ByVerb:        make(map[string]*Stats),
		ByGroup:       make(map[string]*Stats),
	}
}

// Summary contains aggregated statistics
type Summary struct {
	TotalExchanges int
	Passed         int
	Failed         int
	Timeouts       int
	Resyncs        int
	MinRTT         float64
	MaxRTT         float64
	AvgRTT         float64
	P50RTT         float64
	P90RTT         float64
	P95RTT         float64
	P99RTT         float64
	MinJitter      float64
	MaxJitter      float64
	AvgJitter      float64
	P50Jitter      float64
	P90Jitter      float64
	P95Jitter      float64
	P99Jitter      float64
	rttCount       int
	jitterCount    int
	RTTBuckets     map[string]int
	JitterBuckets  map[string]int
	ByVerb         map[string]*Stats
	ByGroup        map[string]*Stats
}

// Stats contains statistics for one verb or group
type Stats struct {
	Count  int
	Passed int
	Failed int
	MinRTT float64
	MaxRTT float64
	AvgRTT float64
	SumRTT float64
	rtts   int
}

func (st *Stats) add(m Metric) {
	st.Count++
	if m.Passed {
		st.Passed++
	} else {
		st.Failed++
	}
	if m.RTTMs <= 0 {
		return
	}
	if st.MinRTT == 0 || m.RTTMs < st.MinRTT {
		st.MinRTT = m.RTTMs
	}
	if m.RTTMs > st.MaxRTT {
		st.MaxRTT = m.RTTMs
	}
	st.rtts++
	st.SumRTT += m.RTTMs
	st.AvgRTT = st.SumRTT / float64(st.rtts)
}

// NewSink creates a new metrics sink
func NewSink() *Sink {
	return &Sink{
		metrics: make([]Metric, 0),
		summary: newSummary(),
	}
}

// Record records a new metric
func (s *Sink) Record(m Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = append(s.metrics, m)
	s.updateSummary(m)
}

// GetMetrics returns a copy of all recorded metrics
func (s *Sink) GetMetrics() []Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := make([]Metric, len(s.metrics))
	copy(metrics, s.metrics)
	return metrics
}

// GetSummary returns the aggregated summary
func (s *Sink) GetSummary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := *s.summary
	summary.RTTBuckets = make(map[string]int)
	summary.JitterBuckets = make(map[string]int)
	summary.ByVerb = make(map[string]*Stats, len(s.summary.ByVerb))
	summary.ByGroup = make(map[string]*Stats, len(s.summary.ByGroup))
	for k, v := range s.summary.ByVerb {
		c := *v
		summary.ByVerb[k] = &c
	}
	for k, v := range s.summary.ByGroup {
		c := *v
		summary.ByGroup[k] = &c
	}

	rttPercentiles, jitterPercentiles, rttBuckets, jitterBuckets := summarizeDistributions(s.metrics)
	summary.P50RTT = rttPercentiles[0]
	summary.P90RTT = rttPercentiles[1]
	summary.P95RTT = rttPercentiles[2]
	summary.P99RTT = rttPercentiles[3]
	summary.P50Jitter = jitterPercentiles[0]
	summary.P90Jitter = jitterPercentiles[1]
	summary.P95Jitter = jitterPercentiles[2]
	summary.P99Jitter = jitterPercentiles[3]
	for k, v := range rttBuckets {
		summary.RTTBuckets[k] = v
	}
	for k, v := range jitterBuckets {
		summary.JitterBuckets[k] = v
	}

	return &summary
}

// updateSummary updates the summary statistics with a new metric
func (s *Sink) updateSummary(m Metric) {
	s.summary.TotalExchanges++

	if m.Passed {
		s.summary.Passed++
	} else {
		s.summary.Failed++
	}
	if m.TimedOut {
		s.summary.Timeouts++
	}
	if m.Attempts > 1 {
		s.summary.Resyncs += m.Attempts - 1
	}

	if m.JitterMs > 0 {
		if s.summary.MinJitter == 0 || m.JitterMs < s.summary.MinJitter {
			s.summary.MinJitter = m.JitterMs
		}
		if m.JitterMs > s.summary.MaxJitter {
			s.summary.MaxJitter = m.JitterMs
		}
		s.summary.jitterCount++
		totalJitter := s.summary.AvgJitter * float64(s.summary.jitterCount-1)
		totalJitter += m.JitterMs
		s.summary.AvgJitter = totalJitter / float64(s.summary.jitterCount)
	}

	// Timed-out exchanges measure the timeout, not the station.
	if !m.TimedOut && m.RTTMs > 0 {
		if s.summary.MinRTT == 0 || m.RTTMs < s.summary.MinRTT {
			s.summary.MinRTT = m.RTTMs
		}
		if m.RTTMs > s.summary.MaxRTT {
			s.summary.MaxRTT = m.RTTMs
		}
		s.summary.rttCount++
		totalRTT := s.summary.AvgRTT * float64(s.summary.rttCount-1)
		totalRTT += m.RTTMs
		s.summary.AvgRTT = totalRTT / float64(s.summary.rttCount)
	}

	statsFor(s.summary.ByVerb, m.Verb).add(m)
	statsFor(s.summary.ByGroup, m.Group).add(m)
}

func statsFor(table map[string]*Stats, key string) *Stats {
	st, ok := table[key]
	if !ok {
		st = &Stats{}
		table[key] = st
	}
	return st
}

func summarizeDistributions(metrics []Metric) ([4]float64, [4]float64, map[string]int, map[string]int) {
	rtts := make([]float64, 0, len(metrics))
	jitters := make([]float64, 0, len(metrics))
	rttBuckets := make(map[string]int)
	jitterBuckets := make(map[string]int)

	for _, m := range metrics {
		if !m.TimedOut && m.RTTMs > 0 {
			rtts = append(rtts, m.RTTMs)
			incrementBucket(rttBuckets, m.RTTMs)
		}
		if m.JitterMs > 0 {
			jitters = append(jitters, m.JitterMs)
			incrementBucket(jitterBuckets, m.JitterMs)
		}
	}

	return computePercentiles(rtts), computePercentiles(jitters), rttBuckets, jitterBuckets
}

// Bucket names in ascending order.
var Buckets = []string{"lt_10ms", "10_50ms", "50_100ms", "100_500ms", "500_1000ms", "gt_1s"}

func incrementBucket(buckets map[string]int, value float64) {
	switch {
	case value < 10:
		buckets["lt_10ms"]++
	case value < 50:
		buckets["10_50ms"]++
	case value < 100:
		buckets["50_100ms"]++
	case value < 500:
		buckets["100_500ms"]++
	case value < 1000:
		buckets["500_1000ms"]++
	default:
		buckets["gt_1s"]++
	}
}

func computePercentiles(values []float64) [4]float64 {
	var result [4]float64
	if len(values) == 0 {
		return result
	}
	sort.Float64s(values)
	result[0] = percentile(values, 0.50)
	result[1] = percentile(values, 0.90)
	result[2] = percentile(values, 0.95)
	result[3] = percentile(values, 0.99)
	return result
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

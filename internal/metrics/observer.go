package metrics

import (
	"math"
	"sync"

	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/suite"
)

// FromCase converts a suite result into a metric.
func FromCase(cr suite.CaseResult) Metric {
	return Metric{
		Timestamp: cr.Started,
		Group:     cr.Group,
		Pass:      cr.Pass.String(),
		Verb:      VerbOf(cr.Case.Command),
		Command:   cr.Case.Command,
		Expected:  cr.Case.Expect,
		Response:  cr.Response,
		Passed:    cr.Passed,
		TimedOut:  cr.TimedOut,
		Attempts:  cr.Attempts,
		RTTMs:     float64(cr.RTT.Microseconds()) / 1000,
	}
}

// Observer feeds suite results into a Sink and, when set, a Writer. Jitter is
// the RTT change from the previous exchange of the same pass.
type Observer struct {
	mu      sync.Mutex
	sink    *Sink
	writer  *Writer
	lastRTT float64
	err     error
}

// NewObserver returns an observer recording into sink. w may be nil.
func NewObserver(sink *Sink, w *Writer) *Observer {
	return &Observer{sink: sink, writer: w}
}

func (o *Observer) GroupStarted(suite.Group) {}

func (o *Observer) PassStarted(suite.Group, session.Verbosity) {
	o.mu.Lock()
	o.lastRTT = 0
	o.mu.Unlock()
}

func (o *Observer) CaseDone(cr suite.CaseResult) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := FromCase(cr)
	if o.lastRTT > 0 && m.RTTMs > 0 && !m.TimedOut {
		m.JitterMs = math.Abs(m.RTTMs - o.lastRTT)
	}
	if !m.TimedOut {
		o.lastRTT = m.RTTMs
	}
	o.sink.Record(m)
	if o.writer != nil && o.err == nil {
		o.err = o.writer.WriteMetric(m)
	}
}

// Err returns the first write error.
func (o *Observer) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}

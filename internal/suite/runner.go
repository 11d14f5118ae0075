package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/tonylturner/dccverify/internal/cv"
	"github.com/tonylturner/dccverify/internal/logging"
	"github.com/tonylturner/dccverify/internal/protocol"
	"github.com/tonylturner/dccverify/internal/session"
)

// Driver is the part of a session the runner needs.
type Driver interface {
	Drain(ctx context.Context) error
	Check(ctx context.Context, cmd protocol.Command, exp session.Expectation) (session.Outcome, error)
	SetVerbosity(ctx context.Context, v session.Verbosity) (session.Outcome, error)
}

// Observer receives progress events while a run is in flight.
type Observer interface {
	GroupStarted(g Group)
	PassStarted(g Group, v session.Verbosity)
	CaseDone(r CaseResult)
}

// Tally counts case outcomes.
type Tally struct {
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Add counts one outcome.
func (t *Tally) Add(passed bool) {
	if passed {
		t.Passed++
	} else {
		t.Failed++
	}
}

// Merge adds o into t.
func (t *Tally) Merge(o Tally) {
	t.Passed += o.Passed
	t.Failed += o.Failed
}

// Total returns the number of counted outcomes.
func (t Tally) Total() int { return t.Passed + t.Failed }

func (t Tally) String() string {
	return fmt.Sprintf("Passed: %d, Failed: %d", t.Passed, t.Failed)
}

// CaseResult is one evaluated case. Index 0 is the verbosity switch that
// opens a pass; cases count from 1.
type CaseResult struct {
	Group    string            `json:"group"`
	Pass     session.Verbosity `json:"pass"`
	Index    int               `json:"index"`
	Switch   bool              `json:"switch,omitempty"`
	Case     Case              `json:"case"`
	Echo     string            `json:"echo,omitempty"`
	Response string            `json:"response"`
	Passed   bool              `json:"passed"`
	TimedOut bool              `json:"timed_out,omitempty"`
	Attempts int               `json:"attempts"`
	RTT      time.Duration     `json:"rtt_ns"`
	Started  time.Time         `json:"started"`
}

func caseResult(group string, pass session.Verbosity, index int, c Case, out session.Outcome) CaseResult {
	return CaseResult{
		Group:    group,
		Pass:     pass,
		Index:    index,
		Case:     c,
		Echo:     out.Echo,
		Response: out.Response,
		Passed:   out.Passed,
		TimedOut: out.TimedOut,
		Attempts: out.Attempts,
		RTT:      out.RTT,
		Started:  out.Started,
	}
}

// PassResult is one run of a group's cases in one verbosity.
type PassResult struct {
	Verbosity session.Verbosity `json:"verbosity"`
	Switch    CaseResult        `json:"switch"`
	Cases     []CaseResult      `json:"cases"`
	Tally     Tally             `json:"tally"`
	Railcom   *cv.RailcomBlock  `json:"railcom,omitempty"`
}

// GroupResult holds the verbose and the quiet pass of a group.
type GroupResult struct {
	Name   string       `json:"name"`
	Passes []PassResult `json:"passes"`
	Tally  Tally        `json:"tally"`
}

// Report is the outcome of a full run. Cleanup is the final switch back to
// verbose feedback; it is reported but not tallied.
type Report struct {
	Groups   []GroupResult `json:"groups"`
	Tally    Tally         `json:"tally"`
	Cleanup  *CaseResult   `json:"cleanup,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
}

// Runner executes groups through a Driver.
type Runner struct {
	d         Driver
	logger    *logging.Logger
	observers []Observer
	now       func() time.Time
}

// NewRunner returns a runner on d. A nil logger discards.
func NewRunner(d Driver, logger *logging.Logger, observers ...Observer) *Runner {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Runner{d: d, logger: logger, observers: observers, now: time.Now}
}

// Passes is the order every group runs in.
var Passes = []session.Verbosity{session.Verbose, session.Quiet}

// RunGroup drains the line, then runs g once per pass. A pass begins with a
// verbosity switch that is tallied like a case; when it fails the pass still
// runs. Errors are port failures or cancellation and end the group early.
func (r *Runner) RunGroup(ctx context.Context, g Group) (GroupResult, error) {
	res := GroupResult{Name: g.Name}
	for _, o := range r.observers {
		o.GroupStarted(g)
	}
	if err := r.d.Drain(ctx); err != nil {
		return res, err
	}
	for _, v := range Passes {
		pass, err := r.runPass(ctx, g, v)
		res.Passes = append(res.Passes, pass)
		res.Tally.Merge(pass.Tally)
		if err != nil {
			return res, err
		}
	}
	r.logger.Verbose("group %s: %s", g.Name, res.Tally)
	return res, nil
}

func (r *Runner) runPass(ctx context.Context, g Group, v session.Verbosity) (PassResult, error) {
	pass := PassResult{Verbosity: v}
	for _, o := range r.observers {
		o.PassStarted(g, v)
	}

	out, err := r.d.SetVerbosity(ctx, v)
	if err != nil {
		return pass, err
	}
	pass.Switch = caseResult(g.Name, v, 0, Case{Command: out.Command.Line(), Expect: protocol.TokenOK}, out)
	pass.Switch.Switch = true
	pass.Tally.Add(out.Passed)
	r.notify(pass.Switch)
	if !out.Passed {
		r.logger.Info("group %s: switch to %s failed, running the pass anyway", g.Name, v)
	}

	for i, c := range g.Cases {
		cmd, err := protocol.ParseCommand(c.Command)
		if err != nil {
			return pass, fmt.Errorf("group %s case %d: %w", g.Name, i+1, err)
		}
		out, err := r.d.Check(ctx, cmd, session.Expectation(c.Expect))
		if err != nil {
			return pass, err
		}
		cr := caseResult(g.Name, v, i+1, c, out)
		pass.Cases = append(pass.Cases, cr)
		pass.Tally.Add(cr.Passed)
		r.notify(cr)
	}

	if g.Railcom {
		block := DecodeRailcom(pass.Cases)
		pass.Railcom = &block
	}
	return pass, nil
}

func (r *Runner) notify(cr CaseResult) {
	for _, o := range r.observers {
		o.CaseDone(cr)
	}
}

// RunAll runs groups in order with a running tally, then switches the
// station back to verbose feedback.
func (r *Runner) RunAll(ctx context.Context, groups []Group) (Report, error) {
	rep := Report{Started: r.now()}

	for _, g := range groups {
		gr, err := r.RunGroup(ctx, g)
		rep.Groups = append(rep.Groups, gr)
		rep.Tally.Merge(gr.Tally)
		if err != nil {
			rep.Duration = r.now().Sub(rep.Started)
			return rep, fmt.Errorf("group %s: %w", g.Name, err)
		}
	}

	out, err := r.d.SetVerbosity(ctx, session.Verbose)
	if err != nil {
		rep.Duration = r.now().Sub(rep.Started)
		return rep, fmt.Errorf("cleanup: %w", err)
	}
	cleanup := caseResult("cleanup", session.Verbose, 0, Case{Command: out.Command.Line(), Expect: protocol.TokenOK}, out)
	cleanup.Switch = true
	rep.Cleanup = &cleanup
	if !out.Passed {
		r.logger.Error("cleanup: station did not return to verbose feedback (rsp=%q)", out.Response)
	}
	rep.Duration = r.now().Sub(rep.Started)
	return rep, nil
}

// DecodeRailcom assembles the RailCom block from passed reads of CV
// 257-272 among results.
func DecodeRailcom(results []CaseResult) cv.RailcomBlock {
	bytes := make(map[int]uint8, cv.RailcomBlockSize)
	for _, cr := range results {
		if !cr.Passed {
			continue
		}
		cmd, err := protocol.ParseCommand(cr.Case.Command)
		if err != nil || cmd.Kind != protocol.KindCV || !cmd.Query || cmd.Bit >= 0 {
			continue
		}
		off := cv.Offset(cmd.CV)
		if off < 0 || off >= cv.RailcomBlockSize {
			continue
		}
		if b, ok := protocol.ParseResponse(cr.Response).Byte(); ok {
			bytes[off] = b
		}
	}
	return cv.DecodeRailcom(bytes)
}

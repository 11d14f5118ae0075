package suite

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tonylturner/dccverify/internal/protocol"
	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/sim"
	"github.com/tonylturner/dccverify/internal/transport"
)

func newSession(t *testing.T) (*session.Session, *transport.HandlerPort) {
	t.Helper()
	opts := session.DefaultOptions()
	opts.Settle = 0
	opts.ReadTimeout = 0
	port := transport.NewHandlerPort("sim", sim.New(sim.DefaultConfig()))
	return session.New(port, opts), port
}

func group(t *testing.T, name string) Group {
	t.Helper()
	gs, err := Select(Catalog(), []string{name})
	if err != nil {
		t.Fatal(err)
	}
	return gs[0]
}

// recorder counts observer events.
type recorder struct {
	groups, passes int
	cases          []CaseResult
}

func (r *recorder) GroupStarted(Group)                   { r.groups++ }
func (r *recorder) PassStarted(Group, session.Verbosity) { r.passes++ }
func (r *recorder) CaseDone(cr CaseResult)               { r.cases = append(r.cases, cr) }

// quietRefused rejects the switch to quiet feedback without sending it.
type quietRefused struct {
	*session.Session
}

func (q quietRefused) SetVerbosity(ctx context.Context, v session.Verbosity) (session.Outcome, error) {
	if v == session.Quiet {
		cmd := protocol.VerbosityOff()
		return session.Outcome{
			Exchange: session.Exchange{Command: cmd, Echo: cmd.Line(), Response: protocol.TokenError},
			Expected: protocol.TokenOK,
			Attempts: 1,
		}, nil
	}
	return q.Session.SetVerbosity(ctx, v)
}

func TestCatalogPassesOnSimulator(t *testing.T) {
	sess, _ := newSession(t)
	rec := &recorder{}
	r := NewRunner(sess, nil, rec)

	groups := Catalog()
	rep, err := r.RunAll(context.Background(), groups)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	want := 0
	for _, g := range groups {
		want += 2 * (len(g.Cases) + 1)
	}
	if rep.Tally.Passed != want || rep.Tally.Failed != 0 {
		for _, cr := range rec.cases {
			if !cr.Passed {
				t.Logf("%s/%s: %s", cr.Group, cr.Pass, FormatResult(cr))
			}
		}
		t.Fatalf("tally = %s, want Passed: %d, Failed: 0", rep.Tally, want)
	}
	if rec.groups != len(groups) || rec.passes != 2*len(groups) || len(rec.cases) != want {
		t.Errorf("events groups=%d passes=%d cases=%d", rec.groups, rec.passes, len(rec.cases))
	}
	if rep.Cleanup == nil || !rep.Cleanup.Passed {
		t.Errorf("cleanup = %+v", rep.Cleanup)
	}
	if sess.Verbosity() != session.Verbose {
		t.Errorf("verbosity after run = %s", sess.Verbosity())
	}
}

func TestGarbledQuietSwitchKeepsPassInStep(t *testing.T) {
	cfg := sim.DefaultConfig()
	// V C ON plus the eight cv cases make V C OFF the tenth exchange.
	cfg.Faults.CorruptEchoEvery = 10
	st := sim.New(cfg)
	opts := session.DefaultOptions()
	opts.Settle = 0
	opts.ReadTimeout = 0
	sess := session.New(transport.NewHandlerPort("sim", st), opts)

	res, err := NewRunner(sess, nil).RunGroup(context.Background(), group(t, "cv"))
	if err != nil {
		t.Fatal(err)
	}
	verbose, quiet := res.Passes[0], res.Passes[1]
	if verbose.Tally != (Tally{Passed: 9}) {
		t.Errorf("verbose pass tally = %s", verbose.Tally)
	}
	if quiet.Switch.Passed {
		t.Error("garbled V C OFF reported as passed")
	}
	if quiet.Tally != (Tally{Passed: 8, Failed: 1}) {
		t.Errorf("quiet pass tally = %s, want only the switch failed", quiet.Tally)
	}
	if sess.Verbosity() != session.Quiet || st.Verbose() {
		t.Errorf("tracked=%s device verbose=%v", sess.Verbosity(), st.Verbose())
	}
}

func TestCVScenarioIdenticalInBothPasses(t *testing.T) {
	sess, _ := newSession(t)
	res, err := NewRunner(sess, nil).RunGroup(context.Background(), group(t, "cv"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Passes) != 2 {
		t.Fatalf("passes = %d", len(res.Passes))
	}
	verbose, quiet := res.Passes[0], res.Passes[1]
	if verbose.Verbosity != session.Verbose || quiet.Verbosity != session.Quiet {
		t.Fatalf("pass order = %s, %s", verbose.Verbosity, quiet.Verbosity)
	}
	if verbose.Tally != quiet.Tally {
		t.Errorf("tallies differ: %s vs %s", verbose.Tally, quiet.Tally)
	}
	for i := range verbose.Cases {
		if verbose.Cases[i].Passed != quiet.Cases[i].Passed {
			t.Errorf("case %d (%s): verbose=%v quiet=%v", i+1, verbose.Cases[i].Case.Command,
				verbose.Cases[i].Passed, quiet.Cases[i].Passed)
		}
	}
	if got := quiet.Cases[4].Response; got != "151" {
		t.Errorf("quiet C 8 ? = %q, want 151", got)
	}
	if got := verbose.Cases[4].Response; !strings.HasPrefix(got, "151 ") {
		t.Errorf("verbose C 8 ? = %q", got)
	}
}

func TestFailedSwitchStillRunsPass(t *testing.T) {
	sess, _ := newSession(t)
	g := group(t, "track")
	res, err := NewRunner(quietRefused{sess}, nil).RunGroup(context.Background(), g)
	if err != nil {
		t.Fatal(err)
	}
	quiet := res.Passes[1]
	if quiet.Switch.Passed {
		t.Error("switch reported as passed")
	}
	if len(quiet.Cases) != len(g.Cases) {
		t.Errorf("quiet pass ran %d of %d cases", len(quiet.Cases), len(g.Cases))
	}
	if res.Tally.Failed != 1 {
		t.Errorf("failed = %d, want 1 (the switch)", res.Tally.Failed)
	}
}

func TestRailcomGroupDecodesBlock(t *testing.T) {
	sess, _ := newSession(t)
	res, err := NewRunner(sess, nil).RunGroup(context.Background(), group(t, "railcom"))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range res.Passes {
		if p.Railcom == nil {
			t.Fatalf("%s pass: no RailCom block", p.Verbosity)
		}
		if p.Railcom.ManufacturerID != 151 || p.Railcom.ProductID != 0x02000093 {
			t.Errorf("%s pass: block = %+v", p.Verbosity, *p.Railcom)
		}
		if !p.Railcom.IsComplete() {
			t.Errorf("%s pass: block incomplete", p.Verbosity)
		}
	}
}

func TestCleanupIsNotTallied(t *testing.T) {
	sess, _ := newSession(t)
	g := group(t, "speed")
	rep, err := NewRunner(sess, nil).RunAll(context.Background(), []Group{g})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := rep.Tally.Total(), 2*(len(g.Cases)+1); got != want {
		t.Errorf("total = %d, want %d", got, want)
	}
	if rep.Cleanup == nil || rep.Cleanup.Case.Command != "V C ON" {
		t.Errorf("cleanup = %+v", rep.Cleanup)
	}
}

func TestPortFailureEndsRun(t *testing.T) {
	sess, port := newSession(t)
	port.Close()
	_, err := NewRunner(sess, nil).RunAll(context.Background(), Catalog())
	if !errors.Is(err, transport.ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestSelect(t *testing.T) {
	all := Catalog()
	got, err := Select(all, []string{"speed", "track"})
	if err != nil {
		t.Fatal(err)
	}
	if names := Names(got); strings.Join(names, ",") != "speed,track" {
		t.Errorf("Select order = %v", names)
	}
	if got, _ := Select(all, nil); len(got) != len(all) {
		t.Errorf("empty selection = %d groups", len(got))
	}
	if _, err := Select(all, []string{"track", "bogus"}); err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("unknown group err = %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		groups  int
		wantErr bool
	}{
		{
			name:   "valid",
			yaml:   "groups:\n  - name: smoke\n    cases:\n      - {cmd: \"T ?\", expect: \"OFF\"}\n  - name: ids\n    railcom: true\n    cases:\n      - {cmd: \"C 257 ?\", expect: \"\"}\n",
			groups: 2,
		},
		{name: "duplicate", yaml: "groups:\n  - {name: a, cases: [{cmd: T}]}\n  - {name: a, cases: [{cmd: T}]}\n", wantErr: true},
		{name: "no cases", yaml: "groups:\n  - {name: a}\n", wantErr: true},
		{name: "no name", yaml: "groups:\n  - {cases: [{cmd: T}]}\n", wantErr: true},
		{name: "empty command", yaml: "groups:\n  - {name: a, cases: [{cmd: \"\"}]}\n", wantErr: true},
		{name: "bad yaml", yaml: "groups: [", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs, err := Parse([]byte(tt.yaml))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(gs) != tt.groups {
				t.Errorf("groups = %d, want %d", len(gs), tt.groups)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := Catalog()
	extra := []Group{
		{Name: "track", Cases: cases("T ?", "OFF")},
		{Name: "smoke", Cases: cases("S ?", "0")},
	}
	got := Merge(base, extra)
	if len(got) != len(base)+1 {
		t.Fatalf("len = %d", len(got))
	}
	if got[1].Name != "track" || len(got[1].Cases) != 1 {
		t.Errorf("track not replaced in place: %+v", got[1])
	}
	if got[len(got)-1].Name != "smoke" {
		t.Errorf("extra group not appended")
	}
	if len(base[1].Cases) == 1 {
		t.Error("Merge modified base")
	}
}

func TestFormatResult(t *testing.T) {
	pass := CaseResult{Case: Case{Command: "T ?", Expect: "OFF"}, Echo: "T ?", Response: "OFF", Passed: true}
	want := "T ?      -->  T ?      -->  OFF" + strings.Repeat(" ", 45) + " >>>>> PASS"
	if got := FormatResult(pass); got != want {
		t.Errorf("FormatResult =\n%q\nwant\n%q", got, want)
	}
	fail := pass
	fail.Passed = false
	fail.Response = "ON"
	if got := FormatResult(fail); !strings.HasSuffix(got, ">>>>> FAIL: expected 'OFF'") {
		t.Errorf("FormatResult = %q", got)
	}
}

func TestConsole(t *testing.T) {
	sess, _ := newSession(t)
	var buf bytes.Buffer
	con := NewConsole(&buf, func(line string, passed bool) string {
		if passed {
			return "+" + line
		}
		return "-" + line
	})
	rep, err := NewRunner(sess, nil, con).RunAll(context.Background(), []Group{group(t, "verbosity")})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"### verbosity", "--- verbosity (quiet)", "+V C OFF"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
	if n := strings.Count(out, "\n+"); n != rep.Tally.Passed {
		t.Errorf("console printed %d passing lines, report tallied %d", n, rep.Tally.Passed)
	}
}

func TestDecodeRailcomIgnoresFailedAndForeignCases(t *testing.T) {
	results := []CaseResult{
		{Case: Case{Command: "C 257 ?"}, Response: "0", Passed: true},
		{Case: Case{Command: "C 260 ?"}, Response: "151 (0x97) in 45 ms", Passed: true},
		{Case: Case{Command: "C 261 ?"}, Response: "ERROR", Passed: false},
		{Case: Case{Command: "C 8 ?"}, Response: "99", Passed: true},
		{Case: Case{Command: "C 262 3 ?"}, Response: "1", Passed: true},
	}
	block := DecodeRailcom(results)
	id, complete := block.Get(0)
	if id != 151 {
		t.Errorf("ManufacturerID = %d, want 151", id)
	}
	if complete {
		t.Error("manufacturer id reported complete with offsets 1 and 2 missing")
	}
	if _, complete := block.Get(1); complete {
		t.Error("product id reported complete")
	}
}

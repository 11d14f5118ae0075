package session

import (
	"context"
	"strings"
	"time"

	"github.com/tonylturner/dccverify/internal/protocol"
)

// Expectation is the response a case expects. Verbose mode compares it as a
// prefix, quiet mode exactly. The empty expectation accepts any response.
type Expectation string

// Any accepts whatever the station answers.
const Any Expectation = ""

// Match reports whether ex satisfies exp. In verbose mode the echo must equal
// the command line first; if it does not, the response is not looked at.
func Match(ex Exchange, exp Expectation) bool {
	if ex.Verbosity == Verbose && ex.Echo != ex.Command.Line() {
		return false
	}
	if exp == Any {
		return true
	}
	if ex.Verbosity == Verbose {
		return strings.HasPrefix(ex.Response, string(exp))
	}
	return ex.Response == string(exp)
}

// EchoOK reports whether the exchange passed its echo check. Quiet exchanges
// have no echo and always pass.
func (ex Exchange) EchoOK() bool {
	return ex.Verbosity == Quiet || ex.Echo == ex.Command.Line()
}

// Desynchronized reports whether the exchange has the wrong shape: a broken
// echo or no response at all.
func (ex Exchange) Desynchronized() bool {
	return !ex.EchoOK() || ex.TimedOut || ex.Response == ""
}

// Outcome is an evaluated exchange.
type Outcome struct {
	Exchange
	Expected Expectation
	Passed   bool
	Attempts int
	Duration time.Duration
}

// Check runs cmd and evaluates it against exp. An exchange that fails and is
// desynchronized is drained and retried up to ResyncRetries times; a plain
// wrong answer is recorded as is.
func (s *Session) Check(ctx context.Context, cmd protocol.Command, exp Expectation) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check(ctx, cmd, exp)
}

func (s *Session) check(ctx context.Context, cmd protocol.Command, exp Expectation) (Outcome, error) {
	return s.checkRetrying(ctx, cmd, exp, s.opts.ResyncRetries)
}

func (s *Session) checkRetrying(ctx context.Context, cmd protocol.Command, exp Expectation, retries int) (Outcome, error) {
	start := s.now()
	for attempt := 1; ; attempt++ {
		ex, err := s.execute(ctx, cmd)
		if err != nil {
			return Outcome{Exchange: ex, Expected: exp, Attempts: attempt}, err
		}
		out := Outcome{
			Exchange: ex,
			Expected: exp,
			Passed:   Match(ex, exp),
			Attempts: attempt,
			Duration: s.now().Sub(start),
		}
		if out.Passed || !ex.Desynchronized() || attempt > retries {
			s.logger.LogExchange(cmd.Line(), ex.Echo, ex.Response, string(exp), out.Passed,
				float64(ex.RTT.Microseconds())/1000, attempt)
			return out, nil
		}
		s.logger.Verbose("resync %q: echo=%q rsp=%q timed_out=%v", cmd.Line(), ex.Echo, ex.Response, ex.TimedOut)
	}
}

// SetVerbosity switches the station's command feedback with V C ON/OFF and
// expects OK. The tracked mode changes when the switch succeeds. A switch
// whose exchange came back garbled is not replayed: the station may already
// have switched, so its mode is asked for with V C ? instead.
func (s *Session) SetVerbosity(ctx context.Context, v Verbosity) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := protocol.VerbosityOn()
	if v == Quiet {
		cmd = protocol.VerbosityOff()
	}
	out, err := s.checkRetrying(ctx, cmd, protocol.TokenOK, 0)
	if err != nil {
		return out, err
	}
	if out.Passed {
		s.verbosity = v
		return out, nil
	}
	if out.Desynchronized() {
		if _, err := s.probe(ctx); err != nil {
			return out, err
		}
	}
	s.logger.Info("verbosity switch to %s failed (rsp=%q); tracking %s", v, out.Response, s.verbosity)
	return out, nil
}

// Probe asks the station for its command feedback setting with V C ? and
// adopts the answer. An echoed query means verbose; a bare OFF means quiet.
func (s *Session) Probe(ctx context.Context) (Verbosity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probe(ctx)
}

func (s *Session) probe(ctx context.Context) (Verbosity, error) {
	s.transition(StateIdle)
	if err := s.drain(ctx); err != nil {
		return s.verbosity, err
	}
	cmd, _ := protocol.NewVerbosityCommand(protocol.TargetCommand, protocol.StateQuery)
	s.transition(StateSending)
	if _, err := s.port.Write([]byte(cmd.FormatLine())); err != nil {
		return s.verbosity, err
	}
	s.transition(StateResponsePending)
	first, timedOut, err := s.readLine(ctx)
	if err != nil {
		return s.verbosity, err
	}
	switch {
	case timedOut:
		s.logger.Info("verbosity probe on %s got no answer", s.port)
	case first == cmd.Line():
		if _, _, err := s.readLine(ctx); err != nil {
			return s.verbosity, err
		}
		s.verbosity = Verbose
	case first == protocol.TokenOff:
		s.verbosity = Quiet
	default:
		s.logger.Info("verbosity probe on %s got unexpected %q", s.port, first)
	}
	s.transition(StateEvaluated)
	return s.verbosity, nil
}

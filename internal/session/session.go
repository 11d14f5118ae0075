// Package session runs command/response exchanges against a command station
// over a transport.Port and judges them against expectations.
//
// A Session tracks the station's command verbosity because it decides the
// shape of every exchange: in verbose mode the station echoes each line before
// answering and may annotate its answer, in quiet mode it answers with the
// bare token. All exchanges on one Session are serialized.
package session

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tonylturner/dccverify/internal/logging"
	"github.com/tonylturner/dccverify/internal/protocol"
	"github.com/tonylturner/dccverify/internal/transport"
)

// Verbosity is the station's command feedback mode.
type Verbosity int

const (
	Verbose Verbosity = iota
	Quiet
)

func (v Verbosity) String() string {
	if v == Quiet {
		return "quiet"
	}
	return "verbose"
}

// MarshalText renders the mode as "verbose" or "quiet".
func (v Verbosity) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// State is the position of the current exchange.
type State int

const (
	StateIdle State = iota
	StateSending
	StateEchoPending
	StateResponsePending
	StateEvaluated
)

func (s State) String() string {
	switch s {
	case StateSending:
		return "sending"
	case StateEchoPending:
		return "echo-pending"
	case StateResponsePending:
		return "response-pending"
	case StateEvaluated:
		return "evaluated"
	default:
		return "idle"
	}
}

// Options configures a Session.
type Options struct {
	ReadTimeout    time.Duration // Line read timeout
	Settle         time.Duration // Quiet interval that ends a drain
	MaxDrainRounds int           // Bound on drain iterations for a chatty device
	ResyncRetries  int           // Extra attempts after a desynchronized exchange
	Verbosity      Verbosity     // Mode the station is assumed to be in
	Logger         *logging.Logger
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		ReadTimeout:    5 * time.Second,
		Settle:         100 * time.Millisecond,
		MaxDrainRounds: 50,
		ResyncRetries:  1,
		Verbosity:      Verbose,
	}
}

// Exchange is the raw record of one command sent and the lines read back.
type Exchange struct {
	Command   protocol.Command
	Echo      string
	Response  string
	Verbosity Verbosity
	TimedOut  bool
	Started   time.Time
	RTT       time.Duration
}

// Session is a line-oriented conversation with one command station.
type Session struct {
	mu        sync.Mutex
	port      transport.Port
	opts      Options
	logger    *logging.Logger
	verbosity Verbosity
	state     State
	rbuf      []byte

	sleep   func(time.Duration)
	now     func() time.Time
	onState func(State)
}

// New returns a session on port. The port's read timeout is set from opts.
func New(port transport.Port, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	if opts.MaxDrainRounds <= 0 {
		opts.MaxDrainRounds = DefaultOptions().MaxDrainRounds
	}
	if opts.ReadTimeout > 0 {
		if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
			logger.Error("set read timeout on %s: %v", port, err)
		}
	}
	return &Session{
		port:      port,
		opts:      opts,
		logger:    logger,
		verbosity: opts.Verbosity,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Verbosity returns the tracked station verbosity.
func (s *Session) Verbosity() Verbosity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verbosity
}

// State returns the state of the most recent exchange.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Port returns the underlying port.
func (s *Session) Port() transport.Port {
	return s.port
}

// Drain discards pending input until the line has been quiet for one settle
// interval.
func (s *Session) Drain(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drain(ctx)
}

func (s *Session) drain(ctx context.Context) error {
	if len(s.rbuf) > 0 {
		s.logger.LogHex("drained", s.rbuf)
		s.rbuf = s.rbuf[:0]
	}
	s.pause()
	for round := 0; round < s.opts.MaxDrainRounds; round++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.port.Buffered()
		if err != nil {
			return fmt.Errorf("drain: %w", err)
		}
		if n == 0 {
			return nil
		}
		buf := make([]byte, n)
		got, err := s.port.Read(buf)
		if err != nil {
			return fmt.Errorf("drain: %w", err)
		}
		s.logger.LogHex("drained", buf[:got])
		s.pause()
	}
	s.logger.Verbose("drain on %s stopped after %d rounds with input still arriving", s.port, s.opts.MaxDrainRounds)
	return nil
}

func (s *Session) pause() {
	if s.opts.Settle > 0 {
		s.sleep(s.opts.Settle)
	}
}

func (s *Session) transition(st State) {
	s.state = st
	s.logger.Debug("session %s: %s", s.port, st)
	if s.onState != nil {
		s.onState(st)
	}
}

// Execute drains, sends cmd, and reads the echo (verbose mode only) and the
// response. Protocol content never produces an error: a line that does not
// arrive in time reads as "" with TimedOut set. Errors mean the port failed
// or ctx was cancelled.
func (s *Session) Execute(ctx context.Context, cmd protocol.Command) (Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.execute(ctx, cmd)
}

func (s *Session) execute(ctx context.Context, cmd protocol.Command) (Exchange, error) {
	s.transition(StateIdle)
	if err := s.drain(ctx); err != nil {
		return Exchange{}, err
	}

	ex := Exchange{Command: cmd, Verbosity: s.verbosity, Started: s.now()}
	s.transition(StateSending)
	if _, err := s.port.Write([]byte(cmd.FormatLine())); err != nil {
		return ex, fmt.Errorf("write %q: %w", cmd.Line(), err)
	}

	if ex.Verbosity == Verbose {
		s.transition(StateEchoPending)
		echo, timedOut, err := s.readLine(ctx)
		if err != nil {
			return ex, err
		}
		ex.Echo = echo
		ex.TimedOut = timedOut
	}

	s.transition(StateResponsePending)
	rsp, timedOut, err := s.readLine(ctx)
	if err != nil {
		return ex, err
	}
	ex.Response = rsp
	ex.TimedOut = ex.TimedOut || timedOut
	ex.RTT = s.now().Sub(ex.Started)
	s.transition(StateEvaluated)
	return ex, nil
}

// readLine returns the next LF-terminated line with trailing CR/LF removed.
// A line that does not complete within the read timeout yields "" and true.
func (s *Session) readLine(ctx context.Context) (string, bool, error) {
	var deadline time.Time
	if s.opts.ReadTimeout > 0 {
		deadline = s.now().Add(s.opts.ReadTimeout)
	}
	buf := make([]byte, 256)
	for {
		if i := bytes.IndexByte(s.rbuf, '\n'); i >= 0 {
			line := strings.TrimRight(string(s.rbuf[:i]), "\r\n")
			s.rbuf = s.rbuf[i+1:]
			return line, false, nil
		}
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		if !deadline.IsZero() && !s.now().Before(deadline) {
			return s.timeout()
		}
		n, err := s.port.Read(buf)
		if err != nil {
			return "", false, fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			return s.timeout()
		}
		s.rbuf = append(s.rbuf, buf[:n]...)
	}
}

func (s *Session) timeout() (string, bool, error) {
	if len(s.rbuf) > 0 {
		s.logger.LogHex("partial line", s.rbuf)
		s.rbuf = s.rbuf[:0]
	}
	s.logger.Debug("session %s: read timed out", s.port)
	return "", true, nil
}

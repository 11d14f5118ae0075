// Package sim emulates a DCC command station's serial console, including one
// decoder on the programming track, so the harness can run without hardware.
package sim

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/tonylturner/dccverify/internal/protocol"
)

const eol = "\r\n"

type throttle struct {
	address   int
	speed     int
	functions uint32
}

// Station is an emulated command station. It is safe for concurrent use.
type Station struct {
	mu  sync.Mutex
	cfg Config

	verbose     bool
	showDCC     bool
	showRailcom bool
	showSpeed   bool
	trackOn     bool

	throttles []*throttle
	current   *throttle
	decoder   *decoder

	exchanges int
}

// New returns a powered-up station: verbose, track off, one throttle at the
// factory address.
func New(cfg Config) *Station {
	s := &Station{
		cfg:     cfg,
		verbose: true,
		decoder: newDecoder(cfg.Railcom),
	}
	s.current = &throttle{address: factoryAddress}
	s.throttles = []*throttle{s.current}
	return s
}

// Banner returns the power-up output when the banner fault is enabled.
func (s *Station) Banner() string {
	if !s.cfg.Faults.Banner {
		return ""
	}
	var b strings.Builder
	b.WriteString(eol + "dcc_cmd" + eol + eol + eol)
	writeHelp(&b)
	b.WriteString(eol)
	return b.String()
}

// HandleLine processes one received line and returns everything the station
// prints in reply.
func (s *Station) HandleLine(line string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	argv := strings.Fields(line)
	if len(argv) == 0 {
		return ""
	}
	s.exchanges++
	n := s.exchanges
	f := s.cfg.Faults

	var out strings.Builder
	if s.verbose {
		echo := line
		if every(f.CorruptEchoEvery, n) {
			echo = corrupt(echo)
		}
		out.WriteString(echo + eol)
	}

	// The verbosity flag in force when the command arrived decides whether
	// the invalid-command help is printed.
	verbose := s.verbose
	rsp, ok := s.dispatch(argv)
	if !ok {
		rsp = protocol.TokenError
		if verbose {
			var b strings.Builder
			b.WriteString(protocol.TokenError + ": invalid command: " + strings.Join(argv, " ") + eol)
			writeHelp(&b)
			rsp = b.String()
		}
	}
	if !every(f.DropResponseEvery, n) {
		out.WriteString(rsp + eol)
	}
	if every(f.StrayEvery, n) {
		out.WriteString("RC: junk 0x3f" + eol)
	}
	return out.String()
}

// Verbose reports the command feedback setting.
func (s *Station) Verbose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verbose
}

// TrackOn reports track power.
func (s *Station) TrackOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trackOn
}

// CV returns the decoder's value for cv under the current page.
func (s *Station) CV(cv int) uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoder.read(cv)
}

// Exchanges returns the number of non-blank lines handled.
func (s *Station) Exchanges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exchanges
}

func every(n, i int) bool {
	return n > 0 && i%n == 0
}

func corrupt(s string) string {
	if s == "" {
		return "?"
	}
	b := []byte(s)
	b[len(b)-1] ^= 0x20
	return string(b)
}

func (s *Station) dispatch(argv []string) (string, bool) {
	switch strings.ToUpper(argv[0]) {
	case "L":
		return s.loco(argv)
	case "S":
		return s.speed(argv)
	case "F":
		return s.function(argv)
	case "T":
		return s.track(argv)
	case "C":
		return s.cv(argv)
	case "V":
		return s.verbosity(argv)
	case "A":
		return s.address(argv)
	}
	return "", false
}

func (s *Station) loco(argv []string) (string, bool) {
	switch len(argv) {
	case 2:
		if argv[1] == protocol.TokenQuery {
			return strconv.Itoa(s.current.address), true
		}
		a, ok := intIn(argv[1], protocol.AddressMin, protocol.AddressMax)
		if !ok {
			return "", false
		}
		if t := s.findThrottle(a); t != nil {
			s.current = t
		} else {
			s.current.address = a
		}
		return protocol.TokenOK, true
	case 3:
		a, ok := intIn(argv[2], protocol.AddressMin, protocol.AddressMax)
		if !ok {
			return "", false
		}
		switch argv[1] {
		case "+":
			t := s.findThrottle(a)
			if t == nil {
				t = &throttle{address: a}
				s.throttles = append(s.throttles, t)
			}
			s.current = t
			return protocol.TokenOK, true
		case "-":
			s.deleteThrottle(a)
			return protocol.TokenOK, true
		}
	}
	return "", false
}

func (s *Station) findThrottle(a int) *throttle {
	for _, t := range s.throttles {
		if t.address == a {
			return t
		}
	}
	return nil
}

func (s *Station) deleteThrottle(a int) {
	kept := s.throttles[:0]
	for _, t := range s.throttles {
		if t.address != a {
			kept = append(kept, t)
		}
	}
	s.throttles = kept
	if len(s.throttles) == 0 {
		s.throttles = []*throttle{{address: factoryAddress}}
	}
	if s.findThrottle(s.current.address) != s.current {
		s.current = s.throttles[0]
	}
}

func (s *Station) speed(argv []string) (string, bool) {
	if len(argv) != 2 {
		return "", false
	}
	if argv[1] == protocol.TokenQuery {
		return strconv.Itoa(s.current.speed), true
	}
	v, ok := intIn(argv[1], protocol.SpeedMin, protocol.SpeedMax)
	if !ok {
		return "", false
	}
	s.current.speed = v
	return protocol.TokenOK, true
}

func (s *Station) function(argv []string) (string, bool) {
	switch len(argv) {
	case 2:
		if argv[1] != protocol.TokenQuery {
			return "", false
		}
		var b strings.Builder
		for i := protocol.FunctionMin; i <= protocol.FunctionMax; i++ {
			if s.current.functions&(1<<uint(i)) != 0 {
				fmt.Fprintf(&b, "%d ", i)
			}
		}
		b.WriteString(protocol.TokenOK)
		return b.String(), true
	case 3:
		fn, ok := intIn(argv[1], protocol.FunctionMin, protocol.FunctionMax)
		if !ok {
			return "", false
		}
		bit := uint32(1) << uint(fn)
		if argv[2] == protocol.TokenQuery {
			return onOff(s.current.functions&bit != 0), true
		}
		on, ok := parseOnOff(argv[2])
		if !ok {
			return "", false
		}
		if on {
			s.current.functions |= bit
		} else {
			s.current.functions &^= bit
		}
		return protocol.TokenOK, true
	}
	return "", false
}

func (s *Station) track(argv []string) (string, bool) {
	if len(argv) != 2 {
		return "", false
	}
	if argv[1] == protocol.TokenQuery {
		return onOff(s.trackOn), true
	}
	on, ok := parseOnOff(argv[1])
	if !ok {
		return "", false
	}
	s.trackOn = on
	return protocol.TokenOK, true
}

func (s *Station) verbosity(argv []string) (string, bool) {
	if len(argv) != 3 {
		return "", false
	}
	var flag *bool
	switch strings.ToUpper(argv[1]) {
	case "C":
		flag = &s.verbose
	case "D":
		flag = &s.showDCC
	case "R":
		flag = &s.showRailcom
	case "S":
		flag = &s.showSpeed
	default:
		return "", false
	}
	if argv[2] == protocol.TokenQuery {
		return onOff(*flag), true
	}
	on, ok := parseOnOff(argv[2])
	if !ok {
		return "", false
	}
	*flag = on
	return protocol.TokenOK, true
}

// cv handles C in both service mode (track off, programming track) and
// operations mode (track on, RailCom readback from the current loco).
func (s *Station) cv(argv []string) (string, bool) {
	if len(argv) != 3 && len(argv) != 4 {
		return "", false
	}
	cv, ok := intIn(argv[1], protocol.CVMin, protocol.CVMax)
	if !ok {
		return "", false
	}
	reachable := !s.trackOn || s.currentIsDecoder()

	if argv[len(argv)-1] == protocol.TokenQuery {
		if s.trackOn {
			if len(argv) != 3 {
				return "", false
			}
			if !reachable {
				return s.failed(), true
			}
			return s.value(s.decoder.read(cv), true), true
		}
		if len(argv) == 3 {
			return s.value(s.decoder.read(cv), true), true
		}
		bit, ok := intIn(argv[2], protocol.BitMin, protocol.BitMax)
		if !ok {
			return "", false
		}
		return s.value(s.decoder.readBit(cv, bit), false), true
	}

	if len(argv) == 3 {
		v, ok := intIn(argv[2], protocol.CVValueMin, protocol.CVValueMax)
		if !ok {
			return "", false
		}
		if reachable {
			s.decoder.write(cv, uint8(v))
		}
		return s.written(), true
	}

	bit, ok := intIn(argv[2], protocol.BitMin, protocol.BitMax)
	if !ok {
		return "", false
	}
	v, ok := intIn(argv[3], 0, 1)
	if !ok {
		return "", false
	}
	if reachable {
		s.decoder.writeBit(cv, bit, uint8(v))
	}
	return s.written(), true
}

func (s *Station) currentIsDecoder() bool {
	a, _ := s.decoder.address()
	return s.current.address == a
}

func (s *Station) address(argv []string) (string, bool) {
	if len(argv) != 2 || s.trackOn {
		return "", false
	}
	if argv[1] == protocol.TokenQuery {
		a, long := s.decoder.address()
		return strconv.Itoa(a) + s.addressNote(long), true
	}
	a, ok := intIn(argv[1], protocol.AddressMin, protocol.DecoderAddressMax)
	if !ok {
		return "", false
	}
	s.decoder.setAddress(a)
	return protocol.TokenOK + s.addressNote(a > protocol.AddressShortMax), true
}

func (s *Station) addressNote(long bool) string {
	if !s.verbose {
		return ""
	}
	if long {
		return " (long)"
	}
	return " (short)"
}

func (s *Station) value(v uint8, byteRead bool) string {
	out := strconv.Itoa(int(v))
	if s.verbose {
		if byteRead {
			out += fmt.Sprintf(" (0x%02x)", v)
		}
		out += fmt.Sprintf(" in %d ms", s.cfg.OpMillis)
	}
	return out
}

func (s *Station) written() string {
	if s.verbose && !s.trackOn {
		return fmt.Sprintf("%s in %d ms", protocol.TokenOK, s.cfg.OpMillis)
	}
	return protocol.TokenOK
}

func (s *Station) failed() string {
	if s.verbose {
		return fmt.Sprintf("%s in %d ms", protocol.TokenError, s.cfg.OpMillis)
	}
	return protocol.TokenError
}

func intIn(s string, lo, hi int) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

func parseOnOff(s string) (bool, bool) {
	switch strings.ToUpper(s) {
	case protocol.TokenOn:
		return true, true
	case protocol.TokenOff:
		return false, true
	}
	return false, false
}

func onOff(b bool) string {
	if b {
		return protocol.TokenOn
	}
	return protocol.TokenOff
}

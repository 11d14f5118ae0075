package cv

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonylturner/dccverify/internal/logging"
	"github.com/tonylturner/dccverify/internal/protocol"
	"github.com/tonylturner/dccverify/internal/session"
)

// ErrNotRailcomPage is returned when a RailCom block is asked of a scan that
// was not taken on the RailCom page.
var ErrNotRailcomPage = errors.New("scan was not taken on the RailCom page")

// Exchanger is the part of a session the scanner drives.
type Exchanger interface {
	Check(ctx context.Context, cmd protocol.Command, exp session.Expectation) (session.Outcome, error)
	SetVerbosity(ctx context.Context, v session.Verbosity) (session.Outcome, error)
}

// Entry is the result of reading one CV.
type Entry struct {
	CV         int    `json:"cv"`
	Offset     int    `json:"offset"`               // CV - 257 on the RailCom page, -1 otherwise
	Response   string `json:"response"`             // Full response line
	Value      string `json:"value"`                // Leading token
	Annotation string `json:"annotation,omitempty"` // Parenthetical, e.g. "0x97"
	OK         bool   `json:"ok"`
}

// Byte returns the value as a CV byte.
func (e Entry) Byte() (uint8, bool) {
	if !e.OK {
		return 0, false
	}
	return protocol.ParseResponse(e.Response).Byte()
}

// Scan is an ordered set of CV reads. Page is nil for a scan that did not
// select a page first.
type Scan struct {
	Page       *PageSelector     `json:"page,omitempty"`
	Entries    []Entry           `json:"entries"`
	Unreliable bool              `json:"unreliable,omitempty"`
	Selects    []session.Outcome `json:"-"`
}

// Get returns the entry for cv.
func (s Scan) Get(cv int) (Entry, bool) {
	for _, e := range s.Entries {
		if e.CV == cv {
			return e, true
		}
	}
	return Entry{}, false
}

// Failed returns the number of entries that did not read.
func (s Scan) Failed() int {
	n := 0
	for _, e := range s.Entries {
		if !e.OK {
			n++
		}
	}
	return n
}

// Railcom decodes offsets 0-15 of a RailCom page scan.
func (s Scan) Railcom() (RailcomBlock, error) {
	if s.Page == nil || *s.Page != RailcomPage {
		return RailcomBlock{}, ErrNotRailcomPage
	}
	bytes := make(map[int]uint8, RailcomBlockSize)
	for _, e := range s.Entries {
		if e.Offset < 0 || e.Offset >= RailcomBlockSize {
			continue
		}
		if b, ok := e.Byte(); ok {
			bytes[e.Offset] = b
		}
	}
	return DecodeRailcom(bytes), nil
}

// Scanner reads CVs through an Exchanger. It keeps no state between scans.
type Scanner struct {
	ex       Exchanger
	logger   *logging.Logger
	progress func(e Entry, done, total int)
}

// NewScanner returns a scanner on ex. A nil logger discards.
func NewScanner(ex Exchanger, logger *logging.Logger) *Scanner {
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &Scanner{ex: ex, logger: logger}
}

// OnEntry registers a callback run after every CV read.
func (s *Scanner) OnEntry(fn func(e Entry, done, total int)) {
	s.progress = fn
}

// SelectPage writes CV31 and CV32, each expecting OK. It reports whether both
// writes were accepted; the outcomes are returned for the caller to record.
func (s *Scanner) SelectPage(ctx context.Context, sel PageSelector) (bool, []session.Outcome, error) {
	writes := []struct {
		cv    int
		value uint8
	}{
		{protocol.CVPageSelectLow, sel.Low},
		{protocol.CVPageSelectHigh, sel.High},
	}
	ok := true
	outs := make([]session.Outcome, 0, len(writes))
	for _, w := range writes {
		cmd, err := protocol.NewCVWriteCommand(w.cv, int(w.value))
		if err != nil {
			return false, outs, err
		}
		out, err := s.ex.Check(ctx, cmd, protocol.TokenOK)
		outs = append(outs, out)
		if err != nil {
			return false, outs, err
		}
		if !out.Passed {
			s.logger.Info("page select %s: %s answered %q", sel, cmd.Line(), out.Response)
			ok = false
		}
	}
	return ok, outs, nil
}

// ScanRange reads every CV from lo to hi inclusive. Offsets are assigned when
// page is the RailCom page.
func (s *Scanner) ScanRange(ctx context.Context, lo, hi int, page *PageSelector) (Scan, error) {
	if lo < protocol.CVMin || hi > protocol.CVMax || lo > hi {
		return Scan{}, fmt.Errorf("invalid CV range %d-%d", lo, hi)
	}
	scan := Scan{Page: page, Entries: make([]Entry, 0, hi-lo+1)}
	railcom := page != nil && *page == RailcomPage
	total := hi - lo + 1
	for n := lo; n <= hi; n++ {
		cmd, err := protocol.NewCVReadCommand(n)
		if err != nil {
			return scan, err
		}
		out, err := s.ex.Check(ctx, cmd, session.Any)
		if err != nil {
			return scan, err
		}
		e := entryFrom(n, out)
		e.Offset = -1
		if railcom && n >= ExtendedFirst {
			e.Offset = Offset(n)
		}
		scan.Entries = append(scan.Entries, e)
		if s.progress != nil {
			s.progress(e, len(scan.Entries), total)
		}
	}
	return scan, nil
}

func entryFrom(cv int, out session.Outcome) Entry {
	r := protocol.ParseResponse(out.Response)
	e := Entry{
		CV:         cv,
		Response:   out.Response,
		Value:      r.Token,
		Annotation: r.Decoded,
	}
	if _, ok := r.Byte(); ok && out.Passed && !out.TimedOut {
		e.OK = true
	}
	return e
}

// ScanPage selects sel and reads lo..hi. A rejected select does not stop the
// scan; the result is marked Unreliable.
func (s *Scanner) ScanPage(ctx context.Context, sel PageSelector, lo, hi int) (Scan, error) {
	ok, outs, err := s.SelectPage(ctx, sel)
	if err != nil {
		return Scan{Page: &sel, Selects: outs, Unreliable: true}, err
	}
	scan, err := s.ScanRange(ctx, lo, hi, &sel)
	scan.Selects = outs
	scan.Unreliable = !ok
	return scan, err
}

// ReadRailcom selects the RailCom page and decodes CV 257-272.
func (s *Scanner) ReadRailcom(ctx context.Context) (RailcomBlock, Scan, error) {
	scan, err := s.ScanPage(ctx, RailcomPage, ExtendedFirst, ExtendedFirst+RailcomBlockSize-1)
	if err != nil {
		return RailcomBlock{}, scan, err
	}
	block, err := scan.Railcom()
	return block, scan, err
}

// DumpResult holds the three scans of a full decoder dump.
type DumpResult struct {
	Setup   []session.Outcome `json:"-"`
	Restore []session.Outcome `json:"-"`
	Base    Scan              `json:"base"`
	Default Scan              `json:"default_page"`
	Railcom Scan              `json:"railcom_page"`
	Block   RailcomBlock      `json:"railcom"`
}

// Restored reports whether the default page selectors were written back.
func (d DumpResult) Restored() bool {
	if len(d.Restore) == 0 {
		return false
	}
	for _, o := range d.Restore {
		if !o.Passed {
			return false
		}
	}
	return true
}

// SetupFailed reports whether any of the preparatory commands was rejected.
func (d DumpResult) SetupFailed() bool {
	for _, o := range d.Setup {
		if !o.Passed {
			return true
		}
	}
	return false
}

// Dump powers the track, turns verbose feedback on, resets the decoder and
// reads CV 1-256, then CV 257-512 on the default page and on the RailCom page.
// The default page is selected again before returning.
func (s *Scanner) Dump(ctx context.Context) (DumpResult, error) {
	var res DumpResult

	out, err := s.ex.Check(ctx, protocol.NewTrackCommand(protocol.StateOn), protocol.TokenOK)
	res.Setup = append(res.Setup, out)
	if err != nil {
		return res, err
	}
	out, err = s.ex.SetVerbosity(ctx, session.Verbose)
	res.Setup = append(res.Setup, out)
	if err != nil {
		return res, err
	}
	reset, _ := protocol.NewCVWriteCommand(protocol.CVManufacturerID, protocol.CVResetValue)
	out, err = s.ex.Check(ctx, reset, protocol.TokenOK)
	res.Setup = append(res.Setup, out)
	if err != nil {
		return res, err
	}

	if res.Base, err = s.ScanRange(ctx, BaseFirst, BaseLast, nil); err != nil {
		return res, err
	}
	s.logger.Info("scanning default page %s", DefaultPage)
	if res.Default, err = s.ScanPage(ctx, DefaultPage, ExtendedFirst, ExtendedLast); err != nil {
		return res, err
	}
	s.logger.Info("scanning RailCom page %s", RailcomPage)
	if res.Railcom, err = s.ScanPage(ctx, RailcomPage, ExtendedFirst, ExtendedLast); err != nil {
		return res, err
	}
	block, decodeErr := res.Railcom.Railcom()
	res.Block = block

	ok, outs, err := s.SelectPage(ctx, DefaultPage)
	res.Restore = outs
	if err != nil {
		return res, err
	}
	if !ok {
		s.logger.Info("restoring default page %s was rejected", DefaultPage)
	}
	return res, decodeErr
}

package cv

import (
	"context"
	"errors"
	"testing"

	"github.com/tonylturner/dccverify/internal/protocol"
	"github.com/tonylturner/dccverify/internal/session"
	"github.com/tonylturner/dccverify/internal/sim"
	"github.com/tonylturner/dccverify/internal/transport"
)

func newScanner(t *testing.T) (*Scanner, *session.Session, *sim.Station) {
	t.Helper()
	st := sim.New(sim.DefaultConfig())
	opts := session.DefaultOptions()
	opts.Settle = 0
	opts.ReadTimeout = 0
	sess := session.New(transport.NewHandlerPort("sim", st), opts)
	return NewScanner(sess, nil), sess, st
}

// rejecting fails every command whose line is in reject without sending it.
type rejecting struct {
	*session.Session
	reject map[string]bool
}

func (r rejecting) Check(ctx context.Context, cmd protocol.Command, exp session.Expectation) (session.Outcome, error) {
	if r.reject[cmd.Line()] {
		return session.Outcome{
			Exchange: session.Exchange{Command: cmd, Echo: cmd.Line(), Response: protocol.TokenError},
			Expected: exp,
			Attempts: 1,
		}, nil
	}
	return r.Session.Check(ctx, cmd, exp)
}

func TestParsePage(t *testing.T) {
	tests := []struct {
		in      string
		want    PageSelector
		wantErr bool
	}{
		{in: "default", want: DefaultPage},
		{in: "RailCom", want: RailcomPage},
		{in: "16,0", want: DefaultPage},
		{in: " 0 , 255 ", want: RailcomPage},
		{in: "1,2", want: PageSelector{Low: 1, High: 2}},
		{in: "16", wantErr: true},
		{in: "256,0", wantErr: true},
		{in: "a,b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePage(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePage(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParsePage(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestPageNames(t *testing.T) {
	if DefaultPage.Name() != "default" || RailcomPage.Name() != "railcom" {
		t.Errorf("names = %q, %q", DefaultPage.Name(), RailcomPage.Name())
	}
	if got := (PageSelector{Low: 1}).Name(); got != "unmodelled" {
		t.Errorf("Name() = %q, want unmodelled", got)
	}
	if got := RailcomPage.String(); got != "(0,255)" {
		t.Errorf("String() = %q", got)
	}
}

func TestDecodeRailcom(t *testing.T) {
	bytes := make(map[int]uint8)
	for i, b := range sim.DefaultRailcom {
		bytes[i] = b
	}
	block := DecodeRailcom(bytes)
	want := map[RailcomField]uint32{
		ManufacturerID: 0x00000097,
		ProductID:      0x02000093,
		SerialNumber:   0xdffab4ac,
		ProductionDate: 0x27d2e4be,
	}
	for f, w := range want {
		got, complete := block.Get(f)
		if got != w || !complete {
			t.Errorf("%s = %s complete=%v, want %s", f, FormatHex(got), complete, FormatHex(w))
		}
	}
	if block.ManufacturerID != 151 {
		t.Errorf("ManufacturerID = %d, want 151", block.ManufacturerID)
	}

	delete(bytes, 6)
	partial := DecodeRailcom(bytes)
	if _, complete := partial.Get(ProductID); complete {
		t.Error("ProductID complete with offset 6 missing")
	}
	if partial.IsComplete() {
		t.Error("IsComplete() with a missing byte")
	}
	if _, complete := partial.Get(SerialNumber); !complete {
		t.Error("SerialNumber should be unaffected")
	}
}

func TestFormatHex(t *testing.T) {
	tests := map[uint32]string{
		151:        "00_00_00_97",
		0x2c648d8a: "2c_64_8d_8a",
		0:          "00_00_00_00",
	}
	for v, want := range tests {
		if got := FormatHex(v); got != want {
			t.Errorf("FormatHex(%d) = %q, want %q", v, got, want)
		}
	}
}

func TestRailcomFieldCVs(t *testing.T) {
	if got := SerialNumber.CVs(); got != [4]int{265, 266, 267, 268} {
		t.Errorf("SerialNumber.CVs() = %v", got)
	}
}

func TestReadRailcom(t *testing.T) {
	for _, v := range []session.Verbosity{session.Verbose, session.Quiet} {
		t.Run(v.String(), func(t *testing.T) {
			sc, sess, _ := newScanner(t)
			ctx := context.Background()
			if out, err := sess.SetVerbosity(ctx, v); err != nil || !out.Passed {
				t.Fatalf("SetVerbosity(%s) = %+v, %v", v, out, err)
			}
			block, scan, err := sc.ReadRailcom(ctx)
			if err != nil {
				t.Fatalf("ReadRailcom: %v", err)
			}
			if scan.Unreliable {
				t.Error("scan marked unreliable")
			}
			if len(scan.Entries) != RailcomBlockSize {
				t.Fatalf("entries = %d, want %d", len(scan.Entries), RailcomBlockSize)
			}
			if scan.Entries[0].Offset != 0 || scan.Entries[15].Offset != 15 {
				t.Errorf("offsets = %d..%d", scan.Entries[0].Offset, scan.Entries[15].Offset)
			}
			if block.ManufacturerID != 151 || !block.IsComplete() {
				t.Errorf("block = %+v", block)
			}
			if v == session.Verbose && scan.Entries[3].Annotation != "0x97" {
				t.Errorf("annotation = %q, want 0x97", scan.Entries[3].Annotation)
			}
		})
	}
}

func TestPagesAreIsolatedAndNotCached(t *testing.T) {
	sc, sess, st := newScanner(t)
	ctx := context.Background()

	write, _ := protocol.NewCVWriteCommand(300, 42)
	if out, err := sess.Check(ctx, write, protocol.TokenOK); err != nil || !out.Passed {
		t.Fatalf("write CV300 = %+v, %v", out, err)
	}

	def, err := sc.ScanPage(ctx, DefaultPage, 257, 300)
	if err != nil {
		t.Fatal(err)
	}
	e, _ := def.Get(300)
	if b, ok := e.Byte(); !ok || b != 42 {
		t.Errorf("default page CV300 = %q", e.Response)
	}
	if e.Offset != -1 {
		t.Errorf("default page offset = %d, want -1", e.Offset)
	}
	if _, err := def.Railcom(); !errors.Is(err, ErrNotRailcomPage) {
		t.Errorf("Railcom() on default page err = %v", err)
	}

	before := st.Exchanges()
	rc, err := sc.ScanPage(ctx, RailcomPage, 257, 300)
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Exchanges() - before; got != 2+44 {
		t.Errorf("exchanges = %d, want %d", got, 2+44)
	}
	e, _ = rc.Get(300)
	if b, _ := e.Byte(); b != 0 {
		t.Errorf("railcom page CV300 = %d, want 0", b)
	}
	e, _ = rc.Get(260)
	if b, _ := e.Byte(); b != 0x97 {
		t.Errorf("railcom page CV260 = %#x, want 0x97", b)
	}

	// Rescanning reads the device again.
	before = st.Exchanges()
	if _, err := sc.ScanRange(ctx, 257, 260, &RailcomPage); err != nil {
		t.Fatal(err)
	}
	if got := st.Exchanges() - before; got != 4 {
		t.Errorf("rescan exchanges = %d, want 4", got)
	}
}

func TestRejectedSelectMarksScanUnreliable(t *testing.T) {
	sc, sess, _ := newScanner(t)
	sc.ex = rejecting{Session: sess, reject: map[string]bool{"C 32 255": true}}

	block, scan, err := sc.ReadRailcom(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !scan.Unreliable {
		t.Error("scan not marked unreliable")
	}
	if len(scan.Entries) != RailcomBlockSize {
		t.Errorf("scan stopped early: %d entries", len(scan.Entries))
	}
	if len(scan.Selects) != 2 || scan.Selects[1].Passed {
		t.Errorf("selects = %+v", scan.Selects)
	}
	// CV31 went through and CV32 did not: page (0,0) reads as zero.
	if block.ManufacturerID != 0 {
		t.Errorf("ManufacturerID = %d, want 0", block.ManufacturerID)
	}
}

func TestScanRangeRejectsBadBounds(t *testing.T) {
	sc, _, _ := newScanner(t)
	for _, r := range [][2]int{{0, 5}, {10, 5}, {1, 1025}} {
		if _, err := sc.ScanRange(context.Background(), r[0], r[1], nil); err == nil {
			t.Errorf("ScanRange(%d, %d) succeeded", r[0], r[1])
		}
	}
}

func TestEntryProgress(t *testing.T) {
	sc, _, _ := newScanner(t)
	var calls, lastTotal int
	sc.OnEntry(func(_ Entry, done, total int) {
		calls++
		lastTotal = total
		if done != calls {
			t.Errorf("done = %d, want %d", done, calls)
		}
	})
	if _, err := sc.ScanRange(context.Background(), 1, 10, nil); err != nil {
		t.Fatal(err)
	}
	if calls != 10 || lastTotal != 10 {
		t.Errorf("calls = %d total = %d", calls, lastTotal)
	}
}

func TestDump(t *testing.T) {
	sc, _, st := newScanner(t)
	res, err := sc.Dump(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.SetupFailed() {
		t.Errorf("setup failed: %+v", res.Setup)
	}
	if len(res.Base.Entries) != 256 || len(res.Default.Entries) != 256 || len(res.Railcom.Entries) != 256 {
		t.Errorf("entry counts = %d/%d/%d", len(res.Base.Entries), len(res.Default.Entries), len(res.Railcom.Entries))
	}
	if e, _ := res.Base.Get(8); e.Value != "151" {
		t.Errorf("CV8 = %q", e.Response)
	}
	if res.Block.ManufacturerID != 151 {
		t.Errorf("ManufacturerID = %d", res.Block.ManufacturerID)
	}
	if !st.TrackOn() || !st.Verbose() {
		t.Errorf("track=%v verbose=%v after dump", st.TrackOn(), st.Verbose())
	}
	if res.Base.Failed() != 0 {
		t.Errorf("base failures = %d", res.Base.Failed())
	}
	if !res.Restored() {
		t.Errorf("default page not restored: %+v", res.Restore)
	}
	if st.CV(protocol.CVPageSelectLow) != DefaultPage.Low || st.CV(protocol.CVPageSelectHigh) != DefaultPage.High {
		t.Errorf("selectors after dump = (%d,%d), want %s",
			st.CV(protocol.CVPageSelectLow), st.CV(protocol.CVPageSelectHigh), DefaultPage)
	}
}

func TestDumpReportsRejectedRestore(t *testing.T) {
	_, sess, _ := newScanner(t)
	// Both the default page scan and the restore write CV31=16.
	r := rejecting{Session: sess, reject: map[string]bool{"C 31 16": true}}
	res, err := NewScanner(r, nil).Dump(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Restored() {
		t.Error("Restored() = true with a rejected CV31 write")
	}
	if !res.Default.Unreliable {
		t.Error("default page scan not marked unreliable")
	}
}

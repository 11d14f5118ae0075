package transport

import (
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/tonylturner/dccverify/internal/sim"
)

type echoHandler struct{}

func (echoHandler) HandleLine(line string) string { return "got " + line + "\r\n" }

type bannerHandler struct{ echoHandler }

func (bannerHandler) Banner() string { return "hello\r\n" }

func readAll(t *testing.T, p Port) string {
	t.Helper()
	var b strings.Builder
	buf := make([]byte, 64)
	for {
		n, err := p.Read(buf)
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if n == 0 {
			return b.String()
		}
		b.Write(buf[:n])
	}
}

func TestHandlerPort(t *testing.T) {
	p := NewHandlerPort("test", echoHandler{})

	if n, _ := p.Buffered(); n != 0 {
		t.Errorf("Buffered() = %d before any write", n)
	}
	if _, err := p.Write([]byte("T O")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n, _ := p.Buffered(); n != 0 {
		t.Errorf("partial line should not be answered, Buffered() = %d", n)
	}
	p.Write([]byte("N\r\nL ?\r\n"))
	if got := readAll(t, p); got != "got T ON\r\ngot L ?\r\n" {
		t.Errorf("output = %q", got)
	}

	p.Inject("stray\r\n")
	if n, _ := p.Buffered(); n != len("stray\r\n") {
		t.Errorf("Buffered() = %d after Inject", n)
	}

	p.Close()
	if _, err := p.Write([]byte("x\n")); !errors.Is(err, ErrClosed) {
		t.Errorf("Write after Close = %v, want ErrClosed", err)
	}
	if _, err := p.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
}

func TestHandlerPortBanner(t *testing.T) {
	p := NewHandlerPort("test", bannerHandler{})
	if got := readAll(t, p); got != "hello\r\n" {
		t.Errorf("banner = %q", got)
	}
}

type fakeRaw struct {
	chunks  [][]byte
	written []byte
	waits   []time.Duration
	closed  bool
}

func (f *fakeRaw) readWithin(p []byte, d time.Duration) (int, error) {
	f.waits = append(f.waits, d)
	if len(f.chunks) == 0 {
		return 0, nil
	}
	n := copy(p, f.chunks[0])
	f.chunks = f.chunks[1:]
	return n, nil
}

func (f *fakeRaw) Write(p []byte) (int, error) {
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *fakeRaw) Close() error {
	f.closed = true
	return nil
}

func TestStreamPortBuffered(t *testing.T) {
	raw := &fakeRaw{chunks: [][]byte{[]byte("OK\r\n")}}
	p := newStreamPort(raw, "fake", time.Second)

	n, err := p.Buffered()
	if err != nil || n != 4 {
		t.Fatalf("Buffered() = %d, %v; want 4", n, err)
	}
	if raw.waits[0] != probeTimeout {
		t.Errorf("probe used timeout %v, want %v", raw.waits[0], probeTimeout)
	}

	buf := make([]byte, 2)
	n, _ = p.Read(buf)
	if string(buf[:n]) != "OK" {
		t.Errorf("Read() = %q, want pending bytes first", buf[:n])
	}
	n, _ = p.Read(buf)
	if string(buf[:n]) != "\r\n" {
		t.Errorf("Read() = %q", buf[:n])
	}

	n, _ = p.Read(buf)
	if n != 0 {
		t.Errorf("Read() on silence = %d bytes", n)
	}
	if got := raw.waits[len(raw.waits)-1]; got != time.Second {
		t.Errorf("Read used timeout %v, want the read timeout", got)
	}

	p.SetReadTimeout(50 * time.Millisecond)
	p.Read(buf)
	if got := raw.waits[len(raw.waits)-1]; got != 50*time.Millisecond {
		t.Errorf("Read used timeout %v after SetReadTimeout", got)
	}

	p.Write([]byte("T ?\r\n"))
	if string(raw.written) != "T ?\r\n" {
		t.Errorf("written = %q", raw.written)
	}
	p.Close()
	p.Close()
	if !raw.closed {
		t.Error("Close should close the raw handle")
	}
	if _, err := p.Buffered(); !errors.Is(err, ErrClosed) {
		t.Errorf("Buffered after Close = %v", err)
	}
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 64)
		n, _ := c.Read(buf)
		c.Write(append([]byte("echo "), buf[:n]...))
		time.Sleep(200 * time.Millisecond)
	}()

	opts := DefaultOptions()
	opts.ReadTimeout = 100 * time.Millisecond
	p, err := ParseWithOptions("tcp://"+ln.Addr().String(), opts)
	if err != nil {
		t.Fatalf("ParseWithOptions() error = %v", err)
	}
	defer p.Close()

	if _, err := io.WriteString(p, "T ?\r\n"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	buf := make([]byte, 64)
	n, err := p.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !strings.HasPrefix(string(buf[:n]), "echo T ?") {
		t.Errorf("Read() = %q", buf[:n])
	}

	n, err = p.Read(buf)
	if n != 0 || err != nil {
		t.Errorf("Read() on silence = %d, %v; want 0, nil", n, err)
	}
	if !strings.HasPrefix(p.String(), "tcp:") {
		t.Errorf("String() = %q", p.String())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"", "required"},
		{"ftp://host", "unknown port scheme"},
		{"tcp://host", "host:port"},
		{"serial://?baud=9600", "device is required"},
		{"serial:///dev/null?baud=fast", "invalid baud"},
		{"sim://?stray=x", "invalid sim option"},
		{"sim://?timeout=soon", "invalid timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			_, err := Parse(tt.spec)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse(%q) error = %v, want %q", tt.spec, err, tt.want)
			}
		})
	}

	_, err := Parse("ftp://host")
	if !errors.Is(err, ErrUnknownScheme) {
		t.Errorf("expected ErrUnknownScheme, got %v", err)
	}
}

func TestParseSim(t *testing.T) {
	p, err := Parse("sim://?banner=1&stray=3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer p.Close()
	if n, _ := p.Buffered(); n == 0 {
		t.Error("banner fault should queue power-up output")
	}
	readAll(t, p)

	io.WriteString(p, "T ?\r\n")
	if got := readAll(t, p); got != "T ?\r\nOFF\r\n" {
		t.Errorf("sim reply = %q", got)
	}

	q, err := Parse("sim")
	if err != nil {
		t.Fatalf("Parse(sim) error = %v", err)
	}
	if n, _ := q.Buffered(); n != 0 {
		t.Error("default sim should boot silently")
	}
}

func TestIsSimulated(t *testing.T) {
	tests := map[string]bool{
		"sim":           true,
		"sim://":        true,
		"sim://?drop=2": true,
		"/dev/ttyACM1":  false,
		"tcp://h:1":     false,
	}
	for spec, want := range tests {
		if got := IsSimulated(spec); got != want {
			t.Errorf("IsSimulated(%q) = %v, want %v", spec, got, want)
		}
	}
}

type recorder struct {
	sent, received []string
}

func (r *recorder) Sent(p []byte)     { r.sent = append(r.sent, string(p)) }
func (r *recorder) Received(p []byte) { r.received = append(r.received, string(p)) }

func TestTap(t *testing.T) {
	if p := NewHandlerPort("x", echoHandler{}); Tap(p, nil) != Port(p) {
		t.Error("Tap with nil recorder should return the port unchanged")
	}

	rec := &recorder{}
	p := Tap(NewHandlerPort("x", echoHandler{}), rec)
	io.WriteString(p, "A ?\r\n")
	readAll(t, p)

	if len(rec.sent) != 1 || rec.sent[0] != "A ?\r\n" {
		t.Errorf("sent = %q", rec.sent)
	}
	if strings.Join(rec.received, "") != "got A ?\r\n" {
		t.Errorf("received = %q", rec.received)
	}
	if p.String() != "x" {
		t.Errorf("String() = %q", p.String())
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", opts.ReadTimeout)
	}
	if opts.BaudRate != 115200 {
		t.Errorf("BaudRate = %d", opts.BaudRate)
	}
	if opts.Sim.Railcom != sim.DefaultRailcom {
		t.Error("default sim should carry the default RailCom block")
	}
}

package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"go.bug.st/serial"
)

// probeTimeout bounds the read Buffered uses to look for pending bytes.
const probeTimeout = 5 * time.Millisecond

// rawConn is the minimal device handle a streamPort drives.
type rawConn interface {
	Write(p []byte) (int, error)
	Close() error
	// readWithin reads whatever arrives within d; 0, nil on timeout.
	readWithin(p []byte, d time.Duration) (int, error)
}

// streamPort adds a pending buffer on top of a rawConn so Buffered can be
// answered on handles that have no "bytes waiting" query.
type streamPort struct {
	mu      sync.Mutex
	raw     rawConn
	name    string
	timeout time.Duration
	pending []byte
	closed  bool
}

func newStreamPort(raw rawConn, name string, timeout time.Duration) *streamPort {
	return &streamPort{raw: raw, name: name, timeout: timeout}
}

func (s *streamPort) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}
	return s.raw.readWithin(p, s.timeout)
}

func (s *streamPort) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.raw.Write(p)
}

func (s *streamPort) Buffered() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if len(s.pending) > 0 {
		return len(s.pending), nil
	}
	buf := make([]byte, 256)
	n, err := s.raw.readWithin(buf, probeTimeout)
	s.pending = append(s.pending, buf[:n]...)
	return len(s.pending), err
}

func (s *streamPort) SetReadTimeout(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
	return nil
}

func (s *streamPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.raw.Close()
}

func (s *streamPort) String() string {
	return s.name
}

// serialConn drives a local serial device.
type serialConn struct {
	port    serial.Port
	current time.Duration
}

func (c *serialConn) readWithin(p []byte, d time.Duration) (int, error) {
	if d != c.current {
		if err := c.port.SetReadTimeout(d); err != nil {
			return 0, fmt.Errorf("set read timeout: %w", err)
		}
		c.current = d
	}
	return c.port.Read(p)
}

func (c *serialConn) Write(p []byte) (int, error) { return c.port.Write(p) }
func (c *serialConn) Close() error                { return c.port.Close() }

// OpenSerial opens a local serial device at 8N1.
func OpenSerial(device string, opts Options) (Port, error) {
	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := p.SetReadTimeout(opts.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", device, err)
	}
	raw := &serialConn{port: p, current: opts.ReadTimeout}
	return newStreamPort(raw, fmt.Sprintf("serial:%s@%d", device, opts.BaudRate), opts.ReadTimeout), nil
}

// ListSerialPorts returns the serial devices present on this machine.
func ListSerialPorts() ([]string, error) {
	return serial.GetPortsList()
}

// tcpConn drives a raw TCP serial server (ser2net and similar).
type tcpConn struct {
	conn net.Conn
}

func (c *tcpConn) readWithin(p []byte, d time.Duration) (int, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return 0, err
	}
	n, err := c.conn.Read(p)
	if err != nil && errors.Is(err, os.ErrDeadlineExceeded) {
		return n, nil
	}
	return n, err
}

func (c *tcpConn) Write(p []byte) (int, error) { return c.conn.Write(p) }
func (c *tcpConn) Close() error                { return c.conn.Close() }

// DialTCP connects to a raw TCP serial server.
func DialTCP(address string, opts Options) (Port, error) {
	conn, err := net.DialTimeout("tcp", address, opts.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return newStreamPort(&tcpConn{conn: conn}, "tcp:"+address, opts.ReadTimeout), nil
}

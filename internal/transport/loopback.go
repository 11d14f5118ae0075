package transport

import (
	"bytes"
	"strings"
	"sync"
	"time"
)

// LineHandler answers one received line with the bytes the device would send
// back, terminators included.
type LineHandler interface {
	HandleLine(line string) string
}

// Bannerer is implemented by handlers that print something at power-up.
type Bannerer interface {
	Banner() string
}

// HandlerPort is an in-process Port backed by a LineHandler. Writes are
// split into lines and answered synchronously; a Read with nothing queued
// returns 0, nil at once, which callers see as a timeout.
type HandlerPort struct {
	mu      sync.Mutex
	name    string
	handler LineHandler
	in      []byte
	out     bytes.Buffer
	closed  bool
}

// NewHandlerPort wraps h. If h has a banner it is queued for reading.
func NewHandlerPort(name string, h LineHandler) *HandlerPort {
	p := &HandlerPort{name: name, handler: h}
	if b, ok := h.(Bannerer); ok {
		p.out.WriteString(b.Banner())
	}
	return p
}

func (p *HandlerPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	p.in = append(p.in, b...)
	for {
		i := bytes.IndexByte(p.in, '\n')
		if i < 0 {
			break
		}
		line := strings.TrimRight(string(p.in[:i]), "\r")
		p.in = p.in[i+1:]
		p.out.WriteString(p.handler.HandleLine(line))
	}
	return len(b), nil
}

func (p *HandlerPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	if p.out.Len() == 0 {
		return 0, nil
	}
	return p.out.Read(b)
}

// Buffered reports queued output.
func (p *HandlerPort) Buffered() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrClosed
	}
	return p.out.Len(), nil
}

// Inject queues unsolicited bytes, as if the device had printed them.
func (p *HandlerPort) Inject(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out.WriteString(s)
}

// SetReadTimeout is a no-op; replies are available as soon as Write returns.
func (p *HandlerPort) SetReadTimeout(time.Duration) error { return nil }

func (p *HandlerPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *HandlerPort) String() string {
	return p.name
}

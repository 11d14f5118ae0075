// Package transport provides the byte streams a session talks to a command
// station over: a local serial device, a raw TCP serial server, or an
// in-process line handler such as the simulator.
package transport

import (
	"errors"
	"io"
	"time"

	"github.com/tonylturner/dccverify/internal/sim"
)

// Sentinel errors.
var (
	// ErrUnknownScheme is returned by Parse for an unsupported URL scheme.
	ErrUnknownScheme = errors.New("unknown port scheme")

	// ErrClosed is returned by operations on a closed port.
	ErrClosed = errors.New("port closed")
)

// Port abstracts a duplex byte stream with a read timeout.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds every Read. A Read that times out returns 0, nil.
	SetReadTimeout(d time.Duration) error

	// Buffered reports how many received bytes are waiting to be read.
	Buffered() (int, error)

	// String returns a human-readable description of the port.
	String() string
}

// Options configures how ports are opened.
type Options struct {
	BaudRate    int           // Serial baud rate (ignored by USB CDC devices)
	ReadTimeout time.Duration // Per-read timeout
	DialTimeout time.Duration // TCP connect timeout
	Sim         sim.Config    // Simulator setup for sim:// ports
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		BaudRate:    115200,
		ReadTimeout: 5 * time.Second,
		DialTimeout: 5 * time.Second,
		Sim:         sim.DefaultConfig(),
	}
}

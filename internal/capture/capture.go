// Package capture records the byte stream exchanged with a command station to
// a pcap file and reads it back. Serial traffic has no link layer, so every
// chunk is stored as one LINKTYPE_USER0 packet whose first byte marks the
// direction.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// LinkTypeUser0 is the first pcap link type reserved for private use.
const LinkTypeUser0 layers.LinkType = 147

const snapLen = 65535

// Direction of a captured chunk.
type Direction byte

const (
	Sent     Direction = 0
	Received Direction = 1
)

func (d Direction) String() string {
	if d == Received {
		return "<"
	}
	return ">"
}

// Recorder writes traffic to a pcap stream. It satisfies transport.Recorder.
type Recorder struct {
	mu      sync.Mutex
	writer  *pcapgo.Writer
	closer  io.Closer
	packets int
	err     error
	now     func() time.Time
}

// Create opens path for writing and starts a capture.
func Create(path string) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcap file: %w", err)
	}
	r, err := NewRecorder(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewRecorder writes a pcap header to w and returns a recorder on it.
func NewRecorder(w io.Writer) (*Recorder, error) {
	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(snapLen, LinkTypeUser0); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	return &Recorder{writer: writer, now: time.Now}, nil
}

// Sent records bytes written to the station.
func (r *Recorder) Sent(p []byte) { r.record(Sent, p) }

// Received records bytes read from the station.
func (r *Recorder) Received(p []byte) { r.record(Received, p) }

func (r *Recorder) record(dir Direction, p []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil || len(p) == 0 {
		return
	}
	data := make([]byte, 0, len(p)+1)
	data = append(data, byte(dir))
	data = append(data, p...)
	ci := gopacket.CaptureInfo{
		Timestamp:     r.now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := r.writer.WritePacket(ci, data); err != nil {
		r.err = fmt.Errorf("write packet: %w", err)
		return
	}
	r.packets++
}

// Count returns the number of packets written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.packets
}

// Err returns the first write error, after which recording stops.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close closes the underlying file when the recorder owns one.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer == nil {
		return r.err
	}
	err := r.closer.Close()
	r.closer = nil
	if r.err != nil {
		return r.err
	}
	return err
}

// Packet is one captured chunk.
type Packet struct {
	Time      time.Time
	Direction Direction
	Data      []byte
}

// ErrLinkType is returned for captures not written by a Recorder.
var ErrLinkType = errors.New("capture is not a serial stream capture")

// Read decodes every packet of a capture.
func Read(rd io.Reader) ([]Packet, error) {
	reader, err := pcapgo.NewReader(rd)
	if err != nil {
		return nil, fmt.Errorf("read pcap header: %w", err)
	}
	if reader.LinkType() != LinkTypeUser0 {
		return nil, fmt.Errorf("%w: link type %d", ErrLinkType, reader.LinkType())
	}
	var out []Packet
	for {
		data, ci, err := reader.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("read packet %d: %w", len(out)+1, err)
		}
		if len(data) == 0 {
			continue
		}
		out = append(out, Packet{
			Time:      ci.Timestamp,
			Direction: Direction(data[0]),
			Data:      append([]byte(nil), data[1:]...),
		})
	}
}

// Dump prints a capture one chunk per line:
//
//	15:04:05.000000 > "T ?\r\n"
func Dump(rd io.Reader, w io.Writer) error {
	packets, err := Read(rd)
	if err != nil {
		return err
	}
	for _, p := range packets {
		if _, err := fmt.Fprintf(w, "%s %s %s\n", p.Time.Format("15:04:05.000000"), p.Direction, strconv.Quote(string(p.Data))); err != nil {
			return err
		}
	}
	return nil
}

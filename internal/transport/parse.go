package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tonylturner/dccverify/internal/sim"
)

// Parse opens the port described by spec with default options.
// Supported formats:
//   - "/dev/ttyACM1", "COM10" -> local serial device
//   - "serial:///dev/ttyACM1?baud=115200&timeout=5s" -> serial with options
//   - "tcp://host:port" -> raw TCP serial server
//   - "sim://?stray=5&corrupt_echo=7&drop=9&banner=1" -> in-process simulator
func Parse(spec string) (Port, error) {
	return ParseWithOptions(spec, DefaultOptions())
}

// ParseWithOptions opens the port described by spec.
func ParseWithOptions(spec string, opts Options) (Port, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("port spec is required")
	}
	if spec == "sim" {
		return openSim(spec, opts.Sim), nil
	}
	if strings.Contains(spec, "://") {
		return parseURL(spec, opts)
	}
	return OpenSerial(spec, opts)
}

func parseURL(spec string, opts Options) (Port, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse port URL: %w", err)
	}
	q := u.Query()

	if t := q.Get("timeout"); t != "" {
		d, err := time.ParseDuration(t)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout %q: %w", t, err)
		}
		opts.ReadTimeout = d
	}

	switch u.Scheme {
	case "serial":
		device := u.Path
		if u.Host != "" {
			device = u.Host + u.Path
		}
		if device == "" {
			return nil, fmt.Errorf("serial device is required")
		}
		if b := q.Get("baud"); b != "" {
			baud, err := strconv.Atoi(b)
			if err != nil || baud <= 0 {
				return nil, fmt.Errorf("invalid baud rate %q", b)
			}
			opts.BaudRate = baud
		}
		return OpenSerial(device, opts)

	case "tcp":
		if u.Host == "" || u.Port() == "" {
			return nil, fmt.Errorf("tcp port spec needs host:port")
		}
		return DialTCP(u.Host, opts)

	case "sim":
		cfg := opts.Sim
		if err := applySimQuery(&cfg.Faults, q); err != nil {
			return nil, err
		}
		return openSim(spec, cfg), nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownScheme, u.Scheme)
	}
}

func applySimQuery(f *sim.Faults, q url.Values) error {
	ints := map[string]*int{
		"stray":        &f.StrayEvery,
		"corrupt_echo": &f.CorruptEchoEvery,
		"drop":         &f.DropResponseEvery,
	}
	for key, dst := range ints {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid sim option %s=%q", key, v)
		}
		*dst = n
	}
	if b := q.Get("banner"); b == "1" || b == "true" {
		f.Banner = true
	}
	return nil
}

func openSim(name string, cfg sim.Config) *HandlerPort {
	return NewHandlerPort(name, sim.New(cfg))
}

// IsSimulated reports whether spec selects the in-process simulator.
func IsSimulated(spec string) bool {
	spec = strings.TrimSpace(spec)
	return spec == "sim" || strings.HasPrefix(spec, "sim://")
}

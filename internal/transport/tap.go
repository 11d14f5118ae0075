package transport

// Recorder receives a copy of every chunk crossing a tapped port.
type Recorder interface {
	Sent(p []byte)
	Received(p []byte)
}

type tap struct {
	Port
	rec Recorder
}

// Tap returns a Port that reports all traffic through p to rec.
func Tap(p Port, rec Recorder) Port {
	if rec == nil {
		return p
	}
	return &tap{Port: p, rec: rec}
}

func (t *tap) Read(b []byte) (int, error) {
	n, err := t.Port.Read(b)
	if n > 0 {
		t.rec.Received(b[:n])
	}
	return n, err
}

func (t *tap) Write(b []byte) (int, error) {
	n, err := t.Port.Write(b)
	if n > 0 {
		t.rec.Sent(b[:n])
	}
	return n, err
}

package sim

import (
	"bufio"
	"net"
	"strings"
	"testing"
	"time"
)

func TestServerAnswersOverTCP(t *testing.T) {
	srv := NewServer(DefaultConfig())
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer srv.Stop()

	conn, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	// Two lines in one write, the second split across writes.
	if _, err := conn.Write([]byte("T ?\r\nC 8")); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write([]byte(" ?\r\n")); err != nil {
		t.Fatal(err)
	}

	rd := bufio.NewReader(conn)
	var lines []string
	for len(lines) < 4 {
		line, err := rd.ReadString('\n')
		if err != nil {
			t.Fatalf("read after %q: %v", lines, err)
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
	want := []string{"T ?", "OFF", "C 8 ?", "151 (0x97) in 45 ms"}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestServerStationPerConnection(t *testing.T) {
	srv := NewServer(DefaultConfig())
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	defer srv.Stop()

	ask := func(cmd string) []string {
		conn, err := net.DialTimeout("tcp", srv.Addr().String(), 2*time.Second)
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		conn.SetDeadline(time.Now().Add(5 * time.Second))
		if _, err := conn.Write([]byte(cmd + "\r\n")); err != nil {
			t.Fatal(err)
		}
		rd := bufio.NewReader(conn)
		var out []string
		for i := 0; i < 2; i++ {
			line, err := rd.ReadString('\n')
			if err != nil {
				t.Fatal(err)
			}
			out = append(out, strings.TrimRight(line, "\r\n"))
		}
		return out
	}

	if got := ask("T ON"); got[1] != "OK" {
		t.Fatalf("T ON = %q", got)
	}
	if got := ask("T ?"); got[1] != "OFF" {
		t.Errorf("second connection saw track %q, want a fresh station", got[1])
	}
}

func TestServerStop(t *testing.T) {
	srv := NewServer(DefaultConfig())
	if srv.Addr() != nil {
		t.Error("Addr before Start")
	}
	if err := srv.Start("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop hung with an open connection")
	}
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/netbatch/netbatch/pkg/nlog"
	"github.com/netbatch/netbatch/pkg/transport"
)

// scriptConn fabricates per-command output and failures.
type scriptConn struct {
	mu       sync.Mutex
	received []string
	fail     map[string]error
	delay    time.Duration
}

func (c *scriptConn) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	c.mu.Lock()
	c.received = append(c.received, command)
	fail := c.fail[command]
	c.mu.Unlock()

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if fail != nil {
		return "", fail
	}
	return "output of " + command, nil
}

func (c *scriptConn) Close() error { return nil }

func newTestSession(conn transport.Conn, mode transport.Mode) *transport.Session {
	return transport.NewSession("r01", "cisco_ios", mode, conn)
}

func TestRun_ExecutesInOrder(t *testing.T) {
	conn := &scriptConn{}
	session := newTestSession(conn, transport.ModeDirect)
	r := New(nlog.NewQuiet())

	commands := []string{"show version", "show ip route", "show interfaces"}
	results := r.Run(context.Background(), session, commands, nil)

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Command != commands[i] {
			t.Errorf("Result %d: expected %s, got %s", i, commands[i], res.Command)
		}
		if res.Status != CommandSuccess {
			t.Errorf("Result %d: expected success, got %s", i, res.Status)
		}
		if res.Output != "output of "+commands[i] {
			t.Errorf("Result %d: unexpected output %q", i, res.Output)
		}
	}

	for i, got := range conn.received {
		if got != commands[i] {
			t.Errorf("Wire order position %d: expected %s, got %s", i, commands[i], got)
		}
	}
}

func TestRun_FailureContinues(t *testing.T) {
	conn := &scriptConn{fail: map[string]error{
		"bad command": errors.New("% invalid input"),
	}}
	session := newTestSession(conn, transport.ModeDirect)
	r := New(nlog.NewQuiet())

	results := r.Run(context.Background(), session, []string{"show version", "bad command", "show clock"}, nil)

	if results[0].Status != CommandSuccess {
		t.Errorf("Expected first command to succeed, got %s", results[0].Status)
	}
	if results[1].Status != CommandFailed {
		t.Errorf("Expected second command to fail, got %s", results[1].Status)
	}
	if results[1].Error == "" {
		t.Error("Expected failure to carry an error message")
	}
	if results[2].Status != CommandSuccess {
		t.Errorf("Expected third command to run despite earlier failure, got %s", results[2].Status)
	}
}

func TestRun_SimulatedSessionMarksResults(t *testing.T) {
	conn := &scriptConn{}
	session := newTestSession(conn, transport.ModeSimulated)
	r := New(nlog.NewQuiet())

	results := r.Run(context.Background(), session, []string{"show version"}, nil)

	if results[0].Status != CommandSimulated {
		t.Errorf("Expected simulated status, got %s", results[0].Status)
	}
	if results[0].Status == CommandSuccess {
		t.Error("Simulated output must never be a genuine success")
	}
}

func TestRun_ContextCancelStopsSequence(t *testing.T) {
	conn := &scriptConn{delay: 50 * time.Millisecond}
	session := newTestSession(conn, transport.ModeDirect)
	r := New(nlog.NewQuiet())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	results := r.Run(ctx, session, []string{"a", "b", "c"}, nil)

	if results[0].Status != CommandFailed {
		t.Errorf("Expected cancelled command to fail, got %s", results[0].Status)
	}
	for i := 1; i < 3; i++ {
		if results[i].Status != CommandFailed {
			t.Errorf("Result %d: expected failed after cancel, got %s", i, results[i].Status)
		}
	}
	if len(conn.received) != 1 {
		t.Errorf("Expected only 1 command on the wire after cancel, got %d", len(conn.received))
	}
}

func TestRun_ObserverSeesRunningThenTerminal(t *testing.T) {
	conn := &scriptConn{}
	session := newTestSession(conn, transport.ModeDirect)
	r := New(nlog.NewQuiet())

	var events []string
	observe := func(index int, result Result) {
		events = append(events, fmt.Sprintf("%d:%s", index, result.Status))
	}

	r.Run(context.Background(), session, []string{"a", "b"}, observe)

	want := []string{"0:running", "0:success", "1:running", "1:success"}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d: %v", len(want), len(events), events)
	}
	for i, e := range events {
		if e != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], e)
		}
	}
}

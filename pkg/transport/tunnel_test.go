package transport

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

type trackedConn struct {
	net.Conn
	closed atomic.Bool
}

func (c *trackedConn) Close() error {
	c.closed.Store(true)
	return nil
}

func TestBoundDial_ReturnsConn(t *testing.T) {
	conn := &trackedConn{}
	got, err := boundDial(context.Background(), func() (net.Conn, error) {
		return conn, nil
	})
	if err != nil {
		t.Fatalf("boundDial failed: %v", err)
	}
	if got != conn {
		t.Error("Expected the dialed conn back")
	}
}

func TestBoundDial_PropagatesDialError(t *testing.T) {
	dialErr := errors.New("no route to host")
	_, err := boundDial(context.Background(), func() (net.Conn, error) {
		return nil, dialErr
	})
	if !errors.Is(err, dialErr) {
		t.Errorf("Expected dial error, got %v", err)
	}
}

func TestBoundDial_ClosesLateConnAfterCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	conn := &trackedConn{}
	release := make(chan struct{})
	_, err := boundDial(ctx, func() (net.Conn, error) {
		<-release
		return conn, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected deadline error, got %v", err)
	}

	// The dial finishes late; its conn must not be left open.
	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for !conn.closed.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !conn.closed.Load() {
		t.Error("Expected the late connection to be closed")
	}
}

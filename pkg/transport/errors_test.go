package transport

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestNewConnectError_ClassifiesAuth(t *testing.T) {
	err := NewConnectError("", "r01", fmt.Errorf("ssh: unable to authenticate, attempted methods [password]"))
	if err.Kind != ConnectAuth {
		t.Errorf("Expected auth kind, got %s", err.Kind)
	}
}

func TestNewConnectError_ClassifiesTimeout(t *testing.T) {
	err := NewConnectError("", "r01", context.DeadlineExceeded)
	if err.Kind != ConnectTimeout {
		t.Errorf("Expected timeout kind, got %s", err.Kind)
	}
}

func TestNewConnectError_ExplicitKindWins(t *testing.T) {
	err := NewConnectError(ConnectTunnel, "r01", errors.New("auth failed on bastion"))
	if err.Kind != ConnectTunnel {
		t.Errorf("Expected tunnel kind, got %s", err.Kind)
	}
}

func TestConnectError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewConnectError(ConnectAuth, "r01", inner)
	if !errors.Is(err, inner) {
		t.Error("Expected errors.Is to reach the wrapped error")
	}

	var ce *ConnectError
	if !errors.As(error(err), &ce) {
		t.Fatal("Expected errors.As to find ConnectError")
	}
	if ce.DeviceID != "r01" {
		t.Errorf("Expected device r01, got %s", ce.DeviceID)
	}
}

func TestNewCommandError_ClassifiesTimeout(t *testing.T) {
	err := NewCommandError("", "r01", "show version", context.DeadlineExceeded)
	if err.Kind != CommandTimeout {
		t.Errorf("Expected timeout kind, got %s", err.Kind)
	}

	err = NewCommandError("", "r01", "show version", errors.New("% invalid input"))
	if err.Kind != CommandRejected {
		t.Errorf("Expected rejected kind, got %s", err.Kind)
	}
}

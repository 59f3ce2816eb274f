package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ConnectKind classifies why a device connection failed. Callers use it to
// decide between retrying and abandoning a device.
type ConnectKind string

const (
	ConnectAuth      ConnectKind = "auth"      // credentials rejected
	ConnectTimeout   ConnectKind = "timeout"   // network unreachable or dial timed out
	ConnectTunnel    ConnectKind = "tunnel"    // bastion tunnel could not be established
	ConnectPlatform  ConnectKind = "platform"  // no driver for the device platform
	ConnectExhausted ConnectKind = "exhausted" // session pool could not allocate
)

// ConnectError is a device-scoped connection failure. It never aborts a job;
// the orchestrator records it on the DeviceResult and moves on.
type ConnectError struct {
	Kind     ConnectKind
	DeviceID string
	At       time.Time
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s (%s): %v", e.DeviceID, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// NewConnectError wraps err for the given device, classifying it if kind is empty.
func NewConnectError(kind ConnectKind, deviceID string, err error) *ConnectError {
	if kind == "" {
		kind = classifyConnect(err)
	}
	return &ConnectError{Kind: kind, DeviceID: deviceID, At: time.Now(), Err: err}
}

// CommandKind classifies a per-command failure.
type CommandKind string

const (
	CommandTimeout  CommandKind = "timeout"  // no prompt back within the command deadline
	CommandRejected CommandKind = "rejected" // remote end refused the command
)

// CommandError is command-scoped: it marks one CommandResult failed without
// aborting the remaining commands on the same device.
type CommandError struct {
	Kind     CommandKind
	DeviceID string
	Command  string
	At       time.Time
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q on %s (%s): %v", e.Command, e.DeviceID, e.Kind, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// NewCommandError wraps err for one command on one device.
func NewCommandError(kind CommandKind, deviceID, command string, err error) *CommandError {
	if kind == "" {
		kind = CommandRejected
		if isTimeout(err) {
			kind = CommandTimeout
		}
	}
	return &CommandError{Kind: kind, DeviceID: deviceID, Command: command, At: time.Now(), Err: err}
}

func classifyConnect(err error) ConnectKind {
	if isTimeout(err) {
		return ConnectTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unable to authenticate"),
		strings.Contains(msg, "auth"),
		strings.Contains(msg, "permission denied"):
		return ConnectAuth
	default:
		return ConnectTimeout
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

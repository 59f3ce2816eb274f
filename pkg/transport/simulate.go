package transport

import (
	"context"
	"fmt"
	"time"
)

// simulatedConn fabricates command output when a device is unreachable and
// the simulate fallback is enabled. Sessions built on it carry ModeSimulated
// so no consumer can mistake the output for real telemetry.
type simulatedConn struct {
	dev Device
}

func newSimulatedConn(dev Device) *simulatedConn {
	return &simulatedConn{dev: dev}
}

func (c *simulatedConn) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[simulated %s] %s\n(no live connection; output fabricated)\n", c.dev.ID, command), nil
}

func (c *simulatedConn) Close() error { return nil }

var _ Conn = (*simulatedConn)(nil)

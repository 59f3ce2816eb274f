// Package runner executes an ordered command list against one open device
// session, capturing per-command output, timing, and failure.
package runner

import (
	"context"
	"time"

	"github.com/netbatch/netbatch/pkg/nlog"
	"github.com/netbatch/netbatch/pkg/transport"
)

// CommandStatus tracks one command's execution state.
type CommandStatus string

const (
	CommandPending CommandStatus = "pending"
	CommandRunning CommandStatus = "running"
	CommandSuccess CommandStatus = "success"
	CommandFailed  CommandStatus = "failed"
	// CommandSimulated marks output fabricated by a simulated session. It is
	// deliberately distinct from CommandSuccess so fabricated data can never
	// pass as real telemetry.
	CommandSimulated CommandStatus = "simulated"
)

// Result is the outcome of one command on one device.
type Result struct {
	Command   string        `json:"command"`
	Status    CommandStatus `json:"status"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Runner runs command sequences over sessions.
type Runner struct {
	log            *nlog.Logger
	commandTimeout time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithCommandTimeout sets the per-command timeout.
func WithCommandTimeout(d time.Duration) Option {
	return func(r *Runner) { r.commandTimeout = d }
}

// New creates a Runner.
func New(log *nlog.Logger, opts ...Option) *Runner {
	r := &Runner{
		log:            log.Named("runner"),
		commandTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observer receives each command result as it lands; used for live progress.
type Observer func(index int, result Result)

// Run executes commands strictly in submission order on the session. Later
// commands may depend on session state set by earlier ones, so commands on
// one device are never parallelized. A command failure or timeout records a
// failed Result and continues, preserving maximal partial output.
func (r *Runner) Run(ctx context.Context, session *transport.Session, commands []string, observe Observer) []Result {
	results := make([]Result, len(commands))

	for i, command := range commands {
		result := Result{
			Command:   command,
			Status:    CommandRunning,
			Timestamp: time.Now(),
		}
		if observe != nil {
			observe(i, result)
		}

		output, duration, err := session.Send(ctx, command, r.commandTimeout)
		result.Output = output
		result.Duration = duration

		switch {
		case err != nil:
			result.Status = CommandFailed
			result.Error = err.Error()
			r.log.Debug("command failed", "device", session.DeviceID, "command", command, "err", err)
		case session.Simulated():
			result.Status = CommandSimulated
		default:
			result.Status = CommandSuccess
		}

		results[i] = result
		if observe != nil {
			observe(i, result)
		}

		// A cancelled context ends the remaining sequence; a single command
		// failure does not.
		if ctx.Err() != nil {
			for j := i + 1; j < len(commands); j++ {
				results[j] = Result{
					Command:   commands[j],
					Status:    CommandFailed,
					Error:     ctx.Err().Error(),
					Timestamp: time.Now(),
				}
			}
			break
		}
	}

	return results
}

// Package transport opens command-capable sessions to network devices over
// SSH or Telnet, directly or tunneled through a bastion host. Platform quirks
// live in drivers selected from a capability registry keyed by the device's
// platform identifier.
package transport

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/netbatch/netbatch/pkg/jumphost"
	"github.com/netbatch/netbatch/pkg/nlog"
)

// Protocol selects the wire protocol for a device connection.
type Protocol string

const (
	ProtocolSSH    Protocol = "ssh"
	ProtocolTelnet Protocol = "telnet"
)

// Mode records how a session was established.
type Mode string

const (
	ModeDirect    Mode = "direct"
	ModeTunneled  Mode = "tunneled"
	ModeSimulated Mode = "simulated"
)

// Device is the read-only connection input supplied by the inventory store.
type Device struct {
	ID       string
	Name     string
	Address  string
	Port     int
	Protocol Protocol
	Platform string
	Username string
	Password string
	// EnablePassword escalates privilege on platforms that need it.
	EnablePassword string
	// Group carries optional rollup metadata (e.g. a country code).
	Group string
}

// Addr returns the dialable host:port, defaulting the port per protocol.
func (d Device) Addr() string {
	port := d.Port
	if port == 0 {
		if d.Protocol == ProtocolTelnet {
			port = 23
		} else {
			port = 22
		}
	}
	return fmt.Sprintf("%s:%d", d.Address, port)
}

// DialFunc opens the raw network path to a device, hiding whether the bytes
// travel directly or through the bastion tunnel.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Conn is one live command channel to one device.
type Conn interface {
	// Send executes a single command and returns its captured output.
	Send(ctx context.Context, command string, timeout time.Duration) (string, error)
	Close() error
}

// Driver opens Conns for one platform family.
type Driver interface {
	Connect(ctx context.Context, dev Device, dial DialFunc) (Conn, error)
}

// Session is one live authenticated connection to one device.
type Session struct {
	DeviceID  string
	Platform  string
	Mode      Mode
	CreatedAt time.Time

	mu       sync.Mutex
	lastUsed time.Time
	closed   bool
	conn     Conn
}

// NewSession wraps an established Conn. Most callers go through
// Transport.Connect; this is for drivers built outside the registry and for
// test doubles.
func NewSession(deviceID, platform string, mode Mode, conn Conn) *Session {
	now := time.Now()
	return &Session{
		DeviceID:  deviceID,
		Platform:  platform,
		Mode:      mode,
		CreatedAt: now,
		lastUsed:  now,
		conn:      conn,
	}
}

// Send runs one command on the session and returns output plus wall-clock duration.
func (s *Session) Send(ctx context.Context, command string, timeout time.Duration) (string, time.Duration, error) {
	start := time.Now()
	out, err := s.conn.Send(ctx, command, timeout)
	elapsed := time.Since(start)
	s.Touch()
	if err != nil {
		return out, elapsed, NewCommandError("", s.DeviceID, command, err)
	}
	return out, elapsed, nil
}

// Close tears down the underlying connection. Safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// Touch updates the last-used timestamp consulted by the idle sweep.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastUsed = time.Now()
	s.mu.Unlock()
}

// LastUsed reports when the session last carried a command.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// Alive reports whether the session has not been closed.
func (s *Session) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Simulated reports whether the session is a mock fallback rather than a
// genuine connection. Downstream status fields must never present simulated
// sessions as real successes.
func (s *Session) Simulated() bool { return s.Mode == ModeSimulated }

// Transport connects to devices using registered drivers.
type Transport struct {
	registry       *Registry
	tunnel         *Tunnel
	log            *nlog.Logger
	connectTimeout time.Duration
	simulate       bool
	transcriptDir  string
}

// Option configures a Transport.
type Option func(*Transport)

// WithConnectTimeout bounds each connection attempt.
func WithConnectTimeout(d time.Duration) Option {
	return func(t *Transport) { t.connectTimeout = d }
}

// WithSimulateFallback substitutes a simulated session when a device is
// unreachable. Intended for non-production environments only.
func WithSimulateFallback() Option {
	return func(t *Transport) { t.simulate = true }
}

// WithTranscriptDir enables best-effort raw session transcripts for debugging.
func WithTranscriptDir(dir string) Option {
	return func(t *Transport) { t.transcriptDir = dir }
}

// New creates a Transport with the default driver registry.
func New(log *nlog.Logger, opts ...Option) *Transport {
	t := &Transport{
		registry:       DefaultRegistry(),
		tunnel:         NewTunnel(),
		log:            log.Named("transport"),
		connectTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Registry exposes the driver registry for platform registration.
func (t *Transport) Registry() *Registry { return t.registry }

// Connect opens a session to the device, tunneling through the bastion when
// the jumphost config enables it. Failures come back as *ConnectError.
func (t *Transport) Connect(ctx context.Context, dev Device, jump jumphost.Config) (*Session, error) {
	driver, ok := t.registry.Lookup(dev.Platform, dev.Protocol)
	if !ok {
		return nil, NewConnectError(ConnectPlatform, dev.ID,
			fmt.Errorf("no driver for platform %q protocol %q", dev.Platform, dev.Protocol))
	}

	dial, mode, err := t.dialer(ctx, jump)
	if err != nil {
		if t.simulate {
			return t.simulatedSession(dev), nil
		}
		return nil, NewConnectError(ConnectTunnel, dev.ID, err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, t.connectTimeout)
	defer cancel()

	conn, err := driver.Connect(connectCtx, dev, dial)
	if err != nil {
		if t.simulate {
			t.log.Warn("falling back to simulated session", "device", dev.ID, "err", err)
			return t.simulatedSession(dev), nil
		}
		return nil, NewConnectError("", dev.ID, err)
	}

	if t.transcriptDir != "" {
		conn = t.withTranscript(dev.ID, conn)
	}

	now := time.Now()
	t.log.Debug("session opened", "device", dev.ID, "mode", mode)
	return &Session{
		DeviceID:  dev.ID,
		Platform:  dev.Platform,
		Mode:      mode,
		CreatedAt: now,
		lastUsed:  now,
		conn:      conn,
	}, nil
}

// Close releases shared transport resources (the bastion tunnel).
func (t *Transport) Close() error {
	return t.tunnel.Close()
}

func (t *Transport) dialer(ctx context.Context, jump jumphost.Config) (DialFunc, Mode, error) {
	if !jump.Enabled {
		d := &net.Dialer{}
		return func(ctx context.Context, network, addr string) (net.Conn, error) {
			return d.DialContext(ctx, network, addr)
		}, ModeDirect, nil
	}

	dial, err := t.tunnel.Dialer(ctx, jump)
	if err != nil {
		return nil, "", err
	}
	return dial, ModeTunneled, nil
}

func (t *Transport) simulatedSession(dev Device) *Session {
	now := time.Now()
	return &Session{
		DeviceID:  dev.ID,
		Platform:  dev.Platform,
		Mode:      ModeSimulated,
		CreatedAt: now,
		lastUsed:  now,
		conn:      newSimulatedConn(dev),
	}
}

// withTranscript wraps conn so every exchange is appended to a per-device
// transcript file. Transcript writes are best-effort and never fail a command.
func (t *Transport) withTranscript(deviceID string, conn Conn) Conn {
	path := filepath.Join(t.transcriptDir, deviceID+".transcript")
	return &transcriptConn{inner: conn, path: path, log: t.log}
}

type transcriptConn struct {
	inner Conn
	path  string
	log   *nlog.Logger
}

func (c *transcriptConn) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	out, err := c.inner.Send(ctx, command, timeout)
	c.append(command, out, err)
	return out, err
}

func (c *transcriptConn) Close() error { return c.inner.Close() }

func (c *transcriptConn) append(command, out string, cmdErr error) {
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		c.log.Debug("transcript open failed", "path", c.path, "err", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "=== %s $ %s\n%s\n", time.Now().Format(time.RFC3339), command, out)
	if cmdErr != nil {
		fmt.Fprintf(f, "--- error: %v\n", cmdErr)
	}
}

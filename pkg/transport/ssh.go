package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const (
	promptDetectTimeout = 3 * time.Second
	promptSettleWait    = 300 * time.Millisecond
)

// buildSSHClient dials and authenticates an SSH client for a device. The
// cipher/kex/MAC lists are extended with legacy algorithms because older
// network gear refuses the modern defaults.
func buildSSHClient(ctx context.Context, dev Device, dial DialFunc) (*ssh.Client, error) {
	cfg := &ssh.ClientConfig{
		User: dev.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(dev.Password),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}
	cfg.SetDefaults()

	cfg.Config.Ciphers = append(cfg.Config.Ciphers, []string{
		"aes128-ctr", "aes192-ctr", "aes256-ctr",
		"aes128-gcm@openssh.com",
		"aes128-cbc", "aes192-cbc", "aes256-cbc",
		"3des-cbc",
	}...)
	cfg.Config.KeyExchanges = append(cfg.Config.KeyExchanges, []string{
		"diffie-hellman-group-exchange-sha256",
		"diffie-hellman-group-exchange-sha1",
		"diffie-hellman-group14-sha1",
		"diffie-hellman-group1-sha1",
		"ecdh-sha2-nistp256",
		"ecdh-sha2-nistp384",
		"ecdh-sha2-nistp521",
	}...)
	cfg.Config.MACs = append(cfg.Config.MACs, []string{
		"hmac-sha2-256-etm@openssh.com",
		"hmac-sha2-256",
		"hmac-sha1",
		"hmac-sha1-96",
	}...)

	conn, err := dial(ctx, "tcp", dev.Addr())
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", dev.Addr(), err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, dev.Addr(), cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", dev.Addr(), err)
	}
	return ssh.NewClient(c, chans, reqs), nil
}

// SSHExecDriver runs each command in its own exec session. Suitable for
// server-style targets where commands are independent of shell state.
type SSHExecDriver struct{}

// NewSSHExecDriver creates the one-shot exec driver.
func NewSSHExecDriver() *SSHExecDriver { return &SSHExecDriver{} }

func (d *SSHExecDriver) Connect(ctx context.Context, dev Device, dial DialFunc) (Conn, error) {
	client, err := buildSSHClient(ctx, dev, dial)
	if err != nil {
		return nil, err
	}
	return &sshExecConn{client: client}, nil
}

type sshExecConn struct {
	client *ssh.Client
}

func (c *sshExecConn) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("opening exec session: %w", err)
	}
	defer session.Close()

	var stdout bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stdout

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return stdout.String(), fmt.Errorf("running %q: %w", command, err)
		}
		return stdout.String(), nil
	case <-timer.C:
		session.Close()
		return stdout.String(), fmt.Errorf("command %q: %w", command, context.DeadlineExceeded)
	case <-ctx.Done():
		session.Close()
		return stdout.String(), ctx.Err()
	}
}

func (c *sshExecConn) Close() error { return c.client.Close() }

// SSHShellDriver keeps one interactive PTY shell open and drives commands
// through it, so session state (pagination toggles, config mode) carries
// between commands the way device CLIs expect.
type SSHShellDriver struct{}

// NewSSHShellDriver creates the interactive shell driver.
func NewSSHShellDriver() *SSHShellDriver { return &SSHShellDriver{} }

func (d *SSHShellDriver) Connect(ctx context.Context, dev Device, dial DialFunc) (Conn, error) {
	client, err := buildSSHClient(ctx, dev, dial)
	if err != nil {
		return nil, err
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("opening shell session: %w", err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm", 80, 200, modes); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("requesting pty: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("starting shell: %w", err)
	}

	conn := newShellConn(stdin, stdout, func() error {
		session.Close()
		return client.Close()
	})

	if err := conn.detectPrompt(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("detecting prompt: %w", err)
	}
	return conn, nil
}

// shellConn drives a prompt-oriented CLI over an interactive channel. A
// background reader pumps raw chunks into a channel so Send can enforce
// timeouts on readers that have no deadline support.
type shellConn struct {
	stdin    io.WriteCloser
	chunks   chan []byte
	closeFn  func() error
	prompt   string
	filterFn func([]byte) []byte // optional wire filtering (telnet IAC)
}

func newShellConn(stdin io.WriteCloser, stdout io.Reader, closeFn func() error) *shellConn {
	c := &shellConn{
		stdin:   stdin,
		chunks:  make(chan []byte, 64),
		closeFn: closeFn,
	}
	go c.pump(stdout)
	return c
}

func (c *shellConn) pump(r io.Reader) {
	defer close(c.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if c.filterFn != nil {
				chunk = c.filterFn(chunk)
			}
			if len(chunk) > 0 {
				c.chunks <- chunk
			}
		}
		if err != nil {
			return
		}
	}
}

// detectPrompt sends bare newlines and watches for a stable prompt line in
// the accumulated banner output.
func (c *shellConn) detectPrompt(ctx context.Context) error {
	deadline := time.Now().Add(promptDetectTimeout)
	var accumulated bytes.Buffer

	for attempt := 0; attempt < 3 && time.Now().Before(deadline); attempt++ {
		if _, err := fmt.Fprintf(c.stdin, "\r\n"); err != nil {
			return fmt.Errorf("writing newline: %w", err)
		}
		time.Sleep(promptSettleWait)

		c.drain(ctx, &accumulated, time.Until(deadline))

		if line := lastLine(accumulated.String()); isPromptLine(line) {
			c.prompt = line
			return nil
		}
	}
	return fmt.Errorf("no prompt after %v", promptDetectTimeout)
}

// drain moves whatever is buffered into acc, waiting at most maxWait for the
// first chunk.
func (c *shellConn) drain(ctx context.Context, acc *bytes.Buffer, maxWait time.Duration) {
	if maxWait <= 0 {
		return
	}
	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	for {
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				return
			}
			acc.Write(chunk)
			// Keep pulling while the device is still talking.
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(200 * time.Millisecond)
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *shellConn) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	if _, err := fmt.Fprintf(c.stdin, "%s\r\n", command); err != nil {
		return "", fmt.Errorf("writing command: %w", err)
	}

	deadline := time.Now().Add(timeout)
	var accumulated bytes.Buffer

	for time.Now().Before(deadline) {
		remaining := time.Until(deadline)
		wait := time.Second
		if remaining < wait {
			wait = remaining
		}

		before := accumulated.Len()
		c.drain(ctx, &accumulated, wait)

		if out, completed := extractOutput(accumulated.String(), c.prompt, command); completed {
			return out, nil
		}
		if ctx.Err() != nil {
			return partialOutput(accumulated.String(), c.prompt, command), ctx.Err()
		}
		if accumulated.Len() == before && remaining <= wait {
			break
		}
	}

	return partialOutput(accumulated.String(), c.prompt, command),
		fmt.Errorf("command %q: %w", command, context.DeadlineExceeded)
}

func (c *shellConn) Close() error {
	if err := c.stdin.Close(); err != nil && !strings.Contains(err.Error(), "closed") {
		c.closeFn()
		return err
	}
	return c.closeFn()
}

func partialOutput(data, prompt, command string) string {
	out, _ := extractOutput(data, prompt, command)
	return out
}

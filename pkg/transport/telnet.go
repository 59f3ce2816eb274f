package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

// Telnet IAC protocol bytes.
const (
	telnetIAC  = 0xFF
	telnetWILL = 0xFB
	telnetWONT = 0xFC
	telnetDO   = 0xFD
	telnetDONT = 0xFE
	telnetSB   = 0xFA
	telnetSE   = 0xF0
)

const telnetLoginTimeout = 15 * time.Second

// TelnetDriver opens sessions to devices that only speak telnet. It answers
// option negotiation by refusing everything, walks the username/password
// login exchange, then hands the line to the shared prompt-oriented shell.
type TelnetDriver struct{}

// NewTelnetDriver creates the telnet driver.
func NewTelnetDriver() *TelnetDriver { return &TelnetDriver{} }

func (d *TelnetDriver) Connect(ctx context.Context, dev Device, dial DialFunc) (Conn, error) {
	raw, err := dial(ctx, "tcp", dev.Addr())
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", dev.Addr(), err)
	}
	if tcp, ok := raw.(*net.TCPConn); ok {
		tcp.SetKeepAlive(true)
	}

	neg := &telnetNegotiator{conn: raw}

	conn := newShellConn(raw, neg, func() error { return raw.Close() })
	conn.filterFn = filterTelnetControlChars

	if err := telnetLogin(ctx, conn, dev); err != nil {
		conn.Close()
		return nil, fmt.Errorf("telnet login: %w", err)
	}

	if err := conn.detectPrompt(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("detecting prompt: %w", err)
	}

	if dev.EnablePassword != "" && strings.HasSuffix(conn.prompt, ">") {
		if err := telnetEnable(ctx, conn, dev.EnablePassword); err != nil {
			conn.Close()
			return nil, fmt.Errorf("privilege escalation: %w", err)
		}
	}
	return conn, nil
}

// telnetEnable escalates from user EXEC to privileged mode and re-detects
// the prompt, which changes its sentinel character on success.
func telnetEnable(ctx context.Context, c *shellConn, enablePassword string) error {
	if _, err := fmt.Fprintf(c.stdin, "enable\r\n"); err != nil {
		return err
	}

	deadline := time.Now().Add(telnetLoginTimeout)
	var accumulated bytes.Buffer
	for time.Now().Before(deadline) {
		c.drain(ctx, &accumulated, time.Until(deadline))
		if isPasswordPrompt(strings.ToLower(accumulated.String())) {
			if _, err := fmt.Fprintf(c.stdin, "%s\r\n", enablePassword); err != nil {
				return err
			}
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return c.detectPrompt(ctx)
}

// telnetNegotiator reads from the wire and refuses every option the remote
// proposes (DO -> WONT, WILL -> DONT). Control sequences stay in the stream;
// filterTelnetControlChars strips them afterwards.
type telnetNegotiator struct {
	conn net.Conn
}

func (n *telnetNegotiator) Read(p []byte) (int, error) {
	read, err := n.conn.Read(p)
	if read > 0 {
		n.respond(p[:read])
	}
	return read, err
}

func (n *telnetNegotiator) respond(data []byte) {
	var reply []byte
	for i := 0; i+2 < len(data); i++ {
		if data[i] != telnetIAC {
			continue
		}
		switch data[i+1] {
		case telnetDO:
			reply = append(reply, telnetIAC, telnetWONT, data[i+2])
		case telnetWILL:
			reply = append(reply, telnetIAC, telnetDONT, data[i+2])
		}
	}
	if len(reply) > 0 {
		n.conn.Write(reply)
	}
}

// telnetLogin walks the username/password prompts, plus the optional enable
// escalation used by managed switches.
func telnetLogin(ctx context.Context, c *shellConn, dev Device) error {
	if dev.Username == "" && dev.Password == "" {
		return nil
	}

	deadline := time.Now().Add(telnetLoginTimeout)
	var accumulated bytes.Buffer
	sentUser, sentPass := false, false

	for time.Now().Before(deadline) {
		c.drain(ctx, &accumulated, time.Until(deadline))
		text := strings.ToLower(accumulated.String())

		switch {
		case !sentUser && dev.Username != "" && containsAny(text, "login:", "username:", "user name:"):
			if _, err := fmt.Fprintf(c.stdin, "%s\r\n", dev.Username); err != nil {
				return err
			}
			sentUser = true
			accumulated.Reset()
		case !sentPass && isPasswordPrompt(text):
			if _, err := fmt.Fprintf(c.stdin, "%s\r\n", dev.Password); err != nil {
				return err
			}
			sentPass = true
			accumulated.Reset()
		case containsAny(text, "authentication failed", "login failed", "access denied", "login incorrect"):
			return fmt.Errorf("unable to authenticate as %s", dev.Username)
		case sentPass && isPromptLine(lastLine(accumulated.String())):
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if sentPass {
		// Prompt never matched a known pattern, but credentials went through.
		return nil
	}
	return fmt.Errorf("login prompt not seen within %v", telnetLoginTimeout)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// isPasswordPrompt distinguishes a password prompt from error text that
// merely mentions passwords.
func isPasswordPrompt(text string) bool {
	for _, errMsg := range []string{
		"password required, but none set",
		"password not set",
		"authentication failed",
		"login failed",
		"access denied",
	} {
		if strings.Contains(text, errMsg) {
			return false
		}
	}
	return containsAny(text, "password:", "passwd:", "pass:")
}

// filterTelnetControlChars strips IAC negotiation sequences from the stream.
// IAC IAC escapes a literal 0xFF byte.
func filterTelnetControlChars(data []byte) []byte {
	result := make([]byte, 0, len(data))

	for i := 0; i < len(data); i++ {
		if data[i] != telnetIAC {
			result = append(result, data[i])
			continue
		}
		if i+1 >= len(data) {
			break
		}
		switch data[i+1] {
		case telnetIAC:
			result = append(result, telnetIAC)
			i++
		case telnetWILL, telnetWONT, telnetDO, telnetDONT:
			i += 2
		case telnetSB:
			// Skip subnegotiation through IAC SE.
			i += 2
			for i+1 < len(data) {
				if data[i] == telnetIAC && data[i+1] == telnetSE {
					i++
					break
				}
				i++
			}
		default:
			i++
		}
	}

	return result
}

var _ io.Reader = (*telnetNegotiator)(nil)

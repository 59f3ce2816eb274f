package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"

	"github.com/netbatch/netbatch/pkg/jumphost"
)

// Tunnel maintains the long-lived SSH connection to the bastion host. The
// connection is shared across devices and sessions; establishment is
// single-flight so concurrent device tasks never race into redundant bastion
// logins.
type Tunnel struct {
	mu     sync.Mutex
	client *ssh.Client
	key    string // fingerprint of the config the client was built from

	group singleflight.Group
}

// NewTunnel creates an idle tunnel; the bastion is dialed on first use.
func NewTunnel() *Tunnel {
	return &Tunnel{}
}

// Dialer returns a DialFunc that routes connections through the bastion,
// establishing the bastion client first if needed.
func (t *Tunnel) Dialer(ctx context.Context, cfg jumphost.Config) (DialFunc, error) {
	client, err := t.clientFor(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		// ssh.Client.Dial has no context variant; bound it ourselves.
		return boundDial(ctx, func() (net.Conn, error) {
			return client.Dial(network, addr)
		})
	}, nil
}

// boundDial runs dial under ctx. When ctx wins, the dial keeps running in the
// background and its eventual connection is closed instead of leaking.
func boundDial(ctx context.Context, dial func() (net.Conn, error)) (net.Conn, error) {
	type dialResult struct {
		conn net.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := dial()
		ch <- dialResult{conn, err}
	}()
	select {
	case res := <-ch:
		return res.conn, res.err
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (t *Tunnel) clientFor(ctx context.Context, cfg jumphost.Config) (*ssh.Client, error) {
	key := fmt.Sprintf("%s@%s", cfg.Username, cfg.Addr())

	t.mu.Lock()
	if t.client != nil && t.key == key {
		client := t.client
		t.mu.Unlock()
		return client, nil
	}
	t.mu.Unlock()

	v, err, _ := t.group.Do(key, func() (interface{}, error) {
		t.mu.Lock()
		if t.client != nil && t.key == key {
			client := t.client
			t.mu.Unlock()
			return client, nil
		}
		stale := t.client
		t.client = nil
		t.key = ""
		t.mu.Unlock()

		if stale != nil {
			stale.Close()
		}

		sshCfg := &ssh.ClientConfig{
			User: cfg.Username,
			Auth: []ssh.AuthMethod{
				ssh.Password(cfg.Password),
			},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         10 * time.Second,
		}

		client, err := dialSSH(ctx, cfg.Addr(), sshCfg)
		if err != nil {
			return nil, fmt.Errorf("dialing bastion %s: %w", cfg.Addr(), err)
		}

		t.mu.Lock()
		t.client = client
		t.key = key
		t.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*ssh.Client), nil
}

// Close tears down the bastion connection if one exists.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	t.key = ""
	return err
}

// dialSSH is ssh.Dial with context-aware TCP establishment.
func dialSSH(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

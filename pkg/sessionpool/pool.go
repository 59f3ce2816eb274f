// Package sessionpool tracks live device sessions and enforces the
// at-most-one-session-per-device invariant.
package sessionpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/netbatch/netbatch/pkg/jumphost"
	"github.com/netbatch/netbatch/pkg/nlog"
	"github.com/netbatch/netbatch/pkg/transport"
)

// Connector opens new sessions; satisfied by *transport.Transport.
type Connector interface {
	Connect(ctx context.Context, dev transport.Device, jump jumphost.Config) (*transport.Session, error)
}

// Pool caches one live session per device ID and hands it to one holder at a
// time. Acquire blocks while another task holds the device, so command
// sequences from different jobs never interleave on one CLI session;
// different devices proceed fully in parallel.
type Pool struct {
	connector Connector
	log       *nlog.Logger
	idleTTL   time.Duration

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	cond    *sync.Cond // signaled when the device is released
	session *transport.Session
	held    bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithIdleTTL sets how long an idle session survives before the sweep
// disconnects it.
func WithIdleTTL(ttl time.Duration) Option {
	return func(p *Pool) { p.idleTTL = ttl }
}

// New creates a Pool.
func New(connector Connector, log *nlog.Logger, opts ...Option) *Pool {
	p := &Pool{
		connector: connector,
		log:       log.Named("sessionpool"),
		idleTTL:   10 * time.Minute,
		entries:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns the device's live session, opening one if absent. The
// caller holds the device exclusively until Release; a concurrent Acquire
// for the same device blocks until then, or fails with an exhaustion error
// when ctx expires first.
func (p *Pool) Acquire(ctx context.Context, dev transport.Device, jump jumphost.Config) (*transport.Session, error) {
	e := p.entryFor(dev.ID)

	// Wake waiters when the caller gives up.
	stop := context.AfterFunc(ctx, func() {
		e.mu.Lock()
		e.cond.Broadcast()
		e.mu.Unlock()
	})
	defer stop()

	e.mu.Lock()
	defer e.mu.Unlock()

	for e.held {
		if err := ctx.Err(); err != nil {
			return nil, transport.NewConnectError(transport.ConnectExhausted, dev.ID,
				fmt.Errorf("waiting for device session: %w", err))
		}
		e.cond.Wait()
	}

	if e.session != nil && e.session.Alive() {
		e.held = true
		e.session.Touch()
		return e.session, nil
	}

	session, err := p.connector.Connect(ctx, dev, jump)
	if err != nil {
		return nil, err
	}

	e.session = session
	e.held = true
	return session, nil
}

// Release hands the device back. The session stays cached for the next
// holder until the idle sweep or an explicit CloseAll disconnects it.
func (p *Pool) Release(deviceID string) {
	p.mu.Lock()
	e, ok := p.entries[deviceID]
	p.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.held = false
	if e.session != nil {
		e.session.Touch()
	}
	e.mu.Unlock()
	e.cond.Signal()
}

// CloseAll force-disconnects the given devices, or every cached session when
// no IDs are given.
func (p *Pool) CloseAll(deviceIDs ...string) error {
	if len(deviceIDs) == 0 {
		p.mu.Lock()
		for id := range p.entries {
			deviceIDs = append(deviceIDs, id)
		}
		p.mu.Unlock()
	}

	var firstErr error
	for _, id := range deviceIDs {
		p.mu.Lock()
		e, ok := p.entries[id]
		p.mu.Unlock()
		if !ok {
			continue
		}

		e.mu.Lock()
		if e.session != nil {
			if err := e.session.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("closing session for %s: %w", id, err)
			}
			e.session = nil
			e.held = false
		}
		e.mu.Unlock()
		e.cond.Broadcast()
	}
	return firstErr
}

// StartSweeper launches the idle sweep loop; it stops when ctx is cancelled.
func (p *Pool) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sweep()
			}
		}
	}()
}

// sweep disconnects sessions idle beyond the TTL. Held sessions are skipped.
func (p *Pool) sweep() {
	cutoff := time.Now().Add(-p.idleTTL)

	p.mu.Lock()
	candidates := make(map[string]*entry, len(p.entries))
	for id, e := range p.entries {
		candidates[id] = e
	}
	p.mu.Unlock()

	for id, e := range candidates {
		e.mu.Lock()
		if e.session != nil && !e.held && e.session.LastUsed().Before(cutoff) {
			p.log.Debug("sweeping idle session", "device", id)
			e.session.Close()
			e.session = nil
		}
		e.mu.Unlock()
	}
}

// Live reports whether a device currently has a live cached session.
func (p *Pool) Live(deviceID string) bool {
	p.mu.Lock()
	e, ok := p.entries[deviceID]
	p.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil && e.session.Alive()
}

func (p *Pool) entryFor(deviceID string) *entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[deviceID]
	if !ok {
		e = &entry{}
		e.cond = sync.NewCond(&e.mu)
		p.entries[deviceID] = e
	}
	return e
}

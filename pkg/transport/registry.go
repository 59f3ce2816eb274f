package transport

import (
	"strings"
	"sync"
)

// Registry maps platform identifiers to session drivers. Lookup falls back to
// a per-protocol generic driver so unknown platforms still get a session.
type Registry struct {
	mu       sync.RWMutex
	drivers  map[string]Driver
	fallback map[Protocol]Driver
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		drivers:  make(map[string]Driver),
		fallback: make(map[Protocol]Driver),
	}
}

// Register binds a platform identifier to a driver.
func (r *Registry) Register(platform string, d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drivers[normalizePlatform(platform)] = d
}

// RegisterFallback binds the driver used when no platform entry matches.
func (r *Registry) RegisterFallback(p Protocol, d Driver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback[p] = d
}

// Lookup resolves the driver for a platform, falling back by protocol.
func (r *Registry) Lookup(platform string, p Protocol) (Driver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.drivers[normalizePlatform(platform)]; ok {
		return d, true
	}
	d, ok := r.fallback[p]
	return d, ok
}

func normalizePlatform(platform string) string {
	return strings.ToLower(strings.TrimSpace(platform))
}

// DefaultRegistry returns a registry wired with the built-in drivers. Network
// OS platforms get the interactive shell driver (their CLIs depend on session
// state such as pagination toggles); plain servers get one-shot exec.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	shell := NewSSHShellDriver()
	for _, platform := range []string{
		"cisco_ios", "cisco_iosxe", "cisco_nxos",
		"huawei_vrp", "h3c_comware", "juniper_junos",
	} {
		r.Register(platform, shell)
	}

	r.Register("linux", NewSSHExecDriver())

	r.RegisterFallback(ProtocolSSH, shell)
	r.RegisterFallback(ProtocolTelnet, NewTelnetDriver())
	return r
}

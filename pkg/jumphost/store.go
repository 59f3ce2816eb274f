// Package jumphost holds the bastion-host configuration shared by every
// tunneled connection. The config lives in the KV store so admin updates
// take effect without a restart; callers load it explicitly when they need
// it (at job submission time) instead of reading cached global state.
package jumphost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/netbatch/netbatch/pkg/kv"
)

const configKey = "jumphost:config"

// Config describes the bastion host used for tunneled device connections.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Addr returns the dialable host:port of the bastion.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

// Store persists the process-wide jumphost configuration.
type Store struct {
	kv kv.Store
}

// NewStore creates a Store backed by the given KV store.
func NewStore(kvStore kv.Store) *Store {
	return &Store{kv: kvStore}
}

// Load returns the current jumphost configuration. A missing key means
// tunneling was never configured and yields a disabled config.
func (s *Store) Load(ctx context.Context) (Config, error) {
	data, err := s.kv.Get(ctx, configKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("loading jumphost config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing jumphost config: %w", err)
	}
	return cfg, nil
}

// Save replaces the jumphost configuration.
func (s *Store) Save(ctx context.Context, cfg Config) error {
	if cfg.Enabled && cfg.Host == "" {
		return errors.New("jumphost host is required when tunneling is enabled")
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding jumphost config: %w", err)
	}
	if err := s.kv.Set(ctx, configKey, data, 0); err != nil {
		return fmt.Errorf("saving jumphost config: %w", err)
	}
	return nil
}

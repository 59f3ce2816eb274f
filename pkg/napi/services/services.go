package services

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/netbatch/netbatch/pkg/engine"
	"github.com/netbatch/netbatch/pkg/inventory"
	"github.com/netbatch/netbatch/pkg/jumphost"
	"github.com/netbatch/netbatch/pkg/kv"
	"github.com/netbatch/netbatch/pkg/napi/config"
	"github.com/netbatch/netbatch/pkg/nart"
	"github.com/netbatch/netbatch/pkg/nlog"
	"github.com/netbatch/netbatch/pkg/progress"
	"github.com/netbatch/netbatch/pkg/runner"
	"github.com/netbatch/netbatch/pkg/sessionpool"
	"github.com/netbatch/netbatch/pkg/transport"
)

const sweepInterval = time.Minute

type Services struct {
	Inventory   *inventory.Service
	Jumphosts   *jumphost.Store
	Engine      *engine.Engine
	Pool        *sessionpool.Pool
	Artifacts   nart.Store
	Broadcaster *progress.Broadcaster
	KV          kv.Store
}

// NewServices wires the full service graph from config. The context bounds
// background workers (the session sweeper); cancel it on shutdown.
func NewServices(ctx context.Context, cfg *config.EnvConfig, db *bun.DB, log *nlog.Logger) (*Services, error) {
	kvStore, err := newKV(cfg)
	if err != nil {
		return nil, err
	}

	artifacts, err := newArtifactStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	topts := []transport.Option{
		transport.WithConnectTimeout(time.Duration(cfg.ConnectTimeoutSec) * time.Second),
	}
	if cfg.Simulate {
		topts = append(topts, transport.WithSimulateFallback())
	}
	if cfg.TranscriptDir != "" {
		topts = append(topts, transport.WithTranscriptDir(cfg.TranscriptDir))
	}
	tr := transport.New(log, topts...)

	pool := sessionpool.New(tr, log,
		sessionpool.WithIdleTTL(time.Duration(cfg.SessionIdleSec)*time.Second))
	pool.StartSweeper(ctx, sweepInterval)

	run := runner.New(log,
		runner.WithCommandTimeout(time.Duration(cfg.CommandTimeoutSec)*time.Second))

	invSvc := inventory.NewService(db, inventory.WithDefaults(inventory.Defaults{
		Username:       cfg.DeviceUsername,
		Password:       cfg.DevicePassword,
		EnablePassword: cfg.DeviceEnablePassword,
	}))

	jumphosts := jumphost.NewStore(kvStore)
	broadcaster := progress.NewBroadcaster(kvStore)
	recorder := nart.NewRecorder(artifacts)

	eng := engine.New(pool, run, invSvc, jumphosts, recorder, broadcaster, log,
		engine.WithArchiver(invSvc))

	return &Services{
		Inventory:   invSvc,
		Jumphosts:   jumphosts,
		Engine:      eng,
		Pool:        pool,
		Artifacts:   artifacts,
		Broadcaster: broadcaster,
		KV:          kvStore,
	}, nil
}

func newKV(cfg *config.EnvConfig) (kv.Store, error) {
	if cfg.ValkeyAddr == "" {
		return kv.NewMemoryStore(), nil
	}
	store, err := kv.NewValkeyStore(kv.ValkeyConfig{
		Addr:     cfg.ValkeyAddr,
		Password: cfg.ValkeyPassword,
		DB:       cfg.ValkeyDB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return store, nil
}

func newArtifactStore(ctx context.Context, cfg *config.EnvConfig) (nart.Store, error) {
	switch cfg.ArtifactBackend {
	case "s3":
		store, err := nart.NewS3Store(nart.S3Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 store: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure bucket: %w", err)
		}
		return store, nil
	default:
		store, err := nart.NewFSStore(cfg.ArtifactDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create fs store: %w", err)
		}
		return store, nil
	}
}

// Close releases held connections.
func (s *Services) Close() error {
	var firstErr error
	if err := s.Pool.CloseAll(); err != nil {
		firstErr = err
	}
	if err := s.KV.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

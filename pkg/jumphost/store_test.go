package jumphost

import (
	"context"
	"testing"

	"github.com/netbatch/netbatch/pkg/kv"
)

func TestStore_LoadUnconfigured(t *testing.T) {
	store := NewStore(kv.NewMemoryStore())

	cfg, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Enabled {
		t.Error("Expected disabled config when nothing was saved")
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemoryStore())

	in := Config{
		Enabled:  true,
		Host:     "bastion.example.com",
		Port:     2222,
		Username: "netops",
		Password: "secret",
	}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestStore_SaveRejectsEnabledWithoutHost(t *testing.T) {
	store := NewStore(kv.NewMemoryStore())

	err := store.Save(context.Background(), Config{Enabled: true})
	if err == nil {
		t.Fatal("Expected error for enabled config without host")
	}
}

func TestStore_SaveDisabledWithoutHost(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemoryStore())

	if err := store.Save(ctx, Config{Enabled: false}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := Config{Host: "bastion"}
	if cfg.Addr() != "bastion:22" {
		t.Errorf("Expected default port 22, got %s", cfg.Addr())
	}

	cfg.Port = 2200
	if cfg.Addr() != "bastion:2200" {
		t.Errorf("Expected bastion:2200, got %s", cfg.Addr())
	}
}

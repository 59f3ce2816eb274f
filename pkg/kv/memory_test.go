package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Expected v, got %s", got)
	}
}

func TestMemoryStore_GetMissing(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("Get before expiry failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after expiry, got %v", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Set(ctx, "k", []byte("v"), 0)
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore_SetNX(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	ok, err := store.SetNX(ctx, "k", []byte("first"), 0)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected first SetNX to win")
	}

	ok, err = store.SetNX(ctx, "k", []byte("second"), 0)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if ok {
		t.Error("Expected second SetNX to lose")
	}

	got, _ := store.Get(ctx, "k")
	if string(got) != "first" {
		t.Errorf("Expected first, got %s", got)
	}
}

func TestMemoryStore_SetNXAfterExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.SetNX(ctx, "k", []byte("first"), 5*time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	ok, err := store.SetNX(ctx, "k", []byte("second"), 0)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Error("Expected SetNX to win after the previous value expired")
	}
}

func TestMemoryStore_GetCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Set(ctx, "k", []byte("abc"), 0)
	got, _ := store.Get(ctx, "k")
	got[0] = 'X'

	again, _ := store.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("Stored value mutated through returned slice: %s", again)
	}
}

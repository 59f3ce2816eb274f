package progress

import (
	"context"
	"testing"
	"time"

	"github.com/netbatch/netbatch/pkg/kv"
)

func TestBroadcaster_FanOut(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(nil)

	ch1, cancel1 := b.Subscribe("j1")
	defer cancel1()
	ch2, cancel2 := b.Subscribe("j1")
	defer cancel2()

	b.Publish(ctx, Snapshot{JobID: "j1", Status: "running", Percent: 50})

	for i, ch := range []<-chan Snapshot{ch1, ch2} {
		select {
		case snap := <-ch:
			if snap.Percent != 50 {
				t.Errorf("Subscriber %d: expected 50%%, got %v", i, snap.Percent)
			}
		case <-time.After(time.Second):
			t.Fatalf("Subscriber %d: no snapshot received", i)
		}
	}
}

func TestBroadcaster_JobScoped(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(nil)

	ch, cancel := b.Subscribe("other")
	defer cancel()

	b.Publish(ctx, Snapshot{JobID: "j1", Status: "running"})

	select {
	case snap := <-ch:
		t.Errorf("Unexpected snapshot for other job: %+v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_SlowSubscriberNeverBlocks(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(nil)

	_, cancel := b.Subscribe("j1")
	defer cancel()

	// Publish well past the subscriber buffer; nothing reads the channel.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(ctx, Snapshot{JobID: "j1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestBroadcaster_CancelIdempotent(t *testing.T) {
	b := NewBroadcaster(nil)

	_, cancel := b.Subscribe("j1")
	cancel()
	cancel()

	// Publishing after cancel must not panic on a closed channel.
	b.Publish(context.Background(), Snapshot{JobID: "j1"})
}

func TestBroadcaster_LatestFromCache(t *testing.T) {
	ctx := context.Background()
	b := NewBroadcaster(kv.NewMemoryStore())

	if _, ok := b.Latest(ctx, "j1"); ok {
		t.Fatal("Expected no snapshot before publish")
	}

	b.Publish(ctx, Snapshot{JobID: "j1", Status: "running", CompletedDevices: 3, TotalDevices: 10})

	snap, ok := b.Latest(ctx, "j1")
	if !ok {
		t.Fatal("Expected cached snapshot after publish")
	}
	if snap.CompletedDevices != 3 || snap.TotalDevices != 10 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

func TestBroadcaster_LatestWithoutCache(t *testing.T) {
	b := NewBroadcaster(nil)
	b.Publish(context.Background(), Snapshot{JobID: "j1"})

	if _, ok := b.Latest(context.Background(), "j1"); ok {
		t.Error("Expected no Latest without a cache backend")
	}
}

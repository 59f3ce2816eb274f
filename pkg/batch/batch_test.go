package batch

import (
	"testing"
	"time"
)

func TestPartition_Empty(t *testing.T) {
	if got := Partition(nil, 5); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
}

func TestPartition_SingleBatch(t *testing.T) {
	ids := []string{"a", "b", "c"}

	for _, size := range []int{0, -1, 3, 10} {
		batches := Partition(ids, size)
		if len(batches) != 1 {
			t.Fatalf("size %d: expected 1 batch, got %d", size, len(batches))
		}
		if len(batches[0]) != 3 {
			t.Errorf("size %d: expected 3 devices in batch, got %d", size, len(batches[0]))
		}
	}
}

func TestPartition_SplitsContiguously(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g"}

	batches := Partition(ids, 3)
	if len(batches) != 3 {
		t.Fatalf("Expected 3 batches, got %d", len(batches))
	}

	// Every device appears exactly once, in original order.
	var flat []string
	for _, b := range batches {
		flat = append(flat, b...)
	}
	if len(flat) != len(ids) {
		t.Fatalf("Expected %d devices total, got %d", len(ids), len(flat))
	}
	for i, id := range flat {
		if id != ids[i] {
			t.Errorf("Position %d: expected %s, got %s", i, ids[i], id)
		}
	}

	// All batches except the last are full.
	for i := 0; i < len(batches)-1; i++ {
		if len(batches[i]) != 3 {
			t.Errorf("Batch %d: expected 3 devices, got %d", i, len(batches[i]))
		}
	}
	if len(batches[2]) != 1 {
		t.Errorf("Last batch: expected 1 device, got %d", len(batches[2]))
	}
}

func TestPartition_ExactMultiple(t *testing.T) {
	batches := Partition([]string{"a", "b", "c", "d"}, 2)
	if len(batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(batches))
	}
	for i, b := range batches {
		if len(b) != 2 {
			t.Errorf("Batch %d: expected 2 devices, got %d", i, len(b))
		}
	}
}

func TestNextDelay_Unlimited(t *testing.T) {
	if d := NextDelay(0, 10); d != 0 {
		t.Errorf("Expected no delay for rate limit 0, got %v", d)
	}
	if d := NextDelay(-5, 10); d != 0 {
		t.Errorf("Expected no delay for negative rate limit, got %v", d)
	}
}

func TestNextDelay_Paces(t *testing.T) {
	// 60 devices/hour is 1 device/minute; a 5-device batch buys 5 minutes.
	if d := NextDelay(60, 5); d != 5*time.Minute {
		t.Errorf("Expected 5m, got %v", d)
	}

	// 120 devices/hour, 10 devices: 5 minutes.
	if d := NextDelay(120, 10); d != 5*time.Minute {
		t.Errorf("Expected 5m, got %v", d)
	}
}

func TestNextDelay_EmptyBatch(t *testing.T) {
	if d := NextDelay(60, 0); d != 0 {
		t.Errorf("Expected no delay for empty batch, got %v", d)
	}
}

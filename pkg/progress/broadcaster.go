// Package progress fans job progress snapshots out to subscribers. Delivery
// is best-effort, at-least-once per meaningful change: a slow subscriber
// drops updates instead of backpressuring the orchestrator, and the latest
// snapshot is always pullable for reconnects.
package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/netbatch/netbatch/pkg/kv"
)

// GroupProgress is a per-group (e.g. per-country) completion rollup.
type GroupProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Snapshot is one point-in-time view of a job's progress.
type Snapshot struct {
	JobID            string                   `json:"job_id"`
	Status           string                   `json:"status"`
	TotalDevices     int                      `json:"total_devices"`
	CompletedDevices int                      `json:"completed_devices"`
	Percent          float64                  `json:"percent"`
	CurrentDevice    string                   `json:"current_device,omitempty"`
	CurrentCommand   string                   `json:"current_command,omitempty"`
	Groups           map[string]GroupProgress `json:"groups,omitempty"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

const (
	subscriberBuffer = 32
	snapshotTTL      = 24 * time.Hour
)

// Broadcaster distributes snapshots to any number of subscribers per job and
// mirrors the latest snapshot into the KV store for pull-based catch-up.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan Snapshot
	nextID int

	cache kv.Store // optional
}

// NewBroadcaster creates a Broadcaster. cache may be nil.
func NewBroadcaster(cache kv.Store) *Broadcaster {
	return &Broadcaster{
		subs:  make(map[string]map[int]chan Snapshot),
		cache: cache,
	}
}

// Publish fans a snapshot out to the job's subscribers. It never blocks: a
// subscriber whose buffer is full misses this update and catches up on the
// next one or via Latest.
func (b *Broadcaster) Publish(ctx context.Context, snap Snapshot) {
	snap.UpdatedAt = time.Now()

	b.mu.Lock()
	for _, ch := range b.subs[snap.JobID] {
		select {
		case ch <- snap:
		default:
		}
	}
	b.mu.Unlock()

	if b.cache != nil {
		if data, err := json.Marshal(snap); err == nil {
			// Best-effort; a failed cache write is invisible to subscribers.
			_ = b.cache.Set(ctx, snapshotKey(snap.JobID), data, snapshotTTL)
		}
	}
}

// Subscribe attaches to a job's snapshot stream. The returned cancel func
// detaches and closes the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe(jobID string) (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	b.mu.Lock()
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[int]chan Snapshot)
	}
	id := b.nextID
	b.nextID++
	b.subs[jobID][id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[jobID], id)
			if len(b.subs[jobID]) == 0 {
				delete(b.subs, jobID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Latest returns the most recent snapshot published for a job, if any.
func (b *Broadcaster) Latest(ctx context.Context, jobID string) (Snapshot, bool) {
	if b.cache == nil {
		return Snapshot{}, false
	}
	data, err := b.cache.Get(ctx, snapshotKey(jobID))
	if err != nil {
		return Snapshot{}, false
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false
	}
	return snap, true
}

func snapshotKey(jobID string) string {
	return "progress:" + jobID
}

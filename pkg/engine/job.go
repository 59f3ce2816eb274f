package engine

import (
	"sync"
	"time"

	"github.com/netbatch/netbatch/pkg/runner"
	"github.com/netbatch/netbatch/pkg/transport"
)

// JobStatus is the lifecycle state of one batch-execution job.
// Transitions are monotonic: pending -> running -> (stopping) ->
// {completed | stopped}, with failed reserved for validation-time rejection.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobStopping  JobStatus = "stopping"
	JobStopped   JobStatus = "stopped"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// terminal reports whether no further transitions can happen.
func (s JobStatus) terminal() bool {
	return s == JobStopped || s == JobCompleted || s == JobFailed
}

// DeviceStatus is the per-device outcome within a job.
type DeviceStatus string

const (
	DevicePending   DeviceStatus = "pending"
	DeviceRunning   DeviceStatus = "running"
	DeviceCompleted DeviceStatus = "completed"
	DeviceFailed    DeviceStatus = "failed"
	// DeviceSimulated means the device ran against a simulated session. Kept
	// distinct from DeviceCompleted so fabricated output is never presented
	// as a genuine success.
	DeviceSimulated DeviceStatus = "simulated"
)

// Spec is a job submission: which devices, which commands, how to pace.
type Spec struct {
	DeviceIDs []string `json:"device_ids"`
	Commands  []string `json:"commands"`
	// BatchSize devices run concurrently per batch; 0 means one batch of
	// everything.
	BatchSize int `json:"batch_size"`
	// RateLimit is a devices-per-hour budget; 0 means unlimited.
	RateLimit int `json:"rate_limit"`
}

// DeviceResult is the per-device outcome record.
type DeviceResult struct {
	DeviceID   string          `json:"device_id"`
	Group      string          `json:"group,omitempty"`
	Status     DeviceStatus    `json:"status"`
	Error      string          `json:"error,omitempty"`
	ErrorKind  string          `json:"error_kind,omitempty"`
	Commands   []runner.Result `json:"commands,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Succeeded counts commands that returned output (success or simulated).
func (d DeviceResult) Succeeded() int {
	n := 0
	for _, c := range d.Commands {
		if c.Status == runner.CommandSuccess || c.Status == runner.CommandSimulated {
			n++
		}
	}
	return n
}

// Job is one batch-execution run. Mutated only by the engine; read through
// View snapshots.
type Job struct {
	ID        string
	Spec      Spec
	CreatedAt time.Time

	mu         sync.RWMutex
	status     JobStatus
	startedAt  *time.Time
	finishedAt *time.Time
	batches    [][]string
	results    map[string]*DeviceResult
	order      []string // device order for stable views
	stopCh     chan struct{}
	stopped    bool
}

func newJob(id string, spec Spec, devices []transport.Device, batches [][]string) *Job {
	j := &Job{
		ID:        id,
		Spec:      spec,
		CreatedAt: time.Now(),
		status:    JobPending,
		batches:   batches,
		results:   make(map[string]*DeviceResult, len(spec.DeviceIDs)),
		order:     append([]string(nil), spec.DeviceIDs...),
		stopCh:    make(chan struct{}),
	}
	groups := make(map[string]string, len(devices))
	for _, d := range devices {
		groups[d.ID] = d.Group
	}
	for _, id := range spec.DeviceIDs {
		j.results[id] = &DeviceResult{
			DeviceID: id,
			Group:    groups[id],
			Status:   DevicePending,
		}
	}
	return j
}

// Status returns the current job status.
func (j *Job) Status() JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

// requestStop flags the job to stop at the next batch boundary. Returns
// false when the job is already terminal or already stopping.
func (j *Job) requestStop() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped || j.status.terminal() {
		return false
	}
	j.stopped = true
	if j.status == JobRunning {
		j.status = JobStopping
	}
	close(j.stopCh)
	return true
}

func (j *Job) stopRequested() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stopped
}

func (j *Job) setRunning() {
	now := time.Now()
	j.mu.Lock()
	j.status = JobRunning
	j.startedAt = &now
	j.mu.Unlock()
}

// finish settles the terminal status: stopped when a stop was requested,
// completed otherwise.
func (j *Job) finish() JobStatus {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.stopped {
		j.status = JobStopped
	} else {
		j.status = JobCompleted
	}
	j.finishedAt = &now
	return j.status
}

func (j *Job) updateDevice(deviceID string, mutate func(*DeviceResult)) {
	j.mu.Lock()
	if dr, ok := j.results[deviceID]; ok {
		mutate(dr)
	}
	j.mu.Unlock()
}

// View is an immutable snapshot of a job for the status surface.
type View struct {
	ID         string         `json:"id"`
	Spec       Spec           `json:"spec"`
	Status     JobStatus      `json:"status"`
	BatchCount int            `json:"batch_count"`
	CreatedAt  time.Time      `json:"created_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Devices    []DeviceResult `json:"devices"`
	Completed  int            `json:"completed_devices"`
	Total      int            `json:"total_devices"`
	Percent    float64        `json:"percent"`
}

// View snapshots the job under its lock.
func (j *Job) View() View {
	j.mu.RLock()
	defer j.mu.RUnlock()

	v := View{
		ID:         j.ID,
		Spec:       j.Spec,
		Status:     j.status,
		BatchCount: len(j.batches),
		CreatedAt:  j.CreatedAt,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
		Total:      len(j.order),
		Devices:    make([]DeviceResult, 0, len(j.order)),
	}
	for _, id := range j.order {
		dr := j.results[id]
		cp := *dr
		cp.Commands = append([]runner.Result(nil), dr.Commands...)
		v.Devices = append(v.Devices, cp)
		if deviceTerminal(dr.Status) {
			v.Completed++
		}
	}
	if v.Total > 0 {
		v.Percent = float64(v.Completed) / float64(v.Total) * 100
	}
	return v
}

func deviceTerminal(s DeviceStatus) bool {
	return s == DeviceCompleted || s == DeviceFailed || s == DeviceSimulated
}

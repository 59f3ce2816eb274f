// Package engine orchestrates batch command-execution jobs: it fans out one
// task per device within a batch, synchronizes at batch boundaries, paces
// batches against the rate limit, and isolates failures at the narrowest
// scope so a single device never aborts a job.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/netbatch/netbatch/pkg/batch"
	"github.com/netbatch/netbatch/pkg/jumphost"
	"github.com/netbatch/netbatch/pkg/nart"
	"github.com/netbatch/netbatch/pkg/nlog"
	"github.com/netbatch/netbatch/pkg/progress"
	"github.com/netbatch/netbatch/pkg/runner"
	"github.com/netbatch/netbatch/pkg/sessionpool"
	"github.com/netbatch/netbatch/pkg/transport"
)

// Validation errors surfaced synchronously at submission; the job never starts.
var (
	ErrNoDevices  = errors.New("device list is empty")
	ErrNoCommands = errors.New("command list is empty")
	ErrNotFound   = errors.New("job not found")
	ErrNotRunning = errors.New("job is not running")
)

// Inventory supplies device connection details by ID.
type Inventory interface {
	ListDevices(ctx context.Context, ids []string) ([]transport.Device, error)
}

// JumphostLoader loads the bastion config at submission time.
type JumphostLoader interface {
	Load(ctx context.Context) (jumphost.Config, error)
}

// Archiver persists finished job summaries (e.g. to Postgres). Optional.
type Archiver interface {
	ArchiveJob(ctx context.Context, view View) error
}

// Engine owns job lifecycles.
type Engine struct {
	pool        *sessionpool.Pool
	runner      *runner.Runner
	inventory   Inventory
	jumphosts   JumphostLoader
	recorder    *nart.Recorder
	broadcaster *progress.Broadcaster
	archiver    Archiver
	log         *nlog.Logger

	mu   sync.RWMutex
	jobs map[string]*Job
}

// Option configures an Engine.
type Option func(*Engine)

// WithArchiver persists finished jobs through the given archiver.
func WithArchiver(a Archiver) Option {
	return func(e *Engine) { e.archiver = a }
}

// New creates an Engine.
func New(pool *sessionpool.Pool, r *runner.Runner, inv Inventory, jh JumphostLoader,
	rec *nart.Recorder, bc *progress.Broadcaster, log *nlog.Logger, opts ...Option) *Engine {
	e := &Engine{
		pool:        pool,
		runner:      r,
		inventory:   inv,
		jumphosts:   jh,
		recorder:    rec,
		broadcaster: bc,
		log:         log.Named("engine"),
		jobs:        make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit validates and registers a job, then executes it asynchronously.
// It returns the job ID and derived batch count immediately.
func (e *Engine) Submit(ctx context.Context, spec Spec) (string, int, error) {
	if len(spec.DeviceIDs) == 0 {
		return "", 0, ErrNoDevices
	}
	if len(spec.Commands) == 0 {
		return "", 0, ErrNoCommands
	}

	// A duplicated ID would fan out two concurrent tasks for one device in
	// the same batch and inflate the progress totals.
	spec.DeviceIDs = dedupe(spec.DeviceIDs)

	devices, err := e.inventory.ListDevices(ctx, spec.DeviceIDs)
	if err != nil {
		return "", 0, fmt.Errorf("resolving devices: %w", err)
	}

	// The jumphost config is loaded once per submission, not cached across
	// jobs, so admin changes apply to the next job.
	jump, err := e.jumphosts.Load(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("loading jumphost config: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", 0, fmt.Errorf("generating job ID: %w", err)
	}

	batches := batch.Partition(spec.DeviceIDs, spec.BatchSize)
	job := newJob(id.String(), spec, devices, batches)

	e.mu.Lock()
	e.jobs[job.ID] = job
	e.mu.Unlock()

	byID := make(map[string]transport.Device, len(devices))
	for _, d := range devices {
		byID[d.ID] = d
	}

	e.log.Info("job submitted", "job", job.ID,
		"devices", len(spec.DeviceIDs), "commands", len(spec.Commands),
		"batches", len(batches), "rate_limit", spec.RateLimit)

	go e.run(job, byID, jump)

	return job.ID, len(batches), nil
}

// Get returns a snapshot of a job.
func (e *Engine) Get(jobID string) (View, error) {
	job, err := e.job(jobID)
	if err != nil {
		return View{}, err
	}
	return job.View(), nil
}

// List returns snapshots of all retained jobs, newest first.
func (e *Engine) List() []View {
	e.mu.RLock()
	views := make([]View, 0, len(e.jobs))
	for _, job := range e.jobs {
		views = append(views, job.View())
	}
	e.mu.RUnlock()

	sort.Slice(views, func(i, k int) bool { return views[i].ID > views[k].ID })
	return views
}

// Stop requests a cooperative stop. In-flight device command sequences run
// to completion; no new devices or batches start. Stopping an already
// terminal job is a no-op.
func (e *Engine) Stop(jobID string) error {
	job, err := e.job(jobID)
	if err != nil {
		return err
	}
	if job.requestStop() {
		e.log.Info("stop requested", "job", jobID)
		e.publish(context.Background(), job, "", "")
	}
	return nil
}

// Clear removes a terminal job from the registry. Artifacts are untouched.
func (e *Engine) Clear(jobID string) error {
	job, err := e.job(jobID)
	if err != nil {
		return err
	}
	if !job.Status().terminal() {
		return fmt.Errorf("%w: job %s is %s", ErrNotRunning, jobID, job.Status())
	}
	e.mu.Lock()
	delete(e.jobs, jobID)
	e.mu.Unlock()
	return nil
}

// RetryFailed submits a new job covering only the devices that failed in a
// prior job. The engine performs no automatic retries; this is the
// caller-driven path.
func (e *Engine) RetryFailed(ctx context.Context, jobID string) (string, int, error) {
	prior, err := e.Get(jobID)
	if err != nil {
		return "", 0, err
	}

	var failed []string
	for _, dr := range prior.Devices {
		if dr.Status == DeviceFailed {
			failed = append(failed, dr.DeviceID)
		}
	}
	if len(failed) == 0 {
		return "", 0, fmt.Errorf("job %s has no failed devices: %w", jobID, ErrNoDevices)
	}

	spec := prior.Spec
	spec.DeviceIDs = failed
	return e.Submit(ctx, spec)
}

// dedupe keeps the first occurrence of each ID, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (e *Engine) job(jobID string) (*Job, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	job, ok := e.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	return job, nil
}

// run drives the job to a terminal state. It owns all job mutation.
func (e *Engine) run(job *Job, devices map[string]transport.Device, jump jumphost.Config) {
	// Job execution outlives the submitting request.
	ctx := context.Background()

	job.setRunning()
	e.publish(ctx, job, "", "")

	for i, deviceIDs := range job.batches {
		if job.stopRequested() {
			break
		}

		e.log.Info("batch started", "job", job.ID, "batch", i+1, "devices", len(deviceIDs))

		var wg sync.WaitGroup
		for _, deviceID := range deviceIDs {
			wg.Add(1)
			go func(deviceID string) {
				defer wg.Done()
				e.runDevice(ctx, job, devices, deviceID, jump)
			}(deviceID)
		}
		wg.Wait()

		if i < len(job.batches)-1 && !job.stopRequested() {
			delay := batch.NextDelay(job.Spec.RateLimit, len(deviceIDs))
			if delay > 0 {
				e.log.Debug("rate limit delay", "job", job.ID, "delay", delay)
				e.sleep(job, delay)
			}
		}
	}

	status := job.finish()
	e.publish(ctx, job, "", "")
	e.log.Info("job finished", "job", job.ID, "status", status)

	view := job.View()
	if _, err := e.recorder.SaveJobSummary(ctx, job.ID, view); err != nil {
		e.log.Warn("saving job summary failed", "job", job.ID, "err", err)
	}
	if e.archiver != nil {
		if err := e.archiver.ArchiveJob(ctx, view); err != nil {
			e.log.Warn("archiving job failed", "job", job.ID, "err", err)
		}
	}
}

// runDevice is one fan-out unit: acquire a session, run the full command
// sequence, record the outcome. All failures stay scoped to this device.
func (e *Engine) runDevice(ctx context.Context, job *Job, devices map[string]transport.Device, deviceID string, jump jumphost.Config) {
	now := time.Now()
	job.updateDevice(deviceID, func(dr *DeviceResult) {
		dr.Status = DeviceRunning
		dr.StartedAt = &now
	})
	e.publish(ctx, job, deviceID, "")

	dev, known := devices[deviceID]
	if !known {
		e.failDevice(ctx, job, deviceID,
			transport.NewConnectError(transport.ConnectPlatform, deviceID, fmt.Errorf("device %s not in inventory", deviceID)))
		return
	}

	session, err := e.pool.Acquire(ctx, dev, jump)
	if err != nil {
		e.failDevice(ctx, job, deviceID, err)
		return
	}
	defer e.pool.Release(deviceID)

	results := e.runner.Run(ctx, session, job.Spec.Commands, func(idx int, res runner.Result) {
		job.updateDevice(deviceID, func(dr *DeviceResult) {
			if len(dr.Commands) <= idx {
				dr.Commands = append(dr.Commands, res)
			} else {
				dr.Commands[idx] = res
			}
		})
		e.publish(ctx, job, deviceID, res.Command)

		// Failed commands keep whatever partial output came back before the
		// timeout or rejection; only output-less failures are skipped.
		if res.Status == runner.CommandSuccess || res.Status == runner.CommandSimulated || res.Output != "" {
			if _, err := e.recorder.SaveCommandOutput(ctx, job.ID, deviceID, res.Command, res.Output, res.Timestamp); err != nil {
				e.log.Warn("saving command output failed", "job", job.ID, "device", deviceID, "err", err)
			}
		}
	})

	finished := time.Now()
	status := DeviceCompleted
	if session.Simulated() {
		status = DeviceSimulated
	}
	job.updateDevice(deviceID, func(dr *DeviceResult) {
		dr.Status = status
		dr.Commands = results
		dr.FinishedAt = &finished
	})
	e.publish(ctx, job, "", "")
}

func (e *Engine) failDevice(ctx context.Context, job *Job, deviceID string, err error) {
	now := time.Now()
	kind := ""
	var connErr *transport.ConnectError
	if errors.As(err, &connErr) {
		kind = string(connErr.Kind)
	}

	job.updateDevice(deviceID, func(dr *DeviceResult) {
		dr.Status = DeviceFailed
		dr.Error = err.Error()
		dr.ErrorKind = kind
		dr.FinishedAt = &now
	})
	e.log.Warn("device failed", "job", job.ID, "device", deviceID, "kind", kind, "err", err)
	e.publish(ctx, job, "", "")
}

// sleep waits out the rate-limit delay but wakes early on a stop request.
func (e *Engine) sleep(job *Job, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-job.stopCh:
	}
}

// publish pushes a fresh snapshot to the broadcaster.
func (e *Engine) publish(ctx context.Context, job *Job, currentDevice, currentCommand string) {
	view := job.View()

	groups := make(map[string]progress.GroupProgress)
	for _, dr := range view.Devices {
		if dr.Group == "" {
			continue
		}
		g := groups[dr.Group]
		g.Total++
		if deviceTerminal(dr.Status) {
			g.Completed++
		}
		groups[dr.Group] = g
	}
	if len(groups) == 0 {
		groups = nil
	}

	e.broadcaster.Publish(ctx, progress.Snapshot{
		JobID:            job.ID,
		Status:           string(view.Status),
		TotalDevices:     view.Total,
		CompletedDevices: view.Completed,
		Percent:          view.Percent,
		CurrentDevice:    currentDevice,
		CurrentCommand:   currentCommand,
		Groups:           groups,
	})
}

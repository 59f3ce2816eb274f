package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/netbatch/netbatch/pkg/jumphost"
	"github.com/netbatch/netbatch/pkg/kv"
	"github.com/netbatch/netbatch/pkg/nart"
	"github.com/netbatch/netbatch/pkg/nlog"
	"github.com/netbatch/netbatch/pkg/progress"
	"github.com/netbatch/netbatch/pkg/runner"
	"github.com/netbatch/netbatch/pkg/sessionpool"
	"github.com/netbatch/netbatch/pkg/transport"
)

type echoConn struct{}

func (echoConn) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	return "output of " + command, nil
}
func (echoConn) Close() error { return nil }

// partialFailConn fails every command but still returns the output captured
// before the failure.
type partialFailConn struct{}

func (partialFailConn) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	return "partial output of " + command, errors.New("command timed out")
}
func (partialFailConn) Close() error { return nil }

// fakeConnector fabricates direct sessions, failing for the devices in
// failIDs with a connect error.
type fakeConnector struct {
	failIDs map[string]bool
	conn    transport.Conn
}

func (c *fakeConnector) Connect(ctx context.Context, dev transport.Device, jump jumphost.Config) (*transport.Session, error) {
	if c.failIDs[dev.ID] {
		return nil, transport.NewConnectError(transport.ConnectTimeout, dev.ID, errors.New("dial tcp: i/o timeout"))
	}
	conn := c.conn
	if conn == nil {
		conn = echoConn{}
	}
	return transport.NewSession(dev.ID, dev.Platform, transport.ModeDirect, conn), nil
}

type fakeInventory struct {
	devices map[string]transport.Device
	err     error
}

func (f *fakeInventory) ListDevices(ctx context.Context, ids []string) ([]transport.Device, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]transport.Device, 0, len(ids))
	for _, id := range ids {
		if d, ok := f.devices[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeJumphosts struct{}

func (fakeJumphosts) Load(ctx context.Context) (jumphost.Config, error) {
	return jumphost.Config{}, nil
}

type fakeArchiver struct {
	views []View
}

func (a *fakeArchiver) ArchiveJob(ctx context.Context, view View) error {
	a.views = append(a.views, view)
	return nil
}

type engineFixture struct {
	engine      *Engine
	connector   *fakeConnector
	artifactDir string
	archiver    *fakeArchiver
}

func newFixture(t *testing.T, failIDs ...string) *engineFixture {
	t.Helper()

	fail := make(map[string]bool, len(failIDs))
	for _, id := range failIDs {
		fail[id] = true
	}

	log := nlog.NewQuiet()
	connector := &fakeConnector{failIDs: fail}
	pool := sessionpool.New(connector, log)
	t.Cleanup(func() { pool.CloseAll() })

	dir := t.TempDir()
	store, err := nart.NewFSStore(dir)
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}

	inv := &fakeInventory{devices: map[string]transport.Device{
		"r01": {ID: "r01", Address: "10.0.0.1", Platform: "huawei", Group: "DE"},
		"r02": {ID: "r02", Address: "10.0.0.2", Platform: "cisco", Group: "DE"},
		"r03": {ID: "r03", Address: "10.0.0.3", Platform: "h3c", Group: "FR"},
	}}

	arch := &fakeArchiver{}
	eng := New(pool, runner.New(log), inv, fakeJumphosts{},
		nart.NewRecorder(store), progress.NewBroadcaster(kv.NewMemoryStore()),
		log, WithArchiver(arch))

	return &engineFixture{engine: eng, connector: connector, artifactDir: dir, archiver: arch}
}

// waitTerminal polls until the job reaches a terminal status.
func waitTerminal(t *testing.T, eng *Engine, jobID string) View {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view, err := eng.Get(jobID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if view.Status.terminal() {
			return view
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return View{}
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, _, err := f.engine.Submit(ctx, Spec{Commands: []string{"display version"}}); !errors.Is(err, ErrNoDevices) {
		t.Errorf("Expected ErrNoDevices, got %v", err)
	}
	if _, _, err := f.engine.Submit(ctx, Spec{DeviceIDs: []string{"r01"}}); !errors.Is(err, ErrNoCommands) {
		t.Errorf("Expected ErrNoCommands, got %v", err)
	}
	if got := len(f.engine.List()); got != 0 {
		t.Errorf("Expected no registered jobs after rejected submissions, got %d", got)
	}
}

func TestSubmit_RunsToCompletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	spec := Spec{
		DeviceIDs: []string{"r01", "r02", "r03"},
		Commands:  []string{"display version", "display device"},
	}
	jobID, batches, err := f.engine.Submit(ctx, spec)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if batches != 1 {
		t.Errorf("Expected 1 batch, got %d", batches)
	}

	view := waitTerminal(t, f.engine, jobID)
	if view.Status != JobCompleted {
		t.Fatalf("Expected status completed, got %s", view.Status)
	}
	if view.Completed != 3 || view.Total != 3 {
		t.Errorf("Expected 3/3 devices completed, got %d/%d", view.Completed, view.Total)
	}
	if view.Percent != 100 {
		t.Errorf("Expected 100 percent, got %.1f", view.Percent)
	}
	for _, dr := range view.Devices {
		if dr.Status != DeviceCompleted {
			t.Errorf("Device %s: expected completed, got %s", dr.DeviceID, dr.Status)
		}
		if len(dr.Commands) != len(spec.Commands) {
			t.Errorf("Device %s: expected %d command results, got %d", dr.DeviceID, len(spec.Commands), len(dr.Commands))
		}
		for _, cr := range dr.Commands {
			if cr.Status != runner.CommandSuccess {
				t.Errorf("Device %s command %q: expected success, got %s", dr.DeviceID, cr.Command, cr.Status)
			}
		}
		if dr.StartedAt == nil || dr.FinishedAt == nil {
			t.Errorf("Device %s: expected started/finished timestamps", dr.DeviceID)
		}
	}
}

func TestSubmit_DeduplicatesDeviceIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jobID, batches, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01", "r02", "r01", "r01", "r02"},
		Commands:  []string{"display version"},
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if batches != 1 {
		t.Errorf("Expected 1 batch over the 2 unique devices, got %d", batches)
	}

	view := waitTerminal(t, f.engine, jobID)
	if view.Total != 2 {
		t.Errorf("Expected 2 total devices, got %d", view.Total)
	}
	if len(view.Devices) != 2 {
		t.Fatalf("Expected 2 device results, got %d", len(view.Devices))
	}
	if view.Devices[0].DeviceID != "r01" || view.Devices[1].DeviceID != "r02" {
		t.Errorf("Expected first-occurrence order r01,r02, got %s,%s",
			view.Devices[0].DeviceID, view.Devices[1].DeviceID)
	}
	if view.Percent != 100 {
		t.Errorf("Expected 100 percent, got %.1f", view.Percent)
	}
}

func TestSubmit_PersistsPartialOutputOfFailedCommand(t *testing.T) {
	f := newFixture(t)
	f.connector.conn = partialFailConn{}
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	view := waitTerminal(t, f.engine, jobID)
	cmd := view.Devices[0].Commands[0]
	if cmd.Status != runner.CommandFailed {
		t.Fatalf("Expected command failed, got %s", cmd.Status)
	}

	var content string
	deadline := time.Now().Add(2 * time.Second)
	for content == "" && time.Now().Before(deadline) {
		entries, err := os.ReadDir(filepath.Join(f.artifactDir, "jobs", jobID))
		if err == nil {
			for _, e := range entries {
				if strings.HasPrefix(e.Name(), "r01_display_version_") && strings.HasSuffix(e.Name(), ".txt") {
					data, err := os.ReadFile(filepath.Join(f.artifactDir, "jobs", jobID, e.Name()))
					if err != nil {
						t.Fatalf("Reading artifact failed: %v", err)
					}
					content = string(data)
				}
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	if content != "partial output of display version" {
		t.Errorf("Expected the partial output persisted, got %q", content)
	}
}

func TestSubmit_ConnectFailureStaysScoped(t *testing.T) {
	f := newFixture(t, "r02")
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01", "r02", "r03"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	view := waitTerminal(t, f.engine, jobID)
	if view.Status != JobCompleted {
		t.Fatalf("Expected the job to complete despite a device failure, got %s", view.Status)
	}

	byID := make(map[string]DeviceResult, len(view.Devices))
	for _, dr := range view.Devices {
		byID[dr.DeviceID] = dr
	}

	failed := byID["r02"]
	if failed.Status != DeviceFailed {
		t.Errorf("Expected r02 failed, got %s", failed.Status)
	}
	if failed.Error == "" {
		t.Error("Expected r02 to carry an error message")
	}
	if failed.ErrorKind != string(transport.ConnectTimeout) {
		t.Errorf("Expected error kind %q, got %q", transport.ConnectTimeout, failed.ErrorKind)
	}
	for _, id := range []string{"r01", "r03"} {
		if byID[id].Status != DeviceCompleted {
			t.Errorf("Expected %s completed, got %s", id, byID[id].Status)
		}
	}
}

func TestSubmit_UnknownDeviceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01", "ghost"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	view := waitTerminal(t, f.engine, jobID)
	for _, dr := range view.Devices {
		if dr.DeviceID == "ghost" {
			if dr.Status != DeviceFailed {
				t.Errorf("Expected unknown device failed, got %s", dr.Status)
			}
			if dr.ErrorKind != string(transport.ConnectPlatform) {
				t.Errorf("Expected error kind %q, got %q", transport.ConnectPlatform, dr.ErrorKind)
			}
		}
	}
}

func TestSubmit_WritesArtifactsAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitTerminal(t, f.engine, jobID)

	// The summary lands just after the job turns terminal, so poll briefly.
	jobDir := filepath.Join(f.artifactDir, "jobs", jobID)
	var sawOutput, sawSummary bool
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		entries, err := os.ReadDir(jobDir)
		if err == nil {
			for _, e := range entries {
				name := e.Name()
				if strings.HasSuffix(name, ".meta") {
					continue
				}
				switch {
				case name == "summary.json":
					sawSummary = true
				case strings.HasPrefix(name, "r01_display_version_") && strings.HasSuffix(name, ".txt"):
					sawOutput = true
				}
			}
		}
		if sawOutput && sawSummary {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !sawOutput {
		t.Error("Expected a command output artifact for r01")
	}
	if !sawSummary {
		t.Error("Expected a summary.json artifact")
	}
}

func TestSubmit_ArchivesFinishedJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitTerminal(t, f.engine, jobID)

	deadline := time.Now().Add(time.Second)
	for len(f.archiver.views) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if len(f.archiver.views) != 1 {
		t.Fatalf("Expected 1 archived view, got %d", len(f.archiver.views))
	}
	if f.archiver.views[0].ID != jobID {
		t.Errorf("Archived view has job %s, expected %s", f.archiver.views[0].ID, jobID)
	}
}

func TestStop_UnknownJob(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Stop("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStop_TerminalJobIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitTerminal(t, f.engine, jobID)

	if err := f.engine.Stop(jobID); err != nil {
		t.Errorf("Expected stop on a terminal job to be a no-op, got %v", err)
	}
	view, _ := f.engine.Get(jobID)
	if view.Status != JobCompleted {
		t.Errorf("Expected status to remain completed, got %s", view.Status)
	}
}

func TestStop_SkipsRemainingBatches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One device per batch with a pacing delay ensures the job is still
	// between batches when the stop lands.
	jobID, batches, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01", "r02", "r03"},
		Commands:  []string{"display version"},
		BatchSize: 1,
		RateLimit: 1, // one device per hour; pacing would block for an hour
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if batches != 3 {
		t.Fatalf("Expected 3 batches, got %d", batches)
	}

	// Wait for the first device to finish, then stop.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		view, err := f.engine.Get(jobID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if view.Completed >= 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := f.engine.Stop(jobID); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	view := waitTerminal(t, f.engine, jobID)
	if view.Status != JobStopped {
		t.Fatalf("Expected status stopped, got %s", view.Status)
	}
	if view.Completed >= view.Total {
		t.Errorf("Expected some devices left untouched, got %d/%d", view.Completed, view.Total)
	}
	for _, dr := range view.Devices {
		if dr.DeviceID != "r01" && dr.Status == DeviceRunning {
			t.Errorf("Device %s still running after stop settled", dr.DeviceID)
		}
	}
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitTerminal(t, f.engine, jobID)

	if err := f.engine.Clear(jobID); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := f.engine.Get(jobID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after clear, got %v", err)
	}
	if err := f.engine.Clear(jobID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on double clear, got %v", err)
	}
}

func TestClear_RefusesNonTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01", "r02", "r03"},
		Commands:  []string{"display version"},
		BatchSize: 1,
		RateLimit: 1,
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	defer func() {
		f.engine.Stop(jobID)
		waitTerminal(t, f.engine, jobID)
	}()

	// The pacing delay keeps the job non-terminal long enough to observe.
	err = f.engine.Clear(jobID)
	if err == nil {
		t.Skip("job finished before clear could be attempted")
	}
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning, got %v", err)
	}
}

func TestRetryFailed(t *testing.T) {
	f := newFixture(t, "r02")
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01", "r02", "r03"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitTerminal(t, f.engine, jobID)

	retryID, _, err := f.engine.RetryFailed(ctx, jobID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if retryID == jobID {
		t.Error("Expected retry to get a fresh job ID")
	}

	view := waitTerminal(t, f.engine, retryID)
	if len(view.Devices) != 1 || view.Devices[0].DeviceID != "r02" {
		t.Fatalf("Expected retry to cover only r02, got %+v", view.Devices)
	}
}

func TestRetryFailed_NoFailedDevices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	waitTerminal(t, f.engine, jobID)

	if _, _, err := f.engine.RetryFailed(ctx, jobID); !errors.Is(err, ErrNoDevices) {
		t.Errorf("Expected ErrNoDevices, got %v", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		jobID, _, err := f.engine.Submit(ctx, Spec{
			DeviceIDs: []string{"r01"},
			Commands:  []string{fmt.Sprintf("display version %d", i)},
		})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		ids = append(ids, jobID)
		waitTerminal(t, f.engine, jobID)
	}

	views := f.engine.List()
	if len(views) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(views))
	}
	// UUIDv7 IDs sort by creation time, so newest first means descending.
	for i := 0; i < len(views)-1; i++ {
		if views[i].ID < views[i+1].ID {
			t.Errorf("Expected newest-first ordering, got %s before %s", views[i].ID, views[i+1].ID)
		}
	}
}

func TestGet_ProgressCounting(t *testing.T) {
	f := newFixture(t, "r02")
	ctx := context.Background()

	jobID, _, err := f.engine.Submit(ctx, Spec{
		DeviceIDs: []string{"r01", "r02"},
		Commands:  []string{"display version"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	view := waitTerminal(t, f.engine, jobID)
	// Failed devices still count toward progress: done is done.
	if view.Completed != 2 {
		t.Errorf("Expected failed device counted as done, got %d/2", view.Completed)
	}
	if view.Percent != 100 {
		t.Errorf("Expected 100 percent, got %.1f", view.Percent)
	}
}

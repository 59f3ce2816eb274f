package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/netbatch/netbatch/pkg/engine"
	"github.com/netbatch/netbatch/pkg/napi/schemas"
	"github.com/netbatch/netbatch/pkg/napi/services"
	"github.com/netbatch/netbatch/pkg/nart"
	"github.com/netbatch/netbatch/pkg/progress"
)

// SubmitJobInput defines the input for job submission
type SubmitJobInput struct {
	Body schemas.SubmitJobRequest
}

// SubmitJobOutput is the response for submitting a job
type SubmitJobOutput struct {
	Body schemas.SubmitJobResponse
}

// GetJobInput defines the input for getting a job
type GetJobInput struct {
	JobID string `path:"jobId" doc:"Job ID"`
}

// GetJobOutput is the response for getting a job
type GetJobOutput struct {
	Body schemas.JobResponse
}

// ListJobsOutput is the response for listing jobs
type ListJobsOutput struct {
	Body struct {
		Jobs []schemas.JobResponse `json:"jobs" doc:"List of jobs, newest first"`
	}
}

// StopJobInput defines the input for stopping a job
type StopJobInput struct {
	JobID string `path:"jobId" doc:"Job ID"`
}

// ClearJobInput defines the input for clearing a finished job
type ClearJobInput struct {
	JobID     string `path:"jobId" doc:"Job ID"`
	Artifacts bool   `query:"artifacts" doc:"Also delete stored artifacts" required:"false"`
}

// RetryJobInput defines the input for retrying failed devices
type RetryJobInput struct {
	JobID string `path:"jobId" doc:"Job ID"`
}

// GetProgressInput defines the input for reading progress
type GetProgressInput struct {
	JobID string `path:"jobId" doc:"Job ID"`
}

// GetProgressOutput is the response for reading progress
type GetProgressOutput struct {
	Body schemas.ProgressSnapshot
}

// JobHistoryInput defines the input for listing archived jobs
type JobHistoryInput struct {
	Limit int `query:"limit" doc:"Maximum records to return" required:"false"`
}

// JobHistoryOutput is the response for listing archived jobs
type JobHistoryOutput struct {
	Body struct {
		Records []schemas.JobRecordResponse `json:"records" doc:"Archived jobs, newest first"`
	}
}

// RegisterJobs registers batch-job routes
func RegisterJobs(api huma.API, svcs *services.Services) {
	// Submit job
	huma.Register(api, huma.Operation{
		OperationID: "submit-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs",
		Summary:     "Submit a batch job",
		Description: "Run a command list against a set of devices in rate-limited batches",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *SubmitJobInput) (*SubmitJobOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("engine not configured")
		}

		jobID, batches, err := svcs.Engine.Submit(ctx, engine.Spec{
			DeviceIDs: input.Body.DeviceIDs,
			Commands:  input.Body.Commands,
			BatchSize: input.Body.BatchSize,
			RateLimit: input.Body.RateLimit,
		})
		if errors.Is(err, engine.ErrNoDevices) || errors.Is(err, engine.ErrNoCommands) {
			return nil, huma.Error400BadRequest(err.Error())
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to submit job: %v", err))
		}

		resp := &SubmitJobOutput{}
		resp.Body = schemas.SubmitJobResponse{
			ID:         jobID,
			Status:     string(engine.JobPending),
			BatchCount: batches,
		}
		return resp, nil
	})

	// List jobs
	huma.Register(api, huma.Operation{
		OperationID: "list-jobs",
		Method:      http.MethodGet,
		Path:        "/api/jobs",
		Summary:     "List jobs",
		Description: "Get all jobs known to this server, newest first",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *struct{}) (*ListJobsOutput, error) {
		if svcs == nil {
			return &ListJobsOutput{}, nil
		}

		views := svcs.Engine.List()
		resp := &ListJobsOutput{}
		resp.Body.Jobs = make([]schemas.JobResponse, len(views))
		for i, v := range views {
			// Listing omits per-device detail; fetch one job for that.
			v.Devices = nil
			resp.Body.Jobs[i] = toJobResponse(v)
		}
		return resp, nil
	})

	// Job history (archived summaries survive restarts)
	huma.Register(api, huma.Operation{
		OperationID: "job-history",
		Method:      http.MethodGet,
		Path:        "/api/jobs/history",
		Summary:     "List archived jobs",
		Description: "Get persisted job summaries, including jobs from previous server runs",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *JobHistoryInput) (*JobHistoryOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("inventory not configured")
		}

		records, err := svcs.Inventory.ListJobRecords(ctx, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to list job history: %v", err))
		}

		resp := &JobHistoryOutput{}
		resp.Body.Records = make([]schemas.JobRecordResponse, len(records))
		for i, rec := range records {
			r := schemas.JobRecordResponse{
				ID:        rec.ID.String(),
				Status:    rec.Status,
				DeviceIDs: rec.DeviceIDs,
				Commands:  rec.Commands,
				Total:     rec.Total,
				Completed: rec.Completed,
				Failed:    rec.Failed,
				CreatedAt: rec.CreatedAt.Format(time.RFC3339),
			}
			if !rec.FinishedAt.IsZero() {
				finished := rec.FinishedAt.Format(time.RFC3339)
				r.FinishedAt = &finished
			}
			resp.Body.Records[i] = r
		}
		return resp, nil
	})

	// Get job
	huma.Register(api, huma.Operation{
		OperationID: "get-job",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{jobId}",
		Summary:     "Get job details",
		Description: "Get a job with per-device and per-command results",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *GetJobInput) (*GetJobOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("engine not configured")
		}

		view, err := svcs.Engine.Get(input.JobID)
		if errors.Is(err, engine.ErrNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to get job: %v", err))
		}

		return &GetJobOutput{Body: toJobResponse(view)}, nil
	})

	// Stop job
	huma.Register(api, huma.Operation{
		OperationID: "stop-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{jobId}/stop",
		Summary:     "Stop a running job",
		Description: "Request a stop; devices already executing finish their current command list",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *StopJobInput) (*GetJobOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("engine not configured")
		}

		err := svcs.Engine.Stop(input.JobID)
		if errors.Is(err, engine.ErrNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		if errors.Is(err, engine.ErrNotRunning) {
			return nil, huma.Error409Conflict("job is not running")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to stop job: %v", err))
		}

		view, err := svcs.Engine.Get(input.JobID)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to reload job: %v", err))
		}
		return &GetJobOutput{Body: toJobResponse(view)}, nil
	})

	// Clear job
	huma.Register(api, huma.Operation{
		OperationID: "clear-job",
		Method:      http.MethodDelete,
		Path:        "/api/jobs/{jobId}",
		Summary:     "Clear a finished job",
		Description: "Remove a terminal job from the server, optionally deleting its artifacts",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *ClearJobInput) (*struct{}, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("engine not configured")
		}

		err := svcs.Engine.Clear(input.JobID)
		if errors.Is(err, engine.ErrNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		if errors.Is(err, engine.ErrNotRunning) {
			return nil, huma.Error409Conflict("job is still running")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to clear job: %v", err))
		}

		if input.Artifacts {
			if err := svcs.Artifacts.DeletePrefix(ctx, nart.JobPrefix(input.JobID)); err != nil {
				return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to delete artifacts: %v", err))
			}
		}
		return &struct{}{}, nil
	})

	// Retry failed devices
	huma.Register(api, huma.Operation{
		OperationID: "retry-job",
		Method:      http.MethodPost,
		Path:        "/api/jobs/{jobId}/retry",
		Summary:     "Retry failed devices",
		Description: "Submit a new job targeting only the devices that failed in the given job",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *RetryJobInput) (*SubmitJobOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("engine not configured")
		}

		jobID, batches, err := svcs.Engine.RetryFailed(ctx, input.JobID)
		if errors.Is(err, engine.ErrNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		if errors.Is(err, engine.ErrNoDevices) {
			return nil, huma.Error409Conflict("job has no failed devices")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to retry job: %v", err))
		}

		resp := &SubmitJobOutput{}
		resp.Body = schemas.SubmitJobResponse{
			ID:         jobID,
			Status:     string(engine.JobPending),
			BatchCount: batches,
		}
		return resp, nil
	})

	// Latest progress snapshot
	huma.Register(api, huma.Operation{
		OperationID: "get-job-progress",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{jobId}/progress",
		Summary:     "Get latest progress",
		Description: "Get the most recent progress snapshot for a job",
		Tags:        []string{"Jobs"},
	}, func(ctx context.Context, input *GetProgressInput) (*GetProgressOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("engine not configured")
		}

		if snap, ok := svcs.Broadcaster.Latest(ctx, input.JobID); ok {
			return &GetProgressOutput{Body: toProgressSchema(snap)}, nil
		}

		// No cached snapshot yet; derive one from the job itself.
		view, err := svcs.Engine.Get(input.JobID)
		if errors.Is(err, engine.ErrNotFound) {
			return nil, huma.Error404NotFound("job not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to get job: %v", err))
		}

		return &GetProgressOutput{Body: schemas.ProgressSnapshot{
			JobID:            view.ID,
			Status:           string(view.Status),
			TotalDevices:     view.Total,
			CompletedDevices: view.Completed,
			Percent:          view.Percent,
			UpdatedAt:        time.Now().Format(time.RFC3339),
		}}, nil
	})

	// Progress stream
	sse.Register(api, huma.Operation{
		OperationID: "stream-job-progress",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{jobId}/progress/stream",
		Summary:     "Stream job progress",
		Description: "Server-sent events with progress snapshots until the job reaches a terminal state",
		Tags:        []string{"Jobs"},
	}, map[string]any{
		"progress": schemas.ProgressSnapshot{},
	}, func(ctx context.Context, input *GetProgressInput, send sse.Sender) {
		if svcs == nil {
			return
		}

		view, err := svcs.Engine.Get(input.JobID)
		if err != nil {
			return
		}

		ch, cancel := svcs.Broadcaster.Subscribe(input.JobID)
		defer cancel()

		// Seed the stream so late subscribers see current state immediately.
		seed := schemas.ProgressSnapshot{
			JobID:            view.ID,
			Status:           string(view.Status),
			TotalDevices:     view.Total,
			CompletedDevices: view.Completed,
			Percent:          view.Percent,
			UpdatedAt:        time.Now().Format(time.RFC3339),
		}
		if err := send.Data(seed); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-ch:
				if !ok {
					return
				}
				if err := send.Data(toProgressSchema(snap)); err != nil {
					return
				}
				switch engine.JobStatus(snap.Status) {
				case engine.JobCompleted, engine.JobStopped, engine.JobFailed:
					return
				}
			}
		}
	})
}

func toJobResponse(view engine.View) schemas.JobResponse {
	resp := schemas.JobResponse{
		ID:         view.ID,
		Status:     string(view.Status),
		DeviceIDs:  view.Spec.DeviceIDs,
		Commands:   view.Spec.Commands,
		BatchSize:  view.Spec.BatchSize,
		RateLimit:  view.Spec.RateLimit,
		BatchCount: view.BatchCount,
		Total:      view.Total,
		Completed:  view.Completed,
		Percent:    view.Percent,
		CreatedAt:  view.CreatedAt.Format(time.RFC3339),
	}

	if view.StartedAt != nil {
		startedAt := view.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &startedAt
	}
	if view.FinishedAt != nil {
		finishedAt := view.FinishedAt.Format(time.RFC3339)
		resp.FinishedAt = &finishedAt
	}

	for _, dr := range view.Devices {
		d := schemas.DeviceResult{
			DeviceID:  dr.DeviceID,
			Group:     dr.Group,
			Status:    string(dr.Status),
			Error:     dr.Error,
			ErrorKind: dr.ErrorKind,
		}
		if dr.StartedAt != nil {
			startedAt := dr.StartedAt.Format(time.RFC3339)
			d.StartedAt = &startedAt
		}
		if dr.FinishedAt != nil {
			finishedAt := dr.FinishedAt.Format(time.RFC3339)
			d.FinishedAt = &finishedAt
		}
		for _, cr := range dr.Commands {
			c := schemas.CommandResult{
				Command:    cr.Command,
				Status:     string(cr.Status),
				Output:     cr.Output,
				Error:      cr.Error,
				DurationMS: cr.Duration.Milliseconds(),
			}
			if !cr.Timestamp.IsZero() {
				ts := cr.Timestamp.Format(time.RFC3339)
				c.Timestamp = &ts
			}
			d.Commands = append(d.Commands, c)
		}
		resp.Devices = append(resp.Devices, d)
	}

	return resp
}

func toProgressSchema(snap progress.Snapshot) schemas.ProgressSnapshot {
	out := schemas.ProgressSnapshot{
		JobID:            snap.JobID,
		Status:           snap.Status,
		TotalDevices:     snap.TotalDevices,
		CompletedDevices: snap.CompletedDevices,
		Percent:          snap.Percent,
		CurrentDevice:    snap.CurrentDevice,
		CurrentCommand:   snap.CurrentCommand,
		UpdatedAt:        snap.UpdatedAt.Format(time.RFC3339),
	}
	if len(snap.Groups) > 0 {
		out.Groups = make(map[string]schemas.GroupProgress, len(snap.Groups))
		for name, g := range snap.Groups {
			out.Groups[name] = schemas.GroupProgress{Total: g.Total, Completed: g.Completed}
		}
	}
	return out
}

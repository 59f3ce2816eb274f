package nsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/netbatch/netbatch/pkg/napi/schemas"
	"github.com/netbatch/netbatch/pkg/nsdk/nerr"
)

// Client is a thin JSON client for the netbatch server API.
type Client struct {
	BaseURL string
	http    *http.Client
}

// NewClient builds a Client from config.
func NewClient(cfg *Config) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nerr.New(nerr.CodeUnknown, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nerr.New(nerr.CodeUnknown, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nerr.New(nerr.CodeUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nerr.New(nerr.CodeUnknown, fmt.Errorf("decoding response: %w", err))
		}
	}
	return nil
}

func statusError(resp *http.Response) error {
	// huma error bodies carry a detail field; fall back to the status text.
	var problem struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(data, &problem)
	msg := problem.Detail
	if msg == "" {
		msg = problem.Title
	}
	if msg == "" {
		msg = resp.Status
	}

	err := fmt.Errorf("%s", msg)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nerr.New(nerr.CodeNotFound, err)
	case resp.StatusCode == http.StatusConflict:
		return nerr.New(nerr.CodeConflict, err)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nerr.New(nerr.CodeBadRequest, err)
	default:
		return nerr.New(nerr.CodeServer, err)
	}
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// SubmitJob submits a batch job.
func (c *Client) SubmitJob(ctx context.Context, req schemas.SubmitJobRequest) (*schemas.SubmitJobResponse, error) {
	var out schemas.SubmitJobResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob fetches one job with full per-device detail.
func (c *Client) GetJob(ctx context.Context, jobID string) (*schemas.JobResponse, error) {
	var out schemas.JobResponse
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs lists jobs known to the server, newest first.
func (c *Client) ListJobs(ctx context.Context) ([]schemas.JobResponse, error) {
	var out struct {
		Jobs []schemas.JobResponse `json:"jobs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// StopJob requests a cooperative stop.
func (c *Client) StopJob(ctx context.Context, jobID string) (*schemas.JobResponse, error) {
	var out schemas.JobResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(jobID)+"/stop", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearJob removes a finished job, optionally deleting its artifacts.
func (c *Client) ClearJob(ctx context.Context, jobID string, artifacts bool) error {
	path := "/api/jobs/" + url.PathEscape(jobID)
	if artifacts {
		path += "?artifacts=true"
	}
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// RetryJob resubmits a job's failed devices as a new job.
func (c *Client) RetryJob(ctx context.Context, jobID string) (*schemas.SubmitJobResponse, error) {
	var out schemas.SubmitJobResponse
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(jobID)+"/retry", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress fetches the latest progress snapshot for a job.
func (c *Client) Progress(ctx context.Context, jobID string) (*schemas.ProgressSnapshot, error) {
	var out schemas.ProgressSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID)+"/progress", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JobHistory lists archived job summaries.
func (c *Client) JobHistory(ctx context.Context, limit int) ([]schemas.JobRecordResponse, error) {
	path := "/api/jobs/history"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out struct {
		Records []schemas.JobRecordResponse `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Records, nil
}

// CreateDevice adds a device to the inventory.
func (c *Client) CreateDevice(ctx context.Context, req schemas.CreateDeviceRequest) (*schemas.DeviceResponse, error) {
	var out schemas.DeviceResponse
	if err := c.do(ctx, http.MethodPost, "/api/devices", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDevices lists the inventory.
func (c *Client) ListDevices(ctx context.Context) ([]schemas.DeviceResponse, error) {
	var out struct {
		Devices []schemas.DeviceResponse `json:"devices"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, &out); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// GetDevice fetches one device.
func (c *Client) GetDevice(ctx context.Context, deviceID string) (*schemas.DeviceResponse, error) {
	var out schemas.DeviceResponse
	if err := c.do(ctx, http.MethodGet, "/api/devices/"+url.PathEscape(deviceID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDevice updates a device's mutable fields.
func (c *Client) UpdateDevice(ctx context.Context, deviceID string, req schemas.UpdateDeviceRequest) (*schemas.DeviceResponse, error) {
	var out schemas.DeviceResponse
	if err := c.do(ctx, http.MethodPut, "/api/devices/"+url.PathEscape(deviceID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDevice removes a device from the inventory.
func (c *Client) DeleteDevice(ctx context.Context, deviceID string) error {
	return c.do(ctx, http.MethodDelete, "/api/devices/"+url.PathEscape(deviceID), nil, nil)
}

// GetJumphost fetches the bastion configuration.
func (c *Client) GetJumphost(ctx context.Context) (*schemas.JumphostConfigResponse, error) {
	var out schemas.JumphostConfigResponse
	if err := c.do(ctx, http.MethodGet, "/api/jumphost", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetJumphost replaces the bastion configuration.
func (c *Client) SetJumphost(ctx context.Context, req schemas.JumphostConfigRequest) (*schemas.JumphostConfigResponse, error) {
	var out schemas.JumphostConfigResponse
	if err := c.do(ctx, http.MethodPut, "/api/jumphost", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListArtifacts lists a job's stored command output.
func (c *Client) ListArtifacts(ctx context.Context, jobID, deviceID, command string) ([]schemas.JobArtifact, error) {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device", deviceID)
	}
	if command != "" {
		q.Set("command", command)
	}
	path := "/api/jobs/" + url.PathEscape(jobID) + "/artifacts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out struct {
		Artifacts []schemas.JobArtifact `json:"artifacts"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Artifacts, nil
}

// DownloadArtifact fetches an artifact's raw content.
func (c *Client) DownloadArtifact(ctx context.Context, jobID, filename string) ([]byte, error) {
	path := "/api/jobs/" + url.PathEscape(jobID) + "/artifacts/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, nerr.New(nerr.CodeUnknown, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nerr.New(nerr.CodeUnreachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, statusError(resp)
	}
	return io.ReadAll(resp.Body)
}

// CloseSessions closes pooled device sessions on the server.
func (c *Client) CloseSessions(ctx context.Context, deviceIDs []string) error {
	body := struct {
		DeviceIDs []string `json:"device_ids,omitempty"`
	}{DeviceIDs: deviceIDs}
	return c.do(ctx, http.MethodDelete, "/api/sessions", body, nil)
}

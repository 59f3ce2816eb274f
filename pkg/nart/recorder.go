package nart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Recorder is the write-side helper the orchestrator uses: raw command
// output as it lands, one structured summary when the job finishes.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// SaveCommandOutput persists one command's raw output and returns its key.
func (r *Recorder) SaveCommandOutput(ctx context.Context, jobID, deviceID, command, output string, ts time.Time) (string, error) {
	key := CommandArtifactKey(jobID, deviceID, command, ts, ExtRaw)
	_, err := r.store.Upload(ctx, key, strings.NewReader(output), "text/plain", map[string]string{
		"job_id":    jobID,
		"device_id": deviceID,
		"command":   command,
	})
	if err != nil {
		return "", fmt.Errorf("saving output for %s %q: %w", deviceID, command, err)
	}
	return key, nil
}

// SaveJobSummary persists the job's structured summary under a stable key.
func (r *Recorder) SaveJobSummary(ctx context.Context, jobID string, summary any) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding job summary: %w", err)
	}

	key := JobPrefix(jobID) + "summary." + ExtParsed
	_, err = r.store.Upload(ctx, key, bytes.NewReader(data), "application/json", map[string]string{
		"job_id": jobID,
	})
	if err != nil {
		return "", fmt.Errorf("saving job summary: %w", err)
	}
	return key, nil
}

// Package nart persists command-output artifacts from batch jobs. Artifacts
// are append-only and named deterministically from device, command, and
// timestamp so downstream consumers (topology reconstruction) can locate
// output without scanning a whole job.
package nart

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Extensions distinguishing raw from structured output.
const (
	ExtRaw    = "txt"
	ExtParsed = "json"
)

const timestampLayout = "20060102-150405"

// Artifact represents a stored artifact with metadata.
type Artifact struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	URL          string            `json:"url,omitempty"`
}

// Store defines the interface for artifact storage operations. Writes are
// append-only: an existing key is never mutated in place.
type Store interface {
	// Upload stores data under key.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string, metadata map[string]string) (*Artifact, error)

	// Download retrieves an artifact by key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// List lists all artifacts with the given prefix.
	List(ctx context.Context, prefix string) ([]*Artifact, error)

	// Delete removes an artifact by key.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all artifacts with the given prefix. Used when a
	// caller clears a finished job.
	DeletePrefix(ctx context.Context, prefix string) error
}

// JobPrefix returns the storage prefix for one job's artifacts.
func JobPrefix(jobID string) string {
	return "jobs/" + jobID + "/"
}

// CommandIdentifier collapses a command's text into a filename-safe token.
func CommandIdentifier(command string) string {
	return strings.Join(strings.Fields(command), "_")
}

// DeviceIdentifier makes a device ID filename-safe. Underscores separate the
// key's fields, so any in the ID are folded to dashes.
func DeviceIdentifier(deviceID string) string {
	return strings.ReplaceAll(strings.TrimSpace(deviceID), "_", "-")
}

// CommandArtifactKey builds the deterministic artifact key
// jobs/{jobID}/{deviceID}_{commandID}_{timestamp}.{ext}. The file-name part
// of this convention is fixed: downstream tools parse it.
func CommandArtifactKey(jobID, deviceID, command string, ts time.Time, ext string) string {
	return fmt.Sprintf("%s%s_%s_%s.%s",
		JobPrefix(jobID), DeviceIdentifier(deviceID), CommandIdentifier(command), ts.UTC().Format(timestampLayout), ext)
}

// ArtifactName describes a parsed artifact key.
type ArtifactName struct {
	JobID     string
	DeviceID  string
	CommandID string
	Timestamp time.Time
	Ext       string
}

// ParseArtifactKey inverts CommandArtifactKey. Keys that don't follow the
// convention return an error.
func ParseArtifactKey(key string) (ArtifactName, error) {
	var name ArtifactName

	rest, ok := strings.CutPrefix(key, "jobs/")
	if !ok {
		return name, fmt.Errorf("key %q lacks jobs/ prefix", key)
	}
	jobID, file, ok := strings.Cut(rest, "/")
	if !ok {
		return name, fmt.Errorf("key %q lacks job segment", key)
	}

	ext := ""
	if dot := strings.LastIndex(file, "."); dot >= 0 {
		ext = file[dot+1:]
		file = file[:dot]
	}

	parts := strings.Split(file, "_")
	if len(parts) < 3 {
		return name, fmt.Errorf("key %q does not match device_command_timestamp", key)
	}

	ts, err := time.ParseInLocation(timestampLayout, parts[len(parts)-1], time.UTC)
	if err != nil {
		return name, fmt.Errorf("key %q has unparsable timestamp: %w", key, err)
	}

	name.JobID = jobID
	name.DeviceID = parts[0]
	name.CommandID = strings.Join(parts[1:len(parts)-1], "_")
	name.Timestamp = ts
	name.Ext = ext
	return name, nil
}

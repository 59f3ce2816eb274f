package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/netbatch/netbatch/pkg/napi/schemas"
	"github.com/netbatch/netbatch/pkg/napi/services"
	"github.com/netbatch/netbatch/pkg/nart"
)

// presignedStore is the optional capability of backends that can mint
// time-limited download URLs.
type presignedStore interface {
	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ListArtifactsInput defines the input for listing job artifacts
type ListArtifactsInput struct {
	JobID    string `path:"jobId" doc:"Job ID"`
	DeviceID string `query:"device" doc:"Filter by device" required:"false"`
	Command  string `query:"command" doc:"Filter by command identifier" required:"false"`
	Since    string `query:"since" doc:"Only artifacts at or after this RFC3339 time" required:"false"`
	Until    string `query:"until" doc:"Only artifacts at or before this RFC3339 time" required:"false"`
}

// ListArtifactsOutput is the response for listing job artifacts
type ListArtifactsOutput struct {
	Body struct {
		Artifacts []schemas.JobArtifact `json:"artifacts" doc:"Stored artifacts"`
	}
}

// DownloadArtifactInput defines the input for downloading an artifact
type DownloadArtifactInput struct {
	JobID    string `path:"jobId" doc:"Job ID"`
	Filename string `path:"filename" doc:"Artifact filename"`
}

// DownloadArtifactOutput is the raw artifact content
type DownloadArtifactOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// ArtifactURLInput defines the input for minting a download URL
type ArtifactURLInput struct {
	JobID    string `path:"jobId" doc:"Job ID"`
	Filename string `path:"filename" doc:"Artifact filename"`
}

// ArtifactURLOutput is the response with a presigned URL
type ArtifactURLOutput struct {
	Body struct {
		URL string `json:"url" doc:"Presigned download URL"`
	}
}

// RegisterArtifacts registers artifact browsing routes
func RegisterArtifacts(api huma.API, svcs *services.Services) {
	// List job artifacts
	huma.Register(api, huma.Operation{
		OperationID: "list-job-artifacts",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{jobId}/artifacts",
		Summary:     "List job artifacts",
		Description: "List stored command output for a job, optionally filtered by device, command, or time range",
		Tags:        []string{"Artifacts"},
	}, func(ctx context.Context, input *ListArtifactsInput) (*ListArtifactsOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("artifact storage not configured")
		}

		var since, until time.Time
		var err error
		if input.Since != "" {
			if since, err = time.Parse(time.RFC3339, input.Since); err != nil {
				return nil, huma.Error400BadRequest("since must be RFC3339")
			}
		}
		if input.Until != "" {
			if until, err = time.Parse(time.RFC3339, input.Until); err != nil {
				return nil, huma.Error400BadRequest("until must be RFC3339")
			}
		}

		objects, err := svcs.Artifacts.List(ctx, nart.JobPrefix(input.JobID))
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to list artifacts: %v", err))
		}

		resp := &ListArtifactsOutput{}
		resp.Body.Artifacts = make([]schemas.JobArtifact, 0, len(objects))
		for _, obj := range objects {
			art := schemas.JobArtifact{
				Key:         obj.Key,
				Filename:    path.Base(obj.Key),
				Size:        obj.Size,
				ContentType: obj.ContentType,
			}

			// Summary files and other non-conforming keys pass filters
			// only when no filter is set.
			name, perr := nart.ParseArtifactKey(obj.Key)
			if perr == nil {
				art.DeviceID = name.DeviceID
				art.CommandID = name.CommandID
				art.Timestamp = name.Timestamp.Format(time.RFC3339)
			}

			if input.DeviceID != "" && (perr != nil || name.DeviceID != nart.DeviceIdentifier(input.DeviceID)) {
				continue
			}
			if input.Command != "" && (perr != nil || !strings.EqualFold(name.CommandID, nart.CommandIdentifier(input.Command))) {
				continue
			}
			if !since.IsZero() && (perr != nil || name.Timestamp.Before(since)) {
				continue
			}
			if !until.IsZero() && (perr != nil || name.Timestamp.After(until)) {
				continue
			}

			resp.Body.Artifacts = append(resp.Body.Artifacts, art)
		}
		return resp, nil
	})

	// Download artifact
	huma.Register(api, huma.Operation{
		OperationID: "download-artifact",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{jobId}/artifacts/{filename}",
		Summary:     "Download an artifact",
		Tags:        []string{"Artifacts"},
	}, func(ctx context.Context, input *DownloadArtifactInput) (*DownloadArtifactOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("artifact storage not configured")
		}

		key := nart.JobPrefix(input.JobID) + input.Filename
		reader, err := svcs.Artifacts.Download(ctx, key)
		if err != nil {
			return nil, huma.Error404NotFound("artifact not found")
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to read artifact: %v", err))
		}

		contentType := "text/plain"
		if strings.HasSuffix(input.Filename, "."+nart.ExtParsed) {
			contentType = "application/json"
		}
		return &DownloadArtifactOutput{ContentType: contentType, Body: data}, nil
	})

	// Get artifact download URL
	huma.Register(api, huma.Operation{
		OperationID: "get-artifact-url",
		Method:      http.MethodGet,
		Path:        "/api/jobs/{jobId}/artifacts/{filename}/url",
		Summary:     "Get artifact download URL",
		Description: "Get a presigned URL to download an artifact directly from object storage",
		Tags:        []string{"Artifacts"},
	}, func(ctx context.Context, input *ArtifactURLInput) (*ArtifactURLOutput, error) {
		if svcs == nil {
			return nil, huma.Error503ServiceUnavailable("artifact storage not configured")
		}

		presigner, ok := svcs.Artifacts.(presignedStore)
		if !ok {
			return nil, huma.Error501NotImplemented("artifact backend does not support presigned URLs")
		}

		key := nart.JobPrefix(input.JobID) + input.Filename
		url, err := presigner.GetPresignedURL(ctx, key, time.Hour)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to get presigned URL: %v", err))
		}

		resp := &ArtifactURLOutput{}
		resp.Body.URL = url
		return resp, nil
	})
}

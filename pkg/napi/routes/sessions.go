package routes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/netbatch/netbatch/pkg/sessionpool"
)

// CloseSessionsInput defines the input for closing pooled sessions
type CloseSessionsInput struct {
	Body struct {
		DeviceIDs []string `json:"device_ids,omitempty" doc:"Devices whose sessions to close; empty closes all"`
	}
}

// RegisterSessions registers session housekeeping routes
func RegisterSessions(api huma.API, pool *sessionpool.Pool) {
	// Close sessions
	huma.Register(api, huma.Operation{
		OperationID: "close-sessions",
		Method:      http.MethodDelete,
		Path:        "/api/sessions",
		Summary:     "Close pooled sessions",
		Description: "Force-close cached device sessions so the next job reconnects fresh",
		Tags:        []string{"Sessions"},
	}, func(ctx context.Context, input *CloseSessionsInput) (*struct{}, error) {
		if pool == nil {
			return nil, huma.Error503ServiceUnavailable("session pool not configured")
		}

		if err := pool.CloseAll(input.Body.DeviceIDs...); err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to close sessions: %v", err))
		}
		return &struct{}{}, nil
	})
}

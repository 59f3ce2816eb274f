package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/netbatch/netbatch/pkg/napi/services"
)

// HealthOutput is the response for the health check
type HealthOutput struct {
	Body struct {
		Status string `json:"status" doc:"Service status"`
	}
}

func RegisterAPI(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		resp := &HealthOutput{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	if svcs == nil {
		RegisterDevices(api, nil)
		RegisterJobs(api, nil)
		RegisterJumphost(api, nil)
		RegisterArtifacts(api, nil)
		RegisterSessions(api, nil)
	} else {
		RegisterDevices(api, svcs.Inventory)
		RegisterJobs(api, svcs)
		RegisterJumphost(api, svcs.Jumphosts)
		RegisterArtifacts(api, svcs)
		RegisterSessions(api, svcs.Pool)
	}
}

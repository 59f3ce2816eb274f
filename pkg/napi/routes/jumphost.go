package routes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/netbatch/netbatch/pkg/jumphost"
	"github.com/netbatch/netbatch/pkg/napi/schemas"
)

// GetJumphostOutput is the response for reading the bastion config
type GetJumphostOutput struct {
	Body schemas.JumphostConfigResponse
}

// PutJumphostInput defines the input for setting the bastion config
type PutJumphostInput struct {
	Body schemas.JumphostConfigRequest
}

// PutJumphostOutput is the response for setting the bastion config
type PutJumphostOutput struct {
	Body schemas.JumphostConfigResponse
}

// RegisterJumphost registers bastion configuration routes
func RegisterJumphost(api huma.API, store *jumphost.Store) {
	// Get jumphost config
	huma.Register(api, huma.Operation{
		OperationID: "get-jumphost",
		Method:      http.MethodGet,
		Path:        "/api/jumphost",
		Summary:     "Get bastion config",
		Description: "Get the fleet-wide bastion tunnel configuration",
		Tags:        []string{"Jumphost"},
	}, func(ctx context.Context, input *struct{}) (*GetJumphostOutput, error) {
		if store == nil {
			return nil, huma.Error503ServiceUnavailable("jumphost store not configured")
		}

		cfg, err := store.Load(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to load jumphost config: %v", err))
		}

		return &GetJumphostOutput{Body: toJumphostResponse(cfg)}, nil
	})

	// Set jumphost config
	huma.Register(api, huma.Operation{
		OperationID: "put-jumphost",
		Method:      http.MethodPut,
		Path:        "/api/jumphost",
		Summary:     "Set bastion config",
		Description: "Replace the fleet-wide bastion tunnel configuration; jobs read it at submission time",
		Tags:        []string{"Jumphost"},
	}, func(ctx context.Context, input *PutJumphostInput) (*PutJumphostOutput, error) {
		if store == nil {
			return nil, huma.Error503ServiceUnavailable("jumphost store not configured")
		}

		cfg := jumphost.Config{
			Enabled:  input.Body.Enabled,
			Host:     input.Body.Host,
			Port:     input.Body.Port,
			Username: input.Body.Username,
			Password: input.Body.Password,
		}
		if err := store.Save(ctx, cfg); err != nil {
			return nil, huma.Error400BadRequest(fmt.Sprintf("invalid jumphost config: %v", err))
		}

		return &PutJumphostOutput{Body: toJumphostResponse(cfg)}, nil
	})
}

func toJumphostResponse(cfg jumphost.Config) schemas.JumphostConfigResponse {
	return schemas.JumphostConfigResponse{
		Enabled:  cfg.Enabled,
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		HasAuth:  cfg.Password != "",
	}
}

package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/netbatch/netbatch/pkg/db/models"
	"github.com/netbatch/netbatch/pkg/inventory"
	"github.com/netbatch/netbatch/pkg/napi/schemas"
)

// CreateDeviceInput defines the input for adding a device
type CreateDeviceInput struct {
	Body schemas.CreateDeviceRequest
}

// CreateDeviceOutput is the response for adding a device
type CreateDeviceOutput struct {
	Body schemas.DeviceResponse
}

// GetDeviceInput defines the input for getting a device
type GetDeviceInput struct {
	DeviceID string `path:"deviceId" doc:"Device ID"`
}

// GetDeviceOutput is the response for getting a device
type GetDeviceOutput struct {
	Body schemas.DeviceResponse
}

// UpdateDeviceInput defines the input for updating a device
type UpdateDeviceInput struct {
	DeviceID string `path:"deviceId" doc:"Device ID"`
	Body     schemas.UpdateDeviceRequest
}

// UpdateDeviceOutput is the response for updating a device
type UpdateDeviceOutput struct {
	Body schemas.DeviceResponse
}

// DeleteDeviceInput defines the input for deleting a device
type DeleteDeviceInput struct {
	DeviceID string `path:"deviceId" doc:"Device ID"`
}

// ListDevicesOutput is the response for listing devices
type ListDevicesOutput struct {
	Body struct {
		Devices []schemas.DeviceResponse `json:"devices" doc:"List of devices"`
	}
}

// RegisterDevices registers inventory routes
func RegisterDevices(api huma.API, inv *inventory.Service) {
	// Add device
	huma.Register(api, huma.Operation{
		OperationID: "create-device",
		Method:      http.MethodPost,
		Path:        "/api/devices",
		Summary:     "Add a device",
		Description: "Add a device to the inventory",
		Tags:        []string{"Devices"},
	}, func(ctx context.Context, input *CreateDeviceInput) (*CreateDeviceOutput, error) {
		if inv == nil {
			return nil, huma.Error503ServiceUnavailable("inventory not configured")
		}
		if input.Body.ID == "" {
			return nil, huma.Error400BadRequest("id is required")
		}
		if input.Body.Address == "" {
			return nil, huma.Error400BadRequest("address is required")
		}

		dev := &models.Device{
			ID:             input.Body.ID,
			Name:           input.Body.Name,
			Address:        input.Body.Address,
			Port:           input.Body.Port,
			Protocol:       input.Body.Protocol,
			Platform:       input.Body.Platform,
			Username:       input.Body.Username,
			Password:       input.Body.Password,
			EnablePassword: input.Body.EnablePassword,
			CountryCode:    input.Body.CountryCode,
		}

		if err := inv.CreateDevice(ctx, dev); err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to create device: %v", err))
		}

		return &CreateDeviceOutput{Body: toDeviceResponse(dev)}, nil
	})

	// List devices
	huma.Register(api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List devices",
		Description: "Get the full device inventory",
		Tags:        []string{"Devices"},
	}, func(ctx context.Context, input *struct{}) (*ListDevicesOutput, error) {
		if inv == nil {
			return nil, huma.Error503ServiceUnavailable("inventory not configured")
		}

		devices, err := inv.ListAllDevices(ctx)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to list devices: %v", err))
		}

		resp := &ListDevicesOutput{}
		resp.Body.Devices = make([]schemas.DeviceResponse, len(devices))
		for i := range devices {
			resp.Body.Devices[i] = toDeviceResponse(&devices[i])
		}
		return resp, nil
	})

	// Get device
	huma.Register(api, huma.Operation{
		OperationID: "get-device",
		Method:      http.MethodGet,
		Path:        "/api/devices/{deviceId}",
		Summary:     "Get device details",
		Tags:        []string{"Devices"},
	}, func(ctx context.Context, input *GetDeviceInput) (*GetDeviceOutput, error) {
		if inv == nil {
			return nil, huma.Error503ServiceUnavailable("inventory not configured")
		}

		dev, err := inv.GetDevice(ctx, input.DeviceID)
		if errors.Is(err, inventory.ErrDeviceNotFound) {
			return nil, huma.Error404NotFound("device not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to get device: %v", err))
		}

		return &GetDeviceOutput{Body: toDeviceResponse(dev)}, nil
	})

	// Update device
	huma.Register(api, huma.Operation{
		OperationID: "update-device",
		Method:      http.MethodPut,
		Path:        "/api/devices/{deviceId}",
		Summary:     "Update a device",
		Tags:        []string{"Devices"},
	}, func(ctx context.Context, input *UpdateDeviceInput) (*UpdateDeviceOutput, error) {
		if inv == nil {
			return nil, huma.Error503ServiceUnavailable("inventory not configured")
		}

		dev := &models.Device{
			ID:             input.DeviceID,
			Name:           input.Body.Name,
			Address:        input.Body.Address,
			Port:           input.Body.Port,
			Protocol:       input.Body.Protocol,
			Platform:       input.Body.Platform,
			Username:       input.Body.Username,
			Password:       input.Body.Password,
			EnablePassword: input.Body.EnablePassword,
			CountryCode:    input.Body.CountryCode,
		}

		err := inv.UpdateDevice(ctx, dev)
		if errors.Is(err, inventory.ErrDeviceNotFound) {
			return nil, huma.Error404NotFound("device not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to update device: %v", err))
		}

		updated, err := inv.GetDevice(ctx, input.DeviceID)
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to reload device: %v", err))
		}
		return &UpdateDeviceOutput{Body: toDeviceResponse(updated)}, nil
	})

	// Delete device
	huma.Register(api, huma.Operation{
		OperationID: "delete-device",
		Method:      http.MethodDelete,
		Path:        "/api/devices/{deviceId}",
		Summary:     "Delete a device",
		Tags:        []string{"Devices"},
	}, func(ctx context.Context, input *DeleteDeviceInput) (*struct{}, error) {
		if inv == nil {
			return nil, huma.Error503ServiceUnavailable("inventory not configured")
		}

		err := inv.DeleteDevice(ctx, input.DeviceID)
		if errors.Is(err, inventory.ErrDeviceNotFound) {
			return nil, huma.Error404NotFound("device not found")
		}
		if err != nil {
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to delete device: %v", err))
		}
		return &struct{}{}, nil
	})
}

func toDeviceResponse(dev *models.Device) schemas.DeviceResponse {
	return schemas.DeviceResponse{
		ID:          dev.ID,
		Name:        dev.Name,
		Address:     dev.Address,
		Port:        dev.Port,
		Protocol:    dev.Protocol,
		Platform:    dev.Platform,
		CountryCode: dev.CountryCode,
		HasPassword: dev.Password != "",
		CreatedAt:   dev.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   dev.UpdatedAt.Format(time.RFC3339),
	}
}

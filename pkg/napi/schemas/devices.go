package schemas

// CreateDeviceRequest represents a request to add a device to the inventory
type CreateDeviceRequest struct {
	ID             string `json:"id" doc:"Device identifier"`
	Name           string `json:"name,omitempty" doc:"Human-readable name"`
	Address        string `json:"address" doc:"Host or IP address"`
	Port           int    `json:"port,omitempty" doc:"Port (protocol default if omitted)"`
	Protocol       string `json:"protocol,omitempty" doc:"ssh or telnet" enum:"ssh,telnet,"`
	Platform       string `json:"platform,omitempty" doc:"Platform key, e.g. cisco_ios, huawei_vrp, linux"`
	Username       string `json:"username,omitempty" doc:"Login username override"`
	Password       string `json:"password,omitempty" doc:"Login password override"`
	EnablePassword string `json:"enable_password,omitempty" doc:"Privileged-mode password"`
	CountryCode    string `json:"country_code,omitempty" doc:"Grouping key for progress rollups"`
}

// UpdateDeviceRequest carries the mutable device fields
type UpdateDeviceRequest struct {
	Name           string `json:"name,omitempty" doc:"Human-readable name"`
	Address        string `json:"address,omitempty" doc:"Host or IP address"`
	Port           int    `json:"port,omitempty" doc:"Port"`
	Protocol       string `json:"protocol,omitempty" doc:"ssh or telnet" enum:"ssh,telnet,"`
	Platform       string `json:"platform,omitempty" doc:"Platform key"`
	Username       string `json:"username,omitempty" doc:"Login username override"`
	Password       string `json:"password,omitempty" doc:"Login password override"`
	EnablePassword string `json:"enable_password,omitempty" doc:"Privileged-mode password"`
	CountryCode    string `json:"country_code,omitempty" doc:"Grouping key"`
}

// DeviceResponse represents a device record. Credentials are never echoed.
type DeviceResponse struct {
	ID          string `json:"id" doc:"Device identifier"`
	Name        string `json:"name,omitempty" doc:"Human-readable name"`
	Address     string `json:"address" doc:"Host or IP address"`
	Port        int    `json:"port,omitempty" doc:"Port"`
	Protocol    string `json:"protocol" doc:"ssh or telnet"`
	Platform    string `json:"platform,omitempty" doc:"Platform key"`
	CountryCode string `json:"country_code,omitempty" doc:"Grouping key"`
	HasPassword bool   `json:"has_password" doc:"Whether a per-device password is set"`
	CreatedAt   string `json:"created_at" doc:"Creation timestamp"`
	UpdatedAt   string `json:"updated_at" doc:"Last update timestamp"`
}

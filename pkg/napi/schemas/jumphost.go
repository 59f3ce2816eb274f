package schemas

// JumphostConfigRequest sets the fleet-wide bastion configuration
type JumphostConfigRequest struct {
	Enabled  bool   `json:"enabled" doc:"Whether device sessions tunnel through the bastion"`
	Host     string `json:"host,omitempty" doc:"Bastion host or IP"`
	Port     int    `json:"port,omitempty" doc:"Bastion SSH port (default 22)"`
	Username string `json:"username,omitempty" doc:"Bastion login username"`
	Password string `json:"password,omitempty" doc:"Bastion login password"`
}

// JumphostConfigResponse echoes the bastion configuration without the password
type JumphostConfigResponse struct {
	Enabled  bool   `json:"enabled" doc:"Whether tunneling is active"`
	Host     string `json:"host,omitempty" doc:"Bastion host or IP"`
	Port     int    `json:"port,omitempty" doc:"Bastion SSH port"`
	Username string `json:"username,omitempty" doc:"Bastion login username"`
	HasAuth  bool   `json:"has_auth" doc:"Whether a password is stored"`
}

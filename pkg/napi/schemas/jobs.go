package schemas

// SubmitJobRequest represents a batch job submission
type SubmitJobRequest struct {
	DeviceIDs []string `json:"device_ids" doc:"Devices to run against"`
	Commands  []string `json:"commands" doc:"Commands executed in order on each device"`
	BatchSize int      `json:"batch_size,omitempty" doc:"Devices per concurrent batch; 0 runs everything at once"`
	RateLimit int      `json:"rate_limit,omitempty" doc:"Devices-per-hour pacing budget; 0 is unlimited"`
}

// CommandResult is one command's outcome on one device
type CommandResult struct {
	Command    string  `json:"command" doc:"Command text"`
	Status     string  `json:"status" doc:"pending, running, success, failed, or simulated"`
	Output     string  `json:"output,omitempty" doc:"Captured output"`
	Error      string  `json:"error,omitempty" doc:"Error message if failed"`
	DurationMS int64   `json:"duration_ms" doc:"Execution duration in milliseconds"`
	Timestamp  *string `json:"timestamp,omitempty" doc:"Execution timestamp"`
}

// DeviceResult is one device's outcome within a job
type DeviceResult struct {
	DeviceID   string          `json:"device_id" doc:"Device identifier"`
	Group      string          `json:"group,omitempty" doc:"Progress rollup group"`
	Status     string          `json:"status" doc:"pending, running, completed, failed, or simulated"`
	Error      string          `json:"error,omitempty" doc:"Connect error if the device failed"`
	ErrorKind  string          `json:"error_kind,omitempty" doc:"auth, timeout, tunnel, platform, or exhausted"`
	Commands   []CommandResult `json:"commands,omitempty" doc:"Per-command results in execution order"`
	StartedAt  *string         `json:"started_at,omitempty" doc:"Start timestamp"`
	FinishedAt *string         `json:"finished_at,omitempty" doc:"Finish timestamp"`
}

// JobResponse represents a batch job and its current state
type JobResponse struct {
	ID         string         `json:"id" doc:"Job ID"`
	Status     string         `json:"status" doc:"pending, running, stopping, completed, stopped, or failed"`
	DeviceIDs  []string       `json:"device_ids" doc:"Requested devices"`
	Commands   []string       `json:"commands" doc:"Requested commands"`
	BatchSize  int            `json:"batch_size,omitempty" doc:"Devices per batch"`
	RateLimit  int            `json:"rate_limit,omitempty" doc:"Devices-per-hour budget"`
	BatchCount int            `json:"batch_count" doc:"Number of derived batches"`
	Total      int            `json:"total_devices" doc:"Total devices"`
	Completed  int            `json:"completed_devices" doc:"Devices in a terminal state"`
	Percent    float64        `json:"percent" doc:"Completion percentage"`
	Devices    []DeviceResult `json:"devices,omitempty" doc:"Per-device results"`
	CreatedAt  string         `json:"created_at" doc:"Creation timestamp"`
	StartedAt  *string        `json:"started_at,omitempty" doc:"Start timestamp"`
	FinishedAt *string        `json:"finished_at,omitempty" doc:"Finish timestamp"`
}

// SubmitJobResponse acknowledges an accepted job
type SubmitJobResponse struct {
	ID         string `json:"id" doc:"Job ID"`
	Status     string `json:"status" doc:"Initial status"`
	BatchCount int    `json:"batch_count" doc:"Number of derived batches"`
}

// GroupProgress is a per-group completion rollup
type GroupProgress struct {
	Total     int `json:"total" doc:"Devices in the group"`
	Completed int `json:"completed" doc:"Devices in a terminal state"`
}

// ProgressSnapshot is one point-in-time progress update
type ProgressSnapshot struct {
	JobID            string                   `json:"job_id" doc:"Job ID"`
	Status           string                   `json:"status" doc:"Job status"`
	TotalDevices     int                      `json:"total_devices" doc:"Total devices"`
	CompletedDevices int                      `json:"completed_devices" doc:"Devices in a terminal state"`
	Percent          float64                  `json:"percent" doc:"Completion percentage"`
	CurrentDevice    string                   `json:"current_device,omitempty" doc:"Device currently executing"`
	CurrentCommand   string                   `json:"current_command,omitempty" doc:"Command currently executing"`
	Groups           map[string]GroupProgress `json:"groups,omitempty" doc:"Per-group rollups"`
	UpdatedAt        string                   `json:"updated_at" doc:"Snapshot timestamp"`
}

// JobRecordResponse is an archived job summary row
type JobRecordResponse struct {
	ID         string   `json:"id" doc:"Job ID"`
	Status     string   `json:"status" doc:"Final status"`
	DeviceIDs  []string `json:"device_ids" doc:"Requested devices"`
	Commands   []string `json:"commands" doc:"Requested commands"`
	Total      int      `json:"total" doc:"Total devices"`
	Completed  int      `json:"completed" doc:"Completed devices"`
	Failed     int      `json:"failed" doc:"Failed devices"`
	CreatedAt  string   `json:"created_at" doc:"Creation timestamp"`
	FinishedAt *string  `json:"finished_at,omitempty" doc:"Finish timestamp"`
}

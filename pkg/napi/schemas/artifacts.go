package schemas

// JobArtifact describes one stored command-output file
type JobArtifact struct {
	Key         string `json:"key" doc:"Full storage key"`
	Filename    string `json:"filename" doc:"File name within the job prefix"`
	DeviceID    string `json:"device_id,omitempty" doc:"Device parsed from the key"`
	CommandID   string `json:"command_id,omitempty" doc:"Command identifier parsed from the key"`
	Timestamp   string `json:"timestamp,omitempty" doc:"Execution timestamp parsed from the key"`
	Size        int64  `json:"size" doc:"Size in bytes"`
	ContentType string `json:"content_type,omitempty" doc:"Content type"`
	URL         string `json:"url,omitempty" doc:"Presigned download URL, when the backend supports it"`
}

package job

type SubmitJobRequest struct {
	URI string `json:"uri" validate:"required"`
}

type SubmitJobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

type ProcessJobRequest struct {
	JobID string `json:"job_id" validate:"required"`
}

type JobResult struct {
	OutputURI string `json:"output_uri"`
}

type JobStatusResponse struct {
	JobID     string     `json:"job_id"`
	Status    string     `json:"status"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type CleanupResponse struct {
	OK            bool   `json:"ok"`
	Deleted       int    `json:"deleted"`
	Cutoff        string `json:"cutoff"`
	StalledMarked int    `json:"stalled_marked"`
	StalledCutoff string `json:"stalled_cutoff,omitempty"`
}

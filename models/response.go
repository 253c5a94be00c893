package models

import "time"

// RunState is the lifecycle state of an export run.
type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// ExportRun describes one invocation of the extractor.
type ExportRun struct {
	ID         string     `json:"id"`
	URL        string     `json:"url,omitempty"`
	State      RunState   `json:"state"`
	Records    int        `json:"records"`
	Filename   string     `json:"filename,omitempty"`
	Path       string     `json:"-"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// ExportResponse is the response for POST /api/v1/export and GET /api/v1/exports/:id.
type ExportResponse struct {
	Success bool         `json:"success"`
	Run     *ExportRun   `json:"run,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// RunListResponse is the response for GET /api/v1/exports.
type RunListResponse struct {
	Runs []*ExportRun `json:"runs"`
}

// LogResponse is the response for GET /api/v1/export/log.
type LogResponse struct {
	Enabled bool         `json:"enabled"`
	Entries []LogMessage `json:"entries"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"` // "idle" or "running"
	Uptime  string `json:"uptime"`
	Enabled bool   `json:"enabled"`
	Version string `json:"version"`
}

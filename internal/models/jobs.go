package models

import "time"

// JobRun records one execution of a scheduled or triggered job.
type JobRun struct {
	ID          string    `json:"id"`
	JobType     string    `json:"job_type"`
	Trigger     string    `json:"trigger"` // "schedule" or "manual"
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMS  int64     `json:"duration_ms"`
	Summary     any       `json:"summary,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Job type constants
const (
	JobTypeRefreshQuotes    = "refresh_quotes"
	JobTypeComputeAnalytics = "compute_analytics"
	JobTypeImportFxRates    = "import_fx_rates"
)

// Job status constants
const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusSkipped   = "skipped"
)

// Job event types
const (
	JobEventStarted   = "job_started"
	JobEventCompleted = "job_completed"
	JobEventFailed    = "job_failed"
	JobEventTicker    = "ticker_refreshed"
)

// JobEvent is broadcast via WebSocket when job state changes.
type JobEvent struct {
	Type      string    `json:"type"`
	Job       *JobRun   `json:"job,omitempty"`
	Ticker    string    `json:"ticker,omitempty"`
	Success   bool      `json:"success,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

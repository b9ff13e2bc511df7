package model

import "time"

// RunStatus represents the current state of a refresh run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Trigger names what started a refresh run.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
	TriggerStartup  Trigger = "startup"
	TriggerPageLoad Trigger = "page_load"
	TriggerCLI      Trigger = "cli"
	TriggerImport   Trigger = "import"
)

// Run is one recorded refresh cycle.
type Run struct {
	ID         string     `json:"id"`
	Trigger    Trigger    `json:"trigger"`
	Status     RunStatus  `json:"status"`
	Result     *RunResult `json:"result,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunResult holds the outcome of a refresh run.
type RunResult struct {
	Fetched    int       `json:"fetched"`
	Dropped    int       `json:"dropped"`
	Kept       int       `json:"kept"`
	Failures   []string  `json:"metric_failures,omitempty"`
	ErrorKind  ErrorKind `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

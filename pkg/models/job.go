package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusError      = "error"
)

// Job is the durable status row for one pipeline run. The API returns its id on
// POST /api/v1/jobs; the client polls GET /api/v1/jobs/{job_id} until status is
// completed or error.
type Job struct {
	ID              uuid.UUID       `db:"id"               json:"id"`
	Status          string          `db:"status"           json:"status"`
	CurrentStep     int             `db:"current_step"     json:"current_step"`
	StepName        string          `db:"step_name"        json:"step_name"`
	StepProgress    int             `db:"step_progress"    json:"step_progress"`
	OverallProgress int             `db:"overall_progress" json:"overall_progress"`
	Message         string          `db:"message"          json:"message"`
	ErrorMessage    *string         `db:"error_message"    json:"error,omitempty"`
	ResultID        *uuid.UUID      `db:"result_id"        json:"result_id,omitempty"`
	Options         json.RawMessage `db:"options"          json:"options,omitempty"`
	StartedAt       *time.Time      `db:"started_at"       json:"started_at,omitempty"`
	CompletedAt     *time.Time      `db:"completed_at"     json:"completed_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"       json:"updated_at"`
}

// IsTerminal reports whether the job reached completed or error.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}

// JobProgress is the set of progress columns rewritten on every stage event.
type JobProgress struct {
	CurrentStep     int    `json:"current_step"`
	StepName        string `json:"step_name"`
	StepProgress    int    `json:"step_progress"`
	OverallProgress int    `json:"overall_progress"`
	Message         string `json:"message"`
}

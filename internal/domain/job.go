package domain

import (
	"encoding/json"
	"time"
)

// Job is a unit of scheduled work
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	ProjectID string          `json:"projectId"`
	Payload   json.RawMessage `json:"payload"`
	Status    JobStatus       `json:"status"`
	Summary   string          `json:"summary,omitempty"`
	Output    map[string]any  `json:"output,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// StatusUpdate describes a status transition. Summary and Output are
// optional; nil leaves the stored value in place.
type StatusUpdate struct {
	Status  JobStatus
	Summary *string
	Output  map[string]any
}

// JobMessage is the broker notification published when a job is enqueued
type JobMessage struct {
	JobID     string  `json:"job_id"`
	Type      JobType `json:"type,omitempty"`
	ProjectID string  `json:"project_id,omitempty"`
}

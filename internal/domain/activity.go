package domain

import "time"

// ActivityEvent is one entry of a project's audit trail
type ActivityEvent struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"projectId"`
	Timestamp     time.Time      `json:"ts"`
	Level         string         `json:"level"`
	Actor         string         `json:"actor"`
	Message       string         `json:"message"`
	Meta          map[string]any `json:"meta,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	JobID         string         `json:"jobId,omitempty"`
}

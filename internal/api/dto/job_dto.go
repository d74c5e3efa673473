package dto

import (
	"encoding/json"

	"github.com/cuongbtq/launchloop/internal/domain"
)

type CreateJobRequest struct {
	Type      string          `json:"type" binding:"required"`
	ProjectID string          `json:"projectId" binding:"required"`
	Payload   json.RawMessage `json:"payload"`
}

type ListJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []*domain.Job `json:"jobs"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

type CreateProjectRequest struct {
	Name            string        `json:"name" binding:"required"`
	Brief           *domain.Brief `json:"brief" binding:"required"`
	FunnelArchetype string        `json:"funnelArchetype" binding:"required"`
}

type ListActivityRequest struct {
	Limit int `form:"limit"`
}

type ActivityResponse struct {
	Events []*domain.ActivityEvent `json:"events"`
}

type ExperimentsResponse struct {
	Experiments []*domain.Experiment `json:"experiments"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

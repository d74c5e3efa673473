package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/launchloop/internal/api/dto"
	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/cuongbtq/launchloop/internal/jobs"
	"github.com/cuongbtq/launchloop/internal/storage"
	"github.com/gin-gonic/gin"
)

// Page size bounds for job listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// CreateJob handles POST /worker/jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request body"})
		return
	}

	job, err := h.service.Submit(c.Request.Context(), jobs.SubmitRequest{
		Type:      req.Type,
		ProjectID: req.ProjectID,
		Payload:   req.Payload,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// GetJob handles GET /worker/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.service.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// ResubmitJob handles POST /worker/jobs/:id/resubmit
func (h *JobHandler) ResubmitJob(c *gin.Context) {
	job, err := h.service.Resubmit(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, job)
}

// ListJobs handles GET /worker/projects/:id/jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = DefaultPageSize
	}
	if req.PageSize > MaxPageSize {
		req.PageSize = MaxPageSize
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid cursor", Field: "cursor"})
		return
	}

	filter := storage.JobFilter{
		ProjectID: c.Param("id"),
		PageSize:  req.PageSize,
		Cursor:    cursor,
	}
	if req.Status != "" {
		status, err := domain.ParseJobStatus(req.Status)
		if err != nil {
			writeError(c, h.logger, err)
			return
		}
		filter.Status = status
	}

	list, err := h.service.ListJobs(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	hasMore := len(list) > req.PageSize
	if hasMore {
		list = list[:req.PageSize]
	}

	resp := dto.ListJobsResponse{Jobs: list}
	if resp.Jobs == nil {
		resp.Jobs = []*domain.Job{}
	}
	if hasMore {
		last := list[len(list)-1]
		resp.NextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.ID,
		})
	}

	c.JSON(http.StatusOK, resp)
}

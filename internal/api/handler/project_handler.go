package handler

import (
	"net/http"

	"github.com/cuongbtq/launchloop/internal/api/dto"
	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/gin-gonic/gin"
)

// CreateProject handles POST /worker/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req dto.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Missing required fields"})
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), domain.NewProject{
		Name:            req.Name,
		Brief:           *req.Brief,
		FunnelArchetype: req.FunnelArchetype,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetProject handles GET /worker/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.service.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// ListActivity handles GET /worker/projects/:id/activity
func (h *ProjectHandler) ListActivity(c *gin.Context) {
	var req dto.ListActivityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid query parameters"})
		return
	}

	events, err := h.service.ListActivity(c.Request.Context(), c.Param("id"), req.Limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if events == nil {
		events = []*domain.ActivityEvent{}
	}

	c.JSON(http.StatusOK, dto.ActivityResponse{Events: events})
}

// ListExperiments handles GET /worker/projects/:id/experiments
func (h *ProjectHandler) ListExperiments(c *gin.Context) {
	experiments, err := h.service.ListExperiments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if experiments == nil {
		experiments = []*domain.Experiment{}
	}

	c.JSON(http.StatusOK, dto.ExperimentsResponse{Experiments: experiments})
}

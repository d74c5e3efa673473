package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/launchloop/internal/api/dto"
	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/cuongbtq/launchloop/internal/jobs"
	"github.com/cuongbtq/launchloop/internal/storage"
	"github.com/gin-gonic/gin"
)

// Service is the job and project service the handlers call
type Service interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (*domain.Job, error)
	Resubmit(ctx context.Context, id string) (*domain.Job, error)
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]*domain.Job, error)
	CreateProject(ctx context.Context, in domain.NewProject) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListActivity(ctx context.Context, projectID string, limit int) ([]*domain.ActivityEvent, error)
	ListExperiments(ctx context.Context, projectID string) ([]*domain.Experiment, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Service      Service
	SharedSecret string
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger  *slog.Logger
	service Service
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}

// ProjectHandler handles project-related HTTP requests
type ProjectHandler struct {
	logger  *slog.Logger
	service Service
}

// NewProjectHandler creates a new ProjectHandler instance
func NewProjectHandler(deps *Dependencies) *ProjectHandler {
	return &ProjectHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}

// writeError maps domain errors onto HTTP status codes
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: ve.Message, Field: ve.Field})
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrProjectNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "Not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	default:
		logger.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error"})
	}
}

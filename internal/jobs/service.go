// Package jobs is the submission side of the queue: it validates and
// enqueues jobs, manages projects, and answers read queries for the API and
// the operator CLI.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/launchloop/internal/activity"
	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/cuongbtq/launchloop/internal/storage"
)

// JobRepository persists jobs
type JobRepository interface {
	Enqueue(ctx context.Context, jobType domain.JobType, projectID string, payload json.RawMessage) (*domain.Job, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	ListByProject(ctx context.Context, filter storage.JobFilter) ([]*domain.Job, error)
	UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) error
}

// RecoveredSummary is the summary written on a job failed by RecoverStuck
const RecoveredSummary = "Marked failed by operator: job was left running"

// ProjectRepository persists projects
type ProjectRepository interface {
	Create(ctx context.Context, in domain.NewProject) (*domain.Project, error)
	Get(ctx context.Context, id string) (*domain.Project, error)
}

// ExperimentLister reads experiments
type ExperimentLister interface {
	ListByProject(ctx context.Context, projectID string) ([]*domain.Experiment, error)
}

// Notifier tells workers that a job was enqueued
type Notifier interface {
	Notify(ctx context.Context, msg domain.JobMessage) error
}

// Config holds service dependencies
type Config struct {
	Logger      *slog.Logger
	Jobs        JobRepository
	Projects    ProjectRepository
	Experiments ExperimentLister
	Activity    *activity.Log
	Notifier    Notifier
}

// Service is the job submission and query service
type Service struct {
	logger      *slog.Logger
	jobs        JobRepository
	projects    ProjectRepository
	experiments ExperimentLister
	activity    *activity.Log
	notifier    Notifier
}

// NewService creates a new Service instance
func NewService(cfg *Config) *Service {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		logger:      cfg.Logger,
		jobs:        cfg.Jobs,
		projects:    cfg.Projects,
		experiments: cfg.Experiments,
		activity:    cfg.Activity,
		notifier:    notifier,
	}
}

// SubmitRequest is a job submission
type SubmitRequest struct {
	Type      string
	ProjectID string
	Payload   json.RawMessage
}

// Submit validates and enqueues a job
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error) {
	jobType, err := domain.ParseJobType(req.Type)
	if err != nil {
		return nil, err
	}
	if req.ProjectID == "" {
		return nil, domain.NewValidationError("projectId", "projectId is required")
	}

	payload := bytes.TrimSpace(req.Payload)
	if bytes.Equal(payload, []byte("null")) {
		payload = nil
	}
	if len(payload) > 0 && payload[0] != '{' {
		return nil, domain.NewValidationError("payload", "payload must be a JSON object")
	}

	return s.enqueue(ctx, jobType, req.ProjectID, payload, "Job enqueued: %s", nil)
}

// Resubmit enqueues a fresh copy of a failed or canceled job. The original
// job keeps its terminal status.
func (s *Service) Resubmit(ctx context.Context, id string) (*domain.Job, error) {
	prev, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if prev.Status != domain.JobStatusFailed && prev.Status != domain.JobStatusCanceled {
		return nil, fmt.Errorf("%w: job %s is %s, only failed or canceled jobs can be resubmitted",
			domain.ErrInvalidTransition, prev.ID, prev.Status)
	}

	return s.enqueue(ctx, prev.Type, prev.ProjectID, prev.Payload, "Job resubmitted: %s",
		map[string]any{"previousJobId": prev.ID})
}

// RecoverStuck fails a job left in running, for example when the worker
// could not record its terminal status, so it can be resubmitted. It must
// only be used when no worker is executing the job.
func (s *Service) RecoverStuck(ctx context.Context, id string) (*domain.Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusRunning {
		return nil, fmt.Errorf("%w: job %s is %s, only running jobs can be recovered",
			domain.ErrInvalidTransition, job.ID, job.Status)
	}

	summary := RecoveredSummary
	if err := s.jobs.UpdateStatus(ctx, job.ID, domain.StatusUpdate{
		Status:  domain.JobStatusFailed,
		Summary: &summary,
	}); err != nil {
		return nil, fmt.Errorf("failed to recover job: %w", err)
	}
	job.Status = domain.JobStatusFailed
	job.Summary = summary

	s.activity.Record(ctx, activity.Entry{
		ProjectID: job.ProjectID,
		Level:     domain.LevelWarn,
		Actor:     domain.ActorSystem,
		Message:   fmt.Sprintf("Job recovered: %s", job.Type),
		JobID:     job.ID,
	})
	s.logger.Warn("Stuck job marked failed",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
	)
	return job, nil
}

func (s *Service) enqueue(ctx context.Context, jobType domain.JobType, projectID string, payload json.RawMessage, message string, meta map[string]any) (*domain.Job, error) {
	job, err := s.jobs.Enqueue(ctx, jobType, projectID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	s.activity.Record(ctx, activity.Entry{
		ProjectID: projectID,
		Actor:     domain.ActorSystem,
		Message:   fmt.Sprintf(message, jobType),
		Meta:      meta,
		JobID:     job.ID,
	})

	msg := domain.JobMessage{JobID: job.ID, Type: job.Type, ProjectID: job.ProjectID}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		// the worker's poll picks the job up anyway
		s.logger.Warn("Failed to notify workers",
			slog.String("job_id", job.ID),
			slog.Any("error", err),
		)
	}

	s.logger.Info("Job submitted",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
		slog.String("project_id", job.ProjectID),
	)
	return job, nil
}

// GetJob returns a job by ID
func (s *Service) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.jobs.Get(ctx, id)
}

// ListJobs returns a page of a project's jobs, newest first
func (s *Service) ListJobs(ctx context.Context, filter storage.JobFilter) ([]*domain.Job, error) {
	return s.jobs.ListByProject(ctx, filter)
}

// CreateProject creates a project and records it in the activity log
func (s *Service) CreateProject(ctx context.Context, in domain.NewProject) (*domain.Project, error) {
	if in.Name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}
	switch in.FunnelArchetype {
	case domain.FunnelSingleCTA, domain.FunnelStory, domain.FunnelComparison:
	default:
		return nil, domain.NewValidationError("funnelArchetype", "unknown funnel archetype %q", in.FunnelArchetype)
	}

	p, err := s.projects.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.activity.Record(ctx, activity.Entry{
		ProjectID: p.ID,
		Actor:     domain.ActorSystem,
		Message:   "Project created",
	})
	return p, nil
}

// GetProject returns a project by ID
func (s *Service) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.Get(ctx, id)
}

// ListActivity returns a project's newest activity events
func (s *Service) ListActivity(ctx context.Context, projectID string, limit int) ([]*domain.ActivityEvent, error) {
	return s.activity.List(ctx, projectID, limit)
}

// ListExperiments returns a project's experiments, newest start first
func (s *Service) ListExperiments(ctx context.Context, projectID string) ([]*domain.Experiment, error) {
	return s.experiments.ListByProject(ctx, projectID)
}

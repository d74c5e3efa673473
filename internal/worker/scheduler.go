package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/cuongbtq/launchloop/internal/activity"
	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/cuongbtq/launchloop/internal/worker/workflow"
)

// JobQueue is the part of the job store the scheduler needs
type JobQueue interface {
	NextQueued(ctx context.Context) (*domain.Job, error)
	UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) error
}

// ActivityRecorder appends best-effort activity events
type ActivityRecorder interface {
	Record(ctx context.Context, e activity.Entry)
}

// SchedulerConfig holds scheduler dependencies
type SchedulerConfig struct {
	Logger    *slog.Logger
	Jobs      JobQueue
	Workflows workflow.Workflows
	Activity  ActivityRecorder
	// JobTimeout bounds a single workflow run; zero means no limit
	JobTimeout time.Duration
	Now        func() time.Time
}

// Scheduler runs queued jobs one at a time in creation order
type Scheduler struct {
	logger     *slog.Logger
	jobs       JobQueue
	workflows  workflow.Workflows
	activity   ActivityRecorder
	jobTimeout time.Duration
	now        func() time.Time

	// slot holds a token while a job is running
	slot chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler(cfg *SchedulerConfig) *Scheduler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		logger:     cfg.Logger,
		jobs:       cfg.Jobs,
		workflows:  cfg.Workflows,
		activity:   cfg.Activity,
		jobTimeout: cfg.JobTimeout,
		now:        now,
		slot:       make(chan struct{}, 1),
	}
}

// Tick runs the oldest queued job if no job is running. It returns the job
// it ran, or nil when the slot was busy, the queue was empty or another
// scheduler claimed the job first.
func (s *Scheduler) Tick(ctx context.Context) (*domain.Job, error) {
	select {
	case s.slot <- struct{}{}:
	default:
		return nil, nil
	}
	defer func() { <-s.slot }()

	job, err := s.jobs.NextQueued(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to peek queued job: %w", err)
	}
	if job == nil {
		return nil, nil
	}

	if err := s.jobs.UpdateStatus(ctx, job.ID, domain.StatusUpdate{Status: domain.JobStatusRunning}); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.logger.Warn("Job already claimed, skipping",
				slog.String("job_id", job.ID),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}
	job.Status = domain.JobStatusRunning

	logger := s.logger.With(
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
		slog.String("project_id", job.ProjectID),
	)
	logger.Info("Processing job")
	s.record(ctx, job, domain.LevelInfo, "Job started: "+string(job.Type), nil)

	// terminal state is written even while the process shuts down
	finishCtx := context.WithoutCancel(ctx)

	started := s.now()
	result, runErr := s.execute(ctx, job)
	if runErr != nil {
		logger.Error("Job execution failed",
			slog.String("error", runErr.Error()),
			slog.Duration("duration", s.now().Sub(started)),
		)
		summary := runErr.Error()
		if err := s.jobs.UpdateStatus(finishCtx, job.ID, domain.StatusUpdate{
			Status:  domain.JobStatusFailed,
			Summary: &summary,
		}); err != nil {
			logger.Error("Failed to record job failure, job stays running until an operator recovers it",
				slog.String("error", err.Error()),
			)
			return job, fmt.Errorf("failed to mark job failed: %w", err)
		}
		job.Status = domain.JobStatusFailed
		job.Summary = summary
		s.record(finishCtx, job, domain.LevelError, "Job failed: "+string(job.Type), map[string]any{
			"error": summary,
		})
		return job, nil
	}

	summary := "Job completed"
	output := map[string]any{
		"handledAt": s.now().UTC(),
		"result":    result,
	}
	if err := s.jobs.UpdateStatus(finishCtx, job.ID, domain.StatusUpdate{
		Status:  domain.JobStatusSucceeded,
		Summary: &summary,
		Output:  output,
	}); err != nil {
		logger.Error("Failed to record job success, job stays running until an operator recovers it",
			slog.String("error", err.Error()),
		)
		return job, fmt.Errorf("failed to mark job succeeded: %w", err)
	}
	job.Status = domain.JobStatusSucceeded
	job.Summary = summary

	logger.Info("Job completed successfully",
		slog.Duration("duration", s.now().Sub(started)),
	)
	s.record(finishCtx, job, domain.LevelInfo, "Job succeeded: "+string(job.Type), nil)
	return job, nil
}

// execute runs the job's workflow. The workflow context outlives ctx so a
// running job is not interrupted by shutdown.
func (s *Scheduler) execute(ctx context.Context, job *domain.Job) (result any, err error) {
	runCtx := context.WithoutCancel(ctx)
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.jobTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Workflow panicked",
				slog.String("job_id", job.ID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			result = nil
			err = fmt.Errorf("workflow panicked: %v", r)
		}
	}()

	return workflow.Dispatch(runCtx, s.workflows, job)
}

func (s *Scheduler) record(ctx context.Context, job *domain.Job, level, message string, meta map[string]any) {
	s.activity.Record(ctx, activity.Entry{
		ProjectID: job.ProjectID,
		Level:     level,
		Actor:     domain.ActorSystem,
		Message:   message,
		Meta:      meta,
		JobID:     job.ID,
	})
}

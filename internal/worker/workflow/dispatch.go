// Package workflow holds the job handlers: one method per job type behind
// the Workflows interface, with Dispatch selecting the method by job type.
package workflow

import (
	"context"
	"fmt"

	"github.com/cuongbtq/launchloop/internal/domain"
)

// Workflows handles every job type. Adding a job type adds a method here,
// so implementations stop compiling until they handle it.
type Workflows interface {
	BootstrapLandingRepo(ctx context.Context, job *domain.Job, p domain.BootstrapPayload) (any, error)
	DeployLandingRepo(ctx context.Context, job *domain.Job, p domain.DeployPayload) (any, error)
	UpdateLandingCopy(ctx context.Context, job *domain.Job, p domain.EmptyPayload) (any, error)
	CreateExperimentVariant(ctx context.Context, job *domain.Job, p domain.ExperimentPayload) (any, error)
	PromoteWinner(ctx context.Context, job *domain.Job, p domain.EmptyPayload) (any, error)
}

// Dispatch decodes the job's payload for its type and runs the matching
// workflow.
func Dispatch(ctx context.Context, w Workflows, job *domain.Job) (any, error) {
	switch job.Type {
	case domain.JobBootstrapLandingRepo:
		return run(ctx, job, w.BootstrapLandingRepo)
	case domain.JobDeployLandingRepo:
		return run(ctx, job, w.DeployLandingRepo)
	case domain.JobUpdateLandingCopy:
		return run(ctx, job, w.UpdateLandingCopy)
	case domain.JobCreateExperimentVariant:
		return run(ctx, job, w.CreateExperimentVariant)
	case domain.JobPromoteWinner:
		return run(ctx, job, w.PromoteWinner)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownJobType, job.Type)
	}
}

func run[P any](ctx context.Context, job *domain.Job, fn func(context.Context, *domain.Job, P) (any, error)) (any, error) {
	var payload P
	if err := domain.DecodePayload(job.Payload, &payload); err != nil {
		return nil, err
	}
	return fn(ctx, job, payload)
}

package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/launchloop/internal/domain"
)

// DeployLandingRepo links the repository to the deployment platform and
// deploys main.
func (e *Engine) DeployLandingRepo(ctx context.Context, job *domain.Job, p domain.DeployPayload) (any, error) {
	if !p.Repo.Valid() {
		return nil, domain.NewValidationError("repo", "missing repo info for deployment")
	}
	result, err := e.deploy(ctx, job, *p.Repo)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) deploy(ctx context.Context, job *domain.Job, repo domain.RepoRef) (*DeployResult, error) {
	project, err := e.deployer.CreateProject(ctx, repo.Name, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment project: %w", err)
	}

	deployment, err := e.deployer.CreateDeployment(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("failed to create deployment: %w", err)
	}

	result := &DeployResult{Project: *project, Deployment: *deployment}
	if err := e.outputs.UpdateOutput(ctx, job.ID, map[string]any{
		"project":    result.Project,
		"deployment": result.Deployment,
	}); err != nil {
		return nil, fmt.Errorf("failed to record deployment: %w", err)
	}

	e.milestone(ctx, job, "Deployment triggered", map[string]any{
		"deploymentId": deployment.ID,
		"url":          deployment.URL,
	})
	e.logger.Info("Deployment triggered",
		slog.String("job_id", job.ID),
		slog.String("repo", repo.FullName()),
		slog.String("deployment_id", deployment.ID),
	)
	return result, nil
}

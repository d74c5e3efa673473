package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/launchloop/internal/domain"
)

// BootstrapLandingRepo creates the project's repository, seeds it from the
// template and pushes the first commit to main.
func (e *Engine) BootstrapLandingRepo(ctx context.Context, job *domain.Job, p domain.BootstrapPayload) (any, error) {
	logger := e.logger.With(
		slog.String("job_id", job.ID),
		slog.String("project_id", job.ProjectID),
	)

	repo, err := e.repoHost.CreateRepo(ctx, RepoNamePrefix+job.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	// the remote exists from here on, so keep its identity even if a later step fails
	if err := e.outputs.UpdateOutput(ctx, job.ID, map[string]any{"repo": repo}); err != nil {
		return nil, fmt.Errorf("failed to record repository: %w", err)
	}
	e.milestone(ctx, job, "Repository created", map[string]any{"owner": repo.Owner, "name": repo.Name})
	logger.Info("Repository created",
		slog.String("owner", repo.Owner),
		slog.String("repo", repo.Name),
	)

	dir, err := e.workspaces.Ensure(job.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := e.workspaces.CopySeed(dir); err != nil {
		return nil, err
	}
	if cfg, ok := p.SiteConfigObject(); ok {
		if err := e.workspaces.WriteSiteConfig(dir, cfg); err != nil {
			return nil, err
		}
	}

	if err := e.vcs.Init(ctx, dir, e.author); err != nil {
		return nil, err
	}
	if _, err := e.vcs.CommitAll(ctx, dir, BootstrapMessage); err != nil {
		return nil, err
	}
	if err := e.vcs.AddRemote(ctx, dir, RemoteName, repo.CloneURL); err != nil {
		return nil, err
	}
	if err := e.vcs.PushBranch(ctx, dir, RemoteName, MainBranch); err != nil {
		return nil, err
	}
	logger.Info("Landing repo pushed",
		slog.String("workspace", dir),
	)

	// jobs may target projects that were never registered; the repo exists
	// either way
	if err := e.projects.SetRepo(ctx, job.ProjectID, repo.Ref()); err != nil {
		if !errors.Is(err, domain.ErrProjectNotFound) {
			return nil, fmt.Errorf("failed to set project repo: %w", err)
		}
		e.logger.Warn("Project not found, repo reference not stored",
			slog.String("job_id", job.ID),
			slog.String("project_id", job.ProjectID),
			slog.String("repo", repo.Ref().FullName()),
		)
	}

	return BootstrapResult{Repo: *repo}, nil
}

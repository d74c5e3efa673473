package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/launchloop/internal/domain"
)

// CreateExperimentVariant writes variant B's headline into the site config,
// pushes the change, records a headline experiment and redeploys.
func (e *Engine) CreateExperimentVariant(ctx context.Context, job *domain.Job, p domain.ExperimentPayload) (any, error) {
	if !p.Repo.Valid() {
		return nil, domain.NewValidationError("repo", "missing repo info for experiment update")
	}
	repo := *p.Repo

	dir, err := e.workspaces.Ensure(job.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := e.ensureCheckout(ctx, dir, repo); err != nil {
		return nil, err
	}

	cfg, err := e.workspaces.ReadSiteConfig(dir)
	if err != nil {
		return nil, err
	}
	variantA, _ := cfg[HeadlineKey].(string)
	variantB := p.Decision.VariantB.Headline
	if variantB != "" {
		cfg[HeadlineKey] = variantB
	}
	if err := e.workspaces.WriteSiteConfig(dir, cfg); err != nil {
		return nil, err
	}

	committed, err := e.vcs.CommitAll(ctx, dir, VariantMessage)
	if err != nil {
		return nil, err
	}
	if err := e.vcs.PushBranch(ctx, dir, RemoteName, MainBranch); err != nil {
		return nil, err
	}

	exp, err := e.experiments.Create(ctx, job.ProjectID, domain.ExperimentHeadlineHero, []domain.Variant{
		{ID: "A", Headline: variantA},
		{ID: "B", Headline: variantB},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record experiment: %w", err)
	}
	e.milestone(ctx, job, "Experiment created", map[string]any{
		"experimentId": exp.ID,
		"variantA":     variantA,
		"variantB":     variantB,
	})
	e.logger.Info("Experiment variant committed",
		slog.String("job_id", job.ID),
		slog.String("experiment_id", exp.ID),
		slog.Bool("changed", committed),
	)

	result, err := e.deploy(ctx, job, repo)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ensureCheckout clones repo into dir unless dir already holds a checkout.
// A non-empty directory without a checkout is left untouched.
func (e *Engine) ensureCheckout(ctx context.Context, dir string, repo domain.RepoRef) error {
	if e.workspaces.HasCheckout(dir) {
		return nil
	}

	empty, err := e.workspaces.IsEmpty(dir)
	if err != nil {
		return err
	}
	if !empty {
		return &domain.WorkspaceConflictError{Path: dir}
	}

	if err := e.vcs.Clone(ctx, e.repoHost.AuthenticatedCloneURL(repo), dir); err != nil {
		return err
	}
	return nil
}

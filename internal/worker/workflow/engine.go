package workflow

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/launchloop/internal/activity"
	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/cuongbtq/launchloop/internal/vcs"
)

// Fixed names used by the workflows
const (
	RepoNamePrefix   = "launchloop-"
	RemoteName       = "origin"
	MainBranch       = "main"
	BootstrapMessage = "chore: bootstrap landing repo"
	VariantMessage   = "feat: add experiment variant"
	HeadlineKey      = "tagline"
)

// RepoHost creates hosted repositories
type RepoHost interface {
	CreateRepo(ctx context.Context, name string) (*domain.RemoteRepo, error)
	AuthenticatedCloneURL(repo domain.RepoRef) string
}

// Deployer creates deployment projects and deployments
type Deployer interface {
	CreateProject(ctx context.Context, name string, repo domain.RepoRef) (*domain.DeployProject, error)
	CreateDeployment(ctx context.Context, repo domain.RepoRef) (*domain.Deployment, error)
}

// VersionControl runs local repository operations on a working directory
type VersionControl interface {
	Init(ctx context.Context, dir string, author vcs.Identity) error
	CommitAll(ctx context.Context, dir, message string) (bool, error)
	AddRemote(ctx context.Context, dir, name, url string) error
	PushBranch(ctx context.Context, dir, remote, branch string) error
	Clone(ctx context.Context, url, dir string) error
}

// Workspaces manages project working directories
type Workspaces interface {
	Ensure(projectID string) (string, error)
	CopySeed(dir string) error
	HasCheckout(dir string) bool
	IsEmpty(dir string) (bool, error)
	ReadSiteConfig(dir string) (map[string]any, error)
	WriteSiteConfig(dir string, cfg map[string]any) error
}

// JobOutputs records partial job output while a workflow runs
type JobOutputs interface {
	UpdateOutput(ctx context.Context, id string, output map[string]any) error
}

// Projects updates project records
type Projects interface {
	SetRepo(ctx context.Context, id string, repo domain.RepoRef) error
}

// Experiments records experiments
type Experiments interface {
	Create(ctx context.Context, projectID, experimentType string, variants []domain.Variant) (*domain.Experiment, error)
}

// ActivityRecorder appends best-effort activity events
type ActivityRecorder interface {
	Record(ctx context.Context, e activity.Entry)
}

// Config holds engine dependencies
type Config struct {
	Logger      *slog.Logger
	RepoHost    RepoHost
	Deployer    Deployer
	VCS         VersionControl
	Workspaces  Workspaces
	Outputs     JobOutputs
	Projects    Projects
	Experiments Experiments
	Activity    ActivityRecorder
	Author      vcs.Identity
}

// Engine implements Workflows against the external adapters
type Engine struct {
	logger      *slog.Logger
	repoHost    RepoHost
	deployer    Deployer
	vcs         VersionControl
	workspaces  Workspaces
	outputs     JobOutputs
	projects    Projects
	experiments Experiments
	activity    ActivityRecorder
	author      vcs.Identity
}

var _ Workflows = (*Engine)(nil)

// NewEngine creates a new workflow engine
func NewEngine(cfg *Config) *Engine {
	return &Engine{
		logger:      cfg.Logger,
		repoHost:    cfg.RepoHost,
		deployer:    cfg.Deployer,
		vcs:         cfg.VCS,
		workspaces:  cfg.Workspaces,
		outputs:     cfg.Outputs,
		projects:    cfg.Projects,
		experiments: cfg.Experiments,
		activity:    cfg.Activity,
		author:      cfg.Author,
	}
}

// BootstrapResult is the result of BOOTSTRAP_LANDING_REPO
type BootstrapResult struct {
	Repo domain.RemoteRepo `json:"repo"`
}

// DeployResult is the result of DEPLOY_LANDING_REPO and
// CREATE_EXPERIMENT_VARIANT
type DeployResult struct {
	Project    domain.DeployProject `json:"project"`
	Deployment domain.Deployment    `json:"deployment"`
}

// SkippedResult is returned by job types that have no workflow yet
type SkippedResult struct {
	Skipped bool `json:"skipped"`
}

func (e *Engine) milestone(ctx context.Context, job *domain.Job, message string, meta map[string]any) {
	e.activity.Record(ctx, activity.Entry{
		ProjectID: job.ProjectID,
		Level:     domain.LevelInfo,
		Actor:     domain.ActorAgent,
		Message:   message,
		Meta:      meta,
		JobID:     job.ID,
	})
}

// UpdateLandingCopy has no workflow yet
func (e *Engine) UpdateLandingCopy(_ context.Context, job *domain.Job, _ domain.EmptyPayload) (any, error) {
	e.logger.Info("Job type has no workflow, skipping",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
	)
	return SkippedResult{Skipped: true}, nil
}

// PromoteWinner has no workflow yet
func (e *Engine) PromoteWinner(_ context.Context, job *domain.Job, _ domain.EmptyPayload) (any, error) {
	e.logger.Info("Job type has no workflow, skipping",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
	)
	return SkippedResult{Skipped: true}, nil
}

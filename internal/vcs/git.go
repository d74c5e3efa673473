// Package vcs runs local git operations on a working directory with go-git.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	giturls "github.com/whilp/git-urls"
)

// TokenUser is the basic-auth user name paired with an access token
const TokenUser = "x-access-token"

// Identity is a commit author
type Identity struct {
	Name  string
	Email string
}

// Config holds git client configuration
type Config struct {
	// Token authenticates pushes when the remote URL carries no credentials
	Token  string
	Logger *slog.Logger
	Now    func() time.Time
}

// Client performs version-control operations
type Client struct {
	token  string
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates a new git client
func NewClient(cfg Config) *Client {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{token: cfg.Token, logger: cfg.Logger, now: now}
}

// Init creates a repository in dir, or opens the existing one, and sets the
// author identity in its local config.
func (c *Client) Init(_ context.Context, dir string, author Identity) error {
	repo, err := git.PlainInit(dir, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repo, err = git.PlainOpen(dir)
	}
	if err != nil {
		return fmt.Errorf("failed to init repository: %w", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read repository config: %w", err)
	}
	cfg.User.Name = author.Name
	cfg.User.Email = author.Email
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to set author identity: %w", err)
	}

	c.logger.Debug("Repository initialized",
		slog.String("dir", dir),
		slog.String("author", author.Name),
	)
	return nil
}

// CommitAll stages every change and commits it. It returns false without
// committing when the working tree is clean.
func (c *Client) CommitAll(_ context.Context, dir, message string) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return false, fmt.Errorf("failed to open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get status: %w", err)
	}
	if status.IsClean() {
		c.logger.Info("Nothing to commit",
			slog.String("dir", dir),
		)
		return false, nil
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return false, fmt.Errorf("failed to stage changes: %w", err)
	}

	author, err := c.signature(repo)
	if err != nil {
		return false, err
	}

	hash, err := wt.Commit(message, &git.CommitOptions{Author: author, Committer: author})
	if err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}

	c.logger.Info("Changes committed",
		slog.String("dir", dir),
		slog.String("commit", hash.String()),
		slog.String("message", message),
	)
	return true, nil
}

func (c *Client) signature(repo *git.Repository) (*object.Signature, error) {
	cfg, err := repo.Config()
	if err != nil {
		return nil, fmt.Errorf("failed to read repository config: %w", err)
	}
	return &object.Signature{
		Name:  cfg.User.Name,
		Email: cfg.User.Email,
		When:  c.now(),
	}, nil
}

// AddRemote registers a remote, replacing the URL of an existing one
func (c *Client) AddRemote(_ context.Context, dir, name, rawURL string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	remote := &config.RemoteConfig{Name: name, URLs: []string{rawURL}}
	_, err = repo.CreateRemote(remote)
	if errors.Is(err, git.ErrRemoteExists) {
		if err := repo.DeleteRemote(name); err != nil {
			return fmt.Errorf("failed to replace remote %s: %w", name, err)
		}
		_, err = repo.CreateRemote(remote)
	}
	if err != nil {
		return fmt.Errorf("failed to add remote %s: %w", name, err)
	}

	c.logger.Debug("Remote configured",
		slog.String("dir", dir),
		slog.String("remote", name),
		slog.String("url", Redact(rawURL)),
	)
	return nil
}

// PushBranch renames the current branch to branch, pushes it to remote and
// records remote as its upstream.
func (c *Client) PushBranch(ctx context.Context, dir, remote, branch string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}

	target, err := renameBranch(repo, branch)
	if err != nil {
		return err
	}

	rem, err := repo.Remote(remote)
	if err != nil {
		return fmt.Errorf("failed to get remote %s: %w", remote, err)
	}

	var remoteURL string
	if urls := rem.Config().URLs; len(urls) > 0 {
		remoteURL = urls[0]
	}
	auth, err := c.auth(remoteURL)
	if err != nil {
		return err
	}

	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(fmt.Sprintf("%s:%s", target, target))},
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push %s to %s: %w", branch, remote, err)
	}

	if err := setUpstream(repo, branch, remote); err != nil {
		return err
	}

	c.logger.Info("Branch pushed",
		slog.String("dir", dir),
		slog.String("remote", remote),
		slog.String("branch", branch),
	)
	return nil
}

// Clone clones rawURL into dir. Credentials embedded in the URL are used for
// authentication and stripped from the stored remote.
func (c *Client) Clone(ctx context.Context, rawURL, dir string) error {
	clean, auth, err := SplitCredentials(rawURL)
	if err != nil {
		return err
	}

	opts := &git.CloneOptions{URL: clean}
	if auth != nil {
		opts.Auth = auth
	}
	_, err = git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", Redact(rawURL), err)
	}

	c.logger.Info("Repository cloned",
		slog.String("dir", dir),
		slog.String("url", clean),
	)
	return nil
}

func (c *Client) auth(remoteURL string) (transport.AuthMethod, error) {
	_, auth, err := SplitCredentials(remoteURL)
	if err != nil {
		return nil, err
	}
	if auth != nil {
		return auth, nil
	}
	if c.token == "" {
		return nil, nil
	}
	return &githttp.BasicAuth{Username: TokenUser, Password: c.token}, nil
}

// renameBranch points refs/heads/<branch> at HEAD, moves HEAD onto it and
// removes the previous branch.
func renameBranch(repo *git.Repository, branch string) (plumbing.ReferenceName, error) {
	target := plumbing.NewBranchReferenceName(branch)

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	if head.Name() == target {
		return target, nil
	}

	if err := repo.Storer.SetReference(plumbing.NewHashReference(target, head.Hash())); err != nil {
		return "", fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, target)); err != nil {
		return "", fmt.Errorf("failed to move HEAD to %s: %w", branch, err)
	}
	if head.Name().IsBranch() {
		if err := repo.Storer.RemoveReference(head.Name()); err != nil {
			return "", fmt.Errorf("failed to remove branch %s: %w", head.Name().Short(), err)
		}
	}
	return target, nil
}

func setUpstream(repo *git.Repository, branch, remote string) error {
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("failed to read repository config: %w", err)
	}
	cfg.Branches[branch] = &config.Branch{
		Name:   branch,
		Remote: remote,
		Merge:  plumbing.NewBranchReferenceName(branch),
	}
	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("failed to set upstream: %w", err)
	}
	return nil
}

// SplitCredentials removes user info from an http(s) git URL and returns it
// as basic auth. URLs without credentials return a nil auth.
func SplitCredentials(rawURL string) (string, *githttp.BasicAuth, error) {
	u, err := giturls.Parse(rawURL)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse git URL: %w", err)
	}
	if u.User == nil || (u.Scheme != "http" && u.Scheme != "https") {
		return rawURL, nil, nil
	}

	password, ok := u.User.Password()
	if !ok {
		return rawURL, nil, nil
	}
	auth := &githttp.BasicAuth{Username: u.User.Username(), Password: password}

	clean := *u
	clean.User = nil
	return clean.String(), auth, nil
}

// Redact masks the password of a git URL for logging
func Redact(rawURL string) string {
	u, err := giturls.Parse(rawURL)
	if err != nil || u.User == nil {
		return rawURL
	}
	if _, ok := u.User.Password(); !ok {
		return rawURL
	}
	redacted := *u
	redacted.User = url.UserPassword(u.User.Username(), "xxxxx")
	return redacted.String()
}

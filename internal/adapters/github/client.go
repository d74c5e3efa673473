// Package github creates and looks up repositories on GitHub.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/launchloop/internal/domain"
	gh "github.com/google/go-github/v66/github"
)

// ErrNamespaceNotFound is returned when the target organization does not exist
var ErrNamespaceNotFound = errors.New("github namespace not found")

// errNameTaken marks a repository name collision
var errNameTaken = errors.New("repository name already exists")

// Config holds GitHub client configuration
type Config struct {
	Token string
	// Org is the organization repos are created in; empty means the
	// token owner's account.
	Org        string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Now        func() time.Time
}

// Client is the repo-hosting adapter
type Client struct {
	api    *gh.Client
	token  string
	org    string
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates a new GitHub client
func NewClient(cfg Config) (*Client, error) {
	api := gh.NewClient(cfg.HTTPClient).WithAuthToken(cfg.Token)
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		api.BaseURL = u
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		api:    api,
		token:  cfg.Token,
		org:    cfg.Org,
		logger: cfg.Logger,
		now:    now,
	}, nil
}

// CreateRepo creates a private repository. A missing organization falls
// back to the token owner's account, and a name collision is retried once
// with a uniquified name.
func (c *Client) CreateRepo(ctx context.Context, name string) (*domain.RemoteRepo, error) {
	namespace := c.org

	repo, err := c.createIn(ctx, namespace, name)
	if errors.Is(err, ErrNamespaceNotFound) && namespace != "" {
		c.logger.Warn("GitHub organization not found, using personal account",
			slog.String("org", namespace),
			slog.String("repo", name),
		)
		namespace = ""
		repo, err = c.createIn(ctx, namespace, name)
	}

	if errors.Is(err, errNameTaken) {
		unique := UniqueName(name, c.now())
		c.logger.Info("GitHub repository name taken, retrying",
			slog.String("repo", name),
			slog.String("retry_name", unique),
		)
		repo, err = c.createIn(ctx, namespace, unique)
	}

	if err != nil {
		return nil, err
	}

	out := &domain.RemoteRepo{
		Name:     repo.GetName(),
		Owner:    repo.GetOwner().GetLogin(),
		CloneURL: repo.GetCloneURL(),
	}

	c.logger.Info("GitHub repository created",
		slog.String("owner", out.Owner),
		slog.String("repo", out.Name),
	)
	return out, nil
}

func (c *Client) createIn(ctx context.Context, org, name string) (*gh.Repository, error) {
	repo, resp, err := c.api.Repositories.Create(ctx, org, &gh.Repository{
		Name:    gh.String(name),
		Private: gh.Bool(true),
	})
	if err == nil {
		return repo, nil
	}

	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		switch errResp.Response.StatusCode {
		case http.StatusNotFound:
			if org != "" {
				return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, org)
			}
		case http.StatusUnprocessableEntity:
			if nameTaken(errResp) {
				return nil, fmt.Errorf("%w: %s", errNameTaken, name)
			}
		}
	}

	return nil, adapterError("create repository", resp, err)
}

// RepoID resolves owner/name to GitHub's numeric repository ID
func (c *Client) RepoID(ctx context.Context, repo domain.RepoRef) (int64, error) {
	r, resp, err := c.api.Repositories.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return 0, adapterError("repository lookup", resp, err)
	}
	return r.GetID(), nil
}

// AuthenticatedCloneURL returns an HTTPS clone URL carrying the access token
func (c *Client) AuthenticatedCloneURL(repo domain.RepoRef) string {
	return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", c.token, repo.Owner, repo.Name)
}

// UniqueName appends the last six base-36 digits of the current unix
// milliseconds to base.
func UniqueName(base string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	if len(stamp) > 6 {
		stamp = stamp[len(stamp)-6:]
	}
	return base + "-" + stamp
}

func nameTaken(errResp *gh.ErrorResponse) bool {
	if strings.Contains(errResp.Message, "name already exists") {
		return true
	}
	for _, e := range errResp.Errors {
		if strings.Contains(e.Message, "name already exists") {
			return true
		}
	}
	return false
}

func adapterError(op string, resp *gh.Response, err error) error {
	ae := &domain.AdapterError{Platform: "github", Op: op, Body: err.Error()}
	if resp != nil && resp.Response != nil {
		ae.StatusCode = resp.StatusCode
	}
	var errResp *gh.ErrorResponse
	if errors.As(err, &errResp) {
		ae.Body = errResp.Message
	}
	return ae
}
